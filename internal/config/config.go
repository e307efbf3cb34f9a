// Package config loads semnet settings from .env, environment variables and
// an optional semnet.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"ideagraph/semnet/internal/network"
	"ideagraph/semnet/internal/source"
)

const (
	envPrefix  = "SEMNET"
	configName = "semnet"
)

// Config is the full application configuration.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Weaviate   WeaviateConfig   `mapstructure:"weaviate"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
	Network    NetworkConfig    `mapstructure:"network"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type SimilarityConfig struct {
	Backend     string `mapstructure:"backend" validate:"oneof=local weaviate"`
	ScorePolicy string `mapstructure:"score_policy" validate:"oneof=auto certainty distance"`
}

type WeaviateConfig struct {
	URL    string `mapstructure:"url" validate:"omitempty,url"`
	Class  string `mapstructure:"class" validate:"required"`
	APIKey string `mapstructure:"api_key"`
}

type OpenAIConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url" validate:"omitempty,url"`
	Model             string  `mapstructure:"model"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
}

type NetworkConfig struct {
	Thresholds       []float64     `mapstructure:"thresholds" validate:"min=1,dive,gt=0,lte=1"`
	MaxDepth         int           `mapstructure:"max_depth" validate:"min=1,max=3"`
	DefaultDepth     int           `mapstructure:"default_depth" validate:"min=1,max=3,ltefield=MaxDepth"`
	Neighbors        int           `mapstructure:"neighbors" validate:"min=1"`
	ObjectTypes      []string      `mapstructure:"object_types"`
	QueryTimeout     time.Duration `mapstructure:"query_timeout" validate:"gt=0"`
	SummaryTimeout   time.Duration `mapstructure:"summary_timeout" validate:"gt=0"`
	HierarchyTimeout time.Duration `mapstructure:"hierarchy_timeout" validate:"gt=0"`
	Concurrency      int           `mapstructure:"concurrency" validate:"min=1"`
	HierarchyWeight  float64       `mapstructure:"hierarchy_weight" validate:"gt=0,lte=1"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests" validate:"min=1"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FailureThreshold float64       `mapstructure:"failure_threshold" validate:"gt=0,lte=1"`
	MinRequests      uint32        `mapstructure:"min_requests" validate:"min=1"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// setDefaults registers a default for every key so environment overrides
// are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	engine := network.DefaultConfig()
	breaker := source.DefaultBreakerConfig("similarity")

	v.SetDefault("store.path", "")
	v.SetDefault("similarity.backend", source.BackendLocal)
	v.SetDefault("similarity.score_policy", "auto")
	v.SetDefault("weaviate.url", "")
	v.SetDefault("weaviate.class", "KnowledgeObject")
	v.SetDefault("weaviate.api_key", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.requests_per_second", 5.0)
	v.SetDefault("network.thresholds", engine.Thresholds)
	v.SetDefault("network.max_depth", engine.MaxDepth)
	v.SetDefault("network.default_depth", 2)
	v.SetDefault("network.neighbors", engine.Neighbors)
	v.SetDefault("network.object_types", []string{})
	v.SetDefault("network.query_timeout", engine.QueryTimeout)
	v.SetDefault("network.summary_timeout", engine.SummaryTimeout)
	v.SetDefault("network.hierarchy_timeout", engine.HierarchyTimeout)
	v.SetDefault("network.concurrency", engine.Concurrency)
	v.SetDefault("network.hierarchy_weight", engine.HierarchyWeight)
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_requests", breaker.MaxRequests)
	v.SetDefault("breaker.interval", breaker.Interval)
	v.SetDefault("breaker.timeout", breaker.Timeout)
	v.SetDefault("breaker.failure_threshold", breaker.FailureThreshold)
	v.SetDefault("breaker.min_requests", breaker.MinRequests)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 90*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads .env (if present), then the config file, then SEMNET_* env
// vars. cfgFile overrides the file search when non-empty.
func Load(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return load(viper.New(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints and the cross-field rules of the engine.
func (c *Config) Validate() error {
	if err := source.ValidateBackend(c.Similarity.Backend); err != nil {
		return err
	}
	c.Similarity.Backend = strings.ToLower(c.Similarity.Backend)
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", network.ErrConfiguration, err)
	}
	if c.Similarity.Backend == source.BackendWeaviate && c.Weaviate.URL == "" {
		return fmt.Errorf("%w: weaviate.url is required for the weaviate backend", network.ErrConfiguration)
	}
	if _, err := network.ParseScorePolicy(c.Similarity.ScorePolicy); err != nil {
		return err
	}
	return c.Engine().Validate()
}

// Engine returns the network engine configuration.
func (c *Config) Engine() network.Config {
	n := c.Network
	return network.Config{
		Thresholds:       append([]float64(nil), n.Thresholds...),
		MaxDepth:         n.MaxDepth,
		Neighbors:        n.Neighbors,
		ObjectTypes:      append([]string(nil), n.ObjectTypes...),
		QueryTimeout:     n.QueryTimeout,
		SummaryTimeout:   n.SummaryTimeout,
		HierarchyTimeout: n.HierarchyTimeout,
		Concurrency:      n.Concurrency,
		HierarchyWeight:  n.HierarchyWeight,
	}
}

// ScorePolicy returns the parsed similarity score policy.
func (c *Config) ScorePolicy() network.ScorePolicy {
	p, _ := network.ParseScorePolicy(c.Similarity.ScorePolicy)
	return p
}

// BreakerSettings returns the circuit breaker settings for the similarity source.
func (c *Config) BreakerSettings() source.BreakerConfig {
	b := c.Breaker
	return source.BreakerConfig{
		Name:             "similarity-" + c.Similarity.Backend,
		MaxRequests:      b.MaxRequests,
		Interval:         b.Interval,
		Timeout:          b.Timeout,
		FailureThreshold: b.FailureThreshold,
		MinRequests:      b.MinRequests,
	}
}
