package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ideagraph/semnet/internal/config"
	"ideagraph/semnet/internal/db"
	"ideagraph/semnet/internal/logger"
)

const storeFileName = ".semnet.db"

var (
	cfgFile string
	dbPath  string

	appCfg *config.Config
	log    *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "semnet",
	Short:         "Multi-level semantic similarity networks over a knowledge store",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Store.Path = dbPath
		}
		l, err := logger.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		appCfg, log = cfg, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ./semnet.yaml or ~/.config/semnet/semnet.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the object store (overrides store.path)")
}

// DiscoverStore finds the store path using priority: config > walk-up > XDG fallback.
// When create is set and nothing exists, the XDG location is returned so the
// store can be initialized there.
func DiscoverStore(configured string, create bool) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil || create {
			return configured, nil
		}
		return "", fmt.Errorf("store not found at %s", configured)
	}

	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, storeFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		xdgPath := filepath.Join(home, ".local", "share", "semnet", "semnet.db")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
		if create {
			if err := os.MkdirAll(filepath.Dir(xdgPath), 0o755); err != nil {
				return "", err
			}
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no %s found (set SEMNET_STORE_PATH, use --db, or run from a directory containing %s)", storeFileName, storeFileName)
}

// OpenStore discovers and opens the object store.
func OpenStore(create bool) (*db.DB, error) {
	path, err := DiscoverStore(appCfg.Store.Path, create)
	if err != nil {
		return nil, err
	}
	log.Debug("opening store", zap.String("path", path))
	return db.OpenDB(path)
}
