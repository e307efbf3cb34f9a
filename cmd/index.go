package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ideagraph/semnet/internal/db"
	"ideagraph/semnet/internal/llm"
	"ideagraph/semnet/internal/network"
	"ideagraph/semnet/internal/source"
	weaviatesrc "ideagraph/semnet/internal/source/weaviate"
)

var (
	addID              string
	addContent         string
	addParent          string
	addInheritsContext bool
	addMetadata        string

	embedType  string
	embedBatch int
	embedSync  bool

	listType string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Add objects to the store and maintain their embeddings",
}

var indexAddCmd = &cobra.Command{
	Use:   "add <type> <title>",
	Short: "Create or update an object, embedding it when an API key is configured",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := OpenStore(true)
		if err != nil {
			return err
		}
		defer store.Close()

		opts := db.UpsertObjectOpts{
			ID:              addID,
			Content:         addContent,
			InheritsContext: addInheritsContext,
		}
		if addParent != "" {
			parentType, parentID, ok := strings.Cut(addParent, ":")
			if !ok || parentType == "" || parentID == "" {
				return fmt.Errorf("--parent must be <type>:<id>, got %q", addParent)
			}
			opts.ParentType, opts.ParentID = parentType, parentID
		}
		if addMetadata != "" {
			if err := json.Unmarshal([]byte(addMetadata), &opts.Metadata); err != nil {
				return fmt.Errorf("--metadata must be a JSON object: %w", err)
			}
		}

		id, err := store.UpsertObject(ctx, args[0], args[1], opts)
		if err != nil {
			return fmt.Errorf("storing object: %w", err)
		}
		fmt.Printf("%s:%s\n", args[0], id)

		ix, err := newIndexer(ctx)
		if err != nil {
			return err
		}
		if ix == nil {
			return nil
		}
		obj, err := store.GetObject(ctx, args[0], id)
		if err != nil {
			return err
		}
		return ix.index(ctx, store, obj)
	},
}

var indexEmbedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Embed every object that has no embedding yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := OpenStore(false)
		if err != nil {
			return err
		}
		defer store.Close()

		ix, err := newIndexer(ctx)
		if err != nil {
			return err
		}
		if ix == nil {
			return errors.New("embedding requires openai.api_key")
		}

		done, failed, err := backfill(ctx, store, embedType, embedBatch, log, func(ctx context.Context, o *db.Object) error {
			return ix.index(ctx, store, o)
		})
		if err != nil {
			return err
		}
		fmt.Printf("embedded %d object(s), %d failed\n", done, failed)
		return nil
	},
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored objects, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := OpenStore(false)
		if err != nil {
			return err
		}
		defer store.Close()

		objs, err := store.AllObjects(cmd.Context())
		if err != nil {
			return err
		}
		for _, o := range objs {
			if listType != "" && o.Type != listType {
				continue
			}
			parent := ""
			if o.ParentID != nil && o.ParentType != nil {
				parent = "  <- " + *o.ParentType + ":" + truncID(*o.ParentID)
			}
			fmt.Printf("%-12s %s  %s%s\n", o.Type, truncID(o.ID), truncTitle(o.Title, 60), parent)
		}
		return nil
	},
}

var indexRmCmd = &cobra.Command{
	Use:   "rm <type> <reference>",
	Short: "Remove an object from the store",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := OpenStore(false)
		if err != nil {
			return err
		}
		defer store.Close()

		obj, err := ResolveObject(ctx, store, args[0], args[1])
		if err != nil {
			return err
		}
		if err := store.DeleteObject(ctx, obj.Type, obj.ID); err != nil {
			return err
		}
		fmt.Printf("removed %s:%s %s\n", obj.Type, truncID(obj.ID), obj.Title)
		return nil
	},
}

// backfill walks every object without an embedding once, oldest first, and
// hands it to embed. Failed objects are skipped by the cursor so they neither
// block newer objects nor get counted twice.
func backfill(ctx context.Context, store *db.DB, objType string, batchSize int, logger *zap.Logger, embed func(context.Context, *db.Object) error) (done, failed int, err error) {
	if batchSize < 1 {
		return 0, 0, fmt.Errorf("--batch must be at least 1, got %d", batchSize)
	}
	var cursor *db.EmbeddingCursor
	for {
		batch, err := store.ObjectsMissingEmbedding(ctx, objType, cursor, batchSize)
		if err != nil {
			return done, failed, err
		}
		for i := range batch {
			if err := embed(ctx, &batch[i]); err != nil {
				failed++
				logger.Warn("embedding failed",
					zap.String("type", batch[i].Type),
					zap.String("id", batch[i].ID),
					zap.Error(err))
				continue
			}
			done++
		}
		if len(batch) < batchSize {
			return done, failed, nil
		}
		cursor = db.CursorAt(batch[len(batch)-1])
	}
}

// indexer embeds objects and optionally mirrors them into Weaviate.
type indexer struct {
	llm    *llm.Client
	mirror *weaviatesrc.Source
}

// newIndexer returns nil when no embedding model is available.
func newIndexer(ctx context.Context) (*indexer, error) {
	client, err := newLLM(appCfg, log)
	if err != nil || client == nil {
		return nil, err
	}
	ix := &indexer{llm: client}
	if embedSync || appCfg.Similarity.Backend == source.BackendWeaviate {
		w, err := newWeaviate(appCfg, client, log)
		if err != nil {
			return nil, err
		}
		if err := w.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("preparing weaviate: %w", err)
		}
		ix.mirror = w
	}
	return ix, nil
}

func (ix *indexer) index(ctx context.Context, store *db.DB, obj *db.Object) error {
	text := obj.Text()
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%s:%s has no text to embed", obj.Type, obj.ID)
	}
	vec, err := ix.llm.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding %s:%s: %w", obj.Type, obj.ID, err)
	}
	if err := store.SetEmbedding(ctx, obj.Type, obj.ID, vec); err != nil {
		return err
	}
	if ix.mirror == nil {
		return nil
	}
	resolved, err := store.Resolve(ctx, network.ObjectRef{Type: obj.Type, ID: obj.ID})
	if err != nil {
		return err
	}
	return ix.mirror.Upsert(ctx, resolved, vec)
}

func init() {
	indexAddCmd.Flags().StringVar(&addID, "id", "", "Object ID (default: generated UUID)")
	indexAddCmd.Flags().StringVar(&addContent, "content", "", "Object body text")
	indexAddCmd.Flags().StringVar(&addParent, "parent", "", "Parent object as <type>:<id>")
	indexAddCmd.Flags().BoolVar(&addInheritsContext, "inherits-context", false, "Mark the object as inheriting its parent's context")
	indexAddCmd.Flags().StringVar(&addMetadata, "metadata", "", "Extra properties as a JSON object")

	indexEmbedCmd.Flags().StringVar(&embedType, "type", "", "Only embed objects of this type")
	indexEmbedCmd.Flags().IntVar(&embedBatch, "batch", 50, "Objects fetched per batch")

	indexListCmd.Flags().StringVar(&listType, "type", "", "Only list objects of this type")

	indexCmd.PersistentFlags().BoolVar(&embedSync, "sync-weaviate", false, "Also write embedded objects to Weaviate")
	indexCmd.AddCommand(indexAddCmd, indexEmbedCmd, indexListCmd, indexRmCmd)
	rootCmd.AddCommand(indexCmd)
}
