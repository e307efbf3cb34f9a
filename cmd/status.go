package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show object and embedding counts of the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := OpenStore(false)
		if err != nil {
			return err
		}
		defer store.Close()

		counts, err := store.CountObjects(ctx)
		if err != nil {
			return err
		}
		embedded, err := store.CountWithEmbeddings(ctx)
		if err != nil {
			return err
		}

		types := make([]string, 0, len(counts))
		total := 0
		for t, n := range counts {
			types = append(types, t)
			total += n
		}
		sort.Strings(types)

		fmt.Printf("Objects: %d  Embedded: %d\n", total, embedded)
		for _, t := range types {
			fmt.Printf("  %-16s %d\n", t, counts[t])
		}
		fmt.Printf("Backend: %s  Thresholds: %v  Max depth: %d\n",
			appCfg.Similarity.Backend, appCfg.Network.Thresholds, appCfg.Network.MaxDepth)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
