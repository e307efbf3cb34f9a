package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"ideagraph/semnet/internal/network"
)

var (
	netDepth     int
	netSummaries bool
	netHierarchy bool
	netJSON      bool
)

var networkCmd = &cobra.Command{
	Use:   "network <type> <id>",
	Short: "Build the tiered similarity network around an object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := OpenStore(false)
		if err != nil {
			return err
		}
		defer store.Close()

		seed, err := ResolveObject(ctx, store, args[0], args[1])
		if err != nil {
			return err
		}

		eng, err := newEngine(ctx, appCfg, store, log, nil)
		if err != nil {
			return err
		}

		depth := netDepth
		if depth == 0 {
			depth = appCfg.Network.DefaultDepth
		}
		res, buildErr := eng.assembler.Build(ctx, network.Request{
			Seed:              network.ObjectRef{Type: seed.Type, ID: seed.ID},
			Depth:             depth,
			GenerateSummaries: netSummaries,
			IncludeHierarchy:  netHierarchy,
		})

		if netJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
			return buildErr
		}
		if buildErr != nil {
			return buildErr
		}
		printNetwork(os.Stdout, res)
		return nil
	},
}

func init() {
	networkCmd.Flags().IntVar(&netDepth, "depth", 0, "Expansion depth 1-3 (default network.default_depth)")
	networkCmd.Flags().BoolVar(&netSummaries, "summaries", false, "Generate a summary per level")
	networkCmd.Flags().BoolVar(&netHierarchy, "hierarchy", false, "Merge parent and child objects")
	networkCmd.Flags().BoolVar(&netJSON, "json", false, "JSON output")
	rootCmd.AddCommand(networkCmd)
}

func printNetwork(w io.Writer, res *network.Result) {
	seed := res.SourceNode()
	if seed == nil {
		fmt.Fprintln(w, "Empty network")
		return
	}
	fmt.Fprintf(w, "Network for: %s (%s)  nodes=%d edges=%d\n",
		seed.Label(), truncID(seed.ID), len(res.Nodes), len(res.Edges))

	byLevel := map[int][]network.Node{}
	var structural []network.Node
	for _, n := range res.Nodes {
		switch {
		case n.IsSource:
		case n.Level == nil:
			structural = append(structural, n)
		default:
			byLevel[*n.Level] = append(byLevel[*n.Level], n)
		}
	}

	levels := make([]int, 0, len(res.Levels))
	for lvl := range res.Levels {
		levels = append(levels, lvl)
	}
	sort.Ints(levels)

	for _, lvl := range levels {
		info := res.Levels[lvl]
		fmt.Fprintf(w, "\n  LEVEL %d  (similarity >= %.2f, %d nodes)\n", lvl, info.Threshold, info.NodeCount)
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		nodes := byLevel[lvl]
		sort.SliceStable(nodes, func(i, j int) bool {
			return similarity(nodes[i]) > similarity(nodes[j])
		})
		for _, n := range nodes {
			fmt.Fprintf(w, "    %.3f  [%s] %s  %s%s\n",
				similarity(n), n.Type, truncID(n.ID), truncTitle(n.Label(), 50), hierarchyMarker(n))
		}
		if info.Summary != "" {
			fmt.Fprintf(w, "\n    %s\n", info.Summary)
		}
	}

	if len(structural) > 0 {
		fmt.Fprintln(w, "\n  HIERARCHY")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		for _, n := range structural {
			fmt.Fprintf(w, "    [%s] %s  %s%s\n", n.Type, truncID(n.ID), truncTitle(n.Label(), 50), hierarchyMarker(n))
		}
	}

	if len(res.Warnings) > 0 {
		fmt.Fprintf(w, "\n  %d warning(s):\n", len(res.Warnings))
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "    - %s\n", warn)
		}
	}
	fmt.Fprintln(w)
}

func similarity(n network.Node) float64 {
	if n.Similarity == nil {
		return 0
	}
	return *n.Similarity
}

func hierarchyMarker(n network.Node) string {
	switch {
	case n.IsParent:
		return "  (parent)"
	case n.IsChild && n.InheritsContext:
		return "  (child, inherits context)"
	case n.IsChild:
		return "  (child)"
	}
	return ""
}
