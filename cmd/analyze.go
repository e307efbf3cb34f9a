package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ideagraph/semnet/internal/graph"
	"ideagraph/semnet/internal/network"
)

var (
	analyzeJSON         bool
	analyzeDepth        int
	analyzeHierarchy    bool
	analyzeTopN         int
	analyzeHubThreshold int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <type> <id>",
	Short: "Analyze network structure: topology, tiers, bridges, cohesion score",
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

		depth := analyzeDepth
		if depth == 0 {
			depth = appCfg.Network.DefaultDepth
		}
		res, err := eng.assembler.Build(ctx, network.Request{
			Seed:             network.ObjectRef{Type: seed.Type, ID: seed.ID},
			Depth:            depth,
			IncludeHierarchy: analyzeHierarchy,
		})
		if err != nil {
			return fmt.Errorf("building network: %w", err)
		}

		snap := graph.FromResult(res)
		report := graph.Analyze(snap, &graph.AnalyzerConfig{
			HubThreshold: analyzeHubThreshold,
			TopN:         analyzeTopN,
		})

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printAnalysis(os.Stdout, report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeDepth, "depth", 0, "Expansion depth 1-3 (default network.default_depth)")
	analyzeCmd.Flags().BoolVar(&analyzeHierarchy, "hierarchy", false, "Include parent and child objects")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 4, "Minimum degree to consider a node a hub")
	rootCmd.AddCommand(analyzeCmd)
}

func printAnalysis(w io.Writer, report *graph.AnalysisReport, snap *graph.Snapshot) {
	barLen := min(int(report.Cohesion*20), 20)
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  Network Cohesion: %.0f%%  [%s]\n", report.Cohesion*100, bar)
	fmt.Fprintf(w, "  breakdown: connectivity=%.2f components=%.2f strength=%.2f fragility=%.2f\n\n",
		report.CohesionBreakdown.Connectivity,
		report.CohesionBreakdown.Components,
		report.CohesionBreakdown.Strength,
		report.CohesionBreakdown.Fragility)

	t := report.Topology
	fmt.Fprintln(w, "  TOPOLOGY")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Nodes: %d  Similarity edges: %d  Hierarchy edges: %d  Components: %d\n",
		t.TotalNodes, t.SimilarityEdges, t.HierarchyEdges, t.NumComponents)
	fmt.Fprintf(w, "  Largest component: %d  Smallest: %d\n", t.LargestComponent, t.SmallestComponent)

	if t.OrphanCount > 0 {
		fmt.Fprintf(w, "  Orphans: %d disconnected nodes\n", t.OrphanCount)
		for _, key := range t.OrphanKeys[:min(len(t.OrphanKeys), 5)] {
			label, title := key, "?"
			if node := snap.Nodes[key]; node != nil {
				label = node.Type + ":" + truncID(node.ID)
				title = truncTitle(node.Title, 50)
			}
			fmt.Fprintf(w, "    - %s (%s)\n", label, title)
		}
		if t.OrphanCount > 5 {
			fmt.Fprintf(w, "    ... and %d more\n", t.OrphanCount-5)
		}
	}

	fmt.Fprintln(w, "\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := max(int(math.Log2(float64(b.Count)))+2, 1)
			fmt.Fprintf(w, "    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	if len(t.Tiers) > 0 {
		fmt.Fprintln(w, "\n  Tiers:")
		for _, tier := range t.Tiers {
			fmt.Fprintf(w, "    level %d: %3d nodes  mean=%.3f  min=%.3f\n",
				tier.Level, tier.Nodes, tier.MeanSimilarity, tier.MinSimilarity)
		}
	}

	if len(t.Hubs) > 0 {
		fmt.Fprintln(w, "\n  Top hubs (degree > threshold):")
		for _, hub := range t.Hubs {
			fmt.Fprintf(w, "    %s degree=%d level=%d  %s\n",
				truncID(hub.ID), hub.Degree, hub.Level, truncTitle(hub.Title, 40))
		}
	}

	br := report.Bridges
	if br.APCount > 0 || br.BridgeCount > 0 {
		fmt.Fprintln(w, "\n  STRUCTURAL FRAGILITY")
		fmt.Fprintln(w, "  ────────────────────────────────────────")
		if br.APCount > 0 {
			fmt.Fprintf(w, "  %d articulation points (removal disconnects network):\n", br.APCount)
			for _, ap := range br.ArticulationPoints[:min(len(br.ArticulationPoints), 10)] {
				fmt.Fprintf(w, "    %s (degree %d, level %d)  %s\n",
					truncID(ap.ID), ap.Degree, ap.Level, truncTitle(ap.Title, 40))
			}
		}
		if br.BridgeCount > 0 {
			fmt.Fprintf(w, "  %d bridge edges (removal disconnects network):\n", br.BridgeCount)
			for _, be := range br.BridgeEdges[:min(len(br.BridgeEdges), 10)] {
				fmt.Fprintf(w, "    %s -> %s\n", truncTitle(be.SourceTitle, 30), truncTitle(be.TargetTitle, 30))
			}
		}
	}

	if len(br.TierLinks) > 0 {
		fmt.Fprintln(w, "\n  Tier links:")
		for _, tl := range br.TierLinks {
			s := ""
			if tl.Edges != 1 {
				s = "s"
			}
			fmt.Fprintf(w, "    %s <-> %s (%d edge%s)\n", tierName(tl.LevelA), tierName(tl.LevelB), tl.Edges, s)
		}
	}

	fmt.Fprintln(w)
}

func tierName(level int) string {
	if level == 0 {
		return "seed/hierarchy"
	}
	return fmt.Sprintf("level %d", level)
}
