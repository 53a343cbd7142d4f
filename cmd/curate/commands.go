package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/OFFIS-RIT/curator/internal/queue"
	"github.com/OFFIS-RIT/curator/pkg/graph"
	"github.com/OFFIS-RIT/curator/pkg/merge"
	"github.com/OFFIS-RIT/curator/pkg/path"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	in    string
	out   string
	debug bool
}

func rootCmd() *cobra.Command {
	flags := new(globalFlags)

	cmd := &cobra.Command{
		Use:   "curate",
		Short: "Curate a property graph snapshot",
		Long: `curate loads a JSON graph snapshot, runs one curation step on it
and writes the resulting snapshot. "-" reads from stdin or writes to stdout.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogger(flags.debug)
		},
	}

	cmd.PersistentFlags().StringVar(&flags.in, "in", "-", "Snapshot to read")
	cmd.PersistentFlags().StringVar(&flags.out, "out", "-", "Where to write the curated snapshot")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")

	cmd.AddCommand(
		mergeXRefCmd(flags),
		linkXRefCmd(flags),
		mergeContextCmd(flags),
		pathCmd(flags),
	)
	return cmd
}

func policyFlags(cmd *cobra.Command, policy *merge.KeyPolicy) {
	cmd.Flags().StringVar(&policy.Authority, "authority", "", "Authority whose cross references are compared")
	cmd.Flags().BoolVar(&policy.UniqueKeys, "unique-keys", false, "Fail when a node has more than one value for the authority")
	cmd.Flags().BoolVar(&policy.AllMustMatch, "all-must-match", false, "Compare the joined set of values instead of single values")
	_ = cmd.MarkFlagRequired("authority")
}

func mergeXRefCmd(flags *globalFlags) *cobra.Command {
	var params queue.XRefMergeParams

	cmd := &cobra.Command{
		Use:   "merge-xref",
		Short: "Merge nodes that share cross references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, flags, queue.JobXRefMerge, params)
		},
	}
	cmd.Flags().StringVar(&params.Selection.Type, "type", "", "Type of the nodes to merge")
	cmd.Flags().StringSliceVar(&params.Selection.IDs, "ids", nil, "Explicit node ids to merge")
	policyFlags(cmd, &params.Policy)
	return cmd
}

func linkXRefCmd(flags *globalFlags) *cobra.Command {
	var params queue.XRefLinkParams

	cmd := &cobra.Command{
		Use:   "link-xref",
		Short: "Link nodes of two selections that share cross references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, flags, queue.JobXRefLink, params)
		},
	}
	cmd.Flags().StringVar(&params.From.Type, "from-type", "", "Type of the link sources")
	cmd.Flags().StringSliceVar(&params.From.IDs, "from-ids", nil, "Explicit link sources")
	cmd.Flags().StringVar(&params.To.Type, "to-type", "", "Type of the link targets")
	cmd.Flags().StringSliceVar(&params.To.IDs, "to-ids", nil, "Explicit link targets")
	cmd.Flags().StringVar(&params.Property, "property", "", "Label of the created edges")
	_ = cmd.MarkFlagRequired("property")
	policyFlags(cmd, &params.Policy)
	return cmd
}

func mergeContextCmd(flags *globalFlags) *cobra.Command {
	var params queue.ContextMergeParams

	cmd := &cobra.Command{
		Use:   "merge-context",
		Short: "Merge nodes with identical connections to nodes of a type",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(cmd, flags, queue.JobContextMerge, params)
		},
	}
	cmd.Flags().StringVar(&params.Selection.Type, "type", "", "Type of the nodes to merge")
	cmd.Flags().StringSliceVar(&params.Selection.IDs, "ids", nil, "Explicit node ids to merge")
	cmd.Flags().StringVar(&params.Restriction, "restriction", "", "Only neighbors of this type count as context")
	_ = cmd.MarkFlagRequired("restriction")
	return cmd
}

func pathCmd(flags *globalFlags) *cobra.Command {
	var (
		source  string
		targets []string
		pattern string
	)

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Find the nearest target from a source node",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := graph.ParsePattern(pattern)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd.Context(), cmd.InOrStdin(), flags.in)
			if err != nil {
				return err
			}
			node, err := path.NewFinder(g).Find(cmd.Context(), source, targets, p)
			if err != nil {
				return err
			}
			if node == nil {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"found": false})
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"found":    true,
				"distance": node.Distance,
				"path":     node.Path(),
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Start node")
	cmd.Flags().StringSliceVar(&targets, "targets", nil, "Candidate target nodes")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Hop pattern, e.g. involves/^involves")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("targets")
	_ = cmd.MarkFlagRequired("pattern")
	return cmd
}

// runJob runs one curation job on the input snapshot and writes the
// result. Progress goes to the logger, the snapshot to --out.
func runJob(cmd *cobra.Command, flags *globalFlags, kind queue.JobKind, params any) error {
	ctx := cmd.Context()
	raw, err := json.Marshal(params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(queue.JobMsg{ID: "cli", GraphID: "cli", Kind: kind, Params: raw})
	if err != nil {
		return err
	}
	msg, err := queue.ParseJobMsg(body)
	if err != nil {
		return err
	}

	g, err := loadGraph(ctx, cmd.InOrStdin(), flags.in)
	if err != nil {
		return err
	}
	result, err := queue.Execute(ctx, g, msg, nil)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(cmd.ErrOrStderr()).Encode(result); err != nil {
		return err
	}
	return saveGraph(ctx, cmd.OutOrStdout(), flags.out, g)
}

func loadGraph(ctx context.Context, stdin io.Reader, name string) (*graph.MemoryGraph, error) {
	r := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot: %w", err)
		}
		defer f.Close()
		r = f
	}

	snap, err := graph.ReadSnapshot(r)
	if err != nil {
		return nil, err
	}
	g := graph.NewMemoryGraph()
	if err := graph.Import(ctx, g, snap); err != nil {
		return nil, err
	}
	return g, nil
}

func saveGraph(ctx context.Context, stdout io.Writer, name string, g graph.PropertyGraph) error {
	snap, err := graph.Export(ctx, g)
	if err != nil {
		return err
	}
	if name == "-" {
		return graph.WriteSnapshot(stdout, snap)
	}

	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := graph.WriteSnapshot(f, snap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
