package main

import (
	"context"
	"fmt"

	"pulse-backend/application/diagram"
	"pulse-backend/domain/org"

	"github.com/spf13/cobra"
)

// compileFor loads a diagram and compiles it for the selected role
func compileFor(ctx context.Context, rawType string) (*diagram.Compiled, error) {
	diagramType, err := org.ParseDiagramType(rawType)
	if err != nil {
		return nil, err
	}
	r, err := role()
	if err != nil {
		return nil, err
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}
	snap, err := store.GetDiagram(ctx, diagramType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", diagramType, err)
	}
	view := org.RedactSnapshot(snap, org.ClearanceFor(r))
	return diagram.Compile(view, diagram.CompileOptions{Direction: direction}), nil
}

func compileCmd() *cobra.Command {
	var stats bool

	cmd := &cobra.Command{
		Use:   "compile <diagram-type>",
		Short: "Print the flowchart source of a diagram as the role sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled, err := compileFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), compiled.Source)

			if stats {
				restricted := 0
				for _, rid := range compiled.RenderIDs.RenderIDs() {
					if n, _ := compiled.RenderIDs.Node(rid); n.Restricted {
						restricted++
					}
				}
				fmt.Fprintln(cmd.ErrOrStderr())
				Subtle.Fprintf(cmd.ErrOrStderr(), "  %d nodes, %d restricted, %d edges dropped\n",
					compiled.RenderIDs.Len(), restricted, len(compiled.DroppedEdges))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "Print node and edge counts to stderr")
	return cmd
}
