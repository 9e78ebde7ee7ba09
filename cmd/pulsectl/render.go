package main

import (
	"fmt"
	"os"
	"time"

	"pulse-backend/application/canvas"
	"pulse-backend/infrastructure/render"

	"github.com/spf13/cobra"
)

func renderCmd() *cobra.Command {
	var (
		endpoint string
		out      string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "render <diagram-type>",
		Short: "Render a diagram to SVG through the render engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled, err := compileFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			cfg := render.DefaultHTTPRendererConfig(endpoint)
			cfg.Timeout = timeout
			renderer := render.NewHTTPRenderer(cfg, nil, nil, logger())

			markup, err := renderer.Render(cmd.Context(), compiled.Source)
			if err != nil {
				return fmt.Errorf("render failed: %w", err)
			}

			// Mark restricted nodes the same way a canvas does
			selection := canvas.NewSelectionMachine(render.NewResolver(), nil)
			selection.Attach(compiled.RenderIDs)
			selection.Rebind(markup)

			if out == "" || out == "-" {
				fmt.Fprint(cmd.OutOrStdout(), markup.String())
				return nil
			}
			if err := os.WriteFile(out, []byte(markup.String()), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			Good.Fprintf(cmd.ErrOrStderr(), "  %s wrote %s\n", check(true), out)
			return nil
		},
	}

	defaultEndpoint := os.Getenv("RENDER_ENDPOINT")
	if defaultEndpoint == "" {
		defaultEndpoint = "http://localhost:8000"
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", defaultEndpoint, "Render engine base URL")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Render timeout")
	return cmd
}
