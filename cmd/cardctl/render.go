package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/paycard/internal/pipeline"
	"github.com/congo-pay/paycard/internal/render"
)

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a card to the output directory and keep it",
		Long: `Render a receipt card with the configured template and browser.
The image is left on disk so the layout can be inspected; nothing is sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}
			if out, _ := cmd.Flags().GetString("out"); out != "" {
				cfg.OutputDir = out
			}

			driver, err := pipeline.NewDriver(cfg, logger)
			if err != nil {
				return err
			}
			path, err := render.ArtifactNamer{Dir: cfg.OutputDir}.Next()
			if err != nil {
				return err
			}
			art, err := driver.Render(cmd.Context(), cardRequest(cmd).TemplateFields(), path)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), art.Path)
			if art.Degraded {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: card element not found, captured the full page")
			}
			return nil
		},
	}

	addCardFlags(cmd)
	cmd.Flags().StringP("out", "o", "", "Output directory (default OUTPUT_DIR)")
	return cmd
}
