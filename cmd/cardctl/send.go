package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/paycard/internal/pipeline"
)

func sendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Render a card, deliver it over WhatsApp and remove it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(cmd)
			if err != nil {
				return err
			}

			driver, err := pipeline.NewDriver(cfg, logger)
			if err != nil {
				return err
			}
			svc := pipeline.NewService(cfg, driver, pipeline.NewNotifier(cfg, logger), logger)

			req := cardRequest(cmd)
			req.ChatID, _ = cmd.Flags().GetString("chat-id")
			req.InstanceID, _ = cmd.Flags().GetString("instance-id")
			req.APIToken, _ = cmd.Flags().GetString("api-token")

			job, err := svc.Prepare(req)
			if err != nil {
				return err
			}
			out, err := svc.Run(cmd.Context(), job)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out.Delivery); err != nil {
				return fmt.Errorf("encode gateway reply: %w", err)
			}
			if out.Delivery.IsFault() {
				return fmt.Errorf("gateway reply rejected: %s (status %d)", out.Delivery.Fault.Error, out.Delivery.Fault.StatusCode)
			}
			return nil
		},
	}

	addCardFlags(cmd)
	cmd.Flags().String("chat-id", "", "Recipient chat id or phone")
	cmd.Flags().String("instance-id", "", "Green API instance id")
	cmd.Flags().String("api-token", "", "Green API token")
	_ = cmd.MarkFlagRequired("chat-id")
	_ = cmd.MarkFlagRequired("instance-id")
	_ = cmd.MarkFlagRequired("api-token")
	return cmd
}
