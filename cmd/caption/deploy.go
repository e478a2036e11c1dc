package main

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"caption-service/internal/bootstrap"
	"caption-service/internal/config"
	"caption-service/internal/core/services"
)

func newDeployCmd(cfg *config.Config) *cobra.Command {
	var (
		eventPath string
		requestID string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Register the newest bundle and repoint the endpoint at it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readEvent(cmd, eventPath)
			if err != nil {
				return err
			}
			if requestID == "" {
				requestID = uuid.New().String()
			}

			svc, closeLedger, err := bootstrap.DeployService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeLedger()

			if dryRun {
				plan, err := svc.Plan(cmd.Context(), requestID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), plan)
			}

			result, err := svc.Deploy(cmd.Context(), services.DeployRequest{
				RequestID: requestID,
				Payload:   payload,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "", "trigger payload file, - for stdin")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request id used for naming (default random)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the plan without calling the platform")
	return cmd
}

func newTriggerCmd(cfg *config.Config) *cobra.Command {
	var eventPath string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Start one execution of PIPELINE_NAME",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readEvent(cmd, eventPath)
			if err != nil {
				return err
			}
			if len(payload) == 0 {
				payload = []byte("{}")
			}

			svc, err := bootstrap.PipelineService(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			result, err := svc.Trigger(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&eventPath, "event", "", "event payload file, - for stdin")
	return cmd
}
