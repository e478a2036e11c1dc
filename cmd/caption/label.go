package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"caption-service/internal/config"
	"caption-service/internal/core/domain"
)

func newLabelCmd(cfg *config.Config) *cobra.Command {
	var labelsPath string

	cmd := &cobra.Command{
		Use:   "label <class-index>",
		Short: "Print the class name for a predicted index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("parse class index: %w", err)
			}
			if labelsPath == "" {
				labelsPath = cfg.Serve.LabelsPath
			}
			labels, err := domain.LoadLabels(labelsPath)
			if err != nil {
				return err
			}
			name, err := labels.Name(idx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	cmd.Flags().StringVar(&labelsPath, "labels", "", "label file, one name per line (defaults LABELS_PATH)")
	return cmd
}
