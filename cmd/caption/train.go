package main

import (
	"github.com/spf13/cobra"

	"caption-service/internal/bootstrap"
	"caption-service/internal/config"
	"caption-service/internal/core/services"
)

func newTrainCmd(cfg *config.Config) *cobra.Command {
	var (
		epochs int
		seed   uint64
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fine-tune the classifier on SM_CHANNEL_TRAIN and write the bundle to SM_MODEL_DIR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			trainCfg := bootstrap.TrainConfig(cfg)
			if cmd.Flags().Changed("epochs") {
				trainCfg.Epochs = epochs
			}
			if cmd.Flags().Changed("seed") {
				trainCfg.Seed = seed
			}
			if err := trainCfg.Validate(); err != nil {
				return err
			}

			result, err := services.NewTrainingService(trainCfg).Run(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().IntVar(&epochs, "epochs", 1, "number of passes over the dataset (defaults TRAIN_EPOCHS)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "shuffle seed, 0 for time based (defaults TRAIN_SEED)")
	return cmd
}
