package main

import (
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"caption-service/internal/bundle"
	"caption-service/internal/core/domain"
)

func newPackageCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "package <model-dir>",
		Short: "Bundle model_state.bin and model_traced.bin into model.tar.gz",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			if out == "" {
				out = filepath.Join(dir, domain.BundleFileName)
			}
			err := bundle.PackFile(cmd.Context(), out, []bundle.Member{
				{Name: domain.StateFileName, Path: filepath.Join(dir, domain.StateFileName)},
				{Name: domain.GraphFileName, Path: filepath.Join(dir, domain.GraphFileName)},
			})
			if err != nil {
				return err
			}
			log.WithField("bundle", out).Info("bundle written")
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "bundle path (default <model-dir>/model.tar.gz)")
	return cmd
}

func newUnpackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpack <bundle> <dest-dir>",
		Short: "Extract a bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := bundle.UnpackFile(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
