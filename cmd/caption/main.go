package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"caption-service/internal/bootstrap"
	"caption-service/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfg *config.Config

	root := &cobra.Command{
		Use:           "caption",
		Short:         "Train, package, deploy and serve the image classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			*cfg = *loaded
			bootstrap.InitLogger(cfg.Logger)
			return nil
		},
	}
	cfg = &config.Config{}

	root.AddCommand(
		newTrainCmd(cfg),
		newPackageCmd(),
		newUnpackCmd(),
		newDeployCmd(cfg),
		newTriggerCmd(cfg),
		newServeCmd(cfg),
		newControlCmd(cfg),
		newLabelCmd(cfg),
	)
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readEvent reads a trigger payload from path, "-" for stdin, or returns an
// empty payload when path is blank.
func readEvent(cmd *cobra.Command, path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return io.ReadAll(cmd.InOrStdin())
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}
		return b, nil
	}
}
