package main

import (
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mindtrack-backend/internal/config"
	"mindtrack-backend/utilities"
)

const version = "1.0.0"

var configPath string

func main() {
	defer utilities.SyncLogger()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mindtrack",
		Short:         "MindTrack digital wellness API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.xml", "path to the XML configuration file")
	root.AddCommand(newServeCmd(), newScoreCmd(), newMigrateCmd())
	return root
}

// loadConfig reads the XML configuration and starts the file logger.
func loadConfig() (*config.APIConfig, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := utilities.InitLogger(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}
	utilities.ConfigureTokens(cfg.Authentication)
	return cfg, nil
}

func printStartUpBanner() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	myFigure := figure.NewFigure("MINDTRACK", "", true)
	myFigure.Print()

	fmt.Println("======================================================")
	fmt.Printf("MINDTRACK API (v%s)\n\n", version)
}
