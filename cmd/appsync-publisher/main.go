package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		verbose    bool
	)
	root := &cobra.Command{
		Use:           "appsync-publisher",
		Short:         "Run AppSync GraphQL operations as streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level:     level,
				AddSource: true,
			})))
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "appsync.yaml", "Path to the YAML config")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(queryCmd(&configPath))
	root.AddCommand(mutateCmd(&configPath))
	root.AddCommand(uploadCmd(&configPath))
	root.AddCommand(watchCmd(&configPath))
	root.AddCommand(subscribeCmd(&configPath))
	root.AddCommand(clearCacheCmd(&configPath))
	root.AddCommand(versionCmd())
	return root
}
