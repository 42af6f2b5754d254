package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/version"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	cfgFile string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "kb",
		Short: "Local multimodal knowledge base for papers and images",
		Long: `kb indexes PDF papers and images into a local vector store, files them
into topic folders, and answers questions about them.

Papers are searched by their text; images are searched both by a generated
description and by their visual content.`,
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				log.SetLevel(log.DebugLevel)
				log.Debug("verbose logging enabled")
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file path (default {data_dir}/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(
		newAddPaperCmd(opts),
		newAddImageCmd(opts),
		newBatchIngestCmd(opts),
		newSearchPaperCmd(opts),
		newListPapersCmd(opts),
		newSearchImageCmd(opts),
		newAskImageCmd(opts),
		newStatsCmd(opts),
		newWatchCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			info := version.GetBuildInfo()
			fmt.Fprintf(out, "kb %s\n", version.Full())
			if info.GitCommit != "unknown" {
				fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
			}
			if info.BuildDate != "unknown" {
				fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
			}
			fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
			return nil
		},
	}
}

func main() {
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
