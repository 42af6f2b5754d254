package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/classify"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/ingest"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/render"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/watch"
)

// checkFile prints an error and reports false when path is not a regular
// file. A missing input is a user error, not a command failure.
func checkFile(p *render.Printer, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		p.Error("file not found", err)
		return false
	}
	if info.IsDir() {
		p.Error("expected a file, got a directory: "+path, nil)
		return false
	}
	return true
}

func checkDir(p *render.Printer, path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		p.Error("folder not found", err)
		return false
	}
	if !info.IsDir() {
		p.Error("not a folder: "+path, nil)
		return false
	}
	return true
}

func newAddPaperCmd(opts *rootOptions) *cobra.Command {
	var topics string
	cmd := &cobra.Command{
		Use:     "add_paper <path>",
		Aliases: []string{"add-paper"},
		Short:   "Index a PDF paper and file it under its topic",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := render.New(cmd.OutOrStdout())
			if !checkFile(p, args[0]) {
				return nil
			}
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.pipeline(classify.ParseLabels(topics), nil).AddPaper(cmd.Context(), args[0])
			p.Ingest(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&topics, "topics", "", "comma-separated paper topics (default from config)")
	return cmd
}

func newAddImageCmd(opts *rootOptions) *cobra.Command {
	var topics string
	cmd := &cobra.Command{
		Use:     "add_image <path>",
		Aliases: []string{"add-image"},
		Short:   "Describe, index and file an image",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := render.New(cmd.OutOrStdout())
			if !checkFile(p, args[0]) {
				return nil
			}
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.pipeline(nil, classify.ParseLabels(topics)).AddImage(cmd.Context(), args[0])
			p.Ingest(res)
			return nil
		},
	}
	cmd.Flags().StringVar(&topics, "topics", "", "comma-separated image categories (default from config)")
	return cmd
}

func newBatchIngestCmd(opts *rootOptions) *cobra.Command {
	var (
		topics    string
		imgTopics string
		workers   int
	)
	cmd := &cobra.Command{
		Use:     "batch_ingest <folder>",
		Aliases: []string{"batch-ingest"},
		Short:   "Index every paper and image under a folder",
		Long: `Walks the folder recursively and ingests every PDF and image found.
A file that fails is reported and the batch moves on.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := render.New(cmd.OutOrStdout())
			if !checkDir(p, args[0]) {
				return nil
			}
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			pl := a.pipeline(classify.ParseLabels(topics), classify.ParseLabels(imgTopics))
			br, err := pl.Batch(cmd.Context(), args[0], ingest.BatchOptions{
				Workers:  workers,
				OnResult: p.Ingest,
			})
			if br != nil {
				p.Batch(br)
			}
			if err != nil {
				log.Warn("batch interrupted", "err", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&topics, "topics", "", "comma-separated paper topics (default from config)")
	cmd.Flags().StringVar(&imgTopics, "img_topics", "", "comma-separated image categories (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 1, "files processed concurrently")
	return cmd
}

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		schedule string
		workers  int
	)
	cmd := &cobra.Command{
		Use:   "watch [folder]",
		Short: "Ingest a folder on a schedule until interrupted",
		Long: `Runs batch ingestion of the folder (default: the inbox under the data
directory) on a cron schedule. A tick that fires while the previous run is
still going is skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := render.New(cmd.OutOrStdout())
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			folder := a.cfg.Watch.Folder
			if len(args) == 1 {
				folder = args[0]
			}
			if !checkDir(p, folder) {
				return nil
			}
			if !cmd.Flags().Changed("schedule") {
				schedule = a.cfg.Watch.Schedule
			}
			if !cmd.Flags().Changed("workers") {
				workers = a.cfg.Watch.Workers
			}

			w, err := watch.New(a.pipeline(nil, nil), watch.Config{
				Folder:   folder,
				Schedule: schedule,
				Workers:  workers,
				OnRun: func(br *ingest.BatchResult) {
					if br.Persisted+br.Aborted > 0 {
						p.Batch(br)
					}
				},
			})
			if err != nil {
				return err
			}
			w.Start()
			<-cmd.Context().Done()
			w.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", "cron schedule (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 1, "files processed concurrently per run")
	return cmd
}
