package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/render"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/retrieval"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

func newSearchPaperCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "search_paper <query>",
		Aliases: []string{"search-paper"},
		Short:   "Answer a question from the indexed papers",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p := render.New(cmd.OutOrStdout())
			ans, err := a.engine().SearchPapers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				p.Error("search failed", err)
				if ans == nil {
					return nil
				}
			}
			p.Answer(ans)
			return nil
		},
	}
}

func newListPapersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list_papers <topic>",
		Aliases: []string{"list-papers"},
		Short:   "List the papers about a topic, reranked by relevance",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p := render.New(cmd.OutOrStdout())
			list, err := a.engine().ListPapers(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				p.Error("listing failed", err)
				return nil
			}
			p.PaperList(list)
			return nil
		},
	}
}

func newSearchImageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "search_image <query>",
		Aliases: []string{"search-image"},
		Short:   "Find images by description and by visual similarity",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			render.New(cmd.OutOrStdout()).ImageSearch(a.engine().SearchImages(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func newAskImageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "ask_image <description> <question>",
		Aliases: []string{"ask-image"},
		Short:   "Locate an image by description and ask a question about it",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			p := render.New(cmd.OutOrStdout())
			ans, err := a.engine().AskImage(cmd.Context(), args[0], args[1])
			if errors.Is(err, retrieval.ErrImageNotFound) {
				p.Error("no matching image", err)
				return nil
			}
			if err != nil {
				p.Error("question failed", err)
				return nil
			}
			p.ImageAnswer(ans)
			return nil
		},
	}
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many entries each collection holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			counts := make([]render.CollectionCount, 0, len(vectorstore.Collections()))
			for _, c := range vectorstore.Collections() {
				n, err := store.Count(cmd.Context(), c)
				if err != nil {
					return err
				}
				counts = append(counts, render.CollectionCount{Collection: c, Count: n})
			}
			render.New(cmd.OutOrStdout()).Stats(store.Path(), counts)
			return nil
		},
	}
}
