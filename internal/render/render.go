package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/ingest"
	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/retrieval"
)

// Printer writes styled output to w.
type Printer struct {
	w io.Writer
	s Styles
}

// New creates a Printer whose color profile is detected from w.
func New(w io.Writer) *Printer {
	return &Printer{w: w, s: NewStyles(lipgloss.NewRenderer(w))}
}

func (p *Printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

// Error prints a user-facing error.
func (p *Printer) Error(msg string, err error) {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	p.line("%s", p.s.Error.Render("Error: "+msg))
}

// Ingest prints the outcome of one file.
func (p *Printer) Ingest(res *ingest.Result) {
	switch res.Status {
	case ingest.StatusPersisted:
		detail := fmt.Sprintf("%d chunks", res.Chunks)
		if res.Kind == ingest.KindImage {
			detail = "visual + description"
		}
		p.line("%s %s -> %s (%s)",
			p.s.Success.Render("added"), res.Source, p.s.Label.Render(res.Category), detail)
		p.line("  %s", p.s.Path.Render(res.Path))
		if res.Description != "" {
			p.line("  %s", p.s.Muted.Render(res.Description))
		}
		if res.ClassifyErr != nil {
			p.line("  %s", p.s.Warning.Render("classification failed: "+res.ClassifyErr.Error()))
		}
		if res.RelocateErr != nil {
			p.line("  %s", p.s.Warning.Render("file left in place: "+res.RelocateErr.Error()))
		}
	case ingest.StatusSkipped:
		p.line("%s %s (already in the knowledge base)", p.s.Muted.Render("skipped"), res.Source)
	case ingest.StatusAborted:
		p.line("%s %s after %s: %v", p.s.Error.Render("failed"), res.Source, res.Stage, res.Err)
	default:
		p.line("%s %s", res.Status, res.Source)
	}
}

// Batch prints the summary of a folder scan.
func (p *Printer) Batch(br *ingest.BatchResult) {
	p.line("%s", p.s.Title.Render("Batch ingest"))
	p.line("%s %s", p.s.Label.Render("Folder:"), br.Folder)
	p.line("PDF: %d, IMG: %d", br.Papers, br.Images)
	p.line("%s %d  %s %d  %s %d  %s %d",
		p.s.Success.Render("added"), br.Persisted,
		p.s.Muted.Render("skipped"), br.Skipped,
		p.s.Error.Render("failed"), br.Aborted,
		p.s.Warning.Render("degraded"), br.Degraded)
	for _, r := range br.Completed() {
		if r.Status == ingest.StatusAborted {
			p.line("  %s %s: %v", p.s.Error.Render("x"), r.Source, r.Err)
		}
	}
	p.line("%s", p.s.Muted.Render(fmt.Sprintf("run %s in %s", br.RunID, br.Duration.Round(time.Millisecond))))
}

// PaperList prints topic candidates and the reranked explanation.
func (p *Printer) PaperList(list *retrieval.PaperList) {
	p.line("%s", p.s.Title.Render(fmt.Sprintf("Papers about %q", list.Topic)))
	if len(list.Candidates) == 0 {
		p.line("%s", p.s.Muted.Render("No related papers found."))
		return
	}
	for i, c := range list.Candidates {
		pct := c.Relevance()
		p.line("%2d. %s %s [%s]",
			i+1, c.Filename, p.s.relevance(pct).Render(fmt.Sprintf("%.1f%%", pct)), c.Category)
		if c.Path != "" {
			p.line("    %s", p.s.Path.Render(c.Path))
		}
	}
	p.line("")
	if list.RerankErr != nil {
		p.line("%s", p.s.Warning.Render("Reranking unavailable, showing vector order."))
		return
	}
	p.line("%s", p.s.Section.Render("Assessment"))
	p.line("%s", p.s.Answer.Render(list.Output()))
}

// Answer prints a paper question's references and answer.
func (p *Printer) Answer(ans *retrieval.Answer) {
	if len(ans.References) == 0 {
		p.line("%s", p.s.Muted.Render("No relevant papers found."))
		return
	}
	p.line("%s", p.s.Section.Render("References"))
	for i, r := range ans.References {
		p.line("[%d] %s p.%s %s", i+1, r.Source, r.Page, p.s.Muted.Render(snippet(r.Text, 80)))
	}
	p.line("")
	p.line("%s", p.s.Section.Render("Answer"))
	p.line("%s", p.s.Answer.Render(ans.Text))
}

// ImageSearch prints both channels side by side, never merged.
func (p *Printer) ImageSearch(res *retrieval.ImageSearch) {
	p.line("%s", p.s.Title.Render(fmt.Sprintf("Images for %q", res.Query)))
	p.channel("Semantic matches (descriptions)", res.Semantic)
	p.channel("Visual matches (CLIP)", res.Visual)
}

func (p *Printer) channel(title string, ch retrieval.ChannelResult) {
	p.line("%s", p.s.Section.Render(title))
	switch {
	case ch.Err != nil:
		p.line("  %s", p.s.Error.Render(fmt.Sprintf("unavailable: %v", ch.Err)))
	case len(ch.Hits) == 0:
		p.line("  %s", p.s.Muted.Render("no matches"))
	default:
		for i, h := range ch.Hits {
			p.line("  %d. %s %s", i+1, h.Filename, p.s.Muted.Render(fmt.Sprintf("(distance %.3f)", h.Distance)))
			p.line("     %s", p.s.Path.Render(h.Path))
			if h.Description != "" {
				p.line("     %s", snippet(h.Description, 100))
			}
		}
	}
}

// ImageAnswer prints the resolved image and the model's answer.
func (p *Printer) ImageAnswer(ans *retrieval.ImageAnswer) {
	p.line("%s %s %s", p.s.Label.Render("Image:"), ans.Image.Filename,
		p.s.Muted.Render(fmt.Sprintf("(%s channel)", ans.Channel)))
	p.line("  %s", p.s.Path.Render(ans.Image.Path))
	p.line("%s", p.s.Answer.Render(ans.Text))
}

// CollectionCount is one row of the stats table.
type CollectionCount struct {
	Collection string
	Count      int
}

// Stats prints per-collection entry counts.
func (p *Printer) Stats(storePath string, counts []CollectionCount) {
	p.line("%s", p.s.Title.Render("Knowledge base"))
	p.line("%s %s", p.s.Label.Render("Store:"), storePath)
	for _, c := range counts {
		p.line("  %-14s %d", c.Collection, c.Count)
	}
}

// snippet flattens s to one line of at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
