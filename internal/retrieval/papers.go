package retrieval

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Bella2013quq/Local-Multimodal-AI-Agent/internal/vectorstore"
)

// Candidate is one paper file found by a topic query.
type Candidate struct {
	Filename     string
	Path         string
	Category     string
	BestDistance float32
	Hits         int
}

// Relevance converts the best distance to a percentage, floored at zero.
func (c Candidate) Relevance() float64 {
	return max(0, 1-float64(c.BestDistance)) * 100
}

// Aggregate groups chunk matches by file name. The first match seen for a
// file provides its path and category; the best distance is the minimum over
// its chunks. Candidates are ordered by best distance, ties by first
// appearance.
func Aggregate(matches []vectorstore.Match) []Candidate {
	index := make(map[string]int)
	var out []Candidate
	for _, m := range matches {
		name := filepath.Base(m.Metadata["source"])
		if name == "." || name == "" {
			name = "Unknown"
		}
		if i, ok := index[name]; ok {
			out[i].Hits++
			if m.Distance < out[i].BestDistance {
				out[i].BestDistance = m.Distance
			}
			continue
		}
		index[name] = len(out)
		out = append(out, Candidate{
			Filename:     name,
			Path:         m.Metadata["path"],
			Category:     m.Metadata["category"],
			BestDistance: m.Distance,
			Hits:         1,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BestDistance < out[j].BestDistance
	})
	return out
}

// PaperList is the outcome of a topic query.
type PaperList struct {
	Topic      string
	Candidates []Candidate
	// Ranking is the model's relevance-tiered explanation. Empty when the
	// rerank call failed, in which case RerankErr is set.
	Ranking   string
	RerankErr error
}

// Output returns the reranked explanation, or the candidate file names when
// reranking was unavailable.
func (l *PaperList) Output() string {
	if l.RerankErr == nil && l.Ranking != "" {
		return l.Ranking
	}
	names := make([]string, len(l.Candidates))
	for i, c := range l.Candidates {
		names[i] = c.Filename
	}
	return strings.Join(names, "\n")
}

// ListPapers finds the paper files most related to topic and asks the model
// to rerank them by real topical relevance.
func (e *Engine) ListPapers(ctx context.Context, topic string) (*PaperList, error) {
	vec, err := e.text.EmbedText(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("list papers: embed topic: %w", err)
	}
	matches, err := e.store.Query(ctx, vectorstore.PaperChunks, vec, e.cfg.CandidatePool)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}

	list := &PaperList{Topic: topic, Candidates: Aggregate(matches)}
	if len(list.Candidates) == 0 {
		return list, nil
	}

	ranking, err := e.gen.Generate(ctx, RerankPrompt(topic, list.Candidates))
	if err == nil && strings.TrimSpace(ranking) == "" {
		err = fmt.Errorf("empty rerank answer")
	}
	if err != nil {
		log.Warn("rerank failed, falling back to vector order", "topic", topic, "err", err)
		list.RerankErr = err
		return list, nil
	}
	list.Ranking = strings.TrimSpace(ranking)
	return list, nil
}

// RerankPrompt asks the model to judge each candidate's real relevance.
func RerankPrompt(topic string, candidates []Candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are helping a researcher find papers about: %q.\n", topic)
	sb.WriteString("A vector search returned the following candidate files:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s (category: %s)\n", i+1, c.Filename, c.Category)
	}
	sb.WriteString("\nJudge which files are truly about the topic. Ignore superficial keyword " +
		"matches in file names. Answer with the files ordered from most to least relevant, " +
		"grouped into tiers (highly relevant, possibly relevant, not relevant), " +
		"with one short sentence explaining each placement.")
	return sb.String()
}

// Reference is one paper chunk used to answer a question.
type Reference struct {
	Source   string
	Page     string
	Text     string
	Distance float32
}

// Answer is the outcome of a paper question.
type Answer struct {
	Query      string
	References []Reference
	Text       string
}

// SearchPapers answers query from the closest paper chunks. With no stored
// chunks it returns an Answer without references and makes no model call.
func (e *Engine) SearchPapers(ctx context.Context, query string) (*Answer, error) {
	vec, err := e.text.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search papers: embed query: %w", err)
	}
	matches, err := e.store.Query(ctx, vectorstore.PaperChunks, vec, e.cfg.SearchTopK)
	if err != nil {
		return nil, fmt.Errorf("search papers: %w", err)
	}

	ans := &Answer{Query: query}
	if len(matches) == 0 {
		return ans, nil
	}
	for _, m := range matches {
		ans.References = append(ans.References, Reference{
			Source:   m.Metadata["source"],
			Page:     m.Metadata["page"],
			Text:     m.Document,
			Distance: m.Distance,
		})
	}

	text, err := e.gen.Generate(ctx, QAPrompt(query, ans.References))
	if err != nil {
		return ans, fmt.Errorf("search papers: generate answer: %w", err)
	}
	ans.Text = strings.TrimSpace(text)
	return ans, nil
}

// QAPrompt asks the model to answer from the reference chunks.
func QAPrompt(query string, refs []Reference) string {
	texts := make([]string, len(refs))
	for i, r := range refs {
		texts[i] = r.Text
	}
	return fmt.Sprintf("You are an academic assistant. Answer the user's question based on the "+
		"reference material below: %s\n\nReference material:\n%s", query, strings.Join(texts, "\n\n"))
}
