package chunker

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
)

// Strategy selects a chunking algorithm.
type Strategy string

// Chunking strategy constants.
const (
	// StrategyParagraph accumulates paragraphs up to the token budget
	// (default — preserves semantic coherence).
	StrategyParagraph Strategy = "paragraph"
	// StrategyWindow cuts fixed token windows with overlap, ignoring
	// paragraph structure.
	StrategyWindow Strategy = "window"
)

// IsValid checks if the strategy is supported.
func (s Strategy) IsValid() bool {
	return s == StrategyParagraph || s == StrategyWindow
}

// Chunker splits normalized text into bounded token-sized drafts.
// Empty or whitespace-only input yields zero drafts, never an error.
type Chunker interface {
	Chunk(text string) []chunk.Draft
}

// ParagraphChunker splits on paragraph boundaries and accumulates paragraphs
// into chunks of [minTokens, maxTokens]. A paragraph exceeding maxTokens on
// its own is force-split on a character window. An undersized trailing chunk
// is merged into its predecessor instead of being emitted.
type ParagraphChunker struct {
	minTokens int
	maxTokens int
	counter   TokenCounter
}

// NewParagraph creates a paragraph chunker.
func NewParagraph(minTokens, maxTokens int, counter TokenCounter) (*ParagraphChunker, error) {
	if minTokens <= 0 {
		return nil, fmt.Errorf("min tokens must be positive, got %d", minTokens)
	}
	if maxTokens <= minTokens {
		return nil, fmt.Errorf("max tokens (%d) must exceed min tokens (%d)", maxTokens, minTokens)
	}
	if counter == nil {
		return nil, fmt.Errorf("token counter is required")
	}
	return &ParagraphChunker{minTokens: minTokens, maxTokens: maxTokens, counter: counter}, nil
}

// Chunk implements Chunker.
func (c *ParagraphChunker) Chunk(text string) []chunk.Draft {
	paras := splitParagraphs(text)
	if len(paras) == 0 {
		return nil
	}

	var drafts []chunk.Draft
	var buf []string
	bufTokens := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		content := strings.Join(buf, "\n\n")
		drafts = append(drafts, chunk.Draft{Content: content, TokenCount: c.counter.Count(content)})
		buf = buf[:0]
		bufTokens = 0
	}

	for _, para := range paras {
		pt := c.counter.Count(para)

		if pt > c.maxTokens {
			// Paragraph granularity cannot bound this one.
			flush()
			drafts = append(drafts, c.forceSplit(para)...)
			continue
		}

		if bufTokens > 0 && bufTokens+pt > c.maxTokens {
			flush()
		}
		buf = append(buf, para)
		bufTokens += pt
	}
	flush()

	return c.mergeUndersized(drafts)
}

// mergeUndersized folds drafts below minTokens into their predecessor. The
// trailing draft is always folded; a mid-stream draft only when the merge
// stays within maxTokens.
func (c *ParagraphChunker) mergeUndersized(drafts []chunk.Draft) []chunk.Draft {
	out := make([]chunk.Draft, 0, len(drafts))
	for i, d := range drafts {
		if d.TokenCount >= c.minTokens || len(out) == 0 {
			out = append(out, d)
			continue
		}
		prev := &out[len(out)-1]
		merged := prev.Content + "\n\n" + d.Content
		mergedTokens := c.counter.Count(merged)
		if i == len(drafts)-1 || mergedTokens <= c.maxTokens {
			prev.Content = merged
			prev.TokenCount = mergedTokens
		} else {
			out = append(out, d)
		}
	}
	return out
}

// forceSplit cuts an oversized paragraph into character windows with overlap,
// subdividing any window that still exceeds the token budget (dense scripts).
func (c *ParagraphChunker) forceSplit(para string) []chunk.Draft {
	runes := []rune(para)
	window := c.maxTokens * 3
	overlap := window / 10
	step := window - overlap

	var drafts []chunk.Draft
	for start := 0; start < len(runes); start += step {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		drafts = append(drafts, c.bounded(strings.TrimSpace(string(runes[start:end])))...)
		if end == len(runes) {
			break
		}
	}
	return drafts
}

func (c *ParagraphChunker) bounded(piece string) []chunk.Draft {
	if piece == "" {
		return nil
	}
	n := c.counter.Count(piece)
	if n <= c.maxTokens {
		return []chunk.Draft{{Content: piece, TokenCount: n}}
	}
	runes := []rune(piece)
	mid := len(runes) / 2
	left := c.bounded(strings.TrimSpace(string(runes[:mid])))
	return append(left, c.bounded(strings.TrimSpace(string(runes[mid:])))...)
}

// splitParagraphs splits on blank lines and drops empty paragraphs.
func splitParagraphs(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}
