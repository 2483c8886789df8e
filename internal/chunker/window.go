package chunker

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragdex/internal/domain/chunk"
)

// WindowChunker cuts fixed token windows with overlap, ignoring paragraph
// structure. Predictable sizes, no semantic coherence; selectable per
// ingestion call, never the default.
type WindowChunker struct {
	windowTokens  int
	overlapTokens int
	counter       TokenCounter
}

// NewWindow creates a windowed chunker. Overlap must be smaller than the
// window or the cursor could not advance.
func NewWindow(windowTokens, overlapTokens int, counter TokenCounter) (*WindowChunker, error) {
	if windowTokens <= 0 {
		return nil, fmt.Errorf("window tokens must be positive, got %d", windowTokens)
	}
	if overlapTokens < 0 || overlapTokens >= windowTokens {
		return nil, fmt.Errorf("overlap (%d) must be in [0, window)", overlapTokens)
	}
	if counter == nil {
		return nil, fmt.Errorf("token counter is required")
	}
	return &WindowChunker{windowTokens: windowTokens, overlapTokens: overlapTokens, counter: counter}, nil
}

// Chunk implements Chunker.
func (c *WindowChunker) Chunk(text string) []chunk.Draft {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	wordTokens := make([]int, len(words))
	for i, w := range words {
		wordTokens[i] = c.counter.Count(w)
	}

	var drafts []chunk.Draft
	start := 0
	for start < len(words) {
		end := start
		tokens := 0
		for end < len(words) {
			if tokens > 0 && tokens+wordTokens[end] > c.windowTokens {
				break
			}
			tokens += wordTokens[end]
			end++
		}

		content := strings.Join(words[start:end], " ")
		drafts = append(drafts, chunk.Draft{Content: content, TokenCount: c.counter.Count(content)})

		if end == len(words) {
			break
		}

		// Step back overlapTokens worth of words for the next window.
		next := end
		back := 0
		for next > start+1 && back < c.overlapTokens {
			next--
			back += wordTokens[next]
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return drafts
}
