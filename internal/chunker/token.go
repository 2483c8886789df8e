package chunker

import (
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// DefaultEncoding is the tiktoken encoding used for token counting.
const DefaultEncoding = "cl100k_base"

// TokenCounter measures text size in model tokens.
type TokenCounter interface {
	Count(text string) int
}

// NewTokenCounter returns a tiktoken-backed counter for the given encoding.
// When the encoding data cannot be loaded (offline environments), it falls
// back to a rune-based estimator and logs a warning once.
func NewTokenCounter(encoding string, logger *zap.Logger) TokenCounter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		logger.Warn("tiktoken encoding unavailable, using estimator",
			zap.String("encoding", encoding),
			zap.Error(err),
		)
		return estimatorCounter{}
	}
	return &tiktokenCounter{enc: enc}
}

type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

func (c *tiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// estimatorCounter approximates token counts without encoding data:
// CJK runes count as one token each, everything else as one token per
// four runes.
type estimatorCounter struct{}

func (estimatorCounter) Count(text string) int {
	var cjk, other int
	for _, r := range text {
		if unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
			unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r) {
			cjk++
		} else {
			other++
		}
	}
	count := cjk + (other+3)/4
	if count == 0 && len(text) > 0 {
		count = 1
	}
	return count
}
