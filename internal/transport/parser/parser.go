package parser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxBytes bounds the raw document size read from a source.
const DefaultMaxBytes = 10 << 20

// Parser resolves file and http(s) source URIs to normalized plain text.
// Markdown sources are stripped of structural markup so the chunker sees
// prose; the first level-1 heading becomes the document title.
type Parser struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

// New creates a source parser. client nil selects a default with a timeout.
func New(client *http.Client, maxBytes int64, logger *zap.Logger) *Parser {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Parser{client: client, maxBytes: maxBytes, logger: logger}
}

// Parse implements the ingestion parser contract.
func (p *Parser) Parse(ctx context.Context, sourceURI string) (string, string, error) {
	raw, err := p.fetch(ctx, sourceURI)
	if err != nil {
		return "", "", err
	}

	text, title := normalize(string(raw))
	if text == "" {
		p.logger.Debug("Source parsed to empty text", zap.String("source_uri", sourceURI))
	}
	return text, title, nil
}

func (p *Parser) fetch(ctx context.Context, sourceURI string) ([]byte, error) {
	u, err := url.Parse(sourceURI)
	if err != nil {
		return nil, fmt.Errorf("parse uri: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return p.fetchHTTP(ctx, sourceURI)
	case "file":
		return p.readFile(u.Path)
	case "":
		// Bare path.
		return p.readFile(sourceURI)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (p *Parser) fetchHTTP(ctx context.Context, sourceURI string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURI, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch source: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source body: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", p.maxBytes)
	}
	return data, nil
}

func (p *Parser) readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.Size() > p.maxBytes {
		return nil, fmt.Errorf("source exceeds %d bytes", p.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return data, nil
}

var (
	linkRe    = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	headingRe = regexp.MustCompile(`^#{1,6}\s+`)
)

// normalize strips light markdown markup and extracts the first level-1
// heading as the title. Code fence markers are dropped, fence contents kept.
func normalize(raw string) (string, string) {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var title string
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		if title == "" && strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
		line = headingRe.ReplaceAllString(line, "")
		line = linkRe.ReplaceAllString(line, "$1")
		line = strings.ReplaceAll(line, "`", "")
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n")), title
}
