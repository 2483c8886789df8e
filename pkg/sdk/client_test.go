package ragdex

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type stubEmbedder struct {
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	return EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

func TestNew_RequiresAddr(t *testing.T) {
	_, err := New(context.Background(), WithEmbedder(&stubEmbedder{}))
	if err == nil || !strings.Contains(err.Error(), "database address required") {
		t.Fatalf("err = %v", err)
	}
}

func TestNew_RequiresEmbedder(t *testing.T) {
	_, err := New(context.Background(), WithRedis("localhost:6379", ""))
	if err == nil || !strings.Contains(err.Error(), "embedder required") {
		t.Fatalf("err = %v", err)
	}
}

func TestEmbedderAdapter_Embed(t *testing.T) {
	stub := &stubEmbedder{}
	a := &embedderAdapter{inner: stub}

	res, err := a.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embedding) != 1 || res.TotalTokens != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestEmbedderAdapter_BatchFallsBackToPerText(t *testing.T) {
	stub := &stubEmbedder{}
	a := &embedderAdapter{inner: stub}

	res, err := a.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.calls != 3 {
		t.Errorf("calls = %d, want 3", stub.calls)
	}
	if len(res.Embeddings) != 3 || res.Embeddings[2][0] != 3 {
		t.Errorf("embeddings = %v", res.Embeddings)
	}
}

type batchStubEmbedder struct {
	stubEmbedder
	batchCalls int
}

func (s *batchStubEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func TestEmbedderAdapter_UsesNativeBatch(t *testing.T) {
	stub := &batchStubEmbedder{}
	a := &embedderAdapter{inner: stub}

	res, err := a.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.batchCalls != 1 || stub.calls != 0 {
		t.Errorf("batchCalls = %d, per-text calls = %d", stub.batchCalls, stub.calls)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("embeddings = %v", res.Embeddings)
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var o *observer
	// Must not panic with no observer configured.
	o.observe("ping", time.Now(), errors.New("ignored"))
}
