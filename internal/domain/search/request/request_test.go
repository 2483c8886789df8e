package request

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/ragdex/internal/domain/search/mode"
)

func TestNew_Defaults(t *testing.T) {
	req, err := New("return policy", "", 0, 0, 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Mode() != mode.Hybrid {
		t.Errorf("Mode() = %q, want hybrid", req.Mode())
	}
	if req.Limit() != DefaultLimit {
		t.Errorf("Limit() = %d, want %d", req.Limit(), DefaultLimit)
	}
	if req.Overfetch() != DefaultOverfetch {
		t.Errorf("Overfetch() = %d, want %d", req.Overfetch(), DefaultOverfetch)
	}
	if req.TopK() != DefaultLimit*DefaultOverfetch {
		t.Errorf("TopK() = %d", req.TopK())
	}
	if req.DiversityCap() != 0 {
		t.Errorf("DiversityCap() = %d, want 0", req.DiversityCap())
	}
}

func TestNew_Clamping(t *testing.T) {
	req, err := New("q", mode.Vector, 1000, 100, 3, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Limit() != MaxLimit {
		t.Errorf("Limit() = %d, want %d", req.Limit(), MaxLimit)
	}
	if req.Overfetch() != MaxOverfetch {
		t.Errorf("Overfetch() = %d, want %d", req.Overfetch(), MaxOverfetch)
	}
	if !req.Rerank() {
		t.Error("Rerank() = false, want true")
	}
	if req.DiversityCap() != 3 {
		t.Errorf("DiversityCap() = %d, want 3", req.DiversityCap())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New("", mode.Hybrid, 5, 2, 0, false); err == nil {
		t.Error("expected error for empty query")
	}
	if _, err := New(strings.Repeat("x", MaxQueryLength+1), mode.Hybrid, 5, 2, 0, false); err == nil {
		t.Error("expected error for overlong query")
	}
	if _, err := New("q", "semantic", 5, 2, 0, false); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := New("q", mode.Hybrid, 5, 2, -1, false); err == nil {
		t.Error("expected error for negative diversity cap")
	}
}
