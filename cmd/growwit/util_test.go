package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vinayprograms/growwit/internal/config"
)

func TestParseRetryConfig(t *testing.T) {
	cfg := parseRetryConfig(3, "45s")
	if cfg.MaxRetries != 3 || cfg.MaxBackoff != 45*time.Second {
		t.Errorf("got %+v", cfg)
	}
	if cfg := parseRetryConfig(0, "soon"); cfg.MaxBackoff != 0 {
		t.Errorf("invalid backoff should be ignored, got %v", cfg.MaxBackoff)
	}
}

func TestPipelineConfig(t *testing.T) {
	cfg := config.New()
	cfg.Debug = true
	cfg.Pipeline.Finalize = "agent"
	p := pipelineConfig(cfg)
	if !p.Cadence || p.Finalize != "agent" || !p.Debug || p.MaxCraftPosts != 20 {
		t.Errorf("got %+v", p)
	}
}

func TestStyledWriter_HoldsPartialLines(t *testing.T) {
	var out bytes.Buffer
	w := newStyledWriter(&out)
	w.Write([]byte("plain te"))
	if out.Len() != 0 {
		t.Fatalf("partial line written early: %q", out.String())
	}
	w.Write([]byte("xt\n[STEP:2]\n### 📍 TARGETS\nta"))
	w.Flush()

	got := out.String()
	if !strings.HasPrefix(got, "plain text\n") {
		t.Errorf("output = %q", got)
	}
	if strings.Contains(got, "[STEP:2]") || !strings.Contains(got, "step 2/5") {
		t.Errorf("step marker not replaced: %q", got)
	}
	if strings.Contains(got, "###") || !strings.Contains(got, "📍 TARGETS") {
		t.Errorf("heading not styled: %q", got)
	}
	if !strings.HasSuffix(got, "ta") {
		t.Errorf("trailing partial line lost: %q", got)
	}
}
