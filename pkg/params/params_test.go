package params

import (
	"strings"
	"testing"
)

func TestBlockSetKeepsInsertionOrder(t *testing.T) {
	b := NewBlock()
	b.Set("Steps", "20")
	b.Set("Sampler", "Euler")
	b.Set("Seed", "42")

	want := []string{"Steps", "Sampler", "Seed"}
	got := b.Keys()
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBlockSetOverwriteKeepsPosition(t *testing.T) {
	b := NewBlock()
	b.Set("Steps", "20")
	b.Set("Sampler", "Euler")
	b.Set("Steps", "30")

	if got := b.Keys()[0]; got != "Steps" {
		t.Errorf("Keys()[0] = %q, want %q", got, "Steps")
	}
	if v, _ := b.Get("Steps"); v != "30" {
		t.Errorf("Get(Steps) = %q, want %q", v, "30")
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}

func TestBlockSetDropsEmptyValue(t *testing.T) {
	b := NewBlock()
	b.Set("Steps", "")
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0", b.Len())
	}
	if _, ok := b.Get("Steps"); ok {
		t.Error("Get(Steps) found a dropped key")
	}
}

func TestBlockDelete(t *testing.T) {
	b := NewBlock()
	b.Set("Steps", "20")
	b.Set("Seed", "42")
	b.Delete("Steps")

	if _, ok := b.Get("Steps"); ok {
		t.Error("Get(Steps) found a deleted key")
	}
	if got := b.Keys(); len(got) != 1 || got[0] != "Seed" {
		t.Errorf("Keys() = %v, want [Seed]", got)
	}
}

func TestBlockRenderSingleLine(t *testing.T) {
	b := NewBlock()
	b.Positive = "a castle"
	b.Negative = "blurry"
	b.Set("Steps", "20")
	b.Set("Seed", "42")

	want := "a castle\nNegative prompt: blurry\nSteps: 20, Seed: 42"
	if got := b.Render(false); got != want {
		t.Errorf("Render(false) = %q, want %q", got, want)
	}
}

func TestBlockRenderMultiline(t *testing.T) {
	b := NewBlock()
	b.Positive = "a castle"
	b.Set("Steps", "20")
	b.Set("Seed", "42")

	want := "a castle\nNegative prompt: \nSteps: 20\nSeed: 42"
	if got := b.Render(true); got != want {
		t.Errorf("Render(true) = %q, want %q", got, want)
	}
}

func TestBlockRenderEmptyNegativeLine(t *testing.T) {
	b := NewBlock()
	b.Positive = "a castle"
	b.Set("Steps", "20")

	want := "a castle\nNegative prompt: \nSteps: 20"
	if got := b.Render(false); got != want {
		t.Errorf("Render(false) = %q, want %q", got, want)
	}
}

func TestBlockRenderNegativeOnly(t *testing.T) {
	b := NewBlock()
	b.Negative = "blurry"
	b.Set("Steps", "20")

	want := "Negative prompt: blurry\nSteps: 20"
	if got := b.Render(false); got != want {
		t.Errorf("Render(false) = %q, want %q", got, want)
	}
}

func TestBlockRenderNoPrompts(t *testing.T) {
	b := NewBlock()
	b.Set("Steps", "20")

	got := b.Render(false)
	if strings.Contains(got, "Negative prompt") {
		t.Errorf("Render(false) = %q, want no negative line without prompts", got)
	}
	if got != "Steps: 20" {
		t.Errorf("Render(false) = %q, want %q", got, "Steps: 20")
	}
}

func TestBlockRenderCollapsesBlankLines(t *testing.T) {
	b := NewBlock()
	b.Positive = "line one\n\nline two\n"
	b.Set("Steps", "20")

	want := "line one\nline two\nNegative prompt: \nSteps: 20"
	if got := b.Render(false); got != want {
		t.Errorf("Render(false) = %q, want %q", got, want)
	}
}

func TestBlockRenderNoTrailingNewline(t *testing.T) {
	b := NewBlock()
	b.Positive = "a castle"
	b.Set("Steps", "20")

	if got := b.Render(false); strings.HasSuffix(got, "\n") {
		t.Errorf("Render(false) = %q, want no trailing newline", got)
	}
}

func TestWithDefaultsVersion(t *testing.T) {
	opts := Options{}.WithDefaults()
	if opts.Version == "" {
		t.Error("WithDefaults() left Version empty")
	}

	opts = Options{Version: "v9.9.9"}.WithDefaults()
	if opts.Version != "v9.9.9" {
		t.Errorf("WithDefaults() Version = %q, want %q", opts.Version, "v9.9.9")
	}
}

func TestWithDefaultsLoraSummaryEnv(t *testing.T) {
	t.Setenv(EnvNoLoraSummary, "")
	opts := Options{}.WithDefaults()
	if opts.LoraSummary != LoraSummaryOn {
		t.Errorf("LoraSummary = %v, want on with env unset", opts.LoraSummary)
	}

	t.Setenv(EnvNoLoraSummary, "1")
	opts = Options{}.WithDefaults()
	if opts.LoraSummary != LoraSummaryOff {
		t.Errorf("LoraSummary = %v, want off with env set", opts.LoraSummary)
	}

	// Explicit choice beats the environment.
	opts = Options{LoraSummary: LoraSummaryOn}.WithDefaults()
	if opts.LoraSummary != LoraSummaryOn {
		t.Errorf("LoraSummary = %v, want explicit on to survive env", opts.LoraSummary)
	}
}
