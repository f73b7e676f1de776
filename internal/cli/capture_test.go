package cli

import (
	"testing"

	"github.com/metastamp/metastamp/pkg/encode"
	"github.com/metastamp/metastamp/pkg/params"
)

func TestStageLabel(t *testing.T) {
	tests := []struct {
		stage encode.Stage
		want  string
	}{
		{encode.StageNone, "full"},
		{encode.StageReducedExif, "reduced-exif"},
		{encode.StageMinimal, "minimal"},
		{encode.StageComMarker, "com-marker"},
	}
	for _, tt := range tests {
		if got := stageLabel(tt.stage); got != tt.want {
			t.Errorf("stageLabel(%v) = %q, want %q", tt.stage, got, tt.want)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"a", "b"}, "a"},
		{[]string{"", "b", "c"}, "b"},
		{[]string{"", ""}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := firstNonEmpty(tt.in...); got != tt.want {
			t.Errorf("firstNonEmpty(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParamsOptionsFlagsAndConfig(t *testing.T) {
	c := testCLI()
	c.Config = Config{Civitai: true, Version: "from-config"}

	got, err := c.paramsOptions(&captureOpts{multiline: true, version: "from-flag"})
	if err != nil {
		t.Fatalf("paramsOptions() error = %v", err)
	}
	if !got.Civitai {
		t.Error("Civitai from config not applied")
	}
	if !got.Multiline {
		t.Error("Multiline from flag not applied")
	}
	if got.Version != "from-flag" {
		t.Errorf("Version = %q, want the flag to win over config", got.Version)
	}
}

func TestParamsOptionsNoLoras(t *testing.T) {
	c := testCLI()
	c.Config.LoraSummary = "on"

	got, err := c.paramsOptions(&captureOpts{noLoras: true})
	if err != nil {
		t.Fatalf("paramsOptions() error = %v", err)
	}
	if got.LoraSummary != params.LoraSummaryOff {
		t.Errorf("LoraSummary = %v, want LoraSummaryOff when --no-lora-summary is set", got.LoraSummary)
	}
}

func TestParamsOptionsBadConfig(t *testing.T) {
	c := testCLI()
	c.Config.LoraSummary = "sometimes"

	if _, err := c.paramsOptions(&captureOpts{}); err == nil {
		t.Fatal("paramsOptions() error = nil, want error for bad lora_summary")
	}
}
