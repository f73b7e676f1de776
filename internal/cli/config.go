package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/params"
)

// Config is the optional TOML config file. Every field has a flag
// counterpart; flags win over file values.
//
//	civitai = true
//	models_dir = "/srv/comfy/models"
//	rule_files = ["~/.config/metastamp/extra.toml"]
//
//	[model_roots]
//	lora = ["/mnt/packs/loras"]
type Config struct {
	// Civitai maps sampler identifiers to site display names.
	Civitai bool `toml:"civitai"`
	// Multiline renders one key per line.
	Multiline bool `toml:"multiline"`
	// GuidanceAsCFG folds distilled guidance into the CFG scale key.
	GuidanceAsCFG bool `toml:"guidance_as_cfg"`
	// LoraSummary is "auto", "on", or "off".
	LoraSummary string `toml:"lora_summary"`
	// HashDetail is "full" or "names".
	HashDetail string `toml:"hash_detail"`
	// HashLog is the lookup logging level: "silent", "filename", "path",
	// "detailed", or "debug".
	HashLog string `toml:"hash_log"`
	// Version overrides the Version value in the parameter block.
	Version string `toml:"version"`

	// ModelsDir is the root of the conventional models/ layout.
	ModelsDir string `toml:"models_dir"`
	// ModelRoots adds extra directories per resource kind.
	ModelRoots map[string][]string `toml:"model_roots"`
	// RuleFiles are extra rule tables merged over the builtin rules.
	RuleFiles []string `toml:"rule_files"`
}

// LoadConfig reads a config file. A missing file yields the zero config
// without error; a malformed file is an error.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config file %s", path)
	}
	return cfg, nil
}

// defaultConfigPath is ~/.config/metastamp/config.toml, honoring
// XDG_CONFIG_HOME.
func defaultConfigPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("."+appName, "config.toml")
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// parseLoraSummary converts a config or flag spelling to the mode.
func parseLoraSummary(s string) (params.LoraSummaryMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return params.LoraSummaryAuto, nil
	case "on", "always":
		return params.LoraSummaryOn, nil
	case "off", "never":
		return params.LoraSummaryOff, nil
	}
	return params.LoraSummaryAuto, errors.New(errors.ErrCodeInvalidConfig, "unknown lora_summary %q (want auto, on, or off)", s)
}

// parseHashDetail converts a config or flag spelling to the detail level.
func parseHashDetail(s string) (params.HashDetail, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return params.HashesFull, nil
	case "names", "names-only":
		return params.HashesNamesOnly, nil
	}
	return params.HashesFull, errors.New(errors.ErrCodeInvalidConfig, "unknown hash_detail %q (want full or names)", s)
}
