// Package cli implements the metastamp command-line interface.
//
// The CLI is a thin harness over pkg/pipeline: commands decode a
// workflow file, assemble the rule table and hash resolver from flags
// and the config file, and delegate to the pipeline. All commands
// support --verbose (-v) for debug-level logging.
//
// # Commands
//
//   - capture: extract the parameter block from a workflow
//   - trace: show or render the traced upstream subgraph
//   - rules: list the merged capture rule table
//   - hash: resolve resource digests and manage sidecar files
package cli

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/metastamp/metastamp/pkg/buildinfo"
	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/hashes"
	"github.com/metastamp/metastamp/pkg/rules"
)

// appName is the application name used for directories and display.
const appName = "metastamp"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands
// registered. The config file is loaded before any command runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Metastamp captures generation parameters from workflow graphs",
		Long:         `Metastamp traces node-graph image-generation workflows upstream from the save node, captures the generation parameters that produced an image, and serializes them as the parameter text block image tools and model-sharing sites understand.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default "+defaultConfigPath()+")")

	root.AddCommand(c.captureCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.rulesCommand())
	root.AddCommand(c.hashCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig reads the config file into c.Config. A missing default
// file is fine; a missing or malformed explicit --config is an error.
func (c *CLI) loadConfig() error {
	path := c.configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		if explicit {
			return err
		}
		c.Logger.Warn("ignoring unreadable config file", "path", path, "err", err)
		return nil
	}
	c.Config = cfg
	return nil
}

// buildTable merges the builtin rules with the config file's rule files
// and any extra files from flags, in that order. Later files win.
func (c *CLI) buildTable(extra []string) (rules.Table, error) {
	tables := []rules.Table{rules.Builtin()}
	files := append(append([]string{}, c.Config.RuleFiles...), extra...)
	for _, path := range files {
		t, err := rules.FromTOML(path)
		if err != nil {
			return nil, err
		}
		c.Logger.Debug("loaded rule file", "path", path, "classes", len(t))
		tables = append(tables, t)
	}
	return rules.Merge(tables...), nil
}

// newLocator builds the resource locator from the models directory and
// per-kind extra roots. Roots are "kind=dir" specs; the config file's
// roots apply first, flag roots after.
func (c *CLI) newLocator(modelsDir string, roots []string) (*hashes.DirLocator, error) {
	dir := modelsDir
	if dir == "" {
		dir = c.Config.ModelsDir
	}

	var loc *hashes.DirLocator
	if dir != "" {
		loc = hashes.NewDirLocator(dir)
	} else {
		loc = &hashes.DirLocator{Roots: make(map[hashes.Kind][]string)}
	}

	for kind, dirs := range c.Config.ModelRoots {
		k, err := parseKind(kind)
		if err != nil {
			return nil, err
		}
		for _, d := range dirs {
			loc.AddRoot(k, d)
		}
	}
	for _, spec := range roots {
		kind, d, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "bad root %q, want kind=dir", spec)
		}
		k, err := parseKind(kind)
		if err != nil {
			return nil, err
		}
		loc.AddRoot(k, d)
	}
	return loc, nil
}

// parseKind validates a resource kind spelling from flags or config.
func parseKind(s string) (hashes.Kind, error) {
	k := hashes.Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range hashes.Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown resource kind %q (want one of %s)", s, kindList())
}

func kindList() string {
	kinds := hashes.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
