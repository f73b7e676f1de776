package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/hashes"
)

// hashOpts holds the command-line flags for the hash command.
type hashOpts struct {
	kind      string
	modelsDir string
	roots     []string
	noSidecar bool
	hashLog   string
	full      bool
}

// hashCommand creates the hash command for resolving a single resource
// digest, with a clear subcommand for sidecar maintenance.
func (c *CLI) hashCommand() *cobra.Command {
	o := &hashOpts{}

	cmd := &cobra.Command{
		Use:   "hash [name]",
		Short: "Resolve a resource name to its digest",
		Long: `Resolve a resource name to its digest.

Locates the named resource under the model roots, hashes the file, and
prints the short digest that would appear in a captured parameter
block. The digest is cached in a .sha256 sidecar next to the file
unless --no-sidecar is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHash(args[0], o)
		},
	}

	cmd.Flags().StringVar(&o.kind, "kind", "checkpoint", "resource kind: "+kindList())
	cmd.Flags().StringVar(&o.modelsDir, "models-dir", "", "models directory for hash resolution")
	cmd.Flags().StringArrayVar(&o.roots, "root", nil, "extra model root as kind=dir (repeatable)")
	cmd.Flags().BoolVar(&o.noSidecar, "no-sidecar", false, "do not write .sha256 sidecar files")
	cmd.Flags().StringVar(&o.hashLog, "hash-log", "", "hash lookup logging: silent, filename, path, detailed, debug")
	cmd.Flags().BoolVar(&o.full, "full", false, "print the full digest, not the short form")

	cmd.AddCommand(c.hashClearCommand())

	return cmd
}

// runHash locates and hashes one named resource.
func (c *CLI) runHash(name string, o *hashOpts) error {
	kind, err := parseKind(o.kind)
	if err != nil {
		return err
	}
	loc, err := c.newLocator(o.modelsDir, o.roots)
	if err != nil {
		return err
	}

	verbosity := o.hashLog
	if verbosity == "" {
		verbosity = c.Config.HashLog
	}
	v, err := hashes.ParseVerbosity(verbosity)
	if err != nil {
		return err
	}
	resolver := hashes.NewResolver(loc, c.Logger)
	resolver.Sidecars = !o.noSidecar
	resolver.Verbosity = v

	c.Logger.Infof("Hashing %s", name)
	prog := newProgress(c.Logger)

	digest := resolver.Hash(kind, name)
	if digest == hashes.NotAvailable {
		return errors.New(errors.ErrCodeResourceNotFound, "no %s named %q under the configured roots", kind, name)
	}
	path, _ := loc.Locate(kind, hashes.NormalizeName(name))
	if o.full {
		digest, err = hashes.HashFile(path)
		if err != nil {
			return err
		}
	}
	prog.done(fmt.Sprintf("Hashed %s", filepath.Base(path)))

	printKeyValue("Name", name)
	printKeyValue("Kind", string(kind))
	printKeyValue("File", path)
	printKeyValue("Hash", digest)
	return nil
}

// hashClearCommand creates the hash clear subcommand, which removes
// sidecar files from the model roots.
func (c *CLI) hashClearCommand() *cobra.Command {
	var (
		modelsDir string
		roots     []string
	)

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove .sha256 sidecar files from the model roots",
		Long: `Remove .sha256 sidecar files from the model roots.

Sidecars are re-created on the next capture, so clearing them only
forces the digests to be recomputed. Use this after replacing a model
file in place without renaming it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runHashClear(modelsDir, roots)
		},
	}

	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "models directory for hash resolution")
	cmd.Flags().StringArrayVar(&roots, "root", nil, "extra model root as kind=dir (repeatable)")

	return cmd
}

// runHashClear walks every configured root and deletes sidecar files.
// Unreadable directories are skipped rather than failing the sweep.
func (c *CLI) runHashClear(modelsDir string, roots []string) error {
	loc, err := c.newLocator(modelsDir, roots)
	if err != nil {
		return err
	}

	dirs := rootDirs(loc)
	if len(dirs) == 0 {
		printInfo("No model roots configured")
		return nil
	}

	removed := 0
	for _, dir := range dirs {
		err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() || !strings.HasSuffix(path, hashes.SidecarExt) {
				return nil
			}
			if err := os.Remove(path); err != nil {
				c.Logger.Warn("could not remove sidecar", "path", path, "err", err)
				return nil
			}
			c.Logger.Debug("removed sidecar", "path", path)
			removed++
			return nil
		})
		if err != nil {
			return err
		}
	}

	printSuccess("Removed %d sidecar files", removed)
	return nil
}

// rootDirs returns the unique root directories of a locator, sorted.
func rootDirs(loc *hashes.DirLocator) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, kindDirs := range loc.Roots {
		for _, d := range kindDirs {
			if !seen[d] {
				seen[d] = true
				dirs = append(dirs, d)
			}
		}
	}
	sort.Strings(dirs)
	return dirs
}
