package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/metastamp/metastamp/pkg/errors"
	"github.com/metastamp/metastamp/pkg/rules"
)

// rulesOpts holds the command-line flags for the rules command.
type rulesOpts struct {
	class     string
	ruleFiles []string
}

// rulesCommand creates the rules command for inspecting the merged
// capture rule table.
func (c *CLI) rulesCommand() *cobra.Command {
	o := &rulesOpts{}

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the merged capture rule table",
		Long: `List the merged capture rule table.

Shows every node class capture knows about and what each rule reads:
the builtin table merged with the config file's rule files and any
--rules files, later files winning. Classes whose rules mark them as
samplers are tagged.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRules(cmd, o)
		},
	}

	cmd.Flags().StringVar(&o.class, "class", "", "show only this node class")
	cmd.Flags().StringArrayVar(&o.ruleFiles, "rules", nil, "extra rule file (TOML, repeatable)")

	return cmd
}

// runRules prints the rule table, one block per class.
func (c *CLI) runRules(cmd *cobra.Command, o *rulesOpts) error {
	table, err := c.buildTable(o.ruleFiles)
	if err != nil {
		return err
	}

	classes := table.Classes()
	if o.class != "" {
		if _, ok := table.RulesFor(o.class); !ok {
			return errors.New(errors.ErrCodeNotFound, "no rules for class %q", o.class)
		}
		classes = []string{o.class}
	}

	w := cmd.OutOrStdout()
	total := 0
	for _, class := range classes {
		cr, _ := table.RulesFor(class)

		header := StyleTitle.Render(class)
		if table.IsSampler(class) {
			header += " " + StyleHighlight.Render("(sampler)")
		}
		fmt.Fprintln(w, header)
		for _, f := range sortedFields(cr) {
			fmt.Fprintf(w, "  %-22s %s\n", f, describeRule(cr[f]))
		}
		fmt.Fprintln(w)
		total += len(cr)
	}
	fmt.Fprintf(w, "%d classes, %d rules\n", len(classes), total)
	return nil
}

// sortedFields returns the capture fields of a class in stable order.
func sortedFields(cr rules.ClassRules) []rules.Field {
	fields := make([]rules.Field, 0, len(cr))
	for f := range cr {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// describeRule renders one rule's capture strategy for display.
func describeRule(r rules.Rule) string {
	var desc string
	switch r.Kind() {
	case rules.KindField:
		desc = fmt.Sprintf("input %q", r.Field)
	case rules.KindFields:
		quoted := make([]string, len(r.Fields))
		for i, f := range r.Fields {
			quoted[i] = fmt.Sprintf("%q", f)
		}
		desc = "first of " + strings.Join(quoted, ", ")
	case rules.KindPrefix:
		desc = fmt.Sprintf("inputs %q*", r.Prefix)
	case rules.KindSelect:
		desc = "selector"
	default:
		desc = "invalid"
	}
	if r.Format != "" {
		desc += StyleDim.Render(" → " + r.Format)
	}
	if r.Validate != nil {
		desc += StyleDim.Render(" (validated)")
	}
	return desc
}
