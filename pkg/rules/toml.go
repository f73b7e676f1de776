package rules

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	stamperrors "github.com/metastamp/metastamp/pkg/errors"
)

// tomlRule is the rule-file shape of one rule. Selectors have no file
// form; validators and formatters are referenced by name.
type tomlRule struct {
	Field    string   `toml:"field"`
	Fields   []string `toml:"fields"`
	Prefix   string   `toml:"prefix"`
	Validate string   `toml:"validate"`
	Format   string   `toml:"format"`
}

// FromTOML loads a user rule table from a TOML file. Each table section is
// addressed as [ClassType.FIELD]:
//
//	[MyCustomSampler.STEPS]
//	field = "steps"
//
//	[MyCustomSampler.SAMPLER_NAME]
//	field = "sampler"
//
//	["My Loader".LORA_NAME]
//	prefix = "lora_"
//	validate = "is_resource"
//
// Loaded tables are meant to be overlaid onto [Builtin] with [Merge], so a
// file only needs the rules it adds or changes.
func FromTOML(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, stamperrors.Wrap(stamperrors.ErrCodeFileNotFound, err, "read rule file %s", path)
	}
	t, err := parseTOML(data)
	if err != nil {
		return nil, fmt.Errorf("rule file %s: %w", path, err)
	}
	return t, nil
}

// parseTOML decodes and validates a rule table.
func parseTOML(data []byte) (Table, error) {
	var raw map[string]map[string]tomlRule
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, stamperrors.Wrap(stamperrors.ErrCodeInvalidRule, err, "parse rules")
	}

	t := make(Table, len(raw))
	for class, fields := range raw {
		if err := stamperrors.ValidateClassName(class); err != nil {
			return nil, stamperrors.Wrap(stamperrors.ErrCodeInvalidRule, err, "class %q", class)
		}
		cr := make(ClassRules, len(fields))
		for name, tr := range fields {
			field := Field(name)
			if !field.Valid() {
				return nil, stamperrors.New(stamperrors.ErrCodeInvalidRule,
					"class %q: unknown capture field %q", class, name)
			}
			rule := Rule{
				Field:  tr.Field,
				Fields: tr.Fields,
				Prefix: tr.Prefix,
				Format: tr.Format,
			}
			if tr.Validate != "" {
				v, ok := LookupValidator(tr.Validate)
				if !ok {
					return nil, stamperrors.New(stamperrors.ErrCodeInvalidRule,
						"class %q field %q: unknown validator %q (available: %v)",
						class, name, tr.Validate, ValidatorNames())
				}
				rule.Validate = v
			}
			cr[field] = rule
		}
		t[class] = cr
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
