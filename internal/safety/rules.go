package safety

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule matches every command whose argument vector starts with Argv.
type Rule struct {
	Argv   []string `yaml:"argv"`
	Reason string   `yaml:"reason,omitempty"`
}

// Rules are site-specific additions to the built-in table, loaded from a
// YAML file. Deny always wins over allow.
type Rules struct {
	Allow []Rule `yaml:"allow"`
	Deny  []Rule `yaml:"deny"`
}

// LoadRules reads a rules file. A missing file is not an error: the zero
// Rules value changes nothing about assessment.
func LoadRules(path string) (Rules, error) {
	var rules Rules
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rules, nil
		}
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	for i, rule := range append(append([]Rule{}, rules.Allow...), rules.Deny...) {
		if len(rule.Argv) == 0 {
			return Rules{}, fmt.Errorf("rules file %s: rule %d has empty argv", path, i)
		}
	}
	return rules, nil
}

func (r Rules) allowMatch(argv []string) (Rule, bool) {
	return match(r.Allow, argv)
}

func (r Rules) denyMatch(argv []string) (Rule, bool) {
	return match(r.Deny, argv)
}

func match(rules []Rule, argv []string) (Rule, bool) {
	for _, rule := range rules {
		if isPrefix(rule.Argv, argv) {
			return rule, true
		}
	}
	return Rule{}, false
}

func isPrefix(prefix, argv []string) bool {
	if len(prefix) == 0 || len(prefix) > len(argv) {
		return false
	}
	for i, word := range prefix {
		if argv[i] != word {
			return false
		}
	}
	return true
}
