// Package seed loads an ordered rule list from a YAML, JSON or TOML file.
//
// A seed file has a single top-level "rules" list; each element carries a
// pattern, an action and an optional enabled flag (default true):
//
//	rules:
//	  - pattern: "555????"
//	    action: allow
//	  - pattern: "1800*"
//	    action: block
//	    enabled: false
package seed

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/domain"
)

// ErrUnsupportedFormat is returned for a file extension with no parser.
var ErrUnsupportedFormat = errors.New("seed: unsupported file format")

// Target receives seeded rules. *ruleset.Store satisfies it.
type Target interface {
	Len() int
	Replace(rules []domain.Rule) error
}

// LoadFile parses path and returns its rules in file order. Every entry
// must be valid; the first bad entry fails the whole file.
func LoadFile(path string) ([]domain.Rule, error) {
	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load seed file %s: %w", path, err)
	}

	raw, ok := k.Raw()["rules"]
	if !ok {
		return nil, fmt.Errorf("seed file %s missing 'rules'", path)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("seed file %s: 'rules' must be a list", path)
	}

	rules := make([]domain.Rule, 0, len(list))
	for i, elem := range list {
		r, err := buildRule(elem)
		if err != nil {
			return nil, fmt.Errorf("seed file %s: rule %d: %w", path, i, err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Apply imports path into t when t holds no rules. It returns the number of
// rules imported; a non-empty target is left alone and reports zero.
func Apply(t Target, path string, logger log.Logger) (int, error) {
	logger = log.OrGlobal(logger)
	if path == "" {
		return 0, nil
	}
	if n := t.Len(); n > 0 {
		logger.Debug(map[string]any{"path": path, "rules": n}, "Rule store not empty, skipping seed")
		return 0, nil
	}
	rules, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	if err := t.Replace(rules); err != nil {
		return 0, fmt.Errorf("seed %s: %w", path, err)
	}
	logger.Info(map[string]any{"path": path, "rules": len(rules)}, "Seeded rule store")
	return len(rules), nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// buildRule converts one parsed list element into a validated rule.
func buildRule(elem any) (domain.Rule, error) {
	m, ok := elem.(map[string]any)
	if !ok {
		return domain.Rule{}, fmt.Errorf("expected a table, got %T", elem)
	}
	p, ok := m["pattern"].(string)
	if !ok {
		return domain.Rule{}, errors.New("missing 'pattern'")
	}
	name, ok := m["action"].(string)
	if !ok {
		return domain.Rule{}, errors.New("missing 'action'")
	}
	action, err := domain.ParseAction(name)
	if err != nil {
		return domain.Rule{}, err
	}
	r, err := domain.NewRule(p, action)
	if err != nil {
		return domain.Rule{}, err
	}
	if v, present := m["enabled"]; present {
		enabled, ok := v.(bool)
		if !ok {
			return domain.Rule{}, fmt.Errorf("'enabled' must be a boolean, got %T", v)
		}
		r = r.WithEnabled(enabled)
	}
	return r, nil
}
