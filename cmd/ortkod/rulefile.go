package main

import (
	"strings"

	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"ortkod/internal"
	"ortkod/internal/pipeline"
)

// ruleFile is the on-disk rule set:
//
//	rules:
//	  - pattern: '^VX(\d{4}\.\d{3})$'
//	    format: 'RIT.{model}'
//	    priority: 1
type ruleFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

type ruleEntry struct {
	Pattern  string `yaml:"pattern"`
	Format   string `yaml:"format"`
	Priority int    `yaml:"priority"`
	Active   *bool  `yaml:"active"`
}

func parseRuleFile(content []byte) ([]internal.Rule, error) {
	var f ruleFile
	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, errors.Errorf("parse rule file: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, errors.New("rule file has no rules")
	}

	out := make([]internal.Rule, 0, len(f.Rules))
	for i, e := range f.Rules {
		pattern := strings.TrimSpace(e.Pattern)
		format := strings.TrimSpace(e.Format)
		if pattern == "" || format == "" {
			return nil, errors.Errorf("rule %d: pattern and format are required", i+1)
		}
		if err := pipeline.ValidatePattern(pattern); err != nil {
			return nil, errors.Errorf("rule %d: %w", i+1, err)
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		out = append(out, internal.Rule{
			RegexPattern: pattern,
			OutputFormat: format,
			Priority:     e.Priority,
			IsActive:     active,
		})
	}
	return out, nil
}
