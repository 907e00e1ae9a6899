// Package config loads the threshold/rule document and resolves the
// effective ruleset for a run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/piki9312/evalgate/internal/domain"
)

// RuleBlock mirrors the Ruleset with pointer fields so an unset override
// field never clobbers an already-resolved value.
type RuleBlock struct {
	S1MinPassRate       *float64 `yaml:"s1_min_pass_rate"`
	OverallMinPassRate  *float64 `yaml:"overall_min_pass_rate"`
	MaxWorstCaseDelta   *float64 `yaml:"max_worst_case_delta"`
	LatencyP95MaxRatio  *float64 `yaml:"latency_p95_max_ratio"`
	TokenDeltaMaxRatio  *float64 `yaml:"token_delta_max_ratio"`
	FailOnNewRegression *bool    `yaml:"fail_on_new_regression"`
}

// Condition describes when an override applies. The override fires when
// any label matches OR any changed file matches any path glob.
type Condition struct {
	Labels []string `yaml:"labels"`
	Paths  []string `yaml:"paths"`
}

// Override is one conditional rule entry, applied in document order.
type Override struct {
	When  Condition `yaml:"when"`
	Rules RuleBlock `yaml:"rules"`
}

// Document is the top-level configuration document.
type Document struct {
	Default   RuleBlock  `yaml:"default"`
	Overrides []Override `yaml:"overrides"`
}

// Load reads and parses a configuration document.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &doc, nil
}

func (d *Document) validate() error {
	if err := d.Default.validate(); err != nil {
		return fmt.Errorf("default: %w", err)
	}
	for i, ov := range d.Overrides {
		if len(ov.When.Labels) == 0 && len(ov.When.Paths) == 0 {
			return fmt.Errorf("overrides[%d]: empty when condition", i)
		}
		if err := ov.Rules.validate(); err != nil {
			return fmt.Errorf("overrides[%d]: %w", i, err)
		}
	}
	return nil
}

func (b *RuleBlock) validate() error {
	checkRate := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s %v out of range [0,1]", name, *v)
		}
		return nil
	}
	if err := checkRate("s1_min_pass_rate", b.S1MinPassRate); err != nil {
		return err
	}
	if err := checkRate("overall_min_pass_rate", b.OverallMinPassRate); err != nil {
		return err
	}
	checkNonNeg := func(name string, v *float64) error {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s %v must be non-negative", name, *v)
		}
		return nil
	}
	if err := checkNonNeg("max_worst_case_delta", b.MaxWorstCaseDelta); err != nil {
		return err
	}
	if err := checkNonNeg("latency_p95_max_ratio", b.LatencyP95MaxRatio); err != nil {
		return err
	}
	return checkNonNeg("token_delta_max_ratio", b.TokenDeltaMaxRatio)
}

// apply overlays the block's set fields onto rs.
func (b *RuleBlock) apply(rs *domain.Ruleset) {
	if b.S1MinPassRate != nil {
		rs.S1MinPassRate = *b.S1MinPassRate
	}
	if b.OverallMinPassRate != nil {
		rs.OverallMinPassRate = *b.OverallMinPassRate
	}
	if b.MaxWorstCaseDelta != nil {
		rs.MaxWorstCaseDelta = *b.MaxWorstCaseDelta
	}
	if b.LatencyP95MaxRatio != nil {
		rs.LatencyP95MaxRatio = *b.LatencyP95MaxRatio
	}
	if b.TokenDeltaMaxRatio != nil {
		rs.TokenDeltaMaxRatio = *b.TokenDeltaMaxRatio
	}
	if b.FailOnNewRegression != nil {
		rs.FailOnNewRegression = *b.FailOnNewRegression
	}
}
