package config

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/piki9312/evalgate/internal/domain"
)

// RunContext is what the resolver matches override conditions against.
type RunContext struct {
	Labels       []string // PR labels
	ChangedFiles []string // repo-relative changed paths
}

// Resolve merges rules deterministically: start from the documented
// defaults, overlay the document's default block, then each matching
// override in document order. CLI-provided thresholds are applied by the
// caller afterwards and win.
func Resolve(doc *Document, rc RunContext) (domain.Ruleset, error) {
	rs := domain.DefaultRuleset()
	if doc == nil {
		return rs, nil
	}

	doc.Default.apply(&rs)

	for i, ov := range doc.Overrides {
		match, err := matches(ov.When, rc)
		if err != nil {
			return rs, fmt.Errorf("overrides[%d]: %w", i, err)
		}
		if match {
			ov.Rules.apply(&rs)
		}
	}
	return rs, nil
}

// matches reports whether any label matches exactly or any changed file
// matches any path glob.
func matches(cond Condition, rc RunContext) (bool, error) {
	for _, want := range cond.Labels {
		for _, have := range rc.Labels {
			if want == have {
				return true, nil
			}
		}
	}
	for _, pattern := range cond.Paths {
		if !doublestar.ValidatePattern(pattern) {
			return false, fmt.Errorf("bad path glob %q", pattern)
		}
		for _, file := range rc.ChangedFiles {
			ok, err := doublestar.Match(pattern, file)
			if err != nil {
				return false, fmt.Errorf("match %q against %q: %w", pattern, file, err)
			}
			if ok {
				return true, nil
			}
		}
	}
	return false, nil
}
