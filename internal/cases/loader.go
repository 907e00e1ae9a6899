// Package cases loads and validates the tabular case suite file.
package cases

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/piki9312/evalgate/internal/domain"
)

// Required header columns, in no particular order.
var requiredColumns = []string{"case_id", "name", "input_prompt", "expected_output", "severity"}

// Optional header columns.
var optionalColumns = []string{"owner", "tags", "min_pass_rate", "category"}

// Load reads and validates a suite file. The returned order matches file
// order and is used for deterministic report rendering.
func Load(path string) ([]domain.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cases file: %w", err)
	}
	defer f.Close()

	cs, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cs, nil
}

// Parse reads a suite from r. Validation is fail-fast: the first bad row
// aborts the load with its location named.
func Parse(r io.Reader) ([]domain.Case, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // header decides; rows are checked below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty cases file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	var out []domain.Case
	seen := make(map[string]int) // case_id -> row number
	rowNo := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		rowNo++
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNo, err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d: has %d fields, header has %d", rowNo, len(row), len(header))
		}

		c, err := parseRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNo, err)
		}
		if prev, dup := seen[c.CaseID]; dup {
			return nil, fmt.Errorf("row %d: duplicate case_id %q (first seen on row %d)", rowNo, c.CaseID, prev)
		}
		seen[c.CaseID] = rowNo
		out = append(out, c)
	}

	return out, nil
}

// indexHeader maps column names to indices, rejecting unknown and
// duplicate columns. Missing optional columns are tolerated.
func indexHeader(header []string) (map[string]int, error) {
	known := make(map[string]bool, len(requiredColumns)+len(optionalColumns))
	for _, c := range requiredColumns {
		known[c] = true
	}
	for _, c := range optionalColumns {
		known[c] = true
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.ToLower(name))
		if !known[name] {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		if _, dup := cols[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		cols[name] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return nil, fmt.Errorf("missing required column %q", c)
		}
	}
	return cols, nil
}

func parseRow(row []string, cols map[string]int) (domain.Case, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok {
			return ""
		}
		return row[i]
	}

	c := domain.Case{
		CaseID:         strings.TrimSpace(get("case_id")),
		Name:           strings.TrimSpace(get("name")),
		InputPrompt:    get("input_prompt"),
		ExpectedOutput: get("expected_output"),
		Owner:          strings.TrimSpace(get("owner")),
		Category:       strings.TrimSpace(get("category")),
	}
	if c.CaseID == "" {
		return c, fmt.Errorf("empty case_id")
	}

	sev := domain.Severity(strings.ToUpper(strings.TrimSpace(get("severity"))))
	if !sev.Valid() {
		return c, fmt.Errorf("case %s: unknown severity %q", c.CaseID, get("severity"))
	}
	c.Severity = sev

	c.Tags = splitTags(get("tags"))

	if raw := strings.TrimSpace(get("min_pass_rate")); raw != "" {
		m, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return c, fmt.Errorf("case %s: min_pass_rate %q: %w", c.CaseID, raw, err)
		}
		if m < 0 || m > 1 {
			return c, fmt.Errorf("case %s: min_pass_rate %v out of range [0,1]", c.CaseID, m)
		}
		c.MinPassRate = m
	} else {
		c.MinPassRate = domain.DefaultMinPassRate(c.Severity)
	}

	return c, nil
}

// splitTags splits on '|' or ',', trims, lower-cases, and drops empties.
func splitTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '|' || r == ','
	})
	var out []string
	for _, f := range fields {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
