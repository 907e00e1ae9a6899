// Package schema interprets a case's expected_output and checks agent
// output against it.
//
// A value that parses as a JSON object is treated as a JSON Schema when it
// carries a $schema, type, or properties key, and as an exemplar object
// (exact key set, matching JSON types) otherwise. Anything else is a
// literal match target.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/piki9312/evalgate/internal/domain"
)

// Kind classifies how an expectation is matched.
type Kind int

// Kind constants.
const (
	KindLiteral Kind = iota
	KindSchema
	KindExemplar
)

// Expectation is a parsed expected_output ready for repeated checks.
type Expectation struct {
	kind     Kind
	literal  string
	schema   *gojsonschema.Schema
	exemplar map[string]any
}

// Parse interprets raw as a literal, schema, or exemplar expectation.
// Schema compilation errors fail fast; they are suite-author mistakes.
func Parse(raw string) (*Expectation, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err == nil {
			if isSchemaDoc(obj) {
				compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(trimmed))
				if err != nil {
					return nil, fmt.Errorf("compile expected schema: %w", err)
				}
				return &Expectation{kind: KindSchema, schema: compiled}, nil
			}
			return &Expectation{kind: KindExemplar, exemplar: obj}, nil
		}
	}
	return &Expectation{kind: KindLiteral, literal: trimmed}, nil
}

// Kind returns the expectation's match mode.
func (e *Expectation) Kind() Kind {
	return e.kind
}

// DeclaresJSON reports whether the expectation requires JSON output.
func (e *Expectation) DeclaresJSON() bool {
	return e.kind == KindSchema || e.kind == KindExemplar
}

// Check classifies the agent output against the expectation. A nil return
// means the case passed; otherwise the failure type per the runner's
// classification rules.
func (e *Expectation) Check(outputText string, outputJSON map[string]any) *domain.FailureType {
	switch e.kind {
	case KindLiteral:
		if strings.TrimSpace(outputText) == e.literal {
			return nil
		}
		return domain.FailureTypePtr(domain.FailureQualityFail)

	case KindSchema, KindExemplar:
		obj := outputJSON
		if obj == nil {
			var parsed map[string]any
			if err := json.Unmarshal([]byte(outputText), &parsed); err != nil {
				return domain.FailureTypePtr(domain.FailureBadJSON)
			}
			obj = parsed
		}
		if e.kind == KindSchema {
			return e.checkSchema(obj)
		}
		return e.checkExemplar(obj)
	}
	return domain.FailureTypePtr(domain.FailureOther)
}

func (e *Expectation) checkSchema(obj map[string]any) *domain.FailureType {
	result, err := e.schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil || !result.Valid() {
		return domain.FailureTypePtr(domain.FailureSchemaMismatch)
	}
	return nil
}

// checkExemplar requires the exact key set of the exemplar with matching
// JSON types; values are not compared.
func (e *Expectation) checkExemplar(obj map[string]any) *domain.FailureType {
	if len(obj) != len(e.exemplar) {
		return domain.FailureTypePtr(domain.FailureSchemaMismatch)
	}
	for key, want := range e.exemplar {
		got, ok := obj[key]
		if !ok || jsonType(got) != jsonType(want) {
			return domain.FailureTypePtr(domain.FailureSchemaMismatch)
		}
	}
	return nil
}

// Describe returns a deterministic one-line description for diagnostics.
func (e *Expectation) Describe() string {
	switch e.kind {
	case KindSchema:
		return "json schema"
	case KindExemplar:
		keys := make([]string, 0, len(e.exemplar))
		for k := range e.exemplar {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return "exemplar{" + strings.Join(keys, ",") + "}"
	default:
		return "literal"
	}
}

// isSchemaDoc reports whether obj looks like a JSON Schema document.
func isSchemaDoc(obj map[string]any) bool {
	for _, key := range []string{"$schema", "type", "properties"} {
		if _, ok := obj[key]; ok {
			return true
		}
	}
	return false
}

// jsonType names the JSON type of a decoded value.
func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
