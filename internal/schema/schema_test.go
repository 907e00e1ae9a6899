package schema

import (
	"testing"

	"github.com/piki9312/evalgate/internal/domain"
)

func TestParse_Kinds(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"plain literal", "hello world", KindLiteral},
		{"json array is literal", `[1,2,3]`, KindLiteral},
		{"schema via type", `{"type":"object"}`, KindSchema},
		{"schema via properties", `{"properties":{"a":{"type":"string"}}}`, KindSchema},
		{"schema via $schema", `{"$schema":"http://json-schema.org/draft-07/schema#"}`, KindSchema},
		{"exemplar object", `{"answer":"42","score":1.5}`, KindExemplar},
		{"malformed json object is literal", `{not json`, KindLiteral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if e.Kind() != tt.want {
				t.Errorf("Parse(%q).Kind() = %v, want %v", tt.raw, e.Kind(), tt.want)
			}
		})
	}
}

func TestCheck_Literal(t *testing.T) {
	e, err := Parse("expected text")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if ft := e.Check("expected text", nil); ft != nil {
		t.Errorf("exact match should pass, got %v", *ft)
	}
	// Surrounding whitespace is tolerated.
	if ft := e.Check("  expected text\n", nil); ft != nil {
		t.Errorf("trimmed match should pass, got %v", *ft)
	}
	if ft := e.Check("different", nil); ft == nil || *ft != domain.FailureQualityFail {
		t.Errorf("mismatch should be quality_fail, got %v", ft)
	}
}

func TestCheck_Schema(t *testing.T) {
	e, err := Parse(`{"type":"object","properties":{"answer":{"type":"string"}},"required":["answer"]}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if ft := e.Check(`{"answer":"42"}`, nil); ft != nil {
		t.Errorf("valid document should pass, got %v", *ft)
	}
	if ft := e.Check(`{"answer":`, nil); ft == nil || *ft != domain.FailureBadJSON {
		t.Errorf("unparseable output should be bad_json, got %v", ft)
	}
	if ft := e.Check(`{"answer":42}`, nil); ft == nil || *ft != domain.FailureSchemaMismatch {
		t.Errorf("wrong type should be schema_mismatch, got %v", ft)
	}
	if ft := e.Check(`{"other":"x"}`, nil); ft == nil || *ft != domain.FailureSchemaMismatch {
		t.Errorf("missing required key should be schema_mismatch, got %v", ft)
	}
}

func TestCheck_SchemaPrefersParsedJSON(t *testing.T) {
	e, err := Parse(`{"type":"object","required":["answer"]}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// When the invoker already parsed an object, the text is ignored.
	obj := map[string]any{"answer": "42"}
	if ft := e.Check("not json at all", obj); ft != nil {
		t.Errorf("parsed object should be used, got %v", *ft)
	}
}

func TestCheck_Exemplar(t *testing.T) {
	e, err := Parse(`{"answer":"sample","count":3}`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	// Same key set, same JSON types, different values: pass.
	if ft := e.Check(`{"answer":"other","count":99}`, nil); ft != nil {
		t.Errorf("matching shape should pass, got %v", *ft)
	}
	// Extra key: mismatch.
	if ft := e.Check(`{"answer":"x","count":1,"extra":true}`, nil); ft == nil || *ft != domain.FailureSchemaMismatch {
		t.Errorf("extra key should be schema_mismatch, got %v", ft)
	}
	// Missing key: mismatch.
	if ft := e.Check(`{"answer":"x"}`, nil); ft == nil || *ft != domain.FailureSchemaMismatch {
		t.Errorf("missing key should be schema_mismatch, got %v", ft)
	}
	// Wrong type: mismatch.
	if ft := e.Check(`{"answer":"x","count":"three"}`, nil); ft == nil || *ft != domain.FailureSchemaMismatch {
		t.Errorf("wrong type should be schema_mismatch, got %v", ft)
	}
}

func TestParse_BadSchemaFailsFast(t *testing.T) {
	if _, err := Parse(`{"type":"object","properties":{"a":{"type":"not-a-type"}}}`); err == nil {
		t.Error("expected a compile error for a bad schema")
	}
}
