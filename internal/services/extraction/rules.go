package extraction

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var rulesYAML []byte

// FieldRule controls how one extracted field is validated.
type FieldRule struct {
	// Strict fields must carry an explicit value from the document; a
	// value that fails validation is dropped rather than kept on trust.
	Strict bool `yaml:"strict"`

	// AllowInference permits the model to derive the value when the
	// document does not state it outright. Monetary fields never allow
	// inference.
	AllowInference bool `yaml:"allow_inference"`
}

// RuleTable maps "department.field" to its validation rule. Fields without
// an entry use the default (lenient) rule.
type RuleTable struct {
	Default FieldRule            `yaml:"default"`
	Fields  map[string]FieldRule `yaml:"fields"`
}

// LoadRules parses the embedded rule table.
func LoadRules() (*RuleTable, error) {
	var table RuleTable
	if err := yaml.Unmarshal(rulesYAML, &table); err != nil {
		return nil, fmt.Errorf("failed to parse field rules: %w", err)
	}
	return &table, nil
}

// Rule returns the rule for a department field.
func (t *RuleTable) Rule(dept models.Department, field string) FieldRule {
	if rule, ok := t.Fields[string(dept)+"."+field]; ok {
		return rule
	}
	return t.Default
}

// NoInferenceFields lists the "department.field" keys whose values must
// come from the document verbatim, never derived. Sorted so the generated
// prompt is stable across runs.
func (t *RuleTable) NoInferenceFields() []string {
	fields := make([]string, 0, len(t.Fields))
	for name, rule := range t.Fields {
		if !rule.AllowInference {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// Apply walks the summaries and drops strict-field values that fail
// validation. Lenient fields pass through untouched; their absence is a
// weak signal, not an error.
func (t *RuleTable) Apply(summaries map[models.Department]models.SummaryFields, logger arbor.ILogger) {
	for dept, fields := range summaries {
		for name, value := range fields {
			rule := t.Rule(dept, name)
			if !rule.Strict {
				continue
			}
			if !isPlausibleValue(value) {
				logger.Debug().
					Str("department", string(dept)).
					Str("field", name).
					Msg("Dropping strict field with implausible value")
				delete(fields, name)
			}
		}
	}
}

// isPlausibleValue accepts values that state a concrete figure. Strict
// fields are monetary or bounded amounts, so a usable value contains at
// least one digit and is not a hedge phrase.
func isPlausibleValue(value interface{}) bool {
	text, ok := value.(string)
	if !ok {
		// Numeric JSON values are concrete by construction.
		_, isFloat := value.(float64)
		_, isInt := value.(int)
		return isFloat || isInt
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	lower := strings.ToLower(text)
	for _, hedge := range []string{"not mentioned", "not specified", "unknown", "n/a", "refer", "as per"} {
		if strings.Contains(lower, hedge) {
			return false
		}
	}

	for _, r := range text {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
