package credential

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pilacorp/go-didjwt-sdk/sentinel"
)

// Preview lists the data fields a holder may see before full disclosure.
// Type is an application-defined classification carried as is.
type Preview struct {
	Fields []string `json:"fields"`
	Type   int      `json:"type"`
}

// Category is one named block of subject data.
type Category struct {
	Preview  Preview        `json:"preview"`
	Category string         `json:"category"`
	Data     map[string]any `json:"data"`
}

// Subject maps category names (e.g. "DatosPersonales") to their data.
type Subject map[string]Category

//go:embed subject_schema.json
var subjectSchemaJSON []byte

var (
	subjectSchema  *gojsonschema.Schema
	loadSchemaOnce sync.Once
	errLoadSchema  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	loadSchemaOnce.Do(func() {
		subjectSchema, errLoadSchema = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(subjectSchemaJSON))
	})
	return subjectSchema, errLoadSchema
}

// Validate checks every category of s.
func (s Subject) Validate() error {
	raw, err := s.toMap()
	if err != nil {
		return err
	}
	return validateSubject(raw)
}

func (s Subject) toMap() (map[string]any, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrInvalidCredentialSubject, err)
	}
	var out map[string]any
	if err := decodeJSON(b, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrInvalidCredentialSubject, err)
	}
	return out, nil
}

// decodeJSON unmarshals b keeping numbers as json.Number, so integers beyond
// 2^53 in subject data are signed and returned unchanged.
func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// validateSubject checks a decoded credentialSubject: each category must
// match the schema and list in preview.fields only keys present in data.
func validateSubject(raw map[string]any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: credentialSubject has no categories", sentinel.ErrInvalidCredentialSubject)
	}

	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("failed to load credential subject schema: %w", err)
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		result, err := schema.Validate(gojsonschema.NewGoLoader(raw[name]))
		if err != nil {
			return fmt.Errorf("%w: category %s: %w", sentinel.ErrInvalidCredentialSubject, name, err)
		}
		if !result.Valid() {
			msgs := make([]string, 0, len(result.Errors()))
			for _, e := range result.Errors() {
				msgs = append(msgs, e.String())
			}
			return fmt.Errorf("%w: category %s: %s", sentinel.ErrInvalidCredentialSubject, name, strings.Join(msgs, "; "))
		}

		if err := checkPreview(name, raw[name].(map[string]any)); err != nil {
			return err
		}
	}
	return nil
}

// checkPreview enforces that every preview field is a key of data. The schema
// has already guaranteed the shapes.
func checkPreview(name string, category map[string]any) error {
	preview := category["preview"].(map[string]any)
	data := category["data"].(map[string]any)

	fields, _ := preview["fields"].([]any)
	for _, f := range fields {
		field := f.(string)
		if _, ok := data[field]; !ok {
			return fmt.Errorf("%w: category %s: preview field %q is missing from data", sentinel.ErrInvalidCredentialSubject, name, field)
		}
	}
	return nil
}

// parseSubject decodes a validated credentialSubject into its typed form.
func parseSubject(raw map[string]any) (Subject, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrInvalidCredentialSubject, err)
	}
	var s Subject
	if err := decodeJSON(b, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", sentinel.ErrInvalidCredentialSubject, err)
	}
	return s, nil
}
