package contextdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "schema://context.json"

// Schema validates context documents against a JSON Schema (draft 2020-12).
// Schemas may be written in JSON or YAML; remote $ref is refused.
type Schema struct {
	compiled *jsonschema.Schema
}

// Violation is one failed schema keyword
type Violation struct {
	Location string // JSON pointer into the context document
	Message  string
}

// ValidationError lists every leaf violation found in a context document
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("context does not match schema")
	for _, v := range e.Violations {
		loc := v.Location
		if loc == "" {
			loc = "/"
		}
		fmt.Fprintf(&b, "\n  %s: %s", loc, v.Message)
	}
	return b.String()
}

// LoadSchema reads and compiles the schema file at path
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading schema %s: %w", path, err)
	}
	format := detect(path, data)
	s, err := CompileSchema(data, format)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return s, nil
}

// CompileSchema compiles a schema document given in the named format
func CompileSchema(data []byte, format Format) (*Schema, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	schemaJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true
	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("external $ref not allowed: %s", url)
	}

	if err := compiler.AddResource(schemaURL, strings.NewReader(string(schemaJSON))); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, err
	}
	return &Schema{compiled: compiled}, nil
}

// Validate checks a normalized context value
func (s *Schema) Validate(value any) error {
	err := s.compiled.Validate(value)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	out := &ValidationError{}
	collect(ve, out)
	return out
}

// collect flattens the cause tree to its leaves
func collect(ve *jsonschema.ValidationError, out *ValidationError) {
	if len(ve.Causes) == 0 {
		out.Violations = append(out.Violations, Violation{Location: ve.InstanceLocation, Message: ve.Message})
		return
	}
	for _, cause := range ve.Causes {
		collect(cause, out)
	}
}
