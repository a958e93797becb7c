package llm

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchemas holds compiled schemas keyed by name and definition
// digest, so two prompts that reuse a name with different shapes never
// share a validator.
var compiledSchemas sync.Map // map[string]*jsonschema.Schema

// validateResponse checks raw against schema. A nil schema accepts
// anything. Failures are returned as *ErrInvalidResponse.
func validateResponse(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	invalid := func(format string, args ...any) error {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf(format, args...)}
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return invalid("empty response for schema %q", schema.Name)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return invalid("invalid JSON: %w", err)
	}

	compiled, err := compileSchema(schema)
	if err != nil {
		return invalid("compile schema %q: %w", schema.Name, err)
	}
	if err := compiled.Validate(doc); err != nil {
		return invalid("schema %q: %w", schema.Name, err)
	}
	return nil
}

func compileSchema(schema *Schema) (*jsonschema.Schema, error) {
	def, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}
	sum := sha256.Sum256(def)
	key := schema.Name + "@" + hex.EncodeToString(sum[:8])

	if cached, ok := compiledSchemas.Load(key); ok {
		return cached.(*jsonschema.Schema), nil
	}

	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(def))
	if err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	url := "mem://schemas/" + key + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	actual, _ := compiledSchemas.LoadOrStore(key, compiled)
	return actual.(*jsonschema.Schema), nil
}

// unfence strips a Markdown code fence that some models wrap around JSON
// even when asked for bare output.
func unfence(text string) string {
	b := bytes.TrimSpace([]byte(text))
	if !bytes.HasPrefix(b, []byte("```")) || !bytes.HasSuffix(b, []byte("```")) || len(b) < 6 {
		return text
	}
	b = b[3 : len(b)-3]
	if nl := bytes.IndexByte(b, '\n'); nl >= 0 && !bytes.ContainsAny(b[:nl], "{[\"") {
		b = b[nl+1:]
	}
	return string(bytes.TrimSpace(b))
}
