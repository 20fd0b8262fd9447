package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/infinite-echoes/echoes/pkg/domain"
	"github.com/infinite-echoes/echoes/pkg/graph"
	"github.com/infinite-echoes/echoes/pkg/registry"
	"github.com/infinite-echoes/echoes/pkg/valuetype"
)

// Format is the encoding of a topology document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported topology extension %q", filepath.Ext(path))
	}
}

// Document is the decoded form of a topology file.
type Document struct {
	Entry            string      `mapstructure:"entry"`
	AllowUnreachable bool        `mapstructure:"allow_unreachable"`
	Fields           []FieldSpec `mapstructure:"fields"`
	Nodes            []NodeSpec  `mapstructure:"nodes"`
}

// FieldSpec declares one schema field. Policy defaults to overwrite and an
// empty Type accepts any value.
type FieldSpec struct {
	Name   string `mapstructure:"name"`
	Policy string `mapstructure:"policy"`
	Type   string `mapstructure:"type"`
}

func (f FieldSpec) field() (domain.Field, error) {
	policy, err := domain.ParseMergePolicy(f.Policy)
	if err != nil {
		return domain.Field{}, fmt.Errorf("field %q: %w", f.Name, err)
	}
	field := domain.Field{Name: f.Name, Policy: policy}
	if f.Type != "" {
		t, err := valuetype.Parse(f.Type)
		if err != nil {
			return domain.Field{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		field = field.Of(t)
	}
	return field, nil
}

// NodeSpec wires one registered node function.
type NodeSpec struct {
	ID     string    `mapstructure:"id"`
	Use    string    `mapstructure:"use"`
	Reads  []string  `mapstructure:"reads"`
	Writes []string  `mapstructure:"writes"`
	Next   *NextSpec `mapstructure:"next"`
}

// NextSpec is the outgoing edge of a node: exactly one of To, Decision or End.
type NextSpec struct {
	To       string            `mapstructure:"to"`
	Decision string            `mapstructure:"decision"`
	Routes   map[string]string `mapstructure:"routes"`
	End      bool              `mapstructure:"end"`
}

// Parse decodes a topology document.
func Parse(data []byte, format Format) (*Document, error) {
	var raw map[string]any
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml topology: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json topology: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported topology format %q", format)
	}
	if raw == nil {
		return nil, fmt.Errorf("topology document is empty")
	}

	var doc Document
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &doc,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode topology: %w", err)
	}
	return &doc, nil
}

// Schema builds the schema declared by the document's fields.
func (d *Document) Schema() (*domain.Schema, error) {
	fields := make([]domain.Field, 0, len(d.Fields))
	for _, f := range d.Fields {
		field, err := f.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return domain.NewSchema(fields...)
}

// Build resolves the document against reg and compiles it.
//
// When schema is nil the document's fields define it. Otherwise every field
// the document declares must match schema.
func (d *Document) Build(reg *registry.Registry, schema *domain.Schema, opts ...graph.CompileOption) (*graph.Graph, error) {
	schema, err := d.resolveSchema(schema)
	if err != nil {
		return nil, err
	}

	b := graph.NewBuilder(schema)
	for _, n := range d.Nodes {
		use := n.Use
		if use == "" {
			use = n.ID
		}
		fn, err := reg.Node(use)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, err)
		}
		b.Register(n.ID, fn, graph.Reads(n.Reads...), graph.Writes(n.Writes...))

		if err := wireNext(b, reg, n); err != nil {
			return nil, err
		}
	}

	if d.AllowUnreachable {
		opts = append(opts, graph.AllowUnreachable())
	}
	return b.Compile(d.Entry, opts...)
}

func wireNext(b *graph.Builder, reg *registry.Registry, n NodeSpec) error {
	if n.Next == nil {
		return nil
	}
	next := n.Next

	set := 0
	for _, ok := range []bool{next.To != "", next.Decision != "", next.End} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("node %q: next must set exactly one of to, decision or end", n.ID)
	}
	if len(next.Routes) > 0 && next.Decision == "" {
		return fmt.Errorf("node %q: next routes require a decision", n.ID)
	}

	switch {
	case next.End:
		b.SetTerminal(n.ID)
	case next.To != "":
		b.SetUnconditionalEdge(n.ID, next.To)
	default:
		decision, err := reg.Decision(next.Decision)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		b.SetConditionalEdge(n.ID, decision, next.Routes)
	}
	return nil
}

func (d *Document) resolveSchema(schema *domain.Schema) (*domain.Schema, error) {
	if schema == nil {
		if len(d.Fields) == 0 {
			return nil, fmt.Errorf("topology declares no fields and no schema was provided")
		}
		return d.Schema()
	}

	for _, f := range d.Fields {
		declared, ok := schema.Field(f.Name)
		if !ok {
			return nil, fmt.Errorf("field %q is not part of the schema", f.Name)
		}
		field, err := f.field()
		if err != nil {
			return nil, err
		}
		if field.Policy != declared.Policy {
			return nil, fmt.Errorf("field %q: policy %s does not match schema policy %s", f.Name, field.Policy, declared.Policy)
		}
		if field.Type != nil && (declared.Type == nil || field.Type.Name() != declared.Type.Name()) {
			return nil, fmt.Errorf("field %q: type %s does not match schema type %s", f.Name, field.Type.Name(), typeName(declared.Type))
		}
	}
	return schema, nil
}

// Load parses data and builds the graph in one go.
func Load(data []byte, format Format, reg *registry.Registry, schema *domain.Schema, opts ...graph.CompileOption) (*graph.Graph, error) {
	doc, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	return doc.Build(reg, schema, opts...)
}

// LoadFile reads a topology file; the format comes from its extension.
func LoadFile(path string, reg *registry.Registry, schema *domain.Schema, opts ...graph.CompileOption) (*graph.Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology: %w", err)
	}
	return Load(data, format, reg, schema, opts...)
}

func typeName(t valuetype.Type) string {
	if t == nil {
		return "any"
	}
	return t.Name()
}
