// Package openapi wraps operation fragments in an OpenAPI 3 envelope and
// serialises the document as JSON or YAML.
package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/usestring/apirecord/internal/catalog"
)

// Version is the OpenAPI version written into every document.
const Version = "3.0.0"

// Info is the document's info block.
type Info struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// DefaultInfo is used when no title or version is configured.
var DefaultInfo = Info{Title: "API", Version: "v1"}

// Document is a complete OpenAPI document. Paths maps a template to its
// operations keyed by lower-case method.
type Document struct {
	OpenAPI string                                           `json:"openapi"`
	Info    Info                                             `json:"info"`
	Paths   map[string]map[string]*catalog.OperationFragment `json:"paths"`
}

// Build assembles the document envelope around entries.
func Build(info Info, entries []catalog.Entry) *Document {
	if info.Title == "" {
		info.Title = DefaultInfo.Title
	}
	if info.Version == "" {
		info.Version = DefaultInfo.Version
	}

	doc := &Document{
		OpenAPI: Version,
		Info:    info,
		Paths:   make(map[string]map[string]*catalog.OperationFragment),
	}
	for _, e := range entries {
		ops, ok := doc.Paths[e.Key.Endpoint]
		if !ok {
			ops = make(map[string]*catalog.OperationFragment)
			doc.Paths[e.Key.Endpoint] = ops
		}
		ops[strings.ToLower(e.Key.Method)] = e.Fragment
	}
	return doc
}

// Format is a serialisation format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts yaml, yml and json in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown document format %q", s)
	}
}

// Marshal serialises the document. JSON is indented; YAML keeps the JSON key
// order.
func Marshal(doc *Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return marshalYAML(doc)
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
}

// Write serialises the document to w.
func Write(w io.Writer, doc *Document, format Format) error {
	data, err := Marshal(doc, format)
	if err != nil {
		return err
	}
	if format == FormatJSON {
		data = append(data, '\n')
	}
	_, err = w.Write(data)
	return err
}

// marshalYAML re-parses the JSON form into a node tree so the ordering chosen
// by the JSON encoders (struct fields, sorted map keys, invopop property
// order) survives.
func marshalYAML(doc *Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling document: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("converting document: %w", err)
	}
	clearStyle(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// clearStyle switches JSON flow collections and quoted scalars to block
// style. The encoder still quotes strings that would otherwise resolve to
// another type, like "200".
func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
