package route

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// ErrInvalidTemplate is returned when a template cannot be registered.
var ErrInvalidTemplate = errors.New("invalid route template")

type entry struct {
	template string
	segments []string
	methods  map[string]bool // nil matches any method
	tag      string
}

// TemplateMatcher matches paths against registered templates. The first
// registered template that matches wins.
type TemplateMatcher struct {
	mu      sync.RWMutex
	entries []entry
}

// NewTemplateMatcher creates an empty matcher.
func NewTemplateMatcher() *TemplateMatcher {
	return &TemplateMatcher{}
}

// RegisterOption customises a registered template.
type RegisterOption func(*entry)

// WithMethods restricts a template to the given HTTP methods.
func WithMethods(methods ...string) RegisterOption {
	return func(e *entry) {
		if len(methods) == 0 {
			return
		}
		e.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			e.methods[strings.ToUpper(m)] = true
		}
	}
}

// WithTag overrides the derived grouping tag.
func WithTag(tag string) RegisterOption {
	return func(e *entry) {
		if tag != "" {
			e.tag = tag
		}
	}
}

// Register adds a template such as /users/{id}/posts/{post_id}.
func (m *TemplateMatcher) Register(template string, opts ...RegisterOption) error {
	if !strings.HasPrefix(template, "/") {
		return fmt.Errorf("%w: %q must start with /", ErrInvalidTemplate, template)
	}

	names := make(map[string]bool)
	for _, seg := range strings.Split(template, "/") {
		if strings.ContainsAny(seg, "{}") && !isParam(seg) {
			return fmt.Errorf("%w: malformed placeholder %q in %q", ErrInvalidTemplate, seg, template)
		}
		if isParam(seg) {
			name := seg[1 : len(seg)-1]
			if names[name] {
				return fmt.Errorf("%w: duplicate placeholder %q in %q", ErrInvalidTemplate, name, template)
			}
			names[name] = true
		}
	}

	e := entry{
		template: template,
		segments: strings.Split(Clean(template), "/"),
		tag:      TagFor(template),
	}
	for _, opt := range opts {
		opt(&e)
	}

	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	return nil
}

// Len returns the number of registered templates.
func (m *TemplateMatcher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Match implements Matcher.
func (m *TemplateMatcher) Match(rawPath, method string) (Route, bool) {
	segments := strings.Split(Clean(rawPath), "/")
	method = strings.ToUpper(method)

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.entries {
		if e.methods != nil && !e.methods[method] {
			continue
		}
		if params, ok := matchSegments(e.segments, segments); ok {
			return Route{Template: e.template, Params: params, Tag: e.tag}, true
		}
	}
	return Route{}, false
}

func matchSegments(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, p := range pattern {
		seg := segments[i]
		if isParam(p) {
			if seg == "" {
				return nil, false
			}
			if unescaped, err := url.PathUnescape(seg); err == nil {
				seg = unescaped
			}
			params[p[1:len(p)-1]] = seg
			continue
		}
		if p != seg {
			return nil, false
		}
	}
	return params, true
}

// TableEntry is one route of a YAML route table.
type TableEntry struct {
	Template string   `yaml:"template"`
	Methods  []string `yaml:"methods,omitempty"`
	Tag      string   `yaml:"tag,omitempty"`
}

// Table is the YAML document read by LoadTable:
//
//	routes:
//	  - template: /users/{id}
//	    methods: [GET, PUT]
//	    tag: Users
type Table struct {
	Routes []TableEntry `yaml:"routes"`
}

// LoadTable reads a YAML route table into a new matcher.
func LoadTable(r io.Reader) (*TemplateMatcher, error) {
	var table Table
	if err := yaml.NewDecoder(r).Decode(&table); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding route table: %w", err)
	}

	m := NewTemplateMatcher()
	for i, rt := range table.Routes {
		if err := m.Register(rt.Template, WithMethods(rt.Methods...), WithTag(rt.Tag)); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
	}
	return m, nil
}
