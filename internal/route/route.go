// Package route maps raw request paths onto endpoint templates with {param}
// placeholders and derives the grouping tag of each template.
package route

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Route is the outcome of a successful match.
type Route struct {
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
	Tag      string            `json:"tag"`
}

// ParamNames returns the placeholder names of the template in path order.
func (r Route) ParamNames() []string {
	return ParamNames(r.Template)
}

// Matcher resolves a raw path and method to a route.
type Matcher interface {
	Match(rawPath, method string) (Route, bool)
}

// DefaultTag is used when a template has no static segment to name it by.
const DefaultTag = "Default"

var versionSegment = regexp.MustCompile(`^v\d+$`)

// TagFor derives a grouping tag from the first static segment of a template,
// skipping "api" and version prefixes: /api/v1/user_profiles/{id} -> "User Profiles".
func TagFor(template string) string {
	for _, seg := range strings.Split(template, "/") {
		lower := strings.ToLower(seg)
		if seg == "" || isParam(seg) || lower == "api" || versionSegment.MatchString(lower) {
			continue
		}
		words := strings.Map(func(r rune) rune {
			if r == '_' || r == '-' || r == '.' {
				return ' '
			}
			return r
		}, seg)
		// Casers carry state, so one per call
		return cases.Title(language.English).String(words)
	}
	return DefaultTag
}

// Clean strips the query string, a trailing slash and a trailing ".json"
// extension from a raw path.
func Clean(rawPath string) string {
	path, _, _ := strings.Cut(rawPath, "?")
	path, _, _ = strings.Cut(path, "#")
	path = strings.TrimSuffix(path, ".json")
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}
	return path
}

func isParam(seg string) bool {
	return len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// ParamNames returns the {placeholder} names of a template in path order.
func ParamNames(template string) []string {
	var names []string
	for _, seg := range strings.Split(template, "/") {
		if isParam(seg) {
			names = append(names, seg[1:len(seg)-1])
		}
	}
	return names
}

// Chain tries each matcher in order and returns the first match.
type Chain []Matcher

// Match implements Matcher.
func (c Chain) Match(rawPath, method string) (Route, bool) {
	for _, m := range c {
		if m == nil {
			continue
		}
		if r, ok := m.Match(rawPath, method); ok {
			return r, true
		}
	}
	return Route{}, false
}
