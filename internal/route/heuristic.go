package route

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	// Patterns for normalizing path segments
	uuidPattern    = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	numericPattern = regexp.MustCompile(`^\d+$`)
	hexPattern     = regexp.MustCompile(`^[0-9a-f]{8,}$`)
)

// NormalizeSegment returns the placeholder name for an identifier-like
// segment, or "" when the segment is static.
//   - numeric segments -> "id"
//   - UUID patterns -> "uuid"
//   - hex patterns (8+ chars) -> "hex"
func NormalizeSegment(segment string) string {
	lower := strings.ToLower(segment)

	// UUID first, it is the most specific
	if uuidPattern.MatchString(lower) {
		return "uuid"
	}
	if numericPattern.MatchString(segment) {
		return "id"
	}
	if hexPattern.MatchString(lower) {
		return "hex"
	}
	return ""
}

// HeuristicMatcher derives templates without a route table by replacing
// identifier-like segments with placeholders. Repeated placeholder names get
// a numeric suffix: /orgs/1/users/2 -> /orgs/{id}/users/{id_2}.
type HeuristicMatcher struct{}

// Match implements Matcher. It matches every absolute path.
func (HeuristicMatcher) Match(rawPath, _ string) (Route, bool) {
	path := Clean(rawPath)
	if !strings.HasPrefix(path, "/") {
		return Route{}, false
	}

	segments := strings.Split(path, "/")
	params := make(map[string]string)
	seen := make(map[string]int)

	for i, seg := range segments {
		if seg == "" {
			continue
		}
		name := NormalizeSegment(seg)
		if name == "" {
			continue
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		params[name] = seg
		segments[i] = "{" + name + "}"
	}

	template := strings.Join(segments, "/")
	return Route{Template: template, Params: params, Tag: TagFor(template)}, true
}
