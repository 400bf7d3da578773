package route

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagFor(t *testing.T) {
	tests := []struct {
		template string
		expected string
	}{
		{"/users/{id}", "Users"},
		{"/api/v1/user_profiles/{id}", "User Profiles"},
		{"/API/V2/line-items", "Line Items"},
		{"/{tenant}/courses", "Courses"},
		{"/", DefaultTag},
		{"/{id}", DefaultTag},
	}

	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			assert.Equal(t, tt.expected, TagFor(tt.template))
		})
	}
}

func TestClean(t *testing.T) {
	assert.Equal(t, "/users/1", Clean("/users/1.json?include=posts"))
	assert.Equal(t, "/users", Clean("/users/"))
	assert.Equal(t, "/", Clean(""))
	assert.Equal(t, "/", Clean("/?q=1"))
	assert.Equal(t, "/a", Clean("/a#frag"))
}

func TestNormalizeSegment(t *testing.T) {
	tests := []struct {
		segment  string
		expected string
	}{
		{"123", "id"},
		{"550e8400-e29b-41d4-a716-446655440000", "uuid"},
		{"550E8400-E29B-41D4-A716-446655440000", "uuid"},
		{"deadbeef01", "hex"},
		{"users", ""},
		{"abc", ""},
		{"v1", ""},
	}

	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeSegment(tt.segment))
		})
	}
}

func TestHeuristicMatcher(t *testing.T) {
	m := HeuristicMatcher{}

	r, ok := m.Match("/orgs/42/users/7/files/550e8400-e29b-41d4-a716-446655440000.json?x=1", "GET")
	require.True(t, ok)
	assert.Equal(t, "/orgs/{id}/users/{id_2}/files/{uuid}", r.Template)
	assert.Equal(t, map[string]string{
		"id":   "42",
		"id_2": "7",
		"uuid": "550e8400-e29b-41d4-a716-446655440000",
	}, r.Params)
	assert.Equal(t, "Orgs", r.Tag)
	assert.Equal(t, []string{"id", "id_2", "uuid"}, r.ParamNames())

	r, ok = m.Match("/health", "GET")
	require.True(t, ok)
	assert.Equal(t, "/health", r.Template)
	assert.Empty(t, r.Params)

	_, ok = m.Match("relative/path", "GET")
	assert.False(t, ok)
}

func TestTemplateMatcher_Match(t *testing.T) {
	m := NewTemplateMatcher()
	require.NoError(t, m.Register("/users/{id}"))
	require.NoError(t, m.Register("/users/{user_id}/posts/{post_id}", WithTag("Posts")))
	require.NoError(t, m.Register("/search", WithMethods("post")))

	r, ok := m.Match("/users/17.json", "GET")
	require.True(t, ok)
	assert.Equal(t, "/users/{id}", r.Template)
	assert.Equal(t, map[string]string{"id": "17"}, r.Params)
	assert.Equal(t, "Users", r.Tag)

	r, ok = m.Match("/users/a%20b/posts/9?draft=true", "GET")
	require.True(t, ok)
	assert.Equal(t, "/users/{user_id}/posts/{post_id}", r.Template)
	assert.Equal(t, map[string]string{"user_id": "a b", "post_id": "9"}, r.Params)
	assert.Equal(t, "Posts", r.Tag)

	_, ok = m.Match("/search", "GET")
	assert.False(t, ok)
	r, ok = m.Match("/search", "POST")
	require.True(t, ok)
	assert.Empty(t, r.Params)

	_, ok = m.Match("/users", "GET")
	assert.False(t, ok)
	_, ok = m.Match("/users//posts/1", "GET")
	assert.False(t, ok)
}

func TestTemplateMatcher_FirstRegisteredWins(t *testing.T) {
	m := NewTemplateMatcher()
	require.NoError(t, m.Register("/users/{id}"))
	require.NoError(t, m.Register("/users/me"))

	r, ok := m.Match("/users/me", "GET")
	require.True(t, ok)
	assert.Equal(t, "/users/{id}", r.Template)
}

func TestTemplateMatcher_RegisterErrors(t *testing.T) {
	m := NewTemplateMatcher()
	for _, tmpl := range []string{"users/{id}", "/users/{id}/{id}", "/users/{id", "/users/{}"} {
		assert.ErrorIs(t, m.Register(tmpl), ErrInvalidTemplate, tmpl)
	}
	assert.Zero(t, m.Len())
}

func TestChain(t *testing.T) {
	table := NewTemplateMatcher()
	require.NoError(t, table.Register("/users/{user}"))
	chain := Chain{nil, table, HeuristicMatcher{}}

	r, ok := chain.Match("/users/5", "GET")
	require.True(t, ok)
	assert.Equal(t, "/users/{user}", r.Template)

	r, ok = chain.Match("/teams/5", "GET")
	require.True(t, ok)
	assert.Equal(t, "/teams/{id}", r.Template)

	_, ok = Chain{table}.Match("/teams/5", "GET")
	assert.False(t, ok)
}

func TestLoadTable(t *testing.T) {
	doc := `
routes:
  - template: /courses/{course_id}/assignments
    methods: [GET]
  - template: /courses/{course_id}
    tag: Course Admin
`
	m, err := LoadTable(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())

	r, ok := m.Match("/courses/3/assignments", "get")
	require.True(t, ok)
	assert.Equal(t, "Courses", r.Tag)

	_, ok = m.Match("/courses/3/assignments", "POST")
	assert.False(t, ok)

	r, ok = m.Match("/courses/3", "DELETE")
	require.True(t, ok)
	assert.Equal(t, "Course Admin", r.Tag)

	empty, err := LoadTable(strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, empty.Len())

	_, err = LoadTable(strings.NewReader("routes:\n  - template: nope\n"))
	assert.ErrorIs(t, err, ErrInvalidTemplate)
}
