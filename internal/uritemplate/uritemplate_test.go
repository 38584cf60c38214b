// ABOUTME: Tests for URI template compilation and anchored matching.
// ABOUTME: Covers parameter extraction, escaping, and failure modes.

package uritemplate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_SingleParam(t *testing.T) {
	tmpl, err := Compile("user://{id}")
	require.NoError(t, err)

	params, ok := tmpl.Match("user://123")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "123"}, params)
}

func TestMatch_Anchored(t *testing.T) {
	tmpl, err := Compile("user://{id}")
	require.NoError(t, err)

	// Trailing segments must not match; placeholders stop at the separator.
	_, ok := tmpl.Match("user://123/extra")
	assert.False(t, ok)

	// Neither do prefixed candidates.
	_, ok = tmpl.Match("xuser://123")
	assert.False(t, ok)
}

func TestMatch_MultiParam(t *testing.T) {
	tmpl, err := Compile("user://{id}/posts/{post_id}")
	require.NoError(t, err)

	params, ok := tmpl.Match("user://7/posts/42")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"id": "7", "post_id": "42"}, params)

	_, ok = tmpl.Match("user://7/posts")
	assert.False(t, ok)
}

func TestMatch_EmptySegmentRejected(t *testing.T) {
	tmpl, err := Compile("user://{id}")
	require.NoError(t, err)

	// Placeholders match one or more characters, never zero.
	_, ok := tmpl.Match("user://")
	assert.False(t, ok)
}

func TestMatch_LiteralMetacharacters(t *testing.T) {
	tmpl, err := Compile("file://{name}.txt")
	require.NoError(t, err)

	params, ok := tmpl.Match("file://readme.txt")
	require.True(t, ok)
	assert.Equal(t, "readme", params["name"])

	// The dot is a literal, not a wildcard.
	_, ok = tmpl.Match("file://readmeXtxt")
	assert.False(t, ok)
}

func TestMatch_NoPlaceholders(t *testing.T) {
	tmpl, err := Compile("config://app")
	require.NoError(t, err)

	params, ok := tmpl.Match("config://app")
	require.True(t, ok)
	assert.Empty(t, params)

	_, ok = tmpl.Match("config://app/other")
	assert.False(t, ok)
}

func TestCompile_DuplicatePlaceholder(t *testing.T) {
	_, err := Compile("pair://{id}/{id}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate placeholder")
}

func TestNames_Ordered(t *testing.T) {
	tmpl, err := Compile("a://{x}/{y}/{z}")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, tmpl.Names())
}

func TestMustCompile_PanicsOnError(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile("pair://{id}/{id}")
	})
}
