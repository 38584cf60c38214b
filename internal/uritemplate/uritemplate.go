// ABOUTME: URI template compilation and matching for resource routing.
// ABOUTME: Templates use {name} placeholders matched against whole URIs.

package uritemplate

import (
	"fmt"
	"regexp"
	"strings"
)

// placeholderPattern matches {name} tokens in a template.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Template is a compiled URI template. Compile once at registration time;
// Match is safe for concurrent use.
type Template struct {
	pattern string
	names   []string
	re      *regexp.Regexp
}

// Compile parses a URI template such as "user://{id}/posts/{post_id}".
// Literal characters are matched exactly (metacharacters escaped); each
// placeholder matches one or more characters excluding the path separator.
// Placeholder names must be unique within one template.
func Compile(pattern string) (*Template, error) {
	locs := placeholderPattern.FindAllStringSubmatchIndex(pattern, -1)

	names := make([]string, 0, len(locs))
	seen := make(map[string]struct{}, len(locs))

	var b strings.Builder
	b.WriteString("^")
	last := 0
	for _, loc := range locs {
		name := pattern[loc[2]:loc[3]]
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("duplicate placeholder %q in template %q", name, pattern)
		}
		seen[name] = struct{}{}
		names = append(names, name)

		b.WriteString(regexp.QuoteMeta(pattern[last:loc[0]]))
		b.WriteString("([^/]+)")
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(pattern[last:]))
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("compiling template %q: %w", pattern, err)
	}

	return &Template{pattern: pattern, names: names, re: re}, nil
}

// MustCompile is Compile that panics on error, for static registrations.
func MustCompile(pattern string) *Template {
	t, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the original template string.
func (t *Template) Pattern() string {
	return t.pattern
}

// Names returns the ordered placeholder names.
func (t *Template) Names() []string {
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Match applies the template to a candidate URI as a whole-string match.
// On success it returns the placeholder names zipped with their captured
// substrings; on failure it returns (nil, false).
func (t *Template) Match(uri string) (map[string]string, bool) {
	m := t.re.FindStringSubmatch(uri)
	if m == nil {
		return nil, false
	}
	params := make(map[string]string, len(t.names))
	for i, name := range t.names {
		params[name] = m[i+1]
	}
	return params, true
}
