package walker

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/statfungen/transferkit/errors"
	"github.com/statfungen/transferkit/xfertypes"
)

// Criterion is a compiled match filter. An empty pattern matches
// everything.
//
// Glob and exact patterns normally match an entry's leaf name. A glob
// holding a multi-level wildcard (**) or a path separator, or a regex
// holding a path separator, instead matches the full path relative to
// the walk root, and forces a recursive walk so there is a full path to
// match against.
type Criterion struct {
	pattern  string
	kind     xfertypes.PatternType
	fullPath bool
	re       *regexp.Regexp
}

// NewCriterion compiles a pattern of the given type.
func NewCriterion(pattern string, kind xfertypes.PatternType) (*Criterion, error) {
	c := &Criterion{pattern: pattern, kind: kind}
	if pattern == "" {
		return c, nil
	}

	switch kind {
	case xfertypes.PatternRegex:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.New("match",
				fmt.Errorf("%w: invalid regex %q: %v", errors.ErrInvalidInput, pattern, err))
		}
		c.re = re
		// A separator in the regex can only ever match a full relative
		// path, never a leaf name.
		c.fullPath = strings.Contains(pattern, "/")
	case xfertypes.PatternGlob:
		c.fullPath = strings.Contains(pattern, "**") || strings.Contains(pattern, "/")
		if c.fullPath {
			re, err := globToRegexp(pattern)
			if err != nil {
				return nil, errors.New("match",
					fmt.Errorf("%w: invalid glob %q: %v", errors.ErrInvalidInput, pattern, err))
			}
			c.re = re
		} else if _, err := path.Match(pattern, "probe"); err != nil {
			return nil, errors.New("match",
				fmt.Errorf("%w: invalid glob %q: %v", errors.ErrInvalidInput, pattern, err))
		}
	case xfertypes.PatternExact:
		// Nothing to compile.
	default:
		return nil, errors.New("match",
			fmt.Errorf("%w: unknown pattern type %q", errors.ErrInvalidInput, kind))
	}
	return c, nil
}

// Empty reports whether the criterion matches everything.
func (c *Criterion) Empty() bool {
	return c.pattern == ""
}

// ForcesRecursive reports whether the pattern only makes sense against
// full relative paths, requiring a recursive walk regardless of the
// requested scope.
func (c *Criterion) ForcesRecursive() bool {
	return c.fullPath
}

// Match reports whether an entry matches. relPath is the entry's path
// relative to the walk root, name its leaf name.
func (c *Criterion) Match(relPath, name string) bool {
	if c.pattern == "" {
		return true
	}

	switch c.kind {
	case xfertypes.PatternRegex:
		return c.re.MatchString(relPath)
	case xfertypes.PatternGlob:
		if c.fullPath {
			return c.re.MatchString(relPath)
		}
		ok, _ := path.Match(c.pattern, name)
		return ok
	case xfertypes.PatternExact:
		return name == c.pattern
	default:
		return false
	}
}

// globToRegexp translates a slash-separated glob into an anchored
// regexp. ** crosses path separators, * and ? stay within one segment.
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteString("^")

	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '*':
			if i+1 < len(runes) && runes[i+1] == '*' {
				sb.WriteString(".*")
				i++
			} else {
				sb.WriteString("[^/]*")
			}
		case '?':
			sb.WriteString("[^/]")
		default:
			sb.WriteString(regexp.QuoteMeta(string(runes[i])))
		}
	}

	sb.WriteString("$")
	return regexp.Compile(sb.String())
}
