// Package pattern provides the shell-glob matching used by every
// capability check in the authorization layer. Patterns support `*`
// (any run of characters) and `?` (any single character) and are
// case-sensitive otherwise.
package pattern

import (
	"fmt"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSize bounds the compiled-pattern cache. Restriction and role
// documents reuse a small set of patterns, so a modest bound suffices.
const cacheSize = 1024

var compiled, _ = lru.New[string, glob.Glob](cacheSize)

// compile returns a compiled glob for the given pattern, consulting the
// process-wide cache first.
func compile(pattern string) (glob.Glob, error) {
	if g, ok := compiled.Get(pattern); ok {
		return g, nil
	}

	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	compiled.Add(pattern, g)
	return g, nil
}

// Match reports whether subject matches the given glob pattern. It fails
// only when the pattern itself cannot be compiled.
func Match(pattern, subject string) (bool, error) {
	g, err := compile(pattern)
	if err != nil {
		return false, err
	}

	return g.Match(subject), nil
}

// Matches reports whether subject matches the given pattern, treating an
// uncompilable pattern as a non-match. Authorization checks use this
// form: a malformed pattern must never grant access.
func Matches(pattern, subject string) bool {
	ok, err := Match(pattern, subject)
	return err == nil && ok
}

// MatchesAny reports whether subject matches any of the given patterns.
func MatchesAny(patterns []string, subject string) bool {
	for _, p := range patterns {
		if Matches(p, subject) {
			return true
		}
	}

	return false
}
