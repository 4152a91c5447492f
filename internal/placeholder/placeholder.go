// Package placeholder handles ${NAME} variables inside snippet bodies.
//
// A placeholder is substituted with a user-supplied value right before the
// snippet is inserted into a page:
//
//	SELECT * FROM ${TABLE} WHERE id = ${ID}
//	  + {TABLE: "users", ID: "42"}
//	= SELECT * FROM users WHERE id = 42
//
// Names are trimmed ("${ TABLE }" is TABLE). Anything between "${" and the
// next "}" counts as a name, so extraction never silently drops a token the
// user typed; ValidName is offered separately for editors that want to warn.
package placeholder

import (
	"regexp"
	"strings"
)

var (
	tokenPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	namePattern  = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Extract returns the distinct placeholder names in body, in order of first
// appearance. A body without placeholders yields an empty, non-nil slice.
func Extract(body string) []string {
	names := []string{}
	seen := make(map[string]struct{})
	for _, m := range tokenPattern.FindAllStringSubmatch(body, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Replace substitutes every placeholder that has a value in values.
// Placeholders without a value are left exactly as written.
func Replace(body string, values map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := strings.TrimSpace(token[2 : len(token)-1])
		if v, ok := values[name]; ok {
			return v
		}
		return token
	})
}

// Has reports whether body contains at least one placeholder.
func Has(body string) bool {
	return tokenPattern.MatchString(body)
}

// ValidName reports whether name is a conventional identifier
// (letters, digits and underscores, not starting with a digit).
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}
