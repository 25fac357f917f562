// Package envsubst expands ${NAME} placeholders from an explicit environment.
package envsubst

import (
	"regexp"
	"strings"
)

// Env maps variable names to values.
type Env map[string]string

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// FromEnviron builds an Env from KEY=VALUE pairs as returned by os.Environ.
// Entries without '=' are skipped; the first '=' splits key from value.
func FromEnviron(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Expand replaces every ${NAME} whose NAME is set in env. Unknown names are
// left as literal text. A variable set to the empty string expands to "".
func Expand(template string, env Env) string {
	if !strings.Contains(template, "${") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := m[2 : len(m)-1]
		if v, ok := env[name]; ok {
			return v
		}
		return m
	})
}
