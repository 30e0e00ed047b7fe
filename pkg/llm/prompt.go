package llm

import (
	"fmt"
	"regexp"
)

// placeholderPattern matches {name} where name is a Go-style identifier.
// Doubled braces ({{, }}) pass through untouched so prompts can demand
// literal JSON from the model.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Expand substitutes {name} placeholders in a prompt template with values
// from vars. Placeholders with no matching key are an error: a prompt
// sent with a dangling placeholder is almost always a bug, not intent.
func Expand(template string, vars map[string]string) (string, error) {
	var missing []string
	expanded := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt template: unbound placeholders %v", missing)
	}
	return expanded, nil
}

// MustExpand is Expand for templates known correct at compile time.
// Panics on unbound placeholders.
func MustExpand(template string, vars map[string]string) string {
	out, err := Expand(template, vars)
	if err != nil {
		panic(err)
	}
	return out
}
