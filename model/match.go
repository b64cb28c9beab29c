// model/match.go
package model

import "strings"

// AppliesTo reports whether the policy's subject, resource and action
// patterns all match the request identifiers.
func (p *Policy) AppliesTo(subject, resource, action string) bool {
	return MatchAny(p.SubjectPatterns, subject) &&
		MatchAny(p.ResourcePatterns, resource) &&
		MatchAny(p.ActionPatterns, action)
}

// MatchAny reports whether any pattern matches the value.
func MatchAny(patterns []string, value string) bool {
	for _, p := range patterns {
		if MatchPattern(p, value) {
			return true
		}
	}
	return false
}

// MatchPattern matches colon-segmented identifiers. `*` matches one whole
// segment; a trailing `*` matches all remaining segments. The bare pattern
// `*` matches anything.
func MatchPattern(pattern, value string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == value {
		return true
	}

	ps := strings.Split(pattern, ":")
	vs := strings.Split(value, ":")

	for i, seg := range ps {
		if seg == "*" && i == len(ps)-1 {
			// trailing wildcard swallows the rest
			return len(vs) >= i
		}
		if i >= len(vs) {
			return false
		}
		if seg != "*" && seg != vs[i] {
			return false
		}
	}
	return len(ps) == len(vs)
}
