package domain

import "strings"

// DefaultScope is granted when an authorization request names no scope.
const DefaultScope = "read"

// ParseScope splits a space-delimited scope string into its members,
// dropping empty entries and duplicates. Order of first appearance is kept
// so the granted scope string round-trips predictably.
func ParseScope(scope string) []string {
	fields := strings.Fields(scope)
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, s := range fields {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// JoinScope renders a scope set back to the space-delimited wire form.
func JoinScope(scopes []string) string {
	return strings.Join(scopes, " ")
}

// IntersectScope returns the members of requested that appear in allowed,
// preserving the order of requested.
func IntersectScope(requested, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// DisallowedScope returns the members of requested missing from allowed.
func DisallowedScope(requested, allowed []string) []string {
	set := make(map[string]struct{}, len(allowed))
	for _, s := range allowed {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range requested {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}
