package changelog

import "strings"

// ParseContexts splits a comma-separated context list, trimming blanks and
// lower-casing each entry.
func ParseContexts(expr string) []string {
	var out []string

	for _, part := range strings.Split(expr, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" || part == "!" {
			continue
		}

		out = append(out, part)
	}

	return out
}

// Eligible reports whether a change set declaring the given contexts runs
// under the active filter.
//
// Everything is eligible when the filter is empty or the change set declares
// nothing. Otherwise a positive context must be active, or a negated one
// ("!prod") must be inactive.
func Eligible(active, declared []string) bool {
	if len(active) == 0 || len(declared) == 0 {
		return true
	}

	on := make(map[string]bool, len(active))
	for _, a := range active {
		on[a] = true
	}

	for _, d := range declared {
		if name, negated := strings.CutPrefix(d, "!"); negated {
			if !on[name] {
				return true
			}

			continue
		}

		if on[d] {
			return true
		}
	}

	return false
}
