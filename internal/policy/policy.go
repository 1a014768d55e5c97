// Package policy implements the model admission predicate.
package policy

// IsModelAllowed reports whether the requested model may be forwarded
// upstream. An empty allowlist admits every model. An entry matches either
// the bare model name or the provider-qualified form "<provider>/<model>".
// Matching is exact and case-sensitive.
func IsModelAllowed(allowlist []string, model, provider string) bool {
	if len(allowlist) == 0 {
		return true
	}
	qualified := provider + "/" + model
	for _, entry := range allowlist {
		if entry == model || entry == qualified {
			return true
		}
	}
	return false
}
