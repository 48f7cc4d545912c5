// Package tenant maps human-readable business names to the sanitized
// namespaces used as partition keys in the retrieval index and as row keys in
// the relational tables. Resolution is a pure string transform with no side
// effects.
package tenant

import (
	"errors"
	"strings"
	"unicode"
)

// MinNamespaceLen is the minimum length of a sanitized namespace. It is
// enforced at ingestion time only; the webhook path accepts whatever arrives
// in the URL so that a live call is never rejected over a naming rule.
const MinNamespaceLen = 3

// ErrInvalidTenantName is returned when a business name sanitizes to a
// namespace shorter than MinNamespaceLen.
var ErrInvalidTenantName = errors.New("sanitized business name is too short")

// Resolve filters businessName down to lowercase alphanumerics plus '_' and
// '-'. It is deterministic and idempotent: resolving an already-resolved
// namespace returns it unchanged.
func Resolve(businessName string) string {
	var b strings.Builder
	b.Grow(len(businessName))
	for _, r := range businessName {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		case r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ResolveStrict resolves businessName and additionally enforces the minimum
// namespace length. Use it on ingestion paths; the webhook path calls Resolve
// directly.
func ResolveStrict(businessName string) (string, error) {
	ns := Resolve(businessName)
	if len(ns) < MinNamespaceLen {
		return "", ErrInvalidTenantName
	}
	return ns, nil
}
