package tenant

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Example HVAC", "examplehvac"},
		{"Example-HVAC, Inc.", "example-hvacinc"},
		{"  Bob's Plumbing  ", "bobsplumbing"},
		{"snake_case_name", "snake_case_name"},
		{"ÜBER Küche", "überküche"},
		{"!!!", ""},
	}
	for _, tc := range cases {
		if got := Resolve(tc.in); got != tc.want {
			t.Errorf("Resolve(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestResolveIdempotent(t *testing.T) {
	inputs := []string{"Example HVAC", "A&B Heating", "plain", "Mixed-Case_99"}
	for _, in := range inputs {
		once := Resolve(in)
		if twice := Resolve(once); twice != once {
			t.Errorf("Resolve not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestResolveStrict(t *testing.T) {
	if _, err := ResolveStrict("ab"); !errors.Is(err, ErrInvalidTenantName) {
		t.Fatalf("expected ErrInvalidTenantName for short name, got %v", err)
	}
	if _, err := ResolveStrict("!?"); !errors.Is(err, ErrInvalidTenantName) {
		t.Fatalf("expected ErrInvalidTenantName for all-punctuation name, got %v", err)
	}
	ns, err := ResolveStrict("Example HVAC")
	if err != nil || ns != "examplehvac" {
		t.Fatalf("ResolveStrict: ns=%q err=%v", ns, err)
	}
}
