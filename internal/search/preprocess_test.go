package search

import (
	"strings"
	"testing"
)

func TestFlattenCorpusTables(t *testing.T) {
	in := strings.Join([]string{
		"# Services",
		"",
		"| Service | Price |",
		"| ------- | ----- |",
		"| AC tune-up | $89 |",
		"| Furnace inspection | $99 |",
	}, "\n")

	out, err := FlattenCorpus(strings.NewReader(in))
	if err != nil {
		t.Fatalf("FlattenCorpus: %v", err)
	}
	s := string(out)

	if strings.Contains(s, "|") {
		t.Errorf("output still contains table markup:\n%s", s)
	}
	if !strings.Contains(s, "AC tune-up $89") {
		t.Errorf("row not flattened into a fact:\n%s", s)
	}
	if strings.Contains(s, "-------") {
		t.Errorf("separator row leaked into output:\n%s", s)
	}
	if strings.Contains(s, "#") {
		t.Errorf("heading marker leaked into output:\n%s", s)
	}
	if !strings.HasSuffix(s, "\n") || strings.HasSuffix(s, "\n\n") {
		t.Errorf("expected exactly one trailing newline, got %q tail", s[len(s)-2:])
	}
}

func TestFlattenCorpusProseUntouched(t *testing.T) {
	in := "We repair heat pumps.\n\nWe also install thermostats.\n"
	out, err := FlattenCorpus(strings.NewReader(in))
	if err != nil {
		t.Fatalf("FlattenCorpus: %v", err)
	}
	if string(out) != in {
		t.Errorf("prose without tables should pass through unchanged:\ngot  %q\nwant %q", out, in)
	}
}
