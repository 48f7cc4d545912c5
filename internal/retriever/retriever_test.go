package retriever

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/voiceline/voice-agent-backend/internal/search"
)

func writeCorpus(t *testing.T, dir, ns, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ns+".md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}
}

const hvacCorpus = `We service residential air conditioning units across the metro area, including emergency repairs on weekends.

Water heater installation is available Monday through Friday with same-week appointments in most cases.
`

func TestGetOrCreateRetrieves(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "examplehvac", hvacCorpus)
	c := NewCache(dir)

	r, err := c.GetOrCreate("examplehvac")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	got, err := r.Retrieve(context.Background(), "air conditioning repair", 0)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one passage")
	}
	if got[0].Score <= 0 {
		t.Errorf("score = %v, want > 0", got[0].Score)
	}
}

func TestGetOrCreateCachesInstance(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "examplehvac", hvacCorpus)
	c := NewCache(dir)

	a, err := c.GetOrCreate("examplehvac")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	b, err := c.GetOrCreate("examplehvac")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if a != b {
		t.Error("second GetOrCreate should return the cached retriever")
	}
}

func TestMissingCorpusServesEmptyRetriever(t *testing.T) {
	c := NewCache(t.TempDir())

	r, err := c.GetOrCreate("ghost")
	if err != nil {
		t.Fatalf("GetOrCreate for missing corpus: %v", err)
	}
	got, err := r.Retrieve(context.Background(), "anything at all", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("empty retriever returned %d passages", len(got))
	}
}

func TestInvalidateRebuildsFromDisk(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir, search.WithMinParagraphRunes(0))

	writeCorpus(t, dir, "acme", "We fix dishwashers and refrigerators.\n")
	r, err := c.GetOrCreate("acme")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if got, _ := r.Retrieve(context.Background(), "garage door springs", 3); len(got) != 0 {
		t.Fatalf("unexpected match before corpus update: %d", len(got))
	}

	writeCorpus(t, dir, "acme", "We replace garage door springs same day.\n")
	if !c.Invalidate("acme") {
		t.Fatal("Invalidate should report a dropped entry")
	}
	if c.Invalidate("acme") {
		t.Fatal("second Invalidate should report no entry")
	}

	r2, err := c.GetOrCreate("acme")
	if err != nil {
		t.Fatalf("GetOrCreate after invalidate: %v", err)
	}
	got, err := r2.Retrieve(context.Background(), "garage door springs", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("rebuilt retriever should see the new corpus")
	}
}

func TestRetrieveHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeCorpus(t, dir, "examplehvac", hvacCorpus)
	c := NewCache(dir)

	r, err := c.GetOrCreate("examplehvac")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Retrieve(ctx, "air conditioning", 3); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
