package docid

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestForURL(t *testing.T) {
	// Deterministic: same URL gives same ID
	id1 := ForURL("https://trahoang.com/about")
	id2 := ForURL("https://trahoang.com/about")
	if id1 != id2 {
		t.Errorf("same URL should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, webPrefix) {
		t.Errorf("ID should have prefix %q: got %q", webPrefix, id1)
	}
	if id1 == ForURL("https://trahoang.com/faqs") {
		t.Error("different URLs should give different IDs")
	}
}

func TestForURL_normalized(t *testing.T) {
	base := ForURL("https://trahoang.com/about")
	for _, u := range []string{
		"https://TRAHOANG.com/about",
		"https://trahoang.com/about/",
		"https://trahoang.com/about#team",
		"  https://trahoang.com/about ",
	} {
		if got := ForURL(u); got != base {
			t.Errorf("ForURL(%q) = %q, want %q", u, got, base)
		}
	}
}

func TestForFile(t *testing.T) {
	id := ForFile("/data/resume.pdf", 0)
	if !strings.HasPrefix(id, filePrefix) || !strings.HasSuffix(id, ":0") {
		t.Errorf("unexpected ID %q", id)
	}
	if id == ForFile("/data/resume.pdf", 1) {
		t.Error("different pages should give different IDs")
	}
	if id != ForFile(filepath.Join("/data", ".", "resume.pdf"), 0) {
		t.Error("cleaned paths should match")
	}
}

func TestChunk(t *testing.T) {
	if got := Chunk("web:abc", 3); got != "web:abc_3" {
		t.Errorf("Chunk = %q", got)
	}
}
