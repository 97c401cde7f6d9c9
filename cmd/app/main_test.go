package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/skillview/internal/viewer"
)

// failAfter accepts n writes and then fails.
type failAfter struct{ n int }

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n == 0 {
		return 0, errors.New("disk full")
	}
	f.n--
	return len(p), nil
}

func TestWriteView_EscapesHeader(t *testing.T) {
	var buf bytes.Buffer
	v := viewer.View{
		State: viewer.DocumentDisplayed,
		Title: "<script>alert(1)</script>",
		Usage: "Usage: a < b & c",
		Body:  "<p>ok</p>",
	}
	if err := writeView(&buf, v); err != nil {
		t.Fatalf("writeView: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "<script>") {
		t.Errorf("title not escaped: %q", out)
	}
	for _, want := range []string{
		"<h1>&lt;script&gt;alert(1)&lt;/script&gt;</h1>",
		"<p>Usage: a &lt; b &amp; c</p>",
		"<p>ok</p>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestWriteView_LoadFailed(t *testing.T) {
	var buf bytes.Buffer
	v := viewer.View{State: viewer.LoadFailed, Title: "Foo", Message: viewer.FallbackMessage}
	if err := writeView(&buf, v); err == nil {
		t.Fatal("expected error for failed load")
	}
	if !strings.Contains(buf.String(), viewer.FallbackMessage) {
		t.Errorf("fallback message missing: %q", buf.String())
	}
}

func TestWriteView_WriteErrors(t *testing.T) {
	displayed := viewer.View{State: viewer.DocumentDisplayed, Title: "T", Usage: "Usage: u", Body: "b"}
	failed := viewer.View{State: viewer.LoadFailed, Title: "T", Usage: "Usage: u", Message: "m"}

	tests := []struct {
		name string
		v    viewer.View
		n    int
	}{
		{"title", displayed, 0},
		{"usage", displayed, 1},
		{"body", displayed, 2},
		{"message", failed, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writeView(&failAfter{n: tt.n}, tt.v)
			if err == nil || err.Error() != "disk full" {
				t.Errorf("err = %v, want disk full", err)
			}
		})
	}
}

// contentRoot writes one skill folder from the built-in catalog.
func contentRoot(t *testing.T, skill string) string {
	t.Helper()
	dir := t.TempDir()
	folder := filepath.Join(dir, "app-store-changelog")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(folder, "SKILL.md"), []byte(skill), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestExecute_Render(t *testing.T) {
	dir := contentRoot(t, "---\nname: \"<b>Changelog</b>\"\n---\n# Notes\n\n## Overview\nWrites notes.\n")
	out := captureStdout(t)

	code := execute(context.Background(), []string{
		"skillview",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--content-root", dir,
		"render", "--entry", "app-store-changelog",
	})
	if code != 0 {
		t.Fatalf("exit status = %d, want 0", code)
	}
	got := out.String()
	for _, want := range []string{
		"<h1>&lt;b&gt;Changelog&lt;/b&gt;</h1>",
		"<p>Usage: Writes notes.</p>",
		"<h2",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestExecute_RenderMissingDocumentExitsNonZero(t *testing.T) {
	dir := contentRoot(t, "# Changelog\n")
	out := captureStdout(t)

	code := execute(context.Background(), []string{
		"skillview",
		"--config", filepath.Join(dir, "missing.yaml"),
		"--content-root", dir,
		"render", "--entry", "app-store-changelog", "--document", "references/release-notes-guidelines.md",
	})
	if code != 1 {
		t.Fatalf("exit status = %d, want 1", code)
	}
	if !strings.Contains(out.String(), viewer.FallbackMessage) {
		t.Errorf("fallback message missing: %q", out.String())
	}
}
