package main

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"interview-relay/internal/profile"
)

func writeDocx(t *testing.T, path, text string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}
	_, _ = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write docx: %v", err)
	}
}

func TestRunWritesResumeKeepingOtherFields(t *testing.T) {
	dir := t.TempDir()
	store := profile.NewFileStore(filepath.Join(dir, "user_profile.json"))
	if err := store.Save(context.Background(), profile.Profile{JobDescription: "Data engineer", APIKey: "sk-keep"}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	resume := filepath.Join(dir, "resume.docx")
	writeDocx(t, resume, "Built ETL pipelines at Acme")

	var out bytes.Buffer
	if err := run(context.Background(), []string{resume, "--data-dir", dir}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "user_profile.json") {
		t.Fatalf("unexpected output %q", out.String())
	}

	p, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !strings.Contains(p.ResumeText, "Built ETL pipelines at Acme") {
		t.Fatalf("resume not written: %q", p.ResumeText)
	}
	if p.JobDescription != "Data engineer" || p.APIKey != "sk-keep" {
		t.Fatalf("other fields changed: %+v", p)
	}
}

func TestRunRequiresOneFile(t *testing.T) {
	if err := run(context.Background(), nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected usage error")
	}
}

func TestRunRejectsUnsupportedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := run(context.Background(), []string{path, "--data-dir", dir}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected extract error")
	}
	if _, err := os.Stat(filepath.Join(dir, "user_profile.json")); !os.IsNotExist(err) {
		t.Fatalf("profile must not be written on failure")
	}
}
