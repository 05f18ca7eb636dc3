package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/uscbytes/course-qa/internal/core/domain"
	"github.com/uscbytes/course-qa/internal/infrastructure/chunking"
	"github.com/uscbytes/course-qa/internal/infrastructure/index/diskindex"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError + 4}))
}

type embedderStub struct {
	calls int
}

func (e *embedderStub) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 0}
	}
	return out, nil
}

func (e *embedderStub) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 0}, nil
}

type extractorStub struct {
	text string
	err  error
}

func (x *extractorStub) Extract(string) (string, error) { return x.text, x.err }

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://x.edu/cs104/", "https://x.edu/cs104"},
		{"https://x.edu/cs104/#week3", "https://x.edu/cs104"},
		{"https://x.edu/cs104?utm=1", "https://x.edu/cs104"},
		{" https://x.edu/cs104 ", "https://x.edu/cs104"},
		{"not a url", ""},
		{"/relative/only", ""},
	}
	for _, tc := range cases {
		if got := normalizeURL(tc.in); got != tc.want {
			t.Errorf("normalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHTMLToTextDropsScriptsAndCollapsesSpace(t *testing.T) {
	body := `<html><head><style>.x{}</style><script>alert(1)</script></head>
	<body><h1>CS 104</h1><p>Office   hours:
	Tuesday</p><div>Room 12</div></body></html>`

	text := htmlToText(body)
	if strings.Contains(text, "alert") || strings.Contains(text, ".x{}") {
		t.Fatalf("script/style content leaked: %q", text)
	}
	for _, want := range []string{"CS 104", "Office hours: Tuesday", "Room 12"} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in %q", want, text)
		}
	}
}

func TestBuildEndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()
	mux.HandleFunc("/cs104/syllabus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>Grading is 40 percent homework and 60 percent exams.</p></body></html>")
	})

	dir := t.TempDir()
	siteURLs := filepath.Join(dir, "site_urls.json")
	writeJSON(t, siteURLs, []string{srv.URL + "/cs104/syllabus", srv.URL + "/cs104/syllabus/"})

	docs := filepath.Join(dir, "docs")
	if err := os.MkdirAll(filepath.Join(docs, "website_pdfs"), 0o755); err != nil {
		t.Fatal(err)
	}
	pdfPath := filepath.Join(docs, "website_pdfs", "hw1__12345678.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	pdfMapPath := filepath.Join(dir, "pdf_map.json")
	writeJSON(t, pdfMapPath, map[string]string{
		"website_pdfs/hw1__12345678.pdf": "https://x.edu/cs104/hw1.pdf",
	})

	indexPath := filepath.Join(dir, "index")
	embedder := &embedderStub{}
	b := NewBuilder(Config{
		SiteURLsPath: siteURLs,
		PDFMapPath:   pdfMapPath,
		DocsPath:     docs,
		IndexPath:    indexPath,
		EmbedModel:   "test-embed",
		BatchSize:    2,
	}, embedder, chunking.NewSplitter(0, 0), &extractorStub{text: "Homework 1 is due Friday at noon."}, quietLogger())

	if err := b.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	store, err := diskindex.Open(indexPath)
	if err != nil {
		t.Fatal(err)
	}
	// One page chunk (duplicate URL collapsed) plus one pdf chunk.
	if store.Len() != 2 {
		t.Fatalf("index holds %d chunks, want 2", store.Len())
	}
	if store.Manifest().EmbedModel != "test-embed" {
		t.Fatalf("manifest model = %q", store.Manifest().EmbedModel)
	}

	results, err := store.Search(context.Background(), []float32{30, 1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	var sawWebsite, sawPDF bool
	for _, r := range results {
		switch r.Metadata.SourceType {
		case domain.SourceCourseWebsite:
			sawWebsite = true
		case domain.SourceCoursePDF:
			sawPDF = true
			if r.Metadata.URL != "https://x.edu/cs104/hw1.pdf" {
				t.Fatalf("pdf chunk missing mapped source URL: %+v", r.Metadata)
			}
		}
	}
	if !sawWebsite || !sawPDF {
		t.Fatalf("expected both source types in %+v", results)
	}
}

func TestBuildRefusesEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	b := NewBuilder(Config{
		SiteURLsPath: filepath.Join(dir, "absent.json"),
		DocsPath:     filepath.Join(dir, "absent-docs"),
		IndexPath:    filepath.Join(dir, "index"),
		EmbedModel:   "test-embed",
	}, &embedderStub{}, chunking.NewSplitter(0, 0), &extractorStub{}, quietLogger())

	if err := b.Build(context.Background()); err == nil {
		t.Fatal("expected an error for empty content")
	}
	if _, err := os.Stat(filepath.Join(dir, "index")); !os.IsNotExist(err) {
		t.Fatal("empty index directory should not be written")
	}
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatal(err)
	}
}
