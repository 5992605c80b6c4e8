package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/embedding"
	"github.com/hyperjump/manabu/internal/generation"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/pipeline"
	"github.com/hyperjump/manabu/internal/retrieval"
	"github.com/hyperjump/manabu/internal/server"
	"github.com/hyperjump/manabu/internal/storage"
	"github.com/hyperjump/manabu/internal/vector"
)

const e2eDimensions = 1024

// newPipeline wires the offline stack over corpusDir with a file-backed chunk store.
func newPipeline(t *testing.T, corpusDir string, minScore float64) *pipeline.Pipeline {
	t.Helper()
	cfg := &config.Config{Corpus: config.CorpusConfig{Directory: corpusDir}}
	config.ApplyDefaults(cfg)
	cfg.Retrieval.MinScore = minScore

	embedder, err := embedding.NewHashingEmbedder(e2eDimensions)
	if err != nil {
		t.Fatal(err)
	}
	index, err := vector.NewMemoryIndex(e2eDimensions)
	if err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "manabu.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = store.Close()
		_ = index.Close()
	})
	return pipeline.New(pipeline.Deps{
		Embedder:  embedder,
		Index:     index,
		Store:     store,
		Corpus:    cfg.Corpus,
		Retrieval: cfg.Retrieval,
	})
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}
}

func buildRetriever(t *testing.T, p *pipeline.Pipeline) *retrieval.Retriever {
	t.Helper()
	ctx := context.Background()
	if _, err := p.Build(ctx); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	r, err := p.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestE2E_SOPDocumentSections(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "refunds.docx"), SOPDocx([]Section{
		{Heading: "Refund Approval", Paragraphs: []string{"Refunds above five hundred dollars need approval from a finance manager."}},
		{Heading: "Chargeback Handling", Paragraphs: []string{"Respond to card chargeback disputes within seven days with the signed invoice."}},
	}))
	p := newPipeline(t, dir, 0)
	r := buildRetriever(t, p)

	report := p.Report()
	if report.Files != 1 || report.Chunks != 2 {
		t.Fatalf("report = %d files, %d chunks; want 1, 2", report.Files, report.Chunks)
	}

	result, err := r.Retrieve(context.Background(), "who approves refunds above five hundred dollars")
	if err != nil {
		t.Fatal(err)
	}
	top := result.Chunks[0]
	if top.SectionLabel != "Refund Approval" || top.SourceFile != "refunds.docx" || top.Rank != 1 {
		t.Errorf("top chunk = %s/%s rank %d, want refunds.docx/Refund Approval rank 1", top.SourceFile, top.SectionLabel, top.Rank)
	}
	if !strings.HasPrefix(top.Text, "Refund Approval\n\n") {
		t.Errorf("section text should start with its heading, got %q", top.Text)
	}
	ctxText := retrieval.FormatContext(result)
	if !strings.HasPrefix(ctxText, "[Source 1] | File: refunds.docx | Type: SOP | Section: Refund Approval\n") {
		t.Errorf("FormatContext() = %q", ctxText)
	}
}

func TestE2E_FAQWorkbookRows(t *testing.T) {
	dir := t.TempDir()
	xlsx, err := Workbook("FAQ", [][]string{
		{"Question", "Answer", "Resource Link"},
		{"How do I book a meeting room?", "Book meeting rooms through the calendar resource finder.", "https://intranet.example/rooms"},
		{"Who do I call for a building emergency?", "Call building security at extension 4444.", ""},
		{"How do I order business cards?", "Order business cards from the print shop form.", ""},
	})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "faq.xlsx"), xlsx)
	p := newPipeline(t, dir, 0)
	r := buildRetriever(t, p)

	if got := p.Report().Chunks; got != 3 {
		t.Fatalf("chunks = %d, want 3", got)
	}

	asker := generation.NewAsker(generation.ExtractiveGenerator{}, nil)
	resp, err := asker.Ask(context.Background(), r, &models.RetrieveRequest{Query: "book a meeting room"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Answer, "Book meeting rooms through the calendar resource finder.") {
		t.Errorf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("no sources")
	}
	src := resp.Sources[0]
	if !src.IsFAQ || src.Label != "How do I book a meeting room?" || src.Related != "https://intranet.example/rooms" {
		t.Errorf("first source = %+v", src)
	}
	if !strings.Contains(resp.Answer, "Related Resource: https://intranet.example/rooms") {
		t.Errorf("answer should carry the related resource: %q", resp.Answer)
	}
}

func TestE2E_CorruptFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "expenses.docx"), SOPDocx([]Section{
		{Heading: "Meal Allowance", Paragraphs: []string{"Meals are reimbursed up to forty dollars per day."}},
		{Heading: "Mileage", Paragraphs: []string{"Personal car mileage is reimbursed at the published federal rate."}},
	}))
	writeFile(t, filepath.Join(dir, "broken.docx"), []byte("this is not a zip archive"))
	p := newPipeline(t, dir, 0)
	r := buildRetriever(t, p)

	report := p.Report()
	if report.Files != 1 || report.Chunks != 2 {
		t.Errorf("report = %d files, %d chunks; want 1, 2", report.Files, report.Chunks)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Path != "broken.docx" {
		t.Fatalf("skipped = %+v, want only broken.docx", report.Skipped)
	}
	if len(report.Sources) != 1 || report.Sources[0].Name != "expenses.docx" {
		t.Errorf("sources = %+v, want only expenses.docx", report.Sources)
	}

	result, err := r.Retrieve(context.Background(), "meals reimbursed per day")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, c := range result.Chunks {
		if c.SourceFile != "expenses.docx" {
			t.Errorf("chunk from %q, want only expenses.docx", c.SourceFile)
		}
	}
	if top := result.Chunks[0]; top.SectionLabel != "Meal Allowance" {
		t.Errorf("top section = %q, want Meal Allowance", top.SectionLabel)
	}
}

func TestE2E_NoRelevantContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "policy.md"), []byte("# Dress Code\n\nBusiness casual attire is expected in the office.\n"))
	p := newPipeline(t, dir, config.DefaultMinScore)
	r := buildRetriever(t, p)

	query := "quantum chromodynamics lattice simulation"
	result, err := r.Retrieve(context.Background(), query)
	if !errors.Is(err, models.ErrNoRelevantContext) {
		t.Fatalf("err = %v, want ErrNoRelevantContext", err)
	}
	if result.Len() != 0 {
		t.Errorf("got %d chunks, want 0", result.Len())
	}
	if got := retrieval.FormatContext(result); got != retrieval.NoDocumentsText {
		t.Errorf("FormatContext() = %q", got)
	}

	asker := generation.NewAsker(generation.ExtractiveGenerator{}, nil)
	resp, err := asker.Ask(context.Background(), r, &models.RetrieveRequest{Query: query})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.NoRelevantContext || resp.Answer != generation.FallbackAnswer {
		t.Errorf("ask = %+v, want fallback answer", resp)
	}
}

func TestE2E_CorpusQueries(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	if err := corpus.WriteTo(dir); err != nil {
		t.Fatal(err)
	}
	p := newPipeline(t, dir, 0.1)
	r := buildRetriever(t, p)

	report := p.Report()
	if report.Files != len(corpus.Files) || report.Chunks != corpus.Chunks {
		t.Fatalf("report = %d files, %d chunks; want %d, %d", report.Files, report.Chunks, len(corpus.Files), corpus.Chunks)
	}
	if len(report.Skipped) != 0 {
		t.Errorf("skipped = %+v", report.Skipped)
	}

	for _, tc := range corpus.TestCases {
		t.Run(tc.Description+"/"+tc.ExpectedLabel, func(t *testing.T) {
			result, err := r.Retrieve(context.Background(), tc.Query)
			if err != nil {
				t.Fatalf("Retrieve(%q) error = %v", tc.Query, err)
			}
			top := result.Chunks[0]
			if top.SourceFile != tc.ExpectedFile || top.SectionLabel != tc.ExpectedLabel {
				t.Errorf("Retrieve(%q) top = %s / %s, want %s / %s",
					tc.Query, top.SourceFile, top.SectionLabel, tc.ExpectedFile, tc.ExpectedLabel)
			}
			for i := 1; i < result.Len(); i++ {
				if result.Chunks[i].Score > result.Chunks[i-1].Score {
					t.Errorf("results not sorted by score at %d", i)
				}
			}
		})
	}
}

func TestE2E_ServerFlow(t *testing.T) {
	dir := t.TempDir()
	corpus := BuildCorpus()
	if err := corpus.WriteTo(dir); err != nil {
		t.Fatal(err)
	}
	p := newPipeline(t, dir, 0.1)
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	srv := httptest.NewServer(server.NewServer(p, generation.NewAsker(generation.ExtractiveGenerator{}, nil), cfg, nil).Handler())
	defer srv.Close()

	// Before the build starts the pipeline is still building.
	resp, err := http.Post(srv.URL+"/api/v1/retrieve", "application/json", strings.NewReader(`{"query":"vpn"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status before build = %d, want 503", resp.StatusCode)
	}

	if _, err := p.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	resp, err = http.Post(srv.URL+"/api/v1/ask", "application/json",
		strings.NewReader(`{"query":"when is payroll deposited each month","top_k":2}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ask status = %d", resp.StatusCode)
	}
	var ask models.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&ask); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ask.Answer, "Payroll is deposited on the fifteenth") {
		t.Errorf("answer = %q", ask.Answer)
	}

	sresp, err := http.Get(srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer sresp.Body.Close()
	var status server.StatusResponse
	if err := json.NewDecoder(sresp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Phase != string(pipeline.PhaseServing) || status.Chunks != corpus.Chunks {
		t.Errorf("status = %+v", status)
	}
}
