package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/manabu/internal/cli"
	"github.com/hyperjump/manabu/internal/config"
	"github.com/hyperjump/manabu/internal/indexer"
	"github.com/hyperjump/manabu/internal/models"
	"github.com/hyperjump/manabu/internal/server"
)

const vacationText = "Employees accrue fifteen vacation days per year and may carry five days over."

func TestArgsReorder(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{
			name:     "flags after query are moved first",
			args:     []string{"vacation policy", "-top-k", "3"},
			expected: []string{"-top-k", "3", "vacation policy"},
		},
		{
			name:     "flags first returns unchanged",
			args:     []string{"-top-k", "3", "vacation policy"},
			expected: []string{"-top-k", "3", "vacation policy"},
		},
		{
			name:     "query only returns unchanged",
			args:     []string{"vacation policy"},
			expected: []string{"vacation policy"},
		},
		{
			name:     "empty args returns unchanged",
			args:     []string{},
			expected: []string{},
		},
		{
			name:     "multiple positionals then flags",
			args:     []string{"vpn", "setup", "--output", "json"},
			expected: []string{"--output", "json", "vpn", "setup"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsReorder(tt.args)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("argsReorder() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"single word", []string{"vacation"}, "vacation"},
		{"multiple words", []string{"how", "do", "I", "submit", "expenses"}, "how do I submit expenses"},
		{"single quoted phrase", []string{"vacation policy"}, "vacation policy"},
		{"empty args", []string{}, ""},
		{"blank args", []string{"  ", "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildQuery(tt.args)
			if got != tt.expected {
				t.Errorf("buildQuery(%v) = %q, want %q", tt.args, got, tt.expected)
			}
		})
	}
}

func TestQueryFlags_Parse(t *testing.T) {
	q := newQueryFlags("retrieve")
	req := q.parse([]string{"vacation", "days", "--top-k", "2", "--output", "json"})
	if req.Query != "vacation days" || req.TopK != 2 {
		t.Errorf("parse() = %+v, want query %q top_k 2", req, "vacation days")
	}
	if *q.output != "json" {
		t.Errorf("output = %q, want json", *q.output)
	}
	if *q.serverURL != "" {
		t.Errorf("server = %q, want empty default", *q.serverURL)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
debug: true
corpus:
  directory: "./docs"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(origWd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s (canon %s), want %s (canon %s)", resolved, resolvedCanon, configPath, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

// newComponents writes a one-file corpus and a config pointing at it.
func newComponents(t *testing.T) (*Components, *config.Config) {
	t.Helper()
	return newCorpusComponents(t, map[string]string{"vacation.txt": vacationText + "\n"})
}

func newCorpusComponents(t *testing.T, files map[string]string) (*Components, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	docs := filepath.Join(dir, "docs")
	if err := os.MkdirAll(docs, 0755); err != nil {
		t.Fatal(err)
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(docs, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("corpus:\n  directory: \"./docs\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	c, err := initializeComponents(context.Background(), cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c, cfg
}

// fakeServer blocks in Start until Stop is called, like http.Server.
type fakeServer struct {
	startErr error
	once     sync.Once
	stopped  chan struct{}
}

func newFakeServer(startErr error) *fakeServer {
	return &fakeServer{startErr: startErr, stopped: make(chan struct{})}
}

func (f *fakeServer) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	<-f.stopped
	return http.ErrServerClosed
}

func (f *fakeServer) Stop(context.Context) error {
	f.once.Do(func() { close(f.stopped) })
	return nil
}

func (f *fakeServer) isStopped() bool {
	select {
	case <-f.stopped:
		return true
	default:
		return false
	}
}

func TestServe_BuildFailureStopsServer(t *testing.T) {
	c, _ := newCorpusComponents(t, map[string]string{"blank.txt": "   \n\n"})
	srv := newFakeServer(nil)

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), c.Pipeline, srv, zap.NewNop()) }()

	select {
	case err := <-done:
		var buildErr *models.BuildError
		if !errors.As(err, &buildErr) {
			t.Fatalf("serve() error = %v, want BuildError", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve() kept running after the build failed")
	}
	if !srv.isStopped() {
		t.Error("server should be stopped after a failed build")
	}
}

func TestServe_RunsUntilCancelled(t *testing.T) {
	c, _ := newComponents(t)
	srv := newFakeServer(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- serve(ctx, c.Pipeline, srv, zap.NewNop()) }()

	if _, err := c.Pipeline.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	select {
	case err := <-done:
		t.Fatalf("serve() returned %v after a successful build", err)
	case <-time.After(50 * time.Millisecond):
	}
	if srv.isStopped() {
		t.Error("server stopped while serving")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve() error = %v, want nil on shutdown", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve() did not return after cancel")
	}
	if !srv.isStopped() {
		t.Error("server should be stopped on shutdown")
	}
}

func TestServe_ServerFailure(t *testing.T) {
	c, _ := newComponents(t)
	srv := newFakeServer(errors.New("address already in use"))
	err := serve(context.Background(), c.Pipeline, srv, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "address already in use") {
		t.Errorf("serve() error = %v, want listen failure", err)
	}
}

func TestInitializeComponents_RetrieveAndAsk(t *testing.T) {
	c, _ := newComponents(t)
	ctx := context.Background()
	report, err := c.Pipeline.Build(ctx)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if report.Files != 1 || report.Chunks != 1 {
		t.Errorf("report = %d files, %d chunks; want 1, 1", report.Files, report.Chunks)
	}

	r, err := c.Pipeline.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := r.Respond(ctx, &models.RetrieveRequest{Query: vacationText})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].SourceFile != "vacation.txt" {
		t.Errorf("Respond() results = %+v, want vacation.txt", resp.Results)
	}

	ask, err := c.Asker.Ask(ctx, r, &models.RetrieveRequest{Query: vacationText})
	if err != nil {
		t.Fatal(err)
	}
	if ask.Provider != "extractive" || !strings.Contains(ask.Answer, "fifteen vacation days") {
		t.Errorf("Ask() = %+v", ask)
	}
}

func TestViaHTTP(t *testing.T) {
	c, cfg := newComponents(t)
	if _, err := c.Pipeline.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(server.NewServer(c.Pipeline, c.Asker, cfg, nil).Handler())
	defer srv.Close()

	resp, err := retrieveViaHTTP(srv.URL+"/", &models.RetrieveRequest{Query: vacationText, TopK: 1})
	if err != nil {
		t.Fatalf("retrieveViaHTTP() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Rank != 1 {
		t.Errorf("retrieveViaHTTP() = %+v", resp)
	}

	ask, err := askViaHTTP(srv.URL, &models.RetrieveRequest{Query: vacationText})
	if err != nil {
		t.Fatalf("askViaHTTP() error = %v", err)
	}
	if len(ask.Sources) != 1 || ask.Sources[0].File != "vacation.txt" {
		t.Errorf("askViaHTTP() sources = %+v", ask.Sources)
	}

	status, err := statusViaHTTP(srv.URL)
	if err != nil {
		t.Fatalf("statusViaHTTP() error = %v", err)
	}
	if status.Phase != "serving" || status.Chunks != 1 {
		t.Errorf("status = %+v", status)
	}

	if _, err := retrieveViaHTTP(srv.URL, &models.RetrieveRequest{Query: "  "}); err == nil ||
		!strings.Contains(err.Error(), "400") {
		t.Errorf("blank query err = %v, want server returned 400", err)
	}
}

func TestStatusViaHTTP_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"index is still building"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	_, err := statusViaHTTP(srv.URL)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("err = %v, want server returned 503", err)
	}
}

func TestWriteStatus(t *testing.T) {
	s := &server.StatusResponse{
		Phase:   "serving",
		Files:   2,
		Chunks:  7,
		Skipped: []indexer.SkippedFile{{Path: "broken.docx", Error: "zip: not a valid zip file"}},
		Model:   "hashing-en",
		TopK:    5,
	}
	var buf bytes.Buffer
	if err := writeStatus(&buf, s, cli.OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"phase:          serving", "chunks:         7", "broken.docx: zip", "# retrieval"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := writeStatus(&buf, s, cli.OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"phase": "serving"`) {
		t.Errorf("json output = %s", buf.String())
	}
}
