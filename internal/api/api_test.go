package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/assetservice"
	"github.com/suntyn/sitegen/internal/publisher"
	"github.com/suntyn/sitegen/internal/sitemap"
	"github.com/suntyn/sitegen/internal/storage"
	"github.com/suntyn/sitegen/internal/testutil"
)

var isoMillis = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}Z$`)

// testEnv sets up a temp output dir, run history, publisher and a root
// router carrying both the artifact routes and /api.
func testEnv(t *testing.T, authToken string) (http.Handler, string) {
	t.Helper()
	outDir, store := testutil.TestOutput(t)
	db := testutil.TestHistory(t)
	pub := testutil.TestPublisher(t, store, db)
	svc := assetservice.NewService(pub, store, testutil.SmallCatalog(), db)
	return rootRouter(svc, authToken), outDir
}

// testEnvWithPublisher swaps in a fake publisher to force busy and failure
// outcomes.
func testEnvWithPublisher(t *testing.T, pub assetservice.Publisher) http.Handler {
	t.Helper()
	_, store := testutil.TestOutput(t)
	svc := assetservice.NewService(pub, store, testutil.SmallCatalog(), nil)
	return rootRouter(svc, "")
}

func rootRouter(svc *assetservice.Service, authToken string) http.Handler {
	r := chi.NewRouter()
	NewArtifactHandler(svc).Mount(r)
	r.Mount("/api", NewRouter(svc, authToken != "", authToken, nil))
	return r
}

type stubPublisher struct {
	err error
}

func (s stubPublisher) PublishAll(context.Context, publisher.Trigger) (*publisher.Result, error) {
	return nil, s.err
}

func do(t *testing.T, h http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestArtifacts_NotFoundBeforeGeneration(t *testing.T) {
	router, _ := testEnv(t, "")

	for _, name := range sitemap.Names {
		w := do(t, router, http.MethodGet, "/"+name, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s = %d, want 404", name, w.Code)
		}
		if got := w.Body.String(); got != name+" not found" {
			t.Errorf("%s body = %q", name, got)
		}
	}
}

func TestGenerateThenServe(t *testing.T) {
	router, outDir := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/api/generate-sitemap", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d, body = %s", w.Code, w.Body.String())
	}
	var resp GenerateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Message != msgRegenerated {
		t.Errorf("response = %+v", resp)
	}
	if !isoMillis.MatchString(resp.Timestamp) {
		t.Errorf("timestamp = %q, want UTC with milliseconds", resp.Timestamp)
	}
	if len(resp.Files) != len(sitemap.Names) {
		t.Errorf("files = %d, want %d", len(resp.Files), len(sitemap.Names))
	}

	// Files are on disk.
	for _, name := range sitemap.Names {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not on disk: %v", name, err)
		}
	}

	w = do(t, router, http.MethodGet, "/robots.txt", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("robots = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != sitemap.ContentTypeText {
		t.Errorf("robots content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Allow: /tool/pdf-merger") {
		t.Errorf("robots body:\n%s", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/sitemap.xml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sitemap = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != sitemap.ContentTypeXML {
		t.Errorf("sitemap content type = %q", ct)
	}
	if n := strings.Count(w.Body.String(), "<url>"); n != 2 {
		t.Errorf("<url> count = %d, want 2", n)
	}
}

func TestGeneratePostAlias(t *testing.T) {
	router, _ := testEnv(t, "")
	w := do(t, router, http.MethodPost, "/api/generate-sitemap", nil)
	if w.Code != http.StatusOK {
		t.Errorf("POST generate = %d", w.Code)
	}
}

func TestArtifact_ETagConditional(t *testing.T) {
	router, _ := testEnv(t, "")
	do(t, router, http.MethodGet, "/api/generate-sitemap", nil)

	w := do(t, router, http.MethodGet, "/sitemap-index.xml", nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	w = do(t, router, http.MethodGet, "/sitemap-index.xml", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d, want 304", w.Code)
	}
}

func TestGenerate_Busy(t *testing.T) {
	router := testEnvWithPublisher(t, stubPublisher{err: apperr.ErrBusy})

	w := do(t, router, http.MethodGet, "/api/generate-sitemap", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("busy = %d, want 409", w.Code)
	}
	var resp GenerateFailure
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Success || resp.Message != msgBusy || resp.Error == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGenerate_Failure(t *testing.T) {
	ioErr := errors.New("publish robots.txt: open client/public/robots.txt: permission denied")
	router := testEnvWithPublisher(t, stubPublisher{err: ioErr})

	w := do(t, router, http.MethodGet, "/api/generate-sitemap", nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("failure = %d, want 500", w.Code)
	}
	var resp GenerateFailure
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Success || resp.Message != "Failed to regenerate sitemap" || resp.Error != ioErr.Error() {
		t.Errorf("response = %+v", resp)
	}
}

// countingStore counts writes that reach the underlying store.
type countingStore struct {
	storage.Provider
	mu     sync.Mutex
	writes int
}

func (c *countingStore) Write(name string, content []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.Provider.Write(name, content)
}

func TestGenerate_ConcurrentRequestsWriteOnce(t *testing.T) {
	_, fsStore := testutil.TestOutput(t)
	store := &countingStore{Provider: fsStore}
	pub := testutil.TestPublisher(t, store, nil)
	router := rootRouter(assetservice.NewService(pub, store, testutil.SmallCatalog(), nil), "")

	var wg sync.WaitGroup
	codes := make([]int, 8)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = do(t, router, http.MethodPost, "/api/generate-sitemap", nil).Code
		}(i)
	}
	wg.Wait()

	ok, busy := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			busy++
		default:
			t.Errorf("unexpected status %d", c)
		}
	}
	if ok == 0 || ok+busy != len(codes) {
		t.Errorf("ok = %d, busy = %d", ok, busy)
	}
	// Each accepted pass writes every artifact exactly once; rejected
	// requests write nothing.
	if store.writes != ok*len(sitemap.Names) {
		t.Errorf("writes = %d, want %d for %d accepted passes", store.writes, ok*len(sitemap.Names), ok)
	}
}

// cancelStore cancels the request context after each write, as if the
// client went away mid-pass.
type cancelStore struct {
	storage.Provider
	cancel context.CancelFunc
}

func (c *cancelStore) Write(name string, content []byte) error {
	defer c.cancel()
	return c.Provider.Write(name, content)
}

func TestGenerate_ClientDisconnectDoesNotAbortPass(t *testing.T) {
	outDir, fsStore := testutil.TestOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancelStore{Provider: fsStore, cancel: cancel}
	pub := testutil.TestPublisher(t, store, nil)
	router := rootRouter(assetservice.NewService(pub, store, testutil.SmallCatalog(), nil), "")

	req := httptest.NewRequest(http.MethodPost, "/api/generate-sitemap", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("generate = %d, body = %s", w.Code, w.Body.String())
	}
	for _, name := range sitemap.Names {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestListGenerations(t *testing.T) {
	router, _ := testEnv(t, "")
	do(t, router, http.MethodGet, "/api/generate-sitemap", nil)
	do(t, router, http.MethodGet, "/api/generate-sitemap", nil)

	w := do(t, router, http.MethodGet, "/api/generations?limit=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("generations = %d", w.Code)
	}
	var resp RunListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Runs) != 1 || resp.Runs[0].Trigger != "manual" || !resp.Runs[0].Success {
		t.Errorf("runs = %+v", resp.Runs)
	}
}

func TestListRoutes(t *testing.T) {
	router, _ := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/api/routes?kind=tool", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("routes = %d", w.Code)
	}
	var resp RouteListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Routes[0].Path != "/tool/pdf-merger" {
		t.Errorf("routes = %+v", resp)
	}

	w = do(t, router, http.MethodGet, "/api/routes?kind=blog", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind = %d, want 400", w.Code)
	}
}

func TestAuth_TokenMode(t *testing.T) {
	router, _ := testEnv(t, "secret")

	// No token → 401.
	if w := do(t, router, http.MethodGet, "/api/routes", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}
	// Wrong token → 401.
	if w := do(t, router, http.MethodGet, "/api/routes", map[string]string{"Authorization": "Bearer nope"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
	// Right token → 200.
	if w := do(t, router, http.MethodGet, "/api/routes", map[string]string{"Authorization": "Bearer secret"}); w.Code != http.StatusOK {
		t.Errorf("right token = %d, want 200", w.Code)
	}
	// Artifacts stay public.
	if w := do(t, router, http.MethodGet, "/robots.txt", nil); w.Code != http.StatusNotFound {
		t.Errorf("robots without token = %d, want 404 (public, not generated)", w.Code)
	}
}

func TestAuth_DisabledMode(t *testing.T) {
	router, _ := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/api/routes", nil); w.Code != http.StatusOK {
		t.Errorf("disabled mode = %d, want 200", w.Code)
	}
}

func TestEventsRoute(t *testing.T) {
	_, store := testutil.TestOutput(t)
	svc := assetservice.NewService(testutil.TestPublisher(t, store, nil), store, testutil.SmallCatalog(), nil)

	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	})
	router := NewRouter(svc, false, "", sseHandler)

	w := do(t, router, http.MethodGet, "/events", nil)
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("events content type = %q", ct)
	}
}
