package publisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/suntyn/sitegen/internal/apperr"
	"github.com/suntyn/sitegen/internal/catalog"
	"github.com/suntyn/sitegen/internal/history"
	"github.com/suntyn/sitegen/internal/sitemap"
	"github.com/suntyn/sitegen/internal/sse"
	"github.com/suntyn/sitegen/internal/storage"
)

// fakeStore records writes in memory. When gate is non-nil every Write
// signals entered and then blocks until gate is closed. afterWrite, if set,
// runs after each successful write.
type fakeStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	writes     int
	failOn     string
	entered    chan struct{}
	gate       chan struct{}
	afterWrite func(name string)
}

func newFakeStore() *fakeStore {
	return &fakeStore{files: make(map[string][]byte)}
}

func (f *fakeStore) Write(name string, content []byte) error {
	if f.gate != nil {
		f.entered <- struct{}{}
		<-f.gate
	}
	f.mu.Lock()
	if name == f.failOn {
		f.mu.Unlock()
		return errors.New("no space left on device")
	}
	f.writes++
	f.files[name] = append([]byte(nil), content...)
	f.mu.Unlock()
	if f.afterWrite != nil {
		f.afterWrite(name)
	}
	return nil
}

func (f *fakeStore) Read(name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[name]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return data, nil
}

func (f *fakeStore) Stat(name string) (storage.ArtifactInfo, error) {
	data, err := f.Read(name)
	if err != nil {
		return storage.ArtifactInfo{}, err
	}
	return storage.ArtifactInfo{Name: name, Size: int64(len(data))}, nil
}

func (f *fakeStore) List() ([]storage.ArtifactInfo, error) { return nil, nil }
func (f *fakeStore) Root() string                          { return "mem" }

func (f *fakeStore) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []history.Run
}

func (r *fakeRecorder) Record(_ context.Context, run history.Run) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return int64(len(r.runs)), nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []sse.Event
}

func (n *fakeNotifier) Publish(e sse.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testBuilder(now func() time.Time) *sitemap.Builder {
	b := sitemap.NewBuilder("https://suntyn-ai.com", catalog.New([]string{"/", "/about"}, []string{"pdf-merger"}))
	b.Now = now
	return b
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPublishAll_WritesAllArtifacts(t *testing.T) {
	store := newFakeStore()
	rec := &fakeRecorder{}
	notes := &fakeNotifier{}
	p := New(testBuilder(nil), store, WithRecorder(rec), WithNotifier(notes), WithLogger(quiet))

	res, err := p.PublishAll(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	if store.writeCount() != len(sitemap.Names) {
		t.Errorf("writes = %d, want %d", store.writeCount(), len(sitemap.Names))
	}
	for i, name := range sitemap.Names {
		if _, ok := store.files[name]; !ok {
			t.Errorf("%s not written", name)
		}
		if res.Files[i].Name != name || res.Files[i].Checksum == "" || res.Files[i].Size == 0 {
			t.Errorf("result file %d = %+v", i, res.Files[i])
		}
	}
	if res.RunID == "" || res.Trigger != TriggerManual {
		t.Errorf("result = %+v", res)
	}

	if len(rec.runs) != 1 || !rec.runs[0].Success || rec.runs[0].Trigger != "manual" {
		t.Errorf("recorded = %+v", rec.runs)
	}
	if len(notes.events) != 1 || notes.events[0].Type != sse.EventPublished {
		t.Errorf("events = %+v", notes.events)
	}
	if p.Busy() {
		t.Error("still busy after pass")
	}
}

var stampRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}(T[0-9:.]+Z)?`)

func TestPublishAll_Idempotent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Same clock: byte-identical output.
	s1, s2 := newFakeStore(), newFakeStore()
	if _, err := New(testBuilder(fixedClock(base)), s1, WithLogger(quiet)).PublishAll(context.Background(), TriggerManual); err != nil {
		t.Fatal(err)
	}
	p2 := New(testBuilder(fixedClock(base)), s2, WithLogger(quiet))
	if _, err := p2.PublishAll(context.Background(), TriggerManual); err != nil {
		t.Fatal(err)
	}
	for _, name := range sitemap.Names {
		if string(s1.files[name]) != string(s2.files[name]) {
			t.Errorf("%s differs between identical passes", name)
		}
	}

	// Different clock, same store: only date stamps change.
	before := make(map[string]string)
	for k, v := range s2.files {
		before[k] = string(v)
	}
	p3 := New(testBuilder(fixedClock(base.Add(36*time.Hour))), s2, WithLogger(quiet))
	if _, err := p3.PublishAll(context.Background(), TriggerSchedule); err != nil {
		t.Fatal(err)
	}
	for _, name := range sitemap.Names {
		a := stampRe.ReplaceAllString(before[name], "STAMP")
		b := stampRe.ReplaceAllString(string(s2.files[name]), "STAMP")
		if a != b {
			t.Errorf("%s changed beyond timestamps", name)
		}
		if before[name] == string(s2.files[name]) {
			t.Errorf("%s timestamp did not move", name)
		}
	}
}

func TestPublishAll_RejectsWhileBusy(t *testing.T) {
	store := newFakeStore()
	store.entered = make(chan struct{})
	store.gate = make(chan struct{})
	p := New(testBuilder(nil), store, WithLogger(quiet))

	done := make(chan error, 1)
	go func() {
		_, err := p.PublishAll(context.Background(), TriggerWatch)
		done <- err
	}()

	// First pass is now blocked inside its first Write.
	<-store.entered
	if !p.Busy() {
		t.Fatal("expected Busy during pass")
	}

	res, err := p.PublishAll(context.Background(), TriggerManual)
	if !errors.Is(err, apperr.ErrBusy) {
		t.Fatalf("second pass err = %v, want ErrBusy", err)
	}
	if res != nil {
		t.Errorf("rejected pass returned a result: %+v", res)
	}

	// Let the first pass finish; drain its remaining writes.
	entered := store.entered
	close(store.gate)
	go func() {
		for range entered {
		}
	}()
	if err := <-done; err != nil {
		t.Fatalf("first pass: %v", err)
	}
	close(entered)

	if got := store.writeCount(); got != len(sitemap.Names) {
		t.Errorf("writes = %d, want %d (rejected pass must not write)", got, len(sitemap.Names))
	}

	// Free again.
	store.gate, store.entered = nil, nil
	if _, err := p.PublishAll(context.Background(), TriggerManual); err != nil {
		t.Errorf("pass after release: %v", err)
	}
}

func TestPublishAll_PartialFailure(t *testing.T) {
	store := newFakeStore()
	store.failOn = sitemap.ToolsSitemapFile
	rec := &fakeRecorder{}
	notes := &fakeNotifier{}
	p := New(testBuilder(nil), store, WithRecorder(rec), WithNotifier(notes), WithLogger(quiet))

	_, err := p.PublishAll(context.Background(), TriggerSchedule)
	if err == nil {
		t.Fatal("expected error")
	}

	// Files before the failure are updated; the index after it is not.
	if _, ok := store.files[sitemap.RobotsFile]; !ok {
		t.Error("robots.txt should have been written")
	}
	if _, ok := store.files[sitemap.MainSitemapFile]; !ok {
		t.Error("sitemap.xml should have been written")
	}
	if _, ok := store.files[sitemap.IndexFile]; ok {
		t.Error("sitemap-index.xml should not have been written")
	}

	if len(rec.runs) != 1 || rec.runs[0].Success || rec.runs[0].Error == "" || len(rec.runs[0].Files) != 2 {
		t.Errorf("recorded = %+v", rec.runs)
	}
	if len(notes.events) != 1 || notes.events[0].Type != sse.EventFailed {
		t.Errorf("events = %+v", notes.events)
	}
	if p.Busy() {
		t.Error("slot not released after failure")
	}
}

func TestPublishAll_CompletesWhenCallerCancels(t *testing.T) {
	store := newFakeStore()
	rec := &fakeRecorder{}
	p := New(testBuilder(nil), store, WithLogger(quiet), WithRecorder(rec))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.afterWrite = func(string) { cancel() }

	res, err := p.PublishAll(ctx, TriggerManual)
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	if ctx.Err() == nil {
		t.Fatal("context was not cancelled during the pass")
	}
	if store.writeCount() != len(sitemap.Names) || len(res.Files) != len(sitemap.Names) {
		t.Errorf("writes = %d, files = %d, want %d", store.writeCount(), len(res.Files), len(sitemap.Names))
	}
	for _, name := range sitemap.Names {
		if _, err := store.Read(name); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if len(rec.runs) != 1 || !rec.runs[0].Success {
		t.Errorf("recorded runs = %+v", rec.runs)
	}
}
