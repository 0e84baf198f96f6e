package archive

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/session"
	"github.com/zulfkhar00/instafit_console/services/storage"
)

type stubBackend struct{ result backend.Result }

func (s stubBackend) TryOn(context.Context, string, backend.TryOnInput) (backend.Result, error) {
	return s.result, nil
}

func (s stubBackend) Analyze(context.Context, string, backend.AnalyzeInput) (backend.Result, error) {
	return s.result, nil
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestArchiveSingleImage(t *testing.T) {
	srv := imageServer(t)
	mem := storage.NewMemoryService("https://cdn.example")
	a := New(mem, nil)

	images, err := a.Archive(context.Background(), "sess", session.Result{
		Kind:      session.ResultSingleImage,
		Image:     srv.URL + "/uploads/x.png",
		MaskImage: srv.URL + "/uploads/missing_mask.png",
	})
	if err == nil {
		t.Error("expected an error for the missing mask")
	}
	if len(images) != 1 {
		t.Fatalf("images = %v, want 1", images)
	}
	img := images[0]
	if img.Label != "result" || !strings.HasPrefix(img.Key, "results/sess/") || !strings.HasSuffix(img.Key, ".png") {
		t.Errorf("image = %+v", img)
	}
	if img.URL != "https://cdn.example/"+img.Key {
		t.Errorf("URL = %q", img.URL)
	}
	blob, ok := mem.Get(img.Key)
	if !ok || string(blob.Data) != "png:/uploads/x.png" || blob.ContentType != "image/png" {
		t.Errorf("stored blob = %+v, %v", blob, ok)
	}
}

func TestHookAndDelete(t *testing.T) {
	srv := imageServer(t)
	mem := storage.NewMemoryService("/archive")
	a := New(mem, nil)

	c := dispatcher.NewController("sess", stubBackend{result: backend.AnalysisResult{
		BodyParts:     []backend.Segment{{Label: "Face", URL: srv.URL + "/uploads/a_seg_Face.png"}},
		ClothingItems: []backend.Segment{{Label: "Hat", URL: srv.URL + "/uploads/a_seg_Hat.png"}},
	}}, dispatcher.Options{OnResult: a.Hook()})
	c.Apply(session.SelectPerson{Upload: &session.Upload{Name: "p.jpg", Data: []byte("p")}})

	if err := c.Run(context.Background(), session.FlowAnalyze); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	archived := c.State().Archived
	if len(archived) != 2 || archived[0].Label != "Face" || archived[1].Label != "Hat" {
		t.Fatalf("Archived = %+v", archived)
	}

	if err := a.Delete(context.Background(), c, archived[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := mem.Get(archived[0].Key); ok {
		t.Error("blob still stored after Delete")
	}
	if got := c.State().Archived; len(got) != 1 || got[0].ID != archived[1].ID {
		t.Errorf("Archived after delete = %+v", got)
	}

	if err := a.Delete(context.Background(), c, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete(nope) error = %v, want ErrNotFound", err)
	}
}

// recordingStorage remembers every key uploaded through it.
type recordingStorage struct {
	*storage.MemoryService

	mu   sync.Mutex
	keys []string
}

func (r *recordingStorage) UploadBlob(ctx context.Context, data []byte, key, contentType string) (string, error) {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return r.MemoryService.UploadBlob(ctx, data, key, contentType)
}

func (r *recordingStorage) uploaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

func tryOnController(srv *httptest.Server, opts dispatcher.Options) *dispatcher.Controller {
	c := dispatcher.NewController("sess", stubBackend{result: backend.SingleImageResult{
		Image: srv.URL + "/uploads/x.png",
	}}, opts)
	selectTryOnInputs(c)
	return c
}

func selectTryOnInputs(c *dispatcher.Controller) {
	c.Apply(session.SelectPerson{Upload: &session.Upload{Name: "p.jpg", Data: []byte("p")}})
	c.Apply(session.SelectGarment{Upload: &session.Upload{Name: "g.jpg", Data: []byte("g")}})
}

func TestNewResultDeletesSupersededBlobs(t *testing.T) {
	srv := imageServer(t)
	store := &recordingStorage{MemoryService: storage.NewMemoryService("/archive")}
	a := New(store, nil)
	c := tryOnController(srv, dispatcher.Options{OnResult: a.Hook()})

	for i := 0; i < 3; i++ {
		if err := c.Run(context.Background(), session.FlowTryOn); err != nil {
			t.Fatalf("Run() #%d error = %v", i, err)
		}
	}

	archived := c.State().Archived
	if len(archived) != 1 {
		t.Fatalf("Archived = %+v, want 1 image", archived)
	}
	keys := store.uploaded()
	if len(keys) != 3 {
		t.Fatalf("uploaded %d blobs, want 3", len(keys))
	}
	for _, key := range keys {
		_, ok := store.Get(key)
		if key == archived[0].Key {
			if !ok {
				t.Errorf("current blob %s was deleted", key)
			}
			continue
		}
		if ok {
			t.Errorf("superseded blob %s is still stored", key)
		}
	}

	// The current image stays deletable by id.
	if err := a.Delete(context.Background(), c, archived[0].ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := store.Get(archived[0].Key); ok {
		t.Error("blob still stored after Delete")
	}
}

func TestLateArchiveIsDeleted(t *testing.T) {
	srv := imageServer(t)
	store := &recordingStorage{MemoryService: storage.NewMemoryService("/archive")}
	a := New(store, nil)
	c := tryOnController(srv, dispatcher.Options{})
	if err := c.Run(context.Background(), session.FlowTryOn); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	current := c.State()

	// An archive for an older generation is rejected by the session.
	a.Hook()(context.Background(), c, current.Generation-1, *current.Result)

	if got := c.State().Archived; len(got) != 0 {
		t.Errorf("stale archive recorded: %+v", got)
	}
	keys := store.uploaded()
	if len(keys) != 1 {
		t.Fatalf("uploaded %d blobs, want 1", len(keys))
	}
	if _, ok := store.Get(keys[0]); ok {
		t.Errorf("rejected blob %s is still stored", keys[0])
	}
}

func TestEvictedSessionBlobsAreDeleted(t *testing.T) {
	srv := imageServer(t)
	store := &recordingStorage{MemoryService: storage.NewMemoryService("/archive")}
	a := New(store, nil)
	r := dispatcher.NewRegistry(stubBackend{result: backend.SingleImageResult{
		Image: srv.URL + "/uploads/x.png",
	}}, dispatcher.Options{OnResult: a.Hook(), OnEvict: a.EvictHook()}, time.Minute)

	c := r.Create()
	selectTryOnInputs(c)
	if err := c.Run(context.Background(), session.FlowTryOn); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(c.State().Archived) != 1 {
		t.Fatalf("Archived = %+v", c.State().Archived)
	}

	if n := r.Sweep(context.Background(), time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("Sweep() removed %d, want 1", n)
	}
	for _, key := range store.uploaded() {
		if _, ok := store.Get(key); ok {
			t.Errorf("blob %s of an evicted session is still stored", key)
		}
	}
}
