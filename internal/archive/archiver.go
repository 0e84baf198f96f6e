// Package archive mirrors committed result images into object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/google/uuid"

	"github.com/zulfkhar00/instafit_console/internal/dispatcher"
	"github.com/zulfkhar00/instafit_console/internal/session"
	"github.com/zulfkhar00/instafit_console/services/storage"
)

const maxImageBytes = 32 << 20

type Archiver struct {
	storage    storage.StorageService
	httpClient *http.Client

	// mu serializes recording uploads on a session with pruning its
	// unreferenced blobs.
	mu sync.Mutex
	// stored maps session ID to image ID to storage key for every blob
	// uploaded by Hook and not yet deleted.
	stored map[string]map[string]string
}

func New(s storage.StorageService, hc *http.Client) *Archiver {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Archiver{storage: s, httpClient: hc, stored: make(map[string]map[string]string)}
}

// Hook archives every fresh result and records the stored copies on the
// session that produced it. Blobs the session no longer references, from a
// superseded result or from an archive that arrived too late, are deleted.
func (a *Archiver) Hook() dispatcher.ResultHook {
	return func(ctx context.Context, c *dispatcher.Controller, generation uint64, result session.Result) {
		images, err := a.Archive(ctx, c.ID(), result)
		if err != nil {
			hlog.CtxWarnf(ctx, "[archive] session=%s: %v", c.ID(), err)
		}

		a.mu.Lock()
		a.track(c.ID(), images)
		state := c.Apply(session.ResultsArchived{Generation: generation, Images: images})
		orphans := a.untrackUnreferenced(c.ID(), state.Archived)
		a.mu.Unlock()

		a.deleteKeys(ctx, c.ID(), orphans)
	}
}

// EvictHook deletes every blob of a session the registry has dropped.
func (a *Archiver) EvictHook() dispatcher.EvictHook {
	return func(ctx context.Context, sessionID string) {
		a.mu.Lock()
		keys := make([]string, 0, len(a.stored[sessionID]))
		for _, key := range a.stored[sessionID] {
			keys = append(keys, key)
		}
		delete(a.stored, sessionID)
		a.mu.Unlock()

		a.deleteKeys(ctx, sessionID, keys)
	}
}

func (a *Archiver) track(sessionID string, images []session.ArchivedImage) {
	if len(images) == 0 {
		return
	}
	ids := a.stored[sessionID]
	if ids == nil {
		ids = make(map[string]string, len(images))
		a.stored[sessionID] = ids
	}
	for _, img := range images {
		ids[img.ID] = img.Key
	}
}

func (a *Archiver) untrack(sessionID, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.stored[sessionID], id)
	if len(a.stored[sessionID]) == 0 {
		delete(a.stored, sessionID)
	}
}

// untrackUnreferenced drops the session's stored keys that are not in
// archived and returns them.
func (a *Archiver) untrackUnreferenced(sessionID string, archived []session.ArchivedImage) []string {
	referenced := make(map[string]bool, len(archived))
	for _, img := range archived {
		referenced[img.ID] = true
	}
	var keys []string
	for id, key := range a.stored[sessionID] {
		if !referenced[id] {
			keys = append(keys, key)
			delete(a.stored[sessionID], id)
		}
	}
	if len(a.stored[sessionID]) == 0 {
		delete(a.stored, sessionID)
	}
	return keys
}

func (a *Archiver) deleteKeys(ctx context.Context, sessionID string, keys []string) {
	for _, key := range keys {
		if err := a.storage.DeleteBlob(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			hlog.CtxWarnf(ctx, "[archive] session=%s delete %s: %v", sessionID, key, err)
		}
	}
}

// Archive fetches each image of result and uploads it. Images that fail are
// skipped; their errors are joined into the returned error.
func (a *Archiver) Archive(ctx context.Context, sessionID string, result session.Result) ([]session.ArchivedImage, error) {
	var (
		out  []session.ArchivedImage
		errs []error
	)
	for _, src := range sources(result) {
		img, err := a.archiveOne(ctx, sessionID, src)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, img)
	}
	return out, errors.Join(errs...)
}

// Delete removes the archived image id from storage and from the session.
func (a *Archiver) Delete(ctx context.Context, c *dispatcher.Controller, id string) error {
	for _, img := range c.State().Archived {
		if img.ID != id {
			continue
		}
		if err := a.storage.DeleteBlob(ctx, img.Key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		c.Apply(session.ArchiveRemoved{ID: id})
		a.untrack(c.ID(), id)
		return nil
	}
	return fmt.Errorf("archived image %s: %w", id, storage.ErrNotFound)
}

type source struct {
	label string
	url   string
}

func sources(r session.Result) []source {
	var out []source
	switch r.Kind {
	case session.ResultSingleImage:
		out = append(out, source{label: "result", url: r.Image})
		if r.MaskImage != "" {
			out = append(out, source{label: "mask", url: r.MaskImage})
		}
	case session.ResultAnalysis:
		for _, s := range r.BodyParts {
			out = append(out, source{label: s.Label, url: s.URL})
		}
		for _, s := range r.ClothingItems {
			out = append(out, source{label: s.Label, url: s.URL})
		}
	}
	return out
}

func (a *Archiver) archiveOne(ctx context.Context, sessionID string, src source) (session.ArchivedImage, error) {
	data, contentType, err := a.fetch(ctx, src.url)
	if err != nil {
		return session.ArchivedImage{}, fmt.Errorf("fetch %s: %w", src.url, err)
	}

	id := uuid.NewString()
	key := fmt.Sprintf("results/%s/%s%s", sessionID, id, extension(contentType, src.url))
	url, err := a.storage.UploadBlob(ctx, data, key, contentType)
	if err != nil {
		return session.ArchivedImage{}, fmt.Errorf("upload %s: %w", key, err)
	}
	return session.ArchivedImage{ID: id, Label: src.label, Key: key, URL: url}, nil
}

func (a *Archiver) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func extension(contentType, url string) string {
	if ext := path.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
		return exts[0]
	}
	return ""
}
