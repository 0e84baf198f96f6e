package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/config"
	"github.com/zulfkhar00/instafit_console/internal/render"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case backend.HealthPath:
			io.WriteString(w, `{"status":"online","message":"Virtual Try-On API is running"}`)
		case backend.TryOnPath:
			io.WriteString(w, `{"status":"completed","result_image":"/uploads/out.png"}`)
		case backend.AnalyzePath:
			if r.FormValue("model_type") != "sam" {
				http.Error(w, `{"detail":"wrong model"}`, http.StatusBadRequest)
				return
			}
			io.WriteString(w, `{"status":"completed","body_parts":[{"label":"Face","url":"uploads/face.png"}],"clothing_items":[]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writePNG(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadUpload(t *testing.T) {
	up, err := loadUpload(writePNG(t, "me.png"))
	if err != nil {
		t.Fatalf("loadUpload() error = %v", err)
	}
	if up.Name != "me.png" || up.ContentType != "image/png" || up.Size != len(up.Data) {
		t.Errorf("upload = %+v", up)
	}

	text := filepath.Join(t.TempDir(), "notes.txt")
	os.WriteFile(text, []byte("hello"), 0o644)
	if _, err := loadUpload(text); err == nil {
		t.Error("loadUpload(text) expected error")
	}
	if _, err := loadUpload(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("loadUpload(missing) expected error")
	}
}

func TestShellSession(t *testing.T) {
	srv := fakeBackend(t)
	var out bytes.Buffer
	sh := newShell(newController(config.Defaults(), "http://127.0.0.1:1"), &out)
	ctx := context.Background()

	if err := sh.exec(ctx, "try-on"); err == nil {
		t.Fatal("try-on without images should fail")
	}

	steps := []string{
		"base " + srv.URL + "/",
		"person " + writePNG(t, "person.png"),
		"garment " + writePNG(t, "shirt.png"),
		"try-on",
	}
	for _, line := range steps {
		if err := sh.exec(ctx, line); err != nil {
			t.Fatalf("exec(%q) error = %v", line, err)
		}
	}
	v := render.Build(sh.ctrl.State())
	if v.Panel != render.PanelSingleImage || v.Image != srv.URL+"/uploads/out.png" {
		t.Fatalf("after try-on view = %+v", v)
	}

	for _, line := range []string{"model sam", "analyze"} {
		if err := sh.exec(ctx, line); err != nil {
			t.Fatalf("exec(%q) error = %v", line, err)
		}
	}
	v = render.Build(sh.ctrl.State())
	if v.Panel != render.PanelAnalysis || len(v.BodyParts.Items) != 1 || !v.ClothingItems.Empty {
		t.Fatalf("after analyze view = %+v", v)
	}
	if !strings.Contains(out.String(), render.NoneDetectedText) {
		t.Error("shell output misses the empty clothing list")
	}

	if err := sh.exec(ctx, "model sam3"); err == nil {
		t.Error("unknown model should fail")
	}
	if err := sh.exec(ctx, "frobnicate"); err == nil {
		t.Error("unknown command should fail")
	}
	if err := sh.exec(ctx, "quit"); err != errQuit {
		t.Errorf("quit returned %v", err)
	}
}

func TestShellFailureNotice(t *testing.T) {
	var out bytes.Buffer
	sh := newShell(newController(config.Defaults(), "http://127.0.0.1:1"), &out)
	ctx := context.Background()
	sh.exec(ctx, "person "+writePNG(t, "p.png"))

	if err := sh.exec(ctx, "analyze"); err != nil {
		t.Fatalf("analyze error = %v", err)
	}
	if v := render.Build(sh.ctrl.State()); v.Notice == "" {
		t.Fatal("unreachable backend should raise a notice")
	}
	sh.exec(ctx, "dismiss")
	if v := render.Build(sh.ctrl.State()); v.Notice != "" {
		t.Errorf("notice after dismiss = %q", v.Notice)
	}
}

func TestRunHealth(t *testing.T) {
	srv := fakeBackend(t)
	var out bytes.Buffer
	if err := runHealth(context.Background(), config.Defaults(), []string{"-base", srv.URL + "/"}, &out); err != nil {
		t.Fatalf("runHealth() error = %v", err)
	}
	if !strings.Contains(out.String(), "online") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunOnceTryOn(t *testing.T) {
	srv := fakeBackend(t)
	var out bytes.Buffer
	args := []string{"-base", srv.URL, "-person", writePNG(t, "p.png"), "-garment", writePNG(t, "g.png")}
	if err := runOnce(context.Background(), config.Defaults(), session.FlowTryOn, args, &out); err != nil {
		t.Fatalf("runOnce() error = %v", err)
	}
	if !strings.Contains(out.String(), srv.URL+"/uploads/out.png") {
		t.Errorf("output = %q", out.String())
	}
}
