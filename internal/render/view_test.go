package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

func withInputs() session.State {
	s := session.New("http://h:8000/")
	s = session.Reduce(s, session.SelectPerson{Upload: &session.Upload{Name: "p.jpg"}})
	s = session.Reduce(s, session.SelectGarment{Upload: &session.Upload{Name: "g.jpg"}})
	return s
}

func TestBuildPlaceholder(t *testing.T) {
	v := Build(session.New(""))
	if v.Panel != PanelPlaceholder || v.Placeholder != PlaceholderText {
		t.Errorf("Panel = %q, Placeholder = %q", v.Panel, v.Placeholder)
	}
	if v.TryOnEnabled || v.AnalyzeEnabled {
		t.Error("actions enabled without inputs")
	}
	if len(v.Models) != 3 || v.Model != "b2" {
		t.Errorf("Models = %v, Model = %q", v.Models, v.Model)
	}
}

func TestBuildBusy(t *testing.T) {
	s := session.Reduce(withInputs(), session.DispatchStarted{Flow: session.FlowAnalyze})
	v := Build(s)
	if v.Panel != PanelBusy {
		t.Errorf("Panel = %q, want busy", v.Panel)
	}
	if v.AnalyzeLabel != BusyLabel || v.TryOnLabel != TryOnLabel {
		t.Errorf("labels = %q / %q", v.TryOnLabel, v.AnalyzeLabel)
	}
	if v.TryOnEnabled || v.AnalyzeEnabled {
		t.Error("actions enabled while in flight")
	}
}

func TestBuildSingleImage(t *testing.T) {
	s := session.Reduce(withInputs(), session.DispatchStarted{Flow: session.FlowTryOn})
	res, err := backend.DecodeResult(backend.TrimBaseURL(s.BaseURL), 200, []byte(`{"result_image":"uploads/x.png"}`))
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	s = session.Reduce(s, session.DispatchSucceeded{Generation: s.Generation, Outcome: res})

	v := Build(s)
	if v.Panel != PanelSingleImage {
		t.Fatalf("Panel = %q", v.Panel)
	}
	if v.Image != "http://h:8000/uploads/x.png" {
		t.Errorf("Image = %q, want http://h:8000/uploads/x.png", v.Image)
	}
}

func TestBuildAnalysisEmptyBodyParts(t *testing.T) {
	s := session.Reduce(withInputs(), session.DispatchStarted{Flow: session.FlowAnalyze})
	s = session.Reduce(s, session.DispatchSucceeded{Generation: s.Generation, Outcome: backend.AnalysisResult{
		ClothingItems: []backend.Segment{
			{Label: "Hat", URL: "http://h:8000/uploads/a_seg_Hat.png"},
			{Label: "Pants", URL: "http://h:8000/uploads/a_seg_Pants.png"},
		},
	}})

	v := Build(s)
	if v.Panel != PanelAnalysis {
		t.Fatalf("Panel = %q", v.Panel)
	}
	if !v.BodyParts.Empty || v.BodyParts.EmptyText != NoneDetectedText {
		t.Errorf("BodyParts = %+v, want empty placeholder", v.BodyParts)
	}
	if v.ClothingItems.Empty || len(v.ClothingItems.Items) != 2 {
		t.Fatalf("ClothingItems = %+v", v.ClothingItems)
	}
	if it := v.ClothingItems.Items[1]; it.Label != "Pants" || it.URL != "http://h:8000/uploads/a_seg_Pants.png" {
		t.Errorf("Items[1] = %+v", it)
	}

	text := Text(v)
	for _, want := range []string{"Body Parts:", NoneDetectedText, "Hat", "http://h:8000/uploads/a_seg_Pants.png"} {
		if !strings.Contains(text, want) {
			t.Errorf("Text() missing %q:\n%s", want, text)
		}
	}
}

func TestHTML(t *testing.T) {
	s := session.Reduce(withInputs(), session.DispatchStarted{Flow: session.FlowTryOn})
	s = session.Reduce(s, session.DispatchFailed{Generation: s.Generation, Notice: "Failed to process try-on request. Check the API URL."})

	var buf bytes.Buffer
	if err := HTML(&buf, Build(s)); err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	page := buf.String()
	for _, want := range []string{"Virtual Try-On Service", "Check the API URL.", PlaceholderText, `value="http://h:8000/"`, `<option value="b2" selected>`} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(page, `http-equiv="refresh"`) {
		t.Error("idle page should not auto-refresh")
	}

	buf.Reset()
	busy := session.Reduce(withInputs(), session.DispatchStarted{Flow: session.FlowTryOn})
	if err := HTML(&buf, Build(busy)); err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if !strings.Contains(buf.String(), `http-equiv="refresh"`) || !strings.Contains(buf.String(), BusyLabel) {
		t.Error("busy page should auto-refresh and show the busy label")
	}
}
