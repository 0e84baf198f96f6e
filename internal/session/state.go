// Package session holds the console's per-user state record and the pure
// transitions applied to it.
package session

import (
	"github.com/zulfkhar00/instafit_console/internal/backend"
)

// DefaultBaseURL is the backend address a fresh session points at.
const DefaultBaseURL = "http://localhost:8000"

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseInFlight  Phase = "in_flight"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Flow names the two request/response cycles.
type Flow string

const (
	FlowTryOn   Flow = "try_on"
	FlowAnalyze Flow = "analyze"
)

type ResultKind string

const (
	ResultSingleImage ResultKind = "single_image"
	ResultAnalysis    ResultKind = "analysis"
)

// Upload is a selected image file. Data stays out of serialized snapshots.
type Upload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Data        []byte `json:"-"`
}

// Image converts the upload into the backend's file representation.
func (u *Upload) Image() backend.Image {
	if u == nil {
		return backend.Image{}
	}
	return backend.Image{Name: u.Name, ContentType: u.ContentType, Data: u.Data}
}

// Result is either a single image (try-on) or two segment lists (analyze).
// References are absolute, resolved against the base URL of the request that
// produced them.
type Result struct {
	Kind          ResultKind        `json:"kind"`
	Image         string            `json:"image,omitempty"`
	MaskImage     string            `json:"mask_image,omitempty"`
	BodyParts     []backend.Segment `json:"body_parts,omitempty"`
	ClothingItems []backend.Segment `json:"clothing_items,omitempty"`
}

// ArchivedImage is a result image mirrored to object storage.
type ArchivedImage struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Key   string `json:"key"`
	URL   string `json:"url"`
}

type State struct {
	BaseURL string        `json:"base_url"`
	Person  *Upload       `json:"person,omitempty"`
	Garment *Upload       `json:"garment,omitempty"`
	Model   backend.Model `json:"model,omitempty"`

	InFlight   bool   `json:"in_flight"`
	Pending    Flow   `json:"pending,omitempty"`
	Phase      Phase  `json:"phase"`
	Generation uint64 `json:"generation"`

	Result       *Result         `json:"result,omitempty"`
	Inconclusive bool            `json:"inconclusive"`
	Notice       string          `json:"notice,omitempty"`
	Archived     []ArchivedImage `json:"archived,omitempty"`
}

func New(baseURL string) State {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return State{BaseURL: baseURL, Phase: PhaseIdle}
}

// CanTryOn reports whether the try-on action is enabled.
func (s State) CanTryOn() bool {
	return !s.InFlight && s.Person != nil && s.Garment != nil
}

// CanAnalyze reports whether the analyze action is enabled.
func (s State) CanAnalyze() bool {
	return !s.InFlight && s.Person != nil
}

// Can reports whether flow is enabled.
func (s State) Can(flow Flow) bool {
	switch flow {
	case FlowTryOn:
		return s.CanTryOn()
	case FlowAnalyze:
		return s.CanAnalyze()
	}
	return false
}

// EffectiveModel is the model an analyze request will carry.
func (s State) EffectiveModel() backend.Model {
	if s.Model == "" {
		return backend.DefaultModel
	}
	return s.Model
}

// Clone copies the state deeply enough that the copy can be handed to other
// goroutines. Upload bytes are shared; they are never mutated in place.
func (s State) Clone() State {
	out := s
	if s.Person != nil {
		p := *s.Person
		out.Person = &p
	}
	if s.Garment != nil {
		g := *s.Garment
		out.Garment = &g
	}
	if s.Result != nil {
		r := *s.Result
		r.BodyParts = append([]backend.Segment(nil), s.Result.BodyParts...)
		r.ClothingItems = append([]backend.Segment(nil), s.Result.ClothingItems...)
		out.Result = &r
	}
	out.Archived = append([]ArchivedImage(nil), s.Archived...)
	return out
}
