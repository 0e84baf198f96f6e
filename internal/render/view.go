// Package render turns a session snapshot into what the console shows.
package render

import (
	"github.com/zulfkhar00/instafit_console/internal/backend"
	"github.com/zulfkhar00/instafit_console/internal/session"
)

const (
	PlaceholderText  = "Result will appear here"
	NoneDetectedText = "None detected"
	BusyLabel        = "Processing..."
	TryOnLabel       = "Generate Try-On"
	AnalyzeLabel     = "Analyze Image"
	InconclusiveText = "The backend reply did not contain a result."
)

type PanelKind string

const (
	PanelPlaceholder PanelKind = "placeholder"
	PanelBusy        PanelKind = "busy"
	PanelSingleImage PanelKind = "single_image"
	PanelAnalysis    PanelKind = "analysis"
)

type Item struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	ID    string `json:"id,omitempty"`
}

// List is one labeled segment list with its empty-state text.
type List struct {
	Title     string `json:"title"`
	Items     []Item `json:"items"`
	Empty     bool   `json:"empty"`
	EmptyText string `json:"empty_text,omitempty"`
}

type View struct {
	BaseURL string   `json:"base_url"`
	Person  string   `json:"person,omitempty"`
	Garment string   `json:"garment,omitempty"`
	Model   string   `json:"model"`
	Models  []string `json:"models"`

	Panel         PanelKind `json:"panel"`
	Placeholder   string    `json:"placeholder,omitempty"`
	Image         string    `json:"image,omitempty"`
	MaskImage     string    `json:"mask_image,omitempty"`
	BodyParts     *List     `json:"body_parts,omitempty"`
	ClothingItems *List     `json:"clothing_items,omitempty"`

	TryOnEnabled   bool   `json:"try_on_enabled"`
	AnalyzeEnabled bool   `json:"analyze_enabled"`
	TryOnLabel     string `json:"try_on_label"`
	AnalyzeLabel   string `json:"analyze_label"`

	Notice       string        `json:"notice,omitempty"`
	Inconclusive string        `json:"inconclusive,omitempty"`
	Archived     []Item        `json:"archived,omitempty"`
	Phase        session.Phase `json:"phase"`
}

// Build is a pure function of s.
func Build(s session.State) View {
	v := View{
		BaseURL:        s.BaseURL,
		Model:          string(s.EffectiveModel()),
		Phase:          s.Phase,
		TryOnEnabled:   s.CanTryOn(),
		AnalyzeEnabled: s.CanAnalyze(),
		TryOnLabel:     TryOnLabel,
		AnalyzeLabel:   AnalyzeLabel,
		Notice:         s.Notice,
	}
	for _, m := range backend.Models() {
		v.Models = append(v.Models, string(m))
	}
	if s.Person != nil {
		v.Person = s.Person.Name
	}
	if s.Garment != nil {
		v.Garment = s.Garment.Name
	}
	if s.Inconclusive {
		v.Inconclusive = InconclusiveText
	}
	for _, a := range s.Archived {
		v.Archived = append(v.Archived, Item{Label: a.Label, URL: a.URL, ID: a.ID})
	}

	switch {
	case s.InFlight:
		v.Panel = PanelBusy
		switch s.Pending {
		case session.FlowAnalyze:
			v.AnalyzeLabel = BusyLabel
		default:
			v.TryOnLabel = BusyLabel
		}
	case s.Result == nil:
		v.Panel = PanelPlaceholder
		v.Placeholder = PlaceholderText
	case s.Result.Kind == session.ResultSingleImage:
		v.Panel = PanelSingleImage
		v.Image = s.Result.Image
		v.MaskImage = s.Result.MaskImage
	case s.Result.Kind == session.ResultAnalysis:
		v.Panel = PanelAnalysis
		v.BodyParts = buildList("Body Parts", s.Result.BodyParts)
		v.ClothingItems = buildList("Clothing Items", s.Result.ClothingItems)
	default:
		v.Panel = PanelPlaceholder
		v.Placeholder = PlaceholderText
	}
	return v
}

func buildList(title string, segments []backend.Segment) *List {
	l := &List{Title: title, Items: make([]Item, 0, len(segments))}
	for _, s := range segments {
		l.Items = append(l.Items, Item{Label: s.Label, URL: s.URL})
	}
	if len(l.Items) == 0 {
		l.Empty = true
		l.EmptyText = NoneDetectedText
	}
	return l
}
