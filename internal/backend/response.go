package backend

import (
	"encoding/json"
	"fmt"
)

// StatusCompleted marks a finished analysis.
const StatusCompleted = "completed"

// Result is one of SingleImageResult, AnalysisResult or Unrecognized.
type Result interface {
	isResult()
}

// SingleImageResult is the try-on outcome. Every reference is absolute.
type SingleImageResult struct {
	Image             string `json:"image"`
	Path              string `json:"path"`
	Status            string `json:"status,omitempty"`
	MaskImage         string `json:"mask_image,omitempty"`
	PersonImage       string `json:"person_image,omitempty"`
	GarmentImage      string `json:"garment_image,omitempty"`
	Category          string `json:"category,omitempty"`
	SegmentationModel string `json:"segmentation_model,omitempty"`
}

// Segment is one labeled cut-out returned by the analyze endpoint.
type Segment struct {
	Label string `json:"label"`
	Path  string `json:"path"`
	URL   string `json:"url"`
}

// AnalysisResult is the analyze outcome with body and clothing segments kept
// in backend order.
type AnalysisResult struct {
	PersonOriginal string    `json:"person_original,omitempty"`
	BodyParts      []Segment `json:"body_parts"`
	ClothingItems  []Segment `json:"clothing_items"`
}

// Unrecognized is a well-formed JSON reply that carries neither a result image
// nor a completed status.
type Unrecognized struct {
	StatusCode int    `json:"status_code"`
	Status     string `json:"status,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func (SingleImageResult) isResult() {}
func (AnalysisResult) isResult()    {}
func (Unrecognized) isResult()      {}

type wireSegment struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type wireResponse struct {
	Status            string          `json:"status"`
	ResultImage       string          `json:"result_image"`
	MaskImage         string          `json:"mask_image"`
	PersonImage       string          `json:"person_image"`
	GarmentImage      string          `json:"garment_image"`
	Category          string          `json:"category"`
	SegmentationModel string          `json:"segmentation_model"`
	PersonOriginal    string          `json:"person_original"`
	BodyParts         []wireSegment   `json:"body_parts"`
	ClothingItems     []wireSegment   `json:"clothing_items"`
	Detail            json.RawMessage `json:"detail"`
}

// DecodeResult parses a backend reply and classifies it. base is the trimmed
// base URL the request was sent to; relative paths are resolved against it.
func DecodeResult(base string, statusCode int, body []byte) (Result, error) {
	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	switch {
	case wire.ResultImage != "":
		return SingleImageResult{
			Image:             ResolveURL(base, wire.ResultImage),
			Path:              wire.ResultImage,
			Status:            wire.Status,
			MaskImage:         ResolveURL(base, wire.MaskImage),
			PersonImage:       ResolveURL(base, wire.PersonImage),
			GarmentImage:      ResolveURL(base, wire.GarmentImage),
			Category:          wire.Category,
			SegmentationModel: wire.SegmentationModel,
		}, nil
	case wire.Status == StatusCompleted:
		return AnalysisResult{
			PersonOriginal: ResolveURL(base, wire.PersonOriginal),
			BodyParts:      resolveSegments(base, wire.BodyParts),
			ClothingItems:  resolveSegments(base, wire.ClothingItems),
		}, nil
	default:
		return Unrecognized{
			StatusCode: statusCode,
			Status:     wire.Status,
			Detail:     detailText(wire.Detail),
		}, nil
	}
}

func resolveSegments(base string, in []wireSegment) []Segment {
	out := make([]Segment, 0, len(in))
	for _, s := range in {
		out = append(out, Segment{
			Label: s.Label,
			Path:  s.URL,
			URL:   ResolveURL(base, s.URL),
		})
	}
	return out
}

// detailText flattens FastAPI style detail values, which are either a string
// or a list of validation errors.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
