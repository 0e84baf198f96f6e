package backend

import (
	"fmt"
	"strings"
)

// Model selects the segmentation model used by the analyze endpoint.
type Model string

const (
	ModelSegformerB2 Model = "b2"
	ModelSegformerB5 Model = "b5"
	ModelSAM         Model = "sam"
)

// DefaultModel is what the backend assumes when model_type is omitted.
const DefaultModel = ModelSegformerB2

// DefaultCategory is the only garment category the console submits.
const DefaultCategory = "upper_body"

var models = []Model{ModelSegformerB2, ModelSegformerB5, ModelSAM}

// Models lists the selectable models in display order.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// ParseModel accepts b2, b5 or sam, case-insensitively.
func ParseModel(s string) (Model, error) {
	m := Model(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range models {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown model type %q (want b2, b5 or sam)", s)
}
