package session

import (
	"github.com/zulfkhar00/instafit_console/internal/backend"
)

// Event is anything Reduce knows how to apply.
type Event interface {
	isEvent()
}

type SetBaseURL struct{ URL string }

// SelectPerson replaces the person image; a nil Upload clears it.
type SelectPerson struct{ Upload *Upload }

// SelectGarment replaces the garment image; a nil Upload clears it.
type SelectGarment struct{ Upload *Upload }

type SelectModel struct{ Model backend.Model }

type DispatchStarted struct{ Flow Flow }

type DispatchSucceeded struct {
	Generation uint64
	Outcome    backend.Result
}

type DispatchFailed struct {
	Generation uint64
	Notice     string
}

type DismissNotice struct{}

type ResultsArchived struct {
	Generation uint64
	Images     []ArchivedImage
}

type ArchiveRemoved struct{ ID string }

func (SetBaseURL) isEvent()        {}
func (SelectPerson) isEvent()      {}
func (SelectGarment) isEvent()     {}
func (SelectModel) isEvent()       {}
func (DispatchStarted) isEvent()   {}
func (DispatchSucceeded) isEvent() {}
func (DispatchFailed) isEvent()    {}
func (DismissNotice) isEvent()     {}
func (ResultsArchived) isEvent()   {}
func (ArchiveRemoved) isEvent()    {}

// Reduce returns the state that follows s after e. s is not modified.
func Reduce(s State, e Event) State {
	next := s.Clone()
	switch e := e.(type) {
	case SetBaseURL:
		next.BaseURL = e.URL
		next.invalidateInFlight()
	case SelectPerson:
		next.Person = e.Upload
		next.invalidateInFlight()
	case SelectGarment:
		next.Garment = e.Upload
		next.invalidateInFlight()
	case SelectModel:
		next.Model = e.Model
		next.invalidateInFlight()

	case DispatchStarted:
		if !s.Can(e.Flow) {
			return s
		}
		next.InFlight = true
		next.Pending = e.Flow
		next.Phase = PhaseInFlight
		next.Generation++
		next.Inconclusive = false
		next.Notice = ""

	case DispatchSucceeded:
		if !next.settle(e.Generation) {
			return next
		}
		result, ok := ResultFrom(e.Outcome)
		if !ok {
			next.Inconclusive = true
			next.Phase = PhaseIdle
			return next
		}
		next.Result = result
		next.Archived = nil
		next.Phase = PhaseCompleted

	case DispatchFailed:
		if !next.settle(e.Generation) {
			return next
		}
		next.Notice = e.Notice
		next.Phase = PhaseFailed

	case DismissNotice:
		next.Notice = ""
		if next.Phase == PhaseFailed {
			next.Phase = PhaseIdle
		}

	case ResultsArchived:
		if e.Generation != s.Generation || next.Result == nil {
			return s
		}
		next.Archived = append(next.Archived, e.Images...)

	case ArchiveRemoved:
		kept := next.Archived[:0]
		for _, a := range next.Archived {
			if a.ID != e.ID {
				kept = append(kept, a)
			}
		}
		next.Archived = kept
	}
	return next
}

// invalidateInFlight makes a request that is still outstanding stale so its
// reply cannot overwrite state built from newer inputs.
func (s *State) invalidateInFlight() {
	if s.InFlight {
		s.Generation++
	}
}

// settle clears the in-flight flag and reports whether generation is current.
func (s *State) settle(generation uint64) bool {
	s.InFlight = false
	s.Pending = ""
	if generation != s.Generation {
		s.Phase = PhaseIdle
		return false
	}
	return true
}

// ResultFrom converts a decoded backend reply. Unrecognized replies yield
// false.
func ResultFrom(outcome backend.Result) (*Result, bool) {
	switch r := outcome.(type) {
	case backend.SingleImageResult:
		return &Result{Kind: ResultSingleImage, Image: r.Image, MaskImage: r.MaskImage}, true
	case backend.AnalysisResult:
		return &Result{
			Kind:          ResultAnalysis,
			BodyParts:     append([]backend.Segment{}, r.BodyParts...),
			ClothingItems: append([]backend.Segment{}, r.ClothingItems...),
		}, true
	}
	return nil, false
}
