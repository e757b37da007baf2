package ranking

import "fmt"

// Kind classifies a per-candidate ranking problem
type Kind string

const (
	// KindDimensionMismatch means a modality has different lengths in query and candidate
	KindDimensionMismatch Kind = "DIMENSION_MISMATCH"
	// KindEmptyCatalog means the catalog had no candidates
	KindEmptyCatalog Kind = "EMPTY_CATALOG"
	// KindDegenerateHistogram means a histogram had zero variance and its correlation was set to 0
	KindDegenerateHistogram Kind = "DEGENERATE_HISTOGRAM"
	// KindInvalidDominantColorSet means the query or candidate color set was empty
	KindInvalidDominantColorSet Kind = "INVALID_DOMINANT_COLOR_SET"
)

// Modality names used in Error.Modality
const (
	ModalityRed    = "rgb.red"
	ModalityGreen  = "rgb.green"
	ModalityBlue   = "rgb.blue"
	ModalityLBP    = "lbp"
	ModalityHOG    = "hog"
	ModalityColors = "dominant_colors"
)

var channelModality = [3]string{ModalityRed, ModalityGreen, ModalityBlue}

// Error describes a problem with a single candidate. None of these abort a
// scan; they are collected and returned next to the ranked list.
type Error struct {
	Kind     Kind   `json:"kind"`
	ItemID   string `json:"item_id,omitempty"`
	Modality string `json:"modality,omitempty"`
	Message  string `json:"message"`
}

func (e *Error) Error() string {
	if e.ItemID == "" {
		return e.Message
	}
	return fmt.Sprintf("item %s: %s", e.ItemID, e.Message)
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, ErrDimensionMismatch) works for any item.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is
var (
	ErrDimensionMismatch       = &Error{Kind: KindDimensionMismatch, Message: "dimension mismatch"}
	ErrEmptyCatalog            = &Error{Kind: KindEmptyCatalog, Message: "empty catalog"}
	ErrDegenerateHistogram     = &Error{Kind: KindDegenerateHistogram, Message: "degenerate histogram"}
	ErrInvalidDominantColorSet = &Error{Kind: KindInvalidDominantColorSet, Message: "invalid dominant color set"}
)

func newDimensionMismatch(itemID, modality string, want, got int) *Error {
	return &Error{
		Kind:     KindDimensionMismatch,
		ItemID:   itemID,
		Modality: modality,
		Message:  fmt.Sprintf("%s length mismatch: query has %d bins, candidate has %d", modality, want, got),
	}
}

// GetError returns err as *Error, or nil if it is not one
func GetError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return nil
}

// IsDimensionMismatch checks whether err is a dimension mismatch
func IsDimensionMismatch(err error) bool {
	e := GetError(err)
	return e != nil && e.Kind == KindDimensionMismatch
}

// IsInvalidDominantColorSet checks whether err is an invalid color set
func IsInvalidDominantColorSet(err error) bool {
	e := GetError(err)
	return e != nil && e.Kind == KindInvalidDominantColorSet
}
