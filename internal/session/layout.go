package session

// LayoutMode is the chosen visual arrangement of video tiles during an
// active call. UI-local, never persisted; every new session starts at
// LayoutDefault.
type LayoutMode string

const (
	LayoutGrid         LayoutMode = "grid"
	LayoutSpeakerLeft  LayoutMode = "speaker-left"
	LayoutSpeakerRight LayoutMode = "speaker-right"
	LayoutDefault      LayoutMode = "default"
)

func (m LayoutMode) Valid() bool {
	switch m {
	case LayoutGrid, LayoutSpeakerLeft, LayoutSpeakerRight, LayoutDefault:
		return true
	default:
		return false
	}
}

// Arrangement is the primary tile arrangement of a composition.
type Arrangement string

const (
	ArrangementPaginatedGrid Arrangement = "paginated_grid"
	ArrangementSpeaker       Arrangement = "speaker"
)

// StripPosition is where the secondary participant strip is rendered.
type StripPosition string

const (
	StripNone   StripPosition = ""
	StripLeft   StripPosition = "left"
	StripRight  StripPosition = "right"
	StripBottom StripPosition = "bottom"
)

// Composition is the visual layout the frontend should render.
type Composition struct {
	Arrangement Arrangement   `json:"arrangement"`
	Strip       StripPosition `json:"strip,omitempty"`
}

// compositions is the total mapping from layout mode to composition.
//
// The speaker-left/speaker-right inversion is deliberate and contractual:
// the mode names the speaker's side, so "speaker-left" puts the participant
// strip on the right and "speaker-right" puts it on the left.
var compositions = map[LayoutMode]Composition{
	LayoutGrid:         {Arrangement: ArrangementPaginatedGrid, Strip: StripNone},
	LayoutSpeakerLeft:  {Arrangement: ArrangementSpeaker, Strip: StripRight},
	LayoutSpeakerRight: {Arrangement: ArrangementSpeaker, Strip: StripLeft},
	LayoutDefault:      {Arrangement: ArrangementSpeaker, Strip: StripBottom},
}

// CompositionFor resolves a layout mode. The mapping is exhaustive over
// valid modes; anything else falls back to the default composition.
func CompositionFor(mode LayoutMode) Composition {
	if c, ok := compositions[mode]; ok {
		return c
	}
	return compositions[LayoutDefault]
}
