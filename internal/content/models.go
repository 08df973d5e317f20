package content

import (
	"github.com/google/uuid"
)

// UnitKind is the media kind of a content unit. Quiz is not a kind of its
// own: a unit becomes a quiz by having active questions attached.
type UnitKind string

const (
	UnitVideo    UnitKind = "video"
	UnitPDF      UnitKind = "pdf"
	UnitDocument UnitKind = "document"
)

type Unit struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	Title       string    `json:"title"`
	Kind        UnitKind  `json:"kind"`
	MediaURL    string    `json:"media_url,omitempty"`
	FallbackURL string    `json:"fallback_url,omitempty"`
	Position    int       `json:"position"`
}

// ViewerMode tells the client which surface to render for a unit.
type ViewerMode string

const (
	ViewerQuiz  ViewerMode = "quiz"
	ViewerMedia ViewerMode = "media"
)

// ViewerDecision is the resolved viewer for one unit. Sources is the ordered
// fallback chain for media units: primary URL first, then the fallback.
type ViewerDecision struct {
	Mode    ViewerMode `json:"mode"`
	Kind    UnitKind   `json:"kind,omitempty"`
	Sources []string   `json:"sources,omitempty"`
}
