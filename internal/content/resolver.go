package content

import (
	"context"

	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/quiz"
)

// UnitGetter is the slice of the content store the resolver needs.
type UnitGetter interface {
	GetUnit(ctx context.Context, id uuid.UUID) (Unit, error)
}

// Resolver decides what the viewer shows for a unit: the quiz runner when the
// unit has at least one active question, otherwise the unit's media with its
// ordered source fallback chain.
type Resolver struct {
	units   UnitGetter
	quizzes quiz.Repository
}

func NewResolver(units UnitGetter, quizzes quiz.Repository) *Resolver {
	return &Resolver{units: units, quizzes: quizzes}
}

func (r *Resolver) Resolve(ctx context.Context, unitID uuid.UUID) (ViewerDecision, error) {
	u, err := r.units.GetUnit(ctx, unitID)
	if err != nil {
		return ViewerDecision{}, err
	}
	questions, err := r.quizzes.ListQuestions(ctx, unitID)
	if err != nil {
		return ViewerDecision{}, err
	}
	if len(questions) > 0 {
		return ViewerDecision{Mode: ViewerQuiz}, nil
	}
	d := ViewerDecision{Mode: ViewerMedia, Kind: u.Kind}
	for _, src := range []string{u.MediaURL, u.FallbackURL} {
		if src != "" {
			d.Sources = append(d.Sources, src)
		}
	}
	return d, nil
}
