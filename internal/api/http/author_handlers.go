package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/quiz"
)

// AuthorAPI is the instructor-side question/option CRUD. Routes are mounted
// behind quiz:author.
type AuthorAPI struct {
	Repo     quiz.Repository
	Validate *validator.Validate
}

func NewAuthorAPI(repo quiz.Repository) *AuthorAPI {
	return &AuthorAPI{Repo: repo, Validate: validator.New()}
}

func (a *AuthorAPI) Mount(r chi.Router) {
	r.Post("/units/{unitID}/questions", a.createQuestion)
	r.Get("/units/{unitID}/questions", a.listQuestions)
	r.Patch("/questions/{questionID}", a.updateQuestion)
	r.Delete("/questions/{questionID}", a.deleteQuestion)
	r.Post("/questions/{questionID}/options", a.createOption)
	r.Patch("/options/{optionID}", a.updateOption)
	r.Delete("/options/{optionID}", a.deleteOption)
}

type optionReq struct {
	ID       uuid.UUID `json:"id,omitempty"`
	Label    string    `json:"label" validate:"required"`
	Correct  bool      `json:"correct"`
	Position int       `json:"position" validate:"gte=0"`
}

type questionReq struct {
	ID          uuid.UUID   `json:"id,omitempty"`
	Prompt      string      `json:"prompt" validate:"required"`
	Kind        quiz.Kind   `json:"kind" validate:"required,oneof=choice-single true-false free-text"`
	Points      float64     `json:"points" validate:"required,gt=0"`
	Position    int         `json:"position" validate:"gte=0"`
	Explanation string      `json:"explanation,omitempty"`
	Options     []optionReq `json:"options,omitempty" validate:"dive"`
}

// validateShape mirrors the store constraints so authors fail fast: choice
// kinds need at least two options, true-false needs exactly one correct one.
func (a *AuthorAPI) validateShape(req questionReq) string {
	if !req.Kind.Choice() {
		if len(req.Options) > 0 {
			return "free-text questions take no options"
		}
		return ""
	}
	if len(req.Options) < 2 {
		return "choice questions need at least two options"
	}
	if req.Kind == quiz.KindTrueFalse {
		correct := 0
		for _, o := range req.Options {
			if o.Correct {
				correct++
			}
		}
		if correct != 1 {
			return "true-false questions need exactly one correct option"
		}
	}
	return ""
}

func (a *AuthorAPI) createQuestion(w http.ResponseWriter, r *http.Request) {
	unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		http.Error(w, "bad unit id", http.StatusBadRequest)
		return
	}
	var req questionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if msg := a.validateShape(req); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	opts := make([]quiz.Option, 0, len(req.Options))
	for _, o := range req.Options {
		opts = append(opts, quiz.Option{
			ID:       o.ID,
			Label:    o.Label,
			Correct:  o.Correct,
			Position: o.Position,
		})
	}
	// question + options land in one store transaction
	q, err := a.Repo.CreateQuestion(r.Context(), quiz.Question{
		ID:            req.ID,
		ContentUnitID: unitID,
		Prompt:        req.Prompt,
		Kind:          req.Kind,
		Points:        req.Points,
		Position:      req.Position,
		Explanation:   req.Explanation,
		Options:       opts,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

// listQuestions is the author view: correctness flags included.
func (a *AuthorAPI) listQuestions(w http.ResponseWriter, r *http.Request) {
	unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		http.Error(w, "bad unit id", http.StatusBadRequest)
		return
	}
	qs, err := a.Repo.ListQuestions(r.Context(), unitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, qs)
}

func (a *AuthorAPI) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "questionID"))
	if err != nil {
		http.Error(w, "bad question id", http.StatusBadRequest)
		return
	}
	var req questionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	q, err := a.Repo.UpdateQuestion(r.Context(), quiz.Question{
		ID:          id,
		Prompt:      req.Prompt,
		Kind:        req.Kind,
		Points:      req.Points,
		Position:    req.Position,
		Explanation: req.Explanation,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (a *AuthorAPI) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "questionID"))
	if err != nil {
		http.Error(w, "bad question id", http.StatusBadRequest)
		return
	}
	if err := a.Repo.SoftDeleteQuestion(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *AuthorAPI) createOption(w http.ResponseWriter, r *http.Request) {
	qid, err := uuid.Parse(chi.URLParam(r, "questionID"))
	if err != nil {
		http.Error(w, "bad question id", http.StatusBadRequest)
		return
	}
	var req optionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o, err := a.Repo.CreateOption(r.Context(), quiz.Option{
		ID:         req.ID,
		QuestionID: qid,
		Label:      req.Label,
		Correct:    req.Correct,
		Position:   req.Position,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (a *AuthorAPI) updateOption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "optionID"))
	if err != nil {
		http.Error(w, "bad option id", http.StatusBadRequest)
		return
	}
	var req optionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	o, err := a.Repo.UpdateOption(r.Context(), quiz.Option{
		ID:       id,
		Label:    req.Label,
		Correct:  req.Correct,
		Position: req.Position,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *AuthorAPI) deleteOption(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "optionID"))
	if err != nil {
		http.Error(w, "bad option id", http.StatusBadRequest)
		return
	}
	if err := a.Repo.SoftDeleteOption(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
