package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/skillramp/skillramp-portal/internal/content"
)

// ContentAPI serves course content listings and the viewer decision for a
// unit: quiz runner when the unit has active questions, media otherwise.
type ContentAPI struct {
	Units    *content.SQLStore
	Resolver *content.Resolver
}

func (a *ContentAPI) Mount(r chi.Router) {
	r.Get("/courses/{courseID}/units", a.listUnits)
	r.Get("/units/{unitID}", a.getUnit)
	r.Get("/units/{unitID}/viewer", a.viewer)
}

func (a *ContentAPI) listUnits(w http.ResponseWriter, r *http.Request) {
	courseID, err := uuid.Parse(chi.URLParam(r, "courseID"))
	if err != nil {
		http.Error(w, "bad course id", http.StatusBadRequest)
		return
	}
	units, err := a.Units.ListUnits(r.Context(), courseID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (a *ContentAPI) getUnit(w http.ResponseWriter, r *http.Request) {
	unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		http.Error(w, "bad unit id", http.StatusBadRequest)
		return
	}
	u, err := a.Units.GetUnit(r.Context(), unitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (a *ContentAPI) viewer(w http.ResponseWriter, r *http.Request) {
	unitID, err := uuid.Parse(chi.URLParam(r, "unitID"))
	if err != nil {
		http.Error(w, "bad unit id", http.StatusBadRequest)
		return
	}
	d, err := a.Resolver.Resolve(r.Context(), unitID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
