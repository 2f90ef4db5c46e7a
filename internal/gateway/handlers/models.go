package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"ctxfeed/internal/models"
)

// ModelsResponse lists the registry's profiles sorted by id.
type ModelsResponse struct {
	Models []models.Profile `json:"models"`
}

// ListModels serves GET /api/v1/models.
func ListModels(reg *models.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		SendJSON(w, http.StatusOK, ModelsResponse{Models: reg.List()})
	}
}

// GetModel serves GET /api/v1/models/{id}.
func GetModel(reg *models.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := reg.Get(mux.Vars(r)["id"])
		if errors.Is(err, models.ErrConfiguration) {
			SendError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
			return
		}
		if err != nil {
			SendError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
			return
		}
		SendJSON(w, http.StatusOK, p)
	}
}
