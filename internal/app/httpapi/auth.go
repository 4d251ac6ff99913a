package httpapi

import (
	"errors"
	"net/http"

	"github.com/studioshot/platform/internal/app/domain/person"
	personsvc "github.com/studioshot/platform/internal/app/services/persons"
	"github.com/studioshot/platform/internal/middleware"
)

type authResponse struct {
	Token  string        `json:"token"`
	Person person.Person `json:"person"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.app.Persons.Register(r.Context(), payload.Email, payload.Name, payload.Password,
		middleware.GetBrand(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	token, err := h.auth.IssueToken(p.ID, p.Email, string(p.Role), p.Brand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, Person: p})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.app.Persons.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, personsvc.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	token, err := h.auth.IssueToken(p.ID, p.Email, string(p.Role), p.Brand)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, Person: p})
}
