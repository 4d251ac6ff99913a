// Package httpapi exposes the REST API for the headshot platform.
package httpapi

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	app "github.com/studioshot/platform/internal/app"
	"github.com/studioshot/platform/internal/app/domain/credit"
	"github.com/studioshot/platform/internal/app/domain/person"
	"github.com/studioshot/platform/internal/app/domain/team"
	creditsvc "github.com/studioshot/platform/internal/app/services/credits"
	generationsvc "github.com/studioshot/platform/internal/app/services/generations"
	personsvc "github.com/studioshot/platform/internal/app/services/persons"
	selfiesvc "github.com/studioshot/platform/internal/app/services/selfies"
	teamsvc "github.com/studioshot/platform/internal/app/services/teams"
	"github.com/studioshot/platform/internal/middleware"
)

const presignTTL = 15 * time.Minute

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app   *app.Application
	auth  *middleware.Auth
	audit *auditLog
}

// NewHandler returns a mux exposing the core REST API. auth issues tokens
// for the register/login endpoints; auditSinkPath optionally appends JSONL
// audit entries to a file.
func NewHandler(application *app.Application, auth *middleware.Auth, auditSinkPath string) (http.Handler, error) {
	sink, err := newFileAuditSink(auditSinkPath)
	if err != nil {
		return nil, fmt.Errorf("open audit sink: %w", err)
	}

	h := &handler{app: application, auth: auth, audit: newAuditLog(200, sink)}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/register", h.register)
	mux.HandleFunc("/auth/login", h.login)
	mux.HandleFunc("/persons", h.persons)
	mux.HandleFunc("/persons/", h.personResources)
	mux.HandleFunc("/teams", h.teams)
	mux.HandleFunc("/teams/", h.teamResources)
	mux.HandleFunc("/teams/invites/accept", h.acceptInvite)
	mux.HandleFunc("/dashboard/stats", h.dashboardStats)
	mux.HandleFunc("/feedback", h.feedback)
	mux.HandleFunc("/audit", h.auditEntries)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return h.withAudit(mux), nil
}

// --- persons ----------------------------------------------------------------

func (h *handler) persons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	teamID := r.URL.Query().Get("team_id")
	if actor := middleware.GetPersonID(r.Context()); actor != "" {
		// Admins see their own team only; members see nobody else.
		if middleware.GetRole(r.Context()) != "admin" {
			writeError(w, http.StatusForbidden, errors.New("admin role required"))
			return
		}
		p, err := h.app.Persons.Get(r.Context(), actor)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if p.TeamID == "" {
			writeJSON(w, http.StatusOK, []person.Person{})
			return
		}
		teamID = p.TeamID
	}
	list, err := h.app.Persons.List(r.Context(), teamID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *handler) personResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/persons"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	personID := parts[0]

	if !h.allowPersonAccess(r, personID) {
		writeError(w, http.StatusForbidden, errors.New("access denied"))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			p, err := h.app.Persons.Get(r.Context(), personID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		case http.MethodDelete:
			if err := h.app.Persons.Delete(r.Context(), personID); err != nil {
				writeServiceError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "selfies":
		h.personSelfies(w, r, personID, parts[2:])
	case "generations":
		h.personGenerations(w, r, personID, parts[2:])
	case "credits":
		h.personCredits(w, r, personID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) personSelfies(w http.ResponseWriter, r *http.Request, personID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, selfiesvc.MaxUploadBytes+1))
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
				return
			}
			record, err := h.app.Selfies.Upload(r.Context(), personID, r.Header.Get("Content-Type"), data)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, record)
		case http.MethodGet:
			list, err := h.app.Selfies.List(r.Context(), personID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	selfieID := rest[0]
	switch r.Method {
	case http.MethodGet:
		record, err := h.app.Selfies.Get(r.Context(), selfieID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if record.PersonID != personID {
			writeError(w, http.StatusNotFound, sql.ErrNoRows)
			return
		}
		url, err := h.app.Objects.Presign(r.Context(), record.ObjectKey, presignTTL)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"selfie": record, "url": url})
	case http.MethodDelete:
		if err := h.app.Selfies.Delete(r.Context(), personID, selfieID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) personGenerations(w http.ResponseWriter, r *http.Request, personID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			var payload struct {
				ContextID string `json:"context_id"`
				Style     string `json:"style"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			g, err := h.app.Generations.Create(r.Context(), personID, payload.ContextID, payload.Style,
				middleware.GetBrand(r.Context()))
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, g)
		case http.MethodGet:
			list, err := h.app.Generations.List(r.Context(), personID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	generationID := rest[0]
	g, err := h.app.Generations.Get(r.Context(), generationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if g.PersonID != personID {
		writeError(w, http.StatusNotFound, sql.ErrNoRows)
		return
	}

	if len(rest) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		urls := make([]string, 0, len(g.ResultKeys))
		for _, key := range g.ResultKeys {
			url, err := h.app.Objects.Presign(r.Context(), key, presignTTL)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
			urls = append(urls, url)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"generation": g, "result_urls": urls})
		return
	}

	switch rest[1] {
	case "regenerate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		regen, err := h.app.Generations.Regenerate(r.Context(), generationID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, regen)
	case "group":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		group, err := h.app.Generations.ListGroup(r.Context(), g.GroupID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, group)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) personCredits(w http.ResponseWriter, r *http.Request, personID string) {
	switch r.Method {
	case http.MethodGet:
		balance, err := h.app.Credits.Balance(r.Context(), credit.SourcePerson, personID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ledger, err := h.app.Credits.Ledger(r.Context(), credit.SourcePerson, personID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance, "ledger": ledger})
	case http.MethodPost:
		var payload struct {
			Amount int64  `json:"amount"`
			Kind   string `json:"kind"`
			Note   string `json:"note"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var (
			tx  credit.Transaction
			err error
		)
		switch payload.Kind {
		case "purchase":
			tx, err = h.app.Credits.Purchase(r.Context(), credit.SourcePerson, personID, payload.Amount, payload.Note)
		case "grant", "":
			tx, err = h.app.Credits.Grant(r.Context(), credit.SourcePerson, personID, payload.Amount, payload.Note)
		default:
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown kind %q", payload.Kind))
			return
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- teams ------------------------------------------------------------------

func (h *handler) teams(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Name    string `json:"name"`
			AdminID string `json:"admin_id"`
			Seats   int    `json:"seats"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		adminID := middleware.GetPersonID(r.Context())
		if adminID == "" {
			adminID = payload.AdminID
		}
		t, err := h.app.Teams.Create(r.Context(), payload.Name, adminID, payload.Seats,
			middleware.GetBrand(r.Context()))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, t)
	case http.MethodGet:
		list, err := h.app.Teams.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) teamResources(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.Trim(strings.TrimPrefix(r.URL.Path, "/teams"), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	teamID := parts[0]
	actorID := middleware.GetPersonID(r.Context())

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			t, err := h.app.Teams.Get(r.Context(), teamID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, t)
		case http.MethodPut:
			var payload struct {
				Name  string `json:"name"`
				Seats int    `json:"seats"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			t, err := h.app.Teams.Update(r.Context(), teamID, actorID, payload.Name, payload.Seats)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, t)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "invites":
		h.teamInvites(w, r, teamID, actorID, parts[2:])
	case "members":
		h.teamMembers(w, r, teamID, actorID, parts[2:])
	case "contexts":
		h.teamContexts(w, r, teamID, actorID, parts[2:])
	case "generations":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.app.Generations.ListTeam(r.Context(), teamID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case "credits":
		h.teamCredits(w, r, teamID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *handler) teamInvites(w http.ResponseWriter, r *http.Request, teamID, actorID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			var payload struct {
				Email string `json:"email"`
			}
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			inv, err := h.app.Teams.Invite(r.Context(), teamID, actorID, payload.Email)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, inv)
		case http.MethodGet:
			list, err := h.app.Teams.ListInvites(r.Context(), teamID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Teams.RevokeInvite(r.Context(), teamID, actorID, rest[0]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) acceptInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var payload struct {
		Token    string `json:"token"`
		PersonID string `json:"person_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	personID := middleware.GetPersonID(r.Context())
	if personID == "" {
		personID = payload.PersonID
	}
	inv, err := h.app.Teams.Accept(r.Context(), payload.Token, personID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *handler) teamMembers(w http.ResponseWriter, r *http.Request, teamID, actorID string, rest []string) {
	if len(rest) == 0 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		members, err := h.app.Teams.Members(r.Context(), teamID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, members)
		return
	}

	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := h.app.Teams.RevokeMember(r.Context(), teamID, actorID, rest[0]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) teamContexts(w http.ResponseWriter, r *http.Request, teamID, actorID string, rest []string) {
	type contextPayload struct {
		Name       string `json:"name"`
		LogoKey    string `json:"logo_key"`
		Background string `json:"background"`
		Clothing   string `json:"clothing"`
	}

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodPost:
			var payload contextPayload
			if err := decodeJSON(r.Body, &payload); err != nil {
				writeError(w, http.StatusBadRequest, err)
				return
			}
			bc, err := h.app.Teams.CreateContext(r.Context(), teamID, actorID, team.BrandContext{
				Name:       payload.Name,
				LogoKey:    payload.LogoKey,
				Background: payload.Background,
				Clothing:   payload.Clothing,
			})
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, bc)
		case http.MethodGet:
			list, err := h.app.Teams.ListContexts(r.Context(), teamID)
			if err != nil {
				writeServiceError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, list)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	contextID := rest[0]
	switch r.Method {
	case http.MethodGet:
		bc, err := h.app.Teams.GetContext(r.Context(), teamID, contextID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bc)
	case http.MethodPut:
		var payload contextPayload
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		bc, err := h.app.Teams.UpdateContext(r.Context(), teamID, actorID, team.BrandContext{
			ID:         contextID,
			Name:       payload.Name,
			LogoKey:    payload.LogoKey,
			Background: payload.Background,
			Clothing:   payload.Clothing,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bc)
	case http.MethodDelete:
		if err := h.app.Teams.DeleteContext(r.Context(), teamID, actorID, contextID); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) teamCredits(w http.ResponseWriter, r *http.Request, teamID string) {
	switch r.Method {
	case http.MethodGet:
		balance, err := h.app.Credits.Balance(r.Context(), credit.SourceTeam, teamID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		ledger, err := h.app.Credits.Ledger(r.Context(), credit.SourceTeam, teamID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance, "ledger": ledger})
	case http.MethodPost:
		var payload struct {
			Amount int64  `json:"amount"`
			Kind   string `json:"kind"`
			Note   string `json:"note"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		var (
			tx  credit.Transaction
			err error
		)
		if payload.Kind == "purchase" {
			tx, err = h.app.Credits.Purchase(r.Context(), credit.SourceTeam, teamID, payload.Amount, payload.Note)
		} else {
			tx, err = h.app.Credits.Grant(r.Context(), credit.SourceTeam, teamID, payload.Amount, payload.Note)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- dashboard, feedback, audit ---------------------------------------------

func (h *handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	personID := r.URL.Query().Get("person_id")
	if personID == "" {
		personID = middleware.GetPersonID(r.Context())
	}
	if personID == "" {
		writeError(w, http.StatusBadRequest, errors.New("person_id is required"))
		return
	}
	if !h.allowPersonAccess(r, personID) {
		writeError(w, http.StatusForbidden, errors.New("access denied"))
		return
	}
	stats, err := h.app.Generations.Stats(r.Context(), personID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) feedback(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var payload struct {
			Rating  int    `json:"rating"`
			Message string `json:"message"`
		}
		if err := decodeJSON(r.Body, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		fb, err := h.app.Feedback.Create(r.Context(), middleware.GetPersonID(r.Context()), payload.Rating, payload.Message)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, fb)
	case http.MethodGet:
		if !h.requireAdmin(w, r) {
			return
		}
		list, err := h.app.Feedback.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *handler) auditEntries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !h.requireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.audit.listLimit(0))
}

// requireAdmin rejects authenticated callers without the admin role.
// Unauthenticated requests were already filtered by the auth middleware skip
// list, so an empty actor passes.
func (h *handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if middleware.GetPersonID(r.Context()) != "" && middleware.GetRole(r.Context()) != "admin" {
		writeError(w, http.StatusForbidden, errors.New("admin role required"))
		return false
	}
	return true
}

// allowPersonAccess reports whether the caller may touch personID's
// resources. Unauthenticated requests were already filtered by the auth
// middleware skip list; admins pass for their team members.
func (h *handler) allowPersonAccess(r *http.Request, personID string) bool {
	actor := middleware.GetPersonID(r.Context())
	if actor == "" || actor == personID {
		return true
	}
	if middleware.GetRole(r.Context()) != "admin" {
		return false
	}
	actorPerson, err := h.app.Persons.Get(r.Context(), actor)
	if err != nil {
		return false
	}
	target, err := h.app.Persons.Get(r.Context(), personID)
	if err != nil {
		return false
	}
	return actorPerson.TeamID != "" && actorPerson.TeamID == target.TeamID
}

// --- helpers ----------------------------------------------------------------

func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, driver.ErrBadConn):
		status = http.StatusInternalServerError
	case errors.Is(err, sql.ErrNoRows):
		status = http.StatusNotFound
	case errors.Is(err, creditsvc.ErrInsufficientCredits):
		status = http.StatusPaymentRequired
	case errors.Is(err, teamsvc.ErrNotAdmin):
		status = http.StatusForbidden
	case errors.Is(err, personsvc.ErrEmailTaken),
		errors.Is(err, teamsvc.ErrSeatLimit),
		errors.Is(err, teamsvc.ErrInviteConsumed),
		errors.Is(err, generationsvc.ErrRegenerationQuota),
		errors.Is(err, generationsvc.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, teamsvc.ErrInviteExpired):
		status = http.StatusGone
	case errors.Is(err, selfiesvc.ErrTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, selfiesvc.ErrUnsupportedType):
		status = http.StatusUnsupportedMediaType
	}
	writeError(w, status, err)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
