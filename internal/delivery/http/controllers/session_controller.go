package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"secretsanta/internal/delivery/http/helpers"
	"secretsanta/internal/delivery/http/middleware"
	"secretsanta/internal/domain"
)

// minParticipants mirrors the matcher's lower bound so bad requests fail fast.
const minParticipants = 3

// ParticipantRequest is one participant in a generate request.
type ParticipantRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GenerateRequest is the request body for POST /generate.
// is_organizer and send_emails are accepted as aliases used by older clients.
type GenerateRequest struct {
	Participants      []ParticipantRequest `json:"participants"`
	Budget            string               `json:"budget,omitempty"`
	OrganizerMode     *bool                `json:"organizer_mode,omitempty"`
	IsOrganizer       *bool                `json:"is_organizer,omitempty" swaggerignore:"true"`
	SendNotifications *bool                `json:"send_notifications,omitempty"`
	SendEmails        *bool                `json:"send_emails,omitempty" swaggerignore:"true"`
}

// Validate implements Validator.
func (g GenerateRequest) Validate() []string {
	var errs []string
	if len(g.Participants) < minParticipants {
		errs = append(errs, fmt.Sprintf("at least %d participants required", minParticipants))
	}
	return errs
}

func (g GenerateRequest) toInput() domain.CreateSessionInput {
	participants := make([]domain.Participant, len(g.Participants))
	for i, p := range g.Participants {
		participants[i] = domain.Participant{Name: strings.TrimSpace(p.Name), Email: strings.TrimSpace(p.Email)}
	}
	return domain.CreateSessionInput{
		Participants:      participants,
		Budget:            g.Budget,
		OrganizerMode:     firstBool(false, g.OrganizerMode, g.IsOrganizer),
		SendNotifications: firstBool(true, g.SendNotifications, g.SendEmails),
	}
}

// firstBool returns the first non-nil value, or def.
func firstBool(def bool, vals ...*bool) bool {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return def
}

// GenerateResponse is the response body for POST /generate.
type GenerateResponse struct {
	SessionID          string                      `json:"session_id"`
	Message            string                      `json:"message"`
	Budget             string                      `json:"budget,omitempty"`
	OrganizerMode      bool                        `json:"organizer_mode"`
	NotificationsSent  int                         `json:"notifications_sent"`
	NotificationStatus []domain.NotificationResult `json:"notification_status"`
}

// GenerateSuccessResponse is the success response envelope for POST /generate (201).
type GenerateSuccessResponse struct {
	Data  GenerateResponse  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// MatchesResponse is the response body for GET /get-matches.
type MatchesResponse struct {
	SessionID string           `json:"session_id"`
	Pairings  []domain.Pairing `json:"pairings"`
	Budget    string           `json:"budget,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	ExpiresAt time.Time        `json:"expires_at"`
}

// MatchesSuccessResponse is the success response envelope for GET /get-matches (200).
type MatchesSuccessResponse struct {
	Data  MatchesResponse   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type SessionController struct {
	Logger  *slog.Logger
	Service domain.SessionService
}

func NewSessionController(logger *slog.Logger, svc domain.SessionService) *SessionController {
	return &SessionController{
		Logger:  logger,
		Service: svc,
	}
}

// Generate godoc
// @Summary Generate Secret Santa matches
// @Description Draws a derangement of the participants, stores it for 30 days and emails every giver their receiver unless send_notifications is false. One failed email does not fail the request.
// @Tags matches
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Participants (at least 3) and options"
// @Success 201 {object} controllers.GenerateSuccessResponse "data contains the session id and per-recipient notification status"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (only when organizer tokens are enabled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /generate [post]
func (c *SessionController) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	res, err := c.Service.CreateSession(r.Context(), req.toInput())
	if err != nil {
		c.writeError(w, r, err)
		return
	}
	if organizerID, ok := middleware.OrganizerIDFromContext(r.Context()); ok {
		c.Logger.InfoContext(r.Context(), "session generated by organizer", "session_id", res.Session.ID, "organizer_id", organizerID)
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, GenerateResponse{
		SessionID:          res.Session.ID,
		Message:            "Matches generated successfully!",
		Budget:             res.Session.Budget,
		OrganizerMode:      res.Session.OrganizerMode,
		NotificationsSent:  res.NotificationsSent(),
		NotificationStatus: res.Notifications,
	})
}

// GetMatches godoc
// @Summary Get the matches of an organizer session
// @Description Returns every pairing of a session created with organizer_mode. Sessions created without it are not retrievable.
// @Tags matches
// @Produce json
// @Param session_id query string true "Session ID"
// @Success 200 {object} controllers.MatchesSuccessResponse "data contains the pairings"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (only when organizer tokens are enabled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /get-matches [get]
func (c *SessionController) GetMatches(w http.ResponseWriter, r *http.Request) {
	session, ok := c.loadSession(w, r)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, MatchesResponse{
		SessionID: session.ID,
		Pairings:  session.Pairings,
		Budget:    session.Budget,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}

// ExportMatches godoc
// @Summary Download the matches of an organizer session as CSV
// @Description Same access rules as get-matches. Columns: Giver Name, Giver Email, Receiver Name, Receiver Email, Budget.
// @Tags matches
// @Produce text/csv
// @Param session_id query string true "Session ID"
// @Success 200 {string} string "CSV file"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized (only when organizer tokens are enabled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Security BearerAuth
// @Router /export-matches [get]
func (c *SessionController) ExportMatches(w http.ResponseWriter, r *http.Request) {
	session, ok := c.loadSession(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="secret-santa-matches-%s.csv"`, session.ID))
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Giver Name", "Giver Email", "Receiver Name", "Receiver Email", "Budget"})
	for _, p := range session.Pairings {
		_ = cw.Write([]string{
			csvCell(p.Giver.Name), csvCell(p.Giver.Email),
			csvCell(p.Receiver.Name), csvCell(p.Receiver.Email),
			csvCell(session.Budget),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		c.Logger.ErrorContext(r.Context(), "write csv", "session_id", session.ID, "err", err)
	}
}

// csvCell quotes values a spreadsheet would otherwise evaluate as a formula.
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func (c *SessionController) loadSession(w http.ResponseWriter, r *http.Request) (*domain.Session, bool) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "session_id is required")
		return nil, false
	}
	session, err := c.Service.GetSession(r.Context(), sessionID)
	if err != nil {
		c.writeError(w, r, err)
		return nil, false
	}
	return session, true
}

// writeError maps service errors to responses. Unexpected errors are logged
// with detail and reported with a generic message.
func (c *SessionController) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "session not found")
	case errors.Is(err, domain.ErrForbidden):
		helpers.WriteJSONError(w, http.StatusForbidden, helpers.ErrCodeForbidden, "access denied: this session was not created with organizer access")
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal server error")
	}
}
