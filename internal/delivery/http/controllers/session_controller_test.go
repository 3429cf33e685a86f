package controllers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"secretsanta/internal/delivery/http/helpers"
	"secretsanta/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeSessionService implements domain.SessionService for handler tests.
type fakeSessionService struct {
	createErr    error
	createResult *domain.CreateSessionResult
	lastCreate   *domain.CreateSessionInput
	getErr       error
	getResult    *domain.Session
	lastGetID    string
}

func (f *fakeSessionService) CreateSession(ctx context.Context, in domain.CreateSessionInput) (*domain.CreateSessionResult, error) {
	f.lastCreate = &in
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createResult, nil
}

func (f *fakeSessionService) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	f.lastGetID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getResult, nil
}

var (
	alice = domain.Participant{Name: "Alice", Email: "alice@example.com"}
	bob   = domain.Participant{Name: "Bob", Email: "bob@example.com"}
	carol = domain.Participant{Name: "Carol", Email: "carol@example.com"}
)

func testSession() *domain.Session {
	return domain.NewSession("sess-1", []domain.Pairing{
		{Giver: alice, Receiver: bob},
		{Giver: bob, Receiver: carol},
		{Giver: carol, Receiver: alice},
	}, "$20-$30", true, time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC))
}

const threeParticipants = `[{"name":"Alice","email":"alice@example.com"},{"name":"Bob","email":"bob@example.com"},{"name":"Carol","email":"carol@example.com"}]`

func decodeEnvelope(t *testing.T, body io.Reader, data any) *helpers.APIError {
	t.Helper()
	var env struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&env))
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

func TestSessionController_Generate(t *testing.T) {
	session := testSession()
	svc := &fakeSessionService{createResult: &domain.CreateSessionResult{
		Session: session,
		Notifications: []domain.NotificationResult{
			{Email: alice.Email, Status: domain.NotificationSent, MessageID: "m-1"},
			{Email: bob.Email, Status: domain.NotificationFailed, Error: "send assignment email: throttled"},
			{Email: carol.Email, Status: domain.NotificationSent, MessageID: "m-3"},
		},
	}}
	c := NewSessionController(testLogger, svc)

	body := `{"participants":` + threeParticipants + `,"budget":"$20-$30","organizer_mode":true}`
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	rr := httptest.NewRecorder()
	c.Generate(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var got GenerateResponse
	require.Nil(t, decodeEnvelope(t, rr.Body, &got))
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "Matches generated successfully!", got.Message)
	assert.Equal(t, "$20-$30", got.Budget)
	assert.True(t, got.OrganizerMode)
	assert.Equal(t, 2, got.NotificationsSent)
	require.Len(t, got.NotificationStatus, 3)
	assert.Equal(t, domain.NotificationFailed, got.NotificationStatus[1].Status)
	assert.Contains(t, got.NotificationStatus[1].Error, "throttled")

	in := svc.lastCreate
	require.NotNil(t, in)
	assert.Equal(t, []domain.Participant{alice, bob, carol}, in.Participants)
	assert.True(t, in.OrganizerMode)
	assert.True(t, in.SendNotifications, "notifications default to on")
}

func TestSessionController_Generate_Flags(t *testing.T) {
	tests := []struct {
		name          string
		extra         string
		wantOrganizer bool
		wantNotify    bool
	}{
		{"defaults", ``, false, true},
		{"explicit", `,"organizer_mode":true,"send_notifications":false`, true, false},
		{"legacy aliases", `,"is_organizer":true,"send_emails":false`, true, false},
		{"new names win over aliases", `,"organizer_mode":false,"is_organizer":true`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSessionService{createResult: &domain.CreateSessionResult{Session: testSession(), Notifications: []domain.NotificationResult{}}}
			c := NewSessionController(testLogger, svc)
			req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"participants":`+threeParticipants+tt.extra+`}`))
			rr := httptest.NewRecorder()

			c.Generate(rr, req)

			require.Equal(t, http.StatusCreated, rr.Code)
			assert.Equal(t, tt.wantOrganizer, svc.lastCreate.OrganizerMode)
			assert.Equal(t, tt.wantNotify, svc.lastCreate.SendNotifications)
		})
	}
}

func TestSessionController_Generate_Errors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		svcErr      error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantCalled  bool
	}{
		{
			name:        "two participants",
			body:        `{"participants":[{"name":"A","email":"a@example.com"},{"name":"B","email":"b@example.com"}]}`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    helpers.ErrCodeBadRequest,
			wantMessage: "at least 3 participants required",
		},
		{
			name:       "malformed body",
			body:       `{"participants":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   helpers.ErrCodeBadRequest,
		},
		{
			name:        "service validation",
			body:        `{"participants":` + threeParticipants + `}`,
			svcErr:      fmt.Errorf("%w: participants[2].email duplicates participants[0]", domain.ErrInvalidInput),
			wantStatus:  http.StatusBadRequest,
			wantCode:    helpers.ErrCodeBadRequest,
			wantMessage: "duplicates",
			wantCalled:  true,
		},
		{
			name:        "storage failure is not leaked",
			body:        `{"participants":` + threeParticipants + `}`,
			svcErr:      errors.New("save session: dial tcp 10.0.0.7:5432: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    helpers.ErrCodeInternalError,
			wantMessage: "internal server error",
			wantCalled:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSessionService{createErr: tt.svcErr}
			c := NewSessionController(testLogger, svc)
			req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()

			c.Generate(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decodeEnvelope(t, rr.Body, nil)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Contains(t, apiErr.Message, tt.wantMessage)
			assert.NotContains(t, apiErr.Message, "10.0.0.7")
			assert.Equal(t, tt.wantCalled, svc.lastCreate != nil)
		})
	}
}

func TestSessionController_GetMatches(t *testing.T) {
	svc := &fakeSessionService{getResult: testSession()}
	c := NewSessionController(testLogger, svc)

	req := httptest.NewRequest(http.MethodGet, "/get-matches?session_id=sess-1", nil)
	rr := httptest.NewRecorder()
	c.GetMatches(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got MatchesResponse
	require.Nil(t, decodeEnvelope(t, rr.Body, &got))
	assert.Equal(t, "sess-1", svc.lastGetID)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, testSession().Pairings, got.Pairings)
	assert.Equal(t, "$20-$30", got.Budget)
	assert.True(t, got.CreatedAt.Equal(testSession().CreatedAt))
	assert.True(t, got.ExpiresAt.Equal(testSession().ExpiresAt))
}

func TestSessionController_GetMatches_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"missing session_id", "", nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"blank session_id", "?session_id=%20", nil, http.StatusBadRequest, helpers.ErrCodeBadRequest},
		{"unknown session", "?session_id=nope", domain.ErrNotFound, http.StatusNotFound, helpers.ErrCodeNotFound},
		{"not organizer", "?session_id=s", domain.ErrForbidden, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"storage failure", "?session_id=s", errors.New("get session: timeout"), http.StatusInternalServerError, helpers.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSessionService{getErr: tt.svcErr}
			c := NewSessionController(testLogger, svc)
			req := httptest.NewRequest(http.MethodGet, "/get-matches"+tt.query, nil)
			rr := httptest.NewRecorder()

			c.GetMatches(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			apiErr := decodeEnvelope(t, rr.Body, nil)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}
}

func TestSessionController_ExportMatches(t *testing.T) {
	s := testSession()
	s.Pairings[0].Giver.Name = `Alice "Al" Smith`
	svc := &fakeSessionService{getResult: s}
	c := NewSessionController(testLogger, svc)

	req := httptest.NewRequest(http.MethodGet, "/export-matches?session_id=sess-1", nil)
	rr := httptest.NewRecorder()
	c.ExportMatches(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="secret-santa-matches-sess-1.csv"`, rr.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Giver Name", "Giver Email", "Receiver Name", "Receiver Email", "Budget"}, records[0])
	assert.Equal(t, []string{`Alice "Al" Smith`, "alice@example.com", "Bob", "bob@example.com", "$20-$30"}, records[1])
}

func TestSessionController_ExportMatches_Forbidden(t *testing.T) {
	c := NewSessionController(testLogger, &fakeSessionService{getErr: domain.ErrForbidden})
	rr := httptest.NewRecorder()
	c.ExportMatches(rr, httptest.NewRequest(http.MethodGet, "/export-matches?session_id=s", nil))

	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestSessionController_ExportMatches_FormulaCells(t *testing.T) {
	s := testSession()
	s.Pairings[0].Giver.Name = `=HYPERLINK("http://evil.example","x")`
	s.Pairings[0].Receiver.Name = "+1+1"
	s.Pairings[1].Receiver.Name = "-2"
	s.Pairings[2].Giver.Email = "@SUM(A1)"
	svc := &fakeSessionService{getResult: s}
	c := NewSessionController(testLogger, svc)

	rr := httptest.NewRecorder()
	c.ExportMatches(rr, httptest.NewRequest(http.MethodGet, "/export-matches?session_id=sess-1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	records, err := csv.NewReader(rr.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, `'=HYPERLINK("http://evil.example","x")`, records[1][0])
	assert.Equal(t, "'+1+1", records[1][2])
	assert.Equal(t, "'-2", records[2][2])
	assert.Equal(t, "'@SUM(A1)", records[3][1])
	assert.Equal(t, "Carol", records[3][0], "plain values are untouched")
	assert.Equal(t, "$20-$30", records[3][4])
}

func TestCSVCell(t *testing.T) {
	tests := map[string]string{
		"":        "",
		"Alice":   "Alice",
		"=1+2":    "'=1+2",
		"+49 123": "'+49 123",
		"-x":      "'-x",
		"@cmd":    "'@cmd",
		"\tTab":   "'\tTab",
		"a=b":     "a=b",
	}
	for in, want := range tests {
		assert.Equal(t, want, csvCell(in), "input %q", in)
	}
}
