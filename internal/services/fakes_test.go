package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"secretsanta/internal/domain"
)

// testLogger discards output so tests don't assert on log lines.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeSessionRepo is an in-memory SessionRepository for tests.
type fakeSessionRepo struct {
	mu      sync.Mutex
	byID    map[string]*domain.Session
	saveErr error
	getErr  error
	saves   int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: make(map[string]*domain.Session)}
}

func (f *fakeSessionRepo) Save(ctx context.Context, s *domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.byID[s.ID] = s
	return nil
}

func (f *fakeSessionRepo) Get(ctx context.Context, id string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// fakeMailer records sends and fails for addresses listed in failFor.
type fakeMailer struct {
	mu      sync.Mutex
	failFor map[string]error
	sent    []sentMail
}

type sentMail struct {
	to, subject, html, text string
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, html, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[to]; ok {
		return "", err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html, text: text})
	return "msg-" + to, nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// fakeRenderer renders a body naming the receiver and the budget.
type fakeRenderer struct {
	err error
}

func (f *fakeRenderer) Render(name string, data any) (string, string, string, error) {
	if f.err != nil {
		return "", "", "", f.err
	}
	d := data.(*domain.AssignmentEmailData)
	body := strings.Join([]string{d.GiverName, d.ReceiverName, d.Budget}, "|")
	return name, "<p>" + body + "</p>", body, nil
}

// recordingNotifier captures SendAssignments calls.
type recordingNotifier struct {
	calls    int
	pairings []domain.Pairing
	budget   string
	results  []domain.NotificationResult
}

func (r *recordingNotifier) SendAssignments(ctx context.Context, pairings []domain.Pairing, budget string) []domain.NotificationResult {
	r.calls++
	r.pairings = pairings
	r.budget = budget
	return r.results
}

// fakePurger counts purge calls.
type fakePurger struct {
	mu    sync.Mutex
	calls int
	n     int
	err   error
	last  time.Time
}

func (f *fakePurger) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = now
	return f.n, f.err
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var errBoom = errors.New("boom")
