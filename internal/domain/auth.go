package domain

// TokenVerifier validates an organizer's bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (subject string, err error)
}
