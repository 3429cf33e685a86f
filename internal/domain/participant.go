package domain

import "strings"

// Participant is a person taking part in a gift exchange.
// Email identifies the participant; it is not validated for format.
type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SameEmail reports whether p and other share an email address,
// ignoring case and surrounding whitespace.
func (p Participant) SameEmail(other Participant) bool {
	return NormalizeEmail(p.Email) == NormalizeEmail(other.Email)
}

// NormalizeEmail returns the comparison key for an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Pairing assigns a giver to the receiver they buy a gift for.
// Giver and Receiver never share an email within a session.
// swagger:model Pairing
type Pairing struct {
	Giver    Participant `json:"giver"`
	Receiver Participant `json:"receiver"`
}

// Matcher produces a derangement of participants.
type Matcher interface {
	Generate(participants []Participant) ([]Pairing, error)
}
