package services

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"secretsanta/internal/domain"
)

// MinParticipants is the smallest group that can be matched.
const MinParticipants = 3

// maxShuffleAttempts bounds rejection sampling. With distinct emails the
// chance of a shuffle being a derangement is about 1/e, so this is never hit
// in practice.
const maxShuffleAttempts = 1000

// ShuffleFunc has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

type derangementMatcher struct {
	shuffle ShuffleFunc
}

// NewMatcher returns a Matcher that draws a uniform derangement by
// reshuffling until no participant is assigned to themselves.
// A nil shuffle uses math/rand/v2's global source, which is safe for concurrent use.
func NewMatcher(shuffle ShuffleFunc) domain.Matcher {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	return &derangementMatcher{shuffle: shuffle}
}

func (m *derangementMatcher) Generate(participants []domain.Participant) ([]domain.Pairing, error) {
	if err := validateParticipants(participants); err != nil {
		return nil, err
	}

	givers := append([]domain.Participant(nil), participants...)
	receivers := append([]domain.Participant(nil), participants...)

	for attempt := 0; attempt < maxShuffleAttempts; attempt++ {
		m.shuffle(len(receivers), func(i, j int) {
			receivers[i], receivers[j] = receivers[j], receivers[i]
		})
		if hasFixedPoint(givers, receivers) {
			continue
		}
		pairings := make([]domain.Pairing, len(givers))
		for i := range givers {
			pairings[i] = domain.Pairing{Giver: givers[i], Receiver: receivers[i]}
		}
		return pairings, nil
	}
	return nil, fmt.Errorf("no derangement found after %d shuffles", maxShuffleAttempts)
}

func hasFixedPoint(givers, receivers []domain.Participant) bool {
	for i := range givers {
		if givers[i].SameEmail(receivers[i]) {
			return true
		}
	}
	return false
}

func validateParticipants(participants []domain.Participant) error {
	if len(participants) < MinParticipants {
		return fmt.Errorf("%w: at least %d participants required", domain.ErrInvalidInput, MinParticipants)
	}
	seen := make(map[string]int, len(participants))
	var errs []string
	for i, p := range participants {
		if strings.TrimSpace(p.Name) == "" {
			errs = append(errs, fmt.Sprintf("participants[%d].name is required", i))
		}
		key := domain.NormalizeEmail(p.Email)
		if key == "" {
			errs = append(errs, fmt.Sprintf("participants[%d].email is required", i))
			continue
		}
		if first, ok := seen[key]; ok {
			errs = append(errs, fmt.Sprintf("participants[%d].email duplicates participants[%d]", i, first))
			continue
		}
		seen[key] = i
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(errs, "; "))
	}
	return nil
}
