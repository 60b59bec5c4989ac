package payroll_import

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ImportSession binds a preview token to the parse result it was issued for.
type ImportSession struct {
	Token       string    `json:"token"`
	ContentHash string    `json:"contentHash"`
	Period      Period    `json:"period"`
	Actor       string    `json:"actor"`
	IssuedAt    time.Time `json:"issuedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
	Consumed    bool      `json:"consumed"`
	ConsumedBy  string    `json:"consumedBy,omitempty"`

	result   *PreviewResult
	inFlight string
	outcomes map[string]*confirmOutcome
}

func (s *ImportSession) Result() *PreviewResult { return s.result }

type confirmOutcome struct {
	response *ConfirmResponse
	err      error
}

// tombstoneRetention is how long a swept token keeps answering EXPIRED
// before it is forgotten and reads as NOT_FOUND.
const tombstoneRetention = 24 * time.Hour

// SessionStore holds live sessions. Claims are atomic under its mutex, so a
// token is committed at most once no matter how many confirms race.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*ImportSession
	// swept maps tokens removed by Sweep to their expiry.
	swept map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*ImportSession),
		swept:    make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// missing reports why token has no live session. Caller holds s.mu.
func (s *SessionStore) missing(token string) error {
	if _, ok := s.swept[token]; ok {
		return ErrSessionExpired
	}
	return ErrSessionNotFound
}

// Issue creates a session for result.
func (s *SessionStore) Issue(result *PreviewResult, period Period, actor string) ImportSession {
	now := s.now()
	sess := &ImportSession{
		Token:       uuid.NewString(),
		ContentHash: result.ContentHash,
		Period:      period,
		Actor:       actor,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
		result:      result,
		outcomes:    make(map[string]*confirmOutcome),
	}

	s.mu.Lock()
	s.sessions[sess.Token] = sess
	s.mu.Unlock()
	return *sess
}

// Get returns a live session.
func (s *SessionStore) Get(token string) (ImportSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return ImportSession{}, s.missing(token)
	}
	if !s.now().Before(sess.ExpiresAt) {
		return ImportSession{}, ErrSessionExpired
	}
	return *sess, nil
}

// Claim reserves token for a confirm under key. A completed outcome for the
// same key is returned instead of a claim.
func (s *SessionStore) Claim(token, key string) (ImportSession, *confirmOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return ImportSession{}, nil, s.missing(token)
	}
	if prior, ok := sess.outcomes[key]; ok {
		return *sess, prior, nil
	}
	if !s.now().Before(sess.ExpiresAt) {
		return ImportSession{}, nil, ErrSessionExpired
	}
	if sess.Consumed || (sess.inFlight != "" && sess.inFlight != key) {
		return ImportSession{}, nil, ErrAlreadyConsumed
	}
	sess.inFlight = key
	return *sess, nil, nil
}

// Complete stores the outcome of a claimed confirm. A committed session is
// consumed for good; otherwise the claim is released so another key may
// retry.
func (s *SessionStore) Complete(token, key string, resp *ConfirmResponse, err error, committed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return
	}
	sess.outcomes[key] = &confirmOutcome{response: resp, err: err}
	sess.inFlight = ""
	if committed {
		sess.Consumed = true
		sess.ConsumedBy = key
	}
}

// Sweep drops expired sessions and returns how many were removed. Dropped
// tokens keep a tombstone so late confirms still see EXPIRED.
func (s *SessionStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) && sess.inFlight == "" {
			delete(s.sessions, token)
			s.swept[token] = sess.ExpiresAt
			removed++
		}
	}
	for token, expiredAt := range s.swept {
		if !now.Before(expiredAt.Add(tombstoneRetention)) {
			delete(s.swept, token)
		}
	}
	return removed
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
