package payroll_import

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(ttl time.Duration) (*SessionStore, *fakeClock) {
	clock := newFakeClock()
	s := NewSessionStore(ttl)
	s.now = clock.Now
	return s, clock
}

func TestSessionIssueAndGet(t *testing.T) {
	store, clock := newTestSessions(time.Hour)
	res := &PreviewResult{ContentHash: "abc"}

	sess := store.Issue(res, Period{2026, 3}, "u-1")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "abc", sess.ContentHash)
	assert.Equal(t, clock.Now().Add(time.Hour), sess.ExpiresAt)

	got, err := store.Get(sess.Token)
	require.NoError(t, err)
	assert.Same(t, res, got.Result())

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	clock.Advance(time.Hour)
	_, err = store.Get(sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionClaimLifecycle(t *testing.T) {
	store, _ := newTestSessions(time.Hour)
	sess := store.Issue(&PreviewResult{}, Period{2026, 3}, "u-1")

	_, prior, err := store.Claim(sess.Token, "k1")
	require.NoError(t, err)
	assert.Nil(t, prior)

	_, _, err = store.Claim(sess.Token, "k2")
	assert.ErrorIs(t, err, ErrAlreadyConsumed, "another key while in flight")

	resp := &ConfirmResponse{Success: true, OperationID: "op-1"}
	store.Complete(sess.Token, "k1", resp, nil, true)

	_, prior, err = store.Claim(sess.Token, "k1")
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Same(t, resp, prior.response)

	_, _, err = store.Claim(sess.Token, "k2")
	assert.ErrorIs(t, err, ErrAlreadyConsumed)

	got, err := store.Get(sess.Token)
	require.NoError(t, err)
	assert.True(t, got.Consumed)
	assert.Equal(t, "k1", got.ConsumedBy)
}

func TestSessionFailedCompleteReleasesClaim(t *testing.T) {
	store, _ := newTestSessions(time.Hour)
	sess := store.Issue(&PreviewResult{}, Period{2026, 3}, "u-1")

	_, _, err := store.Claim(sess.Token, "k1")
	require.NoError(t, err)
	store.Complete(sess.Token, "k1", &ConfirmResponse{Success: false}, nil, false)

	_, prior, err := store.Claim(sess.Token, "k1")
	require.NoError(t, err)
	require.NotNil(t, prior, "same key replays the failure")
	assert.False(t, prior.response.Success)

	_, prior, err = store.Claim(sess.Token, "k2")
	require.NoError(t, err)
	assert.Nil(t, prior)
}

func TestSessionExpiryOrdering(t *testing.T) {
	store, clock := newTestSessions(time.Minute)
	sess := store.Issue(&PreviewResult{}, Period{2026, 3}, "u-1")
	_, _, err := store.Claim(sess.Token, "k1")
	require.NoError(t, err)
	store.Complete(sess.Token, "k1", &ConfirmResponse{Success: true}, nil, true)

	clock.Advance(2 * time.Minute)

	_, prior, err := store.Claim(sess.Token, "k1")
	require.NoError(t, err)
	assert.NotNil(t, prior)

	_, _, err = store.Claim(sess.Token, "k2")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionSweep(t *testing.T) {
	store, clock := newTestSessions(time.Minute)
	a := store.Issue(&PreviewResult{}, Period{2026, 3}, "u")
	store.Issue(&PreviewResult{}, Period{2026, 3}, "u")
	_, _, err := store.Claim(a.Token, "k")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.Sweep(clock.Now()), "in-flight session survives")
	assert.Equal(t, 1, store.Len())

	store.Complete(a.Token, "k", &ConfirmResponse{}, nil, false)
	assert.Equal(t, 1, store.Sweep(clock.Now()))
	assert.Equal(t, 0, store.Len())
}

func TestSessionSweptTokenReadsExpired(t *testing.T) {
	store, clock := newTestSessions(time.Minute)
	sess := store.Issue(&PreviewResult{}, Period{2026, 3}, "u")

	clock.Advance(2 * time.Minute)
	require.Equal(t, 1, store.Sweep(clock.Now()))

	_, _, err := store.Claim(sess.Token, "k1")
	assert.ErrorIs(t, err, ErrSessionExpired)
	_, err = store.Get(sess.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)

	_, _, err = store.Claim("never-issued", "k1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	clock.Advance(tombstoneRetention)
	store.Sweep(clock.Now())
	_, _, err = store.Claim(sess.Token, "k1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "tombstones are pruned eventually")
}

func TestProgressHub(t *testing.T) {
	hub := NewProgressHub()
	ch, cancel := hub.Subscribe("up-1")

	hub.Publish("up-1", ProgressUpdate{Processed: 5, Total: 10})
	hub.Publish("other", ProgressUpdate{Processed: 1})
	hub.Publish("", ProgressUpdate{})

	u := <-ch
	assert.Equal(t, 5, u.Processed)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	hub.Publish("up-1", ProgressUpdate{Processed: 6})
}
