package pass

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backend-hallpass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
|--------------------------------------------------------------------------
| Fakes
|--------------------------------------------------------------------------
*/

type fakeResolver struct {
	roster map[string]string // raw code -> display name
}

func (f *fakeResolver) Resolve(_ context.Context, _ int64, code string) (string, string, bool, error) {
	name, ok := f.roster[code]
	return "k:" + code, name, ok, nil
}

type fakeSessions struct {
	mu        sync.Mutex
	nextID    int64
	completed map[int64]string // session id -> ended_by
	appendErr error
	appends   int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{completed: make(map[int64]string)}
}

func (f *fakeSessions) Append(_ context.Context, s *models.PassSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.nextID++
	f.appends++
	s.ID = f.nextID
	return nil
}

func (f *fakeSessions) Complete(_ context.Context, _ int64, sessionID int64, _ time.Time, endedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[sessionID] = endedBy
	return nil
}

type fakeBans struct {
	mu     sync.Mutex
	banned map[string]bool
	sets   int
}

func newFakeBans() *fakeBans {
	return &fakeBans{banned: make(map[string]bool)}
}

func (f *fakeBans) Get(_ context.Context, _ int64, studentKey string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.banned[studentKey], nil
}

func (f *fakeBans) Set(_ context.Context, _ int64, studentKey string, banned bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned[studentKey] = banned
	f.sets++
	return nil
}

type testRig struct {
	ctrl     *Controller
	st       *TenantState
	sessions *fakeSessions
	bans     *fakeBans
}

func newRig(cfg models.TenantConfig, names ...string) *testRig {
	roster := map[string]string{}
	for _, n := range names {
		roster[n] = n // code doubles as display name in tests
	}
	sessions := newFakeSessions()
	bans := newFakeBans()
	return &testRig{
		ctrl:     NewController(&fakeResolver{roster: roster}, sessions, bans),
		st:       &TenantState{TenantID: 1, Config: cfg},
		sessions: sessions,
		bans:     bans,
	}
}

func (r *testRig) scan(t *testing.T, code string, at time.Time) Outcome {
	t.Helper()
	out, err := r.ctrl.Apply(context.Background(), r.st, Event{Code: code, At: at})
	require.NoError(t, err)
	return out
}

var t0 = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

/*
|--------------------------------------------------------------------------
| Decision procedure
|--------------------------------------------------------------------------
*/

func TestScanTogglesStartThenEnd(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1}, "alice")

	out := rig.scan(t, "alice", t0)
	assert.Equal(t, ActionStarted, out.Action)
	assert.Equal(t, "alice", out.Name)
	assert.Len(t, rig.st.Open, 1)

	out = rig.scan(t, "alice", t0.Add(2*time.Minute))
	assert.Equal(t, ActionEnded, out.Action)
	assert.Equal(t, "alice", out.Name)
	assert.Empty(t, rig.st.Open)
	assert.Equal(t, models.EndedByScan, rig.sessions.completed[1])
}

func TestSuspendedGateRejectsBeforeAnythingElse(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, Suspended: true}, "alice")

	out := rig.scan(t, "alice", t0)
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonSuspended, out.Reason)
	assert.Empty(t, rig.st.Open)
	assert.Zero(t, rig.sessions.appends)
}

func TestUnknownCodeRejected(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1}, "alice")

	out := rig.scan(t, "stranger", t0)
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonUnknown, out.Reason)
}

func TestCapacityDeniedWhenQueueDisabled(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1}, "alice", "bob")

	rig.scan(t, "alice", t0)
	out := rig.scan(t, "bob", t0.Add(time.Minute))
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonDenied, out.Reason)
	assert.Len(t, rig.st.Open, 1)
	assert.Empty(t, rig.st.Queue)
}

func TestCapacityQueuesWhenQueueEnabled(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, QueueEnabled: true}, "alice", "bob", "carol")

	rig.scan(t, "alice", t0)

	out := rig.scan(t, "bob", t0.Add(time.Minute))
	assert.Equal(t, ActionQueued, out.Action)
	assert.Equal(t, 1, out.Position)

	out = rig.scan(t, "carol", t0.Add(2*time.Minute))
	assert.Equal(t, ActionQueued, out.Action)
	assert.Equal(t, 2, out.Position)

	// No double waitlist slot for the same student.
	out = rig.scan(t, "carol", t0.Add(3*time.Minute))
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonStillWaiting, out.Reason)
	assert.Len(t, rig.st.Queue, 2)
}

func TestQueueLockOnlyHeadMayStart(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, QueueEnabled: true}, "alice", "bob", "carol")

	rig.scan(t, "alice", t0)                    // holds the pass
	rig.scan(t, "bob", t0.Add(time.Minute))     // queue head
	rig.scan(t, "carol", t0.Add(2*time.Minute)) // queue tail

	// Head scans while the slot is still taken: keep waiting.
	out := rig.scan(t, "bob", t0.Add(3*time.Minute))
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonStillWaiting, out.Reason)
	assert.Equal(t, 1, out.Position)

	rig.scan(t, "alice", t0.Add(4*time.Minute)) // frees the slot

	// Carol is not the head: still waiting even though a slot is free.
	out = rig.scan(t, "carol", t0.Add(5*time.Minute))
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonStillWaiting, out.Reason)
	assert.Equal(t, 2, out.Position)

	// Bob is the head: his scan claims the slot and leaves the queue.
	out = rig.scan(t, "bob", t0.Add(6*time.Minute))
	assert.Equal(t, ActionStarted, out.Action)
	assert.Len(t, rig.st.Open, 1)
	assert.Len(t, rig.st.Queue, 1)
	assert.Equal(t, "k:carol", rig.st.Queue[0].StudentKey)
}

func TestStrangerDeniedWhileOthersWaitAndQueueDisabled(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1}, "bob")
	rig.st.Queue = []models.WaitEntry{{StudentKey: "k:zoe", Name: "zoe", JoinedAt: t0}}

	// A slot is free, but the waitlist is not empty and queueing has since
	// been turned off: a stranger may not jump the remaining line.
	out := rig.scan(t, "bob", t0.Add(time.Minute))
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonDenied, out.Reason)
	assert.Empty(t, rig.st.Open)
}

func TestAutoPromoteOnScanEnd(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, QueueEnabled: true, AutoPromote: true},
		"alice", "bob")

	rig.scan(t, "alice", t0)
	out := rig.scan(t, "bob", t0.Add(time.Minute))
	assert.Equal(t, ActionQueued, out.Action)

	out = rig.scan(t, "alice", t0.Add(2*time.Minute))
	assert.Equal(t, ActionEnded, out.Action)
	assert.Equal(t, "bob", out.Promoted)

	// The promotion happened inside the same Apply: slot handed over,
	// queue drained, capacity never oversold.
	require.Len(t, rig.st.Open, 1)
	assert.Equal(t, "k:bob", rig.st.Open[0].StudentKey)
	assert.Empty(t, rig.st.Queue)
}

func TestPromoteFailureKeepsWaiterQueued(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, QueueEnabled: true, AutoPromote: true},
		"alice", "bob")

	rig.scan(t, "alice", t0)
	rig.scan(t, "bob", t0.Add(time.Minute))

	rig.sessions.appendErr = errors.New("db down")
	out := rig.scan(t, "alice", t0.Add(2*time.Minute))

	// The end committed; the promote did not, so bob keeps his spot.
	assert.Equal(t, ActionEnded, out.Action)
	assert.Empty(t, out.Promoted)
	assert.Empty(t, rig.st.Open)
	require.Len(t, rig.st.Queue, 1)
	assert.Equal(t, "k:bob", rig.st.Queue[0].StudentKey)
}

func TestBanBlocksStartsButNotEnds(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 2}, "alice")

	rig.scan(t, "alice", t0)
	rig.bans.banned["k:alice"] = true // banned mid-pass

	out := rig.scan(t, "alice", t0.Add(time.Minute))
	assert.Equal(t, ActionEnded, out.Action)

	out = rig.scan(t, "alice", t0.Add(2*time.Minute))
	assert.Equal(t, ActionRejected, out.Action)
	assert.Equal(t, ReasonBanned, out.Reason)
	assert.Empty(t, rig.st.Open)
}

func TestAutoBanOnOverdueScanEnd(t *testing.T) {
	cfg := models.TenantConfig{Capacity: 1, OverdueMinutes: 10, AutoBanOverdue: true}
	rig := newRig(cfg, "alice")

	rig.scan(t, "alice", t0)
	out := rig.scan(t, "alice", t0.Add(11*time.Minute))

	assert.Equal(t, ActionEnded, out.Action)
	assert.True(t, out.AutoBanned)
	assert.True(t, rig.bans.banned["k:alice"])
	assert.Equal(t, 1, rig.bans.sets)
}

func TestAutoBanIsNoOpWhenAlreadyBanned(t *testing.T) {
	cfg := models.TenantConfig{Capacity: 1, OverdueMinutes: 10, AutoBanOverdue: true}
	rig := newRig(cfg, "alice")
	rig.bans.banned["k:alice"] = true

	// Seed an open session directly: a banned student can still be
	// mid-pass from before the ban.
	rig.st.Open = []models.PassSession{{ID: 7, TenantID: 1, StudentKey: "k:alice", Name: "alice", StartTS: t0}}

	out := rig.scan(t, "alice", t0.Add(11*time.Minute))
	assert.Equal(t, ActionEnded, out.Action)
	assert.False(t, out.AutoBanned)
	assert.Zero(t, rig.bans.sets)
}

func TestNotOverdueEndDoesNotBan(t *testing.T) {
	cfg := models.TenantConfig{Capacity: 1, OverdueMinutes: 10, AutoBanOverdue: true}
	rig := newRig(cfg, "alice")

	rig.scan(t, "alice", t0)
	out := rig.scan(t, "alice", t0.Add(9*time.Minute))

	assert.Equal(t, ActionEnded, out.Action)
	assert.False(t, out.AutoBanned)
	assert.False(t, rig.bans.banned["k:alice"])
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1}, "alice")
	rig.sessions.appendErr = errors.New("db down")

	_, err := rig.ctrl.Apply(context.Background(), rig.st, Event{Code: "alice", At: t0})
	require.Error(t, err)
	assert.Empty(t, rig.st.Open)
	assert.Empty(t, rig.st.Queue)
}

func TestOverrideEndPromotesLikeScanEnd(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, QueueEnabled: true, AutoPromote: true},
		"alice", "bob")

	rig.scan(t, "alice", t0)
	rig.scan(t, "bob", t0.Add(time.Minute))

	out, ended, err := rig.ctrl.OverrideEnd(context.Background(), rig.st, "", t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.True(t, ended)
	assert.Equal(t, "alice", out.Name)
	assert.Equal(t, "bob", out.Promoted)
	assert.Equal(t, models.EndedByOverride, rig.sessions.completed[1])
}

func TestOverrideEndWithNoOpenSession(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1}, "alice")

	_, ended, err := rig.ctrl.OverrideEnd(context.Background(), rig.st, "", t0)
	require.NoError(t, err)
	assert.False(t, ended)
}

// The classic single-pass classroom: capacity 1, queue on, auto-promote on.
func TestSinglePassHandoff(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, QueueEnabled: true, AutoPromote: true},
		"alice", "bob")

	out := rig.scan(t, "alice", t0)
	assert.Equal(t, ActionStarted, out.Action)

	out = rig.scan(t, "bob", t0.Add(time.Minute))
	assert.Equal(t, ActionQueued, out.Action)

	out = rig.scan(t, "alice", t0.Add(2*time.Minute))
	assert.Equal(t, ActionEnded, out.Action)
	assert.Equal(t, "bob", out.Promoted)

	require.Len(t, rig.st.Open, 1)
	assert.Equal(t, "bob", rig.st.Open[0].Name)
}
