package pass

import (
	"context"
	"testing"
	"time"

	"backend-hallpass/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(id int64, name string, start time.Time) models.PassSession {
	return models.PassSession{ID: id, TenantID: 1, StudentKey: "k:" + name, Name: name, StartTS: start}
}

func TestOverdueBoundary(t *testing.T) {
	cfg := models.TenantConfig{OverdueMinutes: 10}
	s := openSession(1, "alice", t0)

	assert.False(t, Overdue(s, cfg, t0.Add(10*time.Minute)), "exactly at the threshold is not overdue")
	assert.True(t, Overdue(s, cfg, t0.Add(10*time.Minute+time.Second)))
}

func TestOverdueDisabledWhenThresholdZero(t *testing.T) {
	s := openSession(1, "alice", t0)
	assert.False(t, Overdue(s, models.TenantConfig{}, t0.Add(24*time.Hour)))
}

func TestSweepAutoEndsExpiredSessions(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 2, AutoEndMinutes: 30})
	rig.st.Open = []models.PassSession{
		openSession(1, "alice", t0.Add(-31*time.Minute)),
		openSession(2, "bob", t0.Add(-5*time.Minute)),
	}

	res, err := rig.ctrl.Sweep(context.Background(), rig.st, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, res.Ended)
	assert.Empty(t, res.Banned)
	require.Len(t, rig.st.Open, 1)
	assert.Equal(t, "bob", rig.st.Open[0].Name)
	assert.Equal(t, models.EndedByAuto, rig.sessions.completed[1])

	// Nothing left to do on the next pass.
	res, err = rig.ctrl.Sweep(context.Background(), rig.st, t0)
	require.NoError(t, err)
	assert.False(t, res.Changed())
}

func TestSweepAutoBansOverdueStudents(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1, OverdueMinutes: 10, AutoBanOverdue: true})
	rig.st.Open = []models.PassSession{openSession(1, "alice", t0.Add(-11 * time.Minute))}

	res, err := rig.ctrl.Sweep(context.Background(), rig.st, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, res.Banned)
	assert.True(t, rig.bans.banned["k:alice"])
	// No auto-end limit configured: the session stays open.
	assert.Len(t, rig.st.Open, 1)

	// Already banned: the next sweep reports no change.
	res, err = rig.ctrl.Sweep(context.Background(), rig.st, t0)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Equal(t, 1, rig.bans.sets)
}

func TestSweepPromotesIntoFreedSlots(t *testing.T) {
	rig := newRig(models.TenantConfig{
		Capacity:       1,
		AutoEndMinutes: 30,
		QueueEnabled:   true,
		AutoPromote:    true,
	})
	rig.st.Open = []models.PassSession{openSession(1, "alice", t0.Add(-31 * time.Minute))}
	rig.st.Queue = []models.WaitEntry{{StudentKey: "k:bob", Name: "bob", JoinedAt: t0.Add(-2 * time.Minute)}}

	res, err := rig.ctrl.Sweep(context.Background(), rig.st, t0)
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, res.Ended)
	require.Len(t, rig.st.Open, 1)
	assert.Equal(t, "k:bob", rig.st.Open[0].StudentKey)
	assert.Empty(t, rig.st.Queue)
}

func TestSweepIsQuietWhenNothingConfigured(t *testing.T) {
	rig := newRig(models.TenantConfig{Capacity: 1})
	rig.st.Open = []models.PassSession{openSession(1, "alice", t0.Add(-4 * time.Hour))}

	res, err := rig.ctrl.Sweep(context.Background(), rig.st, t0)
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Len(t, rig.st.Open, 1)
}
