package pass

import (
	"time"

	"backend-hallpass/internal/models"
)

// TenantState is everything one admission decision reads and writes: the
// open sessions, the FIFO waitlist and a config snapshot. It is only ever
// touched while holding that tenant's lock (see Registry.With).
type TenantState struct {
	TenantID int64
	RoomName string
	Config   models.TenantConfig
	Open     []models.PassSession // ordered by StartTS ascending
	Queue    []models.WaitEntry   // ordered by JoinedAt ascending
}

// openIndex returns the index of the student's open session, or -1.
func (st *TenantState) openIndex(studentKey string) int {
	for i := range st.Open {
		if st.Open[i].StudentKey == studentKey {
			return i
		}
	}
	return -1
}

// queueIndex returns the student's position in the waitlist, or -1.
func (st *TenantState) queueIndex(studentKey string) int {
	for i := range st.Queue {
		if st.Queue[i].StudentKey == studentKey {
			return i
		}
	}
	return -1
}

// enqueue appends a waiter. No-op if the student already holds a slot,
// so a student can never occupy two waitlist positions.
func (st *TenantState) enqueue(studentKey, name string, at time.Time) int {
	if i := st.queueIndex(studentKey); i >= 0 {
		return i
	}
	st.Queue = append(st.Queue, models.WaitEntry{StudentKey: studentKey, Name: name, JoinedAt: at})
	return len(st.Queue) - 1
}

// removeQueued drops the student's waitlist entry if present.
func (st *TenantState) removeQueued(studentKey string) bool {
	i := st.queueIndex(studentKey)
	if i < 0 {
		return false
	}
	st.Queue = append(st.Queue[:i], st.Queue[i+1:]...)
	return true
}

// RemoveWaiter drops a waitlist entry from the admin surface. The caller
// must hold the tenant lock.
func (st *TenantState) RemoveWaiter(studentKey string) bool {
	return st.removeQueued(studentKey)
}

// closeSession marks Open[i] ended and removes it from the open set.
// The session row itself was already completed in the store.
func (st *TenantState) closeSession(i int, at time.Time, endedBy string) models.PassSession {
	s := st.Open[i]
	end := at
	s.EndTS = &end
	s.EndedBy = endedBy
	st.Open = append(st.Open[:i], st.Open[i+1:]...)
	return s
}

// clone returns a deep copy safe to read outside the tenant lock.
func (st *TenantState) clone() TenantState {
	cp := TenantState{
		TenantID: st.TenantID,
		RoomName: st.RoomName,
		Config:   st.Config,
	}
	cp.Open = append([]models.PassSession(nil), st.Open...)
	cp.Queue = append([]models.WaitEntry(nil), st.Queue...)
	return cp
}
