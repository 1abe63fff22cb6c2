package models

import "time"

// How a pass session was closed.
const (
	EndedByScan     = "kiosk_scan"
	EndedByOverride = "override"
	EndedByAuto     = "auto"
)

/*
|--------------------------------------------------------------------------
| DATABASE MODEL (INTERNAL)
|--------------------------------------------------------------------------
| One row per pass checkout. Append-only: EndTS/EndedBy are set exactly
| once when the session closes, rows are never deleted.
*/
type PassSession struct {
	ID         int64
	TenantID   int64
	StudentKey string // hashed scan code, see roster.HashCode
	Name       string // display name at checkout time
	StartTS    time.Time
	EndTS      *time.Time
	EndedBy    string
}

// Elapsed returns how long the pass has been (or was) out.
func (s PassSession) Elapsed(now time.Time) time.Duration {
	end := now
	if s.EndTS != nil {
		end = *s.EndTS
	}
	return end.Sub(s.StartTS)
}

func (s PassSession) DurationSeconds(now time.Time) int64 {
	return int64(s.Elapsed(now).Seconds())
}

/*
|--------------------------------------------------------------------------
| WAITLIST ENTRY
|--------------------------------------------------------------------------
| In-memory only. FIFO by JoinedAt, unique per (tenant, StudentKey).
*/
type WaitEntry struct {
	StudentKey string    `json:"student_key"`
	Name       string    `json:"name"`
	JoinedAt   time.Time `json:"joined_at"`
}

/*
|--------------------------------------------------------------------------
| REQUEST
|--------------------------------------------------------------------------
*/
type ScanRequest struct {
	Code string `json:"code" validate:"required"`
}
