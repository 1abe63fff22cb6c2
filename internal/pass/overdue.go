package pass

import (
	"context"
	"fmt"
	"time"

	"backend-hallpass/internal/models"
)

// Overdue reports whether an open session has been out longer than the
// tenant's threshold. The same predicate drives the scan-end auto-ban and
// the background sweep, so the two can never disagree.
func Overdue(s models.PassSession, cfg models.TenantConfig, now time.Time) bool {
	if cfg.OverdueMinutes <= 0 {
		return false
	}
	return s.Elapsed(now) > time.Duration(cfg.OverdueMinutes)*time.Minute
}

// autoEndDue reports whether the auto-end failsafe should close the session.
func autoEndDue(s models.PassSession, cfg models.TenantConfig, now time.Time) bool {
	if cfg.AutoEndMinutes <= 0 {
		return false
	}
	return s.Elapsed(now) > time.Duration(cfg.AutoEndMinutes)*time.Minute
}

// SweepResult says what a sweep changed, so the caller knows whether to
// rebroadcast.
type SweepResult struct {
	Ended  []string // display names of auto-ended sessions
	Banned []string // display names of freshly auto-banned students
}

func (r SweepResult) Changed() bool {
	return len(r.Ended) > 0 || len(r.Banned) > 0
}

// Sweep runs the periodic failsafes for one tenant: auto-end sessions past
// the hard limit and, when enabled, ban students who are overdue and still
// out. Idempotent — an already-banned student or already-ended session is
// left alone. The caller must hold the tenant lock.
func (c *Controller) Sweep(ctx context.Context, st *TenantState, now time.Time) (SweepResult, error) {
	var res SweepResult

	if st.Config.AutoBanOverdue {
		for _, s := range st.Open {
			if !Overdue(s, st.Config, now) {
				continue
			}
			banned, err := c.Bans.Get(ctx, st.TenantID, s.StudentKey)
			if err != nil {
				return res, fmt.Errorf("ban lookup: %w", err)
			}
			if banned {
				continue
			}
			if err := c.Bans.Set(ctx, st.TenantID, s.StudentKey, true); err != nil {
				return res, fmt.Errorf("auto-ban: %w", err)
			}
			res.Banned = append(res.Banned, s.Name)
		}
	}

	// Walk backwards so closeSession's splice doesn't skip entries.
	for i := len(st.Open) - 1; i >= 0; i-- {
		s := st.Open[i]
		if !autoEndDue(s, st.Config, now) {
			continue
		}
		if err := c.Sessions.Complete(ctx, st.TenantID, s.ID, now, models.EndedByAuto); err != nil {
			return res, fmt.Errorf("auto-end session %d: %w", s.ID, err)
		}
		st.closeSession(i, now, models.EndedByAuto)
		res.Ended = append(res.Ended, s.Name)
	}

	// Auto-ended slots free capacity for waiters too.
	for {
		if name := c.promote(ctx, st, now); name == "" {
			break
		}
	}

	return res, nil
}
