package pass

import (
	"context"
	"fmt"
	"log"
	"time"

	"backend-hallpass/internal/models"
)

/*
|--------------------------------------------------------------------------
| External collaborators
|--------------------------------------------------------------------------
| The controller never touches SQL or redis directly; everything durable
| goes through these. Tests plug in fakes.
*/

// IdentityResolver maps a scanned code to a student key + display name.
// ok=false means the code is not on this tenant's roster.
type IdentityResolver interface {
	Resolve(ctx context.Context, tenantID int64, code string) (key, name string, ok bool, err error)
}

// SessionStore is the append-only pass log. Append fills s.ID.
type SessionStore interface {
	Append(ctx context.Context, s *models.PassSession) error
	Complete(ctx context.Context, tenantID, sessionID int64, endTS time.Time, endedBy string) error
}

// BanStore reads and writes the per-student ban flag.
type BanStore interface {
	Get(ctx context.Context, tenantID int64, studentKey string) (bool, error)
	Set(ctx context.Context, tenantID int64, studentKey string, banned bool) error
}

// Event is one kiosk scan.
type Event struct {
	Code string
	At   time.Time
}

// Controller decides what a scan does: start a pass, end one, queue the
// student, promote a waiter, or reject. It mutates st only after the
// matching store write succeeded, so memory never runs ahead of the log.
type Controller struct {
	Resolver IdentityResolver
	Sessions SessionStore
	Bans     BanStore
}

func NewController(resolver IdentityResolver, sessions SessionStore, bans BanStore) *Controller {
	return &Controller{Resolver: resolver, Sessions: sessions, Bans: bans}
}

// Apply runs the admission decision for one scan. The caller must hold the
// tenant lock for st. Returned errors are infrastructure failures; every
// policy decision comes back as an Outcome.
//
// Order matters and is part of the contract:
// suspended gate -> identity -> end-existing -> ban -> queue-lock ->
// capacity -> start.
func (c *Controller) Apply(ctx context.Context, st *TenantState, ev Event) (Outcome, error) {
	if st.Config.Suspended {
		return rejected(ReasonSuspended, ""), nil
	}

	key, name, ok, err := c.Resolver.Resolve(ctx, st.TenantID, ev.Code)
	if err != nil {
		return Outcome{}, fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		return rejected(ReasonUnknown, ""), nil
	}

	// A second scan from the holder always ends the pass, even if the
	// student was banned mid-pass.
	if i := st.openIndex(key); i >= 0 {
		return c.endOpen(ctx, st, i, ev.At)
	}

	banned, err := c.Bans.Get(ctx, st.TenantID, key)
	if err != nil {
		return Outcome{}, fmt.Errorf("ban lookup: %w", err)
	}
	if banned {
		return rejected(ReasonBanned, name), nil
	}

	// Queue-lock: once anyone is waiting, only the head of the line may
	// claim a slot. This outranks the plain capacity check on purpose.
	if len(st.Queue) > 0 {
		switch qi := st.queueIndex(key); {
		case qi == 0:
			if len(st.Open) >= st.Config.Capacity {
				out := rejected(ReasonStillWaiting, name)
				out.Position = 1
				return out, nil
			}
			return c.start(ctx, st, key, name, ev.At)
		case qi > 0:
			out := rejected(ReasonStillWaiting, name)
			out.Position = qi + 1
			return out, nil
		default:
			if st.Config.QueueEnabled {
				pos := st.enqueue(key, name, ev.At)
				return Outcome{Action: ActionQueued, Name: name, Position: pos + 1}, nil
			}
			return rejected(ReasonDenied, name), nil
		}
	}

	if len(st.Open) >= st.Config.Capacity {
		if st.Config.QueueEnabled {
			pos := st.enqueue(key, name, ev.At)
			return Outcome{Action: ActionQueued, Name: name, Position: pos + 1}, nil
		}
		return rejected(ReasonDenied, name), nil
	}

	return c.start(ctx, st, key, name, ev.At)
}

// endOpen closes Open[i] and, when enabled, promotes the waitlist head
// into the freed slot within the same lock hold.
func (c *Controller) endOpen(ctx context.Context, st *TenantState, i int, now time.Time) (Outcome, error) {
	sess := st.Open[i]
	out := Outcome{Action: ActionEnded, Name: sess.Name}

	if st.Config.AutoBanOverdue && Overdue(sess, st.Config, now) {
		banned, err := c.Bans.Get(ctx, st.TenantID, sess.StudentKey)
		if err != nil {
			return Outcome{}, fmt.Errorf("ban lookup: %w", err)
		}
		if !banned {
			if err := c.Bans.Set(ctx, st.TenantID, sess.StudentKey, true); err != nil {
				return Outcome{}, fmt.Errorf("auto-ban: %w", err)
			}
			out.AutoBanned = true
		}
	}

	if err := c.Sessions.Complete(ctx, st.TenantID, sess.ID, now, models.EndedByScan); err != nil {
		return Outcome{}, fmt.Errorf("complete session: %w", err)
	}
	st.closeSession(i, now, models.EndedByScan)

	if promoted := c.promote(ctx, st, now); promoted != "" {
		out.Promoted = promoted
	}
	return out, nil
}

// promote starts a session for the waitlist head if auto-promote is on and
// a slot is free. Returns the promoted student's display name, or "".
//
// The end that freed the slot is already committed; if appending the
// promoted session fails, the waiter simply stays at the head of the line
// and their next scan starts them.
func (c *Controller) promote(ctx context.Context, st *TenantState, now time.Time) string {
	if !st.Config.QueueEnabled || !st.Config.AutoPromote {
		return ""
	}
	if len(st.Queue) == 0 || len(st.Open) >= st.Config.Capacity {
		return ""
	}

	next := st.Queue[0]
	ns := models.PassSession{
		TenantID:   st.TenantID,
		StudentKey: next.StudentKey,
		Name:       next.Name,
		StartTS:    now,
	}
	if err := c.Sessions.Append(ctx, &ns); err != nil {
		log.Printf("[pass] tenant %d: promote failed, %s stays queued: %v", st.TenantID, next.Name, err)
		return ""
	}
	st.Queue = append([]models.WaitEntry(nil), st.Queue[1:]...)
	st.Open = append(st.Open, ns)
	return ns.Name
}

func (c *Controller) start(ctx context.Context, st *TenantState, key, name string, now time.Time) (Outcome, error) {
	ns := models.PassSession{
		TenantID:   st.TenantID,
		StudentKey: key,
		Name:       name,
		StartTS:    now,
	}
	if err := c.Sessions.Append(ctx, &ns); err != nil {
		return Outcome{}, fmt.Errorf("append session: %w", err)
	}

	// Drop any stale waitlist entry for this student before seating them.
	st.removeQueued(key)
	st.Open = append(st.Open, ns)
	return Outcome{Action: ActionStarted, Name: name}, nil
}

// OverrideEnd force-ends a session from the admin surface. studentKey may
// be empty, in which case the oldest open session is ended (matching the
// kiosk UI's single "end pass" button). Promotion runs exactly as for a
// scan-end.
func (c *Controller) OverrideEnd(ctx context.Context, st *TenantState, studentKey string, now time.Time) (Outcome, bool, error) {
	i := 0
	if studentKey != "" {
		if i = st.openIndex(studentKey); i < 0 {
			return Outcome{}, false, nil
		}
	} else if len(st.Open) == 0 {
		return Outcome{}, false, nil
	}

	sess := st.Open[i]
	if err := c.Sessions.Complete(ctx, st.TenantID, sess.ID, now, models.EndedByOverride); err != nil {
		return Outcome{}, false, fmt.Errorf("complete session: %w", err)
	}
	st.closeSession(i, now, models.EndedByOverride)

	out := Outcome{Action: ActionEnded, Name: sess.Name}
	out.Promoted = c.promote(ctx, st, now)
	return out, true, nil
}
