package realtime

import (
	"encoding/json"
	"math"
	"time"

	"backend-hallpass/internal/pass"
)

/*
|--------------------------------------------------------------------------
| Display payload
|--------------------------------------------------------------------------
| Field names are a UI contract shared with the kiosk and display pages.
| Do not rename them.
*/

type ActiveSession struct {
	Name    string `json:"name"`
	Start   string `json:"start"`
	Elapsed int64  `json:"elapsed"`
	Overdue bool   `json:"overdue"`
}

type StatusPayload struct {
	InUse          bool            `json:"in_use"`
	Name           string          `json:"name"`
	Start          string          `json:"start,omitempty"`
	Elapsed        int64           `json:"elapsed"`
	Overdue        bool            `json:"overdue"`
	OverdueMinutes float64         `json:"overdue_minutes"`
	KioskSuspended bool            `json:"kiosk_suspended"`
	Capacity       int             `json:"capacity"`
	AutoPromote    bool            `json:"auto_promote"`
	ActiveSessions []ActiveSession `json:"active_sessions"`
	Queue          []string        `json:"queue"`
}

// BuildPayload renders a state snapshot for the display screens. The
// top-level name/start/elapsed fields mirror the oldest open session for
// the classic single-pass display.
func BuildPayload(st pass.TenantState, now time.Time) StatusPayload {
	p := StatusPayload{
		KioskSuspended: st.Config.Suspended,
		Capacity:       st.Config.Capacity,
		AutoPromote:    st.Config.AutoPromote,
		ActiveSessions: []ActiveSession{},
		Queue:          []string{},
	}

	for _, s := range st.Open {
		p.ActiveSessions = append(p.ActiveSessions, ActiveSession{
			Name:    s.Name,
			Start:   s.StartTS.UTC().Format(time.RFC3339),
			Elapsed: s.DurationSeconds(now),
			Overdue: pass.Overdue(s, st.Config, now),
		})
	}
	for _, w := range st.Queue {
		p.Queue = append(p.Queue, w.Name)
	}

	if len(p.ActiveSessions) > 0 {
		first := p.ActiveSessions[0]
		p.InUse = true
		p.Name = first.Name
		p.Start = first.Start
		p.Elapsed = first.Elapsed
		p.Overdue = first.Overdue
		if first.Overdue {
			over := float64(first.Elapsed)/60 - float64(st.Config.OverdueMinutes)
			p.OverdueMinutes = math.Round(over*10) / 10
		}
	}
	return p
}

// signatureView is the payload minus everything that changes every tick
// just because time passes (elapsed, overdue_minutes). Two payloads with
// equal signatures describe the same state and are not worth pushing.
type signatureView struct {
	InUse     bool     `json:"in_use"`
	Suspended bool     `json:"suspended"`
	Capacity  int      `json:"capacity"`
	Promote   bool     `json:"promote"`
	Sessions  []string `json:"sessions"` // name|start|overdue per open session
	Queue     []string `json:"queue"`
}

func Signature(p StatusPayload) string {
	v := signatureView{
		InUse:     p.InUse,
		Suspended: p.KioskSuspended,
		Capacity:  p.Capacity,
		Promote:   p.AutoPromote,
		Queue:     p.Queue,
	}
	for _, s := range p.ActiveSessions {
		overdue := "-"
		if s.Overdue {
			overdue = "!"
		}
		v.Sessions = append(v.Sessions, s.Name+"|"+s.Start+"|"+overdue)
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}
