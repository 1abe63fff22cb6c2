package pass

import "github.com/gofiber/fiber/v2"

// Action is what a scan ended up doing.
type Action string

const (
	ActionStarted  Action = "started"
	ActionEnded    Action = "ended"
	ActionQueued   Action = "queued"
	ActionRejected Action = "rejected"
)

// RejectReason enumerates the expected (non-error) rejections.
type RejectReason string

const (
	ReasonSuspended    RejectReason = "kiosk_suspended"
	ReasonUnknown      RejectReason = "unknown_id"
	ReasonBanned       RejectReason = "banned"
	ReasonStillWaiting RejectReason = "still_waiting"
	ReasonDenied       RejectReason = "denied"
)

// HTTPStatus maps a rejection to the status code the kiosk expects.
func (r RejectReason) HTTPStatus() int {
	switch r {
	case ReasonSuspended, ReasonBanned:
		return fiber.StatusForbidden
	case ReasonUnknown:
		return fiber.StatusNotFound
	case ReasonStillWaiting, ReasonDenied:
		return fiber.StatusConflict
	default:
		return fiber.StatusBadRequest
	}
}

// Message is the kiosk-facing text for a rejection.
func (r RejectReason) Message() string {
	switch r {
	case ReasonSuspended:
		return "Kiosk is suspended"
	case ReasonUnknown:
		return "Unknown ID"
	case ReasonBanned:
		return "Pass privileges are suspended for this student"
	case ReasonStillWaiting:
		return "Still waiting, it is not your turn yet"
	case ReasonDenied:
		return "Pass is in use"
	default:
		return "Request rejected"
	}
}

// Outcome is the result of one Apply call.
type Outcome struct {
	Action     Action
	Reason     RejectReason // set when Action == ActionRejected
	Name       string       // display name of the scanning student, when resolved
	Promoted   string       // display name of the waiter auto-promoted by an end
	Position   int          // 1-based queue position for queued / still-waiting
	AutoBanned bool         // the end path tripped the overdue auto-ban
}

func rejected(reason RejectReason, name string) Outcome {
	return Outcome{Action: ActionRejected, Reason: reason, Name: name}
}
