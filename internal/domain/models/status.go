package models

import "fmt"

// Status is the lifecycle state of a signal. The set is closed: every
// mutation goes through Transition, which rejects pairs outside the table.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAcked     Status = "ACKED"
	StatusSnoozed   Status = "SNOOZED"
	StatusPlacing   Status = "PLACING"
	StatusExecuted  Status = "EXECUTED"
	StatusDismissed Status = "DISMISSED"
	StatusExpired   Status = "EXPIRED"
)

// Action is a recorded trigger against a signal. Every transition appends
// one SignalAction carrying the acting Action.
type Action string

const (
	ActionAck      Action = "ACK"
	ActionSnooze   Action = "SNOOZE_30M"
	ActionDismiss  Action = "DISMISS"
	ActionExecute  Action = "EXECUTE"
	ActionRollback Action = "ROLLBACK"
	ActionExpire   Action = "EXPIRE"
)

// ErrInvalidTransition marks a (status, action) pair outside the lifecycle table.
type ErrInvalidTransition struct {
	From   Status
	Action Action
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid transition: %s + %s", e.From, e.Action)
}

// ReservingStatuses are the states that still claim a share of portfolio cash.
var ReservingStatuses = []Status{StatusPending, StatusAcked, StatusSnoozed, StatusPlacing}

// IsReserving reports whether a signal in this state holds a cash reservation.
func (s Status) IsReserving() bool {
	switch s {
	case StatusPending, StatusAcked, StatusSnoozed, StatusPlacing:
		return true
	}
	return false
}

// IsTerminal reports whether the state is final. Terminal signals are kept
// forever; only broker-failure rollback can revive one holding an order link.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusExecuted, StatusDismissed, StatusExpired:
		return true
	}
	return false
}

// Transition returns the next state for (current, action), or
// *ErrInvalidTransition when the pair is not in the lifecycle table.
//
//	PENDING/SNOOZED        + ACK      -> ACKED
//	PENDING/SNOOZED        + SNOOZE   -> SNOOZED
//	PENDING/SNOOZED/ACKED  + DISMISS  -> DISMISSED
//	PENDING/SNOOZED/ACKED  + EXECUTE  -> PLACING
//	PLACING                + EXECUTE  -> EXECUTED   (gateway confirmation leg)
//	PENDING/SNOOZED        + EXPIRE   -> EXPIRED
//	reserving or EXECUTED  + ROLLBACK -> PENDING    (broker failure, order link held)
func Transition(from Status, action Action) (Status, error) {
	switch action {
	case ActionAck:
		if from == StatusPending || from == StatusSnoozed {
			return StatusAcked, nil
		}
	case ActionSnooze:
		if from == StatusPending || from == StatusSnoozed {
			return StatusSnoozed, nil
		}
	case ActionDismiss:
		if from == StatusPending || from == StatusSnoozed || from == StatusAcked {
			return StatusDismissed, nil
		}
	case ActionExecute:
		if from == StatusPending || from == StatusSnoozed || from == StatusAcked {
			return StatusPlacing, nil
		}
		if from == StatusPlacing {
			return StatusExecuted, nil
		}
	case ActionExpire:
		if from == StatusPending || from == StatusSnoozed {
			return StatusExpired, nil
		}
	case ActionRollback:
		if from.IsReserving() || from == StatusExecuted {
			return StatusPending, nil
		}
	}
	return from, &ErrInvalidTransition{From: from, Action: action}
}
