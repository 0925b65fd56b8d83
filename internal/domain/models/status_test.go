package models

import (
	"errors"
	"testing"
)

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from   Status
		action Action
		want   Status
	}{
		{StatusPending, ActionAck, StatusAcked},
		{StatusSnoozed, ActionAck, StatusAcked},
		{StatusPending, ActionSnooze, StatusSnoozed},
		{StatusSnoozed, ActionSnooze, StatusSnoozed},
		{StatusPending, ActionDismiss, StatusDismissed},
		{StatusSnoozed, ActionDismiss, StatusDismissed},
		{StatusAcked, ActionDismiss, StatusDismissed},
		{StatusPending, ActionExecute, StatusPlacing},
		{StatusAcked, ActionExecute, StatusPlacing},
		{StatusPlacing, ActionExecute, StatusExecuted},
		{StatusPending, ActionExpire, StatusExpired},
		{StatusSnoozed, ActionExpire, StatusExpired},
		{StatusPlacing, ActionRollback, StatusPending},
		{StatusExecuted, ActionRollback, StatusPending},
		{StatusAcked, ActionRollback, StatusPending},
	}
	for _, c := range cases {
		got, err := Transition(c.from, c.action)
		if err != nil {
			t.Fatalf("%s + %s: unexpected error %v", c.from, c.action, err)
		}
		if got != c.want {
			t.Fatalf("%s + %s: got %s want %s", c.from, c.action, got, c.want)
		}
	}
}

func TestTerminalStatesAreClosed(t *testing.T) {
	actions := []Action{ActionAck, ActionSnooze, ActionDismiss, ActionExecute, ActionExpire}
	for _, from := range []Status{StatusDismissed, StatusExpired} {
		for _, a := range append(actions, ActionRollback) {
			if _, err := Transition(from, a); err == nil {
				t.Fatalf("expected rejection for %s + %s", from, a)
			}
		}
	}
	// EXECUTED accepts only broker-failure rollback.
	for _, a := range actions {
		if a == ActionExecute {
			continue // covered below
		}
		if _, err := Transition(StatusExecuted, a); err == nil {
			t.Fatalf("expected rejection for EXECUTED + %s", a)
		}
	}
	if _, err := Transition(StatusExecuted, ActionExecute); err == nil {
		t.Fatalf("expected rejection for EXECUTED + EXECUTE")
	}
}

func TestInvalidPairsRejected(t *testing.T) {
	invalid := []struct {
		from   Status
		action Action
	}{
		{StatusAcked, ActionAck},
		{StatusAcked, ActionSnooze},
		{StatusAcked, ActionExpire},
		{StatusPlacing, ActionAck},
		{StatusPlacing, ActionDismiss},
		{StatusPlacing, ActionSnooze},
		{StatusPlacing, ActionExpire},
	}
	for _, c := range invalid {
		got, err := Transition(c.from, c.action)
		if err == nil {
			t.Fatalf("%s + %s: expected error", c.from, c.action)
		}
		var ite *ErrInvalidTransition
		if !errors.As(err, &ite) {
			t.Fatalf("%s + %s: wrong error type %T", c.from, c.action, err)
		}
		if got != c.from {
			t.Fatalf("%s + %s: state moved to %s on rejection", c.from, c.action, got)
		}
	}
}

func TestReservationByTrigger(t *testing.T) {
	limit := &Signal{Side: SideBuy, Quantity: 10, Status: StatusPending,
		Trigger: Trigger{Type: TriggerLimit, Price: 500}}
	if got := limit.Reservation(0); got != 5000 {
		t.Fatalf("limit reservation: got %v", got)
	}
	zone := &Signal{Side: SideBuy, Quantity: 4, Status: StatusAcked,
		Trigger: Trigger{Type: TriggerZone, Low: 100, High: 120}}
	if got := zone.Reservation(0); got != 400 {
		t.Fatalf("zone reservation: got %v", got)
	}
	market := &Signal{Side: SideBuy, Quantity: 3, Status: StatusPending,
		Trigger: Trigger{Type: TriggerMarket}}
	if got := market.Reservation(0); got != 0 {
		t.Fatalf("market without quote should reserve nothing, got %v", got)
	}
	if got := market.Reservation(250); got != 750 {
		t.Fatalf("market with quote estimate: got %v", got)
	}
	sell := &Signal{Side: SideSell, Quantity: 10, Status: StatusPending,
		Trigger: Trigger{Type: TriggerLimit, Price: 500}}
	if got := sell.Reservation(0); got != 0 {
		t.Fatalf("sell must not reserve, got %v", got)
	}
	dismissed := &Signal{Side: SideBuy, Quantity: 10, Status: StatusDismissed,
		Trigger: Trigger{Type: TriggerLimit, Price: 500}}
	if got := dismissed.Reservation(0); got != 0 {
		t.Fatalf("terminal state must not reserve, got %v", got)
	}
}
