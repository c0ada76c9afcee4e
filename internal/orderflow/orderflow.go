// Package orderflow holds the restaurant order lifecycle:
//
//	PENDING → NEW → PREPARING → READY → COMPLETED
//	    └──────┴────────┴─────────┴────→ CANCELLED
//
// The action table is static. Dashboards render ActionsFor(status, role) as
// buttons and the API applies them with Apply.
package orderflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/innstay/api/internal/enum"
)

type Status string

const (
	Pending   Status = enum.OrderStatusPending
	New       Status = enum.OrderStatusNew
	Preparing Status = enum.OrderStatusPreparing
	Ready     Status = enum.OrderStatusReady
	Completed Status = enum.OrderStatusCompleted
	Cancelled Status = enum.OrderStatusCancelled
)

var (
	ErrUnknownStatus     = errors.New("unknown order status")
	ErrUnknownAction     = errors.New("unknown order action")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrTerminalStatus    = errors.New("order is already closed")
	ErrForbiddenAction   = errors.New("role may not perform this action")
)

// Action is a staff operation that moves an order to a new status.
type Action struct {
	Name  string   `json:"name"`
	Label string   `json:"label"`
	To    Status   `json:"to"`
	From  []Status `json:"-"`
	Roles []string `json:"-"`
}

var frontOfHouse = []string{enum.UserRoleWaiter, enum.UserRoleReceptionist, enum.UserRoleAdmin}

// actions is ordered the way dashboards lay out their buttons.
var actions = []Action{
	{Name: "accept", Label: "Accept order", From: []Status{Pending}, To: New, Roles: frontOfHouse},
	{Name: "start_cooking", Label: "Start cooking", From: []Status{New}, To: Preparing, Roles: []string{enum.UserRoleKitchen, enum.UserRoleAdmin}},
	{Name: "mark_ready", Label: "Mark ready", From: []Status{Preparing}, To: Ready, Roles: []string{enum.UserRoleKitchen, enum.UserRoleAdmin}},
	{Name: "complete", Label: "Complete", From: []Status{Ready}, To: Completed, Roles: frontOfHouse},
	{Name: "cancel", Label: "Cancel", From: []Status{Pending, New, Preparing, Ready}, To: Cancelled, Roles: frontOfHouse},
}

// All returns every status in lifecycle order.
func All() []Status {
	return []Status{Pending, New, Preparing, Ready, Completed, Cancelled}
}

func Parse(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range All() {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) String() string { return string(s) }

func IsTerminal(s Status) bool {
	return s == Completed || s == Cancelled
}

// IsActive reports whether the order still belongs on the kitchen board.
func IsActive(s Status) bool {
	switch s {
	case Pending, New, Preparing, Ready:
		return true
	}
	return false
}

func Lookup(name string) (Action, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, a := range actions {
		if a.Name == name {
			return a, true
		}
	}
	return Action{}, false
}

func (a Action) appliesTo(s Status) bool {
	for _, from := range a.From {
		if from == s {
			return true
		}
	}
	return false
}

func (a Action) AllowedFor(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// NextActions returns the legal actions from s regardless of role.
func NextActions(s Status) []Action {
	var out []Action
	for _, a := range actions {
		if a.appliesTo(s) {
			out = append(out, a)
		}
	}
	return out
}

// ActionsFor narrows NextActions to what role may perform.
func ActionsFor(s Status, role string) []Action {
	var out []Action
	for _, a := range NextActions(s) {
		if a.AllowedFor(role) {
			out = append(out, a)
		}
	}
	return out
}

func CanTransition(from, to Status) bool {
	for _, a := range NextActions(from) {
		if a.To == to {
			return true
		}
	}
	return false
}

func Validate(from, to Status) error {
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s", ErrTerminalStatus, from)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ActionFor finds the action that moves from → to.
func ActionFor(from, to Status) (Action, error) {
	if err := Validate(from, to); err != nil {
		return Action{}, err
	}
	for _, a := range NextActions(from) {
		if a.To == to {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, from, to)
}

// Apply checks that role may run action against an order in status s and
// returns the resulting status.
func Apply(s Status, actionName, role string) (Status, error) {
	a, ok := Lookup(actionName)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, actionName)
	}
	if IsTerminal(s) {
		return "", fmt.Errorf("%w: %s", ErrTerminalStatus, s)
	}
	if !a.appliesTo(s) {
		return "", fmt.Errorf("%w: cannot %s an order that is %s", ErrInvalidTransition, a.Name, s)
	}
	if !a.AllowedFor(role) {
		return "", fmt.Errorf("%w: %s cannot %s", ErrForbiddenAction, role, a.Name)
	}
	return a.To, nil
}
