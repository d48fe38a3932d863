package freight

import (
	"fmt"

	"logmene/internal/models"
)

// Action is a lifecycle event applied to a freight request.
type Action string

const (
	ActionQuote         Action = "quote"
	ActionAccept        Action = "accept"
	ActionReject        Action = "reject"
	ActionComplete      Action = "complete"
	ActionWithdrawQuote Action = "withdraw_quote"
)

type edge struct {
	from   models.RequestStatus
	action Action
}

// transitions is the whole state machine. rejected and completed have no outgoing edges.
var transitions = map[edge]models.RequestStatus{
	{models.StatusPending, ActionQuote}:        models.StatusQuoted,
	{models.StatusQuoted, ActionAccept}:        models.StatusAccepted,
	{models.StatusQuoted, ActionReject}:        models.StatusRejected,
	{models.StatusQuoted, ActionWithdrawQuote}: models.StatusPending,
	{models.StatusAccepted, ActionComplete}:    models.StatusCompleted,
}

// Transition returns the status reached by applying action in status from,
// or an ErrInvalidState error when the edge does not exist.
func Transition(from models.RequestStatus, action Action) (models.RequestStatus, error) {
	to, ok := transitions[edge{from, action}]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a request in status %q", models.ErrInvalidState, action, from)
	}
	return to, nil
}

// decisionAction maps a client's answer to a quote onto its action.
func decisionAction(decision models.RequestStatus) (Action, error) {
	switch decision {
	case models.StatusAccepted:
		return ActionAccept, nil
	case models.StatusRejected:
		return ActionReject, nil
	}
	return "", fmt.Errorf("%w: decision must be accepted or rejected", models.ErrValidation)
}

// editable reports whether a client may still edit or delete a request in status s.
func editable(s models.RequestStatus) bool {
	return s == models.StatusPending || s == models.StatusRejected
}

// Authorization predicates. Each returns nil or an ErrForbidden error.

func canCreateRequest(actor models.Actor) error {
	if !actor.IsClient() {
		return fmt.Errorf("%w: only clients can create freight requests", models.ErrForbidden)
	}
	return nil
}

func canModifyRequest(actor models.Actor, req *models.FreightRequest) error {
	if !actor.IsClient() || req.UserID != actor.UserID {
		return fmt.Errorf("%w: only the owning client can modify this request", models.ErrForbidden)
	}
	return nil
}

func canRespondToQuote(actor models.Actor, req *models.FreightRequest) error {
	if !actor.IsClient() || req.UserID != actor.UserID {
		return fmt.Errorf("%w: only the owning client can respond to this quote", models.ErrForbidden)
	}
	return nil
}

func canManageQuotes(actor models.Actor) error {
	if !actor.IsCompany() {
		return fmt.Errorf("%w: only transportation companies can manage quotes", models.ErrForbidden)
	}
	return nil
}

// canChangeQuote restricts edits and withdrawals to the company that issued the quote.
func canChangeQuote(actor models.Actor, quote *models.Quote) error {
	if !actor.IsCompany() || quote.CompanyID != actor.UserID {
		return fmt.Errorf("%w: only the company that issued this quote can change it", models.ErrForbidden)
	}
	return nil
}

func canManageDelivery(actor models.Actor) error {
	if !actor.IsCompany() {
		return fmt.Errorf("%w: only transportation companies can manage deliveries", models.ErrForbidden)
	}
	return nil
}

func canViewRequest(actor models.Actor, req *models.FreightRequest) error {
	if actor.IsCompany() || (actor.IsClient() && req.UserID == actor.UserID) {
		return nil
	}
	return fmt.Errorf("%w: you cannot view this request", models.ErrForbidden)
}
