package freight

import (
	"testing"

	"logmene/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_AllowedEdges(t *testing.T) {
	tests := []struct {
		from   models.RequestStatus
		action Action
		want   models.RequestStatus
	}{
		{models.StatusPending, ActionQuote, models.StatusQuoted},
		{models.StatusQuoted, ActionAccept, models.StatusAccepted},
		{models.StatusQuoted, ActionReject, models.StatusRejected},
		{models.StatusQuoted, ActionWithdrawQuote, models.StatusPending},
		{models.StatusAccepted, ActionComplete, models.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			got, err := Transition(tt.from, tt.action)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_EveryOtherPairIsInvalid(t *testing.T) {
	actions := []Action{ActionQuote, ActionAccept, ActionReject, ActionComplete, ActionWithdrawQuote}

	for _, from := range models.AllStatuses {
		for _, action := range actions {
			if _, ok := transitions[edge{from, action}]; ok {
				continue
			}
			got, err := Transition(from, action)
			assert.ErrorIs(t, err, models.ErrInvalidState, "%s/%s", from, action)
			assert.Equal(t, from, got, "status must stay unchanged for %s/%s", from, action)
		}
	}
}

func TestTransition_TerminalStatesHaveNoEdges(t *testing.T) {
	for e := range transitions {
		assert.NotEqual(t, models.StatusRejected, e.from)
		assert.NotEqual(t, models.StatusCompleted, e.from)
	}
}

func TestEditable(t *testing.T) {
	want := map[models.RequestStatus]bool{
		models.StatusPending:   true,
		models.StatusQuoted:    false,
		models.StatusAccepted:  false,
		models.StatusRejected:  true,
		models.StatusCompleted: false,
	}
	for status, ok := range want {
		assert.Equal(t, ok, editable(status), string(status))
	}
}

func TestAuthorizationPredicates(t *testing.T) {
	owner := models.Actor{UserID: "client-1", Role: models.RoleClient}
	stranger := models.Actor{UserID: "client-2", Role: models.RoleClient}
	company := models.Actor{UserID: "company-1", Role: models.RoleCompany}
	req := &models.FreightRequest{ID: 1, UserID: owner.UserID}

	assert.NoError(t, canCreateRequest(owner))
	assert.ErrorIs(t, canCreateRequest(company), models.ErrForbidden)

	assert.NoError(t, canModifyRequest(owner, req))
	assert.ErrorIs(t, canModifyRequest(stranger, req), models.ErrForbidden)
	assert.ErrorIs(t, canModifyRequest(company, req), models.ErrForbidden)

	assert.NoError(t, canRespondToQuote(owner, req))
	assert.ErrorIs(t, canRespondToQuote(stranger, req), models.ErrForbidden)
	assert.ErrorIs(t, canRespondToQuote(models.Actor{UserID: owner.UserID, Role: models.RoleCompany}, req), models.ErrForbidden)

	assert.NoError(t, canManageQuotes(company))
	assert.ErrorIs(t, canManageQuotes(owner), models.ErrForbidden)
	assert.NoError(t, canManageDelivery(company))
	assert.ErrorIs(t, canManageDelivery(owner), models.ErrForbidden)

	quote := &models.Quote{ID: 1, RequestID: 1, CompanyID: company.UserID}
	assert.NoError(t, canChangeQuote(company, quote))
	assert.ErrorIs(t, canChangeQuote(models.Actor{UserID: "company-2", Role: models.RoleCompany}, quote), models.ErrForbidden)

	assert.NoError(t, canViewRequest(owner, req))
	assert.NoError(t, canViewRequest(company, req))
	assert.ErrorIs(t, canViewRequest(stranger, req), models.ErrForbidden)
}

func TestDecisionAction(t *testing.T) {
	a, err := decisionAction(models.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, ActionAccept, a)

	a, err = decisionAction(models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, ActionReject, a)

	_, err = decisionAction(models.StatusCompleted)
	assert.ErrorIs(t, err, models.ErrValidation)
}
