package freight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"logmene/internal/metrics"
	"logmene/internal/models"
	"logmene/pkg/logger"
	"logmene/pkg/utils"
)

// Notifier dispatches a notification and reports whether the in-app record was written.
type Notifier interface {
	Notify(ctx context.Context, event models.NotificationEvent) bool
}

// ServiceInterface defines the contract for the freight lifecycle service.
type ServiceInterface interface {
	CreateRequest(ctx context.Context, actor models.Actor, req models.CreateFreightRequest) (*models.FreightRequest, error)
	GetRequest(ctx context.Context, actor models.Actor, requestID int) (*models.FreightRequestDetails, error)
	ListRequests(ctx context.Context, actor models.Actor, status models.RequestStatus, page, limit int) ([]*models.FreightRequest, int, error)
	EditRequest(ctx context.Context, actor models.Actor, requestID int, req models.UpdateFreightRequest) (*models.FreightRequest, error)
	DeleteRequest(ctx context.Context, actor models.Actor, requestID int) error
	GetStats(ctx context.Context, actor models.Actor) (*models.RequestStats, error)

	CreateQuote(ctx context.Context, actor models.Actor, requestID int, req models.CreateQuoteRequest) (*models.Quote, error)
	GetQuote(ctx context.Context, actor models.Actor, requestID int) (*models.Quote, error)
	UpdateQuote(ctx context.Context, actor models.Actor, quoteID int, req models.UpdateQuoteRequest) (*models.Quote, error)
	DeleteQuote(ctx context.Context, actor models.Actor, quoteID int) error
	RespondToQuote(ctx context.Context, actor models.Actor, requestID int, decision models.RequestStatus) (*models.FreightRequest, error)

	UploadDeliveryProof(ctx context.Context, actor models.Actor, requestID int, req models.CreateDeliveryProofRequest) (*models.DeliveryProof, error)
	GetDeliveryProof(ctx context.Context, actor models.Actor, requestID int) (*models.DeliveryProof, error)
	CompleteRequest(ctx context.Context, actor models.Actor, requestID int) (*models.FreightRequest, error)
}

// Service implements the freight lifecycle.
type Service struct {
	repo     RepositoryInterface
	notifier Notifier
	now      func() time.Time
}

// NewService creates a new freight service.
func NewService(repo RepositoryInterface, notifier Notifier) ServiceInterface {
	return &Service{repo: repo, notifier: notifier, now: time.Now}
}

func validate(req interface{}) error {
	return utils.GetValidator().Validate(req)
}

// describeNotFound gives a bare ErrNotFound a message naming the missing entity.
func describeNotFound(err error, entity string, id int) error {
	if err == models.ErrNotFound {
		return fmt.Errorf("%w: %s %d", models.ErrNotFound, entity, id)
	}
	return err
}

// notify dispatches an event. A failed notification never fails the operation.
func (s *Service) notify(ctx context.Context, event models.NotificationEvent) {
	if ok := s.notifier.Notify(ctx, event); !ok {
		logger.Warn("notification dispatch failed",
			"type", event.Type,
			"user_id", event.UserID,
			"role", event.Role,
			"request_id", event.RequestID,
		)
	}
}

func recordTransition(from, to models.RequestStatus) {
	metrics.RecordTransition(string(from), string(to))
	logger.Debug("freight request transition", "from", from, "to", to)
}

// CreateRequest registers a new pending request and alerts every company.
func (s *Service) CreateRequest(ctx context.Context, actor models.Actor, req models.CreateFreightRequest) (*models.FreightRequest, error) {
	if err := canCreateRequest(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	fr, err := s.repo.CreateRequest(ctx, actor.UserID, req)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.NotificationEvent{
		Role:      models.RoleCompany,
		RequestID: &fr.ID,
		Type:      models.NotificationStatusUpdate,
		Subject:   "New freight request",
		Message: fmt.Sprintf("New freight request #%d: %s from %s/%s to %s/%s.",
			fr.ID, fr.CargoType, fr.OriginCity, fr.OriginState, fr.DestinationCity, fr.DestinationState),
		SendEmail: true,
	})
	return fr, nil
}

// GetRequest returns a request together with its quote and delivery proof.
func (s *Service) GetRequest(ctx context.Context, actor models.Actor, requestID int) (*models.FreightRequestDetails, error) {
	fr, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, describeNotFound(err, "freight request", requestID)
	}
	if err := canViewRequest(actor, fr); err != nil {
		return nil, err
	}

	details := &models.FreightRequestDetails{FreightRequest: fr}
	quote, err := s.repo.FindQuoteByRequestID(ctx, requestID)
	switch {
	case err == nil:
		details.Quote = quote
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}
	proof, err := s.repo.FindDeliveryProofByRequestID(ctx, requestID)
	switch {
	case err == nil:
		details.DeliveryProof = proof
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}
	return details, nil
}

// ListRequests lists a client's own requests, or every request for a company.
func (s *Service) ListRequests(ctx context.Context, actor models.Actor, status models.RequestStatus, page, limit int) ([]*models.FreightRequest, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	filter := models.RequestFilter{Status: status, Page: page, Limit: limit}
	if !actor.IsCompany() {
		filter.UserID = actor.UserID
	}
	return s.repo.ListRequests(ctx, filter)
}

// EditRequest changes request fields while the request is pending or rejected.
func (s *Service) EditRequest(ctx context.Context, actor models.Actor, requestID int, req models.UpdateFreightRequest) (*models.FreightRequest, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var updated *models.FreightRequest
	err := s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		fr, err := repo.FindRequestByIDForUpdate(ctx, requestID)
		if err != nil {
			return describeNotFound(err, "freight request", requestID)
		}
		if err := canModifyRequest(actor, fr); err != nil {
			return err
		}
		if !editable(fr.Status) {
			return fmt.Errorf("%w: a request in status %q can no longer be edited", models.ErrInvalidState, fr.Status)
		}
		if req.IsEmpty() {
			updated = fr
			return nil
		}
		updated, err = repo.UpdateRequestFields(ctx, requestID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRequest removes a request while it is pending or rejected.
func (s *Service) DeleteRequest(ctx context.Context, actor models.Actor, requestID int) error {
	return s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		fr, err := repo.FindRequestByIDForUpdate(ctx, requestID)
		if err != nil {
			return describeNotFound(err, "freight request", requestID)
		}
		if err := canModifyRequest(actor, fr); err != nil {
			return err
		}
		if !editable(fr.Status) {
			return fmt.Errorf("%w: a request in status %q can no longer be deleted", models.ErrInvalidState, fr.Status)
		}
		return repo.DeleteRequest(ctx, requestID)
	})
}

// GetStats counts requests per status, scoped like ListRequests.
func (s *Service) GetStats(ctx context.Context, actor models.Actor) (*models.RequestStats, error) {
	userID := actor.UserID
	if actor.IsCompany() {
		userID = ""
	}
	counts, err := s.repo.CountByStatus(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &models.RequestStats{Counts: make(map[models.RequestStatus]int, len(models.AllStatuses))}
	for _, st := range models.AllStatuses {
		stats.Counts[st] = counts[st]
		stats.Total += counts[st]
	}
	return stats, nil
}

// CreateQuote attaches the company's offer to a pending request and moves it to quoted.
func (s *Service) CreateQuote(ctx context.Context, actor models.Actor, requestID int, req models.CreateQuoteRequest) (*models.Quote, error) {
	if err := canManageQuotes(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		quote *models.Quote
		fr    *models.FreightRequest
		from  models.RequestStatus
	)
	err := s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		var err error
		fr, err = repo.FindRequestByIDForUpdate(ctx, requestID)
		if err != nil {
			return describeNotFound(err, "freight request", requestID)
		}
		from = fr.Status
		to, err := Transition(fr.Status, ActionQuote)
		if err != nil {
			return err
		}
		if _, err := repo.FindQuoteByRequestID(ctx, requestID); err == nil {
			return fmt.Errorf("%w: request %d already has a quote", models.ErrConflict, requestID)
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		if quote, err = repo.CreateQuote(ctx, requestID, actor.UserID, req); err != nil {
			return err
		}
		fr, err = repo.UpdateRequestStatus(ctx, requestID, to, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordTransition(from, fr.Status)

	s.notify(ctx, models.NotificationEvent{
		UserID:    fr.UserID,
		RequestID: &fr.ID,
		Type:      models.NotificationQuoteReceived,
		Subject:   "You received a quote",
		Message: fmt.Sprintf("Your freight request #%d received a quote of %.2f with delivery in %d day(s).",
			fr.ID, quote.Value, quote.EstimatedDays),
		SendEmail: true,
	})
	return quote, nil
}

// GetQuote returns the quote of a request visible to the actor.
func (s *Service) GetQuote(ctx context.Context, actor models.Actor, requestID int) (*models.Quote, error) {
	fr, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, describeNotFound(err, "freight request", requestID)
	}
	if err := canViewRequest(actor, fr); err != nil {
		return nil, err
	}
	quote, err := s.repo.FindQuoteByRequestID(ctx, requestID)
	if err != nil {
		return nil, describeNotFound(err, "quote for request", requestID)
	}
	return quote, nil
}

// UpdateQuote edits a quote the client has not answered yet.
func (s *Service) UpdateQuote(ctx context.Context, actor models.Actor, quoteID int, req models.UpdateQuoteRequest) (*models.Quote, error) {
	if err := canManageQuotes(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		quote *models.Quote
		fr    *models.FreightRequest
	)
	err := s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		var err error
		if quote, err = repo.FindQuoteByID(ctx, quoteID); err != nil {
			return describeNotFound(err, "quote", quoteID)
		}
		if err := canChangeQuote(actor, quote); err != nil {
			return err
		}
		if fr, err = repo.FindRequestByIDForUpdate(ctx, quote.RequestID); err != nil {
			return describeNotFound(err, "freight request", quote.RequestID)
		}
		if fr.Status != models.StatusQuoted {
			return fmt.Errorf("%w: the quote can only change while the request is %q, it is %q",
				models.ErrInvalidState, models.StatusQuoted, fr.Status)
		}
		quote, err = repo.UpdateQuote(ctx, quoteID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.NotificationEvent{
		UserID:    fr.UserID,
		RequestID: &fr.ID,
		Type:      models.NotificationQuoteReceived,
		Subject:   "Your quote was updated",
		Message: fmt.Sprintf("The quote for freight request #%d was updated: %.2f with delivery in %d day(s).",
			fr.ID, quote.Value, quote.EstimatedDays),
	})
	return quote, nil
}

// DeleteQuote withdraws an unanswered quote and reopens the request.
func (s *Service) DeleteQuote(ctx context.Context, actor models.Actor, quoteID int) error {
	if err := canManageQuotes(actor); err != nil {
		return err
	}

	var (
		fr   *models.FreightRequest
		from models.RequestStatus
	)
	err := s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		quote, err := repo.FindQuoteByID(ctx, quoteID)
		if err != nil {
			return describeNotFound(err, "quote", quoteID)
		}
		if err := canChangeQuote(actor, quote); err != nil {
			return err
		}
		if fr, err = repo.FindRequestByIDForUpdate(ctx, quote.RequestID); err != nil {
			return describeNotFound(err, "freight request", quote.RequestID)
		}
		from = fr.Status
		to, err := Transition(fr.Status, ActionWithdrawQuote)
		if err != nil {
			return err
		}
		if err := repo.DeleteQuote(ctx, quoteID); err != nil {
			return err
		}
		fr, err = repo.UpdateRequestStatus(ctx, fr.ID, to, nil)
		return err
	})
	if err != nil {
		return err
	}
	recordTransition(from, fr.Status)

	s.notify(ctx, models.NotificationEvent{
		UserID:    fr.UserID,
		RequestID: &fr.ID,
		Type:      models.NotificationStatusUpdate,
		Subject:   "Quote withdrawn",
		Message:   fmt.Sprintf("The quote for freight request #%d was withdrawn. The request is open for a new quote.", fr.ID),
	})
	return nil
}

// RespondToQuote records the owning client's decision on the quote.
func (s *Service) RespondToQuote(ctx context.Context, actor models.Actor, requestID int, decision models.RequestStatus) (*models.FreightRequest, error) {
	action, err := decisionAction(decision)
	if err != nil {
		return nil, err
	}

	var (
		fr        *models.FreightRequest
		from      models.RequestStatus
		companyID string
	)
	err = s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		var err error
		if fr, err = repo.FindRequestByIDForUpdate(ctx, requestID); err != nil {
			return describeNotFound(err, "freight request", requestID)
		}
		// Ownership is checked before status so a stranger learns nothing about the request.
		if err := canRespondToQuote(actor, fr); err != nil {
			return err
		}
		from = fr.Status
		to, err := Transition(fr.Status, action)
		if err != nil {
			return err
		}
		quote, err := repo.FindQuoteByRequestID(ctx, requestID)
		switch {
		case err == nil:
			companyID = quote.CompanyID
		case !errors.Is(err, models.ErrNotFound):
			return err
		}
		fr, err = repo.UpdateRequestStatus(ctx, requestID, to, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordTransition(from, fr.Status)

	s.notify(ctx, models.NotificationEvent{
		UserID:    fr.UserID,
		RequestID: &fr.ID,
		Type:      models.NotificationStatusUpdate,
		Subject:   "Freight request " + string(fr.Status),
		Message:   fmt.Sprintf("You %s the quote for freight request #%d.", fr.Status, fr.ID),
		SendEmail: true,
	})
	if companyID != "" {
		s.notify(ctx, models.NotificationEvent{
			UserID:    companyID,
			RequestID: &fr.ID,
			Type:      models.NotificationStatusUpdate,
			Message:   fmt.Sprintf("The client %s your quote for freight request #%d.", fr.Status, fr.ID),
		})
	}
	return fr, nil
}

// UploadDeliveryProof stores the proof for an accepted request. It does not change the status.
func (s *Service) UploadDeliveryProof(ctx context.Context, actor models.Actor, requestID int, req models.CreateDeliveryProofRequest) (*models.DeliveryProof, error) {
	if err := canManageDelivery(actor); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		proof *models.DeliveryProof
		fr    *models.FreightRequest
	)
	err := s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		var err error
		if fr, err = repo.FindRequestByIDForUpdate(ctx, requestID); err != nil {
			return describeNotFound(err, "freight request", requestID)
		}
		if fr.Status != models.StatusAccepted {
			return fmt.Errorf("%w: a delivery proof needs an %q request, it is %q",
				models.ErrInvalidState, models.StatusAccepted, fr.Status)
		}
		if _, err := repo.FindDeliveryProofByRequestID(ctx, requestID); err == nil {
			return fmt.Errorf("%w: request %d already has a delivery proof", models.ErrConflict, requestID)
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		proof, err = repo.CreateDeliveryProof(ctx, requestID, actor.UserID, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, models.NotificationEvent{
		UserID:    fr.UserID,
		RequestID: &fr.ID,
		Type:      models.NotificationProofUploaded,
		Subject:   "Delivery proof available",
		Message:   fmt.Sprintf("A delivery proof was uploaded for freight request #%d.", fr.ID),
		SendEmail: true,
	})
	return proof, nil
}

// GetDeliveryProof returns the proof of a request visible to the actor.
func (s *Service) GetDeliveryProof(ctx context.Context, actor models.Actor, requestID int) (*models.DeliveryProof, error) {
	fr, err := s.repo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, describeNotFound(err, "freight request", requestID)
	}
	if err := canViewRequest(actor, fr); err != nil {
		return nil, err
	}
	proof, err := s.repo.FindDeliveryProofByRequestID(ctx, requestID)
	if err != nil {
		return nil, describeNotFound(err, "delivery proof for request", requestID)
	}
	return proof, nil
}

// CompleteRequest closes an accepted request. A delivery proof must already exist.
func (s *Service) CompleteRequest(ctx context.Context, actor models.Actor, requestID int) (*models.FreightRequest, error) {
	if err := canManageDelivery(actor); err != nil {
		return nil, err
	}

	var (
		fr   *models.FreightRequest
		from models.RequestStatus
	)
	err := s.repo.WithinTransaction(ctx, func(repo RepositoryInterface) error {
		var err error
		if fr, err = repo.FindRequestByIDForUpdate(ctx, requestID); err != nil {
			return describeNotFound(err, "freight request", requestID)
		}
		from = fr.Status
		to, err := Transition(fr.Status, ActionComplete)
		if err != nil {
			return err
		}
		if _, err := repo.FindDeliveryProofByRequestID(ctx, requestID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: upload a delivery proof before completing request %d", models.ErrInvalidState, requestID)
			}
			return err
		}
		completedAt := s.now().UTC()
		fr, err = repo.UpdateRequestStatus(ctx, requestID, to, &completedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	recordTransition(from, fr.Status)

	s.notify(ctx, models.NotificationEvent{
		UserID:    fr.UserID,
		RequestID: &fr.ID,
		Type:      models.NotificationStatusUpdate,
		Subject:   "Freight request completed",
		Message:   fmt.Sprintf("Freight request #%d was delivered and completed.", fr.ID),
		SendEmail: true,
	})
	return fr, nil
}
