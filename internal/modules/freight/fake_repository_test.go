package freight

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"logmene/internal/models"
)

// memRepository is an in-memory RepositoryInterface. WithinTransaction restores
// the previous state when fn fails.
type memRepository struct {
	mu       sync.Mutex
	nextID   int
	requests map[int]models.FreightRequest
	quotes   map[int]models.Quote
	proofs   map[int]models.DeliveryProof
	// failOn makes the named method return failErr, to exercise rollbacks.
	failOn  string
	failErr error
}

func newMemRepository() *memRepository {
	return &memRepository{
		requests: map[int]models.FreightRequest{},
		quotes:   map[int]models.Quote{},
		proofs:   map[int]models.DeliveryProof{},
	}
}

func (m *memRepository) id() int {
	m.nextID++
	return m.nextID
}

func (m *memRepository) fail(op string) error {
	if m.failOn == op {
		return m.failErr
	}
	return nil
}

func (m *memRepository) WithinTransaction(ctx context.Context, fn func(repo RepositoryInterface) error) error {
	m.mu.Lock()
	requests := make(map[int]models.FreightRequest, len(m.requests))
	for k, v := range m.requests {
		requests[k] = v
	}
	quotes := make(map[int]models.Quote, len(m.quotes))
	for k, v := range m.quotes {
		quotes[k] = v
	}
	proofs := make(map[int]models.DeliveryProof, len(m.proofs))
	for k, v := range m.proofs {
		proofs[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.requests, m.quotes, m.proofs = requests, quotes, proofs
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepository) CreateRequest(ctx context.Context, userID string, req models.CreateFreightRequest) (*models.FreightRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateRequest"); err != nil {
		return nil, err
	}
	now := time.Now()
	fr := models.FreightRequest{
		ID:                 m.id(),
		UserID:             userID,
		OriginAddress:      req.OriginAddress,
		OriginCity:         req.OriginCity,
		OriginState:        req.OriginState,
		OriginZip:          req.OriginZip,
		DestinationAddress: req.DestinationAddress,
		DestinationCity:    req.DestinationCity,
		DestinationState:   req.DestinationState,
		DestinationZip:     req.DestinationZip,
		CargoType:          req.CargoType,
		Weight:             req.Weight,
		Volume:             req.Volume,
		InvoiceValue:       req.InvoiceValue,
		PickupDate:         req.PickupDate,
		DeliveryDate:       req.DeliveryDate,
		Notes:              req.Notes,
		Insurance:          req.Insurance,
		Status:             models.StatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	m.requests[fr.ID] = fr
	return &fr, nil
}

func (m *memRepository) FindRequestByID(ctx context.Context, id int) (*models.FreightRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fr, ok := m.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &fr, nil
}

func (m *memRepository) FindRequestByIDForUpdate(ctx context.Context, id int) (*models.FreightRequest, error) {
	return m.FindRequestByID(ctx, id)
}

func (m *memRepository) ListRequests(ctx context.Context, filter models.RequestFilter) ([]*models.FreightRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*models.FreightRequest
	for _, fr := range m.requests {
		if filter.UserID != "" && fr.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && fr.Status != filter.Status {
			continue
		}
		fr := fr
		all = append(all, &fr)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	start := (filter.Page - 1) * filter.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + filter.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (m *memRepository) UpdateRequestFields(ctx context.Context, id int, req models.UpdateFreightRequest) (*models.FreightRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fr, ok := m.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if req.CargoType != nil {
		fr.CargoType = *req.CargoType
	}
	if req.Weight != nil {
		fr.Weight = *req.Weight
	}
	if req.Notes != nil {
		fr.Notes = *req.Notes
	}
	if req.DestinationCity != nil {
		fr.DestinationCity = *req.DestinationCity
	}
	fr.UpdatedAt = time.Now()
	m.requests[id] = fr
	return &fr, nil
}

func (m *memRepository) UpdateRequestStatus(ctx context.Context, id int, status models.RequestStatus, completedAt *time.Time) (*models.FreightRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateRequestStatus"); err != nil {
		return nil, err
	}
	fr, ok := m.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	fr.Status = status
	fr.CompletedAt = completedAt
	fr.UpdatedAt = time.Now()
	m.requests[id] = fr
	return &fr, nil
}

func (m *memRepository) DeleteRequest(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.requests, id)
	for qid, q := range m.quotes {
		if q.RequestID == id {
			delete(m.quotes, qid)
		}
	}
	for pid, p := range m.proofs {
		if p.RequestID == id {
			delete(m.proofs, pid)
		}
	}
	return nil
}

func (m *memRepository) CountByStatus(ctx context.Context, userID string) (map[models.RequestStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[models.RequestStatus]int{}
	for _, fr := range m.requests {
		if userID == "" || fr.UserID == userID {
			counts[fr.Status]++
		}
	}
	return counts, nil
}

func (m *memRepository) CreateQuote(ctx context.Context, requestID int, companyID string, req models.CreateQuoteRequest) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotes {
		if q.RequestID == requestID {
			return nil, fmt.Errorf("%w: a quote for this request already exists", models.ErrConflict)
		}
	}
	now := time.Now()
	q := models.Quote{
		ID:            m.id(),
		RequestID:     requestID,
		CompanyID:     companyID,
		Value:         req.Value,
		EstimatedDays: req.EstimatedDays,
		Distance:      req.Distance,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.quotes[q.ID] = q
	return &q, nil
}

func (m *memRepository) FindQuoteByID(ctx context.Context, id int) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &q, nil
}

func (m *memRepository) FindQuoteByRequestID(ctx context.Context, requestID int) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quotes {
		if q.RequestID == requestID {
			q := q
			return &q, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memRepository) UpdateQuote(ctx context.Context, id int, req models.UpdateQuoteRequest) (*models.Quote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if req.Value != nil {
		q.Value = *req.Value
	}
	if req.EstimatedDays != nil {
		q.EstimatedDays = *req.EstimatedDays
	}
	if req.Distance != nil {
		q.Distance = req.Distance
	}
	if req.Notes != nil {
		q.Notes = *req.Notes
	}
	m.quotes[id] = q
	return &q, nil
}

func (m *memRepository) DeleteQuote(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quotes[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.quotes, id)
	return nil
}

func (m *memRepository) CreateDeliveryProof(ctx context.Context, requestID int, uploadedBy string, req models.CreateDeliveryProofRequest) (*models.DeliveryProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proofs {
		if p.RequestID == requestID {
			return nil, fmt.Errorf("%w: a delivery proof for this request already exists", models.ErrConflict)
		}
	}
	p := models.DeliveryProof{
		ID:         m.id(),
		RequestID:  requestID,
		UploadedBy: uploadedBy,
		Image:      req.Image,
		Notes:      req.Notes,
		UploadedAt: time.Now(),
	}
	m.proofs[p.ID] = p
	return &p, nil
}

func (m *memRepository) FindDeliveryProofByRequestID(ctx context.Context, requestID int) (*models.DeliveryProof, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.proofs {
		if p.RequestID == requestID {
			p := p
			return &p, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *memRepository) quoteCount(requestID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, q := range m.quotes {
		if q.RequestID == requestID {
			n++
		}
	}
	return n
}

// recordingNotifier captures every event and answers with result.
type recordingNotifier struct {
	mu     sync.Mutex
	events []models.NotificationEvent
	result bool
}

func (n *recordingNotifier) Notify(ctx context.Context, event models.NotificationEvent) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.result
}

func (n *recordingNotifier) last() models.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}
