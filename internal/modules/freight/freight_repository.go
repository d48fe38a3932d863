package freight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"logmene/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the contract for freight persistence.
type RepositoryInterface interface {
	CreateRequest(ctx context.Context, userID string, req models.CreateFreightRequest) (*models.FreightRequest, error)
	FindRequestByID(ctx context.Context, id int) (*models.FreightRequest, error)
	FindRequestByIDForUpdate(ctx context.Context, id int) (*models.FreightRequest, error)
	ListRequests(ctx context.Context, filter models.RequestFilter) ([]*models.FreightRequest, int, error)
	UpdateRequestFields(ctx context.Context, id int, req models.UpdateFreightRequest) (*models.FreightRequest, error)
	UpdateRequestStatus(ctx context.Context, id int, status models.RequestStatus, completedAt *time.Time) (*models.FreightRequest, error)
	DeleteRequest(ctx context.Context, id int) error
	CountByStatus(ctx context.Context, userID string) (map[models.RequestStatus]int, error)

	CreateQuote(ctx context.Context, requestID int, companyID string, req models.CreateQuoteRequest) (*models.Quote, error)
	FindQuoteByID(ctx context.Context, id int) (*models.Quote, error)
	FindQuoteByRequestID(ctx context.Context, requestID int) (*models.Quote, error)
	UpdateQuote(ctx context.Context, id int, req models.UpdateQuoteRequest) (*models.Quote, error)
	DeleteQuote(ctx context.Context, id int) error

	CreateDeliveryProof(ctx context.Context, requestID int, uploadedBy string, req models.CreateDeliveryProofRequest) (*models.DeliveryProof, error)
	FindDeliveryProofByRequestID(ctx context.Context, requestID int) (*models.DeliveryProof, error)

	// WithinTransaction runs fn against a repository bound to one transaction,
	// committing when fn returns nil and rolling back otherwise.
	WithinTransaction(ctx context.Context, fn func(repo RepositoryInterface) error) error
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements RepositoryInterface on Postgres.
type Repository struct {
	db   DBTX
	pool *pgxpool.Pool // nil when bound to a transaction
}

// NewRepository creates a new freight repository.
func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &Repository{db: pool, pool: pool}
}

const requestColumns = `id, user_id, origin_address, origin_city, origin_state, origin_zip,
	destination_address, destination_city, destination_state, destination_zip,
	cargo_type, weight, volume, invoice_value, pickup_date, delivery_date, notes, insurance,
	status, created_at, updated_at, completed_at`

const quoteColumns = `id, request_id, company_id, value, estimated_days, distance, notes, created_at, updated_at`

const proofColumns = `id, request_id, uploaded_by, image, notes, uploaded_at`

func (r *Repository) WithinTransaction(ctx context.Context, fn func(repo RepositoryInterface) error) error {
	if r.pool == nil {
		// Already inside a transaction.
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("repository.BeginTx: %w", err)
	}
	// Rollback is a no-op after a successful commit.
	defer tx.Rollback(ctx)

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.Commit: %w", err)
	}
	return nil
}

// mapError turns driver errors into domain sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s already exists", models.ErrConflict, conflictSubject(pgErr.TableName))
		case "23503":
			return fmt.Errorf("%w: referenced record does not exist", models.ErrNotFound)
		}
	}
	return fmt.Errorf("repository.%s: %w", op, err)
}

func conflictSubject(table string) string {
	switch table {
	case "quotes":
		return "a quote for this request"
	case "delivery_proofs":
		return "a delivery proof for this request"
	}
	return "record"
}

func scanRequest(row pgx.Row) (*models.FreightRequest, error) {
	var fr models.FreightRequest
	err := row.Scan(
		&fr.ID,
		&fr.UserID,
		&fr.OriginAddress,
		&fr.OriginCity,
		&fr.OriginState,
		&fr.OriginZip,
		&fr.DestinationAddress,
		&fr.DestinationCity,
		&fr.DestinationState,
		&fr.DestinationZip,
		&fr.CargoType,
		&fr.Weight,
		&fr.Volume,
		&fr.InvoiceValue,
		&fr.PickupDate,
		&fr.DeliveryDate,
		&fr.Notes,
		&fr.Insurance,
		&fr.Status,
		&fr.CreatedAt,
		&fr.UpdatedAt,
		&fr.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &fr, nil
}

func scanQuote(row pgx.Row) (*models.Quote, error) {
	var q models.Quote
	err := row.Scan(&q.ID, &q.RequestID, &q.CompanyID, &q.Value, &q.EstimatedDays, &q.Distance, &q.Notes, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func scanProof(row pgx.Row) (*models.DeliveryProof, error) {
	var p models.DeliveryProof
	err := row.Scan(&p.ID, &p.RequestID, &p.UploadedBy, &p.Image, &p.Notes, &p.UploadedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateRequest inserts a new request in status pending.
func (r *Repository) CreateRequest(ctx context.Context, userID string, req models.CreateFreightRequest) (*models.FreightRequest, error) {
	query := `
		INSERT INTO freight_requests (user_id, origin_address, origin_city, origin_state, origin_zip,
			destination_address, destination_city, destination_state, destination_zip,
			cargo_type, weight, volume, invoice_value, pickup_date, delivery_date, notes, insurance, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 'pending')
		RETURNING ` + requestColumns

	row := r.db.QueryRow(ctx, query,
		userID,
		req.OriginAddress, req.OriginCity, req.OriginState, req.OriginZip,
		req.DestinationAddress, req.DestinationCity, req.DestinationState, req.DestinationZip,
		req.CargoType, req.Weight, req.Volume, req.InvoiceValue,
		req.PickupDate, req.DeliveryDate, req.Notes, req.Insurance,
	)
	fr, err := scanRequest(row)
	if err != nil {
		return nil, mapError("CreateRequest", err)
	}
	return fr, nil
}

// FindRequestByID retrieves a single request.
func (r *Repository) FindRequestByID(ctx context.Context, id int) (*models.FreightRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM freight_requests WHERE id = $1`
	fr, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("FindRequestByID", err)
	}
	return fr, nil
}

// FindRequestByIDForUpdate locks the request row until the surrounding transaction ends.
func (r *Repository) FindRequestByIDForUpdate(ctx context.Context, id int) (*models.FreightRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM freight_requests WHERE id = $1 FOR UPDATE`
	fr, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapError("FindRequestByIDForUpdate", err)
	}
	return fr, nil
}

// ListRequests returns one page of requests, newest first, and the total matching count.
func (r *Repository) ListRequests(ctx context.Context, filter models.RequestFilter) ([]*models.FreightRequest, int, error) {
	var conds []string
	var args []interface{}
	argIdx := 1

	if filter.UserID != "" {
		conds = append(conds, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.Status != "" {
		conds = append(conds, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM freight_requests"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListRequests.Count: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM freight_requests%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		requestColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListRequests.Query: %w", err)
	}
	defer rows.Close()

	requests := make([]*models.FreightRequest, 0, filter.Limit)
	for rows.Next() {
		fr, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListRequests.Scan: %w", err)
		}
		requests = append(requests, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ListRequests.Rows: %w", err)
	}
	return requests, total, nil
}

// UpdateRequestFields applies a partial edit. Status is never touched here.
func (r *Repository) UpdateRequestFields(ctx context.Context, id int, req models.UpdateFreightRequest) (*models.FreightRequest, error) {
	var setClauses []string
	var args []interface{}
	argIdx := 1

	set := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}
	if req.OriginAddress != nil {
		set("origin_address", *req.OriginAddress)
	}
	if req.OriginCity != nil {
		set("origin_city", *req.OriginCity)
	}
	if req.OriginState != nil {
		set("origin_state", *req.OriginState)
	}
	if req.OriginZip != nil {
		set("origin_zip", *req.OriginZip)
	}
	if req.DestinationAddress != nil {
		set("destination_address", *req.DestinationAddress)
	}
	if req.DestinationCity != nil {
		set("destination_city", *req.DestinationCity)
	}
	if req.DestinationState != nil {
		set("destination_state", *req.DestinationState)
	}
	if req.DestinationZip != nil {
		set("destination_zip", *req.DestinationZip)
	}
	if req.CargoType != nil {
		set("cargo_type", *req.CargoType)
	}
	if req.Weight != nil {
		set("weight", *req.Weight)
	}
	if req.Volume != nil {
		set("volume", *req.Volume)
	}
	if req.InvoiceValue != nil {
		set("invoice_value", *req.InvoiceValue)
	}
	if req.PickupDate != nil {
		set("pickup_date", *req.PickupDate)
	}
	if req.DeliveryDate != nil {
		set("delivery_date", *req.DeliveryDate)
	}
	if req.Notes != nil {
		set("notes", *req.Notes)
	}
	if req.Insurance != nil {
		set("insurance", *req.Insurance)
	}

	if len(setClauses) == 0 {
		return r.FindRequestByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE freight_requests SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, requestColumns)

	fr, err := scanRequest(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("UpdateRequestFields", err)
	}
	return fr, nil
}

// UpdateRequestStatus sets the status; completedAt is stored as given (nil clears it).
func (r *Repository) UpdateRequestStatus(ctx context.Context, id int, status models.RequestStatus, completedAt *time.Time) (*models.FreightRequest, error) {
	query := `
		UPDATE freight_requests
		SET status = $1, completed_at = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + requestColumns

	fr, err := scanRequest(r.db.QueryRow(ctx, query, status, completedAt, id))
	if err != nil {
		return nil, mapError("UpdateRequestStatus", err)
	}
	return fr, nil
}

// DeleteRequest removes a request; its quote and proof cascade.
func (r *Repository) DeleteRequest(ctx context.Context, id int) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM freight_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.DeleteRequest: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountByStatus counts requests per status, restricted to userID when it is not empty.
func (r *Repository) CountByStatus(ctx context.Context, userID string) (map[models.RequestStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM freight_requests`
	var args []interface{}
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` GROUP BY status`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository.CountByStatus.Query: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.RequestStatus]int, len(models.AllStatuses))
	for rows.Next() {
		var status models.RequestStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("repository.CountByStatus.Scan: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CreateQuote inserts the quote for a request. A second quote violates the unique index.
func (r *Repository) CreateQuote(ctx context.Context, requestID int, companyID string, req models.CreateQuoteRequest) (*models.Quote, error) {
	query := `
		INSERT INTO quotes (request_id, company_id, value, estimated_days, distance, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + quoteColumns

	q, err := scanQuote(r.db.QueryRow(ctx, query, requestID, companyID, req.Value, req.EstimatedDays, req.Distance, req.Notes))
	if err != nil {
		return nil, mapError("CreateQuote", err)
	}
	return q, nil
}

func (r *Repository) FindQuoteByID(ctx context.Context, id int) (*models.Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE id = $1`, id))
	if err != nil {
		return nil, mapError("FindQuoteByID", err)
	}
	return q, nil
}

func (r *Repository) FindQuoteByRequestID(ctx context.Context, requestID int) (*models.Quote, error) {
	q, err := scanQuote(r.db.QueryRow(ctx, `SELECT `+quoteColumns+` FROM quotes WHERE request_id = $1`, requestID))
	if err != nil {
		return nil, mapError("FindQuoteByRequestID", err)
	}
	return q, nil
}

// UpdateQuote applies a partial quote edit.
func (r *Repository) UpdateQuote(ctx context.Context, id int, req models.UpdateQuoteRequest) (*models.Quote, error) {
	var setClauses []string
	var args []interface{}
	argIdx := 1

	if req.Value != nil {
		setClauses = append(setClauses, fmt.Sprintf("value = $%d", argIdx))
		args = append(args, *req.Value)
		argIdx++
	}
	if req.EstimatedDays != nil {
		setClauses = append(setClauses, fmt.Sprintf("estimated_days = $%d", argIdx))
		args = append(args, *req.EstimatedDays)
		argIdx++
	}
	if req.Distance != nil {
		setClauses = append(setClauses, fmt.Sprintf("distance = $%d", argIdx))
		args = append(args, *req.Distance)
		argIdx++
	}
	if req.Notes != nil {
		setClauses = append(setClauses, fmt.Sprintf("notes = $%d", argIdx))
		args = append(args, *req.Notes)
		argIdx++
	}

	if len(setClauses) == 0 {
		return r.FindQuoteByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE quotes SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, quoteColumns)

	q, err := scanQuote(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError("UpdateQuote", err)
	}
	return q, nil
}

func (r *Repository) DeleteQuote(ctx context.Context, id int) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM quotes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository.DeleteQuote: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CreateDeliveryProof inserts the proof for a request. A second proof violates the unique index.
func (r *Repository) CreateDeliveryProof(ctx context.Context, requestID int, uploadedBy string, req models.CreateDeliveryProofRequest) (*models.DeliveryProof, error) {
	query := `
		INSERT INTO delivery_proofs (request_id, uploaded_by, image, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + proofColumns

	p, err := scanProof(r.db.QueryRow(ctx, query, requestID, uploadedBy, req.Image, req.Notes))
	if err != nil {
		return nil, mapError("CreateDeliveryProof", err)
	}
	return p, nil
}

func (r *Repository) FindDeliveryProofByRequestID(ctx context.Context, requestID int) (*models.DeliveryProof, error) {
	p, err := scanProof(r.db.QueryRow(ctx, `SELECT `+proofColumns+` FROM delivery_proofs WHERE request_id = $1`, requestID))
	if err != nil {
		return nil, mapError("FindDeliveryProofByRequestID", err)
	}
	return p, nil
}
