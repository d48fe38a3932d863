package models

import "time"

// RequestStatus is the lifecycle state of a freight request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusQuoted    RequestStatus = "quoted"
	StatusAccepted  RequestStatus = "accepted"
	StatusRejected  RequestStatus = "rejected"
	StatusCompleted RequestStatus = "completed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []RequestStatus{StatusPending, StatusQuoted, StatusAccepted, StatusRejected, StatusCompleted}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// FreightRequest represents one shipment request submitted by a client.
type FreightRequest struct {
	ID                 int           `json:"id"`
	UserID             string        `json:"user_id"`
	OriginAddress      string        `json:"origin_address"`
	OriginCity         string        `json:"origin_city"`
	OriginState        string        `json:"origin_state"`
	OriginZip          string        `json:"origin_zip,omitempty"`
	DestinationAddress string        `json:"destination_address"`
	DestinationCity    string        `json:"destination_city"`
	DestinationState   string        `json:"destination_state"`
	DestinationZip     string        `json:"destination_zip,omitempty"`
	CargoType          string        `json:"cargo_type"`
	Weight             float64       `json:"weight"`
	Volume             float64       `json:"volume,omitempty"`
	InvoiceValue       float64       `json:"invoice_value,omitempty"`
	PickupDate         string        `json:"pickup_date"`
	DeliveryDate       string        `json:"delivery_date"`
	Notes              string        `json:"notes,omitempty"`
	Insurance          bool          `json:"insurance"`
	Status             RequestStatus `json:"status"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
	CompletedAt        *time.Time    `json:"completed_at,omitempty"`
}

// FreightRequestDetails is a request together with its quote and delivery proof, if any.
type FreightRequestDetails struct {
	*FreightRequest
	Quote         *Quote         `json:"quote,omitempty"`
	DeliveryProof *DeliveryProof `json:"delivery_proof,omitempty"`
}

// CreateFreightRequest is the body accepted when a client submits a new request.
type CreateFreightRequest struct {
	OriginAddress      string  `json:"origin_address" validate:"required,max=255"`
	OriginCity         string  `json:"origin_city" validate:"required,max=100"`
	OriginState        string  `json:"origin_state" validate:"required,max=50"`
	OriginZip          string  `json:"origin_zip" validate:"omitempty,max=20"`
	DestinationAddress string  `json:"destination_address" validate:"required,max=255"`
	DestinationCity    string  `json:"destination_city" validate:"required,max=100"`
	DestinationState   string  `json:"destination_state" validate:"required,max=50"`
	DestinationZip     string  `json:"destination_zip" validate:"omitempty,max=20"`
	CargoType          string  `json:"cargo_type" validate:"required,max=100"`
	Weight             float64 `json:"weight" validate:"gt=0"`
	Volume             float64 `json:"volume" validate:"gte=0"`
	InvoiceValue       float64 `json:"invoice_value" validate:"gte=0"`
	PickupDate         string  `json:"pickup_date" validate:"required,max=50"`
	DeliveryDate       string  `json:"delivery_date" validate:"required,max=50"`
	Notes              string  `json:"notes" validate:"max=2000"`
	Insurance          bool    `json:"insurance"`
}

// UpdateFreightRequest carries a partial edit; nil fields are left untouched.
type UpdateFreightRequest struct {
	OriginAddress      *string  `json:"origin_address,omitempty" validate:"omitempty,min=1,max=255"`
	OriginCity         *string  `json:"origin_city,omitempty" validate:"omitempty,min=1,max=100"`
	OriginState        *string  `json:"origin_state,omitempty" validate:"omitempty,min=1,max=50"`
	OriginZip          *string  `json:"origin_zip,omitempty" validate:"omitempty,max=20"`
	DestinationAddress *string  `json:"destination_address,omitempty" validate:"omitempty,min=1,max=255"`
	DestinationCity    *string  `json:"destination_city,omitempty" validate:"omitempty,min=1,max=100"`
	DestinationState   *string  `json:"destination_state,omitempty" validate:"omitempty,min=1,max=50"`
	DestinationZip     *string  `json:"destination_zip,omitempty" validate:"omitempty,max=20"`
	CargoType          *string  `json:"cargo_type,omitempty" validate:"omitempty,min=1,max=100"`
	Weight             *float64 `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Volume             *float64 `json:"volume,omitempty" validate:"omitempty,gte=0"`
	InvoiceValue       *float64 `json:"invoice_value,omitempty" validate:"omitempty,gte=0"`
	PickupDate         *string  `json:"pickup_date,omitempty" validate:"omitempty,min=1,max=50"`
	DeliveryDate       *string  `json:"delivery_date,omitempty" validate:"omitempty,min=1,max=50"`
	Notes              *string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Insurance          *bool    `json:"insurance,omitempty"`
}

// IsEmpty reports whether the edit changes nothing.
func (u UpdateFreightRequest) IsEmpty() bool {
	return u.OriginAddress == nil && u.OriginCity == nil && u.OriginState == nil && u.OriginZip == nil &&
		u.DestinationAddress == nil && u.DestinationCity == nil && u.DestinationState == nil && u.DestinationZip == nil &&
		u.CargoType == nil && u.Weight == nil && u.Volume == nil && u.InvoiceValue == nil &&
		u.PickupDate == nil && u.DeliveryDate == nil && u.Notes == nil && u.Insurance == nil
}

// RequestFilter narrows a request listing. An empty UserID lists every client's requests.
type RequestFilter struct {
	UserID string
	Status RequestStatus
	Page   int
	Limit  int
}

// RespondToQuoteRequest is the client's answer to a quote.
type RespondToQuoteRequest struct {
	Decision RequestStatus `json:"decision" validate:"required,oneof=accepted rejected"`
}

// RequestStats counts requests per status.
type RequestStats struct {
	Total  int                   `json:"total"`
	Counts map[RequestStatus]int `json:"counts"`
}
