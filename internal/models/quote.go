package models

import "time"

// Quote is a company's price and delivery-time offer for a freight request.
type Quote struct {
	ID            int       `json:"id"`
	RequestID     int       `json:"request_id"`
	CompanyID     string    `json:"company_id"`
	Value         float64   `json:"value"`
	EstimatedDays int       `json:"estimated_days"`
	Distance      *float64  `json:"distance,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateQuoteRequest is the body accepted when a company quotes a request.
type CreateQuoteRequest struct {
	Value         float64  `json:"value" validate:"gte=0"`
	EstimatedDays int      `json:"estimated_days" validate:"gte=1"`
	Distance      *float64 `json:"distance,omitempty" validate:"omitempty,gte=0"`
	Notes         string   `json:"notes" validate:"max=1000"`
}

// UpdateQuoteRequest carries a partial quote edit.
type UpdateQuoteRequest struct {
	Value         *float64 `json:"value,omitempty" validate:"omitempty,gte=0"`
	EstimatedDays *int     `json:"estimated_days,omitempty" validate:"omitempty,gte=1"`
	Distance      *float64 `json:"distance,omitempty" validate:"omitempty,gte=0"`
	Notes         *string  `json:"notes,omitempty" validate:"omitempty,max=1000"`
}
