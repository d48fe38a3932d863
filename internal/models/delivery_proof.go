package models

import "time"

// DeliveryProof is the evidence a company uploads once a shipment is delivered.
type DeliveryProof struct {
	ID         int       `json:"id"`
	RequestID  int       `json:"request_id"`
	UploadedBy string    `json:"uploaded_by"`
	Image      string    `json:"image"` // URL or data URI
	Notes      string    `json:"notes,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CreateDeliveryProofRequest is the body accepted when a company uploads a proof.
type CreateDeliveryProofRequest struct {
	Image string `json:"image" validate:"required"`
	Notes string `json:"notes" validate:"max=1000"`
}
