package dto

import "github.com/noah-isme/sma-room-schedule/internal/models"

// RecordInteractionRequest is the payload of POST /interactions.
type RecordInteractionRequest struct {
	Object  string `json:"object" validate:"required,max=128"`
	Type    string `json:"type" validate:"required,max=64"`
	Details string `json:"details" validate:"omitempty,max=512"`
}

// RecordInteractionResult tells the client whether the cooldown swallowed the event.
type RecordInteractionResult struct {
	Accepted bool `json:"accepted"`
}

// InteractionReport is the log panel view: recent entries and aggregate counts.
type InteractionReport struct {
	Recent       []models.Interaction `json:"recent"`
	TopObjects   []models.CountEntry  `json:"top_objects"`
	CommonTypes  []models.CountEntry  `json:"common_types"`
	TotalEntries int                  `json:"total_entries"`
}
