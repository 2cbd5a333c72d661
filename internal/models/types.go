package models

import (
	"time"
)

// GenerateRequest is the payload posted by the site.
type GenerateRequest struct {
	Goal           string `json:"goal"`
	Excuse         string `json:"excuse"`
	IsPresetExcuse bool   `json:"isPresetExcuse"`
}

// GenerateResult is a generated affirmation and its call-to-action phrase.
type GenerateResult struct {
	Response string `json:"response"`
	CTA      string `json:"cta"`
}

// GenerateResponse is the success envelope returned to the client.
type GenerateResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response"`
	CTA      string `json:"cta"`
}

// ErrorResponse is the failure envelope returned to the client.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// HealthResponse is the static health-check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// CacheEntry is a cached generation keyed by the normalized inputs.
type CacheEntry struct {
	Response  string    `json:"response"`
	CTA       string    `json:"cta"`
	CreatedAt time.Time `json:"created_at"`
}

// Message represents a chat message sent to the upstream model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
