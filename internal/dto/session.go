package dto

import "time"

// CreateSessionRequest represents the session creation request body
// @Description Request body for creating a quiz session
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// RenameSessionRequest represents the session rename request body
type RenameSessionRequest struct {
	Name string `json:"name"`
}

// SessionResponse represents session metadata in the API response
// @Description Quiz session information
type SessionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionListResponse represents the user's sessions
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
}
