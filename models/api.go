package models

import "time"

// APIError is the wire shape of an error response
type APIError struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AskQuestionRequest is the request body for posting a question to a session
type AskQuestionRequest struct {
	Question string `json:"question"`
}

// SessionResponse describes a newly created session
type SessionResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse is the full transcript of a session
type HistoryResponse struct {
	SessionID string             `json:"session_id"`
	Turns     []ConversationTurn `json:"turns"`
}

// RenderedSchema is the schema rendered at one prompt fidelity
type RenderedSchema struct {
	Fidelity string `json:"fidelity"`
	Rendered string `json:"rendered"`
}

// SuggestedQuestionsResponse carries the curated starter questions
type SuggestedQuestionsResponse struct {
	Questions []string `json:"questions"`
}
