package backend

import "fmt"

// Message is one turn of a chat conversation as the backend expects it.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ChatRequest is the payload for the chat reply stream.
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
	Locale   string    `json:"locale,omitempty"`
}

// BoardRequest is the payload for the multi-advisor deliberation stream.
// Advisors is optional; the backend falls back to the user's configured
// board when it is empty.
type BoardRequest struct {
	Question string   `json:"question"`
	Advisors []string `json:"advisors,omitempty"`
	Locale   string   `json:"locale,omitempty"`
}

// StatusError is returned when the backend rejects the stream request
// before any bytes were streamed.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}
