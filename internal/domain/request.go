package domain

import (
	"encoding/json"
	"time"
)

// ChatRequest represents an inbound chat turn. The last message is the new turn.
type ChatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	SessionID *string       `json:"session_id,omitempty"`
}

// CandidateSessionID returns the requested session id, or "" when absent.
func (r *ChatRequest) CandidateSessionID() string {
	if r.SessionID == nil {
		return ""
	}
	return *r.SessionID
}

// LastMessage returns the new turn carried by the request.
func (r *ChatRequest) LastMessage() (ChatMessage, bool) {
	if len(r.Messages) == 0 {
		return ChatMessage{}, false
	}
	return r.Messages[len(r.Messages)-1], true
}

// ChatResult is the outcome of a completed turn: the backend reply fields, untouched,
// and the session they belong to.
type ChatResult struct {
	SessionID string
	Reply     map[string]json.RawMessage
}

// MarshalJSON renders the backend reply with session_id merged in.
func (r *ChatResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Reply)+1)
	for k, v := range r.Reply {
		out[k] = v
	}
	sid, err := json.Marshal(r.SessionID)
	if err != nil {
		return nil, err
	}
	out["session_id"] = sid
	return json.Marshal(out)
}

// SweepStatus reports the retention sweeper's state and its last run.
type SweepStatus struct {
	State       SweepState `json:"state"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastDeleted int64      `json:"last_deleted"`
	LastError   string     `json:"last_error,omitempty"`
}
