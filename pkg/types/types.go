package types

import (
	"encoding/json"
	"time"
)

// Participant roles as established by the external identity provider.
const (
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// Prompt types supported by the composer.
const (
	PromptTypeText  = "TEXT"
	PromptTypeMC    = "MC"
	PromptTypeScale = "SCALE"
)

// Participant sub-states within a room. The client mirrors these exactly.
const (
	StatusJoined     = "JOINED"
	StatusAnswering  = "ANSWERING"
	StatusSubmitted  = "SUBMITTED"
	StatusDiscussing = "DISCUSSING"
)

// Identity is the authenticated identity bound to a connection before any
// room event. The email doubles as the stable user ID across reconnects.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Prompt is one broadcast instance of a question. UseID is minted per
// broadcast; submissions and distributions are scoped to exactly one UseID.
type Prompt struct {
	Content string   `json:"content"`
	Type    string   `json:"type"`
	Options []string `json:"options,omitempty"`
	UseID   string   `json:"promptUseId"`
}

// Submission is one participant's response to the current prompt use.
// At most one submission per (author, prompt use); resubmission overwrites.
type Submission struct {
	AuthorEmail string    `json:"authorEmail"`
	PromptUseID string    `json:"promptUseId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// DistributionEntry assigns one author's submission to a recipient
// connection. The author is never the recipient.
type DistributionEntry struct {
	AuthorEmail     string `json:"authorEmail"`
	Content         string `json:"content"`
	RecipientConnID string `json:"recipientConnId"`
}

// SavedPrompt is a reusable prompt bank entry, persisted per teacher.
type SavedPrompt struct {
	ID           string    `json:"id"`
	TeacherEmail string    `json:"-"`
	Content      string    `json:"content"`
	Type         string    `json:"type"`
	Options      []string  `json:"options,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Envelope is the inbound wire frame: an event name plus a raw payload
// decoded by the dispatcher according to the event.
type Envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event is the outbound wire frame.
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}
