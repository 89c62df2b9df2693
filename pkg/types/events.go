package types

// Inbound event names. These are the engine's public contract; payload field
// names are fixed for client compatibility.
const (
	EventJoinRoom          = "JOIN_ROOM"
	EventLeaveRoom         = "LEAVE_ROOM"
	EventSubmitThought     = "SUBMIT_THOUGHT"
	EventRequestNewThought = "STUDENT_REQUEST_NEW_THOUGHT"
	EventReassign          = "TEACHER_REASSIGN_DISTRIBUTION"
	EventBroadcastPrompt   = "BROADCAST_PROMPT"
	EventDistribute        = "DISTRIBUTE_THOUGHTS"
	EventDeleteThought     = "DELETE_THOUGHT"
	EventResetPrompt       = "RESET_PROMPT"
	EventEndSession        = "END_SESSION"
)

// Outbound event names.
const (
	EventJoinSuccess        = "JOIN_SUCCESS"
	EventError              = "ERROR"
	EventRestoreState       = "RESTORE_STATE"
	EventNewPrompt          = "NEW_PROMPT"
	EventReceiveSwap        = "RECEIVE_SWAP"
	EventThoughtDeleted     = "THOUGHT_DELETED"
	EventSessionEnded       = "SESSION_ENDED"
	EventResetClientState   = "RESET_CLIENT_STATE"
	EventRoomRoster         = "ROOM_ROSTER"
	EventNewSubmission      = "NEW_SUBMISSION"
	EventDistributionUpdate = "DISTRIBUTION_UPDATE"
)

// Inbound payloads.

type JoinRoomPayload struct {
	JoinCode string `json:"joinCode"`
}

type LeaveRoomPayload struct {
	JoinCode string `json:"joinCode"`
}

type SubmitThoughtPayload struct {
	JoinCode    string `json:"joinCode"`
	Content     string `json:"content"`
	PromptUseID string `json:"promptUseId"`
}

type RequestNewThoughtPayload struct {
	JoinCode              string `json:"joinCode"`
	CurrentThoughtContent string `json:"currentThoughtContent"`
}

type ReassignPayload struct {
	JoinCode        string `json:"joinCode"`
	StudentSocketID string `json:"studentSocketId"`
}

type BroadcastPromptPayload struct {
	JoinCode string   `json:"joinCode"`
	Content  string   `json:"content"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
}

type DistributePayload struct {
	JoinCode string `json:"joinCode"`
}

type DeleteThoughtPayload struct {
	JoinCode    string `json:"joinCode"`
	AuthorEmail string `json:"authorEmail"`
}

type ResetPromptPayload struct {
	JoinCode string `json:"joinCode"`
}

type EndSessionPayload struct {
	JoinCode   string `json:"joinCode"`
	SurveyLink string `json:"surveyLink,omitempty"`
}

// Outbound payloads.

type JoinSuccessPayload struct {
	JoinCode string `json:"joinCode"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type RestoreStatePayload struct {
	Prompt      string   `json:"prompt"`
	PromptUseID string   `json:"promptUseId"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
	Status      string   `json:"status"`
}

type NewPromptPayload struct {
	Content     string   `json:"content"`
	PromptUseID string   `json:"promptUseId"`
	Type        string   `json:"type"`
	Options     []string `json:"options,omitempty"`
}

// ReceiveSwapPayload carries only the content: author identity is stripped at
// this projection boundary, not left to the UI.
type ReceiveSwapPayload struct {
	Content string `json:"content"`
}

type ThoughtDeletedPayload struct {
	Message string `json:"message"`
}

type SessionEndedPayload struct {
	SurveyLink string `json:"surveyLink,omitempty"`
}

// RosterEntry is one row of the teacher's participant list.
type RosterEntry struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	Connected bool   `json:"connected"`
}

type RoomRosterPayload struct {
	JoinCode     string        `json:"joinCode"`
	Participants []RosterEntry `json:"participants"`
}

type NewSubmissionPayload struct {
	Count int `json:"count"`
	Total int `json:"total"`
}

// DistributionView is the teacher-facing projection of one entry, keyed by
// the recipient's connection ID in DistributionUpdatePayload. The teacher
// view is intentionally not anonymized.
type DistributionView struct {
	StudentName        string `json:"studentName"`
	ThoughtContent     string `json:"thoughtContent"`
	OriginalAuthorName string `json:"originalAuthorName"`
}

type DistributionUpdatePayload struct {
	JoinCode     string                      `json:"joinCode"`
	Distribution map[string]DistributionView `json:"distribution"`
}
