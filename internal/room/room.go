// Package room implements the per-room state machine: membership, prompt
// lifecycle, submission collection, and the distribution bookkeeping that
// internal/swap computes over.
//
// Every mutating method takes the room mutex, applies the transition
// atomically, and returns the deliveries to fan out. Callers send deliveries
// after the method returns, so no event is ever written while the lock is
// held and no partial state is ever observed.
package room

import (
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"thoughtswap/internal/swap"
	"thoughtswap/pkg/types"
)

// Participant is one member of a room. ConnID changes on every reconnect;
// Email is the stable identity that authorship and reconnection key on.
type Participant struct {
	ConnID    string
	Email     string
	Name      string
	Role      string
	Status    string
	Connected bool
	JoinedAt  time.Time
}

// Delivery is one targeted event produced by a room transition.
type Delivery struct {
	ConnID string
	Event  types.Event
}

// Room holds all live state for one session. All fields are guarded by mu.
type Room struct {
	mu sync.Mutex

	joinCode      string
	teacherEmail  string
	teacherConnID string // empty while the teacher is disconnected

	participants map[string]*Participant // connID -> participant
	byEmail      map[string]*Participant

	prompt       *types.Prompt
	submissions  map[string]*types.Submission        // author email -> submission
	distribution map[string]*types.DistributionEntry // recipient connID -> entry

	ended      bool
	emptySince time.Time
	createdAt  time.Time

	rng *rand.Rand
}

// New creates an empty room. The rng drives the distribution engine and is
// only ever used under the room lock.
func New(joinCode string, rng *rand.Rand) *Room {
	now := time.Now()
	return &Room{
		joinCode:     joinCode,
		participants: make(map[string]*Participant),
		byEmail:      make(map[string]*Participant),
		submissions:  make(map[string]*types.Submission),
		distribution: make(map[string]*types.DistributionEntry),
		emptySince:   now,
		createdAt:    now,
		rng:          rng,
	}
}

// JoinCode returns the room's join code.
func (r *Room) JoinCode() string {
	return r.joinCode
}

// Ended reports whether the room reached its terminal state.
func (r *Room) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// ConnectedCount returns the number of currently connected participants.
func (r *Room) ConnectedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectedCountLocked()
}

// IdleSince returns when the room last lost its final connected
// participant; ok is false while anyone is connected.
func (r *Room) IdleSince() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connectedCountLocked() > 0 {
		return time.Time{}, false
	}
	return r.emptySince, true
}

// Join registers a connection under the given identity. A previously seen
// email is a reconnect: the connection is rebound and the participant's
// current view is replayed instead of treating it as a fresh join.
func (r *Room) Join(connID string, id types.Identity) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return nil, types.ErrSessionEnded
	}

	if existing, ok := r.byEmail[id.Email]; ok {
		return r.rebindLocked(existing, connID, id), nil
	}

	if id.Role == types.RoleTeacher {
		if r.teacherEmail != "" && r.teacherEmail != id.Email {
			return nil, types.ErrForbidden
		}
		r.teacherEmail = id.Email
		r.teacherConnID = connID
	}

	p := &Participant{
		ConnID:    connID,
		Email:     id.Email,
		Name:      id.Name,
		Role:      id.Role,
		Status:    types.StatusJoined,
		Connected: true,
		JoinedAt:  time.Now(),
	}
	// A student arriving mid-prompt still gets to answer.
	if p.Role == types.RoleStudent && r.prompt != nil {
		p.Status = types.StatusAnswering
	}
	r.participants[connID] = p
	r.byEmail[id.Email] = p
	r.emptySince = time.Time{}

	deliveries := []Delivery{{
		ConnID: connID,
		Event:  types.Event{Event: types.EventJoinSuccess, Payload: types.JoinSuccessPayload{JoinCode: r.joinCode}},
	}}
	if p.Status == types.StatusAnswering {
		deliveries = append(deliveries, Delivery{
			ConnID: connID,
			Event: types.Event{Event: types.EventNewPrompt, Payload: types.NewPromptPayload{
				Content:     r.prompt.Content,
				PromptUseID: r.prompt.UseID,
				Type:        r.prompt.Type,
				Options:     r.prompt.Options,
			}},
		})
	}
	return append(deliveries, r.rosterLocked()...), nil
}

// rebindLocked handles the reconnect path: swap the connection ID, re-key
// any distribution entry addressed to the old connection, and project the
// participant's current sub-state. Purely a state projection; repeated
// reconnects replay the same view without re-running any mutation.
func (r *Room) rebindLocked(p *Participant, connID string, id types.Identity) []Delivery {
	oldConnID := p.ConnID
	delete(r.participants, oldConnID)
	p.ConnID = connID
	p.Name = id.Name
	p.Connected = true
	r.participants[connID] = p

	if entry, ok := r.distribution[oldConnID]; ok {
		delete(r.distribution, oldConnID)
		entry.RecipientConnID = connID
		r.distribution[connID] = entry
	}
	if p.Role == types.RoleTeacher {
		r.teacherConnID = connID
	}
	r.emptySince = time.Time{}

	deliveries := []Delivery{{
		ConnID: connID,
		Event:  types.Event{Event: types.EventJoinSuccess, Payload: types.JoinSuccessPayload{JoinCode: r.joinCode}},
	}}
	if p.Role == types.RoleTeacher {
		deliveries = append(deliveries, r.rosterLocked()...)
		deliveries = append(deliveries, r.distributionUpdateLocked()...)
		return deliveries
	}

	restore := types.RestoreStatePayload{Status: p.Status}
	if r.prompt != nil {
		restore.Prompt = r.prompt.Content
		restore.PromptUseID = r.prompt.UseID
		restore.Type = r.prompt.Type
		restore.Options = r.prompt.Options
	}
	deliveries = append(deliveries, Delivery{
		ConnID: connID,
		Event:  types.Event{Event: types.EventRestoreState, Payload: restore},
	})
	if p.Status == types.StatusDiscussing {
		if entry, ok := r.distribution[connID]; ok {
			deliveries = append(deliveries, Delivery{
				ConnID: connID,
				Event:  types.Event{Event: types.EventReceiveSwap, Payload: types.ReceiveSwapPayload{Content: entry.Content}},
			})
		}
	}
	return append(deliveries, r.rosterLocked()...)
}

// Disconnect marks a connection as gone without removing the participant,
// so submission authorship and the restore view survive a reconnect.
func (r *Room) Disconnect(connID string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connID]
	if !ok {
		return nil
	}
	p.Connected = false
	if connID == r.teacherConnID {
		r.teacherConnID = ""
	}
	if r.connectedCountLocked() == 0 {
		r.emptySince = time.Now()
	}
	return r.rosterLocked()
}

// Leave removes a participant from the live set. Their submission stays in
// the pool; their received entry, if any, is dropped.
func (r *Room) Leave(connID string) []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connID]
	if !ok {
		return nil
	}
	delete(r.participants, connID)
	delete(r.byEmail, p.Email)
	delete(r.distribution, connID)
	if connID == r.teacherConnID {
		r.teacherConnID = ""
	}
	if r.connectedCountLocked() == 0 {
		r.emptySince = time.Now()
	}
	return r.rosterLocked()
}

// BroadcastPrompt mints a new prompt use, clears all prior submissions and
// distribution state, and moves every student to ANSWERING. Teacher only.
func (r *Room) BroadcastPrompt(connID string, prompt types.Prompt) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireTeacherLocked(connID); err != nil {
		return nil, err
	}
	if err := prompt.Validate(); err != nil {
		return nil, err
	}

	prompt.UseID = uuid.New().String()
	r.prompt = &prompt
	r.submissions = make(map[string]*types.Submission)
	r.distribution = make(map[string]*types.DistributionEntry)

	var deliveries []Delivery
	for _, p := range r.participants {
		if p.Role != types.RoleStudent {
			continue
		}
		p.Status = types.StatusAnswering
		if p.Connected {
			deliveries = append(deliveries, Delivery{
				ConnID: p.ConnID,
				Event: types.Event{Event: types.EventNewPrompt, Payload: types.NewPromptPayload{
					Content:     prompt.Content,
					PromptUseID: prompt.UseID,
					Type:        prompt.Type,
					Options:     prompt.Options,
				}},
			})
		}
	}
	log.Printf("Prompt broadcast: room=%s use=%s type=%s students=%d",
		r.joinCode, prompt.UseID, prompt.Type, r.studentCountLocked())
	return append(deliveries, r.rosterLocked()...), nil
}

// Submit records a student's response for the current prompt use.
// Resubmission before the swap overwrites; a stale promptUseId is rejected
// without mutating anything.
func (r *Room) Submit(connID, promptUseID, content string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connID]
	if !ok {
		return nil, types.ErrNotParticipant
	}
	if p.Role != types.RoleStudent {
		return nil, types.ErrForbidden
	}
	if r.prompt == nil || promptUseID != r.prompt.UseID {
		return nil, types.ErrStalePrompt
	}
	if p.Status != types.StatusAnswering && p.Status != types.StatusSubmitted {
		return nil, types.ErrInvalidState
	}

	r.submissions[p.Email] = &types.Submission{
		AuthorEmail: p.Email,
		PromptUseID: promptUseID,
		Content:     content,
		CreatedAt:   time.Now(),
	}
	p.Status = types.StatusSubmitted

	if r.teacherConnID == "" {
		return nil, nil
	}
	return []Delivery{{
		ConnID: r.teacherConnID,
		Event: types.Event{Event: types.EventNewSubmission, Payload: types.NewSubmissionPayload{
			Count: len(r.submissions),
			Total: r.studentCountLocked(),
		}},
	}}, nil
}

// Distribute computes the derangement over the current submission pool and
// records it on the room. Teacher only; needs at least 2 distinct authors.
func (r *Room) Distribute(connID string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireTeacherLocked(connID); err != nil {
		return nil, err
	}
	if r.prompt == nil {
		return nil, types.ErrInvalidState
	}

	// An author may have left since submitting; only authors still in the
	// room can receive, so the pool is restricted to them.
	authors := lo.Filter(lo.Keys(r.submissions), func(email string, _ int) bool {
		_, ok := r.byEmail[email]
		return ok
	})
	if len(authors) < 2 {
		return nil, types.ErrInsufficientSubmissions
	}

	mapping, err := swap.Derange(authors, r.rng)
	if err != nil {
		return nil, types.ErrInsufficientSubmissions
	}

	var deliveries []Delivery
	r.distribution = make(map[string]*types.DistributionEntry)
	for author, recipientEmail := range mapping {
		recipient := r.byEmail[recipientEmail]
		entry := &types.DistributionEntry{
			AuthorEmail:     author,
			Content:         r.submissions[author].Content,
			RecipientConnID: recipient.ConnID,
		}
		r.distribution[recipient.ConnID] = entry
		recipient.Status = types.StatusDiscussing
		if recipient.Connected {
			deliveries = append(deliveries, Delivery{
				ConnID: recipient.ConnID,
				Event:  types.Event{Event: types.EventReceiveSwap, Payload: types.ReceiveSwapPayload{Content: entry.Content}},
			})
		}
	}
	log.Printf("Thoughts distributed: room=%s use=%s pool=%d", r.joinCode, r.prompt.UseID, len(mapping))
	return append(deliveries, r.distributionUpdateLocked()...), nil
}

// Reassign swaps the given recipient's assigned thought with another
// recipient's, teacher-triggered. The transposition is checked to keep the
// mapping a derangement before it is applied.
func (r *Room) Reassign(connID, recipientConnID string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireTeacherLocked(connID); err != nil {
		return nil, err
	}
	return r.swapLocked(recipientConnID, "")
}

// RequestDifferent is the student self-service re-swap: the same
// transposition as Reassign, initiated by the recipient, preferring not to
// hand back the content just relinquished.
func (r *Room) RequestDifferent(connID, currentContent string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[connID]
	if !ok {
		return nil, types.ErrNotParticipant
	}
	if p.Role != types.RoleStudent || p.Status != types.StatusDiscussing {
		return nil, types.ErrInvalidState
	}
	return r.swapLocked(connID, currentContent)
}

// swapLocked performs the transposition for both Reassign and
// RequestDifferent. The distribution map is only touched once a valid
// partner is found, so a failed swap leaves state untouched.
func (r *Room) swapLocked(recipientConnID, avoidContent string) ([]Delivery, error) {
	if _, ok := r.distribution[recipientConnID]; !ok {
		return nil, types.ErrInvalidState
	}

	connIDs := lo.Keys(r.distribution)
	sort.Strings(connIDs)

	pairs := make([]swap.Pair, len(connIDs))
	target := -1
	for i, id := range connIDs {
		entry := r.distribution[id]
		pairs[i] = swap.Pair{
			Recipient: r.participants[id].Email,
			Author:    entry.AuthorEmail,
			Content:   entry.Content,
		}
		if id == recipientConnID {
			target = i
		}
	}

	partner, err := swap.FindSwapPartner(pairs, target, avoidContent, r.rng)
	if err != nil {
		return nil, types.ErrNoEligibleSwap
	}
	swap.Transpose(pairs, target, partner)

	var deliveries []Delivery
	for _, i := range []int{target, partner} {
		id := connIDs[i]
		entry := r.distribution[id]
		entry.AuthorEmail = pairs[i].Author
		entry.Content = pairs[i].Content
		if p := r.participants[id]; p.Connected {
			deliveries = append(deliveries, Delivery{
				ConnID: id,
				Event:  types.Event{Event: types.EventReceiveSwap, Payload: types.ReceiveSwapPayload{Content: entry.Content}},
			})
		}
	}
	return append(deliveries, r.distributionUpdateLocked()...), nil
}

// DeleteSubmission removes a response from the pool. Recipients currently
// holding it are reset to ANSWERING and notified; the author is reset so
// they can resubmit; all other entries are left untouched.
func (r *Room) DeleteSubmission(connID, authorEmail string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireTeacherLocked(connID); err != nil {
		return nil, err
	}
	if _, ok := r.submissions[authorEmail]; !ok {
		return nil, types.ErrInvalidState
	}
	delete(r.submissions, authorEmail)

	var deliveries []Delivery
	hadDistribution := len(r.distribution) > 0
	for recipientConnID, entry := range r.distribution {
		if entry.AuthorEmail != authorEmail {
			continue
		}
		delete(r.distribution, recipientConnID)
		recipient := r.participants[recipientConnID]
		recipient.Status = types.StatusAnswering
		if recipient.Connected {
			deliveries = append(deliveries, Delivery{
				ConnID: recipientConnID,
				Event: types.Event{Event: types.EventThoughtDeleted, Payload: types.ThoughtDeletedPayload{
					Message: "The response you received was removed by the teacher. Please wait for a new one.",
				}},
			})
		}
	}

	if author, ok := r.byEmail[authorEmail]; ok {
		author.Status = types.StatusAnswering
		if author.Connected {
			deliveries = append(deliveries, Delivery{
				ConnID: author.ConnID,
				Event: types.Event{Event: types.EventThoughtDeleted, Payload: types.ThoughtDeletedPayload{
					Message: "Your response was removed by the teacher. You may submit a new one.",
				}},
			})
		}
	}

	if r.teacherConnID != "" {
		deliveries = append(deliveries, Delivery{
			ConnID: r.teacherConnID,
			Event: types.Event{Event: types.EventNewSubmission, Payload: types.NewSubmissionPayload{
				Count: len(r.submissions),
				Total: r.studentCountLocked(),
			}},
		})
	}
	if hadDistribution {
		deliveries = append(deliveries, r.distributionUpdateLocked()...)
	}
	return deliveries, nil
}

// Reset discards the prompt, submissions, and distribution, returning every
// participant to the waiting state. Teacher only.
func (r *Room) Reset(connID string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireTeacherLocked(connID); err != nil {
		return nil, err
	}
	r.prompt = nil
	r.submissions = make(map[string]*types.Submission)
	r.distribution = make(map[string]*types.DistributionEntry)

	var deliveries []Delivery
	for _, p := range r.participants {
		p.Status = types.StatusJoined
		if p.Role == types.RoleStudent && p.Connected {
			deliveries = append(deliveries, Delivery{
				ConnID: p.ConnID,
				Event:  types.Event{Event: types.EventResetClientState},
			})
		}
	}
	return append(deliveries, r.rosterLocked()...), nil
}

// End moves the room to its terminal state and notifies everyone still
// connected. Idempotent: ending an ended room produces nothing.
func (r *Room) End(connID, surveyLink string) ([]Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return nil, nil
	}
	if err := r.requireTeacherLocked(connID); err != nil {
		return nil, err
	}
	return r.endLocked(surveyLink), nil
}

// Expire ends an idle room without a teacher check; used by the registry's
// garbage collection. The liveness recheck happens under the room lock: a
// participant who reconnected after the registry's idle scan keeps the room
// alive, reported by the second return value.
func (r *Room) Expire() ([]Delivery, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ended {
		return nil, true
	}
	if r.connectedCountLocked() > 0 {
		return nil, false
	}
	return r.endLocked(""), true
}

func (r *Room) endLocked(surveyLink string) []Delivery {
	r.ended = true
	var deliveries []Delivery
	for _, p := range r.participants {
		if !p.Connected {
			continue
		}
		deliveries = append(deliveries, Delivery{
			ConnID: p.ConnID,
			Event:  types.Event{Event: types.EventSessionEnded, Payload: types.SessionEndedPayload{SurveyLink: surveyLink}},
		})
	}
	log.Printf("Session ended: room=%s participants=%d", r.joinCode, len(r.participants))
	return deliveries
}

func (r *Room) requireTeacherLocked(connID string) error {
	if r.ended {
		return types.ErrRoomEnded
	}
	if connID == "" || connID != r.teacherConnID {
		return types.ErrForbidden
	}
	return nil
}

func (r *Room) connectedCountLocked() int {
	return len(lo.Filter(lo.Values(r.participants), func(p *Participant, _ int) bool {
		return p.Connected
	}))
}

func (r *Room) studentCountLocked() int {
	return len(lo.Filter(lo.Values(r.participants), func(p *Participant, _ int) bool {
		return p.Role == types.RoleStudent
	}))
}

// rosterLocked builds the teacher's participant list update, sorted by join
// time for a stable dashboard ordering.
func (r *Room) rosterLocked() []Delivery {
	if r.teacherConnID == "" {
		return nil
	}
	participants := lo.Values(r.participants)
	sort.Slice(participants, func(i, j int) bool {
		return participants[i].JoinedAt.Before(participants[j].JoinedAt)
	})
	entries := lo.Map(participants, func(p *Participant, _ int) types.RosterEntry {
		return types.RosterEntry{
			Name:      p.Name,
			Role:      p.Role,
			Status:    p.Status,
			Connected: p.Connected,
		}
	})
	return []Delivery{{
		ConnID: r.teacherConnID,
		Event: types.Event{Event: types.EventRoomRoster, Payload: types.RoomRosterPayload{
			JoinCode:     r.joinCode,
			Participants: entries,
		}},
	}}
}

// distributionUpdateLocked builds the teacher's distribution table. Unlike
// RECEIVE_SWAP this view carries author names: anonymity is a student-side
// projection, not a property of the stored mapping.
func (r *Room) distributionUpdateLocked() []Delivery {
	if r.teacherConnID == "" || len(r.distribution) == 0 {
		return nil
	}
	view := make(map[string]types.DistributionView, len(r.distribution))
	for recipientConnID, entry := range r.distribution {
		recipientName := ""
		if p, ok := r.participants[recipientConnID]; ok {
			recipientName = p.Name
		}
		authorName := entry.AuthorEmail
		if a, ok := r.byEmail[entry.AuthorEmail]; ok {
			authorName = a.Name
		}
		view[recipientConnID] = types.DistributionView{
			StudentName:        recipientName,
			ThoughtContent:     entry.Content,
			OriginalAuthorName: authorName,
		}
	}
	return []Delivery{{
		ConnID: r.teacherConnID,
		Event: types.Event{Event: types.EventDistributionUpdate, Payload: types.DistributionUpdatePayload{
			JoinCode:     r.joinCode,
			Distribution: view,
		}},
	}}
}
