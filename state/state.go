// Package state holds the conversation snapshot that flows between turns.
// Handlers never mutate a live snapshot: the engine clones the state at the
// start of a turn and persists the clone only when the whole turn succeeds.
package state

import (
	"time"

	"github.com/tbxark/fieldagent/errx"
)

// Position marks a resumable point in the conversation graph, saved when the
// user diverts into Q&A.
type Position struct {
	Node          string `json:"node"`
	ExpectedField string `json:"expected_field,omitempty"`
}

// QAExchange is one question/answer pair recorded during a Q&A diversion.
type QAExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Conversation is the full per-session state.
type Conversation struct {
	SessionID string `json:"session_id"`
	AgentID   string `json:"agent_id"`

	Collected     map[string]string `json:"collected_fields"`
	Missing       []string          `json:"missing_fields"`
	ExpectedField string            `json:"expected_field,omitempty"`

	AwaitingConfirmation bool   `json:"awaiting_confirmation,omitempty"`
	ConfirmationAttempts int    `json:"confirmation_attempts,omitempty"`
	ModificationRequest  string `json:"modification_request,omitempty"`

	QAActive      bool         `json:"qa_active,omitempty"`
	SavedPosition *Position    `json:"saved_position,omitempty"`
	QAHistory     []QAExchange `json:"qa_history,omitempty"`

	ValidationErrors map[string]string `json:"validation_errors,omitempty"`
	RetryCount       int               `json:"retry_count,omitempty"`

	OptionalMode bool            `json:"optional_mode,omitempty"`
	Declined     map[string]bool `json:"declined_fields"`

	IterativeField string   `json:"iterative_field,omitempty"`
	Items          []string `json:"collected_items,omitempty"`

	VoiceMode bool              `json:"voice_mode,omitempty"`
	FirstTurn bool              `json:"first_turn"`
	Complete  bool              `json:"is_complete,omitempty"`
	Cancelled bool              `json:"cancelled,omitempty"`
	Result    map[string]string `json:"result_data,omitempty"`

	Turn      int       `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns the initial state for a fresh session.
func New(sessionID, agentID string) *Conversation {
	now := time.Now().UTC()
	return &Conversation{
		SessionID: sessionID,
		AgentID:   agentID,
		Collected: make(map[string]string),
		Declined:  make(map[string]bool),
		FirstTurn: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Maps and slices are never shared with the
// receiver.
func (c *Conversation) Clone() *Conversation {
	cp := *c
	cp.Collected = copyMap(c.Collected)
	cp.Missing = append([]string(nil), c.Missing...)
	cp.QAHistory = append([]QAExchange(nil), c.QAHistory...)
	cp.Items = append([]string(nil), c.Items...)
	cp.ValidationErrors = copyMap(c.ValidationErrors)
	cp.Result = copyMap(c.Result)
	if c.Declined != nil {
		cp.Declined = make(map[string]bool, len(c.Declined))
		for k, v := range c.Declined {
			cp.Declined[k] = v
		}
	}
	if c.SavedPosition != nil {
		pos := *c.SavedPosition
		cp.SavedPosition = &pos
	}
	return &cp
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Commit stores a validated field value and resets the per-field failure
// bookkeeping.
func (c *Conversation) Commit(field, value string) {
	if c.Collected == nil {
		c.Collected = make(map[string]string)
	}
	c.Collected[field] = value
	c.RetryCount = 0
	delete(c.ValidationErrors, field)
}

// SetValidationError records why the field's last value was rejected.
func (c *Conversation) SetValidationError(field, message string) {
	if c.ValidationErrors == nil {
		c.ValidationErrors = make(map[string]string)
	}
	c.ValidationErrors[field] = message
}

// Decline marks an optional field as permanently skipped.
func (c *Conversation) Decline(field string) {
	if c.Declined == nil {
		c.Declined = make(map[string]bool)
	}
	c.Declined[field] = true
	c.RetryCount = 0
}

// EnterQA records the resume position and switches into Q&A mode.
func (c *Conversation) EnterQA(node string) {
	c.SavedPosition = &Position{Node: node, ExpectedField: c.ExpectedField}
	c.QAActive = true
}

// LeaveQA clears Q&A mode and returns the saved position. It is an
// invariant violation to leave Q&A that was never entered.
func (c *Conversation) LeaveQA() (Position, error) {
	if !c.QAActive || c.SavedPosition == nil {
		return Position{}, errx.New(errx.KindInvariant, "leaving qa mode without a saved position")
	}
	pos := *c.SavedPosition
	c.QAActive = false
	c.SavedPosition = nil
	return pos, nil
}

// Validate checks the cross-field invariants. The engine calls it before
// every checkpoint write.
func (c *Conversation) Validate() error {
	if c.SessionID == "" || c.AgentID == "" {
		return errx.New(errx.KindInvariant, "state missing session or agent id")
	}
	if c.QAActive && c.SavedPosition == nil {
		return errx.New(errx.KindInvariant, "qa mode active without a saved position")
	}
	if !c.QAActive && c.SavedPosition != nil {
		return errx.New(errx.KindInvariant, "saved position present outside qa mode")
	}
	if c.QAActive && c.AwaitingConfirmation {
		return errx.New(errx.KindInvariant, "qa mode and confirmation cannot both be active")
	}
	if (c.Complete || c.Cancelled) && (c.ExpectedField != "" || c.AwaitingConfirmation || c.QAActive) {
		return errx.New(errx.KindInvariant, "terminal state still expects input")
	}
	if c.ExpectedField != "" {
		if _, ok := c.Collected[c.ExpectedField]; ok {
			return errx.Newf(errx.KindInvariant, "expected field %q already collected", c.ExpectedField)
		}
	}
	for _, name := range c.Missing {
		if _, ok := c.Collected[name]; ok {
			return errx.Newf(errx.KindInvariant, "field %q both collected and missing", name)
		}
	}
	if c.RetryCount < 0 || c.ConfirmationAttempts < 0 {
		return errx.New(errx.KindInvariant, "negative attempt counter")
	}
	return nil
}

