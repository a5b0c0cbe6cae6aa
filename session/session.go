// Package session ties the engine to persistence. It owns session ids,
// loads and saves checkpoints around every turn, and records the transcript
// so a session survives a process restart between any two messages.
package session

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbxark/fieldagent/checkpoint"
	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/engine"
	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/storage"
)

// Service runs sessions end to end. Turns on the same session are
// serialized; turns on different sessions run concurrently.
type Service struct {
	engine      *engine.Engine
	definitions *definition.Registry
	checkpoints checkpoint.Store
	store       *storage.Store
	logger      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Options wires the service. Store may be nil to skip transcript and
// completion persistence.
type Options struct {
	Engine      *engine.Engine
	Definitions *definition.Registry
	Checkpoints checkpoint.Store
	Store       *storage.Store
	Logger      zerolog.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Engine == nil {
		return nil, errx.New(errx.KindInvariant, "session service needs an engine")
	}
	if opts.Definitions == nil {
		return nil, errx.New(errx.KindInvariant, "session service needs a definition registry")
	}
	if opts.Checkpoints == nil {
		opts.Checkpoints = checkpoint.NewMemoryStore()
	}
	return &Service{
		engine:      opts.Engine,
		definitions: opts.Definitions,
		checkpoints: opts.Checkpoints,
		store:       opts.Store,
		logger:      opts.Logger,
		locks:       make(map[string]*sync.Mutex),
	}, nil
}

// StartResult is the response to opening a session.
type StartResult struct {
	SessionID string
	Reply     string
}

// Start opens a new session against the named agent and returns the
// greeting turn.
func (s *Service) Start(ctx context.Context, agentID string, voiceMode bool) (*StartResult, error) {
	def, err := s.definitions.Get(agentID)
	if err != nil {
		return nil, err
	}
	sessionID := uuid.NewString()
	result, err := s.engine.Start(ctx, def, sessionID, voiceMode)
	if err != nil {
		return nil, err
	}
	if err := s.checkpoints.Save(ctx, result.State); err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.store.CreateSession(ctx, sessionID, agentID); err != nil {
			return nil, err
		}
		if err := s.store.AppendMessage(ctx, sessionID, storage.RoleAssistant, result.Reply, 0); err != nil {
			return nil, err
		}
	}
	s.logger.Info().
		Str("session", sessionID).
		Str("agent", agentID).
		Msg("session started")
	return &StartResult{SessionID: sessionID, Reply: result.Reply}, nil
}

// MessageResult is the response to one user message.
type MessageResult struct {
	Reply string
	// Progress is collected required fields over required as a percentage.
	Progress     float64
	Completed    bool
	Cancelled    bool
	ActionResult string
}

// Message runs one turn. The checkpoint is only replaced after the turn
// fully succeeds, so a failed turn can simply be retried.
func (s *Service) Message(ctx context.Context, sessionID, message string) (*MessageResult, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	def, err := s.definitions.Get(conv.AgentID)
	if err != nil {
		return nil, err
	}
	result, err := s.engine.Turn(ctx, def, conv, message)
	if err != nil {
		return nil, err
	}
	if err := s.checkpoints.Save(ctx, result.State); err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.record(ctx, def, message, result); err != nil {
			return nil, err
		}
	}
	return &MessageResult{
		Reply:        result.Reply,
		Progress:     def.Progress(result.State.Collected),
		Completed:    result.Completed,
		Cancelled:    result.Cancelled,
		ActionResult: result.ActionResult,
	}, nil
}

func (s *Service) record(ctx context.Context, def *definition.AgentDefinition, message string, result *engine.TurnResult) error {
	conv := result.State
	if err := s.store.AppendMessage(ctx, conv.SessionID, storage.RoleUser, message, conv.Turn); err != nil {
		return err
	}
	if err := s.store.AppendMessage(ctx, conv.SessionID, storage.RoleAssistant, result.Reply, conv.Turn); err != nil {
		return err
	}
	switch {
	case result.Completed:
		fields, err := sonic.MarshalString(conv.Result)
		if err != nil {
			return err
		}
		if err := s.store.RecordCompletion(ctx, &storage.CompletionRecord{
			SessionID: conv.SessionID,
			AgentID:   def.ID,
			Fields:    fields,
			Action:    def.Completion.Action,
			Result:    result.ActionResult,
		}); err != nil {
			return err
		}
		return s.store.SetSessionStatus(ctx, conv.SessionID, storage.SessionCompleted)
	case result.Cancelled:
		return s.store.SetSessionStatus(ctx, conv.SessionID, storage.SessionCancelled)
	default:
		return nil
	}
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	SessionID string
	AgentID   string
	Collected map[string]string
	Missing   []string
	Expected  string
	// Progress is collected required fields over required as a percentage.
	Progress  float64
	Turn      int
	Complete  bool
	Cancelled bool
}

// Status reports where a session currently stands.
func (s *Service) Status(ctx context.Context, sessionID string) (*Status, error) {
	conv, err := s.checkpoints.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	def, err := s.definitions.Get(conv.AgentID)
	if err != nil {
		return nil, err
	}
	collected := make(map[string]string, len(conv.Collected))
	for k, v := range conv.Collected {
		collected[k] = v
	}
	return &Status{
		SessionID: conv.SessionID,
		AgentID:   conv.AgentID,
		Collected: collected,
		Missing:   def.MissingRequired(conv.Collected),
		Expected:  conv.ExpectedField,
		Progress:  def.Progress(conv.Collected),
		Turn:      conv.Turn,
		Complete:  conv.Complete,
		Cancelled: conv.Cancelled,
	}, nil
}

// History returns the full transcript of a session, oldest first. Without
// a transcript store the listing is empty, not an error: transcripts are an
// audit log, never part of the conversation's working state.
func (s *Service) History(ctx context.Context, sessionID string) ([]storage.MessageRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.History(ctx, sessionID)
}

// Completions returns the completed collections for an agent, newest first.
// Empty without a transcript store, like History.
func (s *Service) Completions(ctx context.Context, agentID string) ([]storage.CompletionRecord, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.Completions(ctx, agentID)
}

// Drop removes a session's checkpoint. The transcript, if any, stays.
func (s *Service) Drop(ctx context.Context, sessionID string) error {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()
	return s.checkpoints.Delete(ctx, sessionID)
}

func (s *Service) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}
