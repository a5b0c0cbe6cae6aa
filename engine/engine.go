// Package engine runs conversation turns. A turn walks an explicit node
// graph: the router picks the entry node from the state flags, each node
// hands off through a closed transition table, and the turn ends when a
// node produces a reply. State is cloned up front and only the fully
// processed clone leaves the engine, so a failed turn has no effect.
package engine

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog"

	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/dialogue"
	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/extract"
	"github.com/tbxark/fieldagent/intent"
	"github.com/tbxark/fieldagent/patch"
	"github.com/tbxark/fieldagent/state"
	"github.com/tbxark/fieldagent/validator"
)

// maxSteps bounds node hops inside one turn. The graph has no legal cycle
// this long, so hitting it means a routing bug.
const maxSteps = 8

// ActionFunc is a registered "custom" completion action. The returned
// string is stored as the completion result.
type ActionFunc func(ctx context.Context, def *definition.AgentDefinition, collected map[string]string) (string, error)

// Options wires the engine. A nil ChatModel yields a deterministic engine
// that only uses the keyword and pattern paths, which is what most tests
// want.
type Options struct {
	ChatModel model.ToolCallingChatModel
	// ModelTimeout bounds every individual model call.
	ModelTimeout time.Duration
	// RephraseDialogue routes question text through the model for natural
	// phrasing, with the template output as fallback.
	RephraseDialogue bool
	// WebhookTimeout bounds completion webhook calls.
	WebhookTimeout time.Duration
	HTTPClient     *http.Client
	Validators     *validator.Registry
	CustomActions  map[string]ActionFunc
	Logger         zerolog.Logger
}

type Engine struct {
	validators     *validator.Registry
	extractor      extract.Extractor
	intents        intent.Classifier[intent.Intent]
	continuations  intent.Classifier[intent.Continuation]
	confirmations  intent.Classifier[intent.Confirmation]
	generator      dialogue.Generator
	answerer       *dialogue.Answerer
	patchGen       *patch.Generator
	actions        map[string]ActionFunc
	httpClient     *http.Client
	webhookTimeout time.Duration
	logger         zerolog.Logger
}

func New(opts Options) (*Engine, error) {
	e := &Engine{
		validators:     opts.Validators,
		actions:        opts.CustomActions,
		httpClient:     opts.HTTPClient,
		webhookTimeout: opts.WebhookTimeout,
		logger:         opts.Logger,
	}
	if e.validators == nil {
		e.validators = validator.NewRegistry()
	}
	if e.httpClient == nil {
		e.httpClient = http.DefaultClient
	}
	if e.webhookTimeout <= 0 {
		e.webhookTimeout = 10 * time.Second
	}

	var modelExtractor extract.Extractor
	if opts.ChatModel != nil {
		me, err := extract.NewModelExtractor(opts.ChatModel, opts.ModelTimeout)
		if err != nil {
			return nil, err
		}
		modelExtractor = me
	}
	e.extractor = extract.NewDual(extract.NewFastExtractor(), modelExtractor, opts.Logger)

	if opts.ChatModel != nil {
		intentTool, err := intent.NewToolBasedIntentClassifier(opts.ChatModel, opts.ModelTimeout)
		if err != nil {
			return nil, err
		}
		continuationTool, err := intent.NewToolBasedContinuationClassifier(opts.ChatModel, opts.ModelTimeout)
		if err != nil {
			return nil, err
		}
		confirmationTool, err := intent.NewToolBasedConfirmationClassifier(opts.ChatModel, opts.ModelTimeout)
		if err != nil {
			return nil, err
		}
		e.intents = intent.NewFailback[intent.Intent](intent.IntentAnswer, intent.LocalIntentClassifier{}, intentTool)
		e.continuations = intent.NewFailback[intent.Continuation](intent.ContinuationAnswer, intent.LocalContinuationClassifier{}, continuationTool)
		e.confirmations = intent.NewFailback[intent.Confirmation](intent.ConfirmationUnclear, intent.LocalConfirmationClassifier{}, confirmationTool)

		e.answerer = dialogue.NewAnswerer(opts.ChatModel, opts.ModelTimeout)
		patchGen, err := patch.NewGenerator(opts.ChatModel, opts.ModelTimeout)
		if err != nil {
			return nil, err
		}
		e.patchGen = patchGen
	} else {
		e.intents = intent.NewFailback[intent.Intent](intent.IntentAnswer, intent.LocalIntentClassifier{})
		e.continuations = intent.NewFailback[intent.Continuation](intent.ContinuationAnswer, intent.LocalContinuationClassifier{})
		e.confirmations = intent.NewFailback[intent.Confirmation](intent.ConfirmationUnclear, intent.LocalConfirmationClassifier{})
	}

	if opts.RephraseDialogue && opts.ChatModel != nil {
		rephraser, err := dialogue.NewToolBasedGenerator(opts.ChatModel, opts.ModelTimeout)
		if err != nil {
			return nil, err
		}
		e.generator = dialogue.NewFailback(rephraser, dialogue.LocalGenerator{})
	} else {
		e.generator = dialogue.LocalGenerator{}
	}
	return e, nil
}

// TurnResult is everything a caller needs from one processed turn.
type TurnResult struct {
	State *state.Conversation
	Reply string
	// Completed is true on the turn that finishes the collection.
	Completed bool
	Cancelled bool
	// ActionResult is the completion action's output, set with Completed.
	ActionResult string
}

// turn carries the working data of one turn between handlers.
type turn struct {
	def     *definition.AgentDefinition
	conv    *state.Conversation
	message string

	greeting      string
	prefix        string
	ackValue      string
	validationMsg string
	hint          bool

	completed    bool
	cancelled    bool
	actionResult string
}

// Start opens a session: greeting plus the first question.
func (e *Engine) Start(ctx context.Context, def *definition.AgentDefinition, sessionID string, voiceMode bool) (*TurnResult, error) {
	conv := state.New(sessionID, def.ID)
	conv.VoiceMode = voiceMode
	t := &turn{def: def, conv: conv}
	return e.run(ctx, t, NodeGreeting)
}

// Turn processes one user message against the given state. The input state
// is never mutated; the result carries the successor.
func (e *Engine) Turn(ctx context.Context, def *definition.AgentDefinition, conv *state.Conversation, message string) (*TurnResult, error) {
	if conv.Complete || conv.Cancelled {
		return nil, errx.Newf(errx.KindCompleted, "session %q is already closed", conv.SessionID)
	}
	t := &turn{def: def, conv: conv.Clone(), message: message}
	t.conv.Turn++
	return e.run(ctx, t, e.route(t.conv, message))
}

// route implements the entry priority: confirmation first, then Q&A
// continuation, then the question gate, then plain extraction.
func (e *Engine) route(conv *state.Conversation, message string) Node {
	switch {
	case conv.FirstTurn:
		return NodeGreeting
	case conv.AwaitingConfirmation:
		return NodeConfirmationResponse
	case conv.QAActive:
		return NodeContinuation
	case intent.IsCancelPhrase(message):
		return NodeIntentDetection
	case conv.ExpectedField != "" && conv.IterativeField == "" && intent.HasQuestionIndicators(message):
		return NodeIntentDetection
	default:
		return NodeFieldExtraction
	}
}

func (e *Engine) run(ctx context.Context, t *turn, start Node) (*TurnResult, error) {
	if !CanTransition(NodeEntry, start) {
		return nil, transitionErr(NodeEntry, start)
	}
	node := start
	for step := 0; step < maxSteps; step++ {
		e.logger.Debug().
			Str("session", t.conv.SessionID).
			Str("node", string(node)).
			Msg("executing node")
		next, reply, err := e.dispatch(ctx, t, node)
		if err != nil {
			return nil, err
		}
		if reply != "" {
			return e.finish(t, reply)
		}
		if !CanTransition(node, next) {
			return nil, transitionErr(node, next)
		}
		node = next
	}
	return nil, errx.Newf(errx.KindInvariant, "turn exceeded %d steps", maxSteps)
}

func (e *Engine) dispatch(ctx context.Context, t *turn, node Node) (Node, string, error) {
	switch node {
	case NodeGreeting:
		return e.handleGreeting(t)
	case NodeIntentDetection:
		return e.handleIntentDetection(ctx, t)
	case NodeAnswer:
		return e.handleAnswer(ctx, t)
	case NodeContinuation:
		return e.handleContinuation(ctx, t)
	case NodeFieldExtraction:
		return e.handleExtraction(ctx, t)
	case NodeFieldRouter:
		return e.handleFieldRouter(t)
	case NodeQuestion:
		return e.handleQuestion(ctx, t)
	case NodeConfirmationSummary:
		return e.handleConfirmationSummary(ctx, t)
	case NodeConfirmationResponse:
		return e.handleConfirmationResponse(ctx, t)
	case NodeModification:
		return e.handleModification(ctx, t)
	case NodeCompletion:
		return e.handleCompletion(ctx, t)
	case NodeCancel:
		return e.handleCancel(t)
	default:
		return "", "", errx.Newf(errx.KindInvariant, "unknown node %q", node)
	}
}

func (e *Engine) finish(t *turn, reply string) (*TurnResult, error) {
	t.conv.UpdatedAt = time.Now().UTC()
	if err := t.conv.Validate(); err != nil {
		return nil, err
	}
	return &TurnResult{
		State:        t.conv,
		Reply:        reply,
		Completed:    t.completed,
		Cancelled:    t.cancelled,
		ActionResult: t.actionResult,
	}, nil
}

// classified unwraps a failback result: unclassified falls back to the
// returned value, backend failures abort the turn.
func classified[T any](value T, err error) (T, error) {
	if err == nil || errors.Is(err, intent.ErrUnclassified) {
		return value, nil
	}
	if errx.IsKind(err, errx.KindBackend) {
		return value, err
	}
	return value, nil
}
