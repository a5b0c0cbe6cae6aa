package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/dialogue"
	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/extract"
	"github.com/tbxark/fieldagent/intent"
	"github.com/tbxark/fieldagent/patch"
	"github.com/tbxark/fieldagent/state"
)

func (e *Engine) handleGreeting(t *turn) (Node, string, error) {
	t.conv.FirstTurn = false
	t.greeting = t.def.Greeting
	if t.greeting == "" {
		t.greeting = fmt.Sprintf("Hi! I'm here to help with %s.", t.def.Name)
	}
	return NodeFieldRouter, "", nil
}

func (e *Engine) handleIntentDetection(ctx context.Context, t *turn) (Node, string, error) {
	label, err := classified(e.intents.Classify(ctx, intent.Request{
		Message:       t.message,
		ExpectedField: t.conv.ExpectedField,
		FieldNames:    fieldNames(t.def),
	}))
	if err != nil {
		return "", "", err
	}
	switch label {
	case intent.IntentQuestion:
		return NodeAnswer, "", nil
	case intent.IntentCancel:
		return NodeCancel, "", nil
	default:
		return NodeFieldExtraction, "", nil
	}
}

func (e *Engine) handleAnswer(ctx context.Context, t *turn) (Node, string, error) {
	if !t.conv.QAActive {
		t.conv.EnterQA(string(NodeFieldExtraction))
	}
	answer, err := e.answerQuestion(ctx, t)
	if err != nil {
		return "", "", err
	}
	t.conv.QAHistory = append(t.conv.QAHistory, state.QAExchange{Question: t.message, Answer: answer})
	return "", answer, nil
}

func (e *Engine) answerQuestion(ctx context.Context, t *turn) (string, error) {
	if e.answerer == nil {
		return fmt.Sprintf("I can only help with %s here. Do you have more questions, or shall we continue?", t.def.Name), nil
	}
	return e.answerer.Answer(ctx, t.def, t.conv.QAHistory, t.message)
}

func (e *Engine) handleContinuation(ctx context.Context, t *turn) (Node, string, error) {
	label, err := classified(e.continuations.Classify(ctx, intent.Request{
		Message:       t.message,
		ExpectedField: savedExpectedField(t.conv),
		FieldNames:    fieldNames(t.def),
	}))
	if err != nil {
		return "", "", err
	}
	if label == intent.ContinuationAskMore {
		return NodeAnswer, "", nil
	}
	pos, err := t.conv.LeaveQA()
	if err != nil {
		return "", "", err
	}
	t.conv.ExpectedField = pos.ExpectedField
	if label == intent.ContinuationResume {
		t.prefix = "Great, let's pick up where we left off."
		return NodeQuestion, "", nil
	}
	return NodeFieldExtraction, "", nil
}

func (e *Engine) handleExtraction(ctx context.Context, t *turn) (Node, string, error) {
	conv, def := t.conv, t.def

	if conv.IterativeField != "" {
		return e.handleIterativeItem(t)
	}

	expected, _ := def.Field(conv.ExpectedField)
	if expected != nil && (expected.Optional || conv.OptionalMode) {
		if extract.DetectBypass(t.message) == extract.BypassYes {
			conv.Decline(expected.Name)
			conv.ExpectedField = ""
			return NodeFieldRouter, "", nil
		}
	}

	candidates, err := e.extractor.Extract(ctx, extract.Request{
		Message:          t.message,
		Expected:         expected,
		Missing:          e.missingSpecs(t),
		ValidationErrors: conv.ValidationErrors,
	})
	if err != nil {
		return "", "", err
	}

	committed := false
	var ambiguity error
	for _, cand := range candidates {
		spec, ok := def.Field(cand.Field)
		if !ok {
			continue
		}
		if _, exists := conv.Collected[cand.Field]; exists {
			continue
		}
		if cand.Source == extract.SourceModel && cand.Confidence < def.ConfidenceThreshold {
			if cand.Field == conv.ExpectedField {
				ambiguity = errx.Newf(errx.KindAmbiguous, "candidate for %q below confidence threshold (%.2f < %.2f)", cand.Field, cand.Confidence, def.ConfidenceThreshold)
			}
			continue
		}
		value, err := extract.Coerce(spec.Kind, cand.Value)
		if err == nil {
			if name := spec.ValidatorName(); name != "" {
				err = e.validators.Validate(name, value, spec.ValidatorConfig)
			}
		}
		if err != nil {
			if errx.IsKind(err, errx.KindMalformedDefinition) {
				return "", "", err
			}
			if cand.Field == conv.ExpectedField {
				t.validationMsg = validationMessage(err)
				conv.SetValidationError(cand.Field, t.validationMsg)
			}
			continue
		}
		conv.Commit(cand.Field, value)
		if cand.Field == conv.ExpectedField {
			t.ackValue = value
			conv.ExpectedField = ""
		}
		committed = true
	}
	if committed {
		return NodeFieldRouter, "", nil
	}
	if expected == nil {
		return NodeFieldRouter, "", nil
	}
	return e.handleExtractionMiss(t, expected, ambiguity)
}

// handleExtractionMiss re-asks after a turn that produced nothing usable,
// escalating per the retry budget. An ambiguity error counts against the
// budget like a validation failure.
func (e *Engine) handleExtractionMiss(t *turn, expected *definition.FieldSpec, ambiguity error) (Node, string, error) {
	conv := t.conv
	conv.RetryCount++
	if ambiguity != nil {
		e.logger.Debug().
			Str("session", conv.SessionID).
			Err(ambiguity).
			Msg("extraction ambiguous, re-asking")
	}
	if conv.RetryCount > t.def.MaxRetries {
		if expected.Optional {
			conv.Decline(expected.Name)
			conv.ExpectedField = ""
			t.prefix = "No problem, let's move on."
			return NodeFieldRouter, "", nil
		}
		t.hint = true
		conv.RetryCount = 0
	}
	if t.validationMsg == "" {
		if errx.IsKind(ambiguity, errx.KindAmbiguous) {
			t.validationMsg = "I want to make sure I get this right, could you say that again"
		} else {
			t.validationMsg = "I didn't catch that"
		}
	}
	return NodeQuestion, "", nil
}

func (e *Engine) handleIterativeItem(t *turn) (Node, string, error) {
	conv := t.conv
	field, ok := t.def.Field(conv.IterativeField)
	if !ok {
		return "", "", errx.Newf(errx.KindInvariant, "iterative field %q not defined", conv.IterativeField)
	}
	if extract.DetectBypass(t.message) == extract.BypassYes || strings.EqualFold(strings.TrimSpace(t.message), "done") {
		if len(conv.Items) == 0 {
			if field.Optional || conv.OptionalMode {
				conv.Decline(field.Name)
				conv.IterativeField = ""
				conv.ExpectedField = ""
				return NodeFieldRouter, "", nil
			}
			t.validationMsg = "I need at least one entry before we move on"
			return NodeQuestion, "", nil
		}
		value := strings.Join(conv.Items, ", ")
		conv.Commit(field.Name, value)
		conv.IterativeField = ""
		conv.Items = nil
		t.ackValue = value
		conv.ExpectedField = ""
		return NodeFieldRouter, "", nil
	}
	item := strings.TrimSpace(t.message)
	if item == "" {
		t.validationMsg = "I didn't catch that"
		return NodeQuestion, "", nil
	}
	conv.Items = append(conv.Items, item)
	return NodeQuestion, "", nil
}

func (e *Engine) handleFieldRouter(t *turn) (Node, string, error) {
	conv, def := t.conv, t.def
	conv.Missing = def.MissingRequired(conv.Collected)
	if len(conv.Missing) > 0 {
		conv.OptionalMode = false
		return e.expectField(t, conv.Missing[0])
	}
	pending := def.PendingOptional(conv.Collected, conv.Declined)
	if len(pending) > 0 {
		conv.OptionalMode = true
		return e.expectField(t, pending[0])
	}
	conv.OptionalMode = false
	conv.ExpectedField = ""
	conv.Missing = nil
	return NodeConfirmationSummary, "", nil
}

func (e *Engine) expectField(t *turn, name string) (Node, string, error) {
	spec, ok := t.def.Field(name)
	if !ok {
		return "", "", errx.Newf(errx.KindInvariant, "field %q not defined", name)
	}
	t.conv.ExpectedField = name
	if spec.Iterative {
		t.conv.IterativeField = name
	}
	return NodeQuestion, "", nil
}

func (e *Engine) handleQuestion(ctx context.Context, t *turn) (Node, string, error) {
	conv := t.conv
	field, ok := t.def.Field(conv.ExpectedField)
	if !ok {
		return "", "", errx.Newf(errx.KindInvariant, "question for unknown field %q", conv.ExpectedField)
	}
	itemCount := 0
	if conv.IterativeField == field.Name {
		itemCount = len(conv.Items)
	}
	message, err := e.generator.Generate(ctx, dialogue.Request{
		Field:           field,
		Greeting:        t.greeting,
		AckValue:        t.ackValue,
		ValidationError: t.validationMsg,
		Hint:            t.hint,
		OptionalOffer:   conv.OptionalMode || field.Optional,
		ItemCount:       itemCount,
		VoiceMode:       conv.VoiceMode,
	})
	if err != nil {
		return "", "", err
	}
	return "", t.withPrefix(message), nil
}

func (e *Engine) handleConfirmationSummary(_ context.Context, t *turn) (Node, string, error) {
	conv := t.conv
	conv.AwaitingConfirmation = true
	conv.ConfirmationAttempts = 0
	summary := dialogue.RenderSummary(t.def, conv.Collected, conv.VoiceMode)
	if t.ackValue != "" {
		summary = fmt.Sprintf("Got it, %s.%s%s", t.ackValue, t.separator(), summary)
	}
	return "", t.withPrefix(summary), nil
}

func (e *Engine) handleConfirmationResponse(ctx context.Context, t *turn) (Node, string, error) {
	conv := t.conv
	label, err := classified(e.confirmations.Classify(ctx, intent.Request{
		Message:    t.message,
		FieldNames: fieldNames(t.def),
	}))
	if err != nil {
		return "", "", err
	}
	switch label {
	case intent.ConfirmationApprove:
		return NodeCompletion, "", nil
	case intent.ConfirmationModify:
		conv.ModificationRequest = t.message
		return NodeModification, "", nil
	default:
		conv.ConfirmationAttempts++
		if conv.ConfirmationAttempts >= t.def.MaxConfirmationAttempts {
			e.logger.Info().
				Str("session", conv.SessionID).
				Int("attempts", conv.ConfirmationAttempts).
				Msg("confirmation attempts exhausted, treating summary as approved")
			return NodeCompletion, "", nil
		}
		reply := fmt.Sprintf("Sorry, I didn't catch that.%s%s", t.separator(), dialogue.RenderSummary(t.def, conv.Collected, conv.VoiceMode))
		return "", reply, nil
	}
}

func (e *Engine) handleModification(ctx context.Context, t *turn) (Node, string, error) {
	conv := t.conv
	conv.AwaitingConfirmation = false
	names := fieldNames(t.def)

	ops, ok := patch.ParseModification(conv.ModificationRequest, names, "")
	if !ok && e.patchGen != nil {
		generated, err := e.patchGen.Generate(ctx, patch.GenerateRequest{
			Message:    conv.ModificationRequest,
			Collected:  conv.Collected,
			FieldNames: names,
		})
		if err != nil {
			if errx.IsKind(err, errx.KindBackend) {
				return "", "", err
			}
		} else {
			ops = generated
		}
	}
	conv.ModificationRequest = ""
	if len(ops) == 0 {
		conv.AwaitingConfirmation = true
		return "", "Which field would you like to change, and what should it be?", nil
	}

	// Coerce and validate the new values before touching the document.
	for i, op := range ops {
		if op.Op == patch.OperationRemove {
			continue
		}
		field, _ := patch.FieldFromPath(op.Path)
		spec, ok := t.def.Field(field)
		if !ok {
			return "", "", errx.Newf(errx.KindInvariant, "patch touches unknown field %q", field)
		}
		raw := fmt.Sprintf("%v", op.Value)
		value, err := extract.Coerce(spec.Kind, raw)
		if err == nil {
			if name := spec.ValidatorName(); name != "" {
				err = e.validators.Validate(name, value, spec.ValidatorConfig)
			}
		}
		if err != nil {
			delete(conv.Collected, field)
			conv.ExpectedField = field
			t.validationMsg = validationMessage(err)
			conv.SetValidationError(field, t.validationMsg)
			return NodeFieldRouter, "", nil
		}
		ops[i].Value = value
	}

	updated, changed, err := patch.Apply(conv.Collected, ops)
	if err != nil {
		return "", "", err
	}
	conv.Collected = updated
	e.logger.Debug().
		Str("session", conv.SessionID).
		Strs("changed", changed).
		Msg("applied field modification")
	t.prefix = "Done, I've updated that."
	return NodeFieldRouter, "", nil
}

func (e *Engine) handleCompletion(ctx context.Context, t *turn) (Node, string, error) {
	conv := t.conv
	rendered, err := RenderTemplate(t.def.Completion.Template, conv.Collected)
	if err != nil {
		return "", "", err
	}
	result, err := e.dispatchAction(ctx, t.def, conv.Collected)
	if err != nil {
		return "", "", err
	}
	conv.Complete = true
	conv.AwaitingConfirmation = false
	conv.ExpectedField = ""
	conv.Missing = nil
	conv.Result = make(map[string]string, len(conv.Collected))
	for k, v := range conv.Collected {
		conv.Result[k] = v
	}
	t.completed = true
	t.actionResult = result
	return "", rendered, nil
}

func (e *Engine) handleCancel(t *turn) (Node, string, error) {
	conv := t.conv
	if conv.QAActive {
		if _, err := conv.LeaveQA(); err != nil {
			return "", "", err
		}
	}
	conv.Cancelled = true
	conv.AwaitingConfirmation = false
	conv.ExpectedField = ""
	conv.IterativeField = ""
	conv.Missing = nil
	t.cancelled = true
	return "", "No problem, I've cancelled this for you. Come back anytime.", nil
}

// missingSpecs resolves the still-missing field specs, expected field
// first, for the extraction prompt.
func (e *Engine) missingSpecs(t *turn) []*definition.FieldSpec {
	conv, def := t.conv, t.def
	var specs []*definition.FieldSpec
	if spec, ok := def.Field(conv.ExpectedField); ok {
		specs = append(specs, spec)
	}
	for _, name := range def.MissingRequired(conv.Collected) {
		if name == conv.ExpectedField {
			continue
		}
		if spec, ok := def.Field(name); ok {
			specs = append(specs, spec)
		}
	}
	for _, name := range def.PendingOptional(conv.Collected, conv.Declined) {
		if name == conv.ExpectedField {
			continue
		}
		if spec, ok := def.Field(name); ok {
			specs = append(specs, spec)
		}
	}
	return specs
}

func (t *turn) separator() string {
	if t.conv.VoiceMode {
		return " "
	}
	return "\n\n"
}

func (t *turn) withPrefix(message string) string {
	if t.prefix == "" {
		return message
	}
	return t.prefix + t.separator() + message
}

func fieldNames(def *definition.AgentDefinition) []string {
	names := make([]string, 0, len(def.Fields))
	for i := range def.Fields {
		names = append(names, def.Fields[i].Name)
	}
	return names
}

func savedExpectedField(conv *state.Conversation) string {
	if conv.SavedPosition == nil {
		return ""
	}
	return conv.SavedPosition.ExpectedField
}

func validationMessage(err error) string {
	var appErr *errx.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
