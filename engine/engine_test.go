package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/logx"
	"github.com/tbxark/fieldagent/modeltest"
	"github.com/tbxark/fieldagent/state"
)

func signupDef(t *testing.T) *definition.AgentDefinition {
	t.Helper()
	def := &definition.AgentDefinition{
		ID:          "signup",
		Name:        "Signup",
		Description: "Collects account signup details",
		Greeting:    "Welcome!",
		Fields: []definition.FieldSpec{
			{Name: "full_name", Kind: definition.KindName, Question: "What's your full name?"},
			{Name: "email", Kind: definition.KindEmail, Question: "What's your email?"},
			{Name: "referral", Kind: definition.KindText, Question: "How did you hear about us?", Optional: true},
		},
		Completion: definition.CompletionSpec{Template: "Thanks {full_name}, we'll email {email}.", Action: "log"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return def
}

func newLocalEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(Options{Logger: logx.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func newModelEngine(t *testing.T, fake *modeltest.FakeModel) *Engine {
	t.Helper()
	e, err := New(Options{ChatModel: fake, Logger: logx.Nop()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func mustTurn(t *testing.T, e *Engine, def *definition.AgentDefinition, conv *state.Conversation, message string) *TurnResult {
	t.Helper()
	result, err := e.Turn(context.Background(), def, conv, message)
	if err != nil {
		t.Fatalf("Turn(%q): %v", message, err)
	}
	return result
}

func TestStartGreetsAndAsksFirstQuestion(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	result, err := e.Start(context.Background(), def, "s1", false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.Contains(result.Reply, "Welcome!") || !strings.Contains(result.Reply, "What's your full name?") {
		t.Fatalf("greeting should include the first question: %q", result.Reply)
	}
	if result.State.ExpectedField != "full_name" {
		t.Fatalf("expected field should be full_name, got %q", result.State.ExpectedField)
	}
	if result.State.FirstTurn {
		t.Fatalf("first turn flag should clear after greeting")
	}
}

func TestHappyPath(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	start, err := e.Start(context.Background(), def, "s1", false)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	conv := start.State

	r := mustTurn(t, e, def, conv, "Ada Lovelace")
	if !strings.Contains(r.Reply, "Got it, Ada Lovelace.") || !strings.Contains(r.Reply, "What's your email?") {
		t.Fatalf("commit should ack and ask the next question: %q", r.Reply)
	}
	if r.State.Collected["full_name"] != "Ada Lovelace" {
		t.Fatalf("full_name not committed: %v", r.State.Collected)
	}
	if conv.Collected["full_name"] != "" {
		t.Fatalf("input state must not be mutated")
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "ada@example.com")
	if !strings.Contains(r.Reply, "How did you hear about us?") || !strings.Contains(r.Reply, `"skip"`) {
		t.Fatalf("optional field should be offered as skippable: %q", r.Reply)
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "no thanks")
	if !strings.Contains(r.Reply, "Is everything correct?") {
		t.Fatalf("declined optional should lead to the summary: %q", r.Reply)
	}
	if !r.State.AwaitingConfirmation {
		t.Fatalf("state should await confirmation")
	}
	if !r.State.Declined["referral"] {
		t.Fatalf("declined field should be recorded")
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "yes")
	if r.Reply != "Thanks Ada Lovelace, we'll email ada@example.com." {
		t.Fatalf("completion should render the template: %q", r.Reply)
	}
	if !r.Completed || !r.State.Complete {
		t.Fatalf("session should be complete")
	}
	if r.State.Result["email"] != "ada@example.com" {
		t.Fatalf("result data should snapshot the collected fields: %v", r.State.Result)
	}
	conv = r.State

	_, err = e.Turn(context.Background(), def, conv, "one more thing")
	if !errx.IsKind(err, errx.KindCompleted) {
		t.Fatalf("completed session must reject messages, got %v", err)
	}
}

func TestValidationReprompt(t *testing.T) {
	def := &definition.AgentDefinition{
		ID: "feedback", Name: "Feedback", Description: "Collects a rating",
		Fields: []definition.FieldSpec{
			{Name: "rating", Kind: definition.KindNumber, Question: "How would you rate us from 1 to 10?",
				ValidatorConfig: map[string]any{"min": 1, "max": 10}},
		},
		Completion: definition.CompletionSpec{Template: "You rated us {rating}.", Action: "log"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State

	r := mustTurn(t, e, def, conv, "definitely a 15")
	if !strings.Contains(r.Reply, "at most 10") {
		t.Fatalf("rejected value should surface the validator message: %q", r.Reply)
	}
	if r.State.RetryCount != 1 {
		t.Fatalf("retry count should increment, got %d", r.State.RetryCount)
	}
	if r.State.ValidationErrors["rating"] == "" {
		t.Fatalf("validation error should be recorded")
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "9")
	if r.State.Collected["rating"] != "9" {
		t.Fatalf("valid value should commit: %v", r.State.Collected)
	}
	if r.State.RetryCount != 0 {
		t.Fatalf("commit should reset the retry count")
	}
	if len(r.State.ValidationErrors) != 0 {
		t.Fatalf("commit should clear the validation error")
	}
}

func TestRetryEscalationAddsHint(t *testing.T) {
	def := &definition.AgentDefinition{
		ID: "contact", Name: "Contact", Description: "Collects contact info",
		Fields: []definition.FieldSpec{
			{Name: "email", Kind: definition.KindEmail, Question: "What's your email?",
				Description: "the address you log in with"},
		},
		Completion: definition.CompletionSpec{Template: "Done: {email}", Action: "log"},
		MaxRetries: 2,
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State

	var r *TurnResult
	for i := 0; i < 2; i++ {
		r = mustTurn(t, e, def, conv, "banana")
		if strings.Contains(r.Reply, "the address you log in with") {
			t.Fatalf("hint should not appear before the budget is spent (attempt %d): %q", i+1, r.Reply)
		}
		conv = r.State
	}
	r = mustTurn(t, e, def, conv, "banana")
	if !strings.Contains(r.Reply, "the address you log in with") {
		t.Fatalf("exhausted retries should add the description hint: %q", r.Reply)
	}
	if r.State.RetryCount != 0 {
		t.Fatalf("hint should reset the retry budget, got %d", r.State.RetryCount)
	}
}

func TestOptionalAutoDeclineAfterRetries(t *testing.T) {
	def := &definition.AgentDefinition{
		ID: "survey", Name: "Survey", Description: "Collects survey answers",
		Fields: []definition.FieldSpec{
			{Name: "age", Kind: definition.KindNumber, Question: "How old are you?", Optional: true},
		},
		Completion: definition.CompletionSpec{Template: "All done.", Action: "log"},
		MaxRetries: 1,
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State

	r := mustTurn(t, e, def, conv, "none of your business")
	conv = r.State
	r = mustTurn(t, e, def, conv, "still not telling")
	if !r.State.Declined["age"] {
		t.Fatalf("optional field should auto-decline after retries: %+v", r.State)
	}
	if !r.State.AwaitingConfirmation {
		t.Fatalf("conversation should move on to confirmation")
	}
}

func TestConditionalBranch(t *testing.T) {
	def := &definition.AgentDefinition{
		ID: "newsletter", Name: "Newsletter", Description: "Newsletter signup",
		Fields: []definition.FieldSpec{
			{Name: "subscribe", Kind: definition.KindBoolean, Question: "Want our newsletter?"},
			{Name: "email", Kind: definition.KindEmail, Question: "What's your email?", Condition: "subscribe == yes"},
		},
		Completion: definition.CompletionSpec{Template: "Done.", Action: "log"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e := newLocalEngine(t)

	start, _ := e.Start(context.Background(), def, "s1", false)
	r := mustTurn(t, e, def, start.State, "yes")
	if r.State.ExpectedField != "email" {
		t.Fatalf("yes branch should activate the email field, got %q", r.State.ExpectedField)
	}

	start, _ = e.Start(context.Background(), def, "s2", false)
	r = mustTurn(t, e, def, start.State, "nope")
	if !r.State.AwaitingConfirmation {
		t.Fatalf("no branch should skip the conditional field and confirm")
	}
	if strings.Contains(r.Reply, "email") {
		t.Fatalf("inactive field must not be asked: %q", r.Reply)
	}
}

func TestQADiversionAndResume(t *testing.T) {
	fake := modeltest.New(
		modeltest.Text("We use it to personalize your account. Anything else?"),
		modeltest.Text("No, it's never shared. More questions, or shall we continue?"),
	)
	e := newModelEngine(t, fake)
	def := signupDef(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State

	r := mustTurn(t, e, def, conv, "why do you need my name?")
	if !strings.Contains(r.Reply, "personalize") {
		t.Fatalf("question should be answered: %q", r.Reply)
	}
	if !r.State.QAActive || r.State.SavedPosition == nil {
		t.Fatalf("qa mode should be active with a saved position")
	}
	if r.State.SavedPosition.ExpectedField != "full_name" {
		t.Fatalf("saved position should keep the pending field, got %+v", r.State.SavedPosition)
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "is it shared with anyone?")
	if !strings.Contains(r.Reply, "never shared") {
		t.Fatalf("follow-up question should be answered: %q", r.Reply)
	}
	if len(r.State.QAHistory) != 2 {
		t.Fatalf("qa history should accumulate, got %d", len(r.State.QAHistory))
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "ok let's continue")
	if r.State.QAActive || r.State.SavedPosition != nil {
		t.Fatalf("resume should clear qa mode")
	}
	if !strings.Contains(r.Reply, "What's your full name?") {
		t.Fatalf("resume should re-ask the suspended question: %q", r.Reply)
	}
	if r.State.ExpectedField != "full_name" {
		t.Fatalf("expected field should be restored, got %q", r.State.ExpectedField)
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "Ada Lovelace")
	if r.State.Collected["full_name"] != "Ada Lovelace" {
		t.Fatalf("collection should continue after the diversion")
	}
}

func TestQADoesNotTouchCollectedFields(t *testing.T) {
	fake := modeltest.New(modeltest.Text("Good question! Anything else?"))
	e := newModelEngine(t, fake)
	def := signupDef(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State

	before := len(conv.Collected)
	r := mustTurn(t, e, def, conv, "what happens to my data?")
	if len(r.State.Collected) != before {
		t.Fatalf("qa turns must not modify collected fields")
	}
}

func TestConfirmationModification(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State
	if !conv.AwaitingConfirmation {
		t.Fatalf("setup should reach confirmation")
	}

	r := mustTurn(t, e, def, conv, "change my email to ada@lovelace.org")
	if r.State.Collected["email"] != "ada@lovelace.org" {
		t.Fatalf("modification should update the field: %v", r.State.Collected)
	}
	if !strings.Contains(r.Reply, "ada@lovelace.org") || !strings.Contains(r.Reply, "Is everything correct?") {
		t.Fatalf("updated summary should be shown again: %q", r.Reply)
	}
	if !r.State.AwaitingConfirmation {
		t.Fatalf("conversation should re-confirm after a modification")
	}
}

func TestModificationWithInvalidValueReasks(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State

	r := mustTurn(t, e, def, conv, "change my email to not-an-email")
	if r.State.AwaitingConfirmation {
		t.Fatalf("invalid replacement should drop back to collection")
	}
	if r.State.ExpectedField != "email" {
		t.Fatalf("the broken field should be re-asked, got %q", r.State.ExpectedField)
	}
	if !strings.Contains(r.Reply, "What's your email?") {
		t.Fatalf("re-ask should include the question: %q", r.Reply)
	}
	if _, ok := r.State.Collected["email"]; ok {
		t.Fatalf("the invalid value must not be committed")
	}
}

func TestConfirmationUnclearAutoApproves(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State

	r := mustTurn(t, e, def, conv, "hmm")
	if r.Completed || !strings.Contains(r.Reply, "Is everything correct?") {
		t.Fatalf("first unclear response should re-ask: %q", r.Reply)
	}
	conv = r.State
	r = mustTurn(t, e, def, conv, "well")
	conv = r.State
	r = mustTurn(t, e, def, conv, "so")
	if !r.Completed {
		t.Fatalf("exhausted confirmation attempts should auto-approve")
	}
}

func TestIterativeCollection(t *testing.T) {
	def := &definition.AgentDefinition{
		ID: "rsvp", Name: "RSVP", Description: "Collects attendee names",
		Fields: []definition.FieldSpec{
			{Name: "attendees", Kind: definition.KindText, Question: "Who's coming? Add one name at a time.", Iterative: true},
		},
		Completion: definition.CompletionSpec{Template: "Booked for: {attendees}", Action: "log"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	if conv.IterativeField != "attendees" {
		t.Fatalf("iterative mode should arm on the first question")
	}

	conv = mustTurn(t, e, def, conv, "Alice").State
	r := mustTurn(t, e, def, conv, "Bob")
	if !strings.Contains(r.Reply, "Anything else?") {
		t.Fatalf("iterative follow-up expected: %q", r.Reply)
	}
	if len(r.State.Items) != 2 {
		t.Fatalf("items should accumulate, got %v", r.State.Items)
	}
	conv = r.State

	r = mustTurn(t, e, def, conv, "done")
	if r.State.Collected["attendees"] != "Alice, Bob" {
		t.Fatalf("done should commit the joined items: %v", r.State.Collected)
	}
	if r.State.IterativeField != "" || len(r.State.Items) != 0 {
		t.Fatalf("iterative mode should clear after commit")
	}
	conv = r.State
	r = mustTurn(t, e, def, conv, "yes")
	if r.Reply != "Booked for: Alice, Bob" {
		t.Fatalf("unexpected completion %q", r.Reply)
	}
}

func TestCancelMidCollection(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := mustTurn(t, e, def, start.State, "Ada Lovelace").State

	r := mustTurn(t, e, def, conv, "cancel")
	if !r.Cancelled || !r.State.Cancelled {
		t.Fatalf("cancel should close the session")
	}
	if _, err := e.Turn(context.Background(), def, r.State, "wait"); !errx.IsKind(err, errx.KindCompleted) {
		t.Fatalf("cancelled session must reject messages, got %v", err)
	}
}

func TestAmbiguousExtractionReasks(t *testing.T) {
	fake := modeltest.New(modeltest.ToolCall("report_field_values",
		`{"fields": [{"name": "referral", "value": "something", "confidence": 0.3}]}`))
	def := &definition.AgentDefinition{
		ID: "survey", Name: "Survey", Description: "Survey",
		Fields: []definition.FieldSpec{
			{Name: "referral", Kind: definition.KindText, Question: "How did you hear about us?"},
		},
		Completion: definition.CompletionSpec{Template: "Thanks!", Action: "log"},
	}
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	e := newModelEngine(t, fake)
	start, _ := e.Start(context.Background(), def, "s1", false)

	r := mustTurn(t, e, def, start.State, "uh you know")
	if len(r.State.Collected) != 0 {
		t.Fatalf("low-confidence value must not commit: %v", r.State.Collected)
	}
	if !strings.Contains(r.Reply, "make sure I get this right") {
		t.Fatalf("ambiguity should ask for a rephrase: %q", r.Reply)
	}
	if r.State.RetryCount != 1 {
		t.Fatalf("ambiguity should count against the retry budget")
	}
}

func TestWebhookCompletionAction(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	def := signupDef(t)
	def.Completion.Action = "webhook:" + srv.URL
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State

	r := mustTurn(t, e, def, conv, "yes")
	if !r.Completed {
		t.Fatalf("webhook success should complete the session")
	}
	if !strings.Contains(received, "ada@example.com") || !strings.Contains(received, `"agent_id":"signup"`) {
		t.Fatalf("webhook payload should carry the fields: %s", received)
	}
	if !strings.Contains(r.ActionResult, "accepted") {
		t.Fatalf("action result should be recorded: %q", r.ActionResult)
	}
}

func TestWebhookFailureKeepsSessionOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	def := signupDef(t)
	def.Completion.Action = "webhook:" + srv.URL
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State

	_, err := e.Turn(context.Background(), def, conv, "yes")
	if !errx.Retryable(err) {
		t.Fatalf("webhook failure should be retryable, got %v", err)
	}
	if conv.Complete || !conv.AwaitingConfirmation {
		t.Fatalf("failed completion must leave the prior state usable")
	}
}

func TestCustomCompletionAction(t *testing.T) {
	def := signupDef(t)
	def.Completion.Action = "custom"
	e, err := New(Options{
		Logger: logx.Nop(),
		CustomActions: map[string]ActionFunc{
			"signup": func(_ context.Context, _ *definition.AgentDefinition, collected map[string]string) (string, error) {
				return "account created for " + collected["email"], nil
			},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State

	r := mustTurn(t, e, def, conv, "yes")
	if r.ActionResult != "account created for ada@example.com" {
		t.Fatalf("custom action result should be returned: %q", r.ActionResult)
	}
}

func TestMissingCustomActionIsDefinitionError(t *testing.T) {
	def := signupDef(t)
	def.Completion.Action = "custom"
	e := newLocalEngine(t)
	start, _ := e.Start(context.Background(), def, "s1", false)
	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	conv = mustTurn(t, e, def, conv, "skip").State

	_, err := e.Turn(context.Background(), def, conv, "yes")
	if !errx.IsKind(err, errx.KindMalformedDefinition) {
		t.Fatalf("unregistered custom action should fail loudly, got %v", err)
	}
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("Hi {name}, see you at {time}.", map[string]string{"name": "Ada", "time": "noon"})
	if err != nil || out != "Hi Ada, see you at noon." {
		t.Fatalf("unexpected render %q err=%v", out, err)
	}
	_, err = RenderTemplate("Hi {nickname}.", map[string]string{"name": "Ada"})
	if !errx.IsKind(err, errx.KindMalformedDefinition) {
		t.Fatalf("missing placeholder should be a definition error, got %v", err)
	}
}

func TestVoiceModeUsesFlatReplies(t *testing.T) {
	e := newLocalEngine(t)
	def := signupDef(t)
	start, err := e.Start(context.Background(), def, "s1", true)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if strings.Contains(start.Reply, "\n") {
		t.Fatalf("voice replies must not contain newlines: %q", start.Reply)
	}
	if !start.State.VoiceMode {
		t.Fatalf("voice flag should persist in state")
	}

	conv := start.State
	conv = mustTurn(t, e, def, conv, "Ada Lovelace").State
	conv = mustTurn(t, e, def, conv, "ada@example.com").State
	r := mustTurn(t, e, def, conv, "skip")
	if !r.State.AwaitingConfirmation {
		t.Fatalf("setup should reach confirmation")
	}
	if strings.Contains(r.Reply, "\n") {
		t.Fatalf("voice summary must not contain newlines: %q", r.Reply)
	}
	conv = r.State
	r = mustTurn(t, e, def, conv, "hmm")
	if strings.Contains(r.Reply, "\n") {
		t.Fatalf("voice re-ask must not contain newlines: %q", r.Reply)
	}
}

func TestCanTransitionClosedSet(t *testing.T) {
	if !CanTransition(NodeEntry, NodeFieldExtraction) {
		t.Fatalf("entry to extraction should be legal")
	}
	if CanTransition(NodeFieldExtraction, NodeCompletion) {
		t.Fatalf("extraction must not jump straight to completion")
	}
	if CanTransition(NodeCompletion, NodeFieldExtraction) {
		t.Fatalf("terminal nodes have no outgoing edges")
	}
}
