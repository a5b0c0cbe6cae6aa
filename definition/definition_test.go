package definition

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tbxark/fieldagent/errx"
)

func signupDefinition() *AgentDefinition {
	return &AgentDefinition{
		ID:          "signup",
		Name:        "Signup",
		Description: "Collects account signup details",
		Fields: []FieldSpec{
			{Name: "full_name", Kind: KindName, Question: "What is your full name?"},
			{Name: "contact_method", Kind: KindText, Question: "Email or phone?"},
			{Name: "email", Kind: KindEmail, Question: "What is your email?", Condition: "contact_method == email"},
			{Name: "phone", Kind: KindPhone, Question: "What is your phone number?", Condition: "contact_method != email"},
			{Name: "referral", Kind: KindText, Question: "How did you hear about us?", Optional: true},
		},
		Completion: CompletionSpec{Template: "Thanks {full_name}!", Action: "log"},
	}
}

func TestValidateAppliesDefaults(t *testing.T) {
	def := signupDefinition()
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if def.MaxRetries != DefaultMaxRetries {
		t.Fatalf("MaxRetries default not applied, got %d", def.MaxRetries)
	}
	if def.ConfidenceThreshold != DefaultConfidenceThreshold {
		t.Fatalf("ConfidenceThreshold default not applied, got %v", def.ConfidenceThreshold)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	def := &AgentDefinition{
		Fields: []FieldSpec{
			{Name: "a", Kind: "jsonb"},
			{Question: "?", Kind: KindText},
			{Name: "a", Kind: KindText, Question: "?"},
		},
	}
	err := def.Validate()
	if !errx.IsKind(err, errx.KindMalformedDefinition) {
		t.Fatalf("expected malformed definition error, got %v", err)
	}
	msg := err.Error()
	for _, want := range []string{"missing key: id", "missing key: name", "missing key: description", "unknown type", "missing key: question", "duplicate field name"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error should mention %q, got: %s", want, msg)
		}
	}
}

func TestConditionEval(t *testing.T) {
	cond, err := ParseCondition("contact_method == Email")
	if err != nil {
		t.Fatalf("ParseCondition: %v", err)
	}
	if !cond.Eval(map[string]string{"contact_method": "email"}) {
		t.Fatalf("comparison should be case insensitive")
	}
	if cond.Eval(map[string]string{}) {
		t.Fatalf("condition on an uncollected field should be false")
	}
	neg, _ := ParseCondition("contact_method != email")
	if neg.Eval(map[string]string{"contact_method": "email"}) {
		t.Fatalf("negated condition should be false on match")
	}
	if !neg.Eval(map[string]string{"contact_method": "phone"}) {
		t.Fatalf("negated condition should be true on mismatch")
	}
}

func TestConditionParseErrors(t *testing.T) {
	if _, err := ParseCondition("contact_method"); err == nil {
		t.Fatalf("missing operator should fail")
	}
	if _, err := ParseCondition("== email"); err == nil {
		t.Fatalf("empty operand should fail")
	}
}

func TestMissingRequiredFollowsConditions(t *testing.T) {
	def := signupDefinition()
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	missing := def.MissingRequired(map[string]string{})
	if len(missing) != 2 || missing[0] != "full_name" || missing[1] != "contact_method" {
		t.Fatalf("inactive conditional fields should not be missing, got %v", missing)
	}
	missing = def.MissingRequired(map[string]string{"full_name": "Ada", "contact_method": "email"})
	if len(missing) != 1 || missing[0] != "email" {
		t.Fatalf("email branch should activate, got %v", missing)
	}
	missing = def.MissingRequired(map[string]string{"full_name": "Ada", "contact_method": "phone"})
	if len(missing) != 1 || missing[0] != "phone" {
		t.Fatalf("phone branch should activate, got %v", missing)
	}
}

func TestProgressIgnoresOptionalFields(t *testing.T) {
	def := &AgentDefinition{
		ID: "signup", Name: "Signup", Description: "d",
		Fields: []FieldSpec{
			{Name: "full_name", Kind: KindName, Question: "?"},
			{Name: "email", Kind: KindEmail, Question: "?"},
			{Name: "referral", Kind: KindText, Question: "?", Optional: true},
		},
		Completion: CompletionSpec{Template: "ok", Action: "log"},
	}
	if got := def.Progress(nil); got != 0 {
		t.Fatalf("nothing collected should be 0%%, got %v", got)
	}
	// An optional field answered early must not count toward completion.
	collected := map[string]string{"full_name": "Ann", "referral": "twitter"}
	if got := def.Progress(collected); got != 50 {
		t.Fatalf("one of two required fields is 50%%, got %v", got)
	}
	collected["email"] = "ann@x.com"
	if got := def.Progress(collected); got != 100 {
		t.Fatalf("all required collected should be 100%%, got %v", got)
	}

	empty := &AgentDefinition{
		ID: "optonly", Name: "O", Description: "d",
		Fields: []FieldSpec{
			{Name: "referral", Kind: KindText, Question: "?", Optional: true},
		},
		Completion: CompletionSpec{Template: "ok", Action: "log"},
	}
	if got := empty.Progress(nil); got != 100 {
		t.Fatalf("no required fields means done, got %v", got)
	}
}

func TestPendingOptionalSkipsDeclined(t *testing.T) {
	def := signupDefinition()
	if err := def.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	pending := def.PendingOptional(map[string]string{}, nil)
	if len(pending) != 1 || pending[0] != "referral" {
		t.Fatalf("unexpected pending optionals %v", pending)
	}
	pending = def.PendingOptional(map[string]string{}, map[string]bool{"referral": true})
	if len(pending) != 0 {
		t.Fatalf("declined optionals must not come back, got %v", pending)
	}
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	doc := `{
		"id": "feedback",
		"name": "Feedback",
		"description": "Collects product feedback",
		"fields": [
			{"name": "rating", "type": "number", "question": "How would you rate us from 1 to 10?", "validator_config": {"min": 1, "max": 10}},
			{"name": "comments", "type": "text", "question": "Any comments?", "optional": true}
		],
		"completion": {"template": "Thanks for rating us {rating}!", "action": "log"}
	}`
	if err := os.WriteFile(filepath.Join(dir, "feedback.json"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry()
	if err := reg.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	def, err := reg.Get("feedback")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(def.Fields) != 2 || def.Fields[0].ValidatorName() != "number" {
		t.Fatalf("document not parsed as expected: %+v", def)
	}
	if _, err := reg.Get("missing"); !errx.IsKind(err, errx.KindNotFound) {
		t.Fatalf("unknown agent should be not found, got %v", err)
	}
}

func TestRegistryRejectsMalformedDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"id": "x"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := NewRegistry()
	err := reg.LoadDir(dir)
	if !errx.IsKind(err, errx.KindMalformedDefinition) {
		t.Fatalf("expected malformed definition, got %v", err)
	}
	if !strings.Contains(err.Error(), "broken.json") {
		t.Fatalf("error should name the document: %v", err)
	}
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(signupDefinition()); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := reg.IDs(); len(got) != 1 || got[0] != "signup" {
		t.Fatalf("unexpected ids %v", got)
	}
	reg.Unregister("signup")
	if _, err := reg.Get("signup"); err == nil {
		t.Fatalf("unregistered agent should be gone")
	}
}
