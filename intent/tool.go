package intent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/fieldagent/structured"
)

type labelResult struct {
	Label      string  `json:"label" jsonschema:"description=one of the allowed labels"`
	Confidence float64 `json:"confidence" jsonschema:"description=confidence between 0 and 1"`
}

// labelChain is the shared shape of all model classifiers: one forced tool
// call that picks a label from a closed set.
type labelChain struct {
	chain  *structured.Chain[Request, labelResult]
	labels map[string]bool
}

func newLabelChain(chatModel model.ToolCallingChatModel, toolName, systemPrompt string, timeout time.Duration, labels ...string) (*labelChain, error) {
	allowed := make(map[string]bool, len(labels))
	for _, l := range labels {
		allowed[l] = true
	}
	builder := func(_ context.Context, req Request) ([]*schema.Message, error) {
		var sections []string
		if req.ExpectedField != "" {
			sections = append(sections, fmt.Sprintf("The pending question asks for the field %q.", req.ExpectedField))
		}
		if len(req.FieldNames) > 0 {
			sections = append(sections, fmt.Sprintf("The form fields are: %s.", strings.Join(req.FieldNames, ", ")))
		}
		sections = append(sections, fmt.Sprintf("User message:\n%s", req.Message))
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(strings.Join(sections, "\n\n")),
		}, nil
	}
	chain, err := structured.NewChain[Request, labelResult](chatModel, builder, toolName, systemPrompt)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		chain = chain.WithTimeout(timeout)
	}
	return &labelChain{chain: chain, labels: allowed}, nil
}

func (c *labelChain) classify(ctx context.Context, req Request) (string, error) {
	result, err := c.chain.Invoke(ctx, req)
	if err != nil {
		return "", err
	}
	label := strings.ToLower(strings.TrimSpace(result.Label))
	if !c.labels[label] {
		return "", ErrUnclassified
	}
	return label, nil
}

// ToolBasedIntentClassifier asks the model whether the message answers the
// pending question.
type ToolBasedIntentClassifier struct {
	chain *labelChain
}

func NewToolBasedIntentClassifier(chatModel model.ToolCallingChatModel, timeout time.Duration) (*ToolBasedIntentClassifier, error) {
	chain, err := newLabelChain(chatModel, "classify_intent",
		`Decide whether the user's message answers the pending form question, asks a question of its own, or cancels the conversation. Label it "answer", "question" or "cancel".`,
		timeout, string(IntentAnswer), string(IntentQuestion), string(IntentCancel))
	if err != nil {
		return nil, err
	}
	return &ToolBasedIntentClassifier{chain: chain}, nil
}

func (c *ToolBasedIntentClassifier) Classify(ctx context.Context, req Request) (Intent, error) {
	label, err := c.chain.classify(ctx, req)
	if err != nil {
		return "", err
	}
	return Intent(label), nil
}

// ToolBasedContinuationClassifier asks the model whether the user wants to
// keep asking questions or return to the form.
type ToolBasedContinuationClassifier struct {
	chain *labelChain
}

func NewToolBasedContinuationClassifier(chatModel model.ToolCallingChatModel, timeout time.Duration) (*ToolBasedContinuationClassifier, error) {
	chain, err := newLabelChain(chatModel, "classify_continuation",
		`The user diverted from a form to ask questions. Decide whether this message asks another question ("ask_more"), returns to the form ("resume"), or already answers the suspended form question ("answer").`,
		timeout, string(ContinuationAskMore), string(ContinuationResume), string(ContinuationAnswer))
	if err != nil {
		return nil, err
	}
	return &ToolBasedContinuationClassifier{chain: chain}, nil
}

func (c *ToolBasedContinuationClassifier) Classify(ctx context.Context, req Request) (Continuation, error) {
	label, err := c.chain.classify(ctx, req)
	if err != nil {
		return "", err
	}
	return Continuation(label), nil
}

// ToolBasedConfirmationClassifier asks the model how to read a response to
// the collected-values summary.
type ToolBasedConfirmationClassifier struct {
	chain *labelChain
}

func NewToolBasedConfirmationClassifier(chatModel model.ToolCallingChatModel, timeout time.Duration) (*ToolBasedConfirmationClassifier, error) {
	chain, err := newLabelChain(chatModel, "classify_confirmation",
		`The user was shown a summary of their answers and asked to confirm. Decide whether this message approves the summary ("approve"), requests a change ("modify"), or is unclear ("unclear").`,
		timeout, string(ConfirmationApprove), string(ConfirmationModify), string(ConfirmationUnclear))
	if err != nil {
		return nil, err
	}
	return &ToolBasedConfirmationClassifier{chain: chain}, nil
}

func (c *ToolBasedConfirmationClassifier) Classify(ctx context.Context, req Request) (Confirmation, error) {
	label, err := c.chain.classify(ctx, req)
	if err != nil {
		return "", err
	}
	return Confirmation(label), nil
}
