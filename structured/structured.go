// Package structured turns a chat model into a typed function call. Every
// classifier and extractor in this module goes through a Chain: the output
// struct is published as a forced tool, the model must call it, and the
// arguments are decoded back into the struct.
package structured

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/fieldagent/errx"
)

// PromptBuilder renders the request messages for one invocation.
type PromptBuilder[TInput any] func(ctx context.Context, input TInput) ([]*schema.Message, error)

// Chain is a typed model call: TInput in, TOutput out via a forced tool
// call. The zero value is not usable, construct with NewChain.
type Chain[TInput, TOutput any] struct {
	promptBuilder PromptBuilder[TInput]
	chatModel     model.ToolCallingChatModel
	toolInfo      *schema.ToolInfo
	timeout       time.Duration
}

// DefaultTimeout bounds a single model call when the caller's context has
// no earlier deadline.
const DefaultTimeout = 30 * time.Second

// NewChain derives the tool schema from TOutput's struct tags and binds it
// to the model.
func NewChain[TInput, TOutput any](
	chatModel model.ToolCallingChatModel,
	promptBuilder PromptBuilder[TInput],
	toolName string,
	toolDesc string,
) (*Chain[TInput, TOutput], error) {
	toolInfo, err := utils.GoStruct2ToolInfo[TOutput](toolName, toolDesc)
	if err != nil {
		return nil, fmt.Errorf("convert tool info failed: %w", err)
	}
	return &Chain[TInput, TOutput]{
		promptBuilder: promptBuilder,
		chatModel:     chatModel,
		toolInfo:      toolInfo,
		timeout:       DefaultTimeout,
	}, nil
}

// WithTimeout overrides the per-call deadline.
func (s *Chain[TInput, TOutput]) WithTimeout(d time.Duration) *Chain[TInput, TOutput] {
	s.timeout = d
	return s
}

// Invoke runs one call. All failures, including deadline expiry and a
// model that answers in prose instead of calling the tool, come back as
// retryable backend errors.
func (s *Chain[TInput, TOutput]) Invoke(ctx context.Context, input TInput) (*TOutput, error) {
	messages, err := s.promptBuilder(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("build prompt failed: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	response, err := s.chatModel.Generate(ctx, messages,
		model.WithTools([]*schema.ToolInfo{s.toolInfo}),
		model.WithToolChoice(schema.ToolChoiceForced, s.toolInfo.Name),
	)
	if err != nil {
		return nil, errx.Wrap(errx.KindBackend, "model call failed", err)
	}
	if len(response.ToolCalls) == 0 {
		return nil, errx.Newf(errx.KindBackend, "no tool call in model response: %s", response.Content)
	}

	var result TOutput
	if err := sonic.UnmarshalString(response.ToolCalls[0].Function.Arguments, &result); err != nil {
		return nil, errx.Wrap(errx.KindBackend, "parse tool call arguments failed", err)
	}
	return &result, nil
}

// ToolInfo exposes the derived tool schema, mainly for tests.
func (s *Chain[TInput, TOutput]) ToolInfo() *schema.ToolInfo {
	return s.toolInfo
}
