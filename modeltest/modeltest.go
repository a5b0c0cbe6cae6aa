// Package modeltest provides a scripted chat model for deterministic tests.
package modeltest

import (
	"context"
	"errors"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// FakeModel replays queued responses in order. It records every request so
// tests can assert on the rendered prompts.
type FakeModel struct {
	mu        sync.Mutex
	responses []*schema.Message
	Calls     [][]*schema.Message
	Err       error
}

// New queues the given responses.
func New(responses ...*schema.Message) *FakeModel {
	return &FakeModel{responses: responses}
}

// Failing returns a model whose every call fails with err.
func Failing(err error) *FakeModel {
	return &FakeModel{Err: err}
}

func (m *FakeModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, input)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("modeltest: no scripted response left")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func (m *FakeModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	resp, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{resp}), nil
}

func (m *FakeModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// ToolCall builds an assistant message that calls the named tool with the
// given JSON arguments.
func ToolCall(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{
				ID:       "call-0",
				Function: schema.FunctionCall{Name: name, Arguments: args},
			},
		},
	}
}

// Text builds a plain assistant message.
func Text(content string) *schema.Message {
	return &schema.Message{Role: schema.Assistant, Content: content}
}
