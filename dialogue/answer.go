package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/state"
)

const answerSystemPrompt = `You are the assistant for %q: %s
The user paused filling in information to ask a question. Answer it helpfully and briefly.
If the question is unrelated to this conversation, say so politely.
End by asking whether they have more questions or want to continue where they left off.`

// Answerer handles the Q&A diversion with a plain model generation, no tool
// forcing, since the output is free text for the user.
type Answerer struct {
	chatModel model.ToolCallingChatModel
	timeout   time.Duration
}

func NewAnswerer(chatModel model.ToolCallingChatModel, timeout time.Duration) *Answerer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Answerer{chatModel: chatModel, timeout: timeout}
}

// Answer responds to the question with the Q&A history as context.
func (a *Answerer) Answer(ctx context.Context, def *definition.AgentDefinition, history []state.QAExchange, question string) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(fmt.Sprintf(answerSystemPrompt, def.Name, def.Description)),
	}
	for _, exchange := range history {
		messages = append(messages,
			schema.UserMessage(exchange.Question),
			schema.AssistantMessage(exchange.Answer, nil),
		)
	}
	messages = append(messages, schema.UserMessage(question))

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	response, err := a.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", errx.Wrap(errx.KindBackend, "answer generation failed", err)
	}
	answer := strings.TrimSpace(response.Content)
	if answer == "" {
		return "", errx.New(errx.KindBackend, "model returned an empty answer")
	}
	return answer, nil
}
