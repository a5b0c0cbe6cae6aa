package dialogue

import (
	"context"
	"fmt"
	"strings"
)

// LocalGenerator renders deterministic template text. It never fails, so it
// always terminates a failback chain.
type LocalGenerator struct{}

func (LocalGenerator) Generate(_ context.Context, req Request) (string, error) {
	var parts []string
	if req.Greeting != "" {
		parts = append(parts, req.Greeting)
	}
	if req.AckValue != "" {
		parts = append(parts, fmt.Sprintf("Got it, %s.", req.AckValue))
	}
	if req.ValidationError != "" {
		parts = append(parts, fmt.Sprintf("Sorry, %s.", strings.TrimRight(req.ValidationError, ".")))
	}
	if req.Field != nil {
		parts = append(parts, renderQuestion(req))
	}
	separator := "\n\n"
	if req.VoiceMode {
		separator = " "
	}
	return strings.Join(parts, separator), nil
}

func renderQuestion(req Request) string {
	question := req.Field.Question
	if req.ItemCount > 0 {
		return fmt.Sprintf("Anything else? You've added %d so far. Say \"done\" when finished.", req.ItemCount)
	}
	if req.Hint && req.Field.Description != "" {
		question = fmt.Sprintf("%s (%s)", question, req.Field.Description)
	}
	if req.OptionalOffer {
		question = fmt.Sprintf("%s You can say \"skip\" if you'd rather not answer.", question)
	}
	return question
}
