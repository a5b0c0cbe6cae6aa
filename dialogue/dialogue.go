// Package dialogue renders the assistant side of the conversation: the next
// question, the confirmation summary, and answers to user questions. A
// template generator produces deterministic text; an optional model
// generator rephrases it into natural language, falling back to the
// template on any failure.
package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbxark/fieldagent/definition"
)

// Request describes the next assistant turn to render.
type Request struct {
	// Field is the field the question asks for.
	Field *definition.FieldSpec
	// Greeting prefixes the first question of a session.
	Greeting string
	// AckValue is the value just committed, acknowledged before the next
	// question. Empty means no acknowledgment.
	AckValue string
	// ValidationError re-asks after a rejected value.
	ValidationError string
	// Hint appends the field description after repeated failures.
	Hint bool
	// OptionalOffer marks the field as skippable in the phrasing.
	OptionalOffer bool
	// ItemCount is the number of items collected so far for an iterative
	// field; the phrasing switches to "anything else" after the first.
	ItemCount int
	// VoiceMode joins sentences for speech output instead of paragraphs.
	VoiceMode bool
}

// Generator renders the message for one request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Failback tries generators in order and returns the first success.
type Failback struct {
	generators []Generator
}

func NewFailback(generators ...Generator) *Failback {
	return &Failback{generators: generators}
}

func (g *Failback) Generate(ctx context.Context, req Request) (string, error) {
	var lastErr error
	for _, generator := range g.generators {
		message, err := generator.Generate(ctx, req)
		if err == nil {
			return message, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all dialogue generators failed: %w", lastErr)
}

// RenderSummary builds the confirmation summary shown before completion.
// Fields appear in definition order; declined optionals are omitted. Voice
// mode renders one flat sentence instead of a bullet list.
func RenderSummary(def *definition.AgentDefinition, collected map[string]string, voiceMode bool) string {
	if voiceMode {
		var parts []string
		for i := range def.Fields {
			f := &def.Fields[i]
			value, ok := collected[f.Name]
			if !ok {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s is %s", displayName(f.Name), value))
		}
		return fmt.Sprintf("Here's what I have: %s. Is everything correct?", strings.Join(parts, ", "))
	}
	var sb strings.Builder
	sb.WriteString("Here's what I have:\n")
	for i := range def.Fields {
		f := &def.Fields[i]
		value, ok := collected[f.Name]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", displayName(f.Name), value))
	}
	sb.WriteString("\nIs everything correct?")
	return sb.String()
}

func displayName(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
