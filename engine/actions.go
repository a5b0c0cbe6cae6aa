package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/tbxark/fieldagent/definition"
	"github.com/tbxark/fieldagent/errx"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// RenderTemplate fills {field} placeholders from the collected values. A
// placeholder with no collected value is a definition error: completion must
// never emit a message with holes in it.
func RenderTemplate(template string, values map[string]string) (string, error) {
	var missing []string
	rendered := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[1 : len(match)-1]
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return value
	})
	if len(missing) > 0 {
		return "", errx.Newf(errx.KindMalformedDefinition, "completion template references uncollected fields: %s", strings.Join(missing, ", "))
	}
	return rendered, nil
}

const (
	actionLog           = "log"
	actionCustom        = "custom"
	actionWebhookPrefix = "webhook:"
)

// dispatchAction runs the definition's completion action. Webhook and
// custom failures fail the turn so the user can resend the confirmation;
// nothing is marked complete until the action has succeeded.
func (e *Engine) dispatchAction(ctx context.Context, def *definition.AgentDefinition, collected map[string]string) (string, error) {
	action := def.Completion.Action
	switch {
	case action == "" || action == actionLog:
		e.logger.Info().
			Str("agent", def.ID).
			Interface("fields", collected).
			Msg("collection completed")
		return "", nil
	case strings.HasPrefix(action, actionWebhookPrefix):
		return e.callWebhook(ctx, strings.TrimPrefix(action, actionWebhookPrefix), def.ID, collected)
	case action == actionCustom:
		fn, ok := e.actions[def.ID]
		if !ok {
			return "", errx.Newf(errx.KindMalformedDefinition, "agent %q declares a custom action but none is registered", def.ID)
		}
		return fn(ctx, def, collected)
	default:
		return "", errx.Newf(errx.KindMalformedDefinition, "unknown completion action %q", action)
	}
}

func (e *Engine) callWebhook(ctx context.Context, url, agentID string, collected map[string]string) (string, error) {
	payload, err := sonic.Marshal(map[string]any{
		"agent_id": agentID,
		"fields":   collected,
	})
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, e.webhookTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errx.Wrap(errx.KindBackend, "build webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", errx.Wrap(errx.KindBackend, "webhook call failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errx.Newf(errx.KindBackend, "webhook returned status %d", resp.StatusCode)
	}
	return fmt.Sprintf("webhook %s accepted with status %d", url, resp.StatusCode), nil
}
