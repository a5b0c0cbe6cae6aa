// Package checkpoint persists conversation state between turns. Snapshots
// travel inside a versioned envelope so a store can refuse payloads written
// by an incompatible release instead of resuming from garbage.
package checkpoint

import (
	"context"
	"time"

	"github.com/bytedance/sonic"

	"github.com/tbxark/fieldagent/errx"
	"github.com/tbxark/fieldagent/state"
)

// Version is the envelope format version. Bump it on any breaking change
// to the state layout.
const Version = "1.0"

// Store is the persistence contract. Load of an unknown session returns a
// not-found error; Save overwrites atomically from the caller's view.
type Store interface {
	Load(ctx context.Context, sessionID string) (*state.Conversation, error)
	Save(ctx context.Context, conv *state.Conversation) error
	Delete(ctx context.Context, sessionID string) error
}

// codec sorts map keys so the same state always encodes to the same bytes.
var codec = sonic.ConfigStd

type envelope struct {
	Version   string              `json:"version"`
	State     *state.Conversation `json:"state"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Encode wraps the state in an envelope and marshals it.
func Encode(conv *state.Conversation) ([]byte, error) {
	return codec.Marshal(envelope{
		Version:   Version,
		State:     conv,
		UpdatedAt: time.Now().UTC(),
	})
}

// Decode unwraps an envelope, rejecting version mismatches.
func Decode(payload []byte) (*state.Conversation, error) {
	var env envelope
	if err := codec.Unmarshal(payload, &env); err != nil {
		return nil, errx.Wrap(errx.KindBackend, "corrupt checkpoint payload", err)
	}
	if env.Version != Version {
		return nil, errx.Newf(errx.KindBackend, "checkpoint version %q, want %q", env.Version, Version)
	}
	if env.State == nil {
		return nil, errx.New(errx.KindBackend, "checkpoint has no state")
	}
	return env.State, nil
}

func notFound(sessionID string) error {
	return errx.Newf(errx.KindNotFound, "no checkpoint for session %q", sessionID)
}
