package session

import "context"

// Store persists the session across process restarts. The token and the
// serialized session are two entries written together and cleared together;
// a store holding one without the other is treated as holding nothing.
type Store interface {
	// Save persists the session. It replaces any previous session wholesale.
	Save(ctx context.Context, s *Session) error

	// Load returns the persisted session, or (nil, nil) when nothing usable
	// is stored. Missing or malformed data is not an error.
	Load(ctx context.Context) (*Session, error)

	// Clear removes any persisted session. Idempotent.
	Clear(ctx context.Context) error

	Close() error
}
