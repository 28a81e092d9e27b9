package queueaccess

import (
	"errors"
	"fmt"

	"equipqr/internal/daemonctl"
)

// Session represents a queue access handle and its cleanup function.
type Session struct {
	Access Access
	// Local is set when the session drives the store directly.
	Local *Local
	close func() error
}

// Close releases resources associated with the session.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback tries daemon-backed access first, then falls back to
// direct store access. A daemon that answers but rejects the request (bad
// token, for example) is an error rather than a reason to open the store.
func OpenWithFallback(
	dial func() (*daemonctl.Client, error),
	openLocal func() (*Local, error),
) (Session, error) {
	if dial != nil {
		client, err := dial()
		if err == nil {
			return Session{
				Access: NewDaemonAccess(client),
				close:  client.Close,
			}, nil
		}
		if !errors.Is(err, daemonctl.ErrNotRunning) {
			return Session{}, fmt.Errorf("connect to daemon: %w", err)
		}
	}

	if openLocal == nil {
		return Session{}, fmt.Errorf("open queue store: no store opener configured")
	}
	local, err := openLocal()
	if err != nil {
		return Session{}, err
	}
	return Session{
		Access: local.Access(),
		Local:  local,
		close:  local.Close,
	}, nil
}
