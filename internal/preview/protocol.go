// Package preview implements the preview channel: a short-lived Unix socket
// that serves option previews to helper processes spawned by the chooser
// during one selection session.
//
// Each connection carries exactly one request and one reply:
//
//	client: {"key":"<option name or shutdown token>"}
//	server: {"kind":"preview","text":"..."}
//	        {"kind":"not_found"}
//	        {"kind":"shutdown","token":"..."}
//	        {"kind":"error","error":"..."}
//
// after which the server closes the connection. A request carrying the
// session's shutdown token is echoed back and ends the server.
package preview

import (
	"errors"
)

// Kind discriminates replies.
type Kind string

// Reply kinds.
const (
	KindPreview  Kind = "preview"
	KindNotFound Kind = "not_found"
	KindShutdown Kind = "shutdown"
	KindError    Kind = "error"
)

// Request is the single message a client sends.
type Request struct {
	Key string `json:"key"`
}

// Reply is the single message the server sends back.
type Reply struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text,omitempty"`
	Token string `json:"token,omitempty"`
	Error string `json:"error,omitempty"`
}

var (
	// ErrNotFound is reported for a name that is not part of the session.
	ErrNotFound = errors.New("no preview available")

	// ErrHandshake means the shutdown handshake failed: the server did not
	// echo the token. The server worker died or diverged from the protocol,
	// which is an internal bug and must not be ignored.
	ErrHandshake = errors.New("preview channel shutdown handshake failed")
)

// Err converts a non-preview reply into an error.
func (r Reply) Err() error {
	switch r.Kind {
	case KindPreview:
		return nil
	case KindNotFound:
		return ErrNotFound
	case KindError:
		return errors.New(r.Error)
	default:
		return errors.New("unexpected reply kind " + string(r.Kind))
	}
}
