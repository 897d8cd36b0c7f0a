package preview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"
)

// Resolve asks the channel at addr for the preview of name. A reply other
// than a preview is returned together with its Reply.Err.
func Resolve(ctx context.Context, addr, name string) (string, error) {
	reply, err := exchange(ctx, addr, Request{Key: name})
	if err != nil {
		return "", err
	}
	if err := reply.Err(); err != nil {
		return "", err
	}
	return reply.Text, nil
}

// Shutdown sends token to the channel at addr and verifies that it is echoed
// back. Any failure wraps ErrHandshake. A zero timeout waits indefinitely.
func Shutdown(addr, token string, timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := exchange(ctx, addr, Request{Key: token})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshake, err)
	}
	if reply.Kind != KindShutdown || reply.Token != token {
		return fmt.Errorf("%w: got %q reply", ErrHandshake, reply.Kind)
	}
	return nil
}

// exchange performs one request/reply round trip.
func exchange(ctx context.Context, addr string, req Request) (Reply, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", addr)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to connect to preview channel: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return Reply{}, wrapCtx(ctx, fmt.Errorf("failed to send preview request: %w", err))
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, wrapCtx(ctx, fmt.Errorf("failed to read preview reply: %w", err))
	}
	return reply, nil
}

// wrapCtx attaches the context's error when it caused err.
func wrapCtx(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil && !errors.Is(err, cerr) {
		return fmt.Errorf("%w: %w", cerr, err)
	}
	return err
}
