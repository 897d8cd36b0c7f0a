package preview

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/runger/menusel/internal/menu"
)

// Default bounds for the blocking points of the channel.
const (
	DefaultReadTimeout      = 5 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// tokenBytes is the amount of randomness in a shutdown token.
const tokenBytes = 32

// Renderer produces the preview text of an option.
type Renderer interface {
	Render(ctx context.Context, opt menu.Option) (string, error)
}

// Server is a running preview channel. It owns a background worker that
// accepts connections until the shutdown token arrives.
//
// The option mapping is never mutated after Start, so connection handlers
// read it concurrently without locking.
type Server struct {
	id       string
	token    string
	options  map[string]menu.Option
	renderer Renderer
	logger   *slog.Logger

	readTimeout      time.Duration
	handshakeTimeout time.Duration

	ep *endpoint

	// ctx bounds in-flight renders; cancelled when the channel shuts down.
	ctx    context.Context
	cancel context.CancelFunc

	closing   chan struct{}
	closeOnce sync.Once
	handlers  sync.WaitGroup
	done      chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithRenderer sets the preview renderer. The default renders Text
// previews only.
func WithRenderer(r Renderer) ServerOption {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithReadTimeout bounds how long a handler waits for a client's request.
// Zero disables the bound.
func WithReadTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// WithHandshakeTimeout bounds the shutdown handshake performed by Stop.
// Zero disables the bound.
func WithHandshakeTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		s.handshakeTimeout = d
	}
}

// Start binds a fresh socket under runtimeDir (DefaultRuntimeDir when empty)
// and starts the background worker. The caller must call Stop.
func Start(runtimeDir string, options map[string]menu.Option, opts ...ServerOption) (*Server, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	s := &Server{
		id:               newSessionID(),
		token:            token,
		options:          options,
		renderer:         textRenderer{},
		logger:           slog.New(slog.DiscardHandler),
		readTimeout:      DefaultReadTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		closing:          make(chan struct{}),
		done:             make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ep, err = listen(runtimeDir, s.id)
	if err != nil {
		return nil, err
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.logger = s.logger.With("session", s.id)

	go s.serve()

	s.logger.Info("preview channel started", "addr", s.ep.path, "options", len(options))
	return s, nil
}

// Addr returns the socket address helpers connect to.
func (s *Server) Addr() string {
	return s.ep.path
}

// Token returns the session's shutdown token.
func (s *Server) Token() string {
	return s.token
}

// ID returns the session id.
func (s *Server) ID() string {
	return s.id
}

// Done is closed once the worker has stopped accepting and every
// connection handler has returned.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Stop performs the shutdown handshake and then waits for the worker to
// finish. Once Stop returns nil no further preview request is served.
// A failed handshake returns an error wrapping ErrHandshake; the listener is
// then force-closed but the worker is not waited for.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		if err := Shutdown(s.ep.path, s.token, s.handshakeTimeout); err != nil {
			s.logger.Error("preview channel handshake failed", "error", err)
			s.shutdown()
			s.stopErr = err
			return
		}
		<-s.done
		s.logger.Info("preview channel stopped")
	})
	return s.stopErr
}

// serve is the worker: it accepts connections until the listener closes.
func (s *Server) serve() {
	defer close(s.done)
	defer s.handlers.Wait()

	for {
		conn, err := s.ep.listener.Accept()
		if err != nil {
			select {
			case <-s.closing:
			default:
				s.logger.Error("preview accept failed", "error", err)
				s.shutdown()
			}
			return
		}

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(conn)
		}()
	}
}

// handle serves exactly one request on conn and closes it.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
	}
	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.logger.Warn("preview request unreadable", "error", err)
		_ = json.NewEncoder(conn).Encode(Reply{Kind: KindError, Error: "malformed request"})
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	reply := s.reply(req.Key)
	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		s.logger.Warn("preview reply failed", "error", err)
	}

	if reply.Kind == KindShutdown {
		s.shutdown()
	}
}

func (s *Server) reply(key string) Reply {
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.token)) == 1 {
		return Reply{Kind: KindShutdown, Token: s.token}
	}

	opt, ok := s.options[key]
	if !ok {
		s.logger.Debug("preview not found", "name", key)
		return Reply{Kind: KindNotFound}
	}

	text, err := s.renderer.Render(s.ctx, opt)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Reply{Kind: KindError, Error: "preview channel is shutting down"}
		}
		s.logger.Error("preview render failed", "name", key, "error", err)
		return Reply{Kind: KindError, Error: err.Error()}
	}
	s.logger.Debug("preview served", "name", key, "bytes", len(text))
	return Reply{Kind: KindPreview, Text: text}
}

// shutdown stops accepting, cancels in-flight renders and releases the
// socket. It is idempotent.
func (s *Server) shutdown() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.cancel()
		if err := s.ep.close(); err != nil {
			s.logger.Warn("preview channel cleanup failed", "error", err)
		}
	})
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate shutdown token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// textRenderer serves Text previews and rejects command previews.
type textRenderer struct{}

func (textRenderer) Render(_ context.Context, opt menu.Option) (string, error) {
	switch src := opt.Preview.(type) {
	case menu.Text:
		return string(src), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("no renderer configured for %T previews", src)
	}
}
