package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittogrid/internal/logger"
	"github.com/marmos91/dittogrid/internal/protocol/packinstr"
	"github.com/marmos91/dittogrid/internal/protocol/rpc"
	"github.com/marmos91/dittogrid/internal/protocol/tag"
	"github.com/marmos91/dittogrid/internal/ratelimiter"
	"github.com/marmos91/dittogrid/pkg/metrics"
)

// Config configures a Session.
type Config struct {
	Account Account

	// DialTimeout bounds connection establishment. Zero means no limit.
	DialTimeout time.Duration

	// RequestTimeout bounds one round trip when ctx carries no deadline.
	// Zero means no limit.
	RequestTimeout time.Duration

	// RequestsPerSecond throttles calls. Zero disables throttling.
	RequestsPerSecond uint
	Burst             uint
}

// Session is a connection to one grid server on behalf of one account.
//
// Calls are issued serially; the mutex guards the connection and XID
// counter. Callers should still treat a Session as owned by one logical
// worker, since paged listings interleaved on one connection share the
// server-side cursor.
type Session struct {
	id      string
	cfg     Config
	conn    net.Conn
	limiter *ratelimiter.RateLimiter
	metrics metrics.SessionMetrics

	mu     sync.Mutex
	xid    uint32
	closed bool

	propsMu sync.Mutex
	props   *ServerProperties
}

// Dial connects to cfg.Account and returns a ready Session.
func Dial(ctx context.Context, cfg Config, m metrics.SessionMetrics) (*Session, error) {
	dialer := net.Dialer{Timeout: cfg.DialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", cfg.Account.Address())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Account.Address(), err)
	}

	return NewSession(conn, cfg, m), nil
}

// NewSession wraps an established connection. A nil m disables metrics.
func NewSession(conn net.Conn, cfg Config, m metrics.SessionMetrics) *Session {
	if m == nil {
		m = metrics.NewNoopSessionMetrics()
	}

	s := &Session{
		id:      uuid.NewString(),
		cfg:     cfg,
		conn:    conn,
		limiter: ratelimiter.New(cfg.RequestsPerSecond, cfg.Burst),
		metrics: m,
	}

	logger.Debug("session %s: connected to %s as %s#%s", s.id, conn.RemoteAddr(), cfg.Account.User, cfg.Account.Zone)
	return s
}

// ID returns the identifier used in log lines for this session.
func (s *Session) ID() string {
	return s.id
}

// Account returns the account the session acts as.
func (s *Session) Account() Account {
	return s.cfg.Account
}

// Call issues one request and waits for its reply.
//
// A non-zero reply status is returned as *StatusError. Network failures and
// malformed replies are returned wrapped; the session should be discarded
// after one, since the stream position is unknown.
func (s *Session) Call(ctx context.Context, api int32, request *tag.Tag) (*tag.Tag, error) {
	start := time.Now()

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", rpc.APIName(api), err)
	}

	reply, err := s.roundTrip(ctx, api, request)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.RecordCall(rpc.APIName(api), elapsed, 0, err)
		return nil, err
	}

	s.metrics.RecordCall(rpc.APIName(api), elapsed, reply.Header.Status, nil)
	logger.Debug("session %s: %s xid=%d status=%d in %v", s.id, rpc.APIName(api), reply.Header.XID, reply.Header.Status, elapsed)

	if reply.Header.Status < 0 {
		return nil, &StatusError{API: api, Status: reply.Header.Status}
	}
	return reply.Body, nil
}

func (s *Session) roundTrip(ctx context.Context, api int32, request *tag.Tag) (*rpc.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok && s.cfg.RequestTimeout > 0 {
		deadline = time.Now().Add(s.cfg.RequestTimeout)
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	s.xid++
	xid := s.xid

	out := &countingWriter{w: s.conn}
	if err := rpc.WriteMessage(out, rpc.MessageHeader{XID: xid, APINumber: api}, request); err != nil {
		return nil, fmt.Errorf("%s: %w", rpc.APIName(api), err)
	}
	s.metrics.RecordBytes("sent", out.n)

	in := &countingReader{r: s.conn}
	reply, err := rpc.ReadMessage(in)
	s.metrics.RecordBytes("received", in.n)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("%s: read reply: %w", rpc.APIName(api), err)
	}

	if reply.Header.XID != xid {
		return nil, fmt.Errorf("%s: reply xid %d does not match request xid %d", rpc.APIName(api), reply.Header.XID, xid)
	}
	return reply, nil
}

// ServerProperties queries the server once and caches the answer for the
// life of the session.
func (s *Session) ServerProperties(ctx context.Context) (ServerProperties, error) {
	s.propsMu.Lock()
	defer s.propsMu.Unlock()

	if s.props != nil {
		return *s.props, nil
	}

	body, err := s.Call(ctx, rpc.APIMiscServerInfo, nil)
	if err != nil {
		return ServerProperties{}, fmt.Errorf("server properties: %w", err)
	}

	info, err := packinstr.ParseServerInfo(body)
	if err != nil {
		return ServerProperties{}, fmt.Errorf("server properties: %w", err)
	}

	props := NewServerProperties(info.ReleaseVersion, info.APIVersion, info.Zone)
	s.props = &props
	logger.Debug("session %s: server release %s (%s)", s.id, props.ReleaseVersion, props.Variant)
	return props, nil
}

// Close closes the connection. Further calls return ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	logger.Debug("session %s: closed", s.id)
	return s.conn.Close()
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}
