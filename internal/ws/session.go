package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"parley/internal/metrics"
	"parley/internal/models"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotConnected = errors.New("session is not connected")
	ErrClosed       = errors.New("session is closed")
	ErrNoToken      = errors.New("no auth token")
)

// Handler receives inbound frames and state changes of a session.
// Both methods run on the session loop goroutine, in arrival order,
// and must not call back into Session.Send or Session.Close.
type Handler interface {
	HandleFrame(frame models.InboundFrame)
	HandleState(state models.ConnectionState)
}

type Config struct {
	Token string
	// Subscribe is sent right after the server authenticates the socket.
	Subscribe  models.OutboundFrame
	Backoff    Backoff
	MaxRetries int
	Heartbeat  time.Duration
}

func (c *Config) setDefaults() {
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = DefaultBaseDelay
	}
	if c.Backoff.Max <= 0 {
		c.Backoff.Max = DefaultMaxDelay
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
}

type Option func(*Session)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// Session owns one socket connection for one conversation view: auth
// handshake, subscribe, heartbeat, dispatch and reconnect with backoff.
// All connection state is mutated on the goroutine running Run.
type Session struct {
	cfg     Config
	dialer  Dialer
	handler Handler
	log     zerolog.Logger
	metrics *metrics.Metrics

	// schedule runs f once after d; the returned func cancels it.
	schedule func(d time.Duration, f func()) (cancel func())

	events   chan event
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	state     atomic.Value
	attempts  atomic.Int32
	exhausted atomic.Bool

	// Owned by the loop goroutine.
	conn            Conn
	gen             int
	authed          bool
	heartbeat       *time.Ticker
	cancelReconnect func()
}

type event any

type dialed struct {
	gen  int
	conn Conn
	err  error
}

type received struct {
	gen  int
	data []byte
}

type dropped struct {
	gen int
	err error
}

type reconnectDue struct{}

type sendRequest struct {
	frame  models.OutboundFrame
	result chan error
}

func NewSession(cfg Config, dialer Dialer, handler Handler, opts ...Option) *Session {
	cfg.setDefaults()
	s := &Session{
		cfg:     cfg,
		dialer:  dialer,
		handler: handler,
		log:     log.With().Str("component", "ws").Logger(),
		schedule: func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		},
		events: make(chan event, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.state.Store(models.StateConnecting)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current connection state.
func (s *Session) State() models.ConnectionState {
	return s.state.Load().(models.ConnectionState)
}

// Exhausted reports whether the session gave up reconnecting.
func (s *Session) Exhausted() bool {
	return s.exhausted.Load()
}

// Attempts returns the reconnect counter.
func (s *Session) Attempts() int {
	return int(s.attempts.Load())
}

// Run connects and processes socket events until ctx is cancelled or
// Close is called.
func (s *Session) Run(ctx context.Context) error {
	if s.cfg.Token == "" {
		return ErrNoToken
	}
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("session is already running")
	}
	defer close(s.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	select {
	case <-s.stop:
		s.teardown()
		return nil
	default:
	}

	s.connect(ctx)
	for {
		var tick <-chan time.Time
		if s.heartbeat != nil {
			tick = s.heartbeat.C
		}

		select {
		case <-ctx.Done():
			s.teardown()
			return nil
		case <-s.stop:
			s.teardown()
			return nil
		case <-tick:
			if err := s.write(models.PingFrame{}); err != nil {
				s.log.Warn().Err(err).Msg("heartbeat failed")
			}
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

// Close tears the session down deliberately: no reconnect is attempted,
// timers are cancelled and the socket is closed. Safe to call repeatedly.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.running.Load() {
		<-s.done
	}
}

// Send writes one frame. It fails with ErrNotConnected until the server
// has authenticated the socket.
func (s *Session) Send(frame models.OutboundFrame) error {
	if frame.FrameType() == models.FrameAuth {
		return errors.New("auth frames are sent by the session itself")
	}
	if !s.running.Load() {
		return ErrNotConnected
	}

	req := sendRequest{frame: frame, result: make(chan error, 1)}
	select {
	case s.events <- req:
	case <-s.stop:
		return ErrClosed
	case <-s.done:
		return ErrClosed
	}

	select {
	case err := <-req.result:
		return err
	case <-s.done:
		return ErrClosed
	}
}

func (s *Session) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case dialed:
		s.onDialed(ev)
	case received:
		if ev.gen == s.gen {
			s.onReceived(ev.data)
		}
	case dropped:
		if ev.gen == s.gen {
			s.log.Warn().Err(ev.err).Msg("socket closed")
			s.disconnect()
		}
	case reconnectDue:
		s.cancelReconnect = nil
		s.connect(ctx)
	case sendRequest:
		ev.result <- s.send(ev.frame)
	}
}

func (s *Session) connect(ctx context.Context) {
	s.gen++
	gen := s.gen
	s.setState(models.StateConnecting)

	go func() {
		conn, err := s.dialer.Dial(ctx, s.cfg.Token)
		if !s.post(dialed{gen: gen, conn: conn, err: err}) && conn != nil {
			_ = conn.Close()
		}
	}()
}

func (s *Session) onDialed(ev dialed) {
	if ev.gen != s.gen {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	if ev.err != nil {
		s.log.Warn().Err(ev.err).Msg("dial failed")
		s.disconnect()
		return
	}

	s.conn = ev.conn
	go s.pump(ev.gen, ev.conn)

	if err := s.write(models.AuthFrame{Token: s.cfg.Token}); err != nil {
		s.log.Warn().Err(err).Msg("failed to send auth frame")
		s.disconnect()
	}
}

func (s *Session) pump(gen int, conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.post(dropped{gen: gen, err: err})
			return
		}
		if !s.post(received{gen: gen, data: data}) {
			return
		}
	}
}

func (s *Session) onReceived(data []byte) {
	frame, err := models.DecodeInbound(data)
	if err != nil {
		s.metrics.MalformedFrame()
		s.log.Warn().Err(err).Msg("dropping inbound frame")
		return
	}
	s.metrics.FrameReceived(string(frame.FrameType()))

	switch f := frame.(type) {
	case models.Authenticated:
		s.authed = true
		s.attempts.Store(0)
		s.setState(models.StateConnected)
		if s.cfg.Subscribe != nil {
			if err := s.write(s.cfg.Subscribe); err != nil {
				s.log.Warn().Err(err).Msg("failed to subscribe")
			}
		}
		if s.cfg.Heartbeat > 0 {
			s.heartbeat = time.NewTicker(s.cfg.Heartbeat)
		}
	case models.Pong:
	case models.ErrorEvent:
		s.log.Error().Str("message", f.Message).Msg("server reported an error")
	case models.Unknown:
		s.log.Warn().Str("type", string(f.Type)).Msg("unhandled frame type")
	default:
		s.handler.HandleFrame(frame)
	}
}

func (s *Session) send(frame models.OutboundFrame) error {
	if s.conn == nil || !s.authed {
		return ErrNotConnected
	}
	return s.write(frame)
}

func (s *Session) write(frame models.OutboundFrame) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	data, err := models.EncodeFrame(frame)
	if err != nil {
		return err
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write %s frame: %w", frame.FrameType(), err)
	}
	s.metrics.FrameSent(string(frame.FrameType()))
	return nil
}

// disconnect handles an unplanned close and schedules the next attempt.
func (s *Session) disconnect() {
	s.dropConnection()
	s.setState(models.StateDisconnected)

	attempts := int(s.attempts.Load())
	if attempts >= s.cfg.MaxRetries {
		s.exhausted.Store(true)
		s.log.Error().Int("attempts", attempts).Msg("giving up reconnecting")
		return
	}

	delay := s.cfg.Backoff.Delay(attempts)
	s.attempts.Store(int32(attempts + 1))
	s.metrics.ReconnectScheduled()
	s.log.Info().Int("attempt", attempts+1).Dur("delay", delay).Msg("reconnect scheduled")
	s.cancelReconnect = s.schedule(delay, func() { s.post(reconnectDue{}) })
}

func (s *Session) teardown() {
	if s.cancelReconnect != nil {
		s.cancelReconnect()
		s.cancelReconnect = nil
	}
	s.dropConnection()
	s.setState(models.StateDisconnected)
}

func (s *Session) dropConnection() {
	// Events of the dropped connection are ignored from here on.
	s.gen++
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.authed = false
}

func (s *Session) setState(state models.ConnectionState) {
	old := s.state.Swap(state).(models.ConnectionState)
	if old == state {
		return
	}
	switch {
	case state == models.StateConnected:
		s.metrics.SessionConnected()
	case old == models.StateConnected:
		s.metrics.SessionDisconnected()
	}
	if s.handler != nil {
		s.handler.HandleState(state)
	}
}
