// Package realtime keeps the one push-channel connection of the process
// and forwards its events into the store.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/atomic"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/metrics"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/socketio"
)

// Names of the synthetic events emitted for connection changes.
const (
	EventConnect      = "connect"
	EventDisconnect   = "disconnect"
	EventConnectError = "connect_error"
	EventInitialData  = "initial-data"
)

var (
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	errServerDisconnect   = errors.New("server closed the namespace")
	errPingTimeout        = errors.New("ping timeout")
)

// Handler receives every channel event in server order on the read
// goroutine.
type Handler interface {
	HandleEvent(name string, data json.RawMessage)
}

type Config struct {
	URL               string
	ReconnectDelay    time.Duration
	ReconnectAttempts int
	DialTimeout       time.Duration
	// InitialDataGrace is how long a fresh connection may go without
	// initial-data before OnResync is called.
	InitialDataGrace time.Duration
	// OnResync, when set, refreshes state over REST. It runs on the read
	// goroutine so its dispatches stay ordered with pushed events.
	OnResync func(ctx context.Context)
}

type Client struct {
	cfg     Config
	handler Handler
	metrics *metrics.ClientMetrics

	connected *atomic.Bool
	attempts  *atomic.Int32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func New(cfg Config, h Handler, m *metrics.ClientMetrics) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.InitialDataGrace <= 0 {
		cfg.InitialDataGrace = 2 * time.Second
	}
	return &Client{
		cfg:       cfg,
		handler:   h,
		metrics:   m,
		connected: atomic.NewBool(false),
		attempts:  atomic.NewInt32(0),
	}
}

// Start connects in the background. It must be called at most once.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != nil {
		return
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		err := c.run(ctx)
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	}()
}

func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Done is closed when the client stops, either through Close or after
// the reconnect budget is spent.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Err returns ErrReconnectExhausted once the client gave up.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close disconnects and waits for the read loop to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (c *Client) run(ctx context.Context) error {
	wsURL, err := socketURL(c.cfg.URL)
	if err != nil {
		return err
	}

	failures := 0
	for {
		established, err := c.session(ctx, wsURL)
		if ctx.Err() != nil {
			if established {
				c.setConnected(false)
				c.emit(EventDisconnect, nil)
			}
			return nil
		}

		if established {
			failures = 0
			c.setConnected(false)
			logging.Log.Warnf("REALTIME: disconnected: %v", err)
			c.emit(EventDisconnect, nil)
		} else {
			logging.Log.Warnf("REALTIME: connection failed: %v", err)
			c.emit(EventConnectError, nil)
		}

		if failures >= c.cfg.ReconnectAttempts {
			logging.Log.Infof("REALTIME: giving up after %d reconnect attempts", failures)
			return ErrReconnectExhausted
		}
		failures++
		c.attempts.Inc()
		c.metrics.ReconnectAttempts.Inc()

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
		logging.Log.Infof("REALTIME: reconnect attempt %d/%d", failures, c.cfg.ReconnectAttempts)
	}
}

type frame struct {
	msg []byte
	err error
}

// session runs one connection until it drops. established reports whether
// the namespace connect succeeded.
func (c *Client) session(ctx context.Context, wsURL string) (established bool, err error) {
	dialCtx, cancelDial := context.WithTimeout(ctx, c.cfg.DialTimeout)
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	cancelDial()
	if err != nil {
		return false, fmt.Errorf("failed to dial %s: %w", wsURL, err)
	}
	defer conn.CloseNow()
	conn.SetReadLimit(1 << 20)

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan frame)
	go func() {
		for {
			_, msg, err := conn.Read(sctx)
			select {
			case frames <- frame{msg: msg, err: err}:
			case <-sctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	hs, err := c.handshake(sctx, conn, frames)
	if err != nil {
		return false, err
	}

	c.setConnected(true)
	logging.Log.Infof("REALTIME: connected to %s", c.cfg.URL)
	c.emit(EventConnect, nil)

	pingWait := time.Duration(hs.PingInterval+hs.PingTimeout) * time.Millisecond
	pingTimer := time.NewTimer(pingWait)
	defer pingTimer.Stop()
	grace := time.NewTimer(c.cfg.InitialDataGrace)
	defer grace.Stop()
	gotInitial := false

	for {
		select {
		case <-ctx.Done():
			wctx, cancelWrite := context.WithTimeout(context.Background(), time.Second)
			_ = conn.Write(wctx, websocket.MessageText, socketio.DisconnectFrame)
			cancelWrite()
			conn.Close(websocket.StatusNormalClosure, "client exit")
			return true, nil

		case <-pingTimer.C:
			return true, errPingTimeout

		case <-grace.C:
			if !gotInitial {
				logging.Log.Warnf("REALTIME: no initial-data within %s, resyncing", c.cfg.InitialDataGrace)
				c.metrics.InitialDataMissing.Inc()
				if c.cfg.OnResync != nil {
					c.cfg.OnResync(sctx)
				}
			}

		case f := <-frames:
			if f.err != nil {
				return true, fmt.Errorf("read failed: %w", f.err)
			}
			pingTimer.Reset(pingWait)

			p, err := socketio.Decode(f.msg)
			if err != nil {
				logging.Log.Warnf("REALTIME: dropping frame: %v", err)
				continue
			}

			switch p.Kind {
			case socketio.KindPing:
				if err := conn.Write(sctx, websocket.MessageText, socketio.PongFrame); err != nil {
					return true, fmt.Errorf("failed to answer ping: %w", err)
				}
			case socketio.KindClose, socketio.KindDisconnect:
				return true, errServerDisconnect
			case socketio.KindEvent:
				if p.Namespace != "/" {
					continue
				}
				if p.Event == EventInitialData {
					gotInitial = true
				}
				c.emit(p.Event, p.Data)
			}
		}
	}
}

// handshake reads the Engine.IO open packet and connects the default
// namespace.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn, frames <-chan frame) (*socketio.Handshake, error) {
	var hs *socketio.Handshake
	for {
		var f frame
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.DialTimeout):
			return nil, errors.New("handshake timed out")
		case f = <-frames:
		}
		if f.err != nil {
			return nil, fmt.Errorf("handshake read failed: %w", f.err)
		}

		p, err := socketio.Decode(f.msg)
		if err != nil {
			return nil, fmt.Errorf("handshake: %w", err)
		}

		switch p.Kind {
		case socketio.KindOpen:
			hs = p.Handshake
			if err := conn.Write(ctx, websocket.MessageText, socketio.ConnectFrame); err != nil {
				return nil, fmt.Errorf("failed to connect namespace: %w", err)
			}
		case socketio.KindConnect:
			if hs == nil {
				return nil, errors.New("handshake: connect before open")
			}
			return hs, nil
		case socketio.KindConnectError:
			return nil, fmt.Errorf("server refused connection: %s", p.ErrorMessage())
		case socketio.KindPing:
			if err := conn.Write(ctx, websocket.MessageText, socketio.PongFrame); err != nil {
				return nil, fmt.Errorf("failed to answer ping: %w", err)
			}
		}
	}
}

func (c *Client) setConnected(v bool) {
	c.connected.Store(v)
	if v {
		c.metrics.Connected.Set(1)
	} else {
		c.metrics.Connected.Set(0)
	}
}

func (c *Client) emit(name string, data json.RawMessage) {
	c.metrics.EventsReceived.WithLabelValues(name).Inc()
	c.handler.HandleEvent(name, data)
}

// socketURL turns the configured http(s) base URL into the Engine.IO
// websocket endpoint.
func socketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid socket URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid socket URL %q: unsupported scheme", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + socketio.Path
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
