package pubsub

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/logging"
	"github.com/u2hhzgf0/bangladesh-election-2026-tracker/internal/socketio"
)

const defaultNamespace = "/"

type Message struct {
	Namespace string
	Data      []byte
}

// one Socket.IO client connected via websocket
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	SID       string
	Namespace string
}

type join struct {
	client *Client
}

// Hub fans pushed events out to every client joined to a namespace. All
// writes to and closes of a client's Send channel happen on the Run
// goroutine.
type Hub struct {
	Clients    map[string]map[*Client]bool
	Broadcast  chan *Message
	Join       chan *join
	Unregister chan *Client

	// InitialData returns the payload of the initial-data event sent to
	// every client right after it joins.
	InitialData func() any

	PingInterval time.Duration
	PingTimeout  time.Duration

	done chan struct{}
}

func NewHub(initialData func() any) *Hub {
	return &Hub{
		Clients:      make(map[string]map[*Client]bool),
		Broadcast:    make(chan *Message),
		Join:         make(chan *join),
		Unregister:   make(chan *Client),
		InitialData:  initialData,
		PingInterval: 25 * time.Second,
		PingTimeout:  20 * time.Second,
		done:         make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.Clients {
				for c := range conns {
					close(c.Send)
				}
			}
			h.Clients = make(map[string]map[*Client]bool)
			return

		case j := <-h.Join:
			client := j.client
			conns := h.Clients[client.Namespace]
			if conns == nil {
				conns = make(map[*Client]bool)
				h.Clients[client.Namespace] = conns
			}
			conns[client] = true

			ack, err := socketio.EncodeConnected(client.SID)
			if err == nil {
				client.Send <- ack
			}
			if h.InitialData != nil {
				if b, err := socketio.EncodeEvent("initial-data", h.InitialData()); err == nil {
					client.Send <- b
				}
			}

		case client := <-h.Unregister:
			conns := h.Clients[client.Namespace]
			if conns != nil {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.Send)
					if len(conns) == 0 {
						delete(h.Clients, client.Namespace)
					}
				}
			}

		case message := <-h.Broadcast:
			conns := h.Clients[message.Namespace]
			for c := range conns {
				select {
				case c.Send <- message.Data:

				default:
					logging.Log.Warnf("HUB: dropping slow client %s", c.SID)
					close(c.Send)
					delete(conns, c)
				}
			}
		}
	}
}

// Emit broadcasts event to the default namespace. It returns false once
// the hub has stopped.
func (h *Hub) Emit(event string, data any) bool {
	b, err := socketio.EncodeEvent(event, data)
	if err != nil {
		logging.Log.Errorf("HUB: %v", err)
		return false
	}
	select {
	case h.Broadcast <- &Message{Namespace: defaultNamespace, Data: b}:
		return true
	case <-h.done:
		return false
	}
}

// ServeHTTP upgrades an Engine.IO websocket request and runs the client
// until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("EIO") != "4" || r.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "unsupported transport", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		logging.Log.Errorf("HUB: websocket accept failed: %v", err)
		return
	}

	c := &Client{
		Hub:       h,
		Conn:      conn,
		Send:      make(chan []byte, 64),
		SID:       uuid.NewString(),
		Namespace: defaultNamespace,
	}

	open, err := socketio.EncodeOpen(socketio.Handshake{
		SID:          c.SID,
		Upgrades:     []string{},
		PingInterval: int(h.PingInterval / time.Millisecond),
		PingTimeout:  int(h.PingTimeout / time.Millisecond),
		MaxPayload:   1000000,
	})
	if err != nil {
		conn.CloseNow()
		return
	}
	if err := conn.Write(r.Context(), websocket.MessageText, open); err != nil {
		conn.CloseNow()
		return
	}

	go c.WritePump()
	c.ReadPump()
}

// WritePump sends queued frames and periodic pings to the connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.Hub.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case m, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(context.Background(), websocket.MessageText, m); err != nil {
				logging.Log.Debugf("HUB: error writing to client %s: %v", c.SID, err)
				return
			}
		case <-ticker.C:
			if err := c.Conn.Write(context.Background(), websocket.MessageText, socketio.PingFrame); err != nil {
				return
			}
		}
	}
}

// ReadPump handles namespace connects and pongs until the client leaves
func (c *Client) ReadPump() {
	joined := false
	defer func() {
		if joined {
			select {
			case c.Hub.Unregister <- c:
			case <-c.Hub.done:
			}
		} else {
			close(c.Send)
		}
		c.Conn.CloseNow()
	}()

	for {
		_, msg, err := c.Conn.Read(context.Background())
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				logging.Log.Debugf("HUB: client %s disconnected normally.", c.SID)
			} else {
				logging.Log.Debugf("HUB: error reading from client %s: %v", c.SID, err)
			}
			return
		}

		p, err := socketio.Decode(msg)
		if err != nil {
			logging.Log.Debugf("HUB: bad frame from %s: %v", c.SID, err)
			continue
		}

		switch p.Kind {
		case socketio.KindConnect:
			if joined || p.Namespace != defaultNamespace {
				continue
			}
			select {
			case c.Hub.Join <- &join{client: c}:
				joined = true
			case <-c.Hub.done:
				return
			}
		case socketio.KindDisconnect, socketio.KindClose:
			return
		}
	}
}
