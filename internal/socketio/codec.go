// Package socketio encodes and decodes the subset of Engine.IO v4 and
// Socket.IO v5 text packets used by the election push channel.
package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Path is the Engine.IO endpoint for the websocket transport.
const Path = "/socket.io/"

// Engine.IO packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioUpgrade = '5'
	eioNoop    = '6'
)

// Socket.IO packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioAck          = '3'
	sioConnectError = '4'
)

type Kind int

const (
	KindOpen Kind = iota
	KindClose
	KindPing
	KindPong
	KindNoop
	KindConnect
	KindDisconnect
	KindEvent
	KindAck
	KindConnectError
)

// Handshake is the payload of the Engine.IO open packet. Intervals are in
// milliseconds.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload,omitempty"`
}

type Packet struct {
	Kind      Kind
	Namespace string
	Event     string
	Data      json.RawMessage // first event argument, connect payload or error
	Handshake *Handshake
}

var ErrMalformed = errors.New("malformed packet")

// Decode parses one websocket text frame.
func Decode(frame []byte) (Packet, error) {
	if len(frame) == 0 {
		return Packet{}, fmt.Errorf("%w: empty frame", ErrMalformed)
	}

	switch frame[0] {
	case eioOpen:
		var h Handshake
		if err := json.Unmarshal(frame[1:], &h); err != nil {
			return Packet{}, fmt.Errorf("%w: open: %v", ErrMalformed, err)
		}
		return Packet{Kind: KindOpen, Handshake: &h}, nil
	case eioClose:
		return Packet{Kind: KindClose}, nil
	case eioPing:
		return Packet{Kind: KindPing}, nil
	case eioPong:
		return Packet{Kind: KindPong}, nil
	case eioNoop, eioUpgrade:
		return Packet{Kind: KindNoop}, nil
	case eioMessage:
		return decodeMessage(string(frame[1:]))
	default:
		return Packet{}, fmt.Errorf("%w: unknown engine.io type %q", ErrMalformed, frame[0])
	}
}

func decodeMessage(s string) (Packet, error) {
	if s == "" {
		return Packet{}, fmt.Errorf("%w: empty message", ErrMalformed)
	}
	typ, rest := s[0], s[1:]

	nsp := "/"
	if strings.HasPrefix(rest, "/") {
		i := strings.IndexByte(rest, ',')
		if i < 0 {
			nsp, rest = rest, ""
		} else {
			nsp, rest = rest[:i], rest[i+1:]
		}
	}
	// Ack ids are not used by this channel; skip them.
	rest = strings.TrimLeft(rest, "0123456789")

	p := Packet{Namespace: nsp}
	switch typ {
	case sioConnect:
		p.Kind = KindConnect
		p.Data = json.RawMessage(rest)
	case sioDisconnect:
		p.Kind = KindDisconnect
	case sioAck:
		p.Kind = KindAck
	case sioConnectError:
		p.Kind = KindConnectError
		p.Data = json.RawMessage(rest)
	case sioEvent:
		var args []json.RawMessage
		if err := json.Unmarshal([]byte(rest), &args); err != nil {
			return Packet{}, fmt.Errorf("%w: event: %v", ErrMalformed, err)
		}
		if len(args) == 0 {
			return Packet{}, fmt.Errorf("%w: event without name", ErrMalformed)
		}
		if err := json.Unmarshal(args[0], &p.Event); err != nil {
			return Packet{}, fmt.Errorf("%w: event name: %v", ErrMalformed, err)
		}
		p.Kind = KindEvent
		if len(args) > 1 {
			p.Data = args[1]
		}
	default:
		return Packet{}, fmt.Errorf("%w: unknown socket.io type %q", ErrMalformed, typ)
	}
	return p, nil
}

// ErrorMessage extracts the message of a connect-error payload.
func (p Packet) ErrorMessage() string {
	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(p.Data, &body) == nil && body.Message != "" {
		return body.Message
	}
	return string(p.Data)
}

var (
	PingFrame       = []byte{eioPing}
	PongFrame       = []byte{eioPong}
	CloseFrame      = []byte{eioClose}
	ConnectFrame    = []byte{eioMessage, sioConnect}
	DisconnectFrame = []byte{eioMessage, sioDisconnect}
)

func EncodeOpen(h Handshake) ([]byte, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return append([]byte{eioOpen}, b...), nil
}

// EncodeConnected is the server's answer to a namespace connect.
func EncodeConnected(sid string) ([]byte, error) {
	b, err := json.Marshal(map[string]string{"sid": sid})
	if err != nil {
		return nil, err
	}
	return append([]byte{eioMessage, sioConnect}, b...), nil
}

func EncodeConnectError(message string) ([]byte, error) {
	b, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, err
	}
	return append([]byte{eioMessage, sioConnectError}, b...), nil
}

// EncodeEvent builds a `42["event",data]` frame for the default namespace.
func EncodeEvent(event string, data any) ([]byte, error) {
	b, err := json.Marshal([]any{event, data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s event: %w", event, err)
	}
	return append([]byte{eioMessage, sioEvent}, b...), nil
}
