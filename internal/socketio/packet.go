// Package socketio implements the subset of Engine.IO v4 and Socket.IO v5
// framing needed to talk to the simulation backend over a raw websocket.
package socketio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

var (
	// ErrMalformed is returned for frames that do not parse.
	ErrMalformed = errors.New("socketio: malformed packet")
	// ErrBinaryUnsupported is returned for binary event and ack packets.
	ErrBinaryUnsupported = errors.New("socketio: binary packets are not supported")
)

// EngineType is an Engine.IO packet type.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// OpenPayload is sent by the server in the Engine.IO open packet.
type OpenPayload struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload,omitempty"`
}

// DecodeEngine splits a websocket text frame into its Engine.IO type and data.
func DecodeEngine(frame []byte) (EngineType, []byte, error) {
	if len(frame) == 0 {
		return 0, nil, fmt.Errorf("%w: empty frame", ErrMalformed)
	}
	t := EngineType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, nil, fmt.Errorf("%w: engine type %q", ErrMalformed, frame[0])
	}
	return t, frame[1:], nil
}

// EncodeEngine prefixes data with the Engine.IO type.
func EncodeEngine(t EngineType, data []byte) []byte {
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(t))
	return append(out, data...)
}

// PacketType is a Socket.IO packet type.
type PacketType byte

const (
	Connect      PacketType = '0'
	Disconnect   PacketType = '1'
	Event        PacketType = '2'
	Ack          PacketType = '3'
	ConnectError PacketType = '4'
	BinaryEvent  PacketType = '5'
	BinaryAck    PacketType = '6'
)

// Packet is a decoded Socket.IO packet. Namespace "/" is the default
// namespace; ID is -1 when the packet carries no ack id.
type Packet struct {
	Type      PacketType
	Namespace string
	ID        int
	Data      json.RawMessage
}

// DecodePacket parses the data of an Engine.IO message packet.
func DecodePacket(data []byte) (Packet, error) {
	p := Packet{Namespace: "/", ID: -1}
	if len(data) == 0 {
		return p, fmt.Errorf("%w: empty packet", ErrMalformed)
	}
	p.Type = PacketType(data[0])
	switch p.Type {
	case Connect, Disconnect, Event, Ack, ConnectError:
	case BinaryEvent, BinaryAck:
		return p, ErrBinaryUnsupported
	default:
		return p, fmt.Errorf("%w: packet type %q", ErrMalformed, data[0])
	}
	rest := string(data[1:])

	if strings.HasPrefix(rest, "/") {
		end := strings.IndexByte(rest, ',')
		if end < 0 {
			// Namespace with no payload, e.g. "1/ws/demo".
			p.Namespace = rest
			return p, nil
		}
		p.Namespace = rest[:end]
		rest = rest[end+1:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(rest[:digits])
		if err != nil {
			return p, fmt.Errorf("%w: ack id: %v", ErrMalformed, err)
		}
		p.ID = id
		rest = rest[digits:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return p, fmt.Errorf("%w: invalid json payload", ErrMalformed)
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// Encode renders the packet without the Engine.IO prefix.
func (p Packet) Encode() []byte {
	var b strings.Builder
	b.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != "/" {
		b.WriteString(p.Namespace)
		b.WriteByte(',')
	}
	if p.ID >= 0 {
		b.WriteString(strconv.Itoa(p.ID))
	}
	b.Write(p.Data)
	return []byte(b.String())
}

// Message renders the packet as a complete Engine.IO message frame.
func (p Packet) Message() []byte {
	return EncodeEngine(EngineMessage, p.Encode())
}

// Event returns the event name and its first argument.
func (p Packet) Event() (string, json.RawMessage, error) {
	if p.Type != Event {
		return "", nil, fmt.Errorf("%w: not an event packet", ErrMalformed)
	}
	var args []json.RawMessage
	if err := json.Unmarshal(p.Data, &args); err != nil {
		return "", nil, fmt.Errorf("%w: event args: %v", ErrMalformed, err)
	}
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%w: event without name", ErrMalformed)
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name: %v", ErrMalformed, err)
	}
	if len(args) == 1 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// ConnectPacket requests (client) or acknowledges (server) a namespace.
func ConnectPacket(nsp string, data any) (Packet, error) {
	p := Packet{Type: Connect, Namespace: nsp, ID: -1}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return p, err
		}
		p.Data = raw
	}
	return p, nil
}

// EventPacket builds an event packet with one argument.
func EventPacket(nsp, name string, payload any) (Packet, error) {
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: Event, Namespace: nsp, ID: -1, Data: raw}, nil
}

// HandshakeURL converts an http(s) server URL into the websocket URL of the
// Engine.IO endpoint at path.
func HandshakeURL(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if path == "" {
		path = "/socket.io/"
	}
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	q := url.Values{}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
