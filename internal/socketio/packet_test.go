package socketio

import (
	"errors"
	"testing"
)

func TestDecodeEngine(t *testing.T) {
	typ, data, err := DecodeEngine([]byte(`0{"sid":"abc","pingInterval":25000,"pingTimeout":20000}`))
	if err != nil {
		t.Fatalf("DecodeEngine: %v", err)
	}
	if typ != EngineOpen || string(data[:7]) != `{"sid":` {
		t.Fatalf("unexpected decode: %c %s", typ, data)
	}
	if _, _, err := DecodeEngine(nil); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for empty frame, got %v", err)
	}
	if _, _, err := DecodeEngine([]byte("9")); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown type, got %v", err)
	}
}

func TestDecodeEventWithNamespace(t *testing.T) {
	p, err := DecodePacket([]byte(`2/ws/demo,["counters_update",{"ground":"Mina","nusuk":"Mina","time":"08:00:01"}]`))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Type != Event || p.Namespace != "/ws/demo" || p.ID != -1 {
		t.Fatalf("unexpected packet: %+v", p)
	}
	name, payload, err := p.Event()
	if err != nil {
		t.Fatalf("Event: %v", err)
	}
	if name != "counters_update" {
		t.Fatalf("expected counters_update, got %q", name)
	}
	if string(payload) != `{"ground":"Mina","nusuk":"Mina","time":"08:00:01"}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestDecodeAckID(t *testing.T) {
	p, err := DecodePacket([]byte(`212["ping"]`))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Namespace != "/" || p.ID != 12 {
		t.Fatalf("unexpected packet: %+v", p)
	}
	name, payload, err := p.Event()
	if err != nil || name != "ping" || payload != nil {
		t.Fatalf("unexpected event: %q %s %v", name, payload, err)
	}
}

func TestDecodeNamespaceOnly(t *testing.T) {
	p, err := DecodePacket([]byte("1/ws/demo"))
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if p.Type != Disconnect || p.Namespace != "/ws/demo" || p.Data != nil {
		t.Fatalf("unexpected packet: %+v", p)
	}
}

func TestDecodeErrors(t *testing.T) {
	if _, err := DecodePacket([]byte(`51-["x",{"_placeholder":true,"num":0}]`)); !errors.Is(err, ErrBinaryUnsupported) {
		t.Fatalf("expected ErrBinaryUnsupported, got %v", err)
	}
	if _, err := DecodePacket([]byte(`2/ws/demo,["broken"`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for bad json, got %v", err)
	}
	if _, err := DecodePacket([]byte(`x`)); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for unknown type, got %v", err)
	}
	p, _ := DecodePacket([]byte(`2/ws/demo,{"not":"an array"}`))
	if _, _, err := p.Event(); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed for non-array args, got %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	p, err := EventPacket("/ws/demo", "simulation_status", map[string]string{"status": "start"})
	if err != nil {
		t.Fatalf("EventPacket: %v", err)
	}
	frame := p.Message()
	if string(frame) != `42/ws/demo,["simulation_status",{"status":"start"}]` {
		t.Fatalf("unexpected frame %s", frame)
	}
	typ, data, err := DecodeEngine(frame)
	if err != nil || typ != EngineMessage {
		t.Fatalf("DecodeEngine: %c %v", typ, err)
	}
	back, err := DecodePacket(data)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	name, payload, err := back.Event()
	if err != nil || name != "simulation_status" || string(payload) != `{"status":"start"}` {
		t.Fatalf("unexpected round trip: %q %s %v", name, payload, err)
	}
}

func TestConnectPacketDefaultNamespace(t *testing.T) {
	p, err := ConnectPacket("/", nil)
	if err != nil {
		t.Fatalf("ConnectPacket: %v", err)
	}
	if string(p.Message()) != "40" {
		t.Fatalf("expected 40, got %s", p.Message())
	}
	p, _ = ConnectPacket("/ws/demo", nil)
	if string(p.Message()) != "40/ws/demo," {
		t.Fatalf("expected 40/ws/demo, got %s", p.Message())
	}
}

func TestHandshakeURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:5000":       "ws://localhost:5000/socket.io/?EIO=4&transport=websocket",
		"https://example.org/prefix/": "wss://example.org/prefix/socket.io/?EIO=4&transport=websocket",
	}
	for in, want := range cases {
		got, err := HandshakeURL(in, "/socket.io")
		if err != nil {
			t.Fatalf("HandshakeURL(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("HandshakeURL(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := HandshakeURL("ftp://x", ""); err == nil {
		t.Fatalf("expected error for ftp scheme")
	}
}
