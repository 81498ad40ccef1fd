package wire

import (
	"bytes"
	"testing"
)

func TestHandshakePayloadRoundTrip(t *testing.T) {
	p := HandshakePayload{Actor: 7, Interfaces: []string{"chat", "presence"}}
	out, err := DecodeHandshakePayload(EncodeHandshakePayload(p))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Actor != p.Actor || len(out.Interfaces) != 2 || out.Interfaces[0] != "chat" || out.Interfaces[1] != "presence" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestHandshakePayloadEmpty(t *testing.T) {
	out, err := DecodeHandshakePayload(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Actor != InvalidActorID || len(out.Interfaces) != 0 {
		t.Fatalf("expected empty payload, got %+v", out)
	}
}

func TestHandshakePayloadTruncated(t *testing.T) {
	if _, err := DecodeHandshakePayload([]byte{0, 0, 0, 1}); err != ErrPayloadMalformed {
		t.Fatalf("expected ErrPayloadMalformed, got %v", err)
	}
}

func TestDispatchPayloadRoundTrip(t *testing.T) {
	p := DispatchPayload{
		ForwardingStack: []ActorAddr{
			{Actor: 1, Node: testNode(1, 1)},
			{Actor: 2, Node: testNode(2, 2)},
		},
		Message: []byte("payload-bytes"),
	}
	out, err := DecodeDispatchPayload(EncodeDispatchPayload(p))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.ForwardingStack) != 2 || !bytes.Equal(out.Message, p.Message) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.ForwardingStack[1].Actor != 2 {
		t.Fatalf("unexpected forwarding stack entry: %+v", out.ForwardingStack[1])
	}
}

func TestDispatchPayloadTruncated(t *testing.T) {
	if _, err := DecodeDispatchPayload([]byte{0, 1}); err != ErrPayloadMalformed {
		t.Fatalf("expected ErrPayloadMalformed, got %v", err)
	}
}
