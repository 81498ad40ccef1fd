package wire

import "testing"

func testNode(b byte, instance uint32) NodeID {
	var n NodeID
	n.Digest[0] = b
	n.Instance = instance
	return n
}

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		SourceNode:    testNode(1, 7),
		DestNode:      testNode(2, 9),
		SourceActor:   ActorID(11),
		DestActor:     ActorID(22),
		PayloadLen:    42,
		Operation:     DispatchMessage,
		OperationData: 9001,
	}
	out, err := DecodeHeader(EncodeHeader(h))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != h {
		t.Fatalf("round trip mismatch: got=%+v want=%+v", out, h)
	}
}

func TestDecodeHeaderWrongLength(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize-1)); err != ErrInvalidHeader {
		t.Fatalf("expected ErrInvalidHeader, got %v", err)
	}
}

func TestValidServerHandshakeRequiresVersion(t *testing.T) {
	h := Header{Operation: ServerHandshake, OperationData: ProtocolVersion}
	if !Valid(h) {
		t.Fatalf("expected valid server_handshake")
	}
	h.OperationData = ProtocolVersion + 1
	if Valid(h) {
		t.Fatalf("expected invalid server_handshake with wrong version")
	}
}

func TestValidHeartbeatRequiresEmptyPayload(t *testing.T) {
	h := Header{Operation: Heartbeat, PayloadLen: 0}
	if !Valid(h) {
		t.Fatalf("expected valid heartbeat")
	}
	h.PayloadLen = 1
	if Valid(h) {
		t.Fatalf("expected invalid heartbeat with nonzero payload")
	}
}

func TestValidRejectsUnknownOperation(t *testing.T) {
	h := Header{Operation: MessageType(200)}
	if Valid(h) {
		t.Fatalf("expected invalid header for unknown operation")
	}
}

func TestValidRejectsOversizedPayload(t *testing.T) {
	h := Header{Operation: DispatchMessage, PayloadLen: MaxPayload + 1}
	if Valid(h) {
		t.Fatalf("expected invalid header for oversized payload")
	}
}

func TestWriteFrameBackpatchesPayloadLen(t *testing.T) {
	buf := NewBuffer(nil)
	h := Header{Operation: DispatchMessage, OperationData: 5}
	WriteFrame(buf, h, func(b *Buffer) {
		b.Append([]byte("hello"))
	})
	if buf.Len() != HeaderSize+5 {
		t.Fatalf("unexpected buffer length: %d", buf.Len())
	}
	out, err := DecodeHeader(buf.Bytes()[:HeaderSize])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.PayloadLen != 5 {
		t.Fatalf("expected payload_len=5, got %d", out.PayloadLen)
	}
	if string(buf.Bytes()[HeaderSize:]) != "hello" {
		t.Fatalf("unexpected payload bytes: %q", buf.Bytes()[HeaderSize:])
	}
}
