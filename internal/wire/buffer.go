package wire

// Buffer is a minimal append-only byte buffer that also supports
// overwriting a previously reserved region without disturbing the append
// cursor. It models the broker's per-connection write buffer contract
// (spec §9): outbound writers reserve HeaderSize placeholder bytes, append
// the payload, then patch the header back in once payload_len is known.
type Buffer struct {
	b []byte
}

// NewBuffer wraps an existing slice (typically a route's write buffer) so
// writers can append to it directly.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Bytes returns the buffer's current contents.
func (buf *Buffer) Bytes() []byte { return buf.b }

// Len reports the current length of the buffer.
func (buf *Buffer) Len() int { return len(buf.b) }

// Reserve appends n zero bytes and returns their offset, to be patched
// later via WriteAt.
func (buf *Buffer) Reserve(n int) int {
	off := len(buf.b)
	buf.b = append(buf.b, make([]byte, n)...)
	return off
}

// Append writes p to the end of the buffer.
func (buf *Buffer) Append(p []byte) {
	buf.b = append(buf.b, p...)
}

// WriteAt overwrites the region [off, off+len(p)) that was previously
// reserved. It never moves the append cursor.
func (buf *Buffer) WriteAt(off int, p []byte) {
	copy(buf.b[off:off+len(p)], p)
}

// Reset drops the buffer's contents. Used by the broker after flushing
// the accumulated bytes to the underlying connection.
func (buf *Buffer) Reset() {
	buf.b = buf.b[:0]
}

// WriteFrame assembles one full [Header][Payload] record via the
// two-pass placeholder/patch-back pattern: reserve HeaderSize bytes, run
// writePayload to append the payload, then back-patch the header now that
// payload_len is known.
func WriteFrame(buf *Buffer, h Header, writePayload func(*Buffer)) {
	headerOff := buf.Reserve(HeaderSize)
	payloadStart := buf.Len()
	if writePayload != nil {
		writePayload(buf)
	}
	h.PayloadLen = uint32(buf.Len() - payloadStart)
	buf.WriteAt(headerOff, EncodeHeader(h))
}
