package media

import (
	"bytes"
	"sync"
)

// cappedBuffer keeps at most limit bytes. Writes past the limit are
// accepted and dropped so the child never blocks on a full pipe; the first
// dropped byte closes the overflow channel.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
	overflow  chan struct{}
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{
		limit:    limit,
		overflow: make(chan struct{}),
	}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.truncated {
		return len(p), nil
	}

	room := b.limit - b.buf.Len()
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		close(b.overflow)
		return len(p), nil
	}

	b.buf.Write(p)
	return len(p), nil
}

// Overflow is closed once output exceeds the limit.
func (b *cappedBuffer) Overflow() <-chan struct{} {
	return b.overflow
}

func (b *cappedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
