package media

import (
	"strings"
	"testing"
)

func TestCappedBuffer_UnderLimit(t *testing.T) {
	b := newCappedBuffer(16)

	n, err := b.Write([]byte("hello"))
	if err != nil || n != 5 {
		t.Fatalf("Write() = %d, %v", n, err)
	}
	if b.Truncated() {
		t.Error("buffer should not be truncated")
	}
	if b.String() != "hello" {
		t.Errorf("String() = %q", b.String())
	}

	select {
	case <-b.Overflow():
		t.Error("overflow channel should stay open")
	default:
	}
}

func TestCappedBuffer_ExactLimit(t *testing.T) {
	b := newCappedBuffer(5)
	_, _ = b.Write([]byte("12345"))
	if b.Truncated() {
		t.Error("writing exactly the limit must not truncate")
	}
}

func TestCappedBuffer_Overflow(t *testing.T) {
	b := newCappedBuffer(8)

	_, _ = b.Write([]byte("12345"))
	n, err := b.Write([]byte("67890"))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 5 {
		t.Errorf("Write() should report all bytes consumed, got %d", n)
	}
	if !b.Truncated() {
		t.Error("buffer should be truncated")
	}
	if b.String() != "12345678" {
		t.Errorf("String() = %q, want first 8 bytes", b.String())
	}

	select {
	case <-b.Overflow():
	default:
		t.Error("overflow channel should be closed")
	}

	// Later writes are dropped and do not panic on a second close.
	n, _ = b.Write([]byte(strings.Repeat("x", 1024)))
	if n != 1024 {
		t.Errorf("Write() after overflow = %d", n)
	}
	if len(b.String()) != 8 {
		t.Errorf("buffer grew past limit: %d", len(b.String()))
	}
}
