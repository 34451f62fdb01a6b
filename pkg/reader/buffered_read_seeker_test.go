package reader

import (
	"bytes"
	"io"
	"testing"
)

func TestBufferedReadSeekerRandomSeek(t *testing.T) {
	testReadSeeker(t, func(data []byte) io.ReadSeeker {
		return NewBufferedReadSeeker(bytes.NewReader(data), 37)
	})
}

func TestBufferedReadSeekerPeek(t *testing.T) {
	data := []byte("hello, buffered world")
	b := NewBufferedReadSeeker(bytes.NewReader(data), 8)

	peeked, err := b.Peek(5)
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if string(peeked) != "hello" {
		t.Fatalf("expected %q, got %q", "hello", peeked)
	}

	out := make([]byte, 5)
	n, err := b.Read(out)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(out[:n]) != "hello" {
		t.Fatalf("peek must not consume: expected %q, got %q", "hello", out[:n])
	}
}
