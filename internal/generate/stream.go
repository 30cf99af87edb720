package generate

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Source yields raw fragments from a backend. Next returns io.EOF when the
// backend is done.
type Source interface {
	Next() (string, error)
	Close() error
}

// Stream yields answer fragments until the source ends, a stop sequence
// appears, the context is cancelled, or Close is called.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	src    Source
	guard  *StopGuard

	mu     sync.Mutex
	done   bool
	closed bool
}

// NewStream wraps src. The fragment that completes a stop sequence is not
// yielded.
func NewStream(ctx context.Context, src Source, guard *StopGuard) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	if guard == nil {
		guard = NewStopGuard(nil)
	}
	return &Stream{ctx: ctx, cancel: cancel, src: src, guard: guard}
}

// OpenStream derives a cancellable context, opens the source with it and
// wraps the result.
func OpenStream(ctx context.Context, open func(context.Context) (Source, error), guard *StopGuard) (*Stream, error) {
	ctx, cancel := context.WithCancel(ctx)
	src, err := open(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	if guard == nil {
		guard = NewStopGuard(nil)
	}
	return &Stream{ctx: ctx, cancel: cancel, src: src, guard: guard}, nil
}

// Recv returns the next fragment or io.EOF.
func (s *Stream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.closed {
		return "", io.EOF
	}
	if err := s.ctx.Err(); err != nil {
		s.done = true
		return "", err
	}
	for {
		frag, err := s.src.Next()
		if errors.Is(err, io.EOF) {
			s.done = true
			return "", io.EOF
		}
		if err != nil {
			s.done = true
			return "", err
		}
		if s.guard.Push(frag) {
			s.done = true
			return "", io.EOF
		}
		if frag != "" {
			return frag, nil
		}
	}
}

// Collect drains the stream into a single string.
func (s *Stream) Collect() (string, error) {
	var out []byte
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, frag...)
	}
}

// Close cancels the stream and releases the source.
func (s *Stream) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.src.Close()
}

// SliceSource yields a fixed list of fragments.
type SliceSource struct {
	fragments []string
	pos       int
}

// NewSliceSource creates a source over fragments.
func NewSliceSource(fragments ...string) *SliceSource {
	return &SliceSource{fragments: fragments}
}

// Next returns the next fragment or io.EOF.
func (s *SliceSource) Next() (string, error) {
	if s.pos >= len(s.fragments) {
		return "", io.EOF
	}
	f := s.fragments[s.pos]
	s.pos++
	return f, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }
