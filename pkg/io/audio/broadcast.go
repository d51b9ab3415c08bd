package audio

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/sharedmic/pkg/wave"
)

const defaultBroadcasterBufferSize = 32

var errEmptySource = errors.New("Source can't be nil")

// BroadcasterConfig is a config to control broadcaster behaviour
type BroadcasterConfig struct {
	// BufferSize is the number of chunks queued per reader before new chunks
	// are dropped for that reader. The default value is 32.
	BufferSize int
	// OnEnd is called once, from the pump goroutine, when the source returns
	// an error. It is not called for io.EOF caused by Close.
	OnEnd func(err error)
}

// Broadcaster pumps chunks from a single source to any number of readers.
// Readers can come and go at any time; a slow reader drops chunks instead of
// blocking the source.
type Broadcaster struct {
	source     Reader
	bufferSize int
	onEnd      func(error)

	mu      sync.Mutex
	readers map[*broadcastReader]struct{}
	err     error
	closing bool

	done chan struct{}
}

// NewBroadcaster creates a new broadcaster and starts reading from source.
func NewBroadcaster(source Reader, config *BroadcasterConfig) (*Broadcaster, error) {
	if source == nil {
		return nil, errEmptySource
	}

	b := &Broadcaster{
		source:     source,
		bufferSize: defaultBroadcasterBufferSize,
		readers:    make(map[*broadcastReader]struct{}),
		done:       make(chan struct{}),
	}
	if config != nil {
		if config.BufferSize > 0 {
			b.bufferSize = config.BufferSize
		}
		b.onEnd = config.OnEnd
	}

	go b.pump()
	return b, nil
}

func (b *Broadcaster) pump() {
	defer close(b.done)

	for {
		chunk, release, err := b.source.Read()
		if err != nil {
			b.finish(err)
			return
		}

		b.mu.Lock()
		for r := range b.readers {
			r.push(chunk)
		}
		b.mu.Unlock()

		if release != nil {
			release()
		}
	}
}

func (b *Broadcaster) finish(err error) {
	b.mu.Lock()
	closing := b.closing
	b.err = err
	if closing {
		b.err = io.EOF
	}
	for r := range b.readers {
		r.end(b.err)
	}
	b.readers = nil
	b.mu.Unlock()

	if !closing && b.onEnd != nil {
		b.onEnd(err)
	}
}

// NewReader subscribes a new reader. When copyChunk is true every chunk is
// deep copied before it's handed to the reader.
func (b *Broadcaster) NewReader(copyChunk bool) ReadCloser {
	r := &broadcastReader{
		b:         b,
		ch:        make(chan wave.Audio, b.bufferSize),
		copyChunk: copyChunk,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.readers == nil {
		r.end(b.err)
		return r
	}
	b.readers[r] = struct{}{}
	return r
}

// MarkClosing tells the broadcaster that the next source error is the result
// of an intentional shutdown, so OnEnd is skipped and readers see io.EOF.
func (b *Broadcaster) MarkClosing() {
	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()
}

// Done is closed once the pump goroutine has exited.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

// Err returns the terminal source error, or nil while the source is live.
func (b *Broadcaster) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Broadcaster) remove(r *broadcastReader) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.detached = true
	delete(b.readers, r)
	r.end(io.EOF)
}

type broadcastReader struct {
	b         *Broadcaster
	ch        chan wave.Audio
	copyChunk bool

	// guarded by b.mu
	ended    bool
	detached bool
	err      error
}

// push must be called with b.mu held.
func (r *broadcastReader) push(chunk wave.Audio) {
	if r.copyChunk {
		if c, ok := chunk.(*wave.Int16Interleaved); ok {
			chunk = c.Clone()
		}
	}
	select {
	case r.ch <- chunk:
	default:
	}
}

// end must be called with b.mu held.
func (r *broadcastReader) end(err error) {
	if r.ended {
		return
	}
	if err == nil {
		err = io.EOF
	}
	r.ended = true
	r.err = err
	close(r.ch)
}

func (r *broadcastReader) Read() (wave.Audio, func(), error) {
	chunk, ok := <-r.ch

	r.b.mu.Lock()
	detached, err := r.detached, r.err
	r.b.mu.Unlock()

	// Chunks still queued when the reader was closed are discarded.
	if !ok || detached {
		if detached {
			err = io.EOF
		}
		return nil, func() {}, err
	}
	return chunk, func() {}, nil
}

func (r *broadcastReader) Close() error {
	r.b.remove(r)
	return nil
}
