package audio

import (
	"github.com/pion/sharedmic/pkg/wave"
)

// Reader reads one audio chunk at a time. release must be called once the
// caller is done with chunk.
type Reader interface {
	Read() (chunk wave.Audio, release func(), err error)
}

// ReaderFunc is a proxy type to make easier for users to implement Reader
type ReaderFunc func() (chunk wave.Audio, release func(), err error)

func (rf ReaderFunc) Read() (wave.Audio, func(), error) {
	return rf()
}

// ReadCloser is a Reader that can be detached from its source. After Close,
// Read returns io.EOF.
type ReadCloser interface {
	Reader
	Close() error
}
