package sharedmic

import (
	"github.com/pion/sharedmic/pkg/io/audio"
)

// Borrow is one consumer's claim on the shared lease. Its stream holds
// clones of the lease's tracks, so stopping them never affects other
// borrowers. A Borrow must be handed back with Manager.Release.
type Borrow struct {
	id        string
	deviceKey string
	requested string
	deferred  bool
	stream    MediaStream
}

// ID uniquely identifies the borrow.
func (b *Borrow) ID() string {
	return b.id
}

// Stream returns the borrow's private stream.
func (b *Borrow) Stream() MediaStream {
	return b.stream
}

// DeviceKey is the device actually backing the borrow.
func (b *Borrow) DeviceKey() string {
	return b.deviceKey
}

// Requested is the device key the caller asked for.
func (b *Borrow) Requested() string {
	return b.requested
}

// Deferred reports whether the caller asked for a different device than the
// busy lease was holding. The requested device is opened once every
// outstanding borrow is released.
func (b *Borrow) Deferred() bool {
	return b.deferred
}

// Track returns the borrow's audio track.
func (b *Borrow) Track() Track {
	tracks := b.stream.GetAudioTracks()
	if len(tracks) == 0 {
		return nil
	}
	return tracks[0]
}

// NewReader reads from the borrow's audio track.
func (b *Borrow) NewReader(copyChunk bool) audio.ReadCloser {
	t := b.Track()
	if t == nil {
		return endedReader{err: ErrDeviceRevoked}
	}
	return t.NewReader(copyChunk)
}
