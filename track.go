package sharedmic

import (
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/pion/sharedmic/pkg/driver"
	"github.com/pion/sharedmic/pkg/io/audio"
	"github.com/pion/sharedmic/pkg/prop"
	"github.com/pion/sharedmic/pkg/wave"
)

// Track is an interface that represent MediaStreamTrack
// Reference: https://w3c.github.io/mediacapture-main/#mediastreamtrack
type Track interface {
	// ID is unique per track, clones get their own ID.
	ID() string
	Kind() MediaDeviceType
	// Label is the label of the device the track captures from.
	Label() string
	// Settings returns the properties the capture was started with.
	Settings() prop.Media
	// NewReader subscribes to the captured audio. The reader returns io.EOF
	// once the track is stopped, and the capture error if the device ends.
	NewReader(copyChunk bool) audio.ReadCloser
	// Clone creates an independent track sharing the same capture.
	Clone() Track
	// Stop detaches the track from its capture. The capture itself is
	// released once every track sharing it has been stopped. Stop is
	// idempotent.
	Stop()
	// Ended reports whether the track was stopped or its capture ended.
	Ended() bool
	// OnEnded registers a handler called when the capture ends outside of
	// the caller's control. It is not called for Stop. If the capture has
	// already ended, the handler is called immediately.
	OnEnded(handler func(error))
}

// captureSource is the live capture shared by a track and its clones.
type captureSource struct {
	d           driver.Driver
	settings    prop.Media
	broadcaster *audio.Broadcaster
	logger      logging.LeveledLogger

	mu     sync.Mutex
	tracks map[*audioTrack]struct{}
	closed bool
	endErr error
}

func newCaptureSource(d driver.Driver, settings prop.Media, logger logging.LeveledLogger) (*captureSource, error) {
	recorder, ok := d.(driver.AudioRecorder)
	if !ok {
		return nil, errNotAudioRecorder
	}

	r, err := recorder.AudioRecord(settings)
	if err != nil {
		return nil, err
	}

	s := &captureSource{
		d:        d,
		settings: settings,
		logger:   logger,
		tracks:   make(map[*audioTrack]struct{}),
	}
	s.broadcaster, err = audio.NewBroadcaster(r, &audio.BroadcasterConfig{OnEnd: s.onEnd})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// onEnd runs on the broadcaster goroutine when capture ends on its own.
func (s *captureSource) onEnd(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.endErr = err
	tracks := make([]*audioTrack, 0, len(s.tracks))
	for t := range s.tracks {
		tracks = append(tracks, t)
	}
	s.mu.Unlock()

	s.logger.Warnf("capture on %s ended: %v", s.d.Info().Label, err)
	if cerr := s.d.Close(); cerr != nil {
		s.logger.Errorf("failed to close %s after capture ended: %v", s.d.Info().Label, cerr)
	}

	for _, t := range tracks {
		t.onError(err)
	}
}

// attach registers t as a live track of s and returns the capture error if
// the capture has already ended.
func (s *captureSource) attach(t *audioTrack) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks[t] = struct{}{}
	return s.endErr
}

// detach removes t and closes the capture when it was the last live track.
func (s *captureSource) detach(t *audioTrack) {
	s.mu.Lock()
	delete(s.tracks, t)
	last := len(s.tracks) == 0 && !s.closed
	if last {
		s.closed = true
	}
	s.mu.Unlock()

	if !last {
		return
	}

	s.broadcaster.MarkClosing()
	if err := s.d.Close(); err != nil {
		s.logger.Errorf("failed to close %s: %v", s.d.Info().Label, err)
	}
	<-s.broadcaster.Done()
	s.logger.Debugf("capture on %s closed", s.d.Info().Label)
}

type audioTrack struct {
	id  string
	src *captureSource

	mu             sync.Mutex
	stopped        bool
	err            error
	readers        map[audio.ReadCloser]struct{}
	onErrorHandler func(error)
}

var _ Track = &audioTrack{}

func newAudioTrack(src *captureSource) *audioTrack {
	t := &audioTrack{
		id:      uuid.NewString(),
		src:     src,
		readers: make(map[audio.ReadCloser]struct{}),
	}
	t.err = src.attach(t)
	return t
}

func (t *audioTrack) ID() string {
	return t.id
}

func (t *audioTrack) Kind() MediaDeviceType {
	return AudioInput
}

func (t *audioTrack) Label() string {
	return t.src.d.Info().Label
}

func (t *audioTrack) Settings() prop.Media {
	return t.src.settings
}

func (t *audioTrack) NewReader(copyChunk bool) audio.ReadCloser {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		return endedReader{io.EOF}
	}
	if t.err != nil {
		return endedReader{t.err}
	}

	r := &trackReader{ReadCloser: t.src.broadcaster.NewReader(copyChunk), t: t}
	t.readers[r] = struct{}{}
	return r
}

func (t *audioTrack) Clone() Track {
	t.mu.Lock()
	stopped := t.stopped
	t.mu.Unlock()

	if stopped {
		return &audioTrack{id: uuid.NewString(), src: t.src, stopped: true}
	}
	return newAudioTrack(t.src)
}

func (t *audioTrack) Stop() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	readers := t.readers
	t.readers = nil
	t.mu.Unlock()

	for r := range readers {
		r.Close()
	}
	t.src.detach(t)
}

func (t *audioTrack) Ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped || t.err != nil
}

func (t *audioTrack) OnEnded(handler func(error)) {
	t.mu.Lock()
	t.onErrorHandler = handler
	err := t.err
	t.mu.Unlock()

	if err != nil && handler != nil {
		// Already errored.
		go handler(err)
	}
}

func (t *audioTrack) onError(err error) {
	t.mu.Lock()
	if t.stopped || t.err != nil {
		t.mu.Unlock()
		return
	}
	t.err = err
	handler := t.onErrorHandler
	t.mu.Unlock()

	if handler != nil {
		go handler(err)
	}
}

func (t *audioTrack) forget(r audio.ReadCloser) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.readers, r)
}

type trackReader struct {
	audio.ReadCloser
	t *audioTrack
}

func (r *trackReader) Close() error {
	r.t.forget(r)
	return r.ReadCloser.Close()
}

type endedReader struct {
	err error
}

func (r endedReader) Read() (wave.Audio, func(), error) {
	return nil, func() {}, r.err
}

func (r endedReader) Close() error {
	return nil
}
