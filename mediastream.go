package sharedmic

import (
	"sync"
)

// MediaStream is an interface that represents a collection of existing tracks.
// Reference: https://w3c.github.io/mediacapture-main/#dom-mediastream
type MediaStream interface {
	// GetAudioTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-getaudiotracks
	GetAudioTracks() []Track
	// GetTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-gettracks
	GetTracks() []Track
	// AddTrack implements https://w3c.github.io/mediacapture-main/#dom-mediastream-addtrack
	AddTrack(t Track)
	// RemoveTrack implements https://w3c.github.io/mediacapture-main/#dom-mediastream-removetrack
	RemoveTrack(t Track)
	// Clone implements https://w3c.github.io/mediacapture-main/#dom-mediastream-clone
	Clone() MediaStream
}

type mediaStream struct {
	tracks []Track
	l      sync.RWMutex
}

// NewMediaStream creates a MediaStream interface that's defined in
// https://w3c.github.io/mediacapture-main/#dom-mediastream
func NewMediaStream(tracks ...Track) (MediaStream, error) {
	m := mediaStream{}

	for _, track := range tracks {
		m.addTrack(track)
	}

	return &m, nil
}

// GetAudioTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-getaudiotracks
func (m *mediaStream) GetAudioTracks() []Track {
	return m.queryTracks(AudioInput)
}

// GetTracks implements https://w3c.github.io/mediacapture-main/#dom-mediastream-gettracks
func (m *mediaStream) GetTracks() []Track {
	return m.queryTracks(0)
}

// queryTracks returns all tracks that are the same kind as t, in the order
// they were added. If t is 0, queryTracks will return all the tracks.
func (m *mediaStream) queryTracks(t MediaDeviceType) []Track {
	m.l.RLock()
	defer m.l.RUnlock()

	result := make([]Track, 0, len(m.tracks))
	for _, track := range m.tracks {
		if track.Kind() == t || t == 0 {
			result = append(result, track)
		}
	}

	return result
}

// AddTrack implements https://w3c.github.io/mediacapture-main/#dom-mediastream-addtrack
func (m *mediaStream) AddTrack(t Track) {
	m.l.Lock()
	defer m.l.Unlock()
	m.addTrack(t)
}

func (m *mediaStream) addTrack(t Track) {
	for _, existing := range m.tracks {
		if existing.ID() == t.ID() {
			return
		}
	}
	m.tracks = append(m.tracks, t)
}

// RemoveTrack implements https://w3c.github.io/mediacapture-main/#dom-mediastream-removetrack
func (m *mediaStream) RemoveTrack(t Track) {
	m.l.Lock()
	defer m.l.Unlock()

	for i, existing := range m.tracks {
		if existing.ID() == t.ID() {
			m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
			return
		}
	}
}

// Clone implements https://w3c.github.io/mediacapture-main/#dom-mediastream-clone
func (m *mediaStream) Clone() MediaStream {
	m.l.RLock()
	defer m.l.RUnlock()

	clone := &mediaStream{tracks: make([]Track, 0, len(m.tracks))}
	for _, t := range m.tracks {
		clone.tracks = append(clone.tracks, t.Clone())
	}
	return clone
}

// stopTracks stops every track of s.
func stopTracks(s MediaStream) {
	for _, t := range s.GetTracks() {
		t.Stop()
	}
}
