package sharedmic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pion/sharedmic/pkg/driver"
	"github.com/pion/sharedmic/pkg/driver/availability"
	"github.com/pion/sharedmic/pkg/wave"
)

func audioConstraints(deviceID string) MediaStreamConstraints {
	return MediaStreamConstraints{Audio: canonicalProfile(DefaultConfig(), deviceID)}
}

func TestGetUserMedia(t *testing.T) {
	f := newFixture(t, "a", "b")
	md := f.mediaDevices()

	s, err := md.GetUserMedia(audioConstraints(""))
	require.NoError(t, err)

	tracks := s.GetAudioTracks()
	require.Len(t, tracks, 1)
	track := tracks[0]
	assert.Equal(t, "a", track.Label())
	assert.Equal(t, AudioInput, track.Kind())

	settings := track.Settings()
	assert.Equal(t, 1, settings.ChannelCount)
	assert.Equal(t, 48000, settings.SampleRate)
	assert.True(t, settings.EchoCancellation)
	assert.True(t, settings.AutoGainControl)
	assert.True(t, settings.NoiseSuppression)

	r := track.NewReader(false)
	chunk, err := readWithTimeout(t, r)
	require.NoError(t, err)
	assert.Equal(t, wave.ChunkInfo{Len: 960, Channels: 1, SamplingRate: 48000}, chunk.ChunkInfo())

	track.Stop()
	assert.False(t, f.mics["a"].IsOpen())
	assert.Equal(t, []string{"open a", "close a"}, f.log.list())
}

func TestGetUserMediaByDevice(t *testing.T) {
	f := newFixture(t, "a", "b")
	md := f.mediaDevices()

	t.Run("Label", func(t *testing.T) {
		s, err := md.GetUserMedia(audioConstraints("b"))
		require.NoError(t, err)
		defer stopTracks(s)
		assert.Equal(t, "b", s.GetAudioTracks()[0].Label())
	})

	t.Run("DriverID", func(t *testing.T) {
		var id string
		for _, d := range md.EnumerateDevices() {
			if d.Label == "b" {
				id = d.DeviceID
			}
		}
		require.NotEmpty(t, id)

		s, err := md.GetUserMedia(audioConstraints(id))
		require.NoError(t, err)
		defer stopTracks(s)
		assert.Equal(t, "b", s.GetAudioTracks()[0].Label())
		assert.Equal(t, id, s.GetAudioTracks()[0].Settings().DeviceID)
	})
}

func TestGetUserMediaErrors(t *testing.T) {
	f := newFixture(t, "a")
	md := f.mediaDevices()

	t.Run("NoAudio", func(t *testing.T) {
		_, err := md.GetUserMedia(MediaStreamConstraints{})
		assert.Error(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := md.GetUserMedia(audioConstraints("missing"))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		f.mics["a"].DenyPermission(true)
		defer f.mics["a"].DenyPermission(false)

		_, err := md.GetUserMedia(audioConstraints(""))
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.ErrorIs(t, err, availability.ErrPermissionDenied)

		for _, d := range f.drivers.Query(driver.FilterLabel("a")) {
			assert.Equal(t, driver.StateClosed, d.Status())
		}
	})

	t.Run("Unplugged", func(t *testing.T) {
		f.mics["a"].Unplug()
		defer f.mics["a"].Replug()

		_, err := md.GetUserMedia(audioConstraints(""))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Busy", func(t *testing.T) {
		s, err := md.GetUserMedia(audioConstraints(""))
		require.NoError(t, err)
		defer stopTracks(s)

		_, err = md.GetUserMedia(audioConstraints(""))
		assert.ErrorIs(t, err, ErrNotReadable)
		assert.True(t, errors.Is(err, availability.ErrBusy))
		assert.Equal(t, 1, f.mics["a"].Opens())
	})
}

func TestEnumerateDevices(t *testing.T) {
	f := newFixture(t, "b", "a")

	devices := f.mediaDevices().EnumerateDevices()
	require.Len(t, devices, 2)

	assert.Equal(t, "a", devices[0].Label)
	assert.Equal(t, "b", devices[1].Label)
	assert.False(t, devices[0].Default)
	assert.True(t, devices[1].Default)
	for _, d := range devices {
		assert.Equal(t, AudioInput, d.Kind)
		assert.Equal(t, driver.Microphone, d.DeviceType)
		assert.NotEmpty(t, d.DeviceID)
		assert.Equal(t, "Test microphone "+d.Label, d.Name)
	}
}
