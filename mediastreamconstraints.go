package sharedmic

import (
	"github.com/pion/sharedmic/pkg/prop"
)

// MediaStreamConstraints selects what GetUserMedia captures.
type MediaStreamConstraints struct {
	Audio MediaOption
}

// MediaTrackConstraints represents https://w3c.github.io/mediacapture-main/#dom-mediatrackconstraints
type MediaTrackConstraints struct {
	prop.Media
}

// MediaOption is a callback function to apply constraints to MediaTrackConstraints.
type MediaOption func(*MediaTrackConstraints)

// canonicalProfile returns the constraints every shared capture is opened
// with: mono with echo cancellation, automatic gain control and noise
// suppression requested.
func canonicalProfile(cfg Config, deviceID string) MediaOption {
	return func(c *MediaTrackConstraints) {
		c.DeviceID = deviceID
		c.ChannelCount = cfg.ChannelCount
		c.SampleRate = cfg.SampleRate
		c.Latency = cfg.Latency
		c.EchoCancellation = cfg.EchoCancellation
		c.AutoGainControl = cfg.AutoGainControl
		c.NoiseSuppression = cfg.NoiseSuppression
	}
}
