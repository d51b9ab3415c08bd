package sharedmic

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/pion/logging"

	internallog "github.com/pion/sharedmic/internal/logging"
	"github.com/pion/sharedmic/pkg/driver"
	"github.com/pion/sharedmic/pkg/driver/availability"
	"github.com/pion/sharedmic/pkg/prop"
)

// MediaDevices is an interface that's defined on https://developer.mozilla.org/en-US/docs/Web/API/MediaDevices
type MediaDevices interface {
	GetUserMedia(constraints MediaStreamConstraints) (MediaStream, error)
	EnumerateDevices() []MediaDeviceInfo
}

// MediaDevicesOptions stores parameters used by MediaDevices.
type MediaDevicesOptions struct {
	drivers       *driver.Manager
	loggerFactory logging.LoggerFactory
}

// MediaDevicesOption is a type of MediaDevices functional option.
type MediaDevicesOption func(*MediaDevicesOptions)

// WithDriverManager makes MediaDevices select drivers from m instead of the
// process-wide driver manager.
func WithDriverManager(m *driver.Manager) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.drivers = m
	}
}

// WithMediaDevicesLoggerFactory sets the factory capture sources log through.
func WithMediaDevicesLoggerFactory(f logging.LoggerFactory) MediaDevicesOption {
	return func(o *MediaDevicesOptions) {
		o.loggerFactory = f
	}
}

type mediaDevices struct {
	MediaDevicesOptions
	log logging.LeveledLogger
}

// NewMediaDevices creates MediaDevices interface that provides access to
// connected audio input devices.
func NewMediaDevices(opts ...MediaDevicesOption) MediaDevices {
	mdo := MediaDevicesOptions{
		drivers:       driver.GetManager(),
		loggerFactory: internallog.Factory(),
	}
	for _, o := range opts {
		o(&mdo)
	}
	return &mediaDevices{
		MediaDevicesOptions: mdo,
		log:                 mdo.loggerFactory.NewLogger("sharedmic/capture"),
	}
}

// GetUserMedia prompts the user for permission to use a media input which produces a MediaStream
// with tracks containing the requested types of media.
// Reference: https://developer.mozilla.org/en-US/docs/Web/API/MediaDevices/getUserMedia
//
// Errors wrap ErrPermissionDenied, ErrNotFound or ErrNotReadable.
func (m *mediaDevices) GetUserMedia(constraints MediaStreamConstraints) (MediaStream, error) {
	if constraints.Audio == nil {
		return nil, errNoAudioConstraints
	}

	var c MediaTrackConstraints
	constraints.Audio(&c)

	track, err := m.selectAudio(c)
	if err != nil {
		return nil, err
	}

	s, err := NewMediaStream(track)
	if err != nil {
		track.Stop()
		return nil, err
	}

	return s, nil
}

func (m *mediaDevices) selectAudio(c MediaTrackConstraints) (Track, error) {
	filter := microphoneFilter()
	if c.DeviceID != "" {
		filter = driver.FilterAnd(filter, driver.FilterOr(driver.FilterID(c.DeviceID), driver.FilterLabel(c.DeviceID)))
	}

	d, settings, err := selectBestDriver(m.drivers, filter, c.Media)
	if err != nil {
		return nil, err
	}

	if err := d.Open(); err != nil {
		return nil, classifyOpenError(err)
	}

	src, err := newCaptureSource(d, settings, m.log)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("%w: %w", ErrNotReadable, err)
	}

	m.log.Debugf("capturing from %s with %s", d.Info().Label, settings.Audio)
	return newAudioTrack(src), nil
}

func microphoneFilter() driver.FilterFn {
	return driver.FilterAnd(driver.FilterAudioRecorder(), driver.FilterDeviceType(driver.Microphone))
}

func classifyOpenError(err error) error {
	switch {
	case errors.Is(err, availability.ErrPermissionDenied):
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	case errors.Is(err, availability.ErrNoDevice):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrNotReadable, err)
	}
}

// selectBestDriver implements SelectSettings algorithm.
// Reference: https://w3c.github.io/mediacapture-main/#dfn-selectsettings
func selectBestDriver(m *driver.Manager, filter driver.FilterFn, constraints prop.Media) (driver.Driver, prop.Media, error) {
	var bestDriver driver.Driver
	var bestProp prop.Media
	minFitnessDist := math.Inf(1)

	for _, d := range m.Query(filter) {
		priority := float64(d.Info().Priority)
		for _, p := range d.Properties() {
			fitnessDist := constraints.FitnessDistance(p) - priority
			better := fitnessDist < minFitnessDist
			// Equal fits are broken by label to keep the choice stable.
			if fitnessDist == minFitnessDist && bestDriver != nil && d.Info().Label < bestDriver.Info().Label {
				better = true
			}
			if better {
				minFitnessDist = fitnessDist
				bestDriver = d
				bestProp = p
			}
		}
	}

	if bestDriver == nil {
		return nil, prop.Media{}, ErrNotFound
	}

	settings := bestProp
	settings.Merge(constraints)
	settings.DeviceID = bestDriver.ID()
	return bestDriver, settings, nil
}

func (m *mediaDevices) EnumerateDevices() []MediaDeviceInfo {
	drivers := m.drivers.Query(microphoneFilter())

	var defaultID string
	if d, _, err := selectBestDriver(m.drivers, microphoneFilter(), prop.Media{}); err == nil {
		defaultID = d.ID()
	}

	info := make([]MediaDeviceInfo, 0, len(drivers))
	for _, d := range drivers {
		driverInfo := d.Info()
		info = append(info, MediaDeviceInfo{
			DeviceID:   d.ID(),
			Kind:       AudioInput,
			Label:      driverInfo.Label,
			Name:       driverInfo.Name,
			DeviceType: driverInfo.DeviceType,
			Default:    d.ID() == defaultID,
		})
	}
	sort.Slice(info, func(i, j int) bool { return info[i].Label < info[j].Label })
	return info
}
