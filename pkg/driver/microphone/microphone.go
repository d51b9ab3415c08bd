//go:build !nomicrophone
// +build !nomicrophone

// Package microphone registers every capture device miniaudio can see.
// Import it for its side effect:
//
//	import _ "github.com/pion/sharedmic/pkg/driver/microphone"
package microphone

import (
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/pion/sharedmic/internal/logging"
	"github.com/pion/sharedmic/pkg/driver"
	"github.com/pion/sharedmic/pkg/driver/availability"
	"github.com/pion/sharedmic/pkg/io/audio"
	"github.com/pion/sharedmic/pkg/prop"
	"github.com/pion/sharedmic/pkg/wave"
)

const (
	defaultSampleRate = 48000
	defaultLatency    = 20 * time.Millisecond
	// chunks buffered between the device callback and the reader
	chunkBufferSize = 8
)

var logger = logging.NewLogger("sharedmic/driver/microphone")
var ctx *malgo.AllocatedContext

type microphone struct {
	malgo.DeviceInfo

	mu      sync.Mutex
	device  *malgo.Device
	chunks  chan []byte
	closed  chan struct{}
	stopped chan struct{}
}

func init() {
	var err error
	ctx, err = malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debugf("%v\n", message)
	})
	if err != nil {
		logger.Errorf("failed to initialize audio context: %v", err)
		return
	}

	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		logger.Errorf("failed to enumerate capture devices: %v", err)
		return
	}

	for _, device := range devices {
		priority := driver.PriorityNormal
		if device.IsDefault > 0 {
			priority = driver.PriorityHigh
		}
		_, err := driver.GetManager().Register(newMicrophone(device), driver.Info{
			Label:      device.ID.String(),
			Name:       device.Name(),
			DeviceType: driver.Microphone,
			Priority:   priority,
		})
		if err != nil {
			logger.Warnf("failed to register %s: %v", device.Name(), err)
		}
	}
}

func newMicrophone(info malgo.DeviceInfo) *microphone {
	return &microphone{
		DeviceInfo: info,
	}
}

func (m *microphone) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ctx == nil {
		return availability.ErrNoDevice
	}
	m.chunks = make(chan []byte, chunkBufferSize)
	m.closed = make(chan struct{})
	m.stopped = make(chan struct{})
	return nil
}

func (m *microphone) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed != nil {
		close(m.closed)
		m.closed = nil
	}
	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	return nil
}

func (m *microphone) AudioRecord(inputProp prop.Media) (audio.Reader, error) {
	if inputProp.SampleRate == 0 {
		inputProp.SampleRate = defaultSampleRate
	}
	if inputProp.ChannelCount == 0 {
		inputProp.ChannelCount = 1
	}
	if inputProp.Latency == 0 {
		inputProp.Latency = defaultLatency
	}

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.Capture.Format = malgo.FormatS16
	config.Capture.Channels = uint32(inputProp.ChannelCount)
	config.Capture.DeviceID = m.ID.Pointer()
	config.SampleRate = uint32(inputProp.SampleRate)
	config.PeriodSizeInMilliseconds = uint32(inputProp.Latency / time.Millisecond)

	m.mu.Lock()
	chunks, closed, stopped := m.chunks, m.closed, m.stopped
	m.mu.Unlock()

	var stopOnce sync.Once
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			chunk := make([]byte, len(input))
			copy(chunk, input)
			select {
			case chunks <- chunk:
			default:
			}
		},
		// miniaudio stops the device on its own when it's unplugged or
		// access is revoked.
		Stop: func() {
			stopOnce.Do(func() { close(stopped) })
		},
	}

	device, err := malgo.InitDevice(ctx.Context, config, callbacks)
	if err != nil {
		return nil, err
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, err
	}

	m.mu.Lock()
	m.device = device
	m.mu.Unlock()

	channels := inputProp.ChannelCount
	reader := audio.ReaderFunc(func() (wave.Audio, func(), error) {
		select {
		case <-closed:
			return nil, func() {}, io.EOF
		default:
		}

		select {
		case <-closed:
			return nil, func() {}, io.EOF
		case <-stopped:
			select {
			case <-closed:
				return nil, func() {}, io.EOF
			default:
			}
			return nil, func() {}, availability.ErrNoDevice
		case chunk := <-chunks:
			return decodeS16(chunk, channels, inputProp.SampleRate), func() {}, nil
		}
	})
	return reader, nil
}

// decodeS16 converts little-endian signed 16-bit interleaved PCM.
func decodeS16(chunk []byte, channels, sampleRate int) *wave.Int16Interleaved {
	frames := len(chunk) / (2 * channels)
	a := wave.NewInt16Interleaved(wave.ChunkInfo{
		Len:          frames,
		Channels:     channels,
		SamplingRate: sampleRate,
	})
	for i := range a.Data {
		a.Data[i] = int16(binary.LittleEndian.Uint16(chunk[2*i:]))
	}
	return a
}

func (m *microphone) Properties() []prop.Media {
	return []prop.Media{
		{
			DeviceID: m.ID.String(),
			Audio: prop.Audio{
				ChannelCount: 1,
				SampleRate:   defaultSampleRate,
				SampleSize:   2,
				Latency:      defaultLatency,
			},
		},
	}
}
