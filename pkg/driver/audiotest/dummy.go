// Package audiotest provides dummy audio driver for testing.
package audiotest

import (
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/sharedmic/pkg/driver"
	"github.com/pion/sharedmic/pkg/driver/availability"
	"github.com/pion/sharedmic/pkg/io/audio"
	"github.com/pion/sharedmic/pkg/prop"
	"github.com/pion/sharedmic/pkg/wave"
)

func init() {
	driver.GetManager().Register(
		New(), driver.Info{Label: "AudioTest", DeviceType: driver.Microphone},
	)
}

// Dummy is a synthetic microphone producing a 480 Hz sine wave. Its
// controls let tests deny permission or pull the device out from under
// a running capture.
type Dummy struct {
	mu        sync.Mutex
	closed    chan struct{}
	unplugged chan struct{}
	deny      bool
	gone      bool

	opens  int32
	closes int32
}

// New creates a dummy microphone adapter.
func New() *Dummy {
	return &Dummy{}
}

func (d *Dummy) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case d.deny:
		return availability.ErrPermissionDenied
	case d.gone:
		return availability.ErrNoDevice
	}

	d.closed = make(chan struct{})
	d.unplugged = make(chan struct{})
	atomic.AddInt32(&d.opens, 1)
	return nil
}

func (d *Dummy) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed != nil {
		close(d.closed)
		d.closed = nil
		atomic.AddInt32(&d.closes, 1)
	}
	return nil
}

func (d *Dummy) AudioRecord(p prop.Media) (audio.Reader, error) {
	var sin [100]int16
	for i := range sin {
		sin[i] = int16(math.Sin(2*math.Pi*float64(i)/100) * 0.25 * math.MaxInt16) // 480 Hz
	}

	if p.Latency == 0 {
		p.Latency = 20 * time.Millisecond
	}
	if p.SampleRate == 0 {
		p.SampleRate = 48000
	}
	if p.ChannelCount == 0 {
		p.ChannelCount = 1
	}
	nSample := int(uint64(p.SampleRate) * uint64(p.Latency) / uint64(time.Second))

	d.mu.Lock()
	closed, unplugged := d.closed, d.unplugged
	d.mu.Unlock()

	ticker := time.NewTicker(p.Latency)
	var phase int
	var once sync.Once
	stop := func() { once.Do(ticker.Stop) }

	ended := func() error {
		select {
		case <-closed:
			stop()
			return io.EOF
		case <-unplugged:
			stop()
			return availability.ErrNoDevice
		default:
			return nil
		}
	}

	reader := audio.ReaderFunc(func() (wave.Audio, func(), error) {
		if err := ended(); err != nil {
			return nil, func() {}, err
		}
		select {
		case <-closed:
		case <-unplugged:
		case <-ticker.C:
		}
		if err := ended(); err != nil {
			return nil, func() {}, err
		}

		a := wave.NewInt16Interleaved(
			wave.ChunkInfo{
				Channels:     p.ChannelCount,
				Len:          nSample,
				SamplingRate: p.SampleRate,
			},
		)

		for i := 0; i < nSample; i++ {
			phase++
			if phase >= 100 {
				phase = 0
			}
			for ch := 0; ch < p.ChannelCount; ch++ {
				a.SetInt16(i, ch, wave.Int16Sample(sin[phase]))
			}
		}
		return a, func() {}, nil
	})
	return reader, nil
}

func (d *Dummy) Properties() []prop.Media {
	return []prop.Media{
		{
			Audio: prop.Audio{
				SampleRate:   48000,
				Latency:      time.Millisecond * 20,
				ChannelCount: 1,
				SampleSize:   2,
			},
		},
		{
			Audio: prop.Audio{
				SampleRate:   48000,
				Latency:      time.Millisecond * 20,
				ChannelCount: 2,
				SampleSize:   2,
			},
		},
	}
}

// DenyPermission makes subsequent Open calls fail as if the user refused
// access to the microphone.
func (d *Dummy) DenyPermission(deny bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deny = deny
}

// Unplug simulates the device disappearing. A running capture ends with
// availability.ErrNoDevice and Open fails until Replug is called.
func (d *Dummy) Unplug() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gone = true
	if d.unplugged != nil {
		close(d.unplugged)
		d.unplugged = nil
	}
}

// Replug makes the device available again.
func (d *Dummy) Replug() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gone = false
}

// Opens returns how many times the device has been opened.
func (d *Dummy) Opens() int {
	return int(atomic.LoadInt32(&d.opens))
}

// Closes returns how many times the device has been closed after opening.
func (d *Dummy) Closes() int {
	return int(atomic.LoadInt32(&d.closes))
}

// IsOpen reports whether the device currently holds an open session.
func (d *Dummy) IsOpen() bool {
	return d.Opens() > d.Closes()
}
