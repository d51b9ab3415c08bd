package sharedmic

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/pion/sharedmic/pkg/driver"
	"github.com/pion/sharedmic/pkg/driver/audiotest"
	"github.com/pion/sharedmic/pkg/io/audio"
	"github.com/pion/sharedmic/pkg/wave"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// testMic records hardware opens and closes into a shared log. When gate
// is set, Open blocks until it is closed.
type testMic struct {
	*audiotest.Dummy
	name string
	log  *eventLog
	gate chan struct{}
}

func (m *testMic) Open() error {
	if m.gate != nil {
		<-m.gate
	}
	if err := m.Dummy.Open(); err != nil {
		return err
	}
	m.log.add("open " + m.name)
	return nil
}

func (m *testMic) Close() error {
	err := m.Dummy.Close()
	m.log.add("close " + m.name)
	return err
}

type fixture struct {
	drivers *driver.Manager
	mics    map[string]*testMic
	log     *eventLog
}

// newFixture registers one test microphone per name. The first one is
// the default device.
func newFixture(t *testing.T, names ...string) *fixture {
	t.Helper()

	f := &fixture{
		drivers: driver.NewManager(),
		mics:    make(map[string]*testMic),
		log:     &eventLog{},
	}
	for i, name := range names {
		mic := &testMic{Dummy: audiotest.New(), name: name, log: f.log}
		priority := driver.PriorityNormal
		if i == 0 {
			priority = driver.PriorityHigh
		}
		_, err := f.drivers.Register(mic, driver.Info{
			Label:      name,
			Name:       "Test microphone " + name,
			DeviceType: driver.Microphone,
			Priority:   priority,
		})
		require.NoError(t, err)
		f.mics[name] = mic
	}
	return f
}

func (f *fixture) mediaDevices() MediaDevices {
	return NewMediaDevices(WithDriverManager(f.drivers))
}

func (f *fixture) newManager(opts ...ManagerOption) *Manager {
	return NewManager(append([]ManagerOption{WithMediaDevices(f.mediaDevices())}, opts...)...)
}

func readWithTimeout(t *testing.T, r audio.Reader) (wave.Audio, error) {
	t.Helper()
	type result struct {
		chunk wave.Audio
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		c, release, err := r.Read()
		if release != nil {
			release()
		}
		ch <- result{c, err}
	}()
	select {
	case res := <-ch:
		return res.chunk, res.err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audio")
		return nil, nil
	}
}

// readUntilErr drains chunks queued before the end of capture and returns
// the terminal error.
func readUntilErr(t *testing.T, r audio.Reader) error {
	t.Helper()
	for i := 0; i < 64; i++ {
		if _, err := readWithTimeout(t, r); err != nil {
			return err
		}
	}
	t.Fatal("reader did not end")
	return nil
}
