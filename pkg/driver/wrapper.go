package driver

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pion/sharedmic/pkg/driver/availability"
	"github.com/pion/sharedmic/pkg/io/audio"
	"github.com/pion/sharedmic/pkg/prop"
)

var errBusy = availability.ErrBusy

func wrapAdapter(a Adapter, info Info) Driver {
	if _, ok := a.(AudioRecorder); !ok {
		return nil
	}

	return &audioAdapterWrapper{
		Adapter: a,
		id:      uuid.NewString(),
		info:    info,
		state:   StateClosed,
	}
}

type audioAdapterWrapper struct {
	Adapter
	id   string
	info Info

	mu    sync.Mutex
	state State
}

func (w *audioAdapterWrapper) ID() string {
	return w.id
}

func (w *audioAdapterWrapper) Info() Info {
	return w.info
}

func (w *audioAdapterWrapper) Status() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *audioAdapterWrapper) Open() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Update(StateOpened, w.Adapter.Open)
}

func (w *audioAdapterWrapper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return nil
	}
	return w.state.Update(StateClosed, w.Adapter.Close)
}

func (w *audioAdapterWrapper) AudioRecord(p prop.Media) (audio.Reader, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var r audio.Reader
	err := w.state.Update(StateRunning, func() error {
		var err error
		r, err = w.Adapter.(AudioRecorder).AudioRecord(p)
		return err
	})
	return r, err
}
