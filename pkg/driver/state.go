package driver

import "fmt"

// State represents driver's state
type State string

const (
	// StateClosed means that the driver has not been opened. In this state,
	// all information related to the hardware are still unknown.
	StateClosed State = "closed"
	// StateOpened means that the driver is already opened and information about
	// the hardware are already known and may be extracted from the driver.
	StateOpened State = "opened"
	// StateRunning means that the driver has been sending data. The caller
	// who started the driver may start reading data from the hardware.
	StateRunning State = "running"
)

// Update updates current state, s, to next. If f fails to execute,
// s will stay unchanged. Otherwise, s will be updated to next
func (s *State) Update(next State, f func() error) error {
	checkFuncs := map[State]func() error{
		StateOpened:  s.toOpened,
		StateClosed:  s.toClosed,
		StateRunning: s.toRunning,
	}

	check, ok := checkFuncs[next]
	if !ok {
		return fmt.Errorf("invalid state: %s", next)
	}

	if err := check(); err != nil {
		return err
	}

	if err := f(); err != nil {
		return err
	}

	*s = next
	return nil
}

func (s *State) toOpened() error {
	if *s != StateClosed {
		return errBusy
	}
	return nil
}

func (s *State) toClosed() error {
	return nil
}

func (s *State) toRunning() error {
	if *s == StateClosed {
		return fmt.Errorf("invalid state: driver is closed")
	}

	if *s == StateRunning {
		return fmt.Errorf("invalid state: driver is already running")
	}

	return nil
}
