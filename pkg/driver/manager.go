package driver

import (
	"fmt"
	"sync"
)

// FilterFn is being used to decide if a driver should be included in the
// query result.
type FilterFn func(Driver) bool

// FilterAudioRecorder returns a filter, which will only allow AudioRecorder
// drivers to be included in the query result.
func FilterAudioRecorder() FilterFn {
	return func(d Driver) bool {
		_, ok := d.(AudioRecorder)
		return ok
	}
}

// FilterDeviceType returns a filter, which will only allow drivers with
// the given device type.
func FilterDeviceType(t DeviceType) FilterFn {
	return func(d Driver) bool {
		return d.Info().DeviceType == t
	}
}

// FilterID returns a filter, which will only allow the driver with the given ID.
func FilterID(id string) FilterFn {
	return func(d Driver) bool {
		return d.ID() == id
	}
}

// FilterLabel returns a filter, which will only allow drivers with the given label.
func FilterLabel(label string) FilterFn {
	return func(d Driver) bool {
		return d.Info().Label == label
	}
}

// FilterAnd returns a filter function to take logical conjunction of given filters.
func FilterAnd(filters ...FilterFn) FilterFn {
	return func(d Driver) bool {
		for _, f := range filters {
			if !f(d) {
				return false
			}
		}
		return true
	}
}

// FilterOr returns a filter function to take logical disjunction of given filters.
func FilterOr(filters ...FilterFn) FilterFn {
	return func(d Driver) bool {
		for _, f := range filters {
			if f(d) {
				return true
			}
		}
		return false
	}
}

// FilterNot returns a filter function to take logical inverse of the given filter.
func FilterNot(filter FilterFn) FilterFn {
	return func(d Driver) bool {
		return !filter(d)
	}
}

// Manager is a registry of drivers and their states.
type Manager struct {
	mu      sync.RWMutex
	drivers map[string]Driver
}

var manager = NewManager()

// GetManager gets manager singleton instance.
func GetManager() *Manager {
	return manager
}

// NewManager creates an empty Manager. Most callers want GetManager; a fresh
// manager is useful to isolate tests from the process-wide registry.
func NewManager() *Manager {
	return &Manager{drivers: make(map[string]Driver)}
}

// Register registers adapter to be discoverable by Query and returns the
// driver wrapping it.
func (m *Manager) Register(a Adapter, info Info) (Driver, error) {
	d := wrapAdapter(a, info)
	if d == nil {
		return nil, fmt.Errorf("adapter has to be an AudioRecorder")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[d.ID()] = d
	return d, nil
}

// Unregister removes the driver with the given ID. Unknown IDs are ignored.
func (m *Manager) Unregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drivers, id)
}

// Query queries by using f to filter drivers, and simply return the filtered results.
func (m *Manager) Query(f FilterFn) []Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]Driver, 0)
	for _, d := range m.drivers {
		if ok := f(d); ok {
			results = append(results, d)
		}
	}

	return results
}
