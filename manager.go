package sharedmic

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	internallog "github.com/pion/sharedmic/internal/logging"
)

// DefaultDeviceKey names the platform's default input device.
const DefaultDeviceKey = "default"

// NormalizeDeviceKey maps an empty hint to DefaultDeviceKey.
func NormalizeDeviceKey(hint string) string {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return DefaultDeviceKey
	}
	return hint
}

func deviceIDFor(key string) string {
	if key == DefaultDeviceKey {
		return ""
	}
	return key
}

// Phase is the manager's lifecycle state.
type Phase int

const (
	// PhaseEmpty means no lease exists.
	PhaseEmpty Phase = iota
	// PhaseOpening means the platform is opening a device.
	PhaseOpening
	// PhaseActive means the lease has outstanding borrows.
	PhaseActive
	// PhaseIdle means the lease is open without borrows and waits for
	// the idle timeout.
	PhaseIdle
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseOpening:
		return "opening"
	case PhaseActive:
		return "active"
	case PhaseIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the manager.
type Snapshot struct {
	Phase     Phase
	DeviceKey string
	RefCount  int
	// Pending is the device a deferred switch is waiting to open.
	Pending string
	Borrows int
}

// DeferredSwitch describes a device change that could not happen because
// the lease was in use.
type DeferredSwitch struct {
	Requested string
	Active    string
	RefCount  int
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerOptions)

type managerOptions struct {
	devices       MediaDevices
	cfg           Config
	idleTimeout   *time.Duration
	loggerFactory logging.LoggerFactory
	metrics       *Metrics
	onDeferred    func(DeferredSwitch)
	onRevoked     func(deviceKey string, err error)
}

// WithMediaDevices sets the platform capture API the manager opens devices
// through.
func WithMediaDevices(md MediaDevices) ManagerOption {
	return func(o *managerOptions) {
		o.devices = md
	}
}

// WithConfig sets the capture profile and idle timeout.
func WithConfig(cfg Config) ManagerOption {
	return func(o *managerOptions) {
		o.cfg = cfg
	}
}

// WithIdleTimeout overrides Config.IdleTimeout.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(o *managerOptions) {
		o.idleTimeout = &d
	}
}

// WithLoggerFactory sets the factory the manager and its default
// MediaDevices log through.
func WithLoggerFactory(f logging.LoggerFactory) ManagerOption {
	return func(o *managerOptions) {
		o.loggerFactory = f
	}
}

// WithMetrics records the lease lifecycle into m.
func WithMetrics(m *Metrics) ManagerOption {
	return func(o *managerOptions) {
		o.metrics = m
	}
}

// WithDeferredSwitchHandler is called whenever an acquire asks for a device
// other than the one a busy lease holds. It runs after that Acquire has
// finished, so the handler may call back into the manager.
func WithDeferredSwitchHandler(f func(DeferredSwitch)) ManagerOption {
	return func(o *managerOptions) {
		o.onDeferred = f
	}
}

// WithRevokedHandler is called when the device backing the lease ends on
// its own. err wraps ErrDeviceRevoked.
func WithRevokedHandler(f func(deviceKey string, err error)) ManagerOption {
	return func(o *managerOptions) {
		o.onRevoked = f
	}
}

type lease struct {
	deviceKey string
	stream    MediaStream
	refCount  int
	stopped   bool
	idleTimer *time.Timer
	// idleGen identifies the latest scheduled idle teardown.
	idleGen uint64
}

type borrowEntry struct {
	lease  *lease
	stream MediaStream
}

// Manager shares a single microphone capture between any number of
// consumers. At most one hardware session is open at a time, and a device
// switch only happens while nobody holds a borrow.
type Manager struct {
	devices     MediaDevices
	cfg         Config
	idleTimeout time.Duration
	log         logging.LeveledLogger
	metrics     *Metrics
	onDeferred  func(DeferredSwitch)
	onRevoked   func(string, error)

	// acquireGuard serializes Acquire so that concurrent callers never
	// open the hardware twice.
	acquireGuard chan struct{}

	mu      sync.Mutex
	lease   *lease
	opening bool
	pending string
	borrows map[string]*borrowEntry
	closed  bool
}

// NewManager creates a Manager. Without WithMediaDevices it captures from
// the process-wide driver manager.
func NewManager(opts ...ManagerOption) *Manager {
	o := managerOptions{
		cfg:           DefaultConfig(),
		loggerFactory: internallog.Factory(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.devices == nil {
		o.devices = NewMediaDevices(WithMediaDevicesLoggerFactory(o.loggerFactory))
	}
	idle := o.cfg.IdleTimeout
	if o.idleTimeout != nil {
		idle = *o.idleTimeout
	}

	return &Manager{
		devices:      o.devices,
		cfg:          o.cfg,
		idleTimeout:  idle,
		log:          o.loggerFactory.NewLogger("sharedmic"),
		metrics:      o.metrics,
		onDeferred:   o.onDeferred,
		onRevoked:    o.onRevoked,
		acquireGuard: make(chan struct{}, 1),
		borrows:      make(map[string]*borrowEntry),
	}
}

// Acquire hands out a borrow on the lease for deviceHint, opening the
// device if no lease exists. An empty hint means the default device.
//
// If the lease is idle on another device it is torn down before the new
// device is opened. If it is busy on another device the caller shares the
// existing lease instead, the borrow is marked deferred and the requested
// device becomes the pending switch.
//
// ctx only bounds the wait for a concurrent Acquire to finish.
func (m *Manager) Acquire(ctx context.Context, deviceHint string) (*Borrow, error) {
	select {
	case m.acquireGuard <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	b, deferred, err := m.acquire(NormalizeDeviceKey(deviceHint))
	<-m.acquireGuard
	if err != nil {
		return nil, err
	}

	if deferred != nil && m.onDeferred != nil {
		m.onDeferred(*deferred)
	}
	return b, nil
}

// acquire must be called with acquireGuard held.
func (m *Manager) acquire(key string) (*Borrow, *DeferredSwitch, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, ErrManagerClosed
	}

	if l := m.lease; l != nil && l.refCount == 0 && l.deviceKey != key {
		m.log.Infof("switching capture from idle device %s to %s", l.deviceKey, key)
		m.teardownLocked(l)
	}

	if m.lease == nil {
		if err := m.openLocked(key); err != nil {
			m.mu.Unlock()
			return nil, nil, err
		}
	}

	l := m.lease
	var deferred *DeferredSwitch
	if l.deviceKey != key {
		deferred = &DeferredSwitch{Requested: key, Active: l.deviceKey, RefCount: l.refCount}
		m.pending = key
		m.metrics.deferredSwitch()
		m.log.Warnf("capture device change to %s deferred until %d borrow(s) of %s are released", key, l.refCount, l.deviceKey)
	} else if m.pending != "" {
		m.log.Debugf("dropping pending switch to %s, %s requested again", m.pending, key)
		m.pending = ""
	}

	if l.idleTimer != nil {
		l.idleTimer.Stop()
		l.idleTimer = nil
	}
	l.refCount++

	b := &Borrow{
		id:        uuid.NewString(),
		deviceKey: l.deviceKey,
		requested: key,
		deferred:  deferred != nil,
		stream:    l.stream.Clone(),
	}
	m.borrows[b.id] = &borrowEntry{lease: l, stream: b.stream}
	m.metrics.setLease(l)
	m.log.Debugf("borrow %s on %s, %d outstanding", b.id, l.deviceKey, l.refCount)
	m.mu.Unlock()
	return b, deferred, nil
}

// AcquirePending acquires the device of the pending switch. Without one it
// acquires the current lease's device, or the default device when there is
// no lease.
func (m *Manager) AcquirePending(ctx context.Context) (*Borrow, error) {
	hint, ok := m.PendingSwitch()
	if !ok {
		m.mu.Lock()
		if m.lease != nil {
			hint = m.lease.deviceKey
		}
		m.mu.Unlock()
	}
	return m.Acquire(ctx, hint)
}

// openLocked opens key with the platform and installs the new lease. m.mu
// is released while the platform call is in flight; acquireGuard keeps
// other acquires out in the meantime.
func (m *Manager) openLocked(key string) error {
	m.opening = true
	m.mu.Unlock()

	stream, err := m.devices.GetUserMedia(MediaStreamConstraints{
		Audio: canonicalProfile(m.cfg, deviceIDFor(key)),
	})

	m.mu.Lock()
	m.opening = false
	if err != nil {
		m.metrics.acquireFailed(err)
		m.log.Errorf("failed to open capture device %s: %v", key, err)
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, key, err)
	}
	if m.closed {
		stopTracks(stream)
		return ErrManagerClosed
	}

	l := &lease{deviceKey: key, stream: stream}
	m.lease = l
	if m.pending == key {
		m.pending = ""
	}
	m.metrics.sessionOpened()
	m.log.Infof("opened capture device %s", key)

	for _, t := range stream.GetTracks() {
		t.OnEnded(func(err error) {
			m.revoke(l, err)
		})
	}
	return nil
}

// Release hands a borrow back. Its tracks are stopped, and when it was the
// last borrow on the lease the hardware is torn down, immediately or after
// the idle timeout. Releasing the same borrow twice is a no-op.
func (m *Manager) Release(b *Borrow) {
	if b == nil {
		return
	}
	stopTracks(b.stream)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.borrows[b.id]
	if !ok {
		return
	}
	delete(m.borrows, b.id)

	l := e.lease
	if l.refCount > 0 {
		l.refCount--
	}
	m.log.Debugf("released borrow %s on %s, %d outstanding", b.id, l.deviceKey, l.refCount)
	if l.refCount > 0 {
		m.metrics.setLease(m.lease)
		return
	}
	m.idleLocked(l)
	m.metrics.setLease(m.lease)
}

func (m *Manager) idleLocked(l *lease) {
	switching := m.pending != "" && m.pending != l.deviceKey
	if m.idleTimeout <= 0 || switching || m.lease != l {
		m.teardownLocked(l)
		return
	}

	m.log.Debugf("capture device %s idle, closing in %v", l.deviceKey, m.idleTimeout)
	l.idleGen++
	gen := l.idleGen
	l.idleTimer = time.AfterFunc(m.idleTimeout, func() {
		m.expire(l, gen)
	})
}

// expire tears l down unless it was re-acquired or rescheduled since the
// timer for gen was armed.
func (m *Manager) expire(l *lease, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.refCount > 0 || l.stopped || l.idleTimer == nil || l.idleGen != gen {
		return
	}
	m.teardownLocked(l)
	m.metrics.setLease(m.lease)
}

// teardownLocked stops the lease's hardware session and clears the slot if
// it still holds l.
func (m *Manager) teardownLocked(l *lease) {
	if l.idleTimer != nil {
		l.idleTimer.Stop()
		l.idleTimer = nil
	}
	if m.lease == l {
		m.lease = nil
	}
	if l.stopped {
		return
	}
	l.stopped = true
	stopTracks(l.stream)
	m.metrics.sessionClosed()
	m.log.Infof("closed capture device %s", l.deviceKey)
}

func (m *Manager) revoke(l *lease, cause error) {
	m.mu.Lock()
	if l.stopped {
		m.mu.Unlock()
		return
	}
	l.stopped = true
	if l.idleTimer != nil {
		l.idleTimer.Stop()
		l.idleTimer = nil
	}
	if m.lease == l {
		m.lease = nil
	}
	refs := l.refCount
	m.metrics.revoked()
	m.metrics.sessionClosed()
	m.metrics.setLease(m.lease)
	m.mu.Unlock()

	stopTracks(l.stream)

	err := fmt.Errorf("%w: %s: %w", ErrDeviceRevoked, l.deviceKey, cause)
	m.log.Warnf("capture device %s ended with %d borrow(s) outstanding: %v", l.deviceKey, refs, cause)
	if m.onRevoked != nil {
		m.onRevoked(l.deviceKey, err)
	}
}

// PendingSwitch returns the device a deferred switch is waiting for.
func (m *Manager) PendingSwitch() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending, m.pending != ""
}

// State returns a snapshot of the manager.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Phase:   PhaseEmpty,
		Pending: m.pending,
		Borrows: len(m.borrows),
	}
	if m.opening {
		s.Phase = PhaseOpening
	}
	if l := m.lease; l != nil {
		s.DeviceKey = l.deviceKey
		s.RefCount = l.refCount
		s.Phase = PhaseIdle
		if l.refCount > 0 {
			s.Phase = PhaseActive
		}
	}
	return s
}

// Close tears down the lease and stops every outstanding borrow. Later
// acquires fail with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for id, e := range m.borrows {
		stopTracks(e.stream)
		delete(m.borrows, id)
		if !e.lease.stopped {
			m.teardownLocked(e.lease)
		}
	}
	if m.lease != nil {
		m.teardownLocked(m.lease)
	}
	m.pending = ""
	m.metrics.setLease(nil)
	return nil
}
