package app

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/deploymenttheory/go-bootctl/internal/interfaces"
	"github.com/deploymenttheory/go-bootctl/internal/types"
)

// Snapshot is the published state of a session
type Snapshot struct {
	Authority   string                           `json:"authority" yaml:"authority"`
	NumberSlots uint32                           `json:"number_slots" yaml:"number_slots"`
	Slots       [types.SlotCount]types.SlotState `json:"slots" yaml:"slots"`
	Busy        bool                             `json:"busy" yaml:"busy"`
	LastError   string                           `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// Session serializes access to a BootController. Refresh calls that overlap are coalesced
// into one; activation is refused until a refresh has succeeded.
type Session struct {
	control interfaces.BootController
	logger  logrus.FieldLogger

	mu    sync.Mutex
	group singleflight.Group
	busy  atomic.Bool

	stateMu sync.RWMutex
	lastErr error
	ready   bool
}

// NewSession wraps control. A nil logger uses the standard logger.
func NewSession(control interfaces.BootController, logger logrus.FieldLogger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		control: control,
		logger:  logger.WithField("component", "session"),
	}
}

// Refresh re-reads slot metadata. Concurrent callers share a single refresh.
func (s *Session) Refresh() error {
	_, err, shared := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.run("failed to refresh slot state", s.control.Refresh)
	})
	if shared {
		s.logger.Debug("joined in-flight refresh")
	}
	return err
}

// Activate makes slot the active boot slot. It fails without touching the device when the
// last refresh or mutation failed.
func (s *Session) Activate(slot uint32) error {
	if !s.Ready() {
		return s.notReady()
	}
	return s.run("failed to set active boot slot", func() error {
		return s.control.SetActiveBootSlot(slot)
	})
}

// MarkBootSuccessful marks the running slot successful.
func (s *Session) MarkBootSuccessful() error {
	if !s.Ready() {
		return s.notReady()
	}
	return s.run("failed to mark boot successful", s.control.MarkBootSuccessful)
}

// CurrentSlot returns the slot the system booted from.
func (s *Session) CurrentSlot() (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, err := s.control.CurrentSlot()
	if err != nil {
		return 0, WrapError("failed to get current slot", err)
	}
	return slot, nil
}

func (s *Session) run(message string, fn func() error) error {
	s.mu.Lock()
	s.busy.Store(true)
	defer func() {
		s.busy.Store(false)
		s.mu.Unlock()
	}()

	err := WrapError(message, fn())

	s.stateMu.Lock()
	s.lastErr = err
	s.ready = err == nil
	s.stateMu.Unlock()

	if err != nil {
		s.logger.WithError(err).Error(message)
	}
	return err
}

func (s *Session) notReady() error {
	if last := s.LastError(); last != nil {
		return NewError(ErrCodeSessionFailed, "refresh required after failure", last)
	}
	return NewError(ErrCodeSessionFailed, "refresh required before changing slots", nil)
}

// Busy reports whether an operation is in progress.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Ready reports whether the last operation succeeded.
func (s *Session) Ready() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.ready
}

// LastError returns the error of the last operation, or nil if it succeeded.
func (s *Session) LastError() error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.lastErr
}

// Snapshot returns the state computed by the last refresh.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{Busy: s.Busy()}
	if err := s.LastError(); err != nil {
		snap.LastError = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Authority = s.control.Authority().String()
	snap.NumberSlots = s.control.NumberSlots()
	for slot := uint32(0); slot < types.SlotCount; slot++ {
		if state, err := s.control.SlotState(slot); err == nil {
			snap.Slots[slot] = state
		}
	}
	return snap
}
