// Package session tracks the lifecycle of the messaging client login as an
// explicit state machine. The client adapter feeds notifications in through
// Notify; the CLI blocks on WaitReady and renders QRCodes.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type State int

const (
	Unauthenticated State = iota
	AwaitingScan
	Ready
	Failed
	Disconnected
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case AwaitingScan:
		return "awaiting_scan"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is accepted.
func (s State) Terminal() bool {
	return s == Failed || s == Disconnected
}

var (
	ErrAuthFailed   = errors.New("authentication failed")
	ErrDisconnected = errors.New("client disconnected")
)

type EventKind int

const (
	EventQR EventKind = iota
	EventReady
	EventAuthFailure
	EventDisconnected
)

// Event is a lifecycle notification from the messaging client.
type Event struct {
	Kind EventKind
	// QR carries the challenge for EventQR, Reason the cause for failures.
	QR     string
	Reason string
}

func QR(code string) Event            { return Event{Kind: EventQR, QR: code} }
func ReadyEvent() Event               { return Event{Kind: EventReady} }
func AuthFailure(reason string) Event { return Event{Kind: EventAuthFailure, Reason: reason} }
func Disconnect(reason string) Event  { return Event{Kind: EventDisconnected, Reason: reason} }

type Machine struct {
	mu      sync.Mutex
	state   State
	reason  string
	changed chan struct{}
	qr      chan string
}

func New() *Machine {
	return &Machine{
		state:   Unauthenticated,
		changed: make(chan struct{}),
		qr:      make(chan string, 1),
	}
}

// State returns the current state and the reason of the last failure.
func (m *Machine) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.reason
}

// QRCodes delivers QR challenges. Only the latest unread challenge is kept.
func (m *Machine) QRCodes() <-chan string {
	return m.qr
}

// Notify applies an event. It reports whether the event caused a transition;
// events arriving in a terminal state are ignored.
func (m *Machine) Notify(ev Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Terminal() {
		return false
	}

	next := m.state
	switch ev.Kind {
	case EventQR:
		if m.state == Ready {
			return false
		}
		next = AwaitingScan
		m.offerQR(ev.QR)
	case EventReady:
		next = Ready
	case EventAuthFailure:
		next = Failed
	case EventDisconnected:
		next = Disconnected
	default:
		return false
	}

	if next == m.state {
		return false
	}
	m.state = next
	m.reason = ev.Reason
	close(m.changed)
	m.changed = make(chan struct{})
	return true
}

func (m *Machine) offerQR(code string) {
	select {
	case <-m.qr:
	default:
	}
	m.qr <- code
}

// WaitReady blocks until the session is ready, fails, disconnects or ctx ends.
func (m *Machine) WaitReady(ctx context.Context) error {
	for {
		m.mu.Lock()
		state, reason, changed := m.state, m.reason, m.changed
		m.mu.Unlock()

		switch state {
		case Ready:
			return nil
		case Failed:
			return fmt.Errorf("%w: %s", ErrAuthFailed, reason)
		case Disconnected:
			return fmt.Errorf("%w: %s", ErrDisconnected, reason)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}
