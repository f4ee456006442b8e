package geo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrPositionTimeout  = errors.New("location request timed out")
	ErrInvalidPosition  = errors.New("device reported an invalid position")
	ErrRequestInFlight  = errors.New("a location request is already in progress")
)

// State is the gate's position in the Idle -> Requesting -> {Granted,
// Denied, TimedOut} cycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateGranted
	StateDenied
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateGranted:
		return "granted"
	case StateDenied:
		return "denied"
	case StateTimedOut:
		return "timed_out"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Locator obtains the caller's current device position
type Locator interface {
	CurrentPosition(ctx context.Context) (Coordinates, error)
}

// LocatorFunc adapts a plain function to Locator
type LocatorFunc func(ctx context.Context) (Coordinates, error)

func (f LocatorFunc) CurrentPosition(ctx context.Context) (Coordinates, error) {
	return f(ctx)
}

// StaticLocator answers with a position (or failure) the client already
// acquired, e.g. one reported in a request body.
type StaticLocator struct {
	Position Coordinates
	Err      error
}

func (l StaticLocator) CurrentPosition(ctx context.Context) (Coordinates, error) {
	if l.Err != nil {
		return Coordinates{}, l.Err
	}
	return l.Position, nil
}

// Decision is the outcome of a granted location request
type Decision struct {
	Admitted  bool        `json:"admitted"`
	Distance  float64     `json:"distance"`
	Threshold float64     `json:"threshold"`
	Position  Coordinates `json:"position"`
}

// Gate admits or rejects a check-in attempt based on how far the device is
// from the target station. A zero timeout waits for the locator indefinitely.
type Gate struct {
	mu        sync.Mutex
	state     State
	threshold float64
	timeout   time.Duration
}

func NewGate(thresholdMeters float64, timeout time.Duration) *Gate {
	return &Gate{threshold: thresholdMeters, timeout: timeout}
}

// State reports where the gate is in its cycle. The check-in service logs it
// once Check returns.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Reset returns the gate to Idle unless a request is outstanding. Only callers
// that keep one gate across attempts need it; the check-in service builds a
// fresh gate per attempt.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state != StateRequesting {
		g.state = StateIdle
	}
}

// Check issues one location request and measures the distance to target.
// It never retries: a denied or timed out request is returned to the caller,
// who starts a new cycle by calling Check again.
func (g *Gate) Check(ctx context.Context, loc Locator, target Coordinates) (Decision, error) {
	g.mu.Lock()
	if g.state == StateRequesting {
		g.mu.Unlock()
		return Decision{}, ErrRequestInFlight
	}
	g.state = StateRequesting
	g.mu.Unlock()

	pos, err := g.request(ctx, loc)
	if err != nil {
		g.finish(stateFor(err))
		return Decision{}, err
	}
	if !ValidCoordinates(pos) {
		g.finish(StateIdle)
		return Decision{}, ErrInvalidPosition
	}

	g.finish(StateGranted)
	d := Distance(pos, target)
	return Decision{
		Admitted:  d <= g.threshold,
		Distance:  d,
		Threshold: g.threshold,
		Position:  pos,
	}, nil
}

type positionResult struct {
	pos Coordinates
	err error
}

func (g *Gate) request(ctx context.Context, loc Locator) (Coordinates, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	ch := make(chan positionResult, 1)
	go func() {
		pos, err := loc.CurrentPosition(ctx)
		ch <- positionResult{pos: pos, err: err}
	}()

	select {
	case r := <-ch:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return Coordinates{}, ErrPositionTimeout
		}
		return r.pos, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Coordinates{}, ErrPositionTimeout
		}
		return Coordinates{}, ctx.Err()
	}
}

func (g *Gate) finish(s State) {
	g.mu.Lock()
	g.state = s
	g.mu.Unlock()
}

func stateFor(err error) State {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return StateDenied
	case errors.Is(err, ErrPositionTimeout):
		return StateTimedOut
	}
	return StateIdle
}
