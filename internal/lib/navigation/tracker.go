// Package navigation tracks live position updates against an assembled
// route, advancing maneuver steps as turn points are reached.
package navigation

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/lib/geo"
	"github.com/rideline/navigator/internal/lib/route"
)

// DefaultTurnAdvanceThresholdKm is the proximity below which the current
// maneuver counts as reached: 0.05 km = 50 m.
const DefaultTurnAdvanceThresholdKm = 0.05

// State is the tracker lifecycle state
type State int

const (
	StateIdle State = iota
	StateActive
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ErrAlreadyStarted is returned by Start on a tracker that left Idle
var ErrAlreadyStarted = errors.New("navigation already started")

// Config tunes tracker behavior
type Config struct {
	TurnAdvanceThresholdKm float64
}

// Progress is the per-update snapshot handed to the presentation layer
type Progress struct {
	SessionID           string  `json:"session_id"`
	StepIndex           int     `json:"step_index"`
	DistanceToStepEndKm float64 `json:"distance_to_step_end_km"`
	PathOnly            bool    `json:"path_only"`
	IsActive            bool    `json:"is_active"`
	IsCompleted         bool    `json:"is_completed"`
	State               string  `json:"state"`
}

// Tracker owns one navigation session. All session mutation happens under
// the mutex, so position callbacks and a Stop from another goroutine can
// race safely.
type Tracker struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger

	sessionID    string
	route        *route.Route
	state        State
	stepIndex    int
	lastPosition *geo.Coordinate
	distanceKm   float64
	lastSeq      uint64
	pathOnly     bool
	unsubscribe  func()

	onStepAdvance func(stepIndex int)
	onComplete    func()
}

// NewTracker creates an idle tracker
func NewTracker(cfg Config, logger *zap.Logger) *Tracker {
	if cfg.TurnAdvanceThresholdKm <= 0 {
		cfg.TurnAdvanceThresholdKm = DefaultTurnAdvanceThresholdKm
	}
	return &Tracker{
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// OnStepAdvance registers a callback fired once per step advance.
// Must be set before Start.
func (t *Tracker) OnStepAdvance(fn func(stepIndex int)) { t.onStepAdvance = fn }

// OnComplete registers a callback fired when the final step is reached.
// Must be set before Start.
func (t *Tracker) OnComplete(fn func()) { t.onComplete = fn }

// Start transitions Idle -> Active for the given route. A route without
// steps starts in path-only mode: positions are recorded for display but
// no step advancement happens.
func (t *Tracker) Start(r *route.Route) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateIdle {
		return "", ErrAlreadyStarted
	}

	t.sessionID = uuid.New().String()
	t.route = r
	t.state = StateActive
	t.stepIndex = 0
	t.pathOnly = len(r.Steps) == 0

	t.logger.Info("navigation started",
		zap.String("session_id", t.sessionID),
		zap.String("route_id", r.ID),
		zap.Int("steps", len(r.Steps)),
		zap.Bool("path_only", t.pathOnly))

	return t.sessionID, nil
}

// SetUnsubscribe installs the position source release hook, invoked when
// the session reaches a terminal state.
func (t *Tracker) SetUnsubscribe(fn func()) {
	t.mu.Lock()
	t.unsubscribe = fn
	t.mu.Unlock()
}

// OnPositionUpdate applies one position update. Updates outside the
// Active state are silently ignored: they can legitimately race with
// session teardown. At most one step advances per update regardless of
// how close the position is to later turns; GPS noise near clustered
// maneuvers must never skip steps.
func (t *Tracker) OnPositionUpdate(pos geo.Coordinate) Progress {
	t.mu.Lock()
	p, advancedTo, completed := t.applyLocked(pos)
	onStepAdvance, onComplete := t.onStepAdvance, t.onComplete
	t.mu.Unlock()

	t.dispatch(p, advancedTo, completed, onStepAdvance, onComplete)
	return p
}

// OnPositionUpdateSeq applies an update carrying a monotonically
// increasing sequence number, dropping anything at or below the last
// applied one. Used when the position source cannot guarantee ordering.
// Guard and application share one critical section, so a stale update
// can never slip in between a newer update's admission and its effect.
func (t *Tracker) OnPositionUpdateSeq(seq uint64, pos geo.Coordinate) Progress {
	t.mu.Lock()
	if seq <= t.lastSeq {
		p := t.snapshotLocked()
		t.mu.Unlock()
		return p
	}
	t.lastSeq = seq
	p, advancedTo, completed := t.applyLocked(pos)
	onStepAdvance, onComplete := t.onStepAdvance, t.onComplete
	t.mu.Unlock()

	t.dispatch(p, advancedTo, completed, onStepAdvance, onComplete)
	return p
}

// applyLocked mutates the session for one position update. Caller holds
// the mutex. advancedTo is -1 when no step advanced.
func (t *Tracker) applyLocked(pos geo.Coordinate) (p Progress, advancedTo int, completed bool) {
	advancedTo = -1

	if t.state != StateActive {
		return t.snapshotLocked(), advancedTo, false
	}

	t.lastPosition = &pos

	if t.pathOnly {
		return t.snapshotLocked(), advancedTo, false
	}

	step := t.route.Steps[t.stepIndex]
	t.distanceKm = geo.Distance(pos, step.EndLocation, geo.EarthRadiusKm)

	if t.distanceKm < t.cfg.TurnAdvanceThresholdKm {
		if t.stepIndex < len(t.route.Steps)-1 {
			t.stepIndex++
			advancedTo = t.stepIndex
		} else {
			t.state = StateCompleted
			completed = true
			t.releaseLocked()
		}
	}

	return t.snapshotLocked(), advancedTo, completed
}

// dispatch fires callbacks outside the lock so they may call back into
// the tracker
func (t *Tracker) dispatch(p Progress, advancedTo int, completed bool, onStepAdvance func(int), onComplete func()) {
	if advancedTo >= 0 && onStepAdvance != nil {
		onStepAdvance(advancedTo)
	}
	if completed {
		t.logger.Info("navigation completed", zap.String("session_id", p.SessionID))
		if onComplete != nil {
			onComplete()
		}
	}
}

// Stop cancels an active session. Calling it on an inactive or already
// stopped tracker is a no-op.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateActive {
		return
	}

	t.state = StateCancelled
	t.releaseLocked()
	t.logger.Info("navigation cancelled", zap.String("session_id", t.sessionID))
}

// Snapshot returns the current progress without applying an update
func (t *Tracker) Snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// State returns the current lifecycle state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Route returns the immutable route under navigation, nil before Start
func (t *Tracker) Route() *route.Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.route
}

// LastPosition returns the most recent accepted position, if any
func (t *Tracker) LastPosition() (geo.Coordinate, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastPosition == nil {
		return geo.Coordinate{}, false
	}
	return *t.lastPosition, true
}

func (t *Tracker) snapshotLocked() Progress {
	return Progress{
		SessionID:           t.sessionID,
		StepIndex:           t.stepIndex,
		DistanceToStepEndKm: t.distanceKm,
		PathOnly:            t.pathOnly,
		IsActive:            t.state == StateActive,
		IsCompleted:         t.state == StateCompleted,
		State:               t.state.String(),
	}
}

func (t *Tracker) releaseLocked() {
	if t.unsubscribe != nil {
		t.unsubscribe()
		t.unsubscribe = nil
	}
}
