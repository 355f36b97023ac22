package alarm

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cooldown is the minimum gap between two alert dispatches when firing
// with FireCooldown.
const Cooldown = 1 * time.Second

// Player emits the audible alert. Failures are the player's problem to
// report; callers never see them.
type Player interface {
	Play()
}

// Alarm is the process-wide alert state, shared across all cameras.
type Alarm struct {
	mu        sync.Mutex
	enabled   bool
	lastFired time.Time
	player    Player
	log       *zap.Logger
}

// New creates an alarm, enabled by default.
func New(player Player, log *zap.Logger) *Alarm {
	return &Alarm{
		enabled: true,
		player:  player,
		log:     log,
	}
}

// SetEnabled toggles the process-wide alarm flag.
func (a *Alarm) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// Enabled reports the current flag.
func (a *Alarm) Enabled() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.enabled
}

// Fire dispatches the alert if the alarm is enabled. No cooldown.
func (a *Alarm) Fire() {
	a.mu.Lock()
	if !a.enabled {
		a.mu.Unlock()
		return
	}
	a.lastFired = time.Now()
	a.mu.Unlock()

	a.player.Play()
}

// FireCooldown dispatches the alert if the alarm is enabled and at least
// Cooldown has passed since the last dispatch.
func (a *Alarm) FireCooldown() {
	a.mu.Lock()
	if !a.enabled || time.Since(a.lastFired) < Cooldown {
		a.mu.Unlock()
		return
	}
	a.lastFired = time.Now()
	a.mu.Unlock()

	a.player.Play()
}
