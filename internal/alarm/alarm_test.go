package alarm

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingPlayer struct {
	mu    sync.Mutex
	plays int
}

func (p *countingPlayer) Play() {
	p.mu.Lock()
	p.plays++
	p.mu.Unlock()
}

func (p *countingPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.plays
}

func TestFire(t *testing.T) {
	player := &countingPlayer{}
	a := New(player, zap.NewNop())

	assert.True(t, a.Enabled(), "alarm starts enabled")

	a.Fire()
	a.Fire()
	assert.Equal(t, 2, player.count(), "Fire has no cooldown")
}

func TestFireDisabled(t *testing.T) {
	player := &countingPlayer{}
	a := New(player, zap.NewNop())

	a.SetEnabled(false)
	a.Fire()
	a.FireCooldown()
	assert.Zero(t, player.count())

	a.SetEnabled(true)
	a.Fire()
	assert.Equal(t, 1, player.count())
}

func TestFireCooldown(t *testing.T) {
	player := &countingPlayer{}
	a := New(player, zap.NewNop())

	a.FireCooldown()
	a.FireCooldown()
	assert.Equal(t, 1, player.count(), "second dispatch inside the cooldown window is dropped")

	a.mu.Lock()
	a.lastFired = time.Now().Add(-2 * Cooldown)
	a.mu.Unlock()

	a.FireCooldown()
	assert.Equal(t, 2, player.count())
}
