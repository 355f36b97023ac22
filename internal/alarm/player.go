package alarm

import (
	"os"
	"os/exec"

	"go.uber.org/zap"
)

// SoundPlayer plays the alert through whatever audio tooling the host has.
// Commands run detached so detection calls never block on audio.
type SoundPlayer struct {
	soundFile string
	log       *zap.Logger
}

// NewSoundPlayer creates a player. soundFile may be empty; the player then
// falls back to a generated tone or the terminal bell.
func NewSoundPlayer(soundFile string, log *zap.Logger) *SoundPlayer {
	if soundFile != "" {
		if _, err := os.Stat(soundFile); err != nil {
			log.Warn("alarm sound file not found, using fallback tone",
				zap.String("file", soundFile), zap.Error(err))
			soundFile = ""
		}
	}
	return &SoundPlayer{soundFile: soundFile, log: log}
}

// Play dispatches the alert sound without blocking. Every failure is
// logged and swallowed; an unplayable alarm must never fail a detection.
func (p *SoundPlayer) Play() {
	if p.soundFile != "" {
		if p.spawn("aplay", p.soundFile) || p.spawn("paplay", p.soundFile) {
			return
		}
	}
	// sox tone, then the terminal bell as last resort
	if p.spawn("play", "-nq", "-t", "alsa", "synth", "0.4", "sin", "1500") {
		return
	}
	p.spawn("/bin/sh", "-c", "printf '\\a'")
}

func (p *SoundPlayer) spawn(name string, args ...string) bool {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		p.log.Debug("alarm player spawn failed",
			zap.String("cmd", name), zap.Error(err))
		return false
	}
	go cmd.Wait()
	return true
}
