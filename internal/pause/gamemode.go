package pause

import (
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
)

const (
	gameModeDest     = "com.feralinteractive.GameMode"
	gameModePath     = dbus.ObjectPath("/com/feralinteractive/GameMode")
	gameModeProperty = "com.feralinteractive.GameMode.ClientCount"
)

// GameModeDetector asks the Feral GameMode daemon over the session bus
// how many game clients are registered. It is more precise than the
// process-table scan but only covers games that request GameMode.
type GameModeDetector struct {
	conn *dbus.Conn

	pollInterval time.Duration
	lastProbe    time.Time
	lastResult   bool
	probed       bool
	now          func() time.Time
}

// NewGameModeDetector connects to the session bus. It fails when no bus
// is reachable; callers fall back to the Steam detector then.
func NewGameModeDetector(pollInterval time.Duration) (*GameModeDetector, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	if pollInterval < 100*time.Millisecond {
		pollInterval = 1500 * time.Millisecond
	}
	return &GameModeDetector{
		conn:         conn,
		pollInterval: pollInterval,
		now:          time.Now,
	}, nil
}

func (d *GameModeDetector) GameRunning() bool {
	if d.probed && d.now().Sub(d.lastProbe) < d.pollInterval {
		return d.lastResult
	}
	d.lastProbe = d.now()
	d.probed = true

	variant, err := d.conn.Object(gameModeDest, gameModePath).GetProperty(gameModeProperty)
	if err != nil {
		// GameMode not installed or not running: treat as no game.
		d.lastResult = false
		return false
	}
	count, ok := variant.Value().(int32)
	if !ok {
		logger.WithComponent("pause").Warn().
			Interface("value", variant.Value()).
			Msg("unexpected GameMode ClientCount type")
		d.lastResult = false
		return false
	}
	d.lastResult = count > 0
	return d.lastResult
}
