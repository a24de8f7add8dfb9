package interfaces

import (
	"context"
	"errors"

	"github.com/KevinKickass/HotmockBridge/internal/bridge"
	"github.com/KevinKickass/HotmockBridge/internal/config"
	"github.com/KevinKickass/HotmockBridge/internal/ports"
)

// ErrInvalidTransition is returned when a lifecycle request does not fit the
// current component state.
var ErrInvalidTransition = errors.New("invalid state transition")

// ComponentStatus represents the current state of the board component
type ComponentStatus struct {
	State       string        `json:"state"`
	Board       string        `json:"board,omitempty"`
	Address     string        `json:"address,omitempty"`
	SessionID   string        `json:"session_id,omitempty"`
	Error       string        `json:"error,omitempty"`
	ActivePorts int           `json:"active_ports"`
	Cycles      *bridge.Stats `json:"cycles,omitempty"`
}

type LifecycleManager interface {
	Config() *config.Config
	Registry() *ports.Registry
	GetCurrentStatus() ComponentStatus
	Activate(ctx context.Context) error
	Deactivate() error
	Reset() error
}
