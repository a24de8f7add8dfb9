package system

import (
	"fmt"

	"github.com/KevinKickass/HotmockBridge/internal/interfaces"
)

var ErrInvalidTransition = interfaces.ErrInvalidTransition

// ComponentState is the lifecycle state of the board component.
type ComponentState int

const (
	StateInactive ComponentState = iota
	StateActive
	StateError
)

func (s ComponentState) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateActive:
		return "ACTIVE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

var validTransitions = map[ComponentState][]ComponentState{
	StateInactive: {StateActive, StateError},
	StateActive:   {StateInactive, StateError},
	StateError:    {StateInactive},
}

func ValidateTransition(from, to ComponentState) error {
	allowed, exists := validTransitions[from]
	if !exists {
		return fmt.Errorf("invalid current state: %s", from)
	}

	for _, validTo := range allowed {
		if validTo == to {
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
