// Package lifecycle defines the asset state machine: active, warehouse,
// retired. Retired is terminal.
package lifecycle

import (
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"
)

var transitions = map[models.LifecycleState]map[models.LifecycleState]bool{
	models.StateActive: {
		models.StateWarehouse: true,
		models.StateRetired:   true,
	},
	models.StateWarehouse: {
		models.StateActive:  true,
		models.StateRetired: true,
	},
	models.StateRetired: {},
}

func CanTransition(from, to models.LifecycleState) bool {
	return transitions[from][to]
}

// Transition validates a state change, returning InvalidStateError when it
// is not permitted from the current state.
func Transition(from, to models.LifecycleState) error {
	if !from.IsValid() {
		return apperrors.NewInvalidState("unknown lifecycle state: %s", from)
	}
	if !CanTransition(from, to) {
		return apperrors.NewInvalidState("transition from %s to %s is not permitted", from, to)
	}
	return nil
}
