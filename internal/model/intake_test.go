package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wastetrace/wastetrace/internal/model"
)

func TestCanTransition(t *testing.T) {
	// Adjacent forward moves.
	assert.True(t, model.CanTransition(model.StatusPending, model.StatusAssigned))
	assert.True(t, model.CanTransition(model.StatusAssigned, model.StatusEnRoute))

	// Forward jumps are allowed.
	assert.True(t, model.CanTransition(model.StatusPending, model.StatusDelivered))
	assert.True(t, model.CanTransition(model.StatusAssigned, model.StatusPicked))

	// Backward moves are not.
	assert.False(t, model.CanTransition(model.StatusDelivered, model.StatusPending))
	assert.False(t, model.CanTransition(model.StatusPicked, model.StatusAssigned))

	// Self-transitions are not.
	assert.False(t, model.CanTransition(model.StatusPending, model.StatusPending))

	// The terminal state is reachable only through QC submission, and
	// admits nothing out.
	assert.False(t, model.CanTransition(model.StatusDelivered, model.StatusQCCompleted))
	assert.False(t, model.CanTransition(model.StatusQCCompleted, model.StatusPending))
	assert.False(t, model.CanTransition(model.StatusQCCompleted, model.StatusDelivered))

	// Unknown statuses never transition.
	assert.False(t, model.CanTransition(model.IntakeStatus("Lost"), model.StatusAssigned))
	assert.False(t, model.CanTransition(model.StatusPending, model.IntakeStatus("Lost")))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []model.IntakeStatus{
		model.StatusPending, model.StatusAssigned, model.StatusEnRoute,
		model.StatusPicked, model.StatusDelivered, model.StatusQCCompleted,
	} {
		assert.True(t, model.ValidStatus(s))
	}
	assert.False(t, model.ValidStatus(model.IntakeStatus("Cancelled")))
}

func TestValidWasteCategory(t *testing.T) {
	assert.True(t, model.ValidWasteCategory(model.WasteRCC))
	assert.True(t, model.ValidWasteCategory(model.WasteBrickMix))
	assert.False(t, model.ValidWasteCategory(model.WasteCategory("Plastic")))
	assert.False(t, model.ValidWasteCategory(model.WasteCategory("")))
}
