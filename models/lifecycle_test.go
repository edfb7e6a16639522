package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatusValidTransitions(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		current TournamentStatus
		event   LifecycleEvent
		want    TournamentStatus
	}{
		{StatusRegistrationOpen, EventRosterFilled, StatusFull},
		{StatusFull, EventRosterReopen, StatusRegistrationOpen},
		{StatusRegistrationOpen, EventDraw, StatusGroupStage},
		{StatusFull, EventDraw, StatusGroupStage},
		{StatusGroupStage, EventUndoDraw, StatusRegistrationOpen},
		{StatusGroupStage, EventGroupsDone, StatusKnockout},
		{StatusKnockout, EventFinalDone, StatusFinished},
		{StatusRegistrationOpen, EventCancel, StatusCancelled},
		{StatusKnockout, EventCancel, StatusCancelled},
	}

	for _, tc := range cases {
		got, err := NextStatus(ctx, tc.current, tc.event)
		require.NoError(t, err, "%s + %s", tc.current, tc.event)
		assert.Equal(t, tc.want, got)
	}
}

func TestNextStatusInvalidTransitions(t *testing.T) {
	ctx := context.Background()

	cases := []struct {
		current TournamentStatus
		event   LifecycleEvent
	}{
		{StatusRegistrationOpen, EventGroupsDone},
		{StatusKnockout, EventUndoDraw},
		{StatusFinished, EventCancel},
		{StatusCancelled, EventDraw},
		{StatusFull, EventFinalDone},
	}

	for _, tc := range cases {
		_, err := NextStatus(ctx, tc.current, tc.event)
		require.Error(t, err, "%s + %s", tc.current, tc.event)

		var te *TransitionError
		assert.ErrorAs(t, err, &te)
	}
}
