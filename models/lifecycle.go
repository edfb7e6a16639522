package models

import (
	"context"
	"errors"
	"fmt"

	loopfsm "github.com/looplab/fsm"
)

// LifecycleEvent — действие, переводящее турнир из статуса в статус.
type LifecycleEvent string

const (
	EventRosterFilled LifecycleEvent = "roster_filled"
	EventRosterReopen LifecycleEvent = "roster_reopened"
	EventDraw         LifecycleEvent = "draw"
	EventUndoDraw     LifecycleEvent = "undo_draw"
	EventGroupsDone   LifecycleEvent = "groups_done"
	EventFinalDone    LifecycleEvent = "final_done"
	EventCancel       LifecycleEvent = "cancel"
)

// TransitionError возвращается при недопустимом переходе жизненного цикла.
type TransitionError struct {
	Event   LifecycleEvent
	Current TournamentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from status %q", e.Event, e.Current)
}

// lifecycleEvents — полная таблица переходов турнира.
var lifecycleEvents = []loopfsm.EventDesc{
	{Name: string(EventRosterFilled), Src: []string{string(StatusRegistrationOpen)}, Dst: string(StatusFull)},
	{Name: string(EventRosterReopen), Src: []string{string(StatusFull)}, Dst: string(StatusRegistrationOpen)},
	{Name: string(EventDraw), Src: []string{string(StatusRegistrationOpen), string(StatusFull)}, Dst: string(StatusGroupStage)},
	{Name: string(EventUndoDraw), Src: []string{string(StatusGroupStage)}, Dst: string(StatusRegistrationOpen)},
	{Name: string(EventGroupsDone), Src: []string{string(StatusGroupStage)}, Dst: string(StatusKnockout)},
	{Name: string(EventFinalDone), Src: []string{string(StatusKnockout)}, Dst: string(StatusFinished)},
	{Name: string(EventCancel), Src: []string{
		string(StatusRegistrationOpen), string(StatusFull),
		string(StatusGroupStage), string(StatusKnockout),
	}, Dst: string(StatusCancelled)},
}

// NextStatus проверяет переход через looplab/fsm и возвращает целевой статус.
// Машина создаётся на каждый вызов: looplab/fsm хранит текущее состояние
// внутри себя, а агрегат — в документе.
func NextStatus(ctx context.Context, current TournamentStatus, event LifecycleEvent) (TournamentStatus, error) {
	machine := loopfsm.NewFSM(string(current), lifecycleEvents, nil)

	if err := machine.Event(ctx, string(event)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", &TransitionError{Event: event, Current: current}
		}
		return "", err
	}
	return TournamentStatus(machine.Current()), nil
}
