package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/repositories"
)

// saveAttempts — сколько раз мутация перечитывается и повторяется при
// конфликте версий, прежде чем сдаться.
const saveAttempts = 3

// Event — уведомление для комнаты турнира, собранное мутацией. Рассылается
// только после успешной записи агрегата: запись — граница долговечности,
// косметические эффекты её не откатывают.
type Event struct {
	Type    string
	Payload interface{}
}

// updateTournament выполняет цикл «прочитать — мутировать — сохранить» с
// повторами по оптимистической блокировке. mutate вызывается на свежем
// агрегате при каждой попытке и может вернуть события для рассылки.
func updateTournament(
	ctx context.Context,
	repo repositories.TournamentRepository,
	shortID string,
	mutate func(t *models.Tournament) ([]Event, error),
) (*models.Tournament, []Event, error) {
	var lastErr error
	for attempt := 0; attempt < saveAttempts; attempt++ {
		t, err := repo.GetByShortID(ctx, shortID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, nil, ErrTournamentNotFound
			}
			return nil, nil, err
		}

		events, err := mutate(t)
		if err != nil {
			return nil, nil, err
		}

		if err := repo.Save(ctx, t); err != nil {
			if errors.Is(err, repositories.ErrVersionConflict) {
				lastErr = err
				continue
			}
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, nil, ErrTournamentNotFound
			}
			return nil, nil, err
		}
		return t, events, nil
	}
	return nil, nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, lastErr)
}

// transition применяет событие жизненного цикла к агрегату, переводя
// ошибку валидатора в сервисную.
func transition(ctx context.Context, t *models.Tournament, event models.LifecycleEvent) error {
	status, err := models.NextStatus(ctx, t.Status, event)
	if err != nil {
		var te *models.TransitionError
		if errors.As(err, &te) {
			return fmt.Errorf("%w: %v", ErrInvalidTransition, te)
		}
		return err
	}
	t.Status = status
	return nil
}

func publishEvents(hub *brackets.Hub, roomID string, events []Event) {
	if hub == nil {
		return
	}
	for _, e := range events {
		hub.BroadcastToRoom(roomID, e.Type, e.Payload)
	}
}
