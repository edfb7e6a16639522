package brackets

import (
	"context"
	"fmt"

	"github.com/Maldini80/torneos-core/models"
	"github.com/google/uuid"
)

type RoundRobinGenerator struct{}

func NewRoundRobinGenerator() ScheduleGenerator {
	return &RoundRobinGenerator{}
}

func (g *RoundRobinGenerator) GetName() string {
	return "RoundRobin"
}

// GenerateSchedule строит однокруговой календарь группы методом круга:
// при нечётном составе добавляется bye-слот, команды вращаются вокруг
// фиксированной первой позиции. Матчи с bye создаются сразу завершёнными
// и никогда не активируются.
func (g *RoundRobinGenerator) GenerateSchedule(ctx context.Context, group *models.Group) ([]*models.Match, error) {
	if len(group.Teams) < 2 {
		return nil, fmt.Errorf("RoundRobinGenerator: not enough teams in group %s (found %d, min 2 required)", group.Name, len(group.Teams))
	}

	slots := make([]models.Opponent, 0, len(group.Teams)+1)
	for _, t := range group.Teams {
		slots = append(slots, models.OpponentTeam(models.TeamSnapshot{CaptainID: t.CaptainID, Name: t.Name}))
	}
	if len(slots)%2 != 0 {
		slots = append(slots, models.OpponentBye())
	}

	n := len(slots)
	rounds := n - 1
	matches := make([]*models.Match, 0, rounds*n/2)

	for round := 1; round <= rounds; round++ {
		for i := 0; i < n/2; i++ {
			home := slots[i]
			away := slots[n-1-i]

			m := &models.Match{
				ID:        uuid.NewString(),
				GroupName: group.Name,
				Round:     round,
				TeamA:     home,
				TeamB:     away,
				Status:    models.StatusPending,
			}
			if m.IsBye() {
				// Bye — автоматический пропуск тура, тред не создаётся.
				m.Status = models.MatchStatusFinished
			}
			matches = append(matches, m)
		}

		// Вращение: первая позиция фиксирована, остальные сдвигаются.
		rotated := make([]models.Opponent, n)
		rotated[0] = slots[0]
		rotated[1] = slots[n-1]
		copy(rotated[2:], slots[1:n-1])
		slots = rotated
	}

	return matches, nil
}
