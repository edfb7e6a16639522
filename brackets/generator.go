package brackets

import (
	"context"

	"github.com/Maldini80/torneos-core/models"
)

// ScheduleGenerator строит полный календарь группы (все туры сразу; активация
// матчей по турам — забота контроллера прогрессии).
type ScheduleGenerator interface {
	GenerateSchedule(ctx context.Context, group *models.Group) ([]*models.Match, error)

	GetName() string
}

// KnockoutGenerator строит матчи стадий плей-офф.
type KnockoutGenerator interface {
	// GenerateOpeningStage собирает первую стадию из квалифицировавшихся
	// команд: qualifiers[g] — топ группы g, в порядке имён групп, ранг внутри
	// среза по месту в таблице.
	GenerateOpeningStage(ctx context.Context, stage string, qualifiers [][]models.TeamSnapshot) ([]*models.Match, error)

	// GenerateNextStage спаривает победителей завершённой стадии в порядке
	// сетки (фиксированный посев, без повторной жеребьёвки).
	GenerateNextStage(ctx context.Context, stage string, winners []models.TeamSnapshot) ([]*models.Match, error)

	GetName() string
}
