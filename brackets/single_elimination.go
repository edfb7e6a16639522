package brackets

import (
	"context"
	"errors"
	"fmt"

	"github.com/Maldini80/torneos-core/models"
	"github.com/google/uuid"
)

type SingleEliminationGenerator struct{}

func NewSingleEliminationGenerator() KnockoutGenerator {
	return &SingleEliminationGenerator{}
}

func (g *SingleEliminationGenerator) GetName() string {
	return "SingleElimination"
}

// GenerateOpeningStage строит первую стадию плей-офф перекрёстным посевом:
// посев собирается «занявшие место p» по всем группам, нижняя половина
// разворачивается, пара i — seeds[i] против seeds[N-1-i]. Победитель группы
// не встречает сокомандника по группе в первом раунде.
func (g *SingleEliminationGenerator) GenerateOpeningStage(ctx context.Context, stage string, qualifiers [][]models.TeamSnapshot) ([]*models.Match, error) {
	if len(qualifiers) == 0 {
		return nil, errors.New("cannot generate knockout stage with zero groups")
	}
	perGroup := len(qualifiers[0])
	for i, q := range qualifiers {
		if len(q) != perGroup {
			return nil, fmt.Errorf("uneven qualifier count: group %d has %d, expected %d", i, len(q), perGroup)
		}
	}

	seeds := make([]models.TeamSnapshot, 0, len(qualifiers)*perGroup)
	for pos := 0; pos < perGroup; pos++ {
		for _, groupQualifiers := range qualifiers {
			seeds = append(seeds, groupQualifiers[pos])
		}
	}

	total := len(seeds)
	if total < 2 || total&(total-1) != 0 {
		return nil, fmt.Errorf("qualifier count must be a power of two, got %d", total)
	}

	matches := make([]*models.Match, 0, total/2)
	for i := 0; i < total/2; i++ {
		matches = append(matches, newKnockoutMatch(stage, seeds[i], seeds[total-1-i]))
	}
	return matches, nil
}

// GenerateNextStage спаривает победителей по порядку сетки: победители матчей
// 2i и 2i+1 предыдущей стадии встречаются в матче i следующей.
func (g *SingleEliminationGenerator) GenerateNextStage(ctx context.Context, stage string, winners []models.TeamSnapshot) ([]*models.Match, error) {
	if len(winners) < 2 {
		return nil, fmt.Errorf("not enough winners to build stage %s (found %d)", stage, len(winners))
	}
	if len(winners)%2 != 0 {
		return nil, fmt.Errorf("odd winner count %d for stage %s", len(winners), stage)
	}

	matches := make([]*models.Match, 0, len(winners)/2)
	for i := 0; i < len(winners); i += 2 {
		matches = append(matches, newKnockoutMatch(stage, winners[i], winners[i+1]))
	}
	return matches, nil
}

// Матчи плей-офф активируются сразу: в отличие от групповых туров им нечего
// ждать.
func newKnockoutMatch(stage string, teamA, teamB models.TeamSnapshot) *models.Match {
	return &models.Match{
		ID:     uuid.NewString(),
		Stage:  stage,
		TeamA:  models.OpponentTeam(teamA),
		TeamB:  models.OpponentTeam(teamB),
		Status: models.StatusInProgress,
	}
}
