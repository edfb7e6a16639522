package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/standings"
)

// ProgressionService решает, когда активировать следующие матчи и когда
// переводить турнир на следующую стадию. Работает на агрегате в памяти, в
// рамках той же мутации, что и вызвавший его reconciler; сохранение — забота
// вызывающего.
type ProgressionService interface {
	// OnMatchFinished продвигает турнир после фиксации результата: лениво
	// активирует следующие групповые туры и проверяет завершение стадии.
	OnMatchFinished(ctx context.Context, t *models.Tournament, m *models.Match) ([]Event, error)

	CheckGroupStageAdvancement(ctx context.Context, t *models.Tournament) ([]Event, error)
	CheckKnockoutAdvancement(ctx context.Context, t *models.Tournament) ([]Event, error)
}

type progressionService struct {
	knockoutGen brackets.KnockoutGenerator
	logger      *slog.Logger
}

func NewProgressionService(knockoutGen brackets.KnockoutGenerator, logger *slog.Logger) ProgressionService {
	return &progressionService{
		knockoutGen: knockoutGen,
		logger:      logger,
	}
}

func (s *progressionService) OnMatchFinished(ctx context.Context, t *models.Tournament, m *models.Match) ([]Event, error) {
	if m.GroupName != "" {
		events := s.activateFollowUps(t, m)
		advanceEvents, err := s.CheckGroupStageAdvancement(ctx, t)
		if err != nil {
			return nil, err
		}
		return append(events, advanceEvents...), nil
	}
	return s.CheckKnockoutAdvancement(ctx, t)
}

// activateFollowUps активирует матчи тура N+1 для обеих сторон завершённого
// матча тура N. Матч следующего тура стартует только когда обе его команды
// закончили текущий тур; bye считается сыгранным с момента жеребьёвки.
func (s *progressionService) activateFollowUps(t *models.Tournament, finished *models.Match) []Event {
	schedule := t.Structure.Schedule[finished.GroupName]
	events := make([]Event, 0, 2)

	for _, side := range []models.Opponent{finished.TeamA, finished.TeamB} {
		if side.Bye || side.Team == nil {
			continue
		}
		next := nextPendingMatch(schedule, side.Team.CaptainID, finished.Round+1)
		if next == nil || next.IsBye() {
			continue
		}
		if !bothSidesReady(schedule, next) {
			continue
		}
		next.Status = models.StatusInProgress
		events = append(events, Event{Type: brackets.EventMatchActivated, Payload: next})
	}
	return events
}

func nextPendingMatch(schedule []*models.Match, captainID string, round int) *models.Match {
	for _, m := range schedule {
		if m.Round == round && m.Status == models.StatusPending && m.HasParticipant(captainID) {
			return m
		}
	}
	return nil
}

// bothSidesReady проверяет, что обе команды матча закончили предыдущий тур.
// Отсутствие матча предыдущего тура трактуется как сыгранный.
func bothSidesReady(schedule []*models.Match, next *models.Match) bool {
	for _, side := range []models.Opponent{next.TeamA, next.TeamB} {
		if side.Bye || side.Team == nil {
			continue
		}
		for _, m := range schedule {
			if m.Round == next.Round-1 && m.HasParticipant(side.Team.CaptainID) && m.Status != models.MatchStatusFinished {
				return false
			}
		}
	}
	return true
}

// CheckGroupStageAdvancement переводит турнир в плей-офф, когда каждый матч
// каждой группы завершён: группы ранжируются, из каждой выходит настроенное
// число команд, собирается первая стадия сетки.
func (s *progressionService) CheckGroupStageAdvancement(ctx context.Context, t *models.Tournament) ([]Event, error) {
	if t.Status != models.StatusGroupStage {
		return nil, nil
	}
	for _, matches := range t.Structure.Schedule {
		for _, m := range matches {
			if m.Status != models.MatchStatusFinished {
				return nil, nil
			}
		}
	}

	qualifiers := make([][]models.TeamSnapshot, 0, len(t.Structure.Groups))
	for _, name := range sortedGroupNames(t.Structure.Groups) {
		group := t.Structure.Groups[name]
		ranked := standings.Rank(group, t.Structure.Schedule[name])
		if len(ranked) < t.Config.QualifiersPerGroup {
			return nil, fmt.Errorf("group %s has %d teams, need %d qualifiers", name, len(ranked), t.Config.QualifiersPerGroup)
		}
		top := make([]models.TeamSnapshot, 0, t.Config.QualifiersPerGroup)
		for _, tg := range ranked[:t.Config.QualifiersPerGroup] {
			top = append(top, models.TeamSnapshot{CaptainID: tg.CaptainID, Name: tg.Name})
		}
		qualifiers = append(qualifiers, top)
	}

	openingStage := t.Config.KnockoutStages[0]
	matches, err := s.knockoutGen.GenerateOpeningStage(ctx, openingStage, qualifiers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket: %w", openingStage, err)
	}

	t.Structure.Knockout = &models.Knockout{
		Rounds:       map[string][]*models.Match{openingStage: matches},
		CurrentStage: openingStage,
	}
	status, err := models.NextStatus(ctx, t.Status, models.EventGroupsDone)
	if err != nil {
		return nil, err
	}
	t.Status = status

	s.logger.Info("group stage complete, knockout generated",
		slog.String("tournament", t.ShortID),
		slog.String("stage", openingStage),
		slog.Int("matches", len(matches)))

	return []Event{{Type: brackets.EventStageAdvanced, Payload: t.Structure.Knockout}}, nil
}

// CheckKnockoutAdvancement продвигает сетку, когда текущая стадия доиграна:
// победители спариваются в порядке сетки; финал фиксирует чемпиона и
// завершает турнир.
func (s *progressionService) CheckKnockoutAdvancement(ctx context.Context, t *models.Tournament) ([]Event, error) {
	if t.Status != models.StatusKnockout || t.Structure.Knockout == nil {
		return nil, nil
	}
	stage := t.Structure.Knockout.CurrentStage
	current := t.Structure.Knockout.Rounds[stage]
	for _, m := range current {
		if m.Status != models.MatchStatusFinished {
			return nil, nil
		}
	}

	winners := make([]models.TeamSnapshot, 0, len(current))
	for _, m := range current {
		w, ok := m.Winner()
		if !ok {
			return nil, fmt.Errorf("knockout match %s has no decisive winner", m.ID)
		}
		winners = append(winners, *w)
	}

	if stage == t.Config.FinalStage() {
		t.Champion = &winners[0]
		status, err := models.NextStatus(ctx, t.Status, models.EventFinalDone)
		if err != nil {
			return nil, err
		}
		t.Status = status
		s.logger.Info("tournament finished",
			slog.String("tournament", t.ShortID),
			slog.String("champion", t.Champion.Name))
		return []Event{{Type: brackets.EventTournamentFinished, Payload: t.Champion}}, nil
	}

	nextStage, _ := t.Config.NextStage(stage)
	matches, err := s.knockoutGen.GenerateNextStage(ctx, nextStage, winners)
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s bracket: %w", nextStage, err)
	}
	t.Structure.Knockout.Rounds[nextStage] = matches
	t.Structure.Knockout.CurrentStage = nextStage

	s.logger.Info("knockout stage advanced",
		slog.String("tournament", t.ShortID),
		slog.String("from", stage),
		slog.String("to", nextStage))

	return []Event{{Type: brackets.EventStageAdvanced, Payload: t.Structure.Knockout}}, nil
}

func sortedGroupNames(groups map[string]*models.Group) []string {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
