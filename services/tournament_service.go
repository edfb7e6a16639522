package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/repositories"
	"github.com/Maldini80/torneos-core/utils"
)

type CreateTournamentInput struct {
	Name     string         `json:"name"`
	ShortID  string         `json:"short_id,omitempty"`
	FormatID string         `json:"format_id,omitempty"`
	Config   *models.Config `json:"config,omitempty"`
}

type ListTournamentsFilter struct {
	Statuses []models.TournamentStatus
	Limit    int
	Offset   int
}

// TournamentService управляет жизненным циклом агрегата: создание,
// жеребьёвка и её отмена, отмена турнира.
type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByShortID(ctx context.Context, shortID string) (*models.Tournament, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	// Draw — одноразовая жеребьёвка: перемешивает утверждённые команды,
	// режет на группы и строит календарь. Матчи первого тура активируются
	// сразу, остальные ждут ленивой активации.
	Draw(ctx context.Context, shortID string) (*models.Tournament, error)
	// UndoDraw откатывает жеребьёвку целиком. Отказ, если внутри структуры
	// уже есть хотя бы один записанный результат.
	UndoDraw(ctx context.Context, shortID string) (*models.Tournament, error)
	CancelTournament(ctx context.Context, shortID string) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, shortID string) error
}

type tournamentService struct {
	repo        repositories.TournamentRepository
	scheduleGen brackets.ScheduleGenerator
	hub         *brackets.Hub
	logger      *slog.Logger

	// shuffle подменяется в тестах на детерминированный вариант.
	shuffle func(n int, swap func(i, j int))
}

func NewTournamentService(
	repo repositories.TournamentRepository,
	scheduleGen brackets.ScheduleGenerator,
	hub *brackets.Hub,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		repo:        repo,
		scheduleGen: scheduleGen,
		hub:         hub,
		logger:      logger,
		shuffle:     rand.Shuffle,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}

	var cfg models.Config
	switch {
	case input.Config != nil:
		cfg = *input.Config
	case input.FormatID != "":
		known, err := models.FormatByID(input.FormatID)
		if err != nil {
			return nil, err
		}
		cfg = known
	default:
		return nil, errors.New("either format_id or a custom config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shortID := strings.TrimSpace(input.ShortID)
	if shortID == "" {
		shortID = utils.NewShortID(name)
	}

	t := &models.Tournament{
		ShortID:   shortID,
		Name:      name,
		Status:    models.StatusRegistrationOpen,
		Config:    cfg,
		Teams:     models.NewTeamPool(),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, t); err != nil {
		if errors.Is(err, repositories.ErrTournamentConflict) {
			return nil, ErrShortIDConflict
		}
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.String("short_id", t.ShortID),
		slog.String("format", cfg.FormatID),
		slog.Int("team_count", cfg.TeamCount))
	return t, nil
}

func (s *tournamentService) GetTournamentByShortID(ctx context.Context, shortID string) (*models.Tournament, error) {
	t, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	return s.repo.List(ctx, repositories.ListTournamentsFilter{
		Statuses: filter.Statuses,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	})
}

func (s *tournamentService) Draw(ctx context.Context, shortID string) (*models.Tournament, error) {
	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		if t.Structure != nil {
			return nil, ErrDrawAlreadyDone
		}
		if len(t.Teams.Approved) != t.Config.TeamCount {
			return nil, fmt.Errorf("%w: approved %d, configured %d", ErrRosterIncomplete, len(t.Teams.Approved), t.Config.TeamCount)
		}
		if err := transition(ctx, t, models.EventDraw); err != nil {
			return nil, err
		}

		structure, err := s.generateStructure(ctx, t)
		if err != nil {
			return nil, err
		}
		t.Structure = structure
		return []Event{{Type: brackets.EventTournamentUpdated, Payload: t}}, nil
	})
	if err != nil {
		return nil, err
	}

	publishEvents(s.hub, t.ShortID, events)
	s.logger.Info("draw completed",
		slog.String("tournament", t.ShortID),
		slog.Int("groups", len(t.Structure.Groups)))
	return t, nil
}

// generateStructure перемешивает утверждённые команды, раскладывает по
// группам и строит однокруговой календарь каждой группы.
func (s *tournamentService) generateStructure(ctx context.Context, t *models.Tournament) (*models.Structure, error) {
	// Карта не даёт стабильного порядка: сначала сортировка по id капитана,
	// затем перемешивание — сама жеребьёвка.
	teams := make([]*models.TeamRecord, 0, len(t.Teams.Approved))
	for _, rec := range t.Teams.Approved {
		teams = append(teams, rec)
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].CaptainID < teams[j].CaptainID })
	s.shuffle(len(teams), func(i, j int) { teams[i], teams[j] = teams[j], teams[i] })

	groupSize := t.Config.TeamCount / t.Config.Groups
	structure := &models.Structure{
		Groups:   make(map[string]*models.Group, t.Config.Groups),
		Schedule: make(map[string][]*models.Match, t.Config.Groups),
	}

	for i := 0; i < t.Config.Groups; i++ {
		name := fmt.Sprintf("Group %c", 'A'+i)
		group := &models.Group{Name: name}
		for _, rec := range teams[i*groupSize : (i+1)*groupSize] {
			group.Teams = append(group.Teams, &models.TeamInGroup{
				CaptainID: rec.CaptainID,
				Name:      rec.Name,
			})
		}

		schedule, err := s.scheduleGen.GenerateSchedule(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("failed to generate schedule for %s: %w", name, err)
		}
		// Первый тур стартует сразу, остальные активируются лениво.
		for _, m := range schedule {
			if m.Round == 1 && !m.IsBye() {
				m.Status = models.StatusInProgress
			}
		}

		structure.Groups[name] = group
		structure.Schedule[name] = schedule
	}
	return structure, nil
}

func (s *tournamentService) UndoDraw(ctx context.Context, shortID string) (*models.Tournament, error) {
	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		if t.Structure.HasAnyResult() {
			return nil, ErrStructureHasResults
		}
		if err := transition(ctx, t, models.EventUndoDraw); err != nil {
			return nil, err
		}
		t.Structure = nil
		t.Champion = nil
		if len(t.Teams.Approved) == t.Config.TeamCount {
			if err := transition(ctx, t, models.EventRosterFilled); err != nil {
				return nil, err
			}
		}
		return []Event{{Type: brackets.EventTournamentUpdated, Payload: t}}, nil
	})
	if err != nil {
		return nil, err
	}

	publishEvents(s.hub, t.ShortID, events)
	s.logger.Info("draw undone", slog.String("tournament", t.ShortID))
	return t, nil
}

func (s *tournamentService) CancelTournament(ctx context.Context, shortID string) (*models.Tournament, error) {
	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		if err := transition(ctx, t, models.EventCancel); err != nil {
			return nil, err
		}
		return []Event{{Type: brackets.EventTournamentUpdated, Payload: t}}, nil
	})
	if err != nil {
		return nil, err
	}

	publishEvents(s.hub, t.ShortID, events)
	s.logger.Info("tournament cancelled", slog.String("tournament", t.ShortID))
	return t, nil
}

func (s *tournamentService) DeleteTournament(ctx context.Context, shortID string) error {
	err := s.repo.Delete(ctx, shortID)
	if errors.Is(err, repositories.ErrTournamentNotFound) {
		return ErrTournamentNotFound
	}
	return err
}
