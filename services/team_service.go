package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/repositories"
)

type RegisterTeamInput struct {
	CaptainID  string `json:"captain_id"`
	CaptainTag string `json:"captain_tag,omitempty"`
	Name       string `json:"name"`
}

// TeamService — конвейер заявок: pending → approved, переполнение в waitlist,
// выбывшие в reserve. Сбор оплаты остаётся на внешнем слое; сюда приходят уже
// подтверждённые админом решения.
type TeamService interface {
	// Register кладёт заявку в pending; при заполненном составе — сразу в
	// waitlist.
	Register(ctx context.Context, shortID string, input RegisterTeamInput) (*models.Tournament, error)
	Approve(ctx context.Context, shortID, captainID string) (*models.Tournament, error)
	Reject(ctx context.Context, shortID, captainID string) (*models.Tournament, error)
	// Kick убирает утверждённую команду в reserve. Только до жеребьёвки.
	Kick(ctx context.Context, shortID, captainID string) (*models.Tournament, error)
	// PromoteFromWaitlist поднимает команду из листа ожидания в основу.
	PromoteFromWaitlist(ctx context.Context, shortID, captainID string) (*models.Tournament, error)
}

type teamService struct {
	repo   repositories.TournamentRepository
	hub    *brackets.Hub
	logger *slog.Logger
}

func NewTeamService(repo repositories.TournamentRepository, hub *brackets.Hub, logger *slog.Logger) TeamService {
	return &teamService{repo: repo, hub: hub, logger: logger}
}

func (s *teamService) Register(ctx context.Context, shortID string, input RegisterTeamInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTeamNameRequired
	}
	if strings.TrimSpace(input.CaptainID) == "" {
		return nil, ErrTeamNameRequired
	}

	return s.mutateRoster(ctx, shortID, func(t *models.Tournament) error {
		if t.Status != models.StatusRegistrationOpen && t.Status != models.StatusFull {
			return ErrRegistrationClosed
		}
		if t.Teams.Contains(input.CaptainID) {
			return ErrAlreadyRegistered
		}
		rec := &models.TeamRecord{
			CaptainID:    input.CaptainID,
			CaptainTag:   input.CaptainTag,
			Name:         name,
			RegisteredAt: time.Now().UTC(),
		}
		if t.Status == models.StatusFull {
			t.Teams.Waitlist[rec.CaptainID] = rec
		} else {
			t.Teams.Pending[rec.CaptainID] = rec
		}
		return nil
	})
}

func (s *teamService) Approve(ctx context.Context, shortID, captainID string) (*models.Tournament, error) {
	return s.mutateRoster(ctx, shortID, func(t *models.Tournament) error {
		rec, ok := t.Teams.Pending[captainID]
		if !ok {
			return ErrTeamNotFound
		}
		if len(t.Teams.Approved) >= t.Config.TeamCount {
			return ErrTournamentFull
		}
		delete(t.Teams.Pending, captainID)
		t.Teams.Approved[captainID] = rec

		if len(t.Teams.Approved) == t.Config.TeamCount && t.Status == models.StatusRegistrationOpen {
			if err := transition(ctx, t, models.EventRosterFilled); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *teamService) Reject(ctx context.Context, shortID, captainID string) (*models.Tournament, error) {
	return s.mutateRoster(ctx, shortID, func(t *models.Tournament) error {
		if _, ok := t.Teams.Pending[captainID]; !ok {
			return ErrTeamNotFound
		}
		delete(t.Teams.Pending, captainID)
		return nil
	})
}

func (s *teamService) Kick(ctx context.Context, shortID, captainID string) (*models.Tournament, error) {
	return s.mutateRoster(ctx, shortID, func(t *models.Tournament) error {
		// После жеребьёвки состав зафиксирован в структуре.
		if t.Structure != nil {
			return ErrInvalidTransition
		}
		rec, ok := t.Teams.Approved[captainID]
		if !ok {
			return ErrTeamNotFound
		}
		delete(t.Teams.Approved, captainID)
		t.Teams.Reserve[captainID] = rec

		if t.Status == models.StatusFull {
			if err := transition(ctx, t, models.EventRosterReopen); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *teamService) PromoteFromWaitlist(ctx context.Context, shortID, captainID string) (*models.Tournament, error) {
	return s.mutateRoster(ctx, shortID, func(t *models.Tournament) error {
		rec, ok := t.Teams.Waitlist[captainID]
		if !ok {
			return ErrTeamNotFound
		}
		if len(t.Teams.Approved) >= t.Config.TeamCount {
			return ErrTournamentFull
		}
		delete(t.Teams.Waitlist, captainID)
		t.Teams.Approved[captainID] = rec

		if len(t.Teams.Approved) == t.Config.TeamCount && t.Status == models.StatusRegistrationOpen {
			if err := transition(ctx, t, models.EventRosterFilled); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *teamService) mutateRoster(ctx context.Context, shortID string, mutate func(t *models.Tournament) error) (*models.Tournament, error) {
	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		if err := mutate(t); err != nil {
			return nil, err
		}
		return []Event{{Type: brackets.EventTournamentUpdated, Payload: t}}, nil
	})
	if err != nil {
		return nil, err
	}
	publishEvents(s.hub, t.ShortID, events)
	return t, nil
}
