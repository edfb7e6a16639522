package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/repositories"
	"github.com/Maldini80/torneos-core/standings"
	"golang.org/x/sync/errgroup"
)

// sweepConcurrency ограничивает число турниров, обрабатываемых одной
// итерацией свипа параллельно.
const sweepConcurrency = 4

type OutcomeStatus string

const (
	OutcomePending  OutcomeStatus = "pending"
	OutcomeFinished OutcomeStatus = "finished"
	OutcomeDisputed OutcomeStatus = "disputed"
)

// ReportOutcome возвращается вызывающему (слою бота) для рендера уведомлений:
// ядро само не делает ни Discord-, ни HTTP-вызовов.
type ReportOutcome struct {
	Status     OutcomeStatus      `json:"status"`
	Match      *models.Match      `json:"match"`
	Tournament *models.Tournament `json:"tournament"`
}

// MatchService — reconciler результатов: превращает независимые отчёты двух
// сторон в один авторитетный результат. Совпадение двух отчётов — единственный
// автоматический путь к finished; любое расхождение уходит в disputed и
// решается только административно.
type MatchService interface {
	SubmitReport(ctx context.Context, shortID, matchID, reporterID, score string) (*ReportOutcome, error)
	// ForceResult — административная перезапись. Для уже зафиксированного
	// результата сначала выполняется откат таблицы, затем применение нового:
	// суммарно результат учитывается не более одного раза, сколько бы раз
	// ни вызывали.
	ForceResult(ctx context.Context, shortID, matchID string, goalsA, goalsB int) (*ReportOutcome, error)
	// SweepStuckMatches дозакрывает матчи, у которых ровно один отчёт висит
	// дольше окна ожидания: молчание второй стороны трактуется как согласие.
	SweepStuckMatches(ctx context.Context) error
}

type matchService struct {
	repo        repositories.TournamentRepository
	progression ProgressionService
	archive     ArchiveService
	hub         *brackets.Hub
	logger      *slog.Logger
	graceWindow time.Duration

	// now подменяется в тестах.
	now func() time.Time
}

func NewMatchService(
	repo repositories.TournamentRepository,
	progression ProgressionService,
	archive ArchiveService,
	hub *brackets.Hub,
	logger *slog.Logger,
	graceWindow time.Duration,
) MatchService {
	return &matchService{
		repo:        repo,
		progression: progression,
		archive:     archive,
		hub:         hub,
		logger:      logger,
		graceWindow: graceWindow,
		now:         time.Now,
	}
}

func (s *matchService) SubmitReport(ctx context.Context, shortID, matchID, reporterID, score string) (*ReportOutcome, error) {
	var outcome OutcomeStatus
	var reported *models.Match
	var seen *models.Tournament

	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		seen = t
		if !t.InPlay() {
			return nil, ErrInvalidTransition
		}
		m, _, ok := t.FindMatch(matchID)
		if !ok {
			return nil, ErrMatchNotFound
		}
		reported = m

		if !m.HasParticipant(reporterID) {
			return nil, ErrInvalidReporter
		}
		goalsA, goalsB, parseErr := models.ParseScore(score)
		if parseErr != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedScore, score)
		}
		normalized := models.FormatScore(goalsA, goalsB)

		switch m.Status {
		case models.MatchStatusFinished:
			// Повторный отчёт после фиксации: совпадающий — no-op, чтобы
			// ретраи бота оставались идемпотентными; другой счёт требует
			// административной перезаписи.
			if m.Result != nil && *m.Result == normalized {
				outcome = OutcomeFinished
				return nil, errNoChanges
			}
			return nil, ErrMatchAlreadyFinished
		case models.StatusDisputed:
			return nil, ErrMatchDisputed
		case models.StatusPending:
			return nil, ErrMatchNotReportable
		}

		if m.ReportedScores == nil {
			m.ReportedScores = make(map[string]models.ReportedScore)
		}
		m.ReportedScores[reporterID] = models.ReportedScore{Score: normalized, ReportedAt: s.now()}

		other, haveOther := otherReport(m, reporterID)
		if !haveOther {
			m.Status = models.StatusAwaitingConfirmation
			outcome = OutcomePending
			return []Event{{Type: brackets.EventMatchAwaiting, Payload: m}}, nil
		}

		if other.Score != normalized {
			m.Status = models.StatusDisputed
			outcome = OutcomeDisputed
			// Рассылка — это и есть канал эскалации арбитру.
			return []Event{{Type: brackets.EventMatchDisputed, Payload: m}}, nil
		}

		finishEvents, finishErr := s.finalize(ctx, t, m, goalsA, goalsB)
		if finishErr != nil {
			return nil, finishErr
		}
		outcome = OutcomeFinished
		return finishEvents, nil
	})
	if errors.Is(err, errNoChanges) {
		return &ReportOutcome{Status: outcome, Match: reported, Tournament: seen}, nil
	}
	if err != nil {
		return nil, err
	}

	s.publish(t, events)
	return &ReportOutcome{Status: outcome, Match: reported, Tournament: t}, nil
}

func (s *matchService) ForceResult(ctx context.Context, shortID, matchID string, goalsA, goalsB int) (*ReportOutcome, error) {
	if goalsA < 0 || goalsB < 0 {
		return nil, ErrMalformedScore
	}
	var forced *models.Match

	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		if t.Terminal() {
			return nil, ErrInvalidTransition
		}
		m, _, ok := t.FindMatch(matchID)
		if !ok {
			return nil, ErrMatchNotFound
		}
		if m.IsBye() {
			return nil, ErrMatchNotReportable
		}
		forced = m
		return s.finalize(ctx, t, m, goalsA, goalsB)
	})
	if err != nil {
		return nil, err
	}

	s.publish(t, events)
	return &ReportOutcome{Status: OutcomeFinished, Match: forced, Tournament: t}, nil
}

// finalize записывает результат и продвигает турнир. Уже существующий
// результат сначала откатывается из таблицы, так что чистое применение
// всегда ровно одно.
func (s *matchService) finalize(ctx context.Context, t *models.Tournament, m *models.Match, goalsA, goalsB int) ([]Event, error) {
	if m.GroupName == "" && goalsA == goalsB {
		return nil, ErrKnockoutDraw
	}

	var group *models.Group
	if m.GroupName != "" {
		var ok bool
		group, ok = t.Group(m.GroupName)
		if !ok {
			return nil, fmt.Errorf("group %q not found for match %s", m.GroupName, m.ID)
		}
	}

	if m.Result != nil && group != nil {
		if err := standings.Revert(group, m); err != nil {
			return nil, err
		}
	}

	result := models.FormatScore(goalsA, goalsB)
	m.Result = &result
	m.Status = models.MatchStatusFinished

	events := []Event{{Type: brackets.EventMatchFinished, Payload: m}}
	if group != nil {
		if err := standings.Apply(group, m, goalsA, goalsB); err != nil {
			return nil, err
		}
		events = append(events, Event{
			Type:    brackets.EventStandingsUpdated,
			Payload: standings.Rank(group, t.Structure.Schedule[m.GroupName]),
		})
	}

	progressEvents, err := s.progression.OnMatchFinished(ctx, t, m)
	if err != nil {
		return nil, err
	}
	return append(events, progressEvents...), nil
}

func (s *matchService) SweepStuckMatches(ctx context.Context) error {
	tournaments, err := s.repo.List(ctx, repositories.ListTournamentsFilter{
		Statuses: []models.TournamentStatus{models.StatusGroupStage, models.StatusKnockout},
	})
	if err != nil {
		return fmt.Errorf("sweep: failed to list in-play tournaments: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, t := range tournaments {
		shortID := t.ShortID
		g.Go(func() error {
			// Сбой одного турнира не останавливает обход остальных.
			if sweepErr := s.sweepTournament(gCtx, shortID); sweepErr != nil {
				s.logger.Error("sweep: tournament failed",
					slog.String("tournament", shortID),
					slog.Any("error", sweepErr))
			}
			return nil
		})
	}
	return g.Wait()
}

// sweepTournament финализирует матчи с единственным отчётом старше окна
// ожидания, как если бы соперник молча согласился.
func (s *matchService) sweepTournament(ctx context.Context, shortID string) error {
	deadline := s.now().Add(-s.graceWindow)

	t, events, err := updateTournament(ctx, s.repo, shortID, func(t *models.Tournament) ([]Event, error) {
		stuck := collectStuck(t, deadline)
		if len(stuck) == 0 {
			return nil, errNoChanges
		}

		var events []Event
		for _, m := range stuck {
			goalsA, goalsB, parseErr := models.ParseScore(loneScore(m))
			if parseErr != nil {
				s.logger.Error("sweep: stored report unparseable",
					slog.String("match", m.ID), slog.Any("error", parseErr))
				continue
			}
			finishEvents, finishErr := s.finalize(ctx, t, m, goalsA, goalsB)
			if finishErr != nil {
				// Например, одинокий ничейный отчёт в плей-офф: оставляем
				// матч арбитру, остальные кандидаты дозакрываем.
				s.logger.Error("sweep: failed to finalize match",
					slog.String("match", m.ID), slog.Any("error", finishErr))
				continue
			}
			s.logger.Info("sweep: auto-finalized match with lone report",
				slog.String("tournament", t.ShortID),
				slog.String("match", m.ID),
				slog.String("result", *m.Result))
			events = append(events, finishEvents...)
		}
		if len(events) == 0 {
			return nil, errNoChanges
		}
		return events, nil
	})
	if errors.Is(err, errNoChanges) {
		return nil
	}
	if err != nil {
		return err
	}

	s.publish(t, events)
	return nil
}

func collectStuck(t *models.Tournament, deadline time.Time) []*models.Match {
	var stuck []*models.Match
	appendStuck := func(matches []*models.Match) {
		for _, m := range matches {
			if m.Status != models.StatusAwaitingConfirmation || len(m.ReportedScores) != 1 {
				continue
			}
			for _, report := range m.ReportedScores {
				if report.ReportedAt.Before(deadline) {
					stuck = append(stuck, m)
				}
			}
		}
	}
	for _, matches := range t.Structure.Schedule {
		appendStuck(matches)
	}
	if t.Structure.Knockout != nil {
		for _, matches := range t.Structure.Knockout.Rounds {
			appendStuck(matches)
		}
	}
	return stuck
}

func loneScore(m *models.Match) string {
	for _, report := range m.ReportedScores {
		return report.Score
	}
	return ""
}

func otherReport(m *models.Match, reporterID string) (models.ReportedScore, bool) {
	for id, report := range m.ReportedScores {
		if id != reporterID {
			return report, true
		}
	}
	return models.ReportedScore{}, false
}

// publish рассылает события комнате турнира и архивирует завершённый турнир.
// Всё после успешной записи — best-effort.
func (s *matchService) publish(t *models.Tournament, events []Event) {
	publishEvents(s.hub, t.ShortID, events)
	if t.Status == models.StatusFinished && s.archive != nil {
		if err := s.archive.ArchiveFinished(context.Background(), t); err != nil {
			s.logger.Error("failed to archive finished tournament",
				slog.String("tournament", t.ShortID),
				slog.Any("error", err))
		}
	}
}

// errNoChanges сигнализирует updateTournament-замыканию, что сохранять нечего.
var errNoChanges = errors.New("no changes to persist")
