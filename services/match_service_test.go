package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maldini80/torneos-core/brackets"
	"github.com/Maldini80/torneos-core/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapOf(captainID string) models.TeamSnapshot {
	return models.TeamSnapshot{CaptainID: captainID, Name: strings.ToUpper(captainID)}
}

func groupMatch(id string, round int, captainA, captainB string, status models.MatchStatus) *models.Match {
	return &models.Match{
		ID:        id,
		GroupName: "Group A",
		Round:     round,
		TeamA:     models.OpponentTeam(snapOf(captainA)),
		TeamB:     models.OpponentTeam(snapOf(captainB)),
		Status:    status,
	}
}

// seedGroupStage кладёт в репозиторий турнир в групповом этапе: одна группа
// из четырёх команд, первый тур активен, остальные ждут.
func seedGroupStage(t *testing.T, repo *fakeTournamentRepository) *models.Tournament {
	t.Helper()

	group := &models.Group{Name: "Group A"}
	for _, id := range []string{"a", "b", "c", "d"} {
		group.Teams = append(group.Teams, &models.TeamInGroup{CaptainID: id, Name: strings.ToUpper(id)})
	}

	tournament := &models.Tournament{
		ShortID: "test-cup",
		Name:    "Test Cup",
		Status:  models.StatusGroupStage,
		Config: models.Config{
			TeamCount:          4,
			Groups:             1,
			QualifiersPerGroup: 2,
			KnockoutStages:     []string{models.StageFinal},
		},
		Teams: models.NewTeamPool(),
		Structure: &models.Structure{
			Groups: map[string]*models.Group{"Group A": group},
			Schedule: map[string][]*models.Match{
				"Group A": {
					groupMatch("m-ab", 1, "a", "b", models.StatusInProgress),
					groupMatch("m-cd", 1, "c", "d", models.StatusInProgress),
					groupMatch("m-ac", 2, "a", "c", models.StatusPending),
					groupMatch("m-bd", 2, "b", "d", models.StatusPending),
					groupMatch("m-ad", 3, "a", "d", models.StatusPending),
					groupMatch("m-bc", 3, "b", "c", models.StatusPending),
				},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), tournament))
	return tournament
}

func newTestMatchService(repo *fakeTournamentRepository) *matchService {
	logger := testLogger()
	progression := NewProgressionService(brackets.NewSingleEliminationGenerator(), logger)
	return NewMatchService(repo, progression, nil, nil, logger, 3*time.Minute).(*matchService)
}

func reloadMatch(t *testing.T, repo *fakeTournamentRepository, shortID, matchID string) *models.Match {
	t.Helper()
	tournament, err := repo.GetByShortID(context.Background(), shortID)
	require.NoError(t, err)
	m, _, ok := tournament.FindMatch(matchID)
	require.True(t, ok, "match %s not found", matchID)
	return m
}

func TestSubmitReportFirstReportAwaitsConfirmation(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)

	outcome, err := svc.SubmitReport(context.Background(), "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, outcome.Status)

	m := reloadMatch(t, repo, "test-cup", "m-ab")
	assert.Equal(t, models.StatusAwaitingConfirmation, m.Status)
	assert.Nil(t, m.Result)
	require.Contains(t, m.ReportedScores, "a")
	assert.Equal(t, "2-1", m.ReportedScores["a"].Score)
}

func TestSubmitReportConsensusFinalizes(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	outcome, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "2-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinished, outcome.Status)

	m := reloadMatch(t, repo, "test-cup", "m-ab")
	require.NotNil(t, m.Result)
	assert.Equal(t, "2-1", *m.Result)
	assert.Equal(t, models.MatchStatusFinished, m.Status)

	// Таблица учла результат ровно один раз.
	tournament, err := repo.GetByShortID(ctx, "test-cup")
	require.NoError(t, err)
	group, _ := tournament.Group("Group A")
	teamA, _ := group.Team("a")
	assert.Equal(t, models.TeamStats{Played: 1, GoalsFor: 2, GoalsAgainst: 1, GoalDifference: 1, Points: 3}, teamA.Stats)

	// Второй тур не стартует, пока c и d не доиграли первый.
	assert.Equal(t, models.StatusPending, reloadMatch(t, repo, "test-cup", "m-ac").Status)
	assert.Equal(t, models.StatusPending, reloadMatch(t, repo, "test-cup", "m-bd").Status)
}

func TestSubmitReportRoundCompletionActivatesNextRound(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	report := func(matchID, reporter, score string) {
		_, err := svc.SubmitReport(ctx, "test-cup", matchID, reporter, score)
		require.NoError(t, err)
	}
	report("m-ab", "a", "2-1")
	report("m-ab", "b", "2-1")
	report("m-cd", "c", "0-3")
	report("m-cd", "d", "0-3")

	// Обе команды каждого матча второго тура доиграли первый.
	assert.Equal(t, models.StatusInProgress, reloadMatch(t, repo, "test-cup", "m-ac").Status)
	assert.Equal(t, models.StatusInProgress, reloadMatch(t, repo, "test-cup", "m-bd").Status)
	// Третий тур всё ещё ждёт.
	assert.Equal(t, models.StatusPending, reloadMatch(t, repo, "test-cup", "m-ad").Status)
}

func TestSubmitReportMismatchDisputes(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	outcome, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "1-2")
	require.NoError(t, err)
	assert.Equal(t, OutcomeDisputed, outcome.Status)

	m := reloadMatch(t, repo, "test-cup", "m-ab")
	assert.Equal(t, models.StatusDisputed, m.Status)
	assert.Nil(t, m.Result)

	// Спор не принимает новых отчётов.
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	assert.ErrorIs(t, err, ErrMatchDisputed)
}

func TestSubmitReportAfterFinish(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "2-1")
	require.NoError(t, err)

	// Повтор того же счёта — идемпотентный no-op.
	outcome, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinished, outcome.Status)

	// Таблица не изменилась.
	tournament, err := repo.GetByShortID(ctx, "test-cup")
	require.NoError(t, err)
	group, _ := tournament.Group("Group A")
	teamA, _ := group.Team("a")
	assert.Equal(t, 1, teamA.Stats.Played)

	// Другой счёт — только через административную перезапись.
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "5-0")
	assert.ErrorIs(t, err, ErrMatchAlreadyFinished)
}

func TestSubmitReportValidation(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, "no-such-cup", "m-ab", "a", "1-0")
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = svc.SubmitReport(ctx, "test-cup", "no-such-match", "a", "1-0")
	assert.ErrorIs(t, err, ErrMatchNotFound)

	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "z", "1-0")
	assert.ErrorIs(t, err, ErrInvalidReporter)

	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "two-one")
	assert.ErrorIs(t, err, ErrMalformedScore)

	// Матч будущего тура ещё не активирован.
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ac", "a", "1-0")
	assert.ErrorIs(t, err, ErrMatchNotReportable)
}

func TestForceResultOverwritesPreviousExactlyOnce(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "2-1")
	require.NoError(t, err)

	outcome, err := svc.ForceResult(ctx, "test-cup", "m-ab", 0, 3)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFinished, outcome.Status)

	m := reloadMatch(t, repo, "test-cup", "m-ab")
	require.NotNil(t, m.Result)
	assert.Equal(t, "0-3", *m.Result)

	// Старый результат откачен, новый применён ровно один раз.
	tournament, err := repo.GetByShortID(ctx, "test-cup")
	require.NoError(t, err)
	group, _ := tournament.Group("Group A")
	teamA, _ := group.Team("a")
	teamB, _ := group.Team("b")
	assert.Equal(t, models.TeamStats{Played: 1, GoalsFor: 0, GoalsAgainst: 3, GoalDifference: -3, Points: 0}, teamA.Stats)
	assert.Equal(t, models.TeamStats{Played: 1, GoalsFor: 3, GoalsAgainst: 0, GoalDifference: 3, Points: 3}, teamB.Stats)
}

func TestForceResultResolvesDispute(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "0-0")
	require.NoError(t, err)

	_, err = svc.ForceResult(ctx, "test-cup", "m-ab", 2, 1)
	require.NoError(t, err)

	m := reloadMatch(t, repo, "test-cup", "m-ab")
	assert.Equal(t, models.MatchStatusFinished, m.Status)
	require.NotNil(t, m.Result)
	assert.Equal(t, "2-1", *m.Result)
}

func TestForceResultRejectsKnockoutDraw(t *testing.T) {
	repo := newFakeRepository()
	ctx := context.Background()

	tournament := &models.Tournament{
		ShortID: "ko-cup",
		Name:    "KO Cup",
		Status:  models.StatusKnockout,
		Config: models.Config{
			TeamCount:          4,
			Groups:             2,
			QualifiersPerGroup: 1,
			KnockoutStages:     []string{models.StageFinal},
		},
		Teams: models.NewTeamPool(),
		Structure: &models.Structure{
			Groups:   map[string]*models.Group{},
			Schedule: map[string][]*models.Match{},
			Knockout: &models.Knockout{
				CurrentStage: models.StageFinal,
				Rounds: map[string][]*models.Match{
					models.StageFinal: {{
						ID:     "final-1",
						Stage:  models.StageFinal,
						TeamA:  models.OpponentTeam(snapOf("a")),
						TeamB:  models.OpponentTeam(snapOf("b")),
						Status: models.StatusInProgress,
					}},
				},
			},
		},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, tournament))
	svc := newTestMatchService(repo)

	_, err := svc.ForceResult(ctx, "ko-cup", "final-1", 1, 1)
	assert.ErrorIs(t, err, ErrKnockoutDraw)
}

func TestSubmitReportRetriesOnVersionConflict(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	// Первая запись натыкается на конкурентную мутацию, повтор проходит.
	conflicts := 1
	repo.saveHook = func() {
		if conflicts == 0 {
			return
		}
		conflicts--
		repo.mu.Lock()
		repo.docs["test-cup"].version++
		repo.mu.Unlock()
	}

	outcome, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomePending, outcome.Status)
}

func TestSweepFinalizesLoneReportAfterGraceWindow(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "4-0")
	require.NoError(t, err)

	// Внутри окна ожидания свип ничего не трогает.
	svc.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, svc.SweepStuckMatches(ctx))
	assert.Equal(t, models.StatusAwaitingConfirmation, reloadMatch(t, repo, "test-cup", "m-ab").Status)

	// После окна одинокий отчёт становится результатом.
	svc.now = func() time.Time { return base.Add(5 * time.Minute) }
	require.NoError(t, svc.SweepStuckMatches(ctx))

	m := reloadMatch(t, repo, "test-cup", "m-ab")
	assert.Equal(t, models.MatchStatusFinished, m.Status)
	require.NotNil(t, m.Result)
	assert.Equal(t, "4-0", *m.Result)

	// Матч без отчётов не затронут.
	assert.Equal(t, models.StatusInProgress, reloadMatch(t, repo, "test-cup", "m-cd").Status)
}

func TestSweepSkipsDisputedMatches(t *testing.T) {
	repo := newFakeRepository()
	seedGroupStage(t, repo)
	svc := newTestMatchService(repo)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.SubmitReport(ctx, "test-cup", "m-ab", "a", "2-1")
	require.NoError(t, err)
	_, err = svc.SubmitReport(ctx, "test-cup", "m-ab", "b", "1-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	require.NoError(t, svc.SweepStuckMatches(ctx))

	// Спор с двумя отчётами остаётся арбитру.
	assert.Equal(t, models.StatusDisputed, reloadMatch(t, repo, "test-cup", "m-ab").Status)
}
