package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Maldini80/torneos-core/models"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, TournamentRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresTournamentRepository(db)
}

func sampleTournament() *models.Tournament {
	return &models.Tournament{
		ShortID: "summer-cup",
		Name:    "Summer Cup",
		Status:  models.StatusRegistrationOpen,
		Config: models.Config{
			FormatID:           "groups2x4",
			TeamCount:          8,
			Groups:             2,
			QualifiersPerGroup: 2,
			KnockoutStages:     []string{models.StageSemifinal, models.StageFinal},
		},
		Teams:     models.NewTeamPool(),
		CreatedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateTournament(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tournament := sampleTournament()

	mock.ExpectExec(`INSERT INTO tournaments`).
		WithArgs("summer-cup", models.StatusRegistrationOpen, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), tournament))
	assert.Equal(t, 1, tournament.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTournamentShortIDTaken(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO tournaments`).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), sampleTournament())
	assert.ErrorIs(t, err, ErrTournamentConflict)
}

func TestGetByShortID(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	doc, err := json.Marshal(sampleTournament())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc, version FROM tournaments`).
		WithArgs("summer-cup").
		WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).AddRow(doc, 4))

	got, err := repo.GetByShortID(context.Background(), "summer-cup")
	require.NoError(t, err)
	assert.Equal(t, "Summer Cup", got.Name)
	assert.Equal(t, 4, got.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByShortIDNotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT doc, version FROM tournaments`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByShortID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestSaveBumpsVersion(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tournament := sampleTournament()
	tournament.Version = 4

	mock.ExpectExec(`UPDATE tournaments`).
		WithArgs(sqlmock.AnyArg(), models.StatusRegistrationOpen, "summer-cup", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Save(context.Background(), tournament))
	assert.Equal(t, 5, tournament.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveVersionConflict(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tournament := sampleTournament()
	tournament.Version = 4

	mock.ExpectExec(`UPDATE tournaments`).
		WithArgs(sqlmock.AnyArg(), models.StatusRegistrationOpen, "summer-cup", 4).
		WillReturnResult(sqlmock.NewResult(0, 0))
	// Документ на месте, но версия убежала вперёд.
	mock.ExpectQuery(`SELECT version FROM tournaments`).
		WithArgs("summer-cup").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(6))

	err := repo.Save(context.Background(), tournament)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, 4, tournament.Version, "version stays untouched on conflict")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveTournamentGone(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	tournament := sampleTournament()
	tournament.Version = 4

	mock.ExpectExec(`UPDATE tournaments`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version FROM tournaments`).
		WithArgs("summer-cup").
		WillReturnError(sql.ErrNoRows)

	err := repo.Save(context.Background(), tournament)
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	doc, err := json.Marshal(sampleTournament())
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT doc, version FROM tournaments WHERE 1=1 AND status = ANY`).
		WillReturnRows(sqlmock.NewRows([]string{"doc", "version"}).AddRow(doc, 2))

	got, err := repo.List(context.Background(), ListTournamentsFilter{
		Statuses: []models.TournamentStatus{models.StatusGroupStage, models.StatusKnockout},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "summer-cup", got[0].ShortID)
	assert.Equal(t, 2, got[0].Version)
}

func TestDeleteNotFound(t *testing.T) {
	db, mock, repo := setupMockDB(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM tournaments`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}
