package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Maldini80/torneos-core/models"
	"github.com/lib/pq"
)

var (
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrTournamentConflict = errors.New("tournament short id already exists")
	// ErrVersionConflict — документ был перезаписан конкурентной операцией
	// между чтением и сохранением. Сервисы перечитывают агрегат и повторяют
	// мутацию.
	ErrVersionConflict = errors.New("tournament version conflict")
)

type ListTournamentsFilter struct {
	Statuses []models.TournamentStatus
	Limit    int
	Offset   int
}

// TournamentRepository — хранилище агрегата: один документ на турнир,
// полная замена документа на каждую мутацию под оптимистической блокировкой.
type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByShortID(ctx context.Context, shortID string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error)
	// Save заменяет документ целиком. Запись проходит только если версия в
	// базе совпадает с прочитанной; иначе ErrVersionConflict.
	Save(ctx context.Context, tournament *models.Tournament) error
	Delete(ctx context.Context, shortID string) error
}

type postgresTournamentRepository struct {
	db SQLExecutor
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament document: %w", err)
	}

	query := `
		INSERT INTO tournaments (short_id, status, doc, version)
		VALUES ($1, $2, $3, 1)`

	if _, err := r.db.ExecContext(ctx, query, t.ShortID, t.Status, doc); err != nil {
		return r.handleTournamentError(err)
	}
	t.Version = 1
	return nil
}

func (r *postgresTournamentRepository) GetByShortID(ctx context.Context, shortID string) (*models.Tournament, error) {
	query := `SELECT doc, version FROM tournaments WHERE short_id = $1`

	var doc []byte
	var version int
	err := r.db.QueryRowContext(ctx, query, shortID).Scan(&doc, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return unmarshalTournament(doc, version)
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]*models.Tournament, error) {
	query := `SELECT doc, version FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		query += fmt.Sprintf(" AND status = ANY($%d)", argID)
		args = append(args, pq.Array(statuses))
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]*models.Tournament, 0)
	for rows.Next() {
		var doc []byte
		var version int
		if scanErr := rows.Scan(&doc, &version); scanErr != nil {
			return nil, scanErr
		}
		t, unmarshalErr := unmarshalTournament(doc, version)
		if unmarshalErr != nil {
			return nil, unmarshalErr
		}
		tournaments = append(tournaments, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Save(ctx context.Context, t *models.Tournament) error {
	doc, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to marshal tournament document: %w", err)
	}

	query := `
		UPDATE tournaments
		SET doc = $1, status = $2, version = version + 1
		WHERE short_id = $3 AND version = $4`

	result, err := r.db.ExecContext(ctx, query, doc, t.Status, t.ShortID, t.Version)
	if err != nil {
		return r.handleTournamentError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		// Либо документ исчез, либо версия устарела.
		var current int
		checkErr := r.db.QueryRowContext(ctx, `SELECT version FROM tournaments WHERE short_id = $1`, t.ShortID).Scan(&current)
		if errors.Is(checkErr, sql.ErrNoRows) {
			return ErrTournamentNotFound
		}
		if checkErr != nil {
			return checkErr
		}
		return fmt.Errorf("%w: have %d, stored %d", ErrVersionConflict, t.Version, current)
	}
	t.Version++
	return nil
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, shortID string) error {
	query := `DELETE FROM tournaments WHERE short_id = $1`
	result, err := r.db.ExecContext(ctx, query, shortID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func unmarshalTournament(doc []byte, version int) (*models.Tournament, error) {
	var t models.Tournament
	if err := json.Unmarshal(doc, &t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tournament document: %w", err)
	}
	t.Version = version
	return &t, nil
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrTournamentConflict
	}
	return err
}
