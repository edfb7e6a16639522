package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/repositories"
)

// fakeTournamentRepository повторяет контракт хранилища в памяти: документ
// на турнир, глубокая копия на чтение, проверка версии на запись.
type fakeTournamentRepository struct {
	mu   sync.Mutex
	docs map[string]*storedDoc

	// saveHook вызывается перед каждой записью; позволяет подсунуть
	// конкурентную мутацию между чтением и сохранением.
	saveHook func()
}

type storedDoc struct {
	doc     []byte
	status  models.TournamentStatus
	version int
}

func newFakeRepository() *fakeTournamentRepository {
	return &fakeTournamentRepository{docs: make(map[string]*storedDoc)}
}

func (r *fakeTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[t.ShortID]; exists {
		return repositories.ErrTournamentConflict
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	r.docs[t.ShortID] = &storedDoc{doc: doc, status: t.Status, version: 1}
	t.Version = 1
	return nil
}

func (r *fakeTournamentRepository) GetByShortID(ctx context.Context, shortID string) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[shortID]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	var t models.Tournament
	if err := json.Unmarshal(stored.doc, &t); err != nil {
		return nil, err
	}
	t.Version = stored.version
	return &t, nil
}

func (r *fakeTournamentRepository) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]*models.Tournament, error) {
	r.mu.Lock()
	shortIDs := make([]string, 0, len(r.docs))
	for shortID, stored := range r.docs {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, stored.status) {
			continue
		}
		shortIDs = append(shortIDs, shortID)
	}
	r.mu.Unlock()

	tournaments := make([]*models.Tournament, 0, len(shortIDs))
	for _, shortID := range shortIDs {
		t, err := r.GetByShortID(ctx, shortID)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, nil
}

func (r *fakeTournamentRepository) Save(ctx context.Context, t *models.Tournament) error {
	if r.saveHook != nil {
		r.saveHook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.docs[t.ShortID]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if stored.version != t.Version {
		return fmt.Errorf("%w: have %d, stored %d", repositories.ErrVersionConflict, t.Version, stored.version)
	}
	doc, err := json.Marshal(t)
	if err != nil {
		return err
	}
	stored.doc = doc
	stored.status = t.Status
	stored.version++
	t.Version = stored.version
	return nil
}

func (r *fakeTournamentRepository) Delete(ctx context.Context, shortID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[shortID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.docs, shortID)
	return nil
}

func containsStatus(statuses []models.TournamentStatus, status models.TournamentStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
