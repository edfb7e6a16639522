package models

import "time"

// TournamentStatus представляет статусы жизненного цикла турнира.
type TournamentStatus string

const (
	StatusRegistrationOpen TournamentStatus = "registration_open"
	StatusFull             TournamentStatus = "full"
	StatusGroupStage       TournamentStatus = "group_stage"
	StatusKnockout         TournamentStatus = "knockout"
	StatusFinished         TournamentStatus = "finished"
	StatusCancelled        TournamentStatus = "cancelled"
)

// Tournament — корневой агрегат. Всё состояние турнира (команды, структура,
// матчи) хранится одним документом и сохраняется целиком за одну запись.
type Tournament struct {
	ShortID   string           `json:"short_id"`
	Name      string           `json:"name"`
	Status    TournamentStatus `json:"status"`
	Config    Config           `json:"config"`
	Teams     TeamPool         `json:"teams"`
	Structure *Structure       `json:"structure,omitempty"`
	Champion  *TeamSnapshot    `json:"champion,omitempty"`
	CreatedAt time.Time        `json:"created_at"`

	// Version is the optimistic-lock counter maintained by the store.
	// Services never touch it directly.
	Version int `json:"-"`
}

// Structure — сгенерированная жеребьёвкой часть агрегата: группы, календарь
// и сетка плей-офф. Отбрасывается целиком при отмене жеребьёвки.
type Structure struct {
	Groups   map[string]*Group   `json:"groups"`
	Schedule map[string][]*Match `json:"schedule"`
	Knockout *Knockout           `json:"knockout,omitempty"`
}

type Knockout struct {
	Rounds       map[string][]*Match `json:"rounds"`
	CurrentStage string              `json:"current_stage"`
}

// HasAnyResult reports whether at least one non-bye match inside the structure
// has a recorded result. Undo-draw is refused once this is true.
func (s *Structure) HasAnyResult() bool {
	if s == nil {
		return false
	}
	for _, matches := range s.Schedule {
		for _, m := range matches {
			if m.Result != nil && !m.IsBye() {
				return true
			}
		}
	}
	if s.Knockout == nil {
		return false
	}
	for _, matches := range s.Knockout.Rounds {
		for _, m := range matches {
			if m.Result != nil && !m.IsBye() {
				return true
			}
		}
	}
	return false
}

// FindMatch ищет матч по id во всём агрегате. Возвращает матч и имя стадии
// плей-офф (пустая строка для группового матча).
func (t *Tournament) FindMatch(matchID string) (*Match, string, bool) {
	if t.Structure == nil {
		return nil, "", false
	}
	for _, matches := range t.Structure.Schedule {
		for _, m := range matches {
			if m.ID == matchID {
				return m, "", true
			}
		}
	}
	if t.Structure.Knockout != nil {
		for stage, matches := range t.Structure.Knockout.Rounds {
			for _, m := range matches {
				if m.ID == matchID {
					return m, stage, true
				}
			}
		}
	}
	return nil, "", false
}

// Group возвращает группу по имени.
func (t *Tournament) Group(name string) (*Group, bool) {
	if t.Structure == nil {
		return nil, false
	}
	g, ok := t.Structure.Groups[name]
	return g, ok
}

// InPlay reports whether matches can currently be reported.
func (t *Tournament) InPlay() bool {
	return t.Status == StatusGroupStage || t.Status == StatusKnockout
}

// Terminal reports whether the tournament reached a final state.
func (t *Tournament) Terminal() bool {
	return t.Status == StatusFinished || t.Status == StatusCancelled
}
