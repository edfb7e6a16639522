package models

import "time"

// TeamRecord — заявка команды, ключуется по id капитана (внешний идентификатор
// из чат-платформы, для ядра это непрозрачная строка).
type TeamRecord struct {
	CaptainID    string    `json:"captain_id"`
	CaptainTag   string    `json:"captain_tag,omitempty"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
}

// TeamPool — корзины конвейера регистрации. Команда находится ровно в одной
// корзине; перемещения выполняет только TeamService.
type TeamPool struct {
	Approved map[string]*TeamRecord `json:"approved"`
	Pending  map[string]*TeamRecord `json:"pending"`
	Waitlist map[string]*TeamRecord `json:"waitlist"`
	Reserve  map[string]*TeamRecord `json:"reserve"`
}

func NewTeamPool() TeamPool {
	return TeamPool{
		Approved: make(map[string]*TeamRecord),
		Pending:  make(map[string]*TeamRecord),
		Waitlist: make(map[string]*TeamRecord),
		Reserve:  make(map[string]*TeamRecord),
	}
}

// Contains reports whether the captain already has an entry in any bucket.
func (p TeamPool) Contains(captainID string) bool {
	_, a := p.Approved[captainID]
	_, b := p.Pending[captainID]
	_, c := p.Waitlist[captainID]
	_, d := p.Reserve[captainID]
	return a || b || c || d
}

// TeamSnapshot — копия данных команды, зафиксированная на момент планирования
// матча. Намеренная денормализация: матч сохраняет имя и капитана даже если
// заявку потом отредактируют.
type TeamSnapshot struct {
	CaptainID string `json:"captain_id"`
	Name      string `json:"name"`
}

func SnapshotOf(rec *TeamRecord) TeamSnapshot {
	return TeamSnapshot{CaptainID: rec.CaptainID, Name: rec.Name}
}
