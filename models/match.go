package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type MatchStatus string

const (
	// StatusPending — матч запланирован, но ещё не активирован (поздние туры
	// группы ждут завершения предыдущего тура обеих команд).
	StatusPending MatchStatus = "pending"
	// StatusInProgress — матч активирован, отчётов пока нет.
	StatusInProgress MatchStatus = "in_progress"
	// StatusAwaitingConfirmation — есть ровно один отчёт, ждём второй.
	StatusAwaitingConfirmation MatchStatus = "awaiting_confirmation"
	// StatusDisputed — отчёты сторон разошлись, нужен арбитр.
	StatusDisputed MatchStatus = "disputed"
	// MatchStatusFinished — результат записан и учтён в таблице.
	MatchStatusFinished MatchStatus = "finished"
)

// ErrMalformedScore возвращается ParseScore для строки, не являющейся парой
// неотрицательных целых через дефис.
var ErrMalformedScore = errors.New("malformed score string")

// Opponent — помеченный вариант Team | Bye. Пустой слот сетки («призрак» при
// нечётном составе группы) кодируется флагом Bye, а не служебным id.
type Opponent struct {
	Bye  bool          `json:"bye,omitempty"`
	Team *TeamSnapshot `json:"team,omitempty"`
}

func OpponentTeam(snap TeamSnapshot) Opponent {
	return Opponent{Team: &snap}
}

func OpponentBye() Opponent {
	return Opponent{Bye: true}
}

func (o Opponent) DisplayName() string {
	if o.Bye {
		return "BYE"
	}
	return o.Team.Name
}

// ReportedScore — один отчёт о счёте от стороны матча.
type ReportedScore struct {
	Score      string    `json:"score"`
	ReportedAt time.Time `json:"reported_at"`
}

// Match — единица соревнования. TeamA/TeamB — снимки команд на момент
// планирования, не живые ссылки.
type Match struct {
	ID        string      `json:"match_id"`
	GroupName string      `json:"group_name,omitempty"`
	Round     int         `json:"round,omitempty"`
	Stage     string      `json:"stage,omitempty"`
	TeamA     Opponent    `json:"team_a"`
	TeamB     Opponent    `json:"team_b"`
	Result    *string     `json:"result,omitempty"`
	Status    MatchStatus `json:"status"`
	// ThreadID — идентификатор чат-треда, принадлежит внешнему слою бота.
	ThreadID string `json:"thread_id,omitempty"`

	ReportedScores map[string]ReportedScore `json:"reported_scores,omitempty"`
}

// IsBye reports whether either slot is a bye. Bye matches never collect
// reports and are finished at creation time.
func (m *Match) IsBye() bool {
	return m.TeamA.Bye || m.TeamB.Bye
}

// HasParticipant reports whether the given captain leads one of the two sides.
func (m *Match) HasParticipant(captainID string) bool {
	if m.TeamA.Team != nil && m.TeamA.Team.CaptainID == captainID {
		return true
	}
	if m.TeamB.Team != nil && m.TeamB.Team.CaptainID == captainID {
		return true
	}
	return false
}

// Winner возвращает снимок команды-победителя по записанному результату.
// Для ничьей и матчей без результата возвращает ok=false; bye проходит
// автоматически.
func (m *Match) Winner() (*TeamSnapshot, bool) {
	if m.IsBye() {
		if m.TeamA.Team != nil {
			return m.TeamA.Team, true
		}
		return m.TeamB.Team, m.TeamB.Team != nil
	}
	if m.Result == nil {
		return nil, false
	}
	goalsA, goalsB, err := ParseScore(*m.Result)
	if err != nil {
		return nil, false
	}
	switch {
	case goalsA > goalsB:
		return m.TeamA.Team, true
	case goalsB > goalsA:
		return m.TeamB.Team, true
	default:
		return nil, false
	}
}

// ParseScore разбирает строку вида "2-1" в пару неотрицательных целых.
func ParseScore(s string) (int, int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedScore, s)
	}
	goalsA, errA := strconv.Atoi(strings.TrimSpace(parts[0]))
	goalsB, errB := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errA != nil || errB != nil || goalsA < 0 || goalsB < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedScore, s)
	}
	return goalsA, goalsB, nil
}

// FormatScore — обратная операция к ParseScore.
func FormatScore(goalsA, goalsB int) string {
	return fmt.Sprintf("%d-%d", goalsA, goalsB)
}
