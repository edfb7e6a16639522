// Package standings поддерживает турнирную таблицу группы: пересчёт
// показателей по результатам матчей и детерминированное упорядочивание команд.
package standings

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Maldini80/torneos-core/models"
)

var (
	ErrTeamNotInGroup = errors.New("team is not part of the group")
	ErrNoResult       = errors.New("match has no recorded result")
)

// Apply учитывает результат матча в таблице группы: обеим командам +1 игра,
// голы симметрично, победителю 3 очка, при ничьей по одному. Вызов НЕ
// идемпотентен: повторное применение без Revert удваивает показатели,
// за порядок отвечает reconciler.
func Apply(group *models.Group, match *models.Match, goalsA, goalsB int) error {
	if match.IsBye() {
		return nil
	}
	teamA, teamB, err := groupPair(group, match)
	if err != nil {
		return err
	}

	teamA.Stats.Played++
	teamB.Stats.Played++
	teamA.Stats.GoalsFor += goalsA
	teamA.Stats.GoalsAgainst += goalsB
	teamB.Stats.GoalsFor += goalsB
	teamB.Stats.GoalsAgainst += goalsA

	switch {
	case goalsA > goalsB:
		teamA.Stats.Points += 3
	case goalsB > goalsA:
		teamB.Stats.Points += 3
	default:
		teamA.Stats.Points++
		teamB.Stats.Points++
	}

	recomputeDifference(teamA)
	recomputeDifference(teamB)
	return nil
}

// Revert — точная инверсия Apply по сохранённому результату матча.
// Используется перед перезаписью уже зафиксированного счёта. Played и голы
// ограничены снизу нулём: защитный пол от повторного отката, не гарантия
// корректности.
func Revert(group *models.Group, match *models.Match) error {
	if match.IsBye() {
		return nil
	}
	if match.Result == nil {
		return fmt.Errorf("%w: match %s", ErrNoResult, match.ID)
	}
	goalsA, goalsB, err := models.ParseScore(*match.Result)
	if err != nil {
		return err
	}
	teamA, teamB, err := groupPair(group, match)
	if err != nil {
		return err
	}

	teamA.Stats.Played = clampZero(teamA.Stats.Played - 1)
	teamB.Stats.Played = clampZero(teamB.Stats.Played - 1)
	teamA.Stats.GoalsFor = clampZero(teamA.Stats.GoalsFor - goalsA)
	teamA.Stats.GoalsAgainst = clampZero(teamA.Stats.GoalsAgainst - goalsB)
	teamB.Stats.GoalsFor = clampZero(teamB.Stats.GoalsFor - goalsB)
	teamB.Stats.GoalsAgainst = clampZero(teamB.Stats.GoalsAgainst - goalsA)

	switch {
	case goalsA > goalsB:
		teamA.Stats.Points = clampZero(teamA.Stats.Points - 3)
	case goalsB > goalsA:
		teamB.Stats.Points = clampZero(teamB.Stats.Points - 3)
	default:
		teamA.Stats.Points = clampZero(teamA.Stats.Points - 1)
		teamB.Stats.Points = clampZero(teamB.Stats.Points - 1)
	}

	recomputeDifference(teamA)
	recomputeDifference(teamB)
	return nil
}

// Rank возвращает команды группы в итоговом порядке. Компаратор полностью
// детерминирован: очки, разница голов, забитые, личная встреча, имя,
// id капитана. schedule нужен для критерия личной встречи и может быть nil.
func Rank(group *models.Group, schedule []*models.Match) []*models.TeamInGroup {
	ranked := make([]*models.TeamInGroup, len(group.Teams))
	copy(ranked, group.Teams)

	sort.SliceStable(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j], schedule)
	})
	return ranked
}

func less(a, b *models.TeamInGroup, schedule []*models.Match) bool {
	if a.Stats.Points != b.Stats.Points {
		return a.Stats.Points > b.Stats.Points
	}
	if a.Stats.GoalDifference != b.Stats.GoalDifference {
		return a.Stats.GoalDifference > b.Stats.GoalDifference
	}
	if a.Stats.GoalsFor != b.Stats.GoalsFor {
		return a.Stats.GoalsFor > b.Stats.GoalsFor
	}
	if winner, ok := headToHeadWinner(a.CaptainID, b.CaptainID, schedule); ok {
		return winner == a.CaptainID
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.CaptainID < b.CaptainID
}

// headToHeadWinner ищет единственный сыгранный матч пары в календаре группы
// и возвращает капитана победителя. Ничья или отсутствие матча — ok=false.
func headToHeadWinner(captainA, captainB string, schedule []*models.Match) (string, bool) {
	for _, m := range schedule {
		if m.Result == nil || m.IsBye() {
			continue
		}
		if !m.HasParticipant(captainA) || !m.HasParticipant(captainB) {
			continue
		}
		winner, ok := m.Winner()
		if !ok {
			return "", false
		}
		return winner.CaptainID, true
	}
	return "", false
}

func groupPair(group *models.Group, match *models.Match) (*models.TeamInGroup, *models.TeamInGroup, error) {
	if match.TeamA.Team == nil || match.TeamB.Team == nil {
		return nil, nil, fmt.Errorf("%w: match %s has an empty slot", ErrTeamNotInGroup, match.ID)
	}
	teamA, okA := group.Team(match.TeamA.Team.CaptainID)
	teamB, okB := group.Team(match.TeamB.Team.CaptainID)
	if !okA || !okB {
		return nil, nil, fmt.Errorf("%w: match %s in group %s", ErrTeamNotInGroup, match.ID, group.Name)
	}
	return teamA, teamB, nil
}

func recomputeDifference(t *models.TeamInGroup) {
	t.Stats.GoalDifference = t.Stats.GoalsFor - t.Stats.GoalsAgainst
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
