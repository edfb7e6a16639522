package models

// TeamStats — турнирные показатели команды внутри группы. Мутируются только
// движком таблицы; GoalDifference всегда пересчитывается из GoalsFor/GoalsAgainst.
type TeamStats struct {
	Played         int `json:"played"`
	GoalsFor       int `json:"goals_for"`
	GoalsAgainst   int `json:"goals_against"`
	GoalDifference int `json:"goal_difference"`
	Points         int `json:"points"`
}

// TeamInGroup — строка турнирной таблицы.
type TeamInGroup struct {
	CaptainID string    `json:"captain_id"`
	Name      string    `json:"name"`
	Stats     TeamStats `json:"stats"`
}

// Group — именованное подмножество команд группового этапа.
type Group struct {
	Name  string         `json:"name"`
	Teams []*TeamInGroup `json:"teams"`
}

// Team возвращает строку таблицы по id капитана.
func (g *Group) Team(captainID string) (*TeamInGroup, bool) {
	for _, t := range g.Teams {
		if t.CaptainID == captainID {
			return t, true
		}
	}
	return nil, false
}
