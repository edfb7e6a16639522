package models

import (
	"errors"
	"fmt"
)

// Config описывает формат турнира: сколько команд, сколько групп, сколько
// выходит из группы и какие стадии плей-офф сыграются в указанном порядке.
type Config struct {
	FormatID           string   `json:"format_id"`
	TeamCount          int      `json:"team_count"`
	Groups             int      `json:"groups"`
	QualifiersPerGroup int      `json:"qualifiers_per_group"`
	KnockoutStages     []string `json:"knockout_stages"`
}

var ErrUnknownFormat = errors.New("unknown tournament format")

// Известные стадии плей-офф в порядке сужения сетки.
const (
	StageRoundOf16    = "round_of_16"
	StageQuarterfinal = "quarterfinal"
	StageSemifinal    = "semifinal"
	StageFinal        = "final"
)

// formats — предопределённые форматы, которые бот предлагает при создании.
var formats = map[string]Config{
	"groups2x4": {
		FormatID:           "groups2x4",
		TeamCount:          8,
		Groups:             2,
		QualifiersPerGroup: 2,
		KnockoutStages:     []string{StageSemifinal, StageFinal},
	},
	"groups4x4": {
		FormatID:           "groups4x4",
		TeamCount:          16,
		Groups:             4,
		QualifiersPerGroup: 2,
		KnockoutStages:     []string{StageQuarterfinal, StageSemifinal, StageFinal},
	},
	"groups8x4": {
		FormatID:           "groups8x4",
		TeamCount:          32,
		Groups:             8,
		QualifiersPerGroup: 2,
		KnockoutStages:     []string{StageRoundOf16, StageQuarterfinal, StageSemifinal, StageFinal},
	},
}

// FormatByID возвращает предопределённый формат.
func FormatByID(id string) (Config, error) {
	cfg, ok := formats[id]
	if !ok {
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, id)
	}
	return cfg, nil
}

// FormatIDs перечисляет доступные форматы (для ответов API).
func FormatIDs() []string {
	ids := make([]string, 0, len(formats))
	for id := range formats {
		ids = append(ids, id)
	}
	return ids
}

// Validate проверяет согласованность конфигурации: группы должны делить
// команды поровну, а число выходящих из групп — совпадать с размером первой
// стадии плей-офф (степень двойки).
func (c Config) Validate() error {
	if c.TeamCount < 2 {
		return errors.New("config: team count must be at least 2")
	}
	if c.Groups < 1 {
		return errors.New("config: at least one group required")
	}
	if c.TeamCount%c.Groups != 0 {
		return fmt.Errorf("config: %d teams cannot be split into %d equal groups", c.TeamCount, c.Groups)
	}
	if c.QualifiersPerGroup < 1 || c.QualifiersPerGroup > c.TeamCount/c.Groups {
		return fmt.Errorf("config: invalid qualifiers per group %d", c.QualifiersPerGroup)
	}
	if len(c.KnockoutStages) == 0 {
		return errors.New("config: at least one knockout stage required")
	}
	qualifiers := c.Groups * c.QualifiersPerGroup
	if qualifiers != 1<<len(c.KnockoutStages) {
		return fmt.Errorf("config: %d qualifiers do not fit %d knockout stages", qualifiers, len(c.KnockoutStages))
	}
	return nil
}

// NextStage возвращает стадию, следующую за данной, и ok=false для финала.
func (c Config) NextStage(stage string) (string, bool) {
	for i, s := range c.KnockoutStages {
		if s == stage && i+1 < len(c.KnockoutStages) {
			return c.KnockoutStages[i+1], true
		}
	}
	return "", false
}

// FinalStage — последняя сконфигурированная стадия.
func (c Config) FinalStage() string {
	if len(c.KnockoutStages) == 0 {
		return ""
	}
	return c.KnockoutStages[len(c.KnockoutStages)-1]
}
