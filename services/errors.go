package services

import "errors"

// Общие ошибки сервисного слоя и маппинга HTTP.
var (
	// Ресурсы
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTeamNotFound       = errors.New("team registration not found")

	// Ошибки reconciler'а
	ErrInvalidReporter      = errors.New("reporter is not a participant of this match")
	ErrMalformedScore       = errors.New("score must be two non-negative integers separated by a dash")
	ErrMatchNotReportable   = errors.New("match is not accepting reports")
	ErrMatchDisputed        = errors.New("match is disputed; only an administrative override can resolve it")
	ErrMatchAlreadyFinished = errors.New("match already has a confirmed result")
	ErrKnockoutDraw         = errors.New("knockout match cannot end in a draw")

	// Жизненный цикл и жеребьёвка
	ErrInvalidTransition   = errors.New("operation is not valid in the current tournament status")
	ErrRosterIncomplete    = errors.New("approved roster does not match the configured team count")
	ErrDrawAlreadyDone     = errors.New("structure has already been generated")
	ErrStructureHasResults = errors.New("cannot undo draw: structure already has recorded results")

	// Конвейер регистрации
	ErrRegistrationClosed = errors.New("tournament registration is not open")
	ErrAlreadyRegistered  = errors.New("captain already has a team in this tournament")
	ErrTournamentFull     = errors.New("approved roster is already at capacity")
	ErrTeamNameRequired   = errors.New("team name is required")

	// Валидация
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrShortIDConflict        = errors.New("tournament short id already exists")

	// Конкурентный доступ: версия документа устарела и повторные попытки
	// исчерпаны.
	ErrConcurrencyConflict = errors.New("tournament was modified concurrently, please retry")
)
