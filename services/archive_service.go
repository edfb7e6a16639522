package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Maldini80/torneos-core/models"
	"github.com/Maldini80/torneos-core/standings"
	"github.com/Maldini80/torneos-core/storage"
)

// ArchiveService выгружает итог завершённого турнира во внешнее хранилище.
// Вызывается после записи агрегата, best-effort: сбой архивации никогда не
// откатывает завершение турнира.
type ArchiveService interface {
	ArchiveFinished(ctx context.Context, t *models.Tournament) error
}

type tournamentSummary struct {
	ShortID   string                            `json:"short_id"`
	Name      string                            `json:"name"`
	Champion  *models.TeamSnapshot              `json:"champion,omitempty"`
	Standings map[string][]*models.TeamInGroup  `json:"standings"`
	Knockout  map[string][]knockoutSummaryMatch `json:"knockout,omitempty"`
}

type knockoutSummaryMatch struct {
	TeamA  string  `json:"team_a"`
	TeamB  string  `json:"team_b"`
	Result *string `json:"result,omitempty"`
}

type archiveService struct {
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewArchiveService(uploader storage.FileUploader, logger *slog.Logger) ArchiveService {
	return &archiveService{uploader: uploader, logger: logger}
}

func (s *archiveService) ArchiveFinished(ctx context.Context, t *models.Tournament) error {
	summary := tournamentSummary{
		ShortID:   t.ShortID,
		Name:      t.Name,
		Champion:  t.Champion,
		Standings: make(map[string][]*models.TeamInGroup),
	}
	if t.Structure != nil {
		for name, group := range t.Structure.Groups {
			summary.Standings[name] = standings.Rank(group, t.Structure.Schedule[name])
		}
		if t.Structure.Knockout != nil {
			summary.Knockout = make(map[string][]knockoutSummaryMatch)
			for stage, matches := range t.Structure.Knockout.Rounds {
				for _, m := range matches {
					summary.Knockout[stage] = append(summary.Knockout[stage], knockoutSummaryMatch{
						TeamA:  m.TeamA.DisplayName(),
						TeamB:  m.TeamB.DisplayName(),
						Result: m.Result,
					})
				}
			}
		}
	}

	payload, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tournament summary: %w", err)
	}

	key := fmt.Sprintf("archives/%s.json", t.ShortID)
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to upload tournament archive: %w", err)
	}

	s.logger.Info("tournament archived",
		slog.String("tournament", t.ShortID),
		slog.String("location", result.Location))
	return nil
}
