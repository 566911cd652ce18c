package repository

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"jobdispatch-backend/dal"
	"jobdispatch-backend/models"
	"jobdispatch-backend/utils"
	"jobdispatch-backend/utils/logger"
)

type ReportRepository struct {
	store  dal.ObjectStoreInterface
	logger logger.Logger
}

func NewReportRepository(store dal.ObjectStoreInterface, log logger.Logger) *ReportRepository {
	return &ReportRepository{store: store, logger: log}
}

// SaveReport uploads the report under reports/<jobID>/<uuid>-<name>
func (r *ReportRepository) SaveReport(ctx context.Context, jobID, fileName, contentType string, size int64, body io.Reader) (*models.ReportArtifact, error) {
	name := sanitizeFileName(fileName)
	key := fmt.Sprintf("reports/%s/%s-%s", jobID, utils.GenerateUUID(), name)

	if err := r.store.PutObject(ctx, key, body, size, contentType); err != nil {
		return nil, fmt.Errorf("failed to store report: %w", err)
	}

	r.logger.Infof("Stored report %s for job %s (%d bytes)", key, jobID, size)
	return &models.ReportArtifact{
		FileName:    name,
		ContentType: contentType,
		Size:        size,
		ObjectKey:   key,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

func (r *ReportRepository) DeleteReport(ctx context.Context, objectKey string) error {
	if objectKey == "" {
		return nil
	}
	if err := r.store.RemoveObject(ctx, objectKey); err != nil {
		r.logger.Errorf("Failed to remove report %s: %v", objectKey, err)
		return err
	}
	return nil
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
	if name == "" || name == "." || name == "/" {
		return "report.pdf"
	}
	return name
}
