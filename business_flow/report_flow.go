// Package businessflow contains the core business logic and use cases for reporting workflows
package businessflow

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/trendforge/trendforge/models"
	"github.com/trendforge/trendforge/repository"
	"github.com/xuri/excelize/v2"
)

// ReportFlow provides operator exports of upload activity
type ReportFlow interface {
	DownloadUploadsExcel(ctx context.Context, createdAfter, createdBefore *time.Time) (string, []byte, error)
}

type ReportFlowImpl struct {
	uploadRepo repository.UploadTaskRepository
}

func NewReportFlow(uploadRepo repository.UploadTaskRepository) ReportFlow {
	return &ReportFlowImpl{uploadRepo: uploadRepo}
}

// DownloadUploadsExcel builds a workbook with one sheet per platform listing
// every upload task in the window
func (f *ReportFlowImpl) DownloadUploadsExcel(ctx context.Context, createdAfter, createdBefore *time.Time) (string, []byte, error) {
	filter := models.UploadTaskFilter{
		CreatedAfter:  createdAfter,
		CreatedBefore: createdBefore,
	}
	tasks, err := f.uploadRepo.ByFilter(ctx, filter, "created_at ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("FETCH_UPLOADS_FAILED", "Failed to fetch upload tasks", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	byPlatform := make(map[string][]*models.UploadTask)
	order := make([]string, 0)
	for _, task := range tasks {
		if _, ok := byPlatform[task.Platform]; !ok {
			order = append(order, task.Platform)
		}
		byPlatform[task.Platform] = append(byPlatform[task.Platform], task)
	}

	header := []string{"uuid", "batch_id", "status", "external_id", "external_url", "attempt_count", "max_retries", "scheduled_at", "last_error", "created_at"}

	if len(order) == 0 {
		_ = xl.SetSheetRow(xl.GetSheetName(0), "A1", &header)
	}

	usedNames := map[string]bool{}
	for i, platform := range order {
		baseName := sanitizeSheetName(platform)
		name := baseName
		idx := 1
		for usedNames[name] {
			idx++
			name = truncateSheetName(baseName + "_" + strconv.Itoa(idx))
		}
		usedNames[name] = true
		if i == 0 {
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}

		_ = xl.SetSheetRow(name, "A1", &header)

		for ri, task := range byPlatform[platform] {
			batchID := ""
			if task.BatchID != nil {
				batchID = task.BatchID.String()
			}
			externalID := ""
			if task.ExternalID != nil {
				externalID = *task.ExternalID
			}
			externalURL := ""
			if task.ExternalURL != nil {
				externalURL = *task.ExternalURL
			}
			scheduledAt := ""
			if task.ScheduledAt != nil {
				scheduledAt = task.ScheduledAt.UTC().Format(time.RFC3339)
			}
			lastError := ""
			if task.LastError != nil {
				lastError = *task.LastError
			}
			record := []string{
				task.UUID.String(),
				batchID,
				task.Status.String(),
				externalID,
				externalURL,
				strconv.Itoa(task.AttemptCount),
				strconv.Itoa(task.MaxRetries),
				scheduledAt,
				lastError,
				task.CreatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return "uploads_by_platform.xlsx", buf.Bytes(), nil
}

func sanitizeSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateSheetName(strings.TrimSpace(safe))
}

func truncateSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
