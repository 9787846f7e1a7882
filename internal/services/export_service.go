package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	exportSheetName   = "Waitlist"
	exportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeaders = []string{
	"ID", "Role", "Name", "Email", "Phone", "Referred By", "Referral Code", "Source", "IP Hash", "Created At",
}

var exportColumnWidths = []float64{38, 10, 28, 32, 18, 14, 14, 12, 22, 22}

// ExportResult describes an uploaded waitlist snapshot
type ExportResult struct {
	Key      string
	Location string
	Rows     int
}

// ExportService snapshots the waitlist into an XLSX workbook in object storage
type ExportService struct {
	lister   WaitlistLister
	uploader ObjectUploader
	now      func() time.Time
}

// NewExportService creates a new export service instance
func NewExportService(lister WaitlistLister, uploader ObjectUploader) *ExportService {
	return &ExportService{
		lister:   lister,
		uploader: uploader,
		now:      time.Now,
	}
}

// Export writes every record to a workbook and uploads it under waitlist/
func (s *ExportService) Export(ctx context.Context) (*ExportResult, error) {
	records, err := s.lister.List(ctx)
	if err != nil {
		return nil, err
	}

	workbook, err := BuildWorkbook(records)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("waitlist/waitlist-%s.xlsx", s.now().UTC().Format("20060102T150405Z"))
	location, err := s.uploader.Upload(ctx, key, exportContentType, workbook)
	if err != nil {
		return nil, err
	}

	logger.Info("Waitlist exported",
		zap.String("key", key),
		zap.Int("rows", len(records)))

	return &ExportResult{Key: key, Location: location, Rows: len(records)}, nil
}

// BuildWorkbook renders records as a single-sheet workbook with a frozen header row
func BuildWorkbook(records []*models.WaitlistRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F3E9DC"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(exportSheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(exportSheetName, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}

		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheetName, col, col, exportColumnWidths[i]); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			rec.ID,
			string(rec.Role),
			rec.Name,
			deref(rec.Email),
			deref(rec.Phone),
			deref(rec.ReferredBy),
			rec.ReferralCode,
			rec.Metadata.Source,
			rec.Metadata.IPHash,
			rec.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := f.SetSheetRow(exportSheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(exportSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
