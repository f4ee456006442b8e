package export

import (
	"bytes"
	"fmt"

	"lifeguard-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	preventionSheet = "Prevention"
	timeLayout      = "2006-01-02 15:04:05"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var preventionHeaders = []string{
	"Station", "Latitude", "Longitude",
	"Morning prevention", "Afternoon prevention",
	"Morning jellyfish", "Afternoon jellyfish",
	"Created at",
}

// PreventionWorkbook renders prevention entries as an .xlsx document
func PreventionWorkbook(entries []models.PreventionEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(preventionSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for i, header := range preventionHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(preventionSheet, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(preventionHeaders))
	if err := f.SetCellStyle(preventionSheet, "A1", lastCol+"1", headerStyle); err != nil {
		return nil, err
	}

	for i, e := range entries {
		row := []interface{}{
			e.StationName, e.Latitude, e.Longitude,
			e.MorningPrev, e.AfternoonPrev,
			e.MorningJellyfish, e.AfternoonJellyfish,
			e.CreatedAt.Format(timeLayout),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(preventionSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(preventionSheet, "A", lastCol, 20); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
