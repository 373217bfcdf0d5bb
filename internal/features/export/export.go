// Package export renders giveaway entries as an xlsx workbook for organisers.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"giveaway-miniapp/internal/features/ledger/models"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	headers = []string{"№", "User ID", "Name", "Avatar", "Joined at (UTC)"}
	widths  = []float64{8, 16, 30, 40, 22}
)

// SheetName is the entries sheet title, Excel limits it to 31 characters.
func SheetName(giveawayID string) string {
	name := "Entries " + giveawayID
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// FileName builds the download name, e.g. entries_g1_20250101120000.xlsx.
func FileName(giveawayID string, now time.Time) string {
	return fmt.Sprintf("entries_%s_%s.xlsx", giveawayID, now.UTC().Format("20060102150405"))
}

// Workbook builds the entries workbook. Rows keep the order of entries.
// The caller must Close the returned file.
func Workbook(giveawayID string, entries []*models.EntryRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := SheetName(giveawayID)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, e := range entries {
		row := []interface{}{
			i + 1,
			e.UserID,
			e.UserName,
			e.UserAvatar,
			e.JoinedAt.UTC().Format(time.DateTime),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			f.Close()
			return nil, fmt.Errorf("set width: %w", err)
		}
	}
	return f, nil
}

// WriteEntries streams the workbook to w.
func WriteEntries(w io.Writer, giveawayID string, entries []*models.EntryRecord) error {
	f, err := Workbook(giveawayID, entries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveEntries writes the workbook to path.
func SaveEntries(path, giveawayID string, entries []*models.EntryRecord) error {
	f, err := Workbook(giveawayID, entries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
