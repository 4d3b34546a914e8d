package explain

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook saves the report as an xlsx file with one sheet per model.
func WriteWorkbook(path string, r Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for _, m := range r.Models {
		sheet := m.Model
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sheet, err)
		}
		if err := f.SetSheetRow(sheet, "A1", &[]any{"rank", "feature", "share", "gain"}); err != nil {
			return err
		}
		for i, fw := range m.Features {
			cell, err := excelize.CoordinatesToCellName(1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sheet, cell, &[]any{i + 1, fw.Feature, fw.Share, fw.Gain}); err != nil {
				return err
			}
		}
	}
	if len(r.Models) > 0 {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
		idx, err := f.GetSheetIndex(r.Models[0].Model)
		if err != nil {
			return err
		}
		f.SetActiveSheet(idx)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
