package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"osgb/internal/logger"
)

type table struct {
	name    string
	headers []interface{}
	rows    [][]interface{}
}

func tables(d Data) []table {
	return []table{
		{SheetTransactions, TransactionHeaders, TransactionRows(d)},
		{SheetBalances, BalanceHeaders, BalanceRows(d)},
		{SheetAging, AgingHeaders(), AgingRows(d)},
	}
}

// Workbook builds an XLSX workbook with one sheet per table.
func Workbook(d Data) (*excelize.File, error) {
	const op = "export.Workbook"

	f := excelize.NewFile()
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create header style: %w", op, err)
	}

	for i, tb := range tables(d) {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", tb.name); err != nil {
				return nil, fmt.Errorf("%s: failed to rename sheet: %w", op, err)
			}
		} else if _, err := f.NewSheet(tb.name); err != nil {
			return nil, fmt.Errorf("%s: failed to create sheet %s: %w", op, tb.name, err)
		}

		if err := writeRow(f, tb.name, 1, tb.headers); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(tb.headers), 1)
		if err := f.SetCellStyle(tb.name, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("%s: failed to style headers: %w", op, err)
		}
		for r, row := range tb.rows {
			if err := writeRow(f, tb.name, r+2, row); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}
	return f, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(d Data, path string) error {
	const op = "export.SaveXLSX"
	log := logger.WithComponent("export")

	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%s: failed to save %s: %w", op, path, err)
	}
	log.Info().Str("path", path).Int("transactions", len(d.Transactions)).Msg("Workbook written")
	return nil
}

// WriteXLSX streams the workbook to w.
func WriteXLSX(d Data, w io.Writer) error {
	f, err := Workbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("export.WriteXLSX: %w", err)
	}
	return nil
}
