package reconciliation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"osgb/internal/logger"
	"osgb/internal/money"
)

// RangeReader reads a block of cells in A1 notation.
type RangeReader interface {
	ReadRange(ctx context.Context, rangeSpec string) ([][]interface{}, error)
}

// DataReader handles reading payment data from Google Sheets
type DataReader struct {
	sheets RangeReader
	log    zerolog.Logger
}

// NewDataReader creates a new data reader for Google Sheets
func NewDataReader(sheets RangeReader) *DataReader {
	return &DataReader{
		sheets: sheets,
		log:    logger.WithComponent("reconciliation-reader"),
	}
}

// ReadPayments reads incoming payments from sheetName. Rows with a
// non-positive amount are outgoing and skipped, as are unparseable rows.
func (dr *DataReader) ReadPayments(ctx context.Context, sheetName string) ([]PaymentRow, error) {
	const op = "ReadPayments"

	dr.log.Info().Str("sheet", sheetName).Msg("Reading payments")

	// A=Tarih, B=Firma, C=Vergi No, D=Tutar, E=Açıklama
	values, err := dr.sheets.ReadRange(ctx, sheetName+"!A:E")
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s sheet: %w", op, sheetName, err)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %s sheet is empty", op, sheetName)
	}

	var payments []PaymentRow
	for i, row := range values[1:] {
		rowNum := i + 2 // header plus 1-based rows

		if len(row) < 4 {
			dr.log.Warn().
				Int("row", rowNum).
				Int("columns", len(row)).
				Msg("Skipping payment row with insufficient columns")
			continue
		}

		p, err := parsePaymentRow(row, rowNum)
		if err != nil {
			dr.log.Warn().
				Err(err).
				Int("row", rowNum).
				Msg("Failed to parse payment, skipping")
			continue
		}
		if !p.Amount.IsPositive() {
			dr.log.Debug().Int("row", rowNum).Msg("Skipping outgoing payment")
			continue
		}

		payments = append(payments, p)
	}

	dr.log.Info().
		Int("total_rows", len(values)-1).
		Int("parsed_payments", len(payments)).
		Str("sheet", sheetName).
		Msg("Payments read successfully")

	return payments, nil
}

func parsePaymentRow(row []interface{}, rowNum int) (PaymentRow, error) {
	const op = "parsePaymentRow"

	dateStr := getString(row, 0)
	date, err := money.ParseDate(dateStr)
	if err != nil {
		return PaymentRow{}, fmt.Errorf("%s: invalid date '%s' in row %d: %w", op, dateStr, rowNum, err)
	}

	amountStr := getString(row, 3)
	amount, err := money.Parse(amountStr)
	if err != nil {
		return PaymentRow{}, fmt.Errorf("%s: invalid amount '%s' in row %d: %w", op, amountStr, rowNum, err)
	}

	return PaymentRow{
		Row:         rowNum,
		Date:        date,
		Payer:       getString(row, 1),
		TaxNumber:   getString(row, 2),
		Amount:      money.Round2(amount),
		Description: getString(row, 4),
	}, nil
}

// getString safely extracts a string value from a row slice
func getString(row []interface{}, index int) string {
	if index >= len(row) || row[index] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%v", row[index]))
}
