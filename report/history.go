// Package report renders a user's trade history as a spreadsheet.
package report

import (
	"bytes"
	"fmt"

	"stocks-simulator/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const historySheet = "History"

var historyHeader = []interface{}{"Time (UTC)", "Type", "Symbol", "Shares", "Price", "Cash Flow"}

// HistoryXLSX writes the transactions to a single-sheet workbook.
func HistoryXLSX(txns []models.Transaction) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#cfe2f3"}},
	})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(historySheet, "A1", &historyHeader); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(historySheet, "A1", "F1", headerStyle); err != nil {
		return nil, err
	}

	for i, t := range txns {
		row := i + 2
		price, _ := t.PurchasePrice.Float64()
		amount, _ := t.PurchasePrice.Mul(decimal.NewFromInt(t.Shares)).Neg().Float64()
		values := []interface{}{
			t.Time.UTC().Format("2006-01-02 15:04:05"),
			string(t.Type),
			t.Symbol,
			t.Shares,
			price,
			amount,
		}
		cell := fmt.Sprintf("A%d", row)
		if err := f.SetSheetRow(historySheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if len(txns) > 0 {
		last := len(txns) + 1
		if err := f.SetCellStyle(historySheet, "E2", fmt.Sprintf("F%d", last), moneyStyle); err != nil {
			return nil, err
		}
	}
	if err := f.SetColWidth(historySheet, "A", "A", 20); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
