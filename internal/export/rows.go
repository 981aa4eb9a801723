// Package export renders the ledger as tables for spreadsheets.
package export

import (
	"time"

	"osgb/internal/invoice"
	"osgb/internal/ledger"
	"osgb/internal/money"
	"osgb/pkg/models"
)

// Sheet names.
const (
	SheetTransactions = "Hareketler"
	SheetBalances     = "Bakiye"
	SheetAging        = "Yaşlandırma"
)

// TransactionHeaders are the column titles of the transaction table.
var TransactionHeaders = []interface{}{
	"Tarih", "Dönem", "Firma", "Vergi No", "Tür", "Durum", "Borç", "Alacak",
	"Uzman Payı", "Hekim Payı", "Sağlık Payı", "Fatura Tipi", "Açıklama",
}

// BalanceHeaders are the column titles of the balance table.
var BalanceHeaders = []interface{}{"Firma", "Borç", "Alacak", "Bakiye", "Not"}

// AgingHeaders are the column titles of the aging table.
func AgingHeaders() []interface{} {
	h := []interface{}{"Firma"}
	for _, l := range ledger.BucketLabels {
		h = append(h, l)
	}
	return append(h, "Açık Borç", "Avans")
}

// Data is everything one export run needs.
type Data struct {
	Firms        []models.Firm
	Transactions []models.Transaction
	Settings     models.GlobalSettings
	AsOf         time.Time
}

func (d Data) firmIndex() map[string]*models.Firm {
	idx := make(map[string]*models.Firm, len(d.Firms))
	for i := range d.Firms {
		idx[d.Firms[i].ID] = &d.Firms[i]
	}
	return idx
}

// TransactionRows renders every transaction, pending drafts included, in the
// order given. Share columns come from the stored snapshot when present.
func TransactionRows(d Data) [][]interface{} {
	idx := d.firmIndex()
	rows := make([][]interface{}, 0, len(d.Transactions))
	for i := range d.Transactions {
		t := &d.Transactions[i]
		firm := idx[t.FirmID]
		name, taxNo := t.FirmID, ""
		if firm != nil {
			name, taxNo = firm.Name, firm.TaxNumber
		}

		var expert, doctor, health interface{} = "", "", ""
		if t.Type == models.TransactionInvoice {
			det, _ := invoice.DetailsFor(t, firm, d.Settings)
			expert = det.ExpertShare.InexactFloat64()
			doctor = det.DoctorShare.InexactFloat64()
			health = det.HealthShare.InexactFloat64()
		}

		rows = append(rows, []interface{}{
			money.FormatDate(t.Date),
			period(t.Month, t.Year),
			name,
			taxNo,
			string(t.Type),
			string(t.Status),
			t.Debt.InexactFloat64(),
			t.Credit.InexactFloat64(),
			expert,
			doctor,
			health,
			string(t.InvoiceType),
			t.Description,
		})
	}
	return rows
}

// BalanceRows renders the per-firm balances.
func BalanceRows(d Data) [][]interface{} {
	bals := ledger.Balances(d.Firms, d.Transactions)
	rows := make([][]interface{}, 0, len(bals))
	for _, b := range bals {
		name, note := b.FirmName, ""
		if b.Orphaned {
			name, note = b.FirmID, "silinmiş firma"
		}
		rows = append(rows, []interface{}{
			name,
			b.Debt.InexactFloat64(),
			b.Credit.InexactFloat64(),
			b.Balance.InexactFloat64(),
			note,
		})
	}
	return rows
}

// AgingRows renders the aging buckets of firms with open debt.
func AgingRows(d Data) [][]interface{} {
	idx := d.firmIndex()
	var rows [][]interface{}
	for _, a := range ledger.AgeAll(d.Firms, d.Transactions, d.AsOf) {
		name := a.FirmID
		if f := idx[a.FirmID]; f != nil {
			name = f.Name
		}
		row := []interface{}{name}
		for _, b := range a.Buckets {
			row = append(row, b.InexactFloat64())
		}
		rows = append(rows, append(row, a.Open.InexactFloat64(), a.Advance.InexactFloat64()))
	}
	return rows
}

func period(month, year int) string {
	if month == 0 || year == 0 {
		return ""
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("01/2006")
}
