package invoice

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"osgb/internal/pricing"
	"osgb/internal/store"
	"osgb/pkg/models"
)

var testNow = time.Date(2026, 5, 31, 10, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService(t *testing.T, opts Options) (*Service, *store.Store) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	st, err := store.New(context.Background(), db)
	require.NoError(t, err)

	svc := NewService(st, opts)
	svc.now = func() time.Time { return testNow }
	return svc, st
}

func standardFirm(id, name, base string) *models.Firm {
	return &models.Firm{
		ID:   id,
		Name: name,
		Pricing: models.PricingConfig{
			Model:           models.PricingStandard,
			BaseFee:         dec(base),
			BasePersonLimit: 10,
			ExtraPersonFee:  dec("50"),
		},
		ServiceType:        models.ServiceBoth,
		DefaultInvoiceType: models.InvoiceTypeEFatura,
	}
}

func saveFirms(t *testing.T, st *store.Store, firms ...*models.Firm) {
	t.Helper()
	for _, f := range firms {
		require.NoError(t, st.SaveFirm(context.Background(), f))
	}
}

func setItem(t *testing.T, st *store.Store, item models.PreparationItem) {
	t.Helper()
	require.NoError(t, st.SavePreparationItem(context.Background(), item))
}

func invoicesFor(t *testing.T, st *store.Store, firmID string) []models.Transaction {
	t.Helper()
	txns, err := st.ListTransactions(context.Background())
	require.NoError(t, err)
	var out []models.Transaction
	for _, tx := range txns {
		if tx.FirmID == firmID && tx.Type == models.TransactionInvoice {
			out = append(out, tx)
		}
	}
	return out
}

func TestCreateDraftRejectsNonPositiveTotals(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})

	for _, total := range []string{"0", "-5", "0.004"} {
		_, err := svc.CreateDraft(ctx, DraftRequest{FirmID: "f", Total: dec(total)})
		assert.ErrorIs(t, err, ErrNonPositiveTotal, "total %s", total)
	}
	txns, err := st.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)

	txn, err := svc.CreateDraft(ctx, DraftRequest{FirmID: "f", Total: dec("0.01")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, txn.Status)
	assert.Equal(t, models.TransactionInvoice, txn.Type)
	assert.True(t, txn.Debt.Equal(dec("0.01")))
	assert.True(t, txn.Credit.IsZero())
	require.NotNil(t, txn.CalculatedDetails)

	_, err = svc.CreateDraft(ctx, DraftRequest{Total: dec("10")})
	assert.ErrorIs(t, err, ErrNoFirmSelected)
}

func TestInvoiceFirm(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})

	f := standardFirm("f1", "Kuzey İnşaat", "1000")
	f.YearlyFee = dec("10000")
	saveFirms(t, st, f)
	setItem(t, st, models.PreparationItem{FirmID: "f1", CurrentEmployeeCount: 15, AddYearlyFee: true})

	txn, err := svc.InvoiceFirm(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, txn.Debt.Equal(dec("10000")))
	assert.Equal(t, models.InvoiceTypeEFatura, txn.InvoiceType)
	assert.Equal(t, 5, txn.Month)
	assert.True(t, txn.CalculatedDetails.YearlyFeeAmount.Equal(dec("10000")))
	assert.Equal(t, "05/2026 dönemi hizmet bedeli - Kuzey İnşaat", txn.Description)

	item, err := st.GetPreparationItem(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, item.AddYearlyFee, "yearly fee flag is reset after invoicing")

	txn, err = svc.InvoiceFirm(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, txn.Debt.Equal(dec("1250")), "monthly pricing resumes after the yearly cycle")
}

func TestInvoiceFirmErrors(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})
	saveFirms(t, st, &models.Firm{ID: "zero", Name: "Sıfır"})

	_, err := svc.InvoiceFirm(ctx, "")
	assert.ErrorIs(t, err, ErrNoFirmSelected)

	_, err = svc.InvoiceFirm(ctx, "missing")
	assert.ErrorIs(t, err, ErrFirmNotFound)

	_, err = svc.InvoiceFirm(ctx, "zero")
	assert.ErrorIs(t, err, ErrNonPositiveTotal)
	var ie *InvoiceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "zero", ie.FirmID)
}

func TestInvoiceFirmBypassesPools(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})

	root := standardFirm("root", "Merkez", "1000")
	root.SavedPoolConfig = []string{"m1"}
	saveFirms(t, st, root, standardFirm("m1", "Şube", "500"))

	txn, err := svc.InvoiceFirm(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", txn.FirmID)
	assert.True(t, txn.Debt.Equal(dec("500")))
	assert.Empty(t, txn.PoolMemberIDs)
}

func TestInvoiceAllExcludesPoolMembers(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})

	root := standardFirm("root", "Merkez", "1000")
	root.SavedPoolConfig = []string{"m1", "m2"}
	m1 := standardFirm("m1", "Şube 1", "500")
	m1.YearlyFee = dec("3000")
	saveFirms(t, st, root, m1, standardFirm("m2", "Şube 2", "400"), standardFirm("solo", "Tek", "700"), &models.Firm{ID: "empty", Name: "Boş"})
	setItem(t, st, models.PreparationItem{FirmID: "m1", AddYearlyFee: true})

	result, err := svc.InvoiceAll(ctx)
	require.NoError(t, err)
	require.Len(t, result.Created, 2)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "empty", result.Skipped[0].FirmID)

	assert.Empty(t, invoicesFor(t, st, "m1"))
	assert.Empty(t, invoicesFor(t, st, "m2"))

	rootInv := invoicesFor(t, st, "root")
	require.Len(t, rootInv, 1)
	assert.True(t, rootInv[0].Debt.Equal(dec("4400")), "1000 + 3000 yearly + 400")
	assert.Equal(t, []string{"m1", "m2"}, rootInv[0].PoolMemberIDs)
	assert.True(t, rootInv[0].CalculatedDetails.YearlyFeeAmount.Equal(dec("3000")))

	item, err := st.GetPreparationItem(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, item.AddYearlyFee)

	require.Len(t, invoicesFor(t, st, "solo"), 1)
	assert.Empty(t, invoicesFor(t, st, "empty"))
}

func TestInvoiceAllSubsumedDrafts(t *testing.T) {
	for _, retire := range []bool{false, true} {
		t.Run(fmt.Sprintf("retire_%v", retire), func(t *testing.T) {
			ctx := context.Background()
			svc, st := newTestService(t, Options{RetireSubsumed: retire})

			root := standardFirm("root", "Merkez", "1000")
			root.SavedPoolConfig = []string{"m1"}
			saveFirms(t, st, root, standardFirm("m1", "Şube", "500"))

			own, err := svc.InvoiceFirm(ctx, "m1")
			require.NoError(t, err)

			result, err := svc.InvoiceAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{own.ID}, result.Subsumed)

			_, err = st.GetTransaction(ctx, own.ID)
			if retire {
				assert.Equal(t, []string{own.ID}, result.Retired)
				assert.ErrorIs(t, err, store.ErrNotFound)
			} else {
				assert.Empty(t, result.Retired)
				assert.NoError(t, err)
			}
		})
	}
}

func TestApproveIsIdempotentAndIrreversible(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})

	a, err := svc.CreateDraft(ctx, DraftRequest{FirmID: "f", Total: dec("100")})
	require.NoError(t, err)
	b, err := svc.CreateDraft(ctx, DraftRequest{FirmID: "f", Total: dec("200")})
	require.NoError(t, err)

	n, err := svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = svc.Approve(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = svc.ApproveAllPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	for _, id := range []string{a.ID, b.ID} {
		txn, err := st.GetTransaction(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, txn.Status)
	}
	assert.ErrorIs(t, st.SetTransactionStatus(ctx, a.ID, models.StatusPending), store.ErrStatusReversal)

	_, err = svc.Approve(ctx, "nope")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestDeleteAndDeletePending(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})

	draft, err := svc.CreateDraft(ctx, DraftRequest{FirmID: "f", Total: dec("100")})
	require.NoError(t, err)
	approved, err := svc.CreateDraft(ctx, DraftRequest{FirmID: "f", Total: dec("200")})
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approved.ID)
	require.NoError(t, err)

	err = svc.DeletePending(ctx, draft.ID, approved.ID)
	assert.ErrorIs(t, err, ErrNotPending)
	_, err = st.GetTransaction(ctx, draft.ID)
	assert.NoError(t, err, "nothing is deleted when one id is not a draft")

	require.NoError(t, svc.DeletePending(ctx, draft.ID))
	require.NoError(t, svc.Delete(ctx, approved.ID))

	txns, err := st.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestRecordPaymentAndDebt(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{})
	saveFirms(t, st, standardFirm("f", "Firma", "100"))

	pay, err := svc.RecordPayment(ctx, LedgerEntry{FirmID: "f", Amount: dec("750.505"), Date: testNow})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, pay.Status)
	assert.Equal(t, models.TransactionPayment, pay.Type)
	assert.True(t, pay.Credit.Equal(dec("750.51")))
	assert.True(t, pay.Debt.IsZero())

	debt, err := svc.RecordDebt(ctx, LedgerEntry{FirmID: "f", Amount: dec("1200"), Description: "Devir bakiyesi"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, debt.Status)
	assert.True(t, debt.Debt.Equal(dec("1200")))

	_, err = svc.RecordPayment(ctx, LedgerEntry{FirmID: "f", Amount: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.RecordPayment(ctx, LedgerEntry{FirmID: "ghost", Amount: dec("5")})
	assert.ErrorIs(t, err, ErrFirmNotFound)
}

func TestPreviewDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t, Options{Pricing: pricing.Options{ImplicitBranches: true}})

	b := standardFirm("b", "Şube", "300")
	b.ParentFirmID = "a"
	saveFirms(t, st, standardFirm("a", "Ana", "1000"), b)

	pools, err := svc.Preview(ctx)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.True(t, pools[0].Merged.GrandTotal.Equal(dec("1300")))

	txns, err := st.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)
}
