package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"osgb/pkg/models"
)

func openTestDB(t *testing.T, suffix ...string) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name() + strings.Join(suffix, "_"))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestStore(t *testing.T, suffix ...string) *Store {
	t.Helper()
	s, err := New(context.Background(), openTestDB(t, suffix...))
	require.NoError(t, err)
	return s
}

func TestFirmCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	require.NoError(t, s.SaveFirm(ctx, &models.Firm{ID: "b", Name: "Beta"}))
	require.NoError(t, s.SaveFirm(ctx, &models.Firm{ID: "a", Name: "Alfa", YearlyFee: decimal.NewFromInt(5000)}))

	firms, err := s.ListFirms(ctx)
	require.NoError(t, err)
	require.Len(t, firms, 2)
	assert.Equal(t, "b", firms[0].ID, "firms are listed in creation order")
	assert.Equal(t, "a", firms[1].ID)

	got, err := s.GetFirm(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.YearlyFee.Equal(decimal.NewFromInt(5000)))
	created := got.CreatedAt

	got.Name = "Alfa A.Ş."
	require.NoError(t, s.SaveFirm(ctx, got))
	again, err := s.GetFirm(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Alfa A.Ş.", again.Name)
	assert.True(t, again.CreatedAt.Equal(created))
	assert.True(t, again.UpdatedAt.After(created))

	require.NoError(t, s.DeleteFirms(ctx, "a", "missing"))
	_, err = s.GetFirm(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveFirmRejectsSelfPool(t *testing.T) {
	s := newTestStore(t)
	err := s.SaveFirm(context.Background(), &models.Firm{ID: "x", Name: "X", SavedPoolConfig: []string{"x"}})
	require.Error(t, err)
	var verrs models.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestCreateTransaction(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	txn, err := s.CreateTransaction(ctx, models.Transaction{
		FirmID: "f1",
		Date:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
		Type:   models.TransactionInvoice,
		Debt:   decimal.RequireFromString("1500.25"),
		Status: models.StatusPending,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, 4, txn.Month)
	assert.Equal(t, 2026, txn.Year)

	stored, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Debt.Equal(decimal.RequireFromString("1500.25")))
	assert.Equal(t, models.StatusPending, stored.Status)

	payment, err := s.CreateTransaction(ctx, models.Transaction{FirmID: "f1", Type: models.TransactionPayment, Credit: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, payment.Status, "missing status defaults to approved")

	_, err = s.CreateTransaction(ctx, models.Transaction{FirmID: "f1", Debt: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestSetTransactionStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	txn, err := s.CreateTransaction(ctx, models.Transaction{FirmID: "f1", Type: models.TransactionInvoice, Debt: decimal.NewFromInt(10), Status: models.StatusPending})
	require.NoError(t, err)

	require.NoError(t, s.SetTransactionStatus(ctx, txn.ID, models.StatusApproved))
	require.NoError(t, s.SetTransactionStatus(ctx, txn.ID, models.StatusApproved))

	err = s.SetTransactionStatus(ctx, txn.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrStatusReversal)

	stored, err := s.GetTransaction(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)

	assert.ErrorIs(t, s.SetTransactionStatus(ctx, "nope", models.StatusApproved), ErrNotFound)
}

func TestDeleteTransactionsAnyStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a, err := s.CreateTransaction(ctx, models.Transaction{FirmID: "f", Debt: decimal.NewFromInt(1), Status: models.StatusPending})
	require.NoError(t, err)
	b, err := s.CreateTransaction(ctx, models.Transaction{FirmID: "f", Debt: decimal.NewFromInt(2), Status: models.StatusApproved})
	require.NoError(t, err)

	require.NoError(t, s.DeleteTransactions(ctx, a.ID, b.ID))
	txns, err := s.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestPreparationItemDefaults(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.SaveFirm(ctx, &models.Firm{ID: "f", Name: "F", DefaultEmployeeCount: 17}))

	item, err := s.GetPreparationItem(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 17, item.CurrentEmployeeCount)
	assert.False(t, item.AddYearlyFee)

	item.CurrentEmployeeCount = 22
	item.AddYearlyFee = true
	require.NoError(t, s.SavePreparationItem(ctx, item))

	item, err = s.GetPreparationItem(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, 22, item.CurrentEmployeeCount)
	assert.True(t, item.AddYearlyFee)

	orphan, err := s.GetPreparationItem(ctx, "deleted-firm")
	require.NoError(t, err)
	assert.Equal(t, "deleted-firm", orphan.FirmID)
}

func TestGlobalSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	gs, err := s.GetGlobalSettings(ctx)
	require.NoError(t, err)
	assert.True(t, gs.ExpertPercentage.Equal(decimal.NewFromInt(60)))

	gs.ExpertPercentage = decimal.NewFromInt(70)
	gs.DoctorPercentage = decimal.NewFromInt(30)
	gs.BankInfo = "TR00 0000"
	require.NoError(t, s.SaveGlobalSettings(ctx, gs))

	gs, err = s.GetGlobalSettings(ctx)
	require.NoError(t, err)
	assert.True(t, gs.ExpertPercentage.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "TR00 0000", gs.BankInfo)

	gs.VatRateHealth = decimal.NewFromInt(-1)
	assert.Error(t, s.SaveGlobalSettings(ctx, gs))
}

func TestLegacyStatusBackfillRunsOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&Record{}))
	require.NoError(t, db.Create(&Record{Collection: CollectionTransactions, Key: "old", Data: `{"id":"old","firm_id":"f","type":"INVOICE","debt":"100"}`}).Error)

	s, err := New(ctx, db)
	require.NoError(t, err)
	old, err := s.GetTransaction(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, old.Status)

	require.NoError(t, db.Create(&Record{Collection: CollectionTransactions, Key: "later", Data: `{"id":"later","firm_id":"f","type":"INVOICE","debt":"5"}`}).Error)
	s, err = New(ctx, db)
	require.NoError(t, err)
	later, err := s.GetTransaction(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatus(""), later.Status, "backfill must not run twice")
}

func TestFileMirrorAndRestore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snapshots", "osgb.json")
	s, err := New(ctx, openTestDB(t), NewFileMirror(path))
	require.NoError(t, err)

	require.NoError(t, s.SaveFirm(ctx, &models.Firm{ID: "f", Name: "Firma"}))
	_, err = s.CreateTransaction(ctx, models.Transaction{FirmID: "f", Type: models.TransactionInvoice, Debt: decimal.NewFromInt(250), Status: models.StatusPending})
	require.NoError(t, err)
	require.NoError(t, s.SaveGlobalSettings(ctx, models.DefaultGlobalSettings()))

	snap, err := ReadSnapshotFile(path)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, snap.Version)
	require.Len(t, snap.Firms, 1)
	require.Len(t, snap.Transactions, 1)
	require.NotNil(t, snap.Settings)

	snap.Transactions = append(snap.Transactions, models.Transaction{ID: "legacy", FirmID: "f", Type: models.TransactionPayment, Credit: decimal.NewFromInt(50)})

	other := newTestStore(t, "restored")
	require.NoError(t, other.SaveFirm(ctx, &models.Firm{ID: "stale", Name: "Silinecek"}))
	require.NoError(t, other.Restore(ctx, snap))

	firms, err := other.ListFirms(ctx)
	require.NoError(t, err)
	require.Len(t, firms, 1)
	assert.Equal(t, "f", firms[0].ID)

	legacy, err := other.GetTransaction(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, legacy.Status)
}

func TestHTTPMirror(t *testing.T) {
	var gotBody, gotAuth, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody, gotAuth, gotMethod = string(b), r.Header.Get("Authorization"), r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	m := NewHTTPMirror(srv.URL, "secret")
	require.NoError(t, m.Push(context.Background(), []byte(`{"version":1}`)))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, `{"version":1}`, gotBody)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer failing.Close()
	assert.Error(t, NewHTTPMirror(failing.URL, "").Push(context.Background(), []byte(`{}`)))
}
