package pricing

import (
	"testing"
	"time"

	"osgb/pkg/models"
)

func poolFirms() []models.Firm {
	return []models.Firm{
		{ID: "root", Name: "Ana Firma", Pricing: standard("1000", 10, "50"), SavedPoolConfig: []string{"b1", "b2"}},
		{ID: "b1", Name: "Şube 1", Pricing: standard("400", 5, "20"), ParentFirmID: "root"},
		{ID: "b2", Name: "Şube 2", Pricing: standard("300", 5, "10"), ParentFirmID: "root", IsKdvExcluded: true},
		{ID: "solo", Name: "Bağımsız", Pricing: standard("800", 10, "0")},
	}
}

func poolItems() map[string]models.PreparationItem {
	return map[string]models.PreparationItem{
		"root": {FirmID: "root", CurrentEmployeeCount: 12},
		"b1":   {FirmID: "b1", CurrentEmployeeCount: 7, ExtraItemAmount: d("50")},
		"b2":   {FirmID: "b2", CurrentEmployeeCount: 5},
		"solo": {FirmID: "solo", CurrentEmployeeCount: 3},
	}
}

func findRoot(t *testing.T, pools []PoolInvoice, id string) PoolInvoice {
	t.Helper()
	for _, p := range pools {
		if p.Root.ID == id {
			return p
		}
	}
	t.Fatalf("no pool invoice for root %s", id)
	return PoolInvoice{}
}

func TestResolvePoolsConservesMemberTotals(t *testing.T) {
	in := PoolInput{Firms: poolFirms(), Items: poolItems(), Settings: settings(), Period: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
	pools := ResolvePools(in, DefaultOptions())

	if len(pools) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(pools))
	}

	p := findRoot(t, pools, "root")
	sum := Shares{}
	for i := range in.Firms[:3] {
		f := &in.Firms[i]
		sum = sum.Add(ComputeFirmTotal(f, in.Items[f.ID], in.Settings, DefaultOptions()).Shares)
	}
	if !p.Merged.GrandTotal.Equal(sum.GrandTotal) || !p.Merged.Expert.Equal(sum.Expert) ||
		!p.Merged.Doctor.Equal(sum.Doctor) || !p.Merged.Health.Equal(sum.Health) {
		t.Fatalf("merged %+v differs from independent sum %+v", p.Merged, sum)
	}

	// root 1100 + b1 (440+50) + b2 300*1.2
	if !p.Merged.GrandTotal.Equal(d("1950")) {
		t.Fatalf("expected merged total 1950, got %s", p.Merged.GrandTotal)
	}
	if p.MemberLabel != "Şube 1, Şube 2" {
		t.Fatalf("unexpected member label %q", p.MemberLabel)
	}
	if p.Description != "03/2026 dönemi havuz faturası - Ana Firma (+ Şube 1, Şube 2)" {
		t.Fatalf("unexpected description %q", p.Description)
	}
	if got := p.Details().EmployeeCount; got != 24 {
		t.Fatalf("expected merged employee count 24, got %d", got)
	}
}

func TestResolvePoolsExcludesMembers(t *testing.T) {
	pools := ResolvePools(PoolInput{Firms: poolFirms(), Items: poolItems(), Settings: settings()}, DefaultOptions())
	for _, p := range pools {
		if p.Root.ID == "b1" || p.Root.ID == "b2" {
			t.Fatalf("pool member %s received its own invoice", p.Root.ID)
		}
	}
	solo := findRoot(t, pools, "solo")
	if solo.IsPool() || len(solo.SubsumedDraftIDs) != 0 {
		t.Fatalf("standalone firm should have no members: %+v", solo)
	}
}

func TestResolvePoolsSubsumedDrafts(t *testing.T) {
	pending := []models.Transaction{
		{ID: "t1", FirmID: "b1", Type: models.TransactionInvoice, Status: models.StatusPending},
		{ID: "t2", FirmID: "b1", Type: models.TransactionInvoice, Status: models.StatusApproved},
		{ID: "t3", FirmID: "b2", Type: models.TransactionPayment, Status: models.StatusPending},
		{ID: "t4", FirmID: "solo", Type: models.TransactionInvoice, Status: models.StatusPending},
		{ID: "t5", FirmID: "b2", Type: models.TransactionInvoice, Status: models.StatusPending},
	}
	pools := ResolvePools(PoolInput{Firms: poolFirms(), Items: poolItems(), Settings: settings(), Pending: pending}, DefaultOptions())
	p := findRoot(t, pools, "root")
	if len(p.SubsumedDraftIDs) != 2 || p.SubsumedDraftIDs[0] != "t1" || p.SubsumedDraftIDs[1] != "t5" {
		t.Fatalf("unexpected subsumed drafts %v", p.SubsumedDraftIDs)
	}
}

func TestResolvePoolsMissingItemsUseDefaults(t *testing.T) {
	firms := []models.Firm{{ID: "a", Name: "A", Pricing: standard("100", 10, "10"), DefaultEmployeeCount: 12}}
	pools := ResolvePools(PoolInput{Firms: firms, Settings: settings()}, DefaultOptions())
	if len(pools) != 1 || !pools[0].Merged.GrandTotal.Equal(d("120")) {
		t.Fatalf("expected default headcount to be used, got %+v", pools)
	}
}

func TestResolvePoolsYearlyFeeFirms(t *testing.T) {
	items := poolItems()
	b1 := items["b1"]
	b1.AddYearlyFee = true
	items["b1"] = b1
	pools := ResolvePools(PoolInput{Firms: poolFirms(), Items: items, Settings: settings()}, DefaultOptions())
	p := findRoot(t, pools, "root")
	if len(p.YearlyFeeFirmIDs) != 1 || p.YearlyFeeFirmIDs[0] != "b1" {
		t.Fatalf("unexpected yearly fee firms %v", p.YearlyFeeFirmIDs)
	}
}

func TestResolveMembership(t *testing.T) {
	tests := []struct {
		name     string
		firms    []models.Firm
		opts     Options
		parentOf map[string]string
	}{
		{
			name: "dangling and self ids skipped",
			firms: []models.Firm{
				{ID: "a", SavedPoolConfig: []string{"a", "ghost", "b"}},
				{ID: "b"},
			},
			parentOf: map[string]string{"b": "a"},
		},
		{
			name: "cycle rooted at lowest id",
			firms: []models.Firm{
				{ID: "b", SavedPoolConfig: []string{"a"}},
				{ID: "a", SavedPoolConfig: []string{"b"}},
			},
			parentOf: map[string]string{"b": "a"},
		},
		{
			name: "nested pools fold into the top root",
			firms: []models.Firm{
				{ID: "b", SavedPoolConfig: []string{"c"}},
				{ID: "a", SavedPoolConfig: []string{"b"}},
				{ID: "c"},
			},
			parentOf: map[string]string{"b": "a", "c": "a"},
		},
		{
			name: "lower root id wins a shared member",
			firms: []models.Firm{
				{ID: "b", SavedPoolConfig: []string{"c"}},
				{ID: "a", SavedPoolConfig: []string{"c"}},
				{ID: "c"},
			},
			parentOf: map[string]string{"c": "a"},
		},
		{
			name: "branches ignored without implicit option",
			firms: []models.Firm{
				{ID: "a"},
				{ID: "b", ParentFirmID: "a"},
			},
			parentOf: map[string]string{},
		},
		{
			name: "implicit branches",
			firms: []models.Firm{
				{ID: "a"},
				{ID: "b", ParentFirmID: "a"},
				{ID: "c", ParentFirmID: "a"},
			},
			opts:     Options{ImplicitBranches: true},
			parentOf: map[string]string{"b": "a", "c": "a"},
		},
		{
			name: "explicit config wins over branch relationship",
			firms: []models.Firm{
				{ID: "a"},
				{ID: "b", ParentFirmID: "a"},
				{ID: "x", SavedPoolConfig: []string{"b"}},
			},
			opts:     Options{ImplicitBranches: true},
			parentOf: map[string]string{"b": "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ResolveMembership(tt.firms, tt.opts)
			if len(m.ParentOf) != len(tt.parentOf) {
				t.Fatalf("expected %v, got %v", tt.parentOf, m.ParentOf)
			}
			for child, parent := range tt.parentOf {
				if m.ParentOf[child] != parent {
					t.Errorf("%s: expected parent %s, got %q", child, parent, m.ParentOf[child])
				}
			}
		})
	}
}

func TestResolvePoolsNestedIgnoresFirmOrder(t *testing.T) {
	a := models.Firm{ID: "a", Name: "A", Pricing: standard("300", 10, "0"), SavedPoolConfig: []string{"b"}}
	b := models.Firm{ID: "b", Name: "B", Pricing: standard("200", 10, "0"), SavedPoolConfig: []string{"c"}}
	c := models.Firm{ID: "c", Name: "C", Pricing: standard("100", 10, "0")}

	orders := map[string][]models.Firm{
		"abc": {a, b, c},
		"bac": {b, a, c},
		"cba": {c, b, a},
	}
	for name, firms := range orders {
		t.Run(name, func(t *testing.T) {
			pools := ResolvePools(PoolInput{Firms: firms, Settings: models.DefaultGlobalSettings()}, DefaultOptions())
			if len(pools) != 1 {
				t.Fatalf("expected one invoice, got %d", len(pools))
			}
			p := pools[0]
			if p.Root.ID != "a" {
				t.Fatalf("expected root a, got %s", p.Root.ID)
			}
			if got := MemberLabel(p.Members); got != "B, C" {
				t.Errorf("expected members B, C, got %q", got)
			}
			if !p.Merged.GrandTotal.Equal(d("600")) {
				t.Errorf("expected merged total 600, got %s", p.Merged.GrandTotal)
			}
		})
	}
}
