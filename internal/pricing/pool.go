package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"osgb/pkg/models"
)

// PoolInput is everything the resolver reads. Items missing for a firm are
// initialised from the firm's defaults.
type PoolInput struct {
	Firms    []models.Firm
	Items    map[string]models.PreparationItem
	Settings models.GlobalSettings
	Pending  []models.Transaction // consulted for subsumed drafts only
	Period   time.Time
}

// PoolInvoice is one consolidated invoice payload. A standalone firm is a
// pool root with no members.
type PoolInvoice struct {
	Root         models.Firm
	Members      []models.Firm
	RootTotal    FirmTotal
	MemberTotals []FirmTotal

	Merged      Shares
	Description string
	MemberLabel string

	// SubsumedDraftIDs are the members' own PENDING invoice drafts that the
	// merged invoice replaces.
	SubsumedDraftIDs []string

	// YearlyFeeFirmIDs lists firms whose AddYearlyFee flag was consumed.
	YearlyFeeFirmIDs []string
}

// IsPool reports whether the invoice merges at least one member.
func (p *PoolInvoice) IsPool() bool {
	return len(p.Members) > 0
}

// Totals returns root and member totals in invoice order.
func (p *PoolInvoice) Totals() []FirmTotal {
	return append([]FirmTotal{p.RootTotal}, p.MemberTotals...)
}

// Details sums the root and member snapshots.
func (p *PoolInvoice) Details() models.CalculatedDetails {
	d := p.RootTotal.Details()
	for _, m := range p.MemberTotals {
		d = d.Add(m.Details())
	}
	return d
}

// Membership maps each pool member to its root and each root to its ordered
// members.
type Membership struct {
	ParentOf map[string]string
	Members  map[string][]string
}

// IsMember reports whether a firm is folded into another firm's pool.
func (m Membership) IsMember(firmID string) bool {
	_, ok := m.ParentOf[firmID]
	return ok
}

// ResolveMembership builds the child→root index. Saved configurations are
// folded transitively: a member that declares its own pool brings its members
// along to the topmost root. Top roots are the firms with a saved pool that no
// other pool lists; they are processed in id order, so a member shared by two
// roots goes to the lower id and a cycle is rooted at its lowest id. The
// result does not depend on the order of firms. Implicit branch relationships
// only apply to firms left unassigned. Unknown and self ids are skipped.
func ResolveMembership(firms []models.Firm, opts Options) Membership {
	m := Membership{
		ParentOf: make(map[string]string),
		Members:  make(map[string][]string),
	}
	byID := make(map[string]*models.Firm, len(firms))
	for i := range firms {
		byID[firms[i].ID] = &firms[i]
	}

	listed := make(map[string]bool)
	var roots []string
	for i := range firms {
		f := &firms[i]
		if !f.IsPoolRoot() {
			continue
		}
		roots = append(roots, f.ID)
		for _, id := range f.SavedPoolConfig {
			if id != f.ID && byID[id] != nil {
				listed[id] = true
			}
		}
	}
	sort.Strings(roots)

	rooted := make(map[string]bool)
	taken := func(id string) bool {
		return rooted[id] || m.IsMember(id)
	}

	var fold func(top, from string)
	fold = func(top, from string) {
		for _, id := range byID[from].SavedPoolConfig {
			if id == top || byID[id] == nil || taken(id) {
				continue
			}
			m.ParentOf[id] = top
			m.Members[top] = append(m.Members[top], id)
			fold(top, id)
		}
	}

	// tops first, then whatever is left inside cycles
	for _, pass := range []bool{true, false} {
		for _, id := range roots {
			if taken(id) || (pass && listed[id]) {
				continue
			}
			rooted[id] = true
			fold(id, id)
		}
	}

	if opts.ImplicitBranches {
		children := make(map[string][]string)
		for i := range firms {
			if p := firms[i].ParentFirmID; p != "" {
				children[p] = append(children[p], firms[i].ID)
			}
		}
		for i := range firms {
			f := &firms[i]
			if taken(f.ID) || f.ParentFirmID != "" {
				continue
			}
			for _, id := range children[f.ID] {
				if id == f.ID || taken(id) {
					continue
				}
				m.ParentOf[id] = f.ID
				m.Members[f.ID] = append(m.Members[f.ID], id)
			}
		}
	}

	return m
}

// ResolvePools produces one invoice payload per root or standalone firm, in
// firm list order. Members never appear as their own entry.
func ResolvePools(in PoolInput, opts Options) []PoolInvoice {
	membership := ResolveMembership(in.Firms, opts)

	byID := make(map[string]*models.Firm, len(in.Firms))
	for i := range in.Firms {
		byID[in.Firms[i].ID] = &in.Firms[i]
	}

	pendingByFirm := make(map[string][]string)
	for i := range in.Pending {
		t := &in.Pending[i]
		if t.IsPendingInvoice() {
			pendingByFirm[t.FirmID] = append(pendingByFirm[t.FirmID], t.ID)
		}
	}

	var out []PoolInvoice
	for i := range in.Firms {
		root := &in.Firms[i]
		if membership.IsMember(root.ID) {
			continue
		}

		inv := PoolInvoice{Root: *root}
		inv.RootTotal = ComputeFirmTotal(root, itemFor(in.Items, root), in.Settings, opts)
		inv.Merged = inv.RootTotal.Shares
		if inv.RootTotal.YearlyFeeApplied {
			inv.YearlyFeeFirmIDs = append(inv.YearlyFeeFirmIDs, root.ID)
		}

		for _, id := range membership.Members[root.ID] {
			member := byID[id]
			total := ComputeFirmTotal(member, itemFor(in.Items, member), in.Settings, opts)
			inv.Members = append(inv.Members, *member)
			inv.MemberTotals = append(inv.MemberTotals, total)
			inv.Merged = inv.Merged.Add(total.Shares)
			inv.SubsumedDraftIDs = append(inv.SubsumedDraftIDs, pendingByFirm[id]...)
			if total.YearlyFeeApplied {
				inv.YearlyFeeFirmIDs = append(inv.YearlyFeeFirmIDs, id)
			}
		}

		inv.MemberLabel = MemberLabel(inv.Members)
		inv.Description = Describe(root, inv.Members, in.Period)
		out = append(out, inv)
	}
	return out
}

func itemFor(items map[string]models.PreparationItem, f *models.Firm) models.PreparationItem {
	if item, ok := items[f.ID]; ok {
		return item
	}
	return models.NewPreparationItem(f)
}

// MemberLabel joins member names for display.
func MemberLabel(members []models.Firm) string {
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Name)
	}
	return strings.Join(names, ", ")
}

// Describe builds the invoice description for a root and its pool members.
func Describe(root *models.Firm, members []models.Firm, period time.Time) string {
	p := fmt.Sprintf("%02d/%d", int(period.Month()), period.Year())
	if len(members) == 0 {
		return fmt.Sprintf("%s dönemi hizmet bedeli - %s", p, root.Name)
	}
	return fmt.Sprintf("%s dönemi havuz faturası - %s (+ %s)", p, root.Name, MemberLabel(members))
}
