package reconciliation

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"osgb/pkg/models"
)

// company-form words dropped before comparing names, in folded form
var legalSuffixes = map[string]bool{
	"ltd": true, "sti": true, "limited": true, "sirketi": true,
	"as": true, "anonim": true, "san": true, "tic": true, "ve": true,
}

var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName lowercases with Turkish casing rules, folds to ASCII, strips
// punctuation and drops company-form words, so "ACAR TEKSTİL SAN. VE TİC.
// LTD. ŞTİ." and "Acar Tekstil" compare equal. Bank exports often drop
// Turkish letters, hence the folding.
func NormalizeName(name string) string {
	lower := strings.ToLowerSpecial(unicode.TurkishCase, name)
	lower = strings.ReplaceAll(lower, "ı", "i")
	folded, _, err := transform.String(asciiFold, lower)
	if err != nil {
		folded = lower
	}

	fields := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	kept := make([]string, 0, len(fields))
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == "a" && i+1 < len(fields) && fields[i+1] == "s" { // A.Ş.
			i++
			continue
		}
		if !legalSuffixes[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// Matcher attributes payments to firms by tax number, then by name.
type Matcher struct {
	byTaxNumber map[string]*models.Firm
	byName      map[string][]*models.Firm
	firms       []models.Firm
}

// NewMatcher indexes firms for matching.
func NewMatcher(firms []models.Firm) *Matcher {
	m := &Matcher{
		byTaxNumber: make(map[string]*models.Firm),
		byName:      make(map[string][]*models.Firm),
		firms:       firms,
	}
	for i := range firms {
		f := &m.firms[i]
		if tn := digitsOnly(f.TaxNumber); tn != "" {
			m.byTaxNumber[tn] = f
		}
		if n := NormalizeName(f.Name); n != "" {
			m.byName[n] = append(m.byName[n], f)
		}
	}
	return m
}

// Match attributes one payment. A payer name that is contained in exactly one
// firm name, or contains exactly one, is accepted when no exact match exists.
func (m *Matcher) Match(p PaymentRow) MatchResult {
	res := MatchResult{Payment: p}

	if tn := digitsOnly(p.TaxNumber); tn != "" {
		if f, ok := m.byTaxNumber[tn]; ok {
			return m.resolved(res, f, MatchByTaxNumber)
		}
	}

	name := NormalizeName(p.Payer)
	if name == "" {
		return res
	}

	candidates := m.byName[name]
	if len(candidates) == 0 {
		for norm, fs := range m.byName {
			if strings.Contains(norm, name) || strings.Contains(name, norm) {
				candidates = append(candidates, fs...)
			}
		}
	}

	switch len(candidates) {
	case 0:
		return res
	case 1:
		return m.resolved(res, candidates[0], MatchByName)
	default:
		for _, f := range candidates {
			res.Candidates = append(res.Candidates, f.ID)
		}
		return res
	}
}

func (m *Matcher) resolved(res MatchResult, f *models.Firm, by string) MatchResult {
	res.FirmID = f.ID
	res.FirmName = f.Name
	res.MatchedBy = by
	return res
}
