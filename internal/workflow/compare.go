package workflow

import (
	"regexp"
	"strconv"
	"strings"

	"contract_workflow_backend/internal/agent"
	"contract_workflow_backend/internal/inquiry"
	"contract_workflow_backend/internal/property"
)

// Mismatch is one field where the contract contradicts the inquiry.
type Mismatch struct {
	Field         string
	InquiryValue  string
	ContractValue string
}

type verdict int

const (
	verdictUnknown verdict = iota
	verdictEqual
	verdictConflict
)

// ApplyMismatchRule returns the fields to report, in field order. A field
// is reported only when the inquiry value is non-blank, the contract states
// a value for it, and the two conflict. The deterministic comparator reports
// a conflict on its own and clears a field only on complete agreement;
// partial or mixed evidence leaves the decision to the reviewer's flag.
func ApplyMismatchRule(q inquiry.PropertyInquiry, review agent.ContractReview) []Mismatch {
	values := q.FieldValues()
	flagged := make(map[string]agent.Conflict, len(review.Conflicts))
	for _, c := range review.Conflicts {
		flagged[canonicalField(c.Field)] = c
	}
	statements := make(map[string]string, len(review.Statements))
	for k, v := range review.Statements {
		statements[canonicalField(k)] = v
	}

	var out []Mismatch
	for _, field := range inquiry.ComparableFields {
		inq := strings.TrimSpace(values[field])
		if inq == "" {
			continue
		}
		conflict, isFlagged := flagged[field]
		stated := strings.TrimSpace(statements[field])
		if stated == "" && isFlagged {
			stated = strings.TrimSpace(conflict.ContractValue)
		}
		if stated == "" {
			continue
		}

		v := compareField(field, q, inq, stated)
		if v == verdictConflict || (v == verdictUnknown && isFlagged) {
			out = append(out, Mismatch{Field: field, InquiryValue: inq, ContractValue: stated})
		}
	}
	return out
}

// canonicalField maps loose spellings ("finance terms", "Total Price") to
// the schema field name.
func canonicalField(name string) string {
	key := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(name)))
	for _, f := range inquiry.ComparableFields {
		if strings.ToLower(f) == key {
			return f
		}
	}
	if key == "purchasers" {
		return inquiry.FieldPurchaser
	}
	return name
}

func compareField(field string, q inquiry.PropertyInquiry, inq, stated string) verdict {
	switch field {
	case inquiry.FieldTotalPrice, inquiry.FieldLandPrice, inquiry.FieldBuildPrice:
		return comparePrice(inq, stated)
	case inquiry.FieldSolicitorEmail:
		return compareEmail(inq, stated)
	case inquiry.FieldFinanceTerms:
		return compareFinanceStance(inq, stated)
	case inquiry.FieldPurchaser:
		return comparePurchasers(q.Purchasers, stated)
	case inquiry.FieldLotNumber:
		return compareLot(inq, stated)
	case inquiry.FieldPropertyAddress, inquiry.FieldResidentialAddress:
		return compareAddress(expandAbbreviations(property.Key(inq)), expandAbbreviations(property.Key(stated)))
	default:
		return compareText(property.Key(inq), property.Key(stated))
	}
}

var priceRe = regexp.MustCompile(`[0-9][0-9,]*(\.[0-9]+)?`)

// parsePrice reads the first amount in s: "$550,000", "AUD 550000.00".
func parsePrice(s string) (float64, bool) {
	m := priceRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.Contains(lower, "million"):
		v *= 1_000_000
	case strings.HasSuffix(lower, "k"):
		v *= 1_000
	}
	return v, true
}

func comparePrice(a, b string) verdict {
	x, okA := parsePrice(a)
	y, okB := parsePrice(b)
	if !okA || !okB {
		return verdictUnknown
	}
	if x == y {
		return verdictEqual
	}
	return verdictConflict
}

var emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

func compareEmail(a, b string) verdict {
	x, y := emailRe.FindString(a), emailRe.FindString(b)
	if x == "" || y == "" {
		return verdictUnknown
	}
	if strings.EqualFold(x, y) {
		return verdictEqual
	}
	return verdictConflict
}

type financeStance int

const (
	stanceUnknown financeStance = iota
	stanceSubject
	stanceNotSubject
)

var (
	notSubjectRe = regexp.MustCompile(`\b(not|no longer)\s+subject\s+to\s+finance\b|\bunconditional\b|\bcash\s+(purchase|buyer|sale)\b|\bno\s+finance\b|\bwithout\s+finance\b`)
	subjectRe    = regexp.MustCompile(`\bsubject\s+to\s+(finance|loan|lender)|\b(finance|loan|lender|bank)\s+(approval|clause|condition)\b|\bconditional\s+on\s+finance\b|\bapproval\s+of\s+(finance|a\s+loan)\b|\bobtain(ing)?\s+(finance|a\s+loan)\b`)
)

// stanceOf is unknown when s states both stances, e.g. "not subject to
// finance; however the purchaser must obtain loan approval".
func stanceOf(s string) financeStance {
	lower := strings.ToLower(s)
	not := notSubjectRe.MatchString(lower)
	subject := subjectRe.MatchString(notSubjectRe.ReplaceAllString(lower, " "))
	switch {
	case not && subject:
		return stanceUnknown
	case not:
		return stanceNotSubject
	case subject:
		return stanceSubject
	default:
		return stanceUnknown
	}
}

func compareFinanceStance(a, b string) verdict {
	x, y := stanceOf(a), stanceOf(b)
	if x == stanceUnknown || y == stanceUnknown {
		return verdictUnknown
	}
	if x == y {
		return verdictEqual
	}
	return verdictConflict
}

// comparePurchasers reports a conflict when an inquiry purchaser is missing
// or an e-mail belongs to nobody on the inquiry. Names beyond the inquiry's
// purchasers leave the verdict open.
func comparePurchasers(purchasers []inquiry.Purchaser, stated string) verdict {
	tokens := property.Tokens(emailRe.ReplaceAllString(stated, " "))
	named := map[string]struct{}{}
	emails := map[string]bool{}
	for _, p := range purchasers {
		for t := range property.Tokens(p.FullName()) {
			if _, ok := tokens[t]; !ok {
				return verdictConflict
			}
			named[t] = struct{}{}
		}
		if p.Email != "" {
			emails[strings.ToLower(p.Email)] = true
		}
	}
	for _, e := range emailRe.FindAllString(stated, -1) {
		if !emails[strings.ToLower(e)] {
			return verdictConflict
		}
	}
	for t := range tokens {
		if _, ok := named[t]; ok || purchaserFiller[t] || isNumber(t) {
			continue
		}
		return verdictUnknown
	}
	return verdictEqual
}

var purchaserFiller = map[string]bool{
	"and": true, "purchaser": true, "purchasers": true, "buyer": true, "buyers": true,
	"mr": true, "mrs": true, "ms": true, "miss": true, "dr": true,
	"email": true, "mobile": true, "phone": true,
}

func isNumber(t string) bool {
	for _, r := range t {
		if r < '0' || r > '9' {
			return false
		}
	}
	return t != ""
}

var lotWord = regexp.MustCompile(`\blot\b`)

func compareLot(a, b string) verdict {
	x := strings.TrimSpace(lotWord.ReplaceAllString(property.Key(a), ""))
	y := strings.TrimSpace(lotWord.ReplaceAllString(property.Key(b), ""))
	if x == "" || y == "" {
		return verdictUnknown
	}
	if x == y {
		return verdictEqual
	}
	return verdictConflict
}

// compareText agrees only on identical keys. One side containing the other
// ("Sam Lawyer" in "Sam Lawyer of Lawyers Pty Ltd") is left open.
func compareText(a, b string) verdict {
	switch {
	case a == "" || b == "":
		return verdictUnknown
	case a == b:
		return verdictEqual
	case containsAll(a, b) || containsAll(b, a):
		return verdictUnknown
	default:
		return verdictConflict
	}
}

// compareAddress is compareText plus house, lot and postcode numbers: two
// addresses whose numbers disagree conflict, while a side missing a number
// ("Rivergum Road" against "12 Rivergum Road") is left open.
func compareAddress(a, b string) verdict {
	if a == "" || b == "" {
		return verdictUnknown
	}
	na, nb := numbers(a), numbers(b)
	if !subset(na, nb) && !subset(nb, na) {
		return verdictConflict
	}
	return compareText(a, b)
}

func numbers(key string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, t := range strings.Fields(key) {
		if startsWithDigit(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

func subset(a, b map[string]struct{}) bool {
	for t := range a {
		if _, ok := b[t]; !ok {
			return false
		}
	}
	return true
}

func startsWithDigit(t string) bool { return t != "" && t[0] >= '0' && t[0] <= '9' }

func containsAll(haystack, needle string) bool {
	have := property.Tokens(haystack)
	for t := range property.Tokens(needle) {
		if _, ok := have[t]; !ok {
			return false
		}
	}
	return true
}

var streetAbbreviations = map[string]string{
	"st": "street", "rd": "road", "ave": "avenue", "av": "avenue", "cres": "crescent",
	"cr": "crescent", "ct": "court", "dr": "drive", "pl": "place", "hwy": "highway",
	"pde": "parade", "tce": "terrace", "cl": "close", "bvd": "boulevard", "blvd": "boulevard",
	"ln": "lane", "gr": "grove", "cct": "circuit", "wy": "way",
}

func expandAbbreviations(key string) string {
	fields := strings.Fields(key)
	for i, f := range fields {
		if full, ok := streetAbbreviations[f]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}
