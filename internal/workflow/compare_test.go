package workflow

import (
	"testing"

	"contract_workflow_backend/internal/agent"
	"contract_workflow_backend/internal/inquiry"
)

func baseInquiry() inquiry.PropertyInquiry {
	return inquiry.PropertyInquiry{
		Purchasers: []inquiry.Purchaser{
			{FirstName: "Jane", LastName: "Citizen", Email: "jane@example.com"},
			{FirstName: "John", LastName: "Citizen"},
		},
		ResidentialAddress: "12 Rivergum Rd Mernda VIC 3754",
		LotNumber:          "95",
		PropertyAddress:    "Lot 95 Fake Rise VIC 3336",
		TotalPrice:         "$650,000",
		FinanceTerms:       "Not Subject to Finance",
		SolicitorName:      "Sam Lawyer",
		SolicitorEmail:     "sam@lawyers.example",
	}
}

func fields(ms []Mismatch) map[string]Mismatch {
	out := make(map[string]Mismatch, len(ms))
	for _, m := range ms {
		out[m.Field] = m
	}
	return out
}

func TestFinanceTermsImpliedConflictIsReported(t *testing.T) {
	review := agent.ContractReview{
		Statements: map[string]string{
			"Finance_Terms": "This contract is conditional on the purchaser obtaining finance approval within 21 days.",
		},
		Conflicts: []agent.Conflict{{Field: "Finance_Terms", Reason: "contract requires finance approval"}},
	}
	got := fields(ApplyMismatchRule(baseInquiry(), review))
	m, ok := got[inquiry.FieldFinanceTerms]
	if !ok {
		t.Fatalf("expected Finance_Terms mismatch, got %v", got)
	}
	if m.InquiryValue != "Not Subject to Finance" {
		t.Fatalf("unexpected inquiry value %q", m.InquiryValue)
	}
	if len(got) != 1 {
		t.Fatalf("expected only Finance_Terms, got %v", got)
	}
}

func TestBlankInquiryFieldsAreNeverReported(t *testing.T) {
	q := baseInquiry()
	q.LandPrice = ""
	q.ProjectName = "  "
	review := agent.ContractReview{
		Statements: map[string]string{
			"Land_Price":   "$300,000",
			"Project_Name": "Rivergum Estate",
		},
		Conflicts: []agent.Conflict{
			{Field: "Land_Price", ContractValue: "$300,000"},
			{Field: "Project_Name", ContractValue: "Rivergum Estate"},
		},
	}
	if got := ApplyMismatchRule(q, review); len(got) != 0 {
		t.Fatalf("blank inquiry fields reported: %v", got)
	}
}

func TestFieldsAbsentFromContractAreNeverReported(t *testing.T) {
	review := agent.ContractReview{
		Statements: map[string]string{"Total_Price": ""},
		Conflicts:  []agent.Conflict{{Field: "Solicitor_Email", Reason: "not stated"}},
	}
	if got := ApplyMismatchRule(baseInquiry(), review); len(got) != 0 {
		t.Fatalf("absent contract fields reported: %v", got)
	}
}

func TestDeterministicComparators(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		statement string
		flagged   bool
		want      bool
	}{
		{"equal price formats", "Total_Price", "AUD 650000.00", true, false},
		{"price in thousands", "Total_Price", "650k", false, false},
		{"different price", "Total Price", "$665,000", false, true},
		{"same solicitor email", "Solicitor_Email", "SAM@lawyers.example", true, false},
		{"different solicitor email", "solicitor email", "sam@other.example", false, true},
		{"purchasers contained", "Purchasers", "Jane Citizen (jane@example.com) and John Citizen", false, false},
		{"purchaser missing", "Purchaser", "Jane Citizen", false, true},
		{"unknown purchaser email", "Purchaser", "Jane Citizen, John Citizen, mallory@example.com", false, true},
		{"lot matches", "Lot_Number", "Lot 95", false, false},
		{"lot differs", "Lot_Number", "Lot 59", false, true},
		{"address punctuation", "Property_Address", "Lot 95 – Fake Rise, VIC 3336", false, false},
		{"street abbreviation", "Residential_Address", "12 Rivergum Road, Mernda VIC 3754", false, false},
		{"different street", "Residential_Address", "14 Wattle Street, Mernda VIC 3754", false, true},
		{"finance stance agrees", "Finance_Terms", "This contract is unconditional", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review := agent.ContractReview{Statements: map[string]string{tt.field: tt.statement}}
			if tt.flagged {
				review.Conflicts = []agent.Conflict{{Field: tt.field}}
			}
			got := len(ApplyMismatchRule(baseInquiry(), review)) > 0
			if got != tt.want {
				t.Fatalf("reported = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlaggedConflictDecidesWhenComparatorCannot(t *testing.T) {
	review := agent.ContractReview{
		Conflicts: []agent.Conflict{{Field: "Finance_Terms", ContractValue: "Special condition 12 applies", Reason: "finance clause"}},
	}
	got := ApplyMismatchRule(baseInquiry(), review)
	if len(got) != 1 || got[0].ContractValue != "Special condition 12 applies" {
		t.Fatalf("expected flagged Finance_Terms mismatch, got %v", got)
	}

	review.Conflicts = nil
	review.Statements = map[string]string{"Finance_Terms": "Special condition 12 applies"}
	if got := ApplyMismatchRule(baseInquiry(), review); len(got) != 0 {
		t.Fatalf("unflagged undecidable statement reported: %v", got)
	}
}

func TestFlaggedConflictSurvivesLooseAgreement(t *testing.T) {
	tests := []struct {
		name      string
		field     string
		statement string
	}{
		{"finance stated both ways", "Finance_Terms", "Not subject to finance; however the purchaser must obtain written loan approval within 14 days."},
		{"extra purchaser on contract", "Purchaser", "Jane Citizen; John Stranger"},
		{"different lot in address", "Property_Address", "Lot 96 Fake Rise VIC 3336"},
		{"house number missing", "Residential_Address", "Rivergum Road Mernda VIC 3754"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			review := agent.ContractReview{
				Statements: map[string]string{tt.field: tt.statement},
				Conflicts:  []agent.Conflict{{Field: tt.field, Reason: "contract disagrees"}},
			}
			got := fields(ApplyMismatchRule(baseInquiry(), review))
			m, ok := got[tt.field]
			if !ok || len(got) != 1 {
				t.Fatalf("expected only %s reported, got %v", tt.field, got)
			}
			if m.ContractValue != tt.statement {
				t.Fatalf("contract value = %q", m.ContractValue)
			}
		})
	}
}

func TestPartialEvidenceAloneIsNotReported(t *testing.T) {
	for field, statement := range map[string]string{
		"Finance_Terms":       "Not subject to finance; however the purchaser must obtain written loan approval within 14 days.",
		"Purchaser":           "Jane Citizen; John Stranger",
		"Residential_Address": "Rivergum Road Mernda VIC 3754",
	} {
		review := agent.ContractReview{Statements: map[string]string{field: statement}}
		if got := ApplyMismatchRule(baseInquiry(), review); len(got) != 0 {
			t.Fatalf("%s: unflagged partial evidence reported: %v", field, got)
		}
	}
}

func TestDifferentLotNumberConflictsWithoutFlag(t *testing.T) {
	review := agent.ContractReview{Statements: map[string]string{"Property_Address": "Lot 96 Fake Rise VIC 3336"}}
	got := fields(ApplyMismatchRule(baseInquiry(), review))
	if _, ok := got[inquiry.FieldPropertyAddress]; !ok {
		t.Fatalf("expected Property_Address mismatch, got %v", got)
	}
}
