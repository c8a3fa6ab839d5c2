// Package inquiry stores buyer expressions of interest (EOIs) and finds the
// one a later contract or signing notice refers to.
package inquiry

import (
	"strings"
	"time"

	"contract_workflow_backend/platform/phone"

	"github.com/google/uuid"
)

// Purchaser is one buyer named on an inquiry.
type Purchaser struct {
	FirstName string `json:"First_Name"`
	LastName  string `json:"Last_Name"`
	Email     string `json:"Purchaser_Email"`
	Mobile    string `json:"Purchaser_Mobile"`
}

// FullName returns "First Last".
func (p Purchaser) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// PropertyInquiry is the structured EOI. JSON keys are fixed and round-trip
// exactly; a missing finance provider is encoded as null.
type PropertyInquiry struct {
	Purchasers         []Purchaser `json:"Purchaser"`
	ResidentialAddress string      `json:"Residential_Address"`
	LotNumber          string      `json:"Lot_Number"`
	PropertyAddress    string      `json:"Property_Address"`
	ProjectName        string      `json:"Project_Name"`
	TotalPrice         string      `json:"Total_Price"`
	LandPrice          string      `json:"Land_Price"`
	BuildPrice         string      `json:"Build_Price"`
	FinanceTerms       string      `json:"Finance_Terms"`
	SolicitorName      string      `json:"Solicitor_Name"`
	SolicitorEmail     string      `json:"Solicitor_Email"`
	FinanceProvider    *string     `json:"Finance_Provider"`
}

// Field names as they appear in the schema and in discrepancy reports.
const (
	FieldPurchaser          = "Purchaser"
	FieldResidentialAddress = "Residential_Address"
	FieldLotNumber          = "Lot_Number"
	FieldPropertyAddress    = "Property_Address"
	FieldProjectName        = "Project_Name"
	FieldTotalPrice         = "Total_Price"
	FieldLandPrice          = "Land_Price"
	FieldBuildPrice         = "Build_Price"
	FieldFinanceTerms       = "Finance_Terms"
	FieldSolicitorName      = "Solicitor_Name"
	FieldSolicitorEmail     = "Solicitor_Email"
	FieldFinanceProvider    = "Finance_Provider"
)

// ComparableFields lists the fields a contract is checked against, in report order.
var ComparableFields = []string{
	FieldPurchaser,
	FieldResidentialAddress,
	FieldLotNumber,
	FieldPropertyAddress,
	FieldProjectName,
	FieldTotalPrice,
	FieldLandPrice,
	FieldBuildPrice,
	FieldFinanceTerms,
	FieldSolicitorName,
	FieldSolicitorEmail,
	FieldFinanceProvider,
}

// FieldValues flattens the inquiry into field name -> value. Purchasers are
// rendered as "First Last <email>" joined by "; ".
func (q PropertyInquiry) FieldValues() map[string]string {
	provider := ""
	if q.FinanceProvider != nil {
		provider = *q.FinanceProvider
	}
	names := make([]string, 0, len(q.Purchasers))
	for _, p := range q.Purchasers {
		name := p.FullName()
		if p.Email != "" {
			name += " <" + p.Email + ">"
		}
		if strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	return map[string]string{
		FieldPurchaser:          strings.Join(names, "; "),
		FieldResidentialAddress: q.ResidentialAddress,
		FieldLotNumber:          q.LotNumber,
		FieldPropertyAddress:    q.PropertyAddress,
		FieldProjectName:        q.ProjectName,
		FieldTotalPrice:         q.TotalPrice,
		FieldLandPrice:          q.LandPrice,
		FieldBuildPrice:         q.BuildPrice,
		FieldFinanceTerms:       q.FinanceTerms,
		FieldSolicitorName:      q.SolicitorName,
		FieldSolicitorEmail:     q.SolicitorEmail,
		FieldFinanceProvider:    provider,
	}
}

// PurchaserNames joins the purchasers' full names with sep.
func (q PropertyInquiry) PurchaserNames(sep string) string {
	names := make([]string, 0, len(q.Purchasers))
	for _, p := range q.Purchasers {
		if n := p.FullName(); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, sep)
}

// Normalized returns a copy with trimmed values, E.164 mobiles and a blank
// finance provider turned into nil.
func (q PropertyInquiry) Normalized() PropertyInquiry {
	out := q
	out.Purchasers = make([]Purchaser, len(q.Purchasers))
	for i, p := range q.Purchasers {
		out.Purchasers[i] = Purchaser{
			FirstName: strings.TrimSpace(p.FirstName),
			LastName:  strings.TrimSpace(p.LastName),
			Email:     strings.ToLower(strings.TrimSpace(p.Email)),
			Mobile:    phone.NormalizeE164(p.Mobile),
		}
	}
	out.PropertyAddress = strings.TrimSpace(q.PropertyAddress)
	out.SolicitorEmail = strings.TrimSpace(q.SolicitorEmail)
	if q.FinanceProvider != nil {
		if v := strings.TrimSpace(*q.FinanceProvider); v != "" {
			out.FinanceProvider = &v
		} else {
			out.FinanceProvider = nil
		}
	}
	return out
}

// Record is a stored inquiry tagged with the sender it arrived from.
type Record struct {
	ID        uuid.UUID
	Sender    string
	Inquiry   PropertyInquiry
	CreatedAt time.Time
}
