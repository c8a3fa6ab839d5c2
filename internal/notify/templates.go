package notify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed templates/workflow.yaml
var templateFS embed.FS

// Template names.
const (
	TemplateApproval        = "approval"
	TemplateDiscrepancy     = "discrepancy"
	TemplateContractRelease = "contract_release"
	TemplateSLAAlert        = "sla_alert"
)

type rawTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

type compiled struct {
	subject *template.Template
	body    *template.Template
}

// Templates renders the embedded workflow mail templates.
type Templates struct {
	signature string
	byName    map[string]compiled
}

// ApprovalData fills the approval template.
type ApprovalData struct {
	SolicitorName string
	Purchasers    string
	Address       string
}

// MismatchLine is one itemized discrepancy.
type MismatchLine struct {
	Field         string
	InquiryValue  string
	ContractValue string
}

// DiscrepancyData fills the discrepancy template.
type DiscrepancyData struct {
	Purchasers string
	Address    string
	Mismatches []MismatchLine
}

// ContractReleaseData fills the contract release template.
type ContractReleaseData struct {
	Purchasers string
	Address    string
}

// SLAAlertData fills the SLA alert template.
type SLAAlertData struct {
	Purchasers   string
	Address      string
	Appointment  string
	Reminder     string
	ReminderDate string
}

// LoadTemplates parses the embedded templates. signature is appended to
// every mail's sign-off.
func LoadTemplates(signature string) (*Templates, error) {
	raw, err := templateFS.ReadFile("templates/workflow.yaml")
	if err != nil {
		return nil, err
	}
	var defs map[string]rawTemplate
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	t := &Templates{signature: signature, byName: make(map[string]compiled, len(defs))}
	for name, def := range defs {
		subj, err := template.New(name + ".subject").Option("missingkey=error").Parse(def.Subject)
		if err != nil {
			return nil, fmt.Errorf("template %s subject: %w", name, err)
		}
		body, err := template.New(name + ".body").Option("missingkey=error").Parse(def.Body)
		if err != nil {
			return nil, fmt.Errorf("template %s body: %w", name, err)
		}
		t.byName[name] = compiled{subject: subj, body: body}
	}
	for _, required := range []string{TemplateApproval, TemplateDiscrepancy, TemplateContractRelease, TemplateSLAAlert} {
		if _, ok := t.byName[required]; !ok {
			return nil, fmt.Errorf("template %s missing", required)
		}
	}
	return t, nil
}

// MustLoadTemplates is LoadTemplates for the embedded, known-good file.
func MustLoadTemplates(signature string) *Templates {
	t, err := LoadTemplates(signature)
	if err != nil {
		panic(err)
	}
	return t
}

// Render fills template name with data and returns a message addressed to to.
func (t *Templates) Render(name, to string, data any) (Message, error) {
	c, ok := t.byName[name]
	if !ok {
		return Message{}, fmt.Errorf("unknown template %q", name)
	}
	fields := merge(t.signature, data)
	subject, err := execute(c.subject, fields)
	if err != nil {
		return Message{}, err
	}
	body, err := execute(c.body, fields)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: strings.TrimSpace(subject), Body: body}, nil
}

func execute(tpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tpl.Name(), err)
	}
	return buf.String(), nil
}

// merge exposes the data's fields and Signature at the template root.
func merge(signature string, data any) map[string]any {
	out := map[string]any{"Signature": signature}
	switch d := data.(type) {
	case ApprovalData:
		out["SolicitorName"], out["Purchasers"], out["Address"] = d.SolicitorName, d.Purchasers, d.Address
	case DiscrepancyData:
		out["Purchasers"], out["Address"], out["Mismatches"] = d.Purchasers, d.Address, d.Mismatches
	case ContractReleaseData:
		out["Purchasers"], out["Address"] = d.Purchasers, d.Address
	case SLAAlertData:
		out["Purchasers"], out["Address"] = d.Purchasers, d.Address
		out["Appointment"], out["Reminder"], out["ReminderDate"] = d.Appointment, d.Reminder, d.ReminderDate
	}
	return out
}
