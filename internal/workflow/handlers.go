package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contract_workflow_backend/internal/deadlines"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/notify"
	"contract_workflow_backend/internal/vendors"
)

// extract stores the inquiry carried by an EOI email, tagged by sender.
func (s *Service) extract(ctx context.Context, email mailbox.Email) (Outcome, error) {
	doc, ok, err := s.document(ctx, email)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{Status: StatusSkipped, Detail: "no attachment to extract"}, nil
	}

	q, err := s.deps.Extractor.Extract(ctx, email.Body, doc)
	if err != nil {
		return Outcome{}, fmt.Errorf("extract inquiry: %w", err)
	}
	rec, err := s.deps.Inquiries.Save(ctx, email.SenderAddress(), q)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Status: StatusProcessed, Detail: "stored inquiry " + rec.ID.String() + " for " + rec.Inquiry.PropertyAddress}, nil
}

// validateContract checks a vendor's contract against the matching inquiry.
func (s *Service) validateContract(ctx context.Context, email mailbox.Email) (Outcome, error) {
	doc, ok, err := s.document(ctx, email)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{Status: StatusSkipped, Detail: "no contract attached"}, nil
	}

	rec, err := s.resolveInquiry(ctx, email)
	if errors.Is(err, ErrNoMatch) {
		return Outcome{Status: StatusNoMatch, Detail: "no inquiry matches this contract"}, nil
	}
	if err != nil {
		return Outcome{}, err
	}
	review, err := s.deps.Reviewer.Review(ctx, rec.Inquiry, doc)
	if err != nil {
		return Outcome{}, fmt.Errorf("review contract: %w", err)
	}
	mismatches := ApplyMismatchRule(rec.Inquiry, review)

	q := rec.Inquiry
	if err := s.deps.Vendors.Upsert(ctx, q.PropertyAddress, email.SenderAddress()); err != nil {
		return Outcome{}, err
	}

	purchasers := q.PurchaserNames(" & ")
	var msgs []notify.Message
	if len(mismatches) == 0 {
		msg, err := s.deps.Templates.Render(notify.TemplateApproval, q.SolicitorEmail, notify.ApprovalData{
			SolicitorName: q.SolicitorName,
			Purchasers:    purchasers,
			Address:       q.PropertyAddress,
		})
		if err != nil {
			return Outcome{}, err
		}
		msgs = append(msgs, msg)
	} else {
		lines := make([]notify.MismatchLine, len(mismatches))
		for i, m := range mismatches {
			lines[i] = notify.MismatchLine{Field: m.Field, InquiryValue: m.InquiryValue, ContractValue: m.ContractValue}
		}
		data := notify.DiscrepancyData{Purchasers: purchasers, Address: q.PropertyAddress, Mismatches: lines}
		for _, to := range []string{email.SenderAddress(), s.deps.InternalAddress} {
			if to == "" {
				continue
			}
			msg, err := s.deps.Templates.Render(notify.TemplateDiscrepancy, to, data)
			if err != nil {
				return Outcome{}, err
			}
			msgs = append(msgs, msg)
		}
	}

	if err := notify.SendAll(ctx, s.deps.Notifier, msgs...); err != nil {
		return Outcome{}, fmt.Errorf("notify: %w", err)
	}
	detail := "contract valid"
	if len(mismatches) > 0 {
		detail = fmt.Sprintf("contract has %d discrepancies", len(mismatches))
	}
	return Outcome{Status: StatusProcessed, Detail: detail, Notified: len(msgs)}, nil
}

// recordSigningDate tracks the signing deadline and asks the vendor to
// release the contract.
func (s *Service) recordSigningDate(ctx context.Context, email mailbox.Email) (Outcome, error) {
	now := s.deps.Now().In(s.deps.Location)
	appointment, err := s.deps.Appointments.Extract(ctx, email.Body, now)
	if err != nil {
		return Outcome{}, fmt.Errorf("extract appointment: %w", err)
	}
	rec, err := s.resolveInquiry(ctx, email)
	if errors.Is(err, ErrNoMatch) {
		return Outcome{Status: StatusNoMatch, Detail: "no inquiry matches this signing notice"}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	q := rec.Inquiry
	deadline := deadlines.NewRecord(q.PropertyAddress, q.Purchasers, appointment.In(s.deps.Location))
	if err := s.deps.Deadlines.Put(ctx, deadline); err != nil {
		return Outcome{}, err
	}
	detail := "deadline " + deadline.ReminderDatetime + " for " + q.PropertyAddress

	vendor, err := s.deps.Vendors.Lookup(ctx, q.PropertyAddress)
	if errors.Is(err, vendors.ErrNotFound) {
		s.log.WithContext(ctx).Warn("no vendor recorded, contract release not requested", "property", q.PropertyAddress)
		return Outcome{Status: StatusProcessed, Detail: detail + "; no vendor on record"}, nil
	}
	if err != nil {
		return Outcome{}, err
	}

	msg, err := s.deps.Templates.Render(notify.TemplateContractRelease, vendor, notify.ContractReleaseData{
		Purchasers: q.PurchaserNames(" & "),
		Address:    q.PropertyAddress,
	})
	if err != nil {
		return Outcome{}, err
	}
	if err := s.deps.Notifier.Send(ctx, msg); err != nil {
		return Outcome{}, fmt.Errorf("notify vendor: %w", err)
	}
	return Outcome{Status: StatusProcessed, Detail: detail, Notified: 1}, nil
}

// signingStatusUpdate stops tracking the property named by a signing notice.
// Any signing event ends tracking.
func (s *Service) signingStatusUpdate(ctx context.Context, email mailbox.Email) (Outcome, error) {
	for _, named := range namedProperties(email) {
		rec, ok, err := s.deps.Deadlines.DeleteMatching(ctx, named)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			return Outcome{Status: StatusProcessed, Detail: "stopped tracking " + rec.PropertyAddress}, nil
		}
	}
	return Outcome{Status: StatusNoMatch, Detail: "no tracked deadline matches this notice"}, nil
}

// namedProperties returns the strings that may name the property, most
// specific first: the "Document:" line, then the subject.
func namedProperties(email mailbox.Email) []string {
	var out []string
	for _, line := range strings.Split(email.Body, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(strings.ToLower(line), "document:") {
			out = append(out, line[strings.Index(strings.ToLower(line), "document:"):])
			break
		}
	}
	if subject := strings.TrimSpace(email.Subject); subject != "" {
		out = append(out, subject)
	}
	return out
}
