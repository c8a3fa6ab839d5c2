package bootstrap

import (
	"fmt"

	"contract_workflow_backend/internal/agent"
	"contract_workflow_backend/internal/mailbox"
	"contract_workflow_backend/internal/workflow"
)

// Workflow builds the reasoning agents and the workflow service, and
// subscribes it to mailbox notifications on the bus.
func (c *Components) Workflow() (*workflow.Service, error) {
	agents, err := agent.New(c.Config)
	if err != nil {
		return nil, fmt.Errorf("reasoning agents: %w", err)
	}
	svc := workflow.NewService(workflow.Deps{
		Classifier:      agents.Classifier,
		Extractor:       agents.Extractor,
		QueryDeriver:    agents.QueryDeriver,
		Reviewer:        agents.Reviewer,
		Appointments:    agents.Appointments,
		Attachments:     mailbox.NewAttachmentLoader(c.Objects),
		Inquiries:       c.Inquiries,
		Matcher:         c.Matcher,
		Vendors:         c.Vendors,
		Deadlines:       c.Deadlines,
		Notifier:        c.Notifier,
		Templates:       c.Templates,
		InternalAddress: c.Config.GetInternalAlertEmail(),
		Location:        c.Location,
		Log:             c.Log,
	})
	svc.RegisterSubscriptions(c.Bus, mailbox.NewNormalizer(c.Graph, c.Objects, c.Log))
	c.Log.Info("workflow ready", "credentials", c.Credentials.State().String())
	return svc, nil
}
