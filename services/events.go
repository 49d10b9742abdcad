package services

// Live feed event types.
const (
	EventLeadCreated       = "lead.created"
	EventLeadUpdated       = "lead.updated"
	EventContractorCreated = "contractor.created"
	EventReviewCreated     = "review.created"
	EventMessageCreated    = "message.created"
)

// Publisher pushes events to connected dashboards. Delivery is best-effort.
type Publisher interface {
	Publish(eventType string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
