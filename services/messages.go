package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"omnilead-server/database"
	"omnilead-server/models"
)

// MessageLog records contractor-to-admin messages and relays admin replies.
type MessageLog struct {
	messages    database.Repository[models.Message]
	contractors ContractorFinder
	notifier    Notifier
	channels    Channels
	events      Publisher
	logger      *zap.Logger
}

func NewMessageLog(messages database.Repository[models.Message], contractors ContractorFinder, notifier Notifier, channels Channels, events Publisher, logger *zap.Logger) *MessageLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageLog{
		messages:    messages,
		contractors: contractors,
		notifier:    notifier,
		channels:    channels,
		events:      publisherOrNop(events),
		logger:      logger.Named("messages"),
	}
}

// Post stores a contractor's message and forwards it to the admin.
func (m *MessageLog) Post(ctx context.Context, contractorID, body string) (*models.Message, error) {
	contractorID = strings.TrimSpace(contractorID)
	body = strings.TrimSpace(body)
	var fields []string
	if contractorID == "" {
		fields = append(fields, "contractorId")
	}
	if body == "" {
		fields = append(fields, "message")
	}
	if err := missing(fields...); err != nil {
		return nil, err
	}

	saved, err := m.messages.Save(ctx, &models.Message{ContractorID: contractorID, Body: body})
	if err != nil {
		return nil, err
	}

	from := "ID: " + html.EscapeString(contractorID)
	if m.contractors != nil {
		if c, err := m.contractors.FindByID(ctx, contractorID); err == nil && c != nil && c.Company != "" {
			from = "🏢 " + html.EscapeString(c.Company) + " (" + html.EscapeString(contractorID) + ")"
		}
	}
	if m.notifier != nil {
		text := "<b>Message from Contractor</b>\n" + from + "\n" + html.EscapeString(body)
		m.notifier.Broadcast(ctx, text, m.channels.Targets(nil))
	}
	m.events.Publish(EventMessageCreated, saved)
	return saved, nil
}

// List returns the log, optionally for one contractor.
func (m *MessageLog) List(ctx context.Context, contractorID string) ([]models.Message, error) {
	var filter database.Filter
	if contractorID != "" {
		filter = database.Filter{"contractor_id": contractorID}
	}
	return m.messages.List(ctx, filter)
}

// SendToContractor relays an admin message to the contractor's own bot.
func (m *MessageLog) SendToContractor(ctx context.Context, contractorID, body string) (DeliveryResult, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return DeliveryResult{}, missing("message")
	}
	c, err := m.contractors.FindByID(ctx, contractorID)
	if err != nil {
		return DeliveryResult{}, err
	}
	if c == nil {
		return DeliveryResult{}, fmt.Errorf("contractor %s: %w", contractorID, database.ErrNotFound)
	}

	text := fmt.Sprintf("<b>📣 Message from Admin</b>\n%s\n⏱ %s",
		html.EscapeString(body), time.Now().UTC().Format("2006-01-02 15:04 MST"))
	cred := Credential{Token: c.TelegramToken, ChatID: c.TelegramChatID}
	res := m.notifier.Broadcast(ctx, text, Targets{Contractor: &cred})
	return res[TargetContractor], nil
}
