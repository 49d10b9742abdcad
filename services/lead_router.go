package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"omnilead-server/database"
	"omnilead-server/models"
	"omnilead-server/utils"
)

const (
	headerNewLead      = "<b>📩 New Lead</b>"
	headerLeadAssigned = "<b>📌 Lead Assigned</b>"
)

// LeadInput is the inbound lead payload from the form or chat widget.
type LeadInput struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Service      string `json:"service"`
	Message      string `json:"message"`
	ContractorID string `json:"contractorId"`
	Source       string `json:"source"`
}

// LeadUpdate is an admin edit. Nil fields are left as is.
type LeadUpdate struct {
	Status       *string `json:"status"`
	Notes        *string `json:"notes"`
	ContractorID *string `json:"contractorId"`
}

// SubmitResult reports the stored lead and per-recipient delivery outcomes.
type SubmitResult struct {
	Lead    *models.Lead              `json:"lead"`
	Results map[Target]DeliveryResult `json:"results"`
}

// ContractorFinder resolves a contractor by id, returning nil when unknown.
type ContractorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Contractor, error)
}

// LeadRouter persists inbound leads and notifies the admin and the chosen
// contractor.
type LeadRouter struct {
	leads       database.Repository[models.Lead]
	blocks      database.Repository[models.Block]
	contractors ContractorFinder
	notifier    Notifier
	channels    Channels
	events      Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewLeadRouter creates a lead router.
func NewLeadRouter(leads database.Repository[models.Lead], blocks database.Repository[models.Block], contractors ContractorFinder, notifier Notifier, channels Channels, events Publisher, logger *zap.Logger) *LeadRouter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadRouter{
		leads:       leads,
		blocks:      blocks,
		contractors: contractors,
		notifier:    notifier,
		channels:    channels,
		events:      publisherOrNop(events),
		logger:      logger.Named("lead_router"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates, stores and broadcasts a lead. Delivery outcomes are
// attached to the result and never turn into an error.
func (r *LeadRouter) Submit(ctx context.Context, in LeadInput) (*SubmitResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Service = strings.TrimSpace(in.Service)

	var fields []string
	if in.Name == "" {
		fields = append(fields, "name")
	}
	if in.Phone == "" {
		fields = append(fields, "phone")
	}
	if in.Service == "" {
		fields = append(fields, "service")
	}
	if err := missing(fields...); err != nil {
		return nil, err
	}

	if err := r.checkBlocked(ctx, in.Phone, in.Email); err != nil {
		return nil, err
	}

	lead := &models.Lead{
		Name:         in.Name,
		Phone:        in.Phone,
		Email:        strings.TrimSpace(in.Email),
		Service:      in.Service,
		Message:      strings.TrimSpace(in.Message),
		ContractorID: strings.TrimSpace(in.ContractorID),
		Source:       normalizeSource(in.Source),
		Status:       models.LeadStatusNew,
	}
	lead.CreatedAt = r.now()

	saved, err := r.leads.Save(ctx, lead)
	if err != nil {
		return nil, err
	}
	r.logger.Info("lead stored",
		zap.String("id", saved.ID),
		zap.String("service", saved.Service),
		zap.String("contractor_id", saved.ContractorID))

	text := FormatLead(headerNewLead, saved)
	results := r.notifier.Broadcast(ctx, text, r.channels.Targets(r.contractorTarget(ctx, saved.ContractorID)))

	r.events.Publish(EventLeadCreated, saved)
	return &SubmitResult{Lead: saved, Results: results}, nil
}

func (r *LeadRouter) checkBlocked(ctx context.Context, phone, email string) error {
	if r.blocks == nil {
		return nil
	}
	blocks, err := r.blocks.List(ctx, nil)
	if err != nil {
		return err
	}
	phone = utils.NormalizePhone(phone)
	email = utils.NormalizeEmail(email)
	for _, b := range blocks {
		if (b.Phone != "" && utils.NormalizePhone(b.Phone) == phone) ||
			(b.Email != "" && email != "" && utils.NormalizeEmail(b.Email) == email) {
			r.logger.Info("lead rejected by block list", zap.String("block_id", b.ID))
			return fmt.Errorf("%w: sender is on the block list", ErrBlocked)
		}
	}
	return nil
}

// contractorTarget returns the contractor's bot credential, or nil when the
// contractor is unknown or has no channel configured.
func (r *LeadRouter) contractorTarget(ctx context.Context, id string) *Credential {
	if id == "" || r.contractors == nil {
		return nil
	}
	c, err := r.contractors.FindByID(ctx, id)
	if err != nil {
		r.logger.Warn("contractor lookup failed", zap.String("contractor_id", id), zap.Error(err))
		return nil
	}
	if c == nil || !c.HasChannel() {
		return nil
	}
	return &Credential{Token: c.TelegramToken, ChatID: c.TelegramChatID}
}

// Reassign applies an admin edit. When the contractor changes the new one is
// sent the lead.
func (r *LeadRouter) Reassign(ctx context.Context, id string, upd LeadUpdate) (*models.Lead, error) {
	partial := map[string]any{}
	if upd.Status != nil {
		status := models.LeadStatus(strings.ToLower(strings.TrimSpace(*upd.Status)))
		if !status.IsValid() {
			return nil, invalid("unknown lead status "+*upd.Status, "status")
		}
		partial["status"] = string(status)
	}
	if upd.Notes != nil {
		partial["notes"] = strings.TrimSpace(*upd.Notes)
	}

	var before *models.Lead
	if upd.ContractorID != nil {
		current, err := r.leads.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		before = current
		partial["contractor_id"] = strings.TrimSpace(*upd.ContractorID)
	}
	if len(partial) == 0 {
		return nil, invalid("no fields to update")
	}

	updated, err := r.leads.Update(ctx, id, partial)
	if err != nil {
		return nil, err
	}
	r.events.Publish(EventLeadUpdated, updated)

	if before != nil && updated.ContractorID != "" && updated.ContractorID != before.ContractorID {
		if cred := r.contractorTarget(ctx, updated.ContractorID); cred != nil {
			r.notifier.Broadcast(ctx, FormatLead(headerLeadAssigned, updated), Targets{Contractor: cred})
		}
	}
	return updated, nil
}

// List returns leads matching filter, newest first.
func (r *LeadRouter) List(ctx context.Context, filter database.Filter) ([]models.Lead, error) {
	return r.leads.List(ctx, filter)
}

// Remove deletes a lead by id.
func (r *LeadRouter) Remove(ctx context.Context, id string) (int64, error) {
	n, err := r.leads.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, database.ErrNotFound
	}
	return n, nil
}

// Block adds a phone and/or email to the lead block list.
func (r *LeadRouter) Block(ctx context.Context, phone, email, reason string) (*models.Block, error) {
	phone = utils.NormalizePhone(phone)
	email = utils.NormalizeEmail(email)
	if phone == "" && email == "" {
		return nil, missing("phone_or_email")
	}
	if r.blocks == nil {
		return nil, errors.New("block list not configured")
	}
	return r.blocks.Save(ctx, &models.Block{Phone: phone, Email: email, Reason: strings.TrimSpace(reason)})
}

// FormatLead renders a lead as bot HTML: one line per populated field in a
// fixed order, values escaped.
func FormatLead(header string, l *models.Lead) string {
	lines := []string{header}
	add := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, label+html.EscapeString(value))
		}
	}
	add("👤 Name: ", l.Name)
	add("📞 Phone: ", l.Phone)
	add("🛠 Service: ", l.Service)
	add("💬 Message: ", l.Message)
	add("📧 Email: ", l.Email)
	lines = append(lines, "⏱ "+l.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	return strings.Join(lines, "\n")
}

func normalizeSource(s string) models.LeadSource {
	if models.LeadSource(strings.ToLower(strings.TrimSpace(s))) == models.SourceChat {
		return models.SourceChat
	}
	return models.SourceWeb
}
