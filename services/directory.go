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
	"omnilead-server/types"
	"omnilead-server/utils"
)

// RegisterInput is the public signup payload.
type RegisterInput struct {
	ID             string `json:"id"`
	Company        string `json:"company"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	Pin            string `json:"pin"`
	Service        string `json:"service"`
	Location       string `json:"location"`
	TelegramToken  string `json:"telegramToken"`
	TelegramChatID string `json:"telegramChatId"`
}

// LoginInput identifies a contractor by email or phone.
type LoginInput struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Pin      string `json:"pin"`
}

// LoginResult carries the contractor without secrets and a session token.
type LoginResult struct {
	Contractor models.Contractor `json:"contractor"`
	Token      string            `json:"token"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// ProfileInput lists contractor-editable fields. Nil fields are left as is.
type ProfileInput struct {
	Company        *string `json:"company"`
	ContactName    *string `json:"contactName"`
	Phone          *string `json:"phone"`
	Service        *string `json:"service"`
	Location       *string `json:"location"`
	TelegramToken  *string `json:"telegramToken"`
	TelegramChatID *string `json:"telegramChatId"`
}

// Directory manages contractor accounts and moderation.
type Directory struct {
	contractors database.Repository[models.Contractor]
	sessions    *JWTService
	notifier    Notifier
	channels    Channels
	events      Publisher
	logger      *zap.Logger
}

// NewDirectory creates a contractor directory.
func NewDirectory(contractors database.Repository[models.Contractor], sessions *JWTService, notifier Notifier, channels Channels, events Publisher, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		contractors: contractors,
		sessions:    sessions,
		notifier:    notifier,
		channels:    channels,
		events:      publisherOrNop(events),
		logger:      logger.Named("directory"),
	}
}

// Register creates a contractor account, hashing the password and PIN.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*models.Contractor, error) {
	email := utils.NormalizeEmail(in.Email)
	phone := utils.NormalizePhone(in.Phone)
	pin := strings.TrimSpace(in.Pin)

	var fields []string
	if email == "" && phone == "" {
		fields = append(fields, "email_or_phone")
	}
	if in.Password == "" {
		fields = append(fields, "password")
	}
	if err := missing(fields...); err != nil {
		return nil, err
	}
	if pin != "" && !utils.IsPin(pin) {
		return nil, invalid("pin must be exactly 3 digits", "pin")
	}

	if err := d.checkUnique(ctx, strings.TrimSpace(in.ID), email, phone); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	var pinHash string
	if pin != "" {
		if pinHash, err = utils.HashPassword(pin); err != nil {
			return nil, fmt.Errorf("hash pin: %w", err)
		}
	}

	company := strings.TrimSpace(in.Company)
	if company == "" {
		company = strings.TrimSpace(in.Name)
	}
	contractor := &models.Contractor{
		Company:        company,
		ContactName:    strings.TrimSpace(in.Name),
		Phone:          phone,
		Email:          email,
		Service:        strings.TrimSpace(in.Service),
		Location:       strings.TrimSpace(in.Location),
		TelegramToken:  strings.TrimSpace(in.TelegramToken),
		TelegramChatID: strings.TrimSpace(in.TelegramChatID),
		Badge:          models.BadgeNone,
		PasswordHash:   passwordHash,
		PinHash:        pinHash,
	}
	contractor.ID = strings.TrimSpace(in.ID)

	saved, err := d.contractors.Save(ctx, contractor)
	if err != nil {
		return nil, err
	}
	d.logger.Info("contractor registered", zap.String("id", saved.ID), zap.String("service", saved.Service))

	d.announce(ctx, saved)
	out := saved.WithoutSecrets()
	d.events.Publish(EventContractorCreated, out.Public())
	return &out, nil
}

func (d *Directory) checkUnique(ctx context.Context, id, email, phone string) error {
	if id != "" {
		if _, err := d.contractors.Get(ctx, id); err == nil {
			return fmt.Errorf("%w: contractor id %s", ErrConflict, id)
		} else if !errors.Is(err, database.ErrNotFound) {
			return err
		}
	}
	if email != "" {
		if c, err := d.findOne(ctx, database.Filter{"email": email}); err != nil {
			return err
		} else if c != nil {
			return fmt.Errorf("%w: email already registered", ErrConflict)
		}
	}
	if phone != "" {
		if c, err := d.findOne(ctx, database.Filter{"phone": phone}); err != nil {
			return err
		} else if c != nil {
			return fmt.Errorf("%w: phone already registered", ErrConflict)
		}
	}
	return nil
}

// announce tells the admin about the signup and welcomes the contractor on
// their own bot when they supplied one.
func (d *Directory) announce(ctx context.Context, c *models.Contractor) {
	if d.notifier == nil {
		return
	}
	lines := []string{
		"<b>🧰 New Contractor Signup</b>",
		"🏢 Company: " + orDash(c.Company),
		"👷 Name: " + orDash(c.ContactName),
		"📞 Phone: " + orDash(c.Phone),
		"🛠 Service: " + orDash(c.Service),
	}
	if c.Email != "" {
		lines = append(lines, "📧 Email: "+html.EscapeString(c.Email))
	}
	d.notifier.Broadcast(ctx, strings.Join(lines, "\n"), d.channels.Targets(nil))

	if c.HasChannel() {
		welcome := fmt.Sprintf("👋 Welcome %s!\nYou are now listed under %s.\nYou'll start receiving leads here.",
			html.EscapeString(firstNonEmpty(c.Company, c.ContactName, "Contractor")),
			html.EscapeString(firstNonEmpty(c.Service, "General Services")))
		d.notifier.Broadcast(ctx, welcome, Targets{Contractor: &Credential{Token: c.TelegramToken, ChatID: c.TelegramChatID}})
	}
}

// Login checks a contractor's password (and PIN when one is set) and issues
// a contractor session.
func (d *Directory) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := utils.NormalizeEmail(in.Email)
	phone := utils.NormalizePhone(in.Phone)
	if email == "" && phone == "" {
		return nil, missing("email_or_phone")
	}
	if in.Password == "" {
		return nil, missing("password")
	}

	filter := database.Filter{"email": email}
	if email == "" {
		filter = database.Filter{"phone": phone}
	}
	c, err := d.findOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	if c == nil || !utils.CheckPasswordHash(in.Password, c.PasswordHash) {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if c.PinHash != "" && !utils.CheckPasswordHash(strings.TrimSpace(in.Pin), c.PinHash) {
		return nil, fmt.Errorf("%w: invalid pin", ErrUnauthorized)
	}
	if c.Blocked {
		return nil, fmt.Errorf("%w: contractor account is blocked", ErrBlocked)
	}

	token, expiresAt, err := d.sessions.Issue(types.RoleContractor, c.ID, c.Email)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Contractor: c.WithoutSecrets(), Token: token, ExpiresAt: expiresAt}, nil
}

func (d *Directory) findOne(ctx context.Context, filter database.Filter) (*models.Contractor, error) {
	recs, err := d.contractors.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// FindByID returns nil, nil when the contractor does not exist.
func (d *Directory) FindByID(ctx context.Context, id string) (*models.Contractor, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil
	}
	c, err := d.contractors.Get(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get is FindByID for handlers that must answer 404.
func (d *Directory) Get(ctx context.Context, id string) (*models.Contractor, error) {
	return d.contractors.Get(ctx, id)
}

func (d *Directory) SetVerification(ctx context.Context, id string, verified bool) (*models.Contractor, error) {
	return d.update(ctx, id, map[string]any{"verified": verified})
}

func (d *Directory) SetBlocked(ctx context.Context, id string, blocked bool) (*models.Contractor, error) {
	return d.update(ctx, id, map[string]any{"blocked": blocked})
}

// SetBadge applies a badge tier. Unknown tiers are rejected.
func (d *Directory) SetBadge(ctx context.Context, id, badge string) (*models.Contractor, error) {
	b, ok := models.ParseBadge(badge)
	if !ok {
		return nil, invalid("unknown badge "+badge, "badge")
	}
	return d.update(ctx, id, map[string]any{"badge": string(b)})
}

// UpdateProfile applies the contractor's own edits.
func (d *Directory) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*models.Contractor, error) {
	partial := map[string]any{}
	set := func(key string, v *string) {
		if v != nil {
			partial[key] = strings.TrimSpace(*v)
		}
	}
	set("company", in.Company)
	set("contact_name", in.ContactName)
	set("service", in.Service)
	set("location", in.Location)
	set("telegram_token", in.TelegramToken)
	set("telegram_chat_id", in.TelegramChatID)
	if in.Phone != nil {
		phone := utils.NormalizePhone(*in.Phone)
		if phone == "" {
			return nil, invalid("phone cannot be empty", "phone")
		}
		if other, err := d.findOne(ctx, database.Filter{"phone": phone}); err != nil {
			return nil, err
		} else if other != nil && other.ID != id {
			return nil, fmt.Errorf("%w: phone already registered", ErrConflict)
		}
		partial["phone"] = phone
	}
	if len(partial) == 0 {
		return nil, invalid("no fields to update")
	}
	return d.update(ctx, id, partial)
}

func (d *Directory) update(ctx context.Context, id string, partial map[string]any) (*models.Contractor, error) {
	c, err := d.contractors.Update(ctx, id, partial)
	if err != nil {
		return nil, err
	}
	out := c.WithoutSecrets()
	return &out, nil
}

// Remove deletes a contractor. Leads and reviews that reference it are kept.
func (d *Directory) Remove(ctx context.Context, id string) (int64, error) {
	n, err := d.contractors.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, database.ErrNotFound
	}
	return n, nil
}

// List returns contractors without credential hashes.
func (d *Directory) List(ctx context.Context, filter database.Filter) ([]models.Contractor, error) {
	recs, err := d.contractors.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.Contractor, len(recs))
	for i := range recs {
		out[i] = recs[i].WithoutSecrets()
	}
	return out, nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return html.EscapeString(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
