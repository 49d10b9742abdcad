package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Credential addresses one bot conversation.
type Credential struct {
	Token  string
	ChatID string
}

// Present reports whether both halves of the credential are set.
func (c Credential) Present() bool {
	return c.Token != "" && c.ChatID != ""
}

// DeliveryResult is the outcome of a single send. It is reported back to
// callers and never turned into an error.
type DeliveryResult struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

// Target names a notification recipient.
type Target string

const (
	TargetAdmin         Target = "admin"
	TargetAdminOverride Target = "admin_override"
	TargetContractor    Target = "contractor"
)

// Targets selects recipients for a broadcast. Nil entries are not sent to.
type Targets struct {
	Admin         *Credential
	AdminOverride *Credential
	Contractor    *Credential
}

// Channels are the configured admin destinations.
type Channels struct {
	Admin    Credential
	Override Credential
}

// Targets returns the admin targets plus contractor when given. The admin
// target is always included; the override only when configured.
func (ch Channels) Targets(contractor *Credential) Targets {
	admin := ch.Admin
	t := Targets{Admin: &admin, Contractor: contractor}
	if ch.Override.Present() {
		override := ch.Override
		t.AdminOverride = &override
	}
	return t
}

// Notifier fans a message out to several recipients.
type Notifier interface {
	Broadcast(ctx context.Context, text string, targets Targets) map[Target]DeliveryResult
}

// Dispatcher delivers HTML text through the Telegram Bot API.
type Dispatcher struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewDispatcher creates a dispatcher talking to the bot API at baseURL.
func NewDispatcher(baseURL string, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("dispatcher"),
	}
}

// Send posts text to one conversation. Missing credentials skip the call.
func (d *Dispatcher) Send(ctx context.Context, cred Credential, text string) DeliveryResult {
	if !cred.Present() {
		return DeliveryResult{Skipped: true, Error: "missing token or chat id"}
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: cred.ChatID, Text: text, ParseMode: "HTML"})
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", d.baseURL, cred.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		// err embeds the request URL, which carries the bot token
		msg := redact(err.Error(), cred.Token)
		d.logger.Warn("telegram send failed", zap.String("chat_id", cred.ChatID), zap.String("error", msg))
		return DeliveryResult{Error: msg}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return DeliveryResult{Error: err.Error()}
	}

	var reply sendMessageResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		msg := fmt.Sprintf("telegram: unexpected response (status %d)", resp.StatusCode)
		d.logger.Warn("telegram send failed", zap.String("chat_id", cred.ChatID), zap.String("error", msg))
		return DeliveryResult{Error: msg}
	}
	if !reply.OK {
		msg := reply.Description
		if msg == "" {
			msg = fmt.Sprintf("telegram: status %d", resp.StatusCode)
		}
		d.logger.Warn("telegram api error", zap.String("chat_id", cred.ChatID), zap.String("error", msg))
		return DeliveryResult{Error: msg}
	}
	return DeliveryResult{OK: true}
}

// Broadcast sends text to every non-nil target concurrently. One target's
// failure never affects another's result.
func (d *Dispatcher) Broadcast(ctx context.Context, text string, targets Targets) map[Target]DeliveryResult {
	results := make(map[Target]DeliveryResult, 3)
	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	for target, cred := range map[Target]*Credential{
		TargetAdmin:         targets.Admin,
		TargetAdminOverride: targets.AdminOverride,
		TargetContractor:    targets.Contractor,
	} {
		if cred == nil {
			continue
		}
		target, cred := target, *cred
		g.Go(func() error {
			res := d.Send(ctx, cred, text)
			mu.Lock()
			results[target] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
