package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"omnilead-server/database"
	"omnilead-server/models"
)

// Admin action names written to the activity log.
const (
	ActionCreateContractor  = "create_contractor"
	ActionDeleteContractor  = "delete_contractor"
	ActionVerifyContractor  = "verify_contractor"
	ActionBlockContractor   = "block_contractor"
	ActionApplyBadge        = "apply_badge"
	ActionMessageContractor = "message_contractor"
	ActionUpdateLead        = "update_lead"
	ActionDeleteLead        = "delete_lead"
	ActionBlockContact      = "block_contact"
	ActionModerateReview    = "moderate_review"
)

// Log names served by the admin logs endpoint.
const (
	LogAdminActions = string(models.KindAction)
	LogSentMessages = string(models.KindSent)
)

// ActivityLog keeps the admin audit trail and the bot delivery history.
// Writes are best-effort: a failed write is logged and never fails the
// operation that caused it.
type ActivityLog struct {
	actions database.Repository[models.AdminAction]
	sent    database.Repository[models.SentMessage]
	logger  *zap.Logger
}

func NewActivityLog(actions database.Repository[models.AdminAction], sent database.Repository[models.SentMessage], logger *zap.Logger) *ActivityLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLog{actions: actions, sent: sent, logger: logger.Named("activity")}
}

// Record appends one admin action.
func (a *ActivityLog) Record(ctx context.Context, actor, action, targetID, details string) {
	if a == nil {
		return
	}
	_, err := a.actions.Save(ctx, &models.AdminAction{
		Action:   action,
		TargetID: targetID,
		Actor:    actor,
		Details:  details,
	})
	if err != nil {
		a.logger.Warn("admin action not recorded",
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

func (a *ActivityLog) Actions(ctx context.Context, filter database.Filter) ([]models.AdminAction, error) {
	return a.actions.List(ctx, filter)
}

func (a *ActivityLog) Sent(ctx context.Context, filter database.Filter) ([]models.SentMessage, error) {
	return a.sent.List(ctx, filter)
}

// Entries returns the named log, newest first.
func (a *ActivityLog) Entries(ctx context.Context, name string) (any, error) {
	switch name {
	case LogAdminActions:
		return a.Actions(ctx, nil)
	case LogSentMessages:
		return a.Sent(ctx, nil)
	default:
		return nil, fmt.Errorf("log %q: %w", name, database.ErrNotFound)
	}
}

// Notifier wraps next so every delivery result is kept in the sent log.
func (a *ActivityLog) Notifier(next Notifier) Notifier {
	return &recordingDispatch{next: next, log: a}
}

type recordingDispatch struct {
	next Notifier
	log  *ActivityLog
}

func (r *recordingDispatch) Broadcast(ctx context.Context, text string, targets Targets) map[Target]DeliveryResult {
	results := r.next.Broadcast(ctx, text, targets)
	for target, res := range results {
		_, err := r.log.sent.Save(ctx, &models.SentMessage{
			Target:  string(target),
			OK:      res.OK,
			Skipped: res.Skipped,
			Error:   res.Error,
			Text:    text,
		})
		if err != nil {
			r.log.logger.Warn("delivery result not recorded", zap.String("target", string(target)), zap.Error(err))
		}
	}
	return results
}
