package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"omnilead-server/database"
	"omnilead-server/models"
)

const (
	MaxReviewImages    = 8
	MaxReviewImageSize = 5 << 20
)

var allowedImageExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReviewInput is the public review payload.
type ReviewInput struct {
	ContractorID string `json:"contractorId" form:"contractorId"`
	ReviewerName string `json:"name" form:"name"`
	Rating       Rating `json:"rating" form:"rating"`
	Comment      string `json:"comment" form:"comment"`
}

// Rating holds the raw rating as sent. JSON clients may send it as a
// number or a string; form posts bind it as a string.
type Rating string

func (r *Rating) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*r = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Rating(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("rating must be a number or string: %w", err)
	}
	*r = Rating(n.String())
	return nil
}

// ReviewDesk takes customer reviews and lets the admin moderate them.
type ReviewDesk struct {
	reviews     database.Repository[models.Review]
	contractors ContractorFinder
	uploader    ImageUploader
	notifier    Notifier
	channels    Channels
	events      Publisher
	logger      *zap.Logger
}

func NewReviewDesk(reviews database.Repository[models.Review], contractors ContractorFinder, up ImageUploader, notifier Notifier, channels Channels, events Publisher, logger *zap.Logger) *ReviewDesk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewDesk{
		reviews:     reviews,
		contractors: contractors,
		uploader:    up,
		notifier:    notifier,
		channels:    channels,
		events:      publisherOrNop(events),
		logger:      logger.Named("reviews"),
	}
}

// ValidateImages checks count, size and extension before anything is stored.
func ValidateImages(files []Upload) error {
	if len(files) > MaxReviewImages {
		return invalid(fmt.Sprintf("at most %d images per review", MaxReviewImages), "images")
	}
	for _, f := range files {
		if _, ok := allowedImageExt[strings.ToLower(path.Ext(f.Filename))]; !ok {
			return invalid("images must be jpg, jpeg, png or webp", "images")
		}
		if f.Size > MaxReviewImageSize {
			return invalid("images must be 5MB or smaller", "images")
		}
	}
	return nil
}

// Submit stores a pending review with its uploaded images.
func (d *ReviewDesk) Submit(ctx context.Context, in ReviewInput, files []Upload) (*models.Review, error) {
	name := strings.TrimSpace(in.ReviewerName)
	rating, err := strconv.Atoi(strings.TrimSpace(string(in.Rating)))
	if name == "" {
		return nil, missing("name")
	}
	if err != nil || rating < 1 || rating > 5 {
		return nil, invalid("rating must be a whole number from 1 to 5", "rating")
	}
	if err := ValidateImages(files); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(files))
	keys := make([]string, 0, len(files))
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.Filename))
		if f.ContentType == "" {
			f.ContentType = allowedImageExt[ext]
		}
		key := "reviews/" + uuid.NewString() + ext
		url, err := d.uploader.Upload(ctx, key, f)
		if err != nil {
			d.logger.Error("review image upload failed", zap.String("file", f.Filename), zap.Error(err))
			d.discard(ctx, keys)
			return nil, fmt.Errorf("upload %s: %w", f.Filename, err)
		}
		urls = append(urls, url)
		keys = append(keys, key)
	}

	saved, err := d.reviews.Save(ctx, &models.Review{
		ContractorID: strings.TrimSpace(in.ContractorID),
		ReviewerName: name,
		Rating:       rating,
		Comment:      strings.TrimSpace(in.Comment),
		ImageURLs:    urls,
		Status:       models.ReviewPending,
	})
	if err != nil {
		d.discard(ctx, keys)
		return nil, err
	}

	d.notify(ctx, saved)
	d.events.Publish(EventReviewCreated, saved)
	return saved, nil
}

// discard removes images already stored for a review that was not saved.
func (d *ReviewDesk) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := d.uploader.Remove(ctx, key); err != nil {
			d.logger.Warn("orphaned review image", zap.String("key", key), zap.Error(err))
		}
	}
}

func (d *ReviewDesk) notify(ctx context.Context, r *models.Review) {
	if d.notifier == nil {
		return
	}
	var contractorName string
	var target *Credential
	if d.contractors != nil && r.ContractorID != "" {
		c, err := d.contractors.FindByID(ctx, r.ContractorID)
		if err != nil {
			d.logger.Warn("contractor lookup failed", zap.String("contractor_id", r.ContractorID), zap.Error(err))
		}
		if c != nil {
			contractorName = c.Company
			if c.HasChannel() {
				target = &Credential{Token: c.TelegramToken, ChatID: c.TelegramChatID}
			}
		}
	}

	lines := []string{
		"<b>⭐ New Review Submitted</b>",
		"👷 Contractor: " + orDash(firstNonEmpty(contractorName, r.ContractorID)),
		"👤 Reviewer: " + orDash(r.ReviewerName),
		fmt.Sprintf("⭐ Rating: %d/5", r.Rating),
	}
	if r.Comment != "" {
		lines = append(lines, "💬 Comment: "+html.EscapeString(r.Comment))
	}
	if len(r.ImageURLs) > 0 {
		lines = append(lines, fmt.Sprintf("🖼 Images: %d", len(r.ImageURLs)))
	}
	d.notifier.Broadcast(ctx, strings.Join(lines, "\n"), d.channels.Targets(target))
}

// Moderate sets a review's status to approved or rejected.
func (d *ReviewDesk) Moderate(ctx context.Context, id, status string) (*models.Review, error) {
	s := models.ReviewStatus(strings.ToLower(strings.TrimSpace(status)))
	if s != models.ReviewApproved && s != models.ReviewRejected {
		return nil, invalid("status must be approved or rejected", "status")
	}
	return d.reviews.Update(ctx, id, map[string]any{"status": string(s)})
}

// ListPublic returns approved reviews, optionally for one contractor.
func (d *ReviewDesk) ListPublic(ctx context.Context, contractorID string) ([]models.Review, error) {
	filter := database.Filter{"status": string(models.ReviewApproved)}
	if contractorID != "" {
		filter["contractor_id"] = contractorID
	}
	return d.reviews.List(ctx, filter)
}

// List returns every review matching filter for the admin dashboard.
func (d *ReviewDesk) List(ctx context.Context, filter database.Filter) ([]models.Review, error) {
	return d.reviews.List(ctx, filter)
}
