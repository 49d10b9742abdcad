package services

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"omnilead-server/database"
	"omnilead-server/models"
)

//go:embed catalog/services.yaml
var catalogYAML []byte

type catalogFile struct {
	Services []models.Service `yaml:"services"`
}

// Catalog serves the read-only service list.
type Catalog struct {
	services database.Repository[models.Service]
	logger   *zap.Logger
}

func NewCatalog(services database.Repository[models.Service], logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{services: services, logger: logger.Named("catalog")}
}

// LoadCatalog parses the embedded catalog. Ids are derived from category and
// name so re-seeding never duplicates an entry.
func LoadCatalog() ([]models.Service, error) {
	var file catalogFile
	if err := yaml.Unmarshal(catalogYAML, &file); err != nil {
		return nil, fmt.Errorf("parse service catalog: %w", err)
	}
	for i := range file.Services {
		s := &file.Services[i]
		s.ID = "svc-" + slug(s.Category) + "-" + slug(s.Name)
	}
	return file.Services, nil
}

// Seed fills an empty catalog and returns how many entries were written.
func (c *Catalog) Seed(ctx context.Context) (int, error) {
	existing, err := c.services.List(ctx, nil)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		c.logger.Info("catalog already seeded", zap.Int("count", len(existing)))
		return 0, nil
	}

	entries, err := LoadCatalog()
	if err != nil {
		return 0, err
	}
	for i := range entries {
		if _, err := c.services.Save(ctx, &entries[i]); err != nil {
			return i, fmt.Errorf("seed %s: %w", entries[i].ID, err)
		}
	}
	c.logger.Info("catalog seeded", zap.Int("count", len(entries)))
	return len(entries), nil
}

// List returns services, optionally for one category (case-insensitive),
// most popular first then by name.
func (c *Catalog) List(ctx context.Context, category string) ([]models.Service, error) {
	all, err := c.services.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]models.Service, 0, len(all))
	for _, s := range all {
		if category == "" || strings.EqualFold(s.Category, strings.TrimSpace(category)) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Popularity != out[j].Popularity {
			return out[i].Popularity > out[j].Popularity
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
