package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"omnilead-server/models"
)

// Stores bundles one gateway per record kind.
type Stores struct {
	Services     *Gateway[models.Service, *models.Service]
	Contractors  *Gateway[models.Contractor, *models.Contractor]
	Leads        *Gateway[models.Lead, *models.Lead]
	Reviews      *Gateway[models.Review, *models.Review]
	Messages     *Gateway[models.Message, *models.Message]
	Blocks       *Gateway[models.Block, *models.Block]
	AdminActions *Gateway[models.AdminAction, *models.AdminAction]
	SentMessages *Gateway[models.SentMessage, *models.SentMessage]

	history int
	logger  *zap.Logger

	mu      sync.Mutex
	connect func() (*gorm.DB, error)
}

// OpenStores builds every gateway over the same primary db and data dir.
func OpenStores(db *gorm.DB, dataDir string, history int, logger *zap.Logger) *Stores {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stores{
		Services:     Open[models.Service](db, dataDir, history, logger),
		Contractors:  Open[models.Contractor](db, dataDir, history, logger),
		Leads:        Open[models.Lead](db, dataDir, history, logger),
		Reviews:      Open[models.Review](db, dataDir, history, logger),
		Messages:     Open[models.Message](db, dataDir, history, logger),
		Blocks:       Open[models.Block](db, dataDir, history, logger),
		AdminActions: Open[models.AdminAction](db, dataDir, history, logger),
		SentMessages: Open[models.SentMessage](db, dataDir, history, logger),
		history:      history,
		logger:       logger,
	}
}

// RetryPrimary makes SyncAll try connect before replaying, until a
// connection succeeds. It is for a database that was configured but
// unreachable at startup.
func (s *Stores) RetryPrimary(connect func() (*gorm.DB, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connect = connect
}

// Attach installs db as the primary store of every kind.
func (s *Stores) Attach(db *gorm.DB) {
	s.Services.SetPrimary(NewSQLStore[models.Service](db, s.history))
	s.Contractors.SetPrimary(NewSQLStore[models.Contractor](db, s.history))
	s.Leads.SetPrimary(NewSQLStore[models.Lead](db, s.history))
	s.Reviews.SetPrimary(NewSQLStore[models.Review](db, s.history))
	s.Messages.SetPrimary(NewSQLStore[models.Message](db, s.history))
	s.Blocks.SetPrimary(NewSQLStore[models.Block](db, s.history))
	s.AdminActions.SetPrimary(NewSQLStore[models.AdminAction](db, s.history))
	s.SentMessages.SetPrimary(NewSQLStore[models.SentMessage](db, s.history))
}

// reconnect attaches the primary store when a retry is pending.
func (s *Stores) reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connect == nil {
		return nil
	}
	db, err := s.connect()
	if err != nil {
		return fmt.Errorf("%w: primary store: %v", ErrUnavailable, err)
	}
	if db == nil {
		return nil
	}
	s.Attach(db)
	s.connect = nil
	s.logger.Info("primary store reachable again, attached")
	return nil
}

type syncer interface {
	Sync(ctx context.Context) (int, error)
	Kind() models.Kind
}

// SyncAll replays every kind's fallback file into the primary store. It keeps
// going past a failing kind and returns the joined errors.
func (s *Stores) SyncAll(ctx context.Context) (map[models.Kind]int, error) {
	counts := map[models.Kind]int{}
	if err := s.reconnect(); err != nil {
		return counts, err
	}

	var errs []error
	for _, g := range []syncer{s.Services, s.Contractors, s.Leads, s.Reviews, s.Messages, s.Blocks, s.AdminActions, s.SentMessages} {
		n, err := g.Sync(ctx)
		counts[g.Kind()] = n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return counts, errors.Join(errs...)
}
