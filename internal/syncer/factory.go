package syncer

import (
	"database/sql"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/storage"
	"go.uber.org/zap"
)

type ServiceOptions struct {
	StaleTTL     time.Duration
	PollInterval time.Duration
	Backoff      []time.Duration
	PageSize     int
	Workers      int
	Logger       *zap.Logger
	OnEvent      func(Event)
}

// NewContractsService wires the contract syncer to the cache in db.
func NewContractsService(db *sql.DB, source RecordsSource, opts ServiceOptions) (*Service, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	contractsSyncer := NewContractsSyncer(
		source,
		storage.NewContractsRepo(db),
		storage.NewSyncStateRepo(db),
		opts.PageSize,
		opts.Workers,
		log.Named("contracts"),
	)

	engine, err := New(
		Config{
			StaleTTL:     opts.StaleTTL,
			PollInterval: opts.PollInterval,
			Backoff:      opts.Backoff,
			Logger:       log,
		},
		[]Syncer{contractsSyncer},
		opts.OnEvent,
	)
	if err != nil {
		return nil, err
	}
	return NewService(engine, contractsSyncer), nil
}
