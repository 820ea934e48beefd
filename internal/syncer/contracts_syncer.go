package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/storage"
	"go.uber.org/zap"
)

const (
	CollectionContracts = storage.CollectionContracts

	defaultContractWorkers  = 4
	defaultContractPageSize = 50
)

// RecordsSource is the remote side of a contract sync.
type RecordsSource interface {
	TotalRecords(ctx context.Context) (int, error)
	PagedRecords(ctx context.Context, limit, offset int) ([]revenue.Contract, error)
}

type ContractsSyncer struct {
	source    RecordsSource
	contracts *storage.ContractsRepo
	syncState *storage.SyncStateRepo
	pageSize  int
	workers   int
	log       *zap.Logger
}

func NewContractsSyncer(
	source RecordsSource,
	contracts *storage.ContractsRepo,
	syncState *storage.SyncStateRepo,
	pageSize int,
	workers int,
	log *zap.Logger,
) *ContractsSyncer {
	if pageSize <= 0 {
		pageSize = defaultContractPageSize
	}
	if workers <= 0 {
		workers = defaultContractWorkers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ContractsSyncer{
		source:    source,
		contracts: contracts,
		syncState: syncState,
		pageSize:  pageSize,
		workers:   workers,
		log:       log,
	}
}

func (s *ContractsSyncer) Collection() string {
	return CollectionContracts
}

func (s *ContractsSyncer) HasCachedData(ctx context.Context) (bool, error) {
	return s.contracts.HasAny(ctx)
}

func (s *ContractsSyncer) LastSuccessAt(ctx context.Context) (time.Time, bool, error) {
	state, ok, err := s.syncState.Get(ctx, s.Collection())
	if err != nil {
		return time.Time{}, false, err
	}
	if !ok || state.LastSuccess == nil {
		return time.Time{}, false, nil
	}
	return state.LastSuccess.UTC(), true, nil
}

// Sync reads the remote count, fetches every page in parallel and replaces
// the cached snapshot.
func (s *ContractsSyncer) Sync(ctx context.Context) error {
	return runSyncAttempt(ctx, s.syncState, s.Collection(), func(runCtx context.Context) (time.Time, error) {
		total, err := s.source.TotalRecords(runCtx)
		if err != nil {
			return time.Time{}, fmt.Errorf("count remote contracts: %w", err)
		}

		offsets := pageOffsets(total, s.pageSize)
		contracts, err := fetchPages(runCtx, offsets, s.workers, func(ctx context.Context, offset int) ([]revenue.Contract, error) {
			page, err := s.source.PagedRecords(ctx, s.pageSize, offset)
			if err != nil {
				return nil, fmt.Errorf("fetch contracts at offset %d: %w", offset, err)
			}
			return page, nil
		})
		if err != nil {
			return time.Time{}, err
		}
		if len(contracts) != total {
			s.log.Warn("remote contract count changed during sync",
				zap.Int("counted", total),
				zap.Int("fetched", len(contracts)),
			)
		}

		fetchedAt := time.Now().UTC()
		if err := s.contracts.ReplaceSnapshot(runCtx, contracts, fetchedAt); err != nil {
			return time.Time{}, err
		}
		s.log.Debug("contracts snapshot replaced", zap.Int("contracts", len(contracts)), zap.Int("pages", len(offsets)))
		return fetchedAt, nil
	})
}
