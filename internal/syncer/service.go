package syncer

import "context"

// Service exposes the engine to the report view.
type Service struct {
	engine   *Engine
	contract *ContractsSyncer
}

func NewService(engine *Engine, contracts *ContractsSyncer) *Service {
	return &Service{engine: engine, contract: contracts}
}

func (s *Service) EnterReportView(ctx context.Context) error {
	return s.engine.EnterView(ctx, CollectionContracts)
}

func (s *Service) LeaveView() {
	s.engine.LeaveView()
}

func (s *Service) RefreshContracts() error {
	return s.engine.ManualRefresh(CollectionContracts)
}

// SyncOnce runs a single contract sync outside the engine loop.
func (s *Service) SyncOnce(ctx context.Context) error {
	return s.contract.Sync(ctx)
}
