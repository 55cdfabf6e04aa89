package app

import (
	"context"
	"time"

	"buildledger/internal/infrastructure/numerator"
	"buildledger/internal/infrastructure/storage/postgres"
	"buildledger/internal/infrastructure/storage/postgres/document_repo"
	"buildledger/internal/infrastructure/storage/postgres/ledger_repo"
	"buildledger/internal/infrastructure/storage/postgres/register_repo"
)

// PostgresStorage returns storage over txm. Document numbers are taken
// through the same transaction as the document they name.
func PostgresStorage(txm *postgres.TxManager, idempotencyTTL time.Duration) *Storage {
	return &Storage{
		TxManager:     txm,
		Sites:         ledger_repo.NewSiteRepo(txm),
		Company:       ledger_repo.NewCompanyRepo(txm),
		Contractors:   ledger_repo.NewContractorRepo(txm),
		Stock:         register_repo.NewStockRepo(txm),
		Wages:         ledger_repo.NewWageRepo(txm),
		Procurement:   document_repo.NewProcurementRepo(txm),
		Notifications: postgres.NewNotificationRepo(txm),
		Activity:      postgres.NewActivityRepo(txm),
		Idempotency:   postgres.NewIdempotencyStore(txm, idempotencyTTL),
		Numerator: numerator.NewSequences(func(ctx context.Context) numerator.Querier {
			return txm.GetQuerier(ctx)
		}),
	}
}
