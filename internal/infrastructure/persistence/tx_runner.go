package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/zoravo/oms/internal/domain/billing"
)

// GormTxRunner implements billing.TxRunner on a GORM connection. Every
// repository handed to fn shares the one transaction, so an invoice write and
// its payment recompute either both commit or both roll back.
type GormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner creates a new transaction runner
func NewGormTxRunner(db *gorm.DB) *GormTxRunner {
	return &GormTxRunner{db: db}
}

var _ billing.TxRunner = (*GormTxRunner)(nil)

// InTx executes fn inside a single database transaction
func (r *GormTxRunner) InTx(ctx context.Context, fn func(tx billing.TxRepositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTxRepositories{tx: tx})
	})
}

// gormTxRepositories binds the billing repositories to one open transaction
type gormTxRepositories struct {
	tx *gorm.DB
}

var _ billing.TxRepositories = (*gormTxRepositories)(nil)

func (t *gormTxRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(t.tx)
}

func (t *gormTxRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(t.tx)
}

func (t *gormTxRepositories) Sequences() billing.InvoiceSequenceRepository {
	return NewGormInvoiceSequenceRepository(t.tx)
}
