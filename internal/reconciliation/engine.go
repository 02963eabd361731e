package reconciliation

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/bobaapp-backend/internal/domain/catalog"
	"github.com/bobaapp-backend/internal/domain/customer"
	"github.com/bobaapp-backend/internal/domain/order"
	"github.com/bobaapp-backend/internal/domain/settings"
	"github.com/bobaapp-backend/internal/domain/shared"
	"github.com/bobaapp-backend/internal/domain/transaction"
)

// Engine coordinates orders, transactions, and the two external systems.
// It is the only writer of Order.status and Transaction.status.
type Engine struct {
	orders       order.Repository
	transactions transaction.Repository
	sequences    shared.SequenceSource
	catalog      catalog.Repository
	customers    customer.Repository
	settings     settings.Repository
	txRunner     TxRunner
	provider     PaymentProvider
	pos          POSClient
	notifier     Notifier
	locks        *keyedMutex
	logger       *slog.Logger
}

// NewEngine creates the reconciliation engine
func NewEngine(
	logger *slog.Logger,
	orders order.Repository,
	transactions transaction.Repository,
	sequences shared.SequenceSource,
	catalogRepo catalog.Repository,
	customers customer.Repository,
	settingsRepo settings.Repository,
	txRunner TxRunner,
	provider PaymentProvider,
	pos POSClient,
	notifier Notifier,
) *Engine {
	return &Engine{
		orders:       orders,
		transactions: transactions,
		sequences:    sequences,
		catalog:      catalogRepo,
		customers:    customers,
		settings:     settingsRepo,
		txRunner:     txRunner,
		provider:     provider,
		pos:          pos,
		notifier:     notifier,
		locks:        newKeyedMutex(),
		logger:       logger,
	}
}

// keyedMutex serializes status application per transaction id, so a webhook
// and a poll result for the same debit can never interleave. Entries are
// removed once the last holder releases, keeping the map bounded by the
// number of in-flight signals.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*keyedLock)}
}

func (k *keyedMutex) lock(id uuid.UUID) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyedLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) unlock(id uuid.UUID) {
	k.mu.Lock()
	l := k.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}
