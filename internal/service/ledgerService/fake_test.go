package ledgerService

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/config"
	"github.com/cashcue/cashcue/data/repository"
	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/cashcue/cashcue/internal/model/priceApiModel"
)

// fakeRepo is an in-memory Repository. Transactions are not isolated; the
// callback just runs against the shared state, which is enough to exercise
// the orchestration logic.
type fakeRepo struct {
	mu           sync.Mutex
	nextID       int64
	brokers      map[int64]model.BrokerAccount
	owners       map[int64]map[int64]bool
	cashAccounts map[int64]*model.CashAccount
	ledger       []model.CashTransaction
	orders       map[int64]model.OrderTransaction
	dividends    map[int64]model.Dividend
	instruments  map[int64]model.Instrument
	prices       []model.InstrumentPrice
	tokens       map[string]dbModel.TokenUser
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		brokers:      make(map[int64]model.BrokerAccount),
		owners:       make(map[int64]map[int64]bool),
		cashAccounts: make(map[int64]*model.CashAccount),
		orders:       make(map[int64]model.OrderTransaction),
		dividends:    make(map[int64]model.Dividend),
		instruments:  make(map[int64]model.Instrument),
		tokens:       make(map[string]dbModel.TokenUser),
	}
}

func (f *fakeRepo) id() int64 {
	f.nextID++
	return f.nextID
}

// WithinTransaction snapshots the state and restores it when the callback
// fails, mimicking a rollback.
func (f *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	snapshot := f.snapshot()
	err := tFunc(ctx)
	if err != nil {
		f.restore(snapshot)
	}
	return err
}

type fakeState struct {
	brokers      map[int64]model.BrokerAccount
	cashAccounts map[int64]*model.CashAccount
	ledger       []model.CashTransaction
	orders       map[int64]model.OrderTransaction
	dividends    map[int64]model.Dividend
	instruments  map[int64]model.Instrument
}

func (f *fakeRepo) snapshot() fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()

	s := fakeState{
		brokers:      make(map[int64]model.BrokerAccount, len(f.brokers)),
		cashAccounts: make(map[int64]*model.CashAccount, len(f.cashAccounts)),
		ledger:       append([]model.CashTransaction(nil), f.ledger...),
		orders:       make(map[int64]model.OrderTransaction, len(f.orders)),
		dividends:    make(map[int64]model.Dividend, len(f.dividends)),
		instruments:  make(map[int64]model.Instrument, len(f.instruments)),
	}
	for k, v := range f.brokers {
		s.brokers[k] = v
	}
	for k, v := range f.cashAccounts {
		account := *v
		s.cashAccounts[k] = &account
	}
	for k, v := range f.orders {
		s.orders[k] = v
	}
	for k, v := range f.dividends {
		s.dividends[k] = v
	}
	for k, v := range f.instruments {
		s.instruments[k] = v
	}
	return s
}

func (f *fakeRepo) restore(s fakeState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.brokers = s.brokers
	f.cashAccounts = s.cashAccounts
	f.ledger = s.ledger
	f.orders = s.orders
	f.dividends = s.dividends
	f.instruments = s.instruments
}

func (f *fakeRepo) InsertBrokerAccount(_ context.Context, broker model.BrokerAccount) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	broker.ID = f.id()
	broker.Status = model.BrokerStatusActive
	f.brokers[broker.ID] = broker
	return broker.ID, nil
}

func (f *fakeRepo) LinkBrokerToUser(_ context.Context, userID, brokerAccountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.owners[userID] == nil {
		f.owners[userID] = make(map[int64]bool)
	}
	f.owners[userID][brokerAccountID] = true
	return nil
}

func (f *fakeRepo) UserOwnsBroker(_ context.Context, userID, brokerAccountID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owners[userID][brokerAccountID], nil
}

func (f *fakeRepo) GetBrokerAccount(_ context.Context, brokerAccountID int64) (model.BrokerAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	broker, ok := f.brokers[brokerAccountID]
	if !ok {
		return model.BrokerAccount{}, repository.ErrNotFound
	}
	return broker, nil
}

func (f *fakeRepo) GetBrokerAccountForUpdate(ctx context.Context, brokerAccountID int64) (model.BrokerAccount, error) {
	return f.GetBrokerAccount(ctx, brokerAccountID)
}

func (f *fakeRepo) GetBrokerAccountsByUser(_ context.Context, userID int64) ([]model.BrokerAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.BrokerAccount, 0)
	for brokerID := range f.owners[userID] {
		res = append(res, f.brokers[brokerID])
	}
	return res, nil
}

func (f *fakeRepo) UpdateBrokerAccount(_ context.Context, broker model.BrokerAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.brokers[broker.ID]
	if !ok {
		return repository.ErrNotFound
	}
	broker.Status = current.Status
	f.brokers[broker.ID] = broker
	return nil
}

func (f *fakeRepo) CloseBrokerAccount(_ context.Context, brokerAccountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	broker := f.brokers[brokerAccountID]
	broker.Status = model.BrokerStatusClosed
	now := time.Now()
	broker.ClosedAt = &now
	f.brokers[brokerAccountID] = broker
	return nil
}

func (f *fakeRepo) DeleteBrokerAccount(_ context.Context, brokerAccountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.brokers, brokerAccountID)
	delete(f.cashAccounts, brokerAccountID)
	return nil
}

func (f *fakeRepo) InsertCashAccount(_ context.Context, brokerAccountID int64, initialBalance decimal.Decimal) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.cashAccounts[brokerAccountID] = &model.CashAccount{
		ID:              id,
		BrokerAccountID: brokerAccountID,
		InitialBalance:  initialBalance,
	}
	return id, nil
}

func (f *fakeRepo) DeleteCashAccounts(_ context.Context, brokerAccountID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cashAccounts, brokerAccountID)
	return nil
}

func (f *fakeRepo) GetCashAccount(_ context.Context, brokerAccountID int64) (model.CashAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.cashAccounts[brokerAccountID]
	if !ok {
		return model.CashAccount{}, repository.ErrNotFound
	}
	return *account, nil
}

func (f *fakeRepo) LockCashAccounts(_ context.Context, _ int64) error { return nil }

func (f *fakeRepo) SumCashAccountBalances(_ context.Context, brokerAccountID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.cashAccounts[brokerAccountID]
	if !ok {
		return decimal.Zero, nil
	}
	return account.CurrentBalance, nil
}

func (f *fakeRepo) InsertCashTransaction(_ context.Context, tr model.CashTransaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr.ID = f.id()
	f.ledger = append(f.ledger, tr)
	return tr.ID, nil
}

func (f *fakeRepo) DeleteCashTransactionsByReference(_ context.Context, referenceID int64, types []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.ledger[:0]
	for _, tr := range f.ledger {
		match := tr.ReferenceID != nil && *tr.ReferenceID == referenceID
		if match {
			typeMatch := false
			for _, t := range types {
				if tr.Type == t {
					typeMatch = true
					break
				}
			}
			match = typeMatch
		}
		if !match {
			kept = append(kept, tr)
		}
	}
	f.ledger = kept
	return nil
}

func (f *fakeRepo) GetLatestCashTransactionByReference(_ context.Context, referenceID int64, trType string) (model.CashTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.ledger) - 1; i >= 0; i-- {
		tr := f.ledger[i]
		if tr.Type == trType && tr.ReferenceID != nil && *tr.ReferenceID == referenceID {
			return tr, nil
		}
	}
	return model.CashTransaction{}, repository.ErrNotFound
}

func (f *fakeRepo) GetCashTransaction(_ context.Context, cashTransactionID int64) (model.CashTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, tr := range f.ledger {
		if tr.ID == cashTransactionID {
			return tr, nil
		}
	}
	return model.CashTransaction{}, repository.ErrNotFound
}

func (f *fakeRepo) DeleteCashTransaction(_ context.Context, cashTransactionID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.ledger[:0]
	for _, tr := range f.ledger {
		if tr.ID != cashTransactionID {
			kept = append(kept, tr)
		}
	}
	f.ledger = kept
	return nil
}

func (f *fakeRepo) SumCashTransactions(_ context.Context, brokerAccountID int64) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	for _, tr := range f.ledger {
		if tr.BrokerAccountID == brokerAccountID {
			total = total.Add(tr.Amount)
		}
	}
	return total, nil
}

func (f *fakeRepo) UpdateCashAccountBalance(_ context.Context, brokerAccountID int64, balance decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.cashAccounts[brokerAccountID]
	if !ok {
		return nil
	}
	account.CurrentBalance = balance
	return nil
}

func (f *fakeRepo) GetCashTransactionsPage(_ context.Context, brokerAccountID int64, limit, offset int) ([]model.CashTransaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.CashTransaction, 0)
	for _, tr := range f.ledger {
		if tr.BrokerAccountID == brokerAccountID {
			all = append(all, tr)
		}
	}
	if offset >= len(all) {
		return nil, false, nil
	}
	end := offset + limit
	hasNext := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], hasNext, nil
}

func (f *fakeRepo) GetCashFlows(_ context.Context, brokerAccountID int64) (decimal.Decimal, decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inflows, outflows := decimal.Zero, decimal.Zero
	for _, tr := range f.ledger {
		if tr.BrokerAccountID != brokerAccountID {
			continue
		}
		if tr.Amount.IsPositive() {
			inflows = inflows.Add(tr.Amount)
		} else {
			outflows = outflows.Add(tr.Amount)
		}
	}
	return inflows, outflows, nil
}

func (f *fakeRepo) ListCashTrackedBrokerIDs(_ context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.cashAccounts))
	for brokerID := range f.cashAccounts {
		ids = append(ids, brokerID)
	}
	return ids, nil
}

func (f *fakeRepo) InsertOrder(_ context.Context, order model.OrderTransaction) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order.ID = f.id()
	order.Status = model.OrderStatusActive
	f.orders[order.ID] = order
	return order.ID, nil
}

func (f *fakeRepo) GetOrder(_ context.Context, orderID int64) (model.OrderTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return model.OrderTransaction{}, repository.ErrNotFound
	}
	return order, nil
}

func (f *fakeRepo) GetOrderForUpdate(ctx context.Context, orderID int64) (model.OrderTransaction, error) {
	return f.GetOrder(ctx, orderID)
}

func (f *fakeRepo) UpdateOrder(_ context.Context, order model.OrderTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.orders[order.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.Quantity = order.Quantity
	current.Price = order.Price
	current.Fees = order.Fees
	current.Settled = order.Settled
	current.Comment = order.Comment
	f.orders[order.ID] = current
	return nil
}

func (f *fakeRepo) CancelOrder(_ context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := f.orders[orderID]
	order.Status = model.OrderStatusCancelled
	now := time.Now()
	order.CancelledAt = &now
	f.orders[orderID] = order
	return nil
}

func (f *fakeRepo) DeleteOrder(_ context.Context, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.orders, orderID)
	return nil
}

func (f *fakeRepo) GetOrdersPage(_ context.Context, brokerAccountID int64, limit, offset int) ([]model.OrderTransaction, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]model.OrderTransaction, 0)
	for _, order := range f.orders {
		if order.BrokerAccountID == brokerAccountID {
			all = append(all, order)
		}
	}
	if offset >= len(all) {
		return nil, false, nil
	}
	end := offset + limit
	hasNext := end < len(all)
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], hasNext, nil
}

func (f *fakeRepo) CountOpenPositions(_ context.Context, brokerAccountID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	net := make(map[int64]decimal.Decimal)
	for _, order := range f.orders {
		if order.BrokerAccountID != brokerAccountID || order.Status != model.OrderStatusActive {
			continue
		}
		qty := order.Quantity
		if order.OrderType == model.OrderTypeSell {
			qty = qty.Neg()
		}
		net[order.InstrumentID] = net[order.InstrumentID].Add(qty)
	}
	count := 0
	for _, qty := range net {
		if !qty.IsZero() {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepo) GetHoldings(_ context.Context, brokerAccountID int64) ([]model.Holding, error) {
	return nil, nil
}

func (f *fakeRepo) InsertDividend(_ context.Context, dividend model.Dividend) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dividend.ID = f.id()
	dividend.Status = model.DividendStatusActive
	f.dividends[dividend.ID] = dividend
	return dividend.ID, nil
}

func (f *fakeRepo) GetDividend(_ context.Context, dividendID int64) (model.Dividend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dividend, ok := f.dividends[dividendID]
	if !ok {
		return model.Dividend{}, repository.ErrNotFound
	}
	return dividend, nil
}

func (f *fakeRepo) GetDividendForUpdate(ctx context.Context, dividendID int64) (model.Dividend, error) {
	return f.GetDividend(ctx, dividendID)
}

func (f *fakeRepo) UpdateDividend(_ context.Context, dividend model.Dividend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.dividends[dividend.ID]
	if !ok {
		return repository.ErrNotFound
	}
	current.PaymentDate = dividend.PaymentDate
	current.Amount = dividend.Amount
	current.GrossAmount = dividend.GrossAmount
	current.TaxesWithheld = dividend.TaxesWithheld
	f.dividends[dividend.ID] = current
	return nil
}

func (f *fakeRepo) CancelDividend(_ context.Context, dividendID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	dividend := f.dividends[dividendID]
	dividend.Status = model.DividendStatusCancelled
	now := time.Now()
	dividend.CancelledAt = &now
	f.dividends[dividendID] = dividend
	return nil
}

func (f *fakeRepo) DeleteDividend(_ context.Context, dividendID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.dividends, dividendID)
	return nil
}

func (f *fakeRepo) GetDividendsPage(_ context.Context, brokerAccountID int64, limit, offset int) ([]model.Dividend, bool, error) {
	return nil, false, nil
}

func (f *fakeRepo) InsertInstrument(_ context.Context, instrument model.Instrument) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.instruments {
		if existing.Symbol == instrument.Symbol {
			return 0, repository.ErrAlreadyExists
		}
	}
	instrument.ID = f.id()
	f.instruments[instrument.ID] = instrument
	return instrument.ID, nil
}

func (f *fakeRepo) GetInstrument(_ context.Context, instrumentID int64) (model.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	instrument, ok := f.instruments[instrumentID]
	if !ok {
		return model.Instrument{}, repository.ErrNotFound
	}
	return instrument, nil
}

func (f *fakeRepo) GetInstrumentBySymbol(_ context.Context, symbol string) (model.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, instrument := range f.instruments {
		if instrument.Symbol == symbol {
			return instrument, nil
		}
	}
	return model.Instrument{}, repository.ErrNotFound
}

func (f *fakeRepo) UpdateInstrument(_ context.Context, instrument model.Instrument) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.instruments[instrument.ID] = instrument
	return nil
}

func (f *fakeRepo) DeleteInstrument(_ context.Context, instrumentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.InstrumentID == instrumentID {
			return repository.ErrReferenced
		}
	}
	for _, dividend := range f.dividends {
		if dividend.InstrumentID == instrumentID {
			return repository.ErrReferenced
		}
	}
	delete(f.instruments, instrumentID)
	return nil
}

func (f *fakeRepo) ListInstruments(_ context.Context) ([]model.Instrument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res := make([]model.Instrument, 0, len(f.instruments))
	for _, instrument := range f.instruments {
		res = append(res, instrument)
	}
	return res, nil
}

func (f *fakeRepo) UpsertInstrumentPrices(_ context.Context, prices []model.InstrumentPrice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices = append(f.prices, prices...)
	return nil
}

func (f *fakeRepo) GetUserByTokenHash(_ context.Context, tokenHash string) (dbModel.TokenUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokenUser, ok := f.tokens[tokenHash]
	if !ok {
		return dbModel.TokenUser{}, repository.ErrNotFound
	}
	return tokenUser, nil
}

func (f *fakeRepo) TouchToken(_ context.Context, _ int64) error { return nil }

type fakeCache struct {
	mu        sync.Mutex
	summaries map[int64]model.CashSummary
	flushes   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{summaries: make(map[int64]model.CashSummary)}
}

func (c *fakeCache) GetCashSummary(_ context.Context, brokerAccountID int64) (model.CashSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	summary, ok := c.summaries[brokerAccountID]
	if !ok {
		return model.CashSummary{}, repository.ErrNotFound
	}
	return summary, nil
}

func (c *fakeCache) SetCashSummary(_ context.Context, summary model.CashSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summaries[summary.BrokerAccountID] = summary
	return nil
}

func (c *fakeCache) FlushCashSummary(_ context.Context, brokerAccountID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.summaries, brokerAccountID)
	c.flushes++
	return nil
}

type fakePriceApi struct {
	prices map[string]priceApiModel.ClosePrice
}

func (p *fakePriceApi) GetClosePrices(_ context.Context, _ []string) (map[string]priceApiModel.ClosePrice, error) {
	return p.prices, nil
}

type fakeReportGenerator struct{}

func (g *fakeReportGenerator) Generate(_ context.Context, _ model.LedgerReport) ([]byte, string, error) {
	return []byte("report"), ".xlsx", nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTP{PageLimit: 10},
		Jobs: config.Jobs{BalanceAuditRepair: true},
	}
}
