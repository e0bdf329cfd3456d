package ledgerService

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/model/dbModel"
	"github.com/cashcue/cashcue/internal/model/priceApiModel"
	"github.com/cashcue/cashcue/internal/service"
	"github.com/cashcue/cashcue/utils"
)

type fixture struct {
	repo    *fakeRepo
	cache   *fakeCache
	srv     *LedgerService
	session model.Session
	broker  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRepo()
	cache := newFakeCache()
	srv := New(testConfig(), repo, cache, &fakePriceApi{}, &fakeReportGenerator{})

	session := model.Session{UserID: 1}

	brokerID, err := srv.CreateBroker(context.Background(), session, model.BrokerAccount{
		Name:           "main",
		Currency:       "EUR",
		HasCashAccount: true,
	}, decimal.Zero)
	require.NoError(t, err)

	repo.instruments[100] = model.Instrument{ID: 100, Symbol: "ABC", Label: "ABC Corp"}

	return &fixture{repo: repo, cache: cache, srv: srv, session: session, broker: brokerID}
}

// admin is the same user elevated to super admin, for hard delete paths.
func (fx *fixture) admin() model.Session {
	return model.Session{UserID: fx.session.UserID, IsSuperAdmin: true}
}

func (fx *fixture) deposit(t *testing.T, amount string) {
	t.Helper()
	_, err := fx.srv.AddCashTransaction(context.Background(), fx.session, model.CashTransaction{
		BrokerAccountID: fx.broker,
		Date:            time.Now(),
		Amount:          d(amount),
		Type:            model.CashTypeDeposit,
	})
	require.NoError(t, err)
}

func (fx *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	account, err := fx.repo.GetCashAccount(context.Background(), fx.broker)
	require.NoError(t, err)
	return account.CurrentBalance
}

func (fx *fixture) ledgerSum(t *testing.T) decimal.Decimal {
	t.Helper()
	total, err := fx.repo.SumCashTransactions(context.Background(), fx.broker)
	require.NoError(t, err)
	return total
}

// requireConsistent checks the stored balance against the ledger sum.
func (fx *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	require.True(t, fx.balance(t).Equal(fx.ledgerSum(t)), "balance %s != ledger sum %s", fx.balance(t), fx.ledgerSum(t))
}

func buyOrder(brokerID int64) model.OrderTransaction {
	return model.OrderTransaction{
		BrokerAccountID: brokerID,
		InstrumentID:    100,
		OrderType:       model.OrderTypeBuy,
		Quantity:        d("10"),
		Price:           d("100"),
		Fees:            d("5"),
		TradeDate:       time.Now(),
	}
}

func TestCreateOrderPostsEffect(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	tr, err := fx.repo.GetLatestCashTransactionByReference(context.Background(), orderID, model.CashTypeBuy)
	require.NoError(t, err)
	assert.True(t, tr.Amount.Equal(d("-1005")))

	assert.True(t, fx.balance(t).Equal(d("995")))
	fx.requireConsistent(t)
}

func TestCreateBuyOrderInsufficientCash(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "100")

	_, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	assert.ErrorIs(t, err, service.ErrInvalidState)

	// the rejected order left nothing behind
	assert.Empty(t, fx.repo.orders)
	assert.True(t, fx.balance(t).Equal(d("100")))
	fx.requireConsistent(t)
}

func TestCreateOrderWithoutCashAccount(t *testing.T) {
	fx := newFixture(t)

	brokerID, err := fx.srv.CreateBroker(context.Background(), fx.session, model.BrokerAccount{
		Name: "no cash", Currency: "EUR",
	}, decimal.Zero)
	require.NoError(t, err)

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(brokerID))
	require.NoError(t, err)

	// the order exists but no ledger row was materialized
	_, err = fx.repo.GetLatestCashTransactionByReference(context.Background(), orderID, model.CashTypeBuy)
	assert.Error(t, err)
}

func TestCancelOrderRestoresBalance(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	err = fx.srv.CancelOrder(context.Background(), fx.session, orderID)
	require.NoError(t, err)

	// original row and reversal row both remain
	assert.Len(t, fx.repo.ledger, 3)
	assert.True(t, fx.balance(t).Equal(d("2000")))
	fx.requireConsistent(t)

	order, err := fx.repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, order.Status)

	// cancelling twice is rejected
	err = fx.srv.CancelOrder(context.Background(), fx.session, orderID)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestSettledFlagMonotonic(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	settled := true
	err = fx.srv.UpdateOrder(context.Background(), fx.session, orderID, model.OrderUpdate{Settled: &settled})
	require.NoError(t, err)

	unsettled := false
	err = fx.srv.UpdateOrder(context.Background(), fx.session, orderID, model.OrderUpdate{Settled: &unsettled})
	assert.ErrorIs(t, err, service.ErrInvalidState)

	order, err := fx.repo.GetOrder(context.Background(), orderID)
	require.NoError(t, err)
	assert.True(t, order.Settled)
}

func TestUpdateOrderFinancialRequiresComment(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	qty := d("5")
	err = fx.srv.UpdateOrder(context.Background(), fx.session, orderID, model.OrderUpdate{Quantity: &qty})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestUpdateOrderFinancialReplacesEffect(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	qty := d("5")
	comment := "broker confirmation showed 5 shares"
	err = fx.srv.UpdateOrder(context.Background(), fx.session, orderID, model.OrderUpdate{Quantity: &qty, Comment: &comment})
	require.NoError(t, err)

	// deposit row plus exactly one corrected BUY row
	assert.Len(t, fx.repo.ledger, 2)

	tr, err := fx.repo.GetLatestCashTransactionByReference(context.Background(), orderID, model.CashTypeBuy)
	require.NoError(t, err)
	assert.True(t, tr.Amount.Equal(d("-505")))

	assert.True(t, fx.balance(t).Equal(d("1495")))
	fx.requireConsistent(t)
}

func TestUpdateOrderCommentOnlyOnCancelled(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	err = fx.srv.CancelOrder(context.Background(), fx.session, orderID)
	require.NoError(t, err)

	// comment edits stay possible after cancellation
	comment := "duplicate entry, cancelled"
	err = fx.srv.UpdateOrder(context.Background(), fx.session, orderID, model.OrderUpdate{Comment: &comment})
	require.NoError(t, err)

	// financial edits do not
	qty := d("5")
	err = fx.srv.UpdateOrder(context.Background(), fx.session, orderID, model.OrderUpdate{Quantity: &qty, Comment: &comment})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestDeleteOrderRemovesLedgerRows(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	err = fx.srv.DeleteOrder(context.Background(), fx.admin(), orderID)
	require.NoError(t, err)

	assert.Len(t, fx.repo.ledger, 1) // only the deposit remains
	assert.True(t, fx.balance(t).Equal(d("2000")))
	fx.requireConsistent(t)
}

func TestHardDeleteRequiresSuperAdmin(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	dividendID, err := fx.srv.CreateDividend(context.Background(), fx.session, model.Dividend{
		BrokerAccountID: fx.broker,
		InstrumentID:    100,
		PaymentDate:     time.Now(),
		Amount:          d("12.5"),
		Currency:        "EUR",
	})
	require.NoError(t, err)

	// the owning user is linked but not a super admin
	err = fx.srv.DeleteOrder(context.Background(), fx.session, orderID)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	err = fx.srv.DeleteDividend(context.Background(), fx.session, dividendID)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	err = fx.srv.DeleteBroker(context.Background(), fx.session, fx.broker)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = fx.repo.GetOrder(context.Background(), orderID)
	assert.NoError(t, err)

	err = fx.srv.DeleteDividend(context.Background(), fx.admin(), dividendID)
	assert.NoError(t, err)
}

func TestDividendLifecycle(t *testing.T) {
	fx := newFixture(t)

	gross := d("50")
	dividendID, err := fx.srv.CreateDividend(context.Background(), fx.session, model.Dividend{
		BrokerAccountID: fx.broker,
		InstrumentID:    100,
		PaymentDate:     time.Now(),
		GrossAmount:     &gross,
		TaxesWithheld:   d("15"),
		Currency:        "EUR",
	})
	require.NoError(t, err)

	assert.True(t, fx.balance(t).Equal(d("35")))
	fx.requireConsistent(t)

	// edit the gross amount, the projected row is replaced
	newGross := d("80")
	err = fx.srv.UpdateDividend(context.Background(), fx.session, dividendID, model.DividendUpdate{GrossAmount: &newGross})
	require.NoError(t, err)

	assert.True(t, fx.balance(t).Equal(d("65")))
	fx.requireConsistent(t)

	// cancellation reverses the latest posted amount, not the original one
	err = fx.srv.CancelDividend(context.Background(), fx.session, dividendID)
	require.NoError(t, err)

	assert.True(t, fx.balance(t).IsZero())
	fx.requireConsistent(t)

	latest, err := fx.repo.GetLatestCashTransactionByReference(context.Background(), dividendID, model.CashTypeDividend)
	require.NoError(t, err)
	assert.True(t, latest.Amount.Equal(d("-65")))
}

func TestUpdateDividendDateOnlyKeepsExplicitAmount(t *testing.T) {
	fx := newFixture(t)

	// recorded with a net amount only, no gross figures
	dividendID, err := fx.srv.CreateDividend(context.Background(), fx.session, model.Dividend{
		BrokerAccountID: fx.broker,
		InstrumentID:    100,
		PaymentDate:     time.Now(),
		Amount:          d("42.7"),
		Currency:        "EUR",
	})
	require.NoError(t, err)

	newDate := time.Now().AddDate(0, 0, 7)
	err = fx.srv.UpdateDividend(context.Background(), fx.session, dividendID, model.DividendUpdate{PaymentDate: &newDate})
	require.NoError(t, err)

	dividend, err := fx.repo.GetDividend(context.Background(), dividendID)
	require.NoError(t, err)
	assert.True(t, dividend.Amount.Equal(d("42.7")))
	assert.True(t, dividend.PaymentDate.Equal(newDate))

	assert.True(t, fx.balance(t).Equal(d("42.7")))
	fx.requireConsistent(t)
}

func TestCreateDividendNeedsAnAmount(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.srv.CreateDividend(context.Background(), fx.session, model.Dividend{
		BrokerAccountID: fx.broker,
		InstrumentID:    100,
		PaymentDate:     time.Now(),
		Currency:        "EUR",
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestZeroAdjustmentRejected(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.srv.AddCashTransaction(context.Background(), fx.session, model.CashTransaction{
		BrokerAccountID: fx.broker,
		Date:            time.Now(),
		Amount:          decimal.Zero,
		Type:            model.CashTypeAdjustment,
	})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestDeleteProjectedCashRowRejected(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	orderID, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	tr, err := fx.repo.GetLatestCashTransactionByReference(context.Background(), orderID, model.CashTypeBuy)
	require.NoError(t, err)

	err = fx.srv.DeleteCashTransaction(context.Background(), fx.session, tr.ID)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestClosedBrokerRejectsMutations(t *testing.T) {
	fx := newFixture(t)

	err := fx.srv.CloseBroker(context.Background(), fx.session, fx.broker)
	require.NoError(t, err)

	_, err = fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = fx.srv.AddCashTransaction(context.Background(), fx.session, model.CashTransaction{
		BrokerAccountID: fx.broker,
		Date:            time.Now(),
		Amount:          d("100"),
		Type:            model.CashTypeDeposit,
	})
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestClosability(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "2000")

	_, err := fx.srv.CreateOrder(context.Background(), fx.session, buyOrder(fx.broker))
	require.NoError(t, err)

	closability, err := fx.srv.CheckClosable(context.Background(), fx.session, fx.broker)
	require.NoError(t, err)
	assert.False(t, closability.Closable)
	assert.Equal(t, 1, closability.OpenPositions)

	// closing while not closable fails with the same reasons
	err = fx.srv.CloseBroker(context.Background(), fx.session, fx.broker)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	// flatten the position and drain the cash
	sell := buyOrder(fx.broker)
	sell.OrderType = model.OrderTypeSell
	sell.Fees = decimal.Zero
	_, err = fx.srv.CreateOrder(context.Background(), fx.session, sell)
	require.NoError(t, err)

	_, err = fx.srv.AddCashTransaction(context.Background(), fx.session, model.CashTransaction{
		BrokerAccountID: fx.broker,
		Date:            time.Now(),
		Amount:          fx.balance(t).Neg(),
		Type:            model.CashTypeWithdrawal,
	})
	require.NoError(t, err)

	closability, err = fx.srv.CheckClosable(context.Background(), fx.session, fx.broker)
	require.NoError(t, err)
	assert.True(t, closability.Closable)

	err = fx.srv.CloseBroker(context.Background(), fx.session, fx.broker)
	require.NoError(t, err)

	broker, err := fx.repo.GetBrokerAccount(context.Background(), fx.broker)
	require.NoError(t, err)
	assert.Equal(t, model.BrokerStatusClosed, broker.Status)
	assert.NotNil(t, broker.ClosedAt)
}

func TestUpdateBrokerCashToggle(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "100")

	// disabling cash tracking with money still on the account is rejected
	broker, err := fx.repo.GetBrokerAccount(context.Background(), fx.broker)
	require.NoError(t, err)
	broker.HasCashAccount = false
	err = fx.srv.UpdateBroker(context.Background(), fx.session, broker)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	_, err = fx.srv.AddCashTransaction(context.Background(), fx.session, model.CashTransaction{
		BrokerAccountID: fx.broker,
		Date:            time.Now(),
		Amount:          d("-100"),
		Type:            model.CashTypeWithdrawal,
	})
	require.NoError(t, err)

	err = fx.srv.UpdateBroker(context.Background(), fx.session, broker)
	require.NoError(t, err)

	_, err = fx.repo.GetCashAccount(context.Background(), fx.broker)
	assert.Error(t, err)

	// re-enabling creates a fresh zero-balance account
	broker.HasCashAccount = true
	err = fx.srv.UpdateBroker(context.Background(), fx.session, broker)
	require.NoError(t, err)

	account, err := fx.repo.GetCashAccount(context.Background(), fx.broker)
	require.NoError(t, err)
	assert.True(t, account.CurrentBalance.IsZero())
}

func TestDeleteBrokerOnlyWhenClosed(t *testing.T) {
	fx := newFixture(t)

	err := fx.srv.DeleteBroker(context.Background(), fx.admin(), fx.broker)
	assert.ErrorIs(t, err, service.ErrInvalidState)

	require.NoError(t, fx.srv.CloseBroker(context.Background(), fx.session, fx.broker))
	require.NoError(t, fx.srv.DeleteBroker(context.Background(), fx.admin(), fx.broker))

	_, err = fx.repo.GetBrokerAccount(context.Background(), fx.broker)
	assert.Error(t, err)
}

func TestAccessDenied(t *testing.T) {
	fx := newFixture(t)
	stranger := model.Session{UserID: 99}

	_, err := fx.srv.CreateOrder(context.Background(), stranger, buyOrder(fx.broker))
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = fx.srv.GetCashSummary(context.Background(), stranger, fx.broker)
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	// super admins bypass ownership
	admin := model.Session{UserID: 99, IsSuperAdmin: true}
	fx.deposit(t, "2000")
	_, err = fx.srv.CreateOrder(context.Background(), admin, buyOrder(fx.broker))
	assert.NoError(t, err)
}

func TestAccessDeniedAuditLog(t *testing.T) {
	fx := newFixture(t)

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := utils.CtxWithRequestInfo(context.Background(), utils.RequestInfo{
		RemoteAddr: "203.0.113.7:51442",
		Method:     "POST",
		URI:        "/api/v1/orders",
	})

	stranger := model.Session{UserID: 99}
	_, err := fx.srv.CreateOrder(ctx, stranger, buyOrder(fx.broker))
	require.ErrorIs(t, err, service.ErrAccessDenied)

	logged := buf.String()
	assert.Contains(t, logged, "access denied to broker account")
	assert.Contains(t, logged, `"userID":99`)
	assert.Contains(t, logged, fmt.Sprintf(`"brokerAccountID":%d`, fx.broker))
	assert.Contains(t, logged, "203.0.113.7:51442")
	assert.Contains(t, logged, `"method":"POST"`)
	assert.Contains(t, logged, `"uri":"/api/v1/orders"`)
}

func TestInstrumentLifecycle(t *testing.T) {
	fx := newFixture(t)

	id, err := fx.srv.CreateInstrument(context.Background(), model.Instrument{Symbol: "XYZ", Label: "XYZ Inc"})
	require.NoError(t, err)

	_, err = fx.srv.CreateInstrument(context.Background(), model.Instrument{Symbol: "XYZ", Label: "duplicate"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = fx.srv.CreateInstrument(context.Background(), model.Instrument{Symbol: "", Label: "no symbol"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	// an instrument referenced by an order cannot be deleted
	fx.deposit(t, "2000")
	order := buyOrder(fx.broker)
	order.InstrumentID = id
	_, err = fx.srv.CreateOrder(context.Background(), fx.session, order)
	require.NoError(t, err)

	err = fx.srv.DeleteInstrument(context.Background(), id)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestAuditBalancesRepairsDrift(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "500")

	// corrupt the stored balance behind the ledger's back
	fx.repo.cashAccounts[fx.broker].CurrentBalance = d("9999")

	err := fx.srv.AuditBalances(context.Background())
	require.NoError(t, err)

	assert.True(t, fx.balance(t).Equal(d("500")))
	fx.requireConsistent(t)
}

func TestAuthenticate(t *testing.T) {
	fx := newFixture(t)

	token := "secret-token"
	hash := sha256.Sum256([]byte(token))
	fx.repo.tokens[hex.EncodeToString(hash[:])] = dbModel.TokenUser{TokenID: 7, UserID: 1}

	session, err := fx.srv.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, int64(1), session.UserID)

	_, err = fx.srv.Authenticate(context.Background(), "wrong-token")
	assert.ErrorIs(t, err, service.ErrAccessDenied)

	_, err = fx.srv.Authenticate(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrAccessDenied)
}

func TestGetCashSummary(t *testing.T) {
	fx := newFixture(t)
	fx.deposit(t, "1000")

	summary, err := fx.srv.GetCashSummary(context.Background(), fx.session, fx.broker)
	require.NoError(t, err)
	assert.True(t, summary.CurrentBalance.Equal(d("1000")))
	assert.True(t, summary.TotalInflows.Equal(d("1000")))
	assert.True(t, summary.TotalOutflows.IsZero())
}

func TestRefreshPrices(t *testing.T) {
	repo := newFakeRepo()
	repo.instruments[100] = model.Instrument{ID: 100, Symbol: "ABC", Label: "ABC Corp"}

	priceApi := &fakePriceApi{prices: map[string]priceApiModel.ClosePrice{
		"ABC": {Symbol: "ABC", PriceDate: time.Now(), Close: d("42.5"), Currency: "EUR"},
	}}

	srv := New(testConfig(), repo, newFakeCache(), priceApi, &fakeReportGenerator{})

	err := srv.RefreshPrices(context.Background())
	require.NoError(t, err)

	require.Len(t, repo.prices, 1)
	assert.Equal(t, int64(100), repo.prices[0].InstrumentID)
	assert.True(t, repo.prices[0].ClosePrice.Equal(d("42.5")))
}
