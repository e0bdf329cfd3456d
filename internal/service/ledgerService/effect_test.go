package ledgerService

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cashcue/cashcue/internal/model"
	"github.com/cashcue/cashcue/internal/service"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderEffect(t *testing.T) {
	tests := []struct {
		name      string
		orderType string
		quantity  string
		price     string
		fees      string
		want      string
	}{
		{name: "buy debits gross plus fees", orderType: model.OrderTypeBuy, quantity: "10", price: "100", fees: "5", want: "-1005"},
		{name: "sell credits gross minus fees", orderType: model.OrderTypeSell, quantity: "10", price: "100", fees: "5", want: "995"},
		{name: "buy without fees", orderType: model.OrderTypeBuy, quantity: "3", price: "21.5", fees: "0", want: "-64.5"},
		{name: "fractional quantities", orderType: model.OrderTypeSell, quantity: "0.5", price: "84.2", fees: "1.1", want: "41"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			effect, err := orderEffect(model.OrderTransaction{
				OrderType: tt.orderType,
				Quantity:  d(tt.quantity),
				Price:     d(tt.price),
				Fees:      d(tt.fees),
			})
			require.NoError(t, err)
			assert.True(t, effect.Equal(d(tt.want)), "got %s, want %s", effect, tt.want)
		})
	}
}

func TestOrderEffectUnknownType(t *testing.T) {
	_, err := orderEffect(model.OrderTransaction{OrderType: "TRANSFER", Quantity: d("1"), Price: d("1")})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestOrderReversalNegatesEffect(t *testing.T) {
	order := model.OrderTransaction{
		OrderType: model.OrderTypeBuy,
		Quantity:  d("10"),
		Price:     d("100"),
		Fees:      d("5"),
	}

	effect, err := orderEffect(order)
	require.NoError(t, err)

	reversal, err := orderReversal(order)
	require.NoError(t, err)

	assert.True(t, effect.Add(reversal).IsZero())
	assert.True(t, reversal.Equal(d("1005")))
}

func TestDividendNet(t *testing.T) {
	explicit := d("42.7")

	net, err := dividendNet(&explicit, nil, decimal.Zero)
	require.NoError(t, err)
	assert.True(t, net.Equal(d("42.7")))

	gross := d("50")
	net, err = dividendNet(nil, &gross, d("15"))
	require.NoError(t, err)
	assert.True(t, net.Equal(d("35")))

	// explicit amount wins over gross figures
	net, err = dividendNet(&explicit, &gross, d("15"))
	require.NoError(t, err)
	assert.True(t, net.Equal(d("42.7")))

	_, err = dividendNet(nil, nil, decimal.Zero)
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestValidateOrderFields(t *testing.T) {
	assert.NoError(t, validateOrderFields(d("1"), d("10"), d("0")))
	assert.ErrorIs(t, validateOrderFields(d("0"), d("10"), d("0")), service.ErrInvalidInput)
	assert.ErrorIs(t, validateOrderFields(d("-1"), d("10"), d("0")), service.ErrInvalidInput)
	assert.ErrorIs(t, validateOrderFields(d("1"), d("0"), d("0")), service.ErrInvalidInput)
	assert.ErrorIs(t, validateOrderFields(d("1"), d("10"), d("-0.5")), service.ErrInvalidInput)
}

func TestValidateManualCash(t *testing.T) {
	tests := []struct {
		name    string
		trType  string
		amount  string
		wantErr bool
	}{
		{name: "positive deposit", trType: model.CashTypeDeposit, amount: "100", wantErr: false},
		{name: "negative deposit rejected", trType: model.CashTypeDeposit, amount: "-100", wantErr: true},
		{name: "negative withdrawal", trType: model.CashTypeWithdrawal, amount: "-50", wantErr: false},
		{name: "positive withdrawal rejected", trType: model.CashTypeWithdrawal, amount: "50", wantErr: true},
		{name: "negative fees", trType: model.CashTypeFees, amount: "-2.5", wantErr: false},
		{name: "zero fees rejected", trType: model.CashTypeFees, amount: "0", wantErr: true},
		{name: "positive adjustment", trType: model.CashTypeAdjustment, amount: "0.01", wantErr: false},
		{name: "negative adjustment", trType: model.CashTypeAdjustment, amount: "-0.01", wantErr: false},
		{name: "zero adjustment rejected", trType: model.CashTypeAdjustment, amount: "0", wantErr: true},
		{name: "projection type rejected", trType: model.CashTypeBuy, amount: "10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateManualCash(tt.trType, d(tt.amount))
			if tt.wantErr {
				assert.ErrorIs(t, err, service.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
