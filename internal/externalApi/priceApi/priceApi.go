package priceApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/config"
	"github.com/cashcue/cashcue/internal/model/priceApiModel"
	"github.com/cashcue/cashcue/utils"
)

type PriceApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *PriceApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.PriceApi.Url)
	return &PriceApi{client: client}
}

type rawQuote struct {
	Symbol   string  `json:"symbol"`
	Date     string  `json:"date"`
	Close    float64 `json:"close"`
	Currency string  `json:"currency"`
}

type rawQuotesResponse struct {
	Quotes []rawQuote `json:"quotes"`
}

// GetClosePrices fetches the latest daily close for each symbol. Symbols the
// provider does not know are simply absent from the result map.
func (a *PriceApi) GetClosePrices(ctx context.Context, symbols []string) (map[string]priceApiModel.ClosePrice, error) {
	rqId := utils.GetRequestIDFromCtx(ctx)
	url := "/v1/quotes/daily.json"
	params := map[string]string{
		"symbols": strings.Join(symbols, ","),
	}

	slog.Debug("start PriceApi.GetClosePrices request", slog.String("rqID", rqId), slog.Int("symbols", len(symbols)))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing PriceApi", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	rawResponse := rawQuotesResponse{}
	err = json.Unmarshal(resp.Body(), &rawResponse)
	if err != nil {
		slog.Error("can't unmarshall response into rawQuotesResponse", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	res, err := a.parseRawQuotes(rawResponse)
	if err != nil {
		slog.Error("can't parse raw quotes", slog.String("err", err.Error()), slog.String("rqID", rqId))
		return nil, err
	}

	slog.Debug("PriceApi.GetClosePrices request complete", slog.String("rqID", rqId))

	return res, nil
}

func (a *PriceApi) parseRawQuotes(rawResponse rawQuotesResponse) (map[string]priceApiModel.ClosePrice, error) {
	res := make(map[string]priceApiModel.ClosePrice, len(rawResponse.Quotes))

	for _, quote := range rawResponse.Quotes {
		if quote.Symbol == "" {
			return nil, fmt.Errorf("quote without symbol: %+v", quote)
		}

		priceDate, err := time.Parse("2006-01-02", quote.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid quote date %q for symbol %s: %w", quote.Date, quote.Symbol, err)
		}

		currency := quote.Currency
		if currency == "" {
			currency = "EUR"
		}

		res[quote.Symbol] = priceApiModel.ClosePrice{
			Symbol:    quote.Symbol,
			PriceDate: priceDate,
			Close:     decimal.NewFromFloat(quote.Close),
			Currency:  currency,
		}
	}

	return res, nil
}
