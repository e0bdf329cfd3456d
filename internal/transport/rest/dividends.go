package rest

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/internal/converter/restConverter"
	"github.com/cashcue/cashcue/internal/model"
)

type createDividendRequest struct {
	BrokerAccountID int64            `json:"broker_account_id"`
	InstrumentID    int64            `json:"instrument_id"`
	PaymentDate     string           `json:"payment_date"`
	Amount          decimal.Decimal  `json:"amount"`
	GrossAmount     *decimal.Decimal `json:"gross_amount"`
	TaxesWithheld   decimal.Decimal  `json:"taxes_withheld"`
	Currency        string           `json:"currency"`
}

func (ctrl *Controller) CreateDividend(w http.ResponseWriter, r *http.Request) {
	req := createDividendRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	paymentDate, err := parseDate(req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dividend := model.Dividend{
		BrokerAccountID: req.BrokerAccountID,
		InstrumentID:    req.InstrumentID,
		PaymentDate:     paymentDate,
		Amount:          req.Amount,
		GrossAmount:     req.GrossAmount,
		TaxesWithheld:   req.TaxesWithheld,
		Currency:        req.Currency,
	}

	dividendID, err := ctrl.ledgerService.CreateDividend(r.Context(), sessionFromCtx(r.Context()), dividend)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int64{"id": dividendID})
}

type updateDividendRequest struct {
	PaymentDate   *string          `json:"payment_date"`
	Amount        *decimal.Decimal `json:"amount"`
	GrossAmount   *decimal.Decimal `json:"gross_amount"`
	TaxesWithheld *decimal.Decimal `json:"taxes_withheld"`
}

func (ctrl *Controller) UpdateDividend(w http.ResponseWriter, r *http.Request) {
	dividendID, err := parseID(r, "dividendID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := updateDividendRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := model.DividendUpdate{
		Amount:        req.Amount,
		GrossAmount:   req.GrossAmount,
		TaxesWithheld: req.TaxesWithheld,
	}

	if req.PaymentDate != nil {
		var paymentDate time.Time
		paymentDate, err = parseDate(*req.PaymentDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		upd.PaymentDate = &paymentDate
	}

	if err := ctrl.ledgerService.UpdateDividend(r.Context(), sessionFromCtx(r.Context()), dividendID, upd); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) CancelDividend(w http.ResponseWriter, r *http.Request) {
	dividendID, err := parseID(r, "dividendID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.CancelDividend(r.Context(), sessionFromCtx(r.Context()), dividendID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) DeleteDividend(w http.ResponseWriter, r *http.Request) {
	dividendID, err := parseID(r, "dividendID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.DeleteDividend(r.Context(), sessionFromCtx(r.Context()), dividendID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) GetDividends(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := parsePage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dividends, hasNextPage, err := ctrl.ledgerService.GetDividends(r.Context(), sessionFromCtx(r.Context()), brokerID, page)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pagedResponse{
		Items:       restConverter.ConvertDividends(dividends),
		Page:        page,
		HasNextPage: hasNextPage,
	})
}
