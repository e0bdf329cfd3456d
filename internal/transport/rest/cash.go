package rest

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/internal/converter/restConverter"
	"github.com/cashcue/cashcue/internal/model"
)

type addCashTransactionRequest struct {
	BrokerAccountID int64           `json:"broker_account_id"`
	Date            string          `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	Comment         string          `json:"comment"`
}

func (ctrl *Controller) AddCashTransaction(w http.ResponseWriter, r *http.Request) {
	req := addCashTransactionRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tr := model.CashTransaction{
		BrokerAccountID: req.BrokerAccountID,
		Date:            date,
		Amount:          req.Amount,
		Type:            req.Type,
		Comment:         req.Comment,
	}

	cashTransactionID, err := ctrl.ledgerService.AddCashTransaction(r.Context(), sessionFromCtx(r.Context()), tr)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int64{"id": cashTransactionID})
}

func (ctrl *Controller) DeleteCashTransaction(w http.ResponseWriter, r *http.Request) {
	cashTransactionID, err := parseID(r, "cashTransactionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.DeleteCashTransaction(r.Context(), sessionFromCtx(r.Context()), cashTransactionID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) GetCashTransactions(w http.ResponseWriter, r *http.Request) {
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

	transactions, hasNextPage, err := ctrl.ledgerService.GetCashTransactions(r.Context(), sessionFromCtx(r.Context()), brokerID, page)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pagedResponse{
		Items:       restConverter.ConvertCashTransactions(transactions),
		Page:        page,
		HasNextPage: hasNextPage,
	})
}
