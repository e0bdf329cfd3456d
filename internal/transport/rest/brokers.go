package rest

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/internal/converter/restConverter"
	"github.com/cashcue/cashcue/internal/model"
)

type createBrokerRequest struct {
	Name           string          `json:"name"`
	AccountNumber  string          `json:"account_number"`
	AccountType    string          `json:"account_type"`
	Currency       string          `json:"currency"`
	HasCashAccount bool            `json:"has_cash_account"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Comment        string          `json:"comment"`
}

func (ctrl *Controller) CreateBroker(w http.ResponseWriter, r *http.Request) {
	req := createBrokerRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	broker := model.BrokerAccount{
		Name:           req.Name,
		AccountNumber:  req.AccountNumber,
		AccountType:    req.AccountType,
		Currency:       req.Currency,
		HasCashAccount: req.HasCashAccount,
		Comment:        req.Comment,
	}

	brokerID, err := ctrl.ledgerService.CreateBroker(r.Context(), sessionFromCtx(r.Context()), broker, req.InitialBalance)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int64{"id": brokerID})
}

func (ctrl *Controller) GetBrokers(w http.ResponseWriter, r *http.Request) {
	brokers, err := ctrl.ledgerService.GetBrokers(r.Context(), sessionFromCtx(r.Context()))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restConverter.ConvertBrokerAccounts(brokers))
}

type updateBrokerRequest struct {
	Name           string `json:"name"`
	AccountNumber  string `json:"account_number"`
	AccountType    string `json:"account_type"`
	Currency       string `json:"currency"`
	HasCashAccount bool   `json:"has_cash_account"`
	Comment        string `json:"comment"`
}

func (ctrl *Controller) UpdateBroker(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := updateBrokerRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	broker := model.BrokerAccount{
		ID:             brokerID,
		Name:           req.Name,
		AccountNumber:  req.AccountNumber,
		AccountType:    req.AccountType,
		Currency:       req.Currency,
		HasCashAccount: req.HasCashAccount,
		Comment:        req.Comment,
	}

	if err := ctrl.ledgerService.UpdateBroker(r.Context(), sessionFromCtx(r.Context()), broker); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) CheckClosable(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	closability, err := ctrl.ledgerService.CheckClosable(r.Context(), sessionFromCtx(r.Context()), brokerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restConverter.ConvertClosability(closability))
}

func (ctrl *Controller) CloseBroker(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.CloseBroker(r.Context(), sessionFromCtx(r.Context()), brokerID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) DeleteBroker(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.DeleteBroker(r.Context(), sessionFromCtx(r.Context()), brokerID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) GetCashSummary(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := ctrl.ledgerService.GetCashSummary(r.Context(), sessionFromCtx(r.Context()), brokerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restConverter.ConvertCashSummary(summary))
}

func (ctrl *Controller) GetHoldings(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	holdings, err := ctrl.ledgerService.GetHoldings(r.Context(), sessionFromCtx(r.Context()), brokerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restConverter.ConvertHoldings(holdings))
}

func (ctrl *Controller) GetReport(w http.ResponseWriter, r *http.Request) {
	brokerID, err := parseID(r, "brokerID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	fileBytes, fileExtension, err := ctrl.ledgerService.GenerateReport(r.Context(), sessionFromCtx(r.Context()), brokerID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger_report`+fileExtension+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fileBytes)
}
