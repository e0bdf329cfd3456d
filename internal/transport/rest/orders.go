package rest

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cashcue/cashcue/internal/converter/restConverter"
	"github.com/cashcue/cashcue/internal/model"
)

type createOrderRequest struct {
	BrokerAccountID int64           `json:"broker_account_id"`
	InstrumentID    int64           `json:"instrument_id"`
	OrderType       string          `json:"order_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Fees            decimal.Decimal `json:"fees"`
	TradeDate       string          `json:"trade_date"`
	Settled         bool            `json:"settled"`
	Comment         string          `json:"comment"`
}

func (ctrl *Controller) CreateOrder(w http.ResponseWriter, r *http.Request) {
	req := createOrderRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tradeDate, err := parseDate(req.TradeDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order := model.OrderTransaction{
		BrokerAccountID: req.BrokerAccountID,
		InstrumentID:    req.InstrumentID,
		OrderType:       req.OrderType,
		Quantity:        req.Quantity,
		Price:           req.Price,
		Fees:            req.Fees,
		TradeDate:       tradeDate,
		Settled:         req.Settled,
		Comment:         req.Comment,
	}

	orderID, err := ctrl.ledgerService.CreateOrder(r.Context(), sessionFromCtx(r.Context()), order)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int64{"id": orderID})
}

type updateOrderRequest struct {
	Quantity *decimal.Decimal `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
	Fees     *decimal.Decimal `json:"fees"`
	Settled  *bool            `json:"settled"`
	Comment  *string          `json:"comment"`
}

func (ctrl *Controller) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := updateOrderRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	upd := model.OrderUpdate{
		Quantity: req.Quantity,
		Price:    req.Price,
		Fees:     req.Fees,
		Settled:  req.Settled,
		Comment:  req.Comment,
	}

	if err := ctrl.ledgerService.UpdateOrder(r.Context(), sessionFromCtx(r.Context()), orderID, upd); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.CancelOrder(r.Context(), sessionFromCtx(r.Context()), orderID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := parseID(r, "orderID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.DeleteOrder(r.Context(), sessionFromCtx(r.Context()), orderID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) GetOrders(w http.ResponseWriter, r *http.Request) {
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

	orders, hasNextPage, err := ctrl.ledgerService.GetOrders(r.Context(), sessionFromCtx(r.Context()), brokerID, page)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, pagedResponse{
		Items:       restConverter.ConvertOrders(orders),
		Page:        page,
		HasNextPage: hasNextPage,
	})
}
