package rest

import (
	"net/http"

	"github.com/cashcue/cashcue/internal/converter/restConverter"
	"github.com/cashcue/cashcue/internal/model"
)

type instrumentRequest struct {
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
	ISIN   string `json:"isin"`
}

func (ctrl *Controller) CreateInstrument(w http.ResponseWriter, r *http.Request) {
	req := instrumentRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	instrumentID, err := ctrl.ledgerService.CreateInstrument(r.Context(), model.Instrument{
		Symbol: req.Symbol,
		Label:  req.Label,
		ISIN:   req.ISIN,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]int64{"id": instrumentID})
}

func (ctrl *Controller) UpdateInstrument(w http.ResponseWriter, r *http.Request) {
	instrumentID, err := parseID(r, "instrumentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := instrumentRequest{}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	err = ctrl.ledgerService.UpdateInstrument(r.Context(), model.Instrument{
		ID:     instrumentID,
		Symbol: req.Symbol,
		Label:  req.Label,
		ISIN:   req.ISIN,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) DeleteInstrument(w http.ResponseWriter, r *http.Request) {
	instrumentID, err := parseID(r, "instrumentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := ctrl.ledgerService.DeleteInstrument(r.Context(), instrumentID); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, nil)
}

func (ctrl *Controller) ListInstruments(w http.ResponseWriter, r *http.Request) {
	instruments, err := ctrl.ledgerService.ListInstruments(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}

	writeSuccess(w, http.StatusOK, restConverter.ConvertInstruments(instruments))
}
