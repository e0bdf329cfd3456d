package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (ctrl *Controller) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ctrl.Auth)

		r.Route("/brokers", func(r chi.Router) {
			r.Post("/", ctrl.CreateBroker)
			r.Get("/", ctrl.GetBrokers)

			r.Route("/{brokerID}", func(r chi.Router) {
				r.Patch("/", ctrl.UpdateBroker)
				r.Delete("/", ctrl.DeleteBroker)
				r.Get("/closable", ctrl.CheckClosable)
				r.Post("/close", ctrl.CloseBroker)
				r.Get("/summary", ctrl.GetCashSummary)
				r.Get("/transactions", ctrl.GetCashTransactions)
				r.Get("/orders", ctrl.GetOrders)
				r.Get("/dividends", ctrl.GetDividends)
				r.Get("/holdings", ctrl.GetHoldings)
				r.Get("/report", ctrl.GetReport)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ctrl.CreateOrder)
			r.Patch("/{orderID}", ctrl.UpdateOrder)
			r.Post("/{orderID}/cancel", ctrl.CancelOrder)
			r.Delete("/{orderID}", ctrl.DeleteOrder)
		})

		r.Route("/dividends", func(r chi.Router) {
			r.Post("/", ctrl.CreateDividend)
			r.Patch("/{dividendID}", ctrl.UpdateDividend)
			r.Post("/{dividendID}/cancel", ctrl.CancelDividend)
			r.Delete("/{dividendID}", ctrl.DeleteDividend)
		})

		r.Route("/cash-transactions", func(r chi.Router) {
			r.Post("/", ctrl.AddCashTransaction)
			r.Delete("/{cashTransactionID}", ctrl.DeleteCashTransaction)
		})

		r.Route("/instruments", func(r chi.Router) {
			r.Post("/", ctrl.CreateInstrument)
			r.Get("/", ctrl.ListInstruments)
			r.Patch("/{instrumentID}", ctrl.UpdateInstrument)
			r.Delete("/{instrumentID}", ctrl.DeleteInstrument)
		})
	})

	return r
}
