package rest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cashcue/cashcue/config"
)

type Server struct {
	httpServer *http.Server
}

func NewServer(cfg *config.Config, ctrl *Controller) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
			Handler:      ctrl.Routes(),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
