// Package httpinterface exposes the daemon operations over a JSON HTTP API:
// the public trade and order endpoints, the JWT protected admin surface and
// the websocket event feed.
package httpinterface

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/escrow-network/escrowd/internal/core/application/dispute"
	"github.com/escrow-network/escrowd/internal/core/application/operator"
	"github.com/escrow-network/escrowd/internal/core/application/order"
	"github.com/escrow-network/escrowd/internal/core/application/trade"
	"github.com/escrow-network/escrowd/internal/interfaces"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 60 * time.Second
	stopTimeout  = 5 * time.Second
)

// ServiceOpts bundles everything the HTTP interface needs to operate.
type ServiceOpts struct {
	Port        int
	AdminSecret string

	TradeSvc    *trade.Service
	DisputeSvc  *dispute.Service
	OrderSvc    *order.Service
	OperatorSvc *operator.Service
	Hub         *EventHub
}

func (o ServiceOpts) validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	if len(o.AdminSecret) <= 0 {
		return fmt.Errorf("missing admin secret")
	}
	if o.TradeSvc == nil {
		return fmt.Errorf("missing trade service")
	}
	if o.DisputeSvc == nil {
		return fmt.Errorf("missing dispute service")
	}
	if o.OrderSvc == nil {
		return fmt.Errorf("missing order service")
	}
	if o.OperatorSvc == nil {
		return fmt.Errorf("missing operator service")
	}
	if o.Hub == nil {
		return fmt.Errorf("missing event hub")
	}
	return nil
}

// Service is the HTTP rendition of the daemon interface.
type Service struct {
	address     string
	adminSecret string
	server      *http.Server
	hub         *EventHub
}

var _ interfaces.Service = (*Service)(nil)

func NewService(opts ServiceOpts) (*Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid http interface options: %w", err)
	}

	s := &Service{
		address:     fmt.Sprintf(":%d", opts.Port),
		adminSecret: opts.AdminSecret,
		hub:         opts.Hub,
	}

	s.server = &http.Server{
		Handler:      s.router(opts),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
	return s, nil
}

func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(listener); err != nil &&
			err != http.ErrServerClosed {
			log.WithError(err).Error("http interface exited with error")
		}
	}()

	log.Infof("http interface listening on %s", s.address)
	return nil
}

func (s *Service) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	//nolint
	s.server.Shutdown(ctx)
	s.hub.Close()
	log.Debug("stopped http interface")
}

func (s *Service) router(opts ServiceOpts) http.Handler {
	tradeHandler := newTradeHandler(opts.TradeSvc, opts.DisputeSvc)
	orderHandler := newOrderHandler(opts.OrderSvc)
	operatorHandler := newOperatorHandler(opts.OperatorSvc, opts.DisputeSvc)

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(requestLogger)

	mux.Route("/v1", func(r chi.Router) {
		r.Get("/events/ws", s.hub.ServeWs)

		r.Group(func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))

			r.Get("/info", operatorHandler.getInfo)
			r.Get("/events/topics", operatorHandler.listEventTopics)

			r.Route("/trades", func(r chi.Router) {
				r.Post("/", tradeHandler.createTrade)
				r.Post("/funded", tradeHandler.createTradeWithFunding)
				r.Get("/", tradeHandler.listTrades)

				r.Route("/{tradeId}", func(r chi.Router) {
					r.Get("/", tradeHandler.getTrade)
					r.Post("/fund", tradeHandler.fundTrade)
					r.Post("/confirm", tradeHandler.confirmTrade)
					r.Post("/cancel", tradeHandler.cancelTrade)
					r.Post("/refund", tradeHandler.claimRefund)
					r.Post("/dispute", tradeHandler.raiseDispute)
					r.Post("/dispute/cancel", tradeHandler.cancelDispute)
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/fill", orderHandler.fillOrder)
				r.Post("/cancel", orderHandler.cancelOrder)
				r.Post("/remaining", orderHandler.remainingQuantity)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.adminAuth)

				r.Put("/fee", operatorHandler.updateFee)
				r.Put("/vault", operatorHandler.updateVault)
				r.Post("/trades/{tradeId}/resolve", operatorHandler.resolveDispute)
				r.Post("/trades/{tradeId}/clear", operatorHandler.clearDispute)
				r.Post("/trades/{tradeId}/withdraw", operatorHandler.withdrawEscrow)

				r.Route("/webhooks", func(r chi.Router) {
					r.Post("/", operatorHandler.addWebhook)
					r.Get("/", operatorHandler.listWebhooks)
					r.Delete("/{webhookId}", operatorHandler.removeWebhook)
				})
			})
		})
	})

	return mux
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debugf(
			"%s %s %d %s", r.Method, r.URL.Path, ww.Status(), time.Since(start),
		)
	})
}
