package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"energyadmin/internal"
	"energyadmin/internal/config"
	"energyadmin/pages"
	"energyadmin/utility"

	"github.com/julienschmidt/httprouter"
)

const (
	wsEndpoint      = "/ws/events"
	shutdownTimeout = 5 * time.Second
)

// Pages are the controllers behind the api, one set per process
type Pages struct {
	Dashboard *pages.Dashboard
	Plans     *pages.Plans
	Billing   *pages.Billing
	Admin     *pages.Admin
}

func (p Pages) setLogger(logger internal.LogHandler) {
	p.Dashboard.SetLogger(logger)
	p.Plans.SetLogger(logger)
	p.Billing.SetLogger(logger)
	p.Admin.SetLogger(logger)
}

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	router     *httprouter.Router
	pages      Pages
	hub        *Hub
	database   internal.Database
	logger     internal.LogHandler
}

func NewServer(conf *config.Config, pages Pages, hub *Hub) *Server {
	server := Server{
		conf:  conf,
		pages: pages,
		hub:   hub,
	}
	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.router = router
	server.httpServer = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &server
}

func (s *Server) SetLogger(logger internal.LogHandler) {
	s.logger = logger
	s.pages.setLogger(logger)
	if s.hub != nil {
		s.hub.SetLogger(logger)
	}
}

// SetDatabase enables the log read-back endpoint
func (s *Server) SetDatabase(database internal.Database) {
	s.database = database
}

// Handler is the router serving the api and the event feed
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET("/api/dashboard", s.handleDashboard)

	router.GET("/api/plans", s.handlePlans)
	router.POST("/api/plans", s.handleCreatePlan)
	router.PUT("/api/plans/:id", s.handleEditPlan)
	router.DELETE("/api/plans/:id", s.handleDeletePlan)
	router.POST("/api/plans/:id/featured", s.handleToggleFeatured)

	router.GET("/api/billing", s.handleBilling)
	router.POST("/api/billing/:id/pay", s.handlePay)
	router.GET("/api/billing/export", s.handleExport)

	router.GET("/api/admin", s.handleAdmin)
	router.POST("/api/admin/users/:id/plan", s.handleAssign)

	router.GET("/api/log", s.handleLog)

	router.GET(wsEndpoint, s.handleWsRequest)
}

func (s *Server) handleWsRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.hub == nil {
		http.NotFound(w, r)
		return
	}
	s.hub.Serve(w, r)
}

// Start serves until ctx is done, then shuts the server down
func (s *Server) Start(ctx context.Context) error {
	if s.conf == nil {
		return utility.Err("configuration not loaded")
	}
	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	s.debug(fmt.Sprintf("starting server on %s", serverAddress))
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	served := make(chan error, 1)
	go func() {
		if s.conf.Listen.TLS {
			s.debug("starting https TLS server")
			s.httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			served <- s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
		} else {
			s.debug("starting http server")
			served <- s.httpServer.Serve(listener)
		}
	}()

	select {
	case err = <-served:
	case <-ctx.Done():
		if s.hub != nil {
			s.hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = s.httpServer.Shutdown(shutdownCtx)
		if serveErr := <-served; err == nil {
			err = serveErr
		}
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) debug(text string) {
	if s.logger != nil {
		s.logger.Debug(text)
	}
}
