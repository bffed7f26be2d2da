// Package httpserver manages server creation and api routing.
package httpserver

import (
	"database/sql"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/vaultbank/ledger-engine/internal/accountdelivery"
	"github.com/vaultbank/ledger-engine/internal/accountrepo"
	"github.com/vaultbank/ledger-engine/internal/accountservice"
	"github.com/vaultbank/ledger-engine/internal/entrydelivery"
	"github.com/vaultbank/ledger-engine/internal/entryrepo"
	"github.com/vaultbank/ledger-engine/internal/entryservice"
	"github.com/vaultbank/ledger-engine/internal/goaldelivery"
	"github.com/vaultbank/ledger-engine/internal/goalrepo"
	"github.com/vaultbank/ledger-engine/internal/goalservice"
	"github.com/vaultbank/ledger-engine/internal/limits"
	"github.com/vaultbank/ledger-engine/internal/middleware"
	"github.com/vaultbank/ledger-engine/internal/transferdelivery"
	"github.com/vaultbank/ledger-engine/internal/transferrepo"
	"github.com/vaultbank/ledger-engine/internal/transferservice"
	"github.com/vaultbank/ledger-engine/pkg/configpkg"
)

// Server holds db connection, handlers router and configuration.
type Server struct {
	DB     *sql.DB
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(conn *sql.DB, logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	accountRepo := accountrepo.NewRepoPGS(conn)
	entryRepo := entryrepo.NewRepoPGS(conn)
	goalRepo := goalrepo.NewRepoPGS(conn)
	transferRepo := transferrepo.NewRepoPGS(conn)

	evaluator := limits.New(entryRepo)

	transferService := transferservice.New(transferRepo, accountRepo, entryRepo, evaluator, config.TransferTimeout)
	accountService := accountservice.New(accountRepo, transferRepo)
	entryService := entryservice.New(entryRepo)
	goalService := goalservice.New(goalRepo, transferService)

	accountHandler := accountdelivery.NewHandler(accountService)
	transferHandler := transferdelivery.NewHandler(transferService)
	entryHandler := entrydelivery.NewHandler(entryService)
	goalHandler := goaldelivery.NewHandler(goalService)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := v.RegisterValidation("currency", accountdelivery.ValidCurrency); err != nil {
			return nil, err
		}
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/accounts", accountHandler.Open)
	engine.GET("/accounts", accountHandler.List)
	engine.GET("/accounts/:id", accountHandler.Get)
	engine.GET("/accounts/:id/balance", accountHandler.GetBalance)
	engine.POST("/accounts/:id/close", accountHandler.Close)
	engine.POST("/accounts/:id/deposits", accountHandler.Deposit)
	engine.POST("/accounts/:id/withdrawals", accountHandler.Withdraw)

	engine.POST("/transfers", transferHandler.Create)

	engine.GET("/entries", entryHandler.List)
	engine.GET("/entries/:id", entryHandler.Get)

	engine.POST("/goals", goalHandler.Create)
	engine.GET("/goals", goalHandler.List)
	engine.GET("/goals/:id", goalHandler.Get)
	engine.POST("/goals/:id/contributions", goalHandler.Contribute)
	engine.POST("/goals/:id/cancel", goalHandler.Cancel)

	return &Server{
		DB:     conn,
		Engine: engine,
		Config: config,
	}, nil
}
