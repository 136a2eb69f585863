package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/akovalyov/currex/internal/auth"
	"github.com/akovalyov/currex/internal/handlers"
	"github.com/akovalyov/currex/internal/middleware"
	"github.com/akovalyov/currex/internal/services"
)

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, accounts *services.AccountService, currency *services.CurrencyService) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if accounts == nil {
		return nil, fmt.Errorf("account service must be provided")
	}
	if currency == nil {
		return nil, fmt.Errorf("currency service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	// Public endpoints
	r.GET("/health", handlers.Health(db))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authHandler := handlers.NewAuthHandler(accounts)

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.GET("/register-confirm", authHandler.RegisterConfirm)
		auth.POST("/login", authHandler.Login)
	}

	// Protected routes
	api := r.Group("/api")
	api.Use(middleware.Auth(jwt))

	currencyHandler := handlers.NewCurrencyHandler(currency)
	cur := api.Group("/currency")
	{
		cur.GET("/list", currencyHandler.List)
		cur.POST("/exchange", currencyHandler.Exchange)
	}

	return r, nil
}
