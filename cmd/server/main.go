package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/propmarket/backend/docs"
	"github.com/propmarket/backend/internal/config"
	"github.com/propmarket/backend/internal/database"
	mW "github.com/propmarket/backend/internal/middleware"
	"github.com/propmarket/backend/internal/services"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Property Marketplace Backend API
// @version 1.0
// @description API for a property listing marketplace with escrow-style deal finalization
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env
	viper.ReadInConfig()        // read .env file

	// Set environment variable prefix
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	// Initialize Swagger docs
	docs.SwaggerInfo.Title = "Property Marketplace Backend API"
	docs.SwaggerInfo.Description = "API for a property listing marketplace with escrow-style deal finalization"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	// Initialize services
	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	dealConfig := config.LoadDealConfig()

	if err := services.SeedDemoData(db, dealConfig); err != nil {
		log.Fatalf("Failed to seed demo data: %v", err)
	}

	// The ledger service resolves the treasury account at construction, so
	// seeding has to run first on a fresh database.
	ledgerService, err := services.NewLedgerService(db, dealConfig)
	if err != nil {
		log.Fatalf("Failed to initialize ledger service: %v", err)
	}

	authService := services.NewAuthService(db, redisClient)
	dealService := services.NewDealService(db, redisClient, ledgerService, dealConfig)
	propertyService := services.NewPropertyService(db)
	favouriteService := services.NewFavouriteService(db)
	walletService := services.NewWalletService(db)
	adminService := services.NewAdminService(db)
	payoutService := services.NewPayoutService(db, redisClient, dealConfig)
	shareService := services.NewShareService(db, redisClient)

	// Initialize auth middleware with Redis
	mW.InitAuthMiddleware(redisClient)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	// Static file server for property images
	r.Handle("/static/property-images/*", http.StripPrefix("/static/property-images/",
		mW.StaticFileServer("./static/property-images")))

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints (no auth required)
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)
		r.Get("/properties", propertyService.ListProperties)
		r.Get("/properties/{propertyId}", propertyService.GetProperty)
		r.Get("/share/{token}", shareService.ResolveShare)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			// Listings
			r.Post("/properties", propertyService.AddProperty)
			r.Delete("/properties/{propertyId}", propertyService.DeleteProperty)
			r.Post("/properties/{propertyId}/share", shareService.ShareProperty)

			// Deal lifecycle
			r.Post("/deals", dealService.CreateDealRequest)
			r.Post("/deals/{dealId}/accept", dealService.AcceptDealRequest)
			r.Post("/deals/{dealId}/reject", dealService.RejectDealRequest)
			r.Get("/deals/pending", dealService.GetSellerPendingDeals)
			r.Get("/deals/mine", dealService.GetBuyerDeals)
			r.Get("/deals/completed", dealService.GetCompletedDeals)

			// Wallet
			r.Get("/wallet/{accountId}/balance", walletService.GetWalletBalance)
			r.Get("/wallet/{accountId}/transactions", walletService.GetTransactionHistory)

			// Favourites
			r.Post("/favourites/{propertyId}", favouriteService.AddFavourite)
			r.Delete("/favourites/{propertyId}", favouriteService.RemoveFavourite)
			r.Get("/favourites", favouriteService.GetFavourites)

			// Admin
			r.Get("/admin/users", adminService.ListUsers)
			r.Put("/admin/users/{userId}/block", adminService.BlockUser)
			r.Put("/admin/users/{userId}/unblock", adminService.UnblockUser)

			// Payout export
			r.Get("/payouts/{dealId}/pacs008", payoutService.ExportDeal)
			r.Post("/payouts/process", payoutService.ProcessPayouts)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
