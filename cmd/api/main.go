// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/collegecrush/crush-backend/internal/auth"
	"github.com/collegecrush/crush-backend/internal/common/database"
	"github.com/collegecrush/crush-backend/internal/config"
	"github.com/collegecrush/crush-backend/internal/matching"
	"github.com/collegecrush/crush-backend/internal/messaging"
)

var startTime = time.Now()

func main() {
	// Enable detailed logging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting CollegeCrush API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration loaded and valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis
	log.Println("\n📮 Step 4: Connecting to Redis...")
	redisClient, err := database.NewRedisClientFromURL(cfg.RedisURL)
	if err != nil {
		log.Fatal("❌ Failed to connect to Redis:", err)
	}
	defer redisClient.Close()
	log.Println("✅ Connected to Redis successfully")

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations:", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Initialize auth middleware
	log.Println("\n🔐 Step 6: Initializing auth middleware...")
	authMiddleware := auth.NewMiddleware(cfg.JWTSecret)
	log.Println("✅ Auth middleware initialized")

	// 7. Initialize Matching module
	log.Println("\n💘 Step 7: Initializing Matching module...")

	matchingRepo := matching.NewPostgresRepository(db)
	prefsStore := matching.NewRedisPreferenceStore(redisClient)
	signals := matching.NewSignalStore(matching.SignalConfig{
		HistorySize:    cfg.SwipeHistorySize,
		RecentWindow:   cfg.DiversityWindow,
		SimilarUserCap: cfg.SimilarUserCap,
		SharedLikes:    cfg.SharedLikeThreshold,
	})
	engine := matching.NewEngine(signals)

	matchingService := matching.NewService(matchingRepo, prefsStore, engine, signals, matching.ServiceConfig{
		CacheTTL:      cfg.RankCacheTTL,
		CacheMaxSize:  cfg.RankCacheMaxSize,
		MaxCandidates: cfg.MaxCandidatesToRank,
	})
	matchingHandler := matching.NewHandler(matchingService)

	log.Println("✅ Matching module initialized")

	// 8. Initialize Messaging module
	log.Println("\n💬 Step 8: Initializing Messaging module...")

	messageStore := messaging.NewPostgresStore(db)
	messenger := messaging.NewMessenger(messageStore, messaging.MessengerConfig{
		RetryInterval: cfg.RetryInterval,
		MaxRetries:    cfg.MaxRetries,
	})
	messenger.Start()
	log.Println("   ✅ Message retry loop started")

	channelManager := messaging.NewChannelManager(
		messaging.NewWebsocketDialer(cfg.RealtimeURL, nil),
		messaging.ChannelManagerConfig{
			ReconnectDelay:        cfg.ReconnectDelay,
			MaxReconnectAttempts:  cfg.MaxReconnectAttempts,
			ConnectionNoticeEvery: cfg.ConnectionNoticeEvery,
		},
	)

	messagingHandler := messaging.NewHandler(messenger, messageStore)

	// Log delivery events; clients reconcile via the HTTP surface
	go logDeliveryEvents(messenger)

	log.Println("✅ Messaging module initialized")

	// 9. Setup routes
	log.Println("\n🛣️  Step 9: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	matching.RegisterRoutes(router, matchingHandler, authMiddleware)
	log.Println("   ✅ Matching routes registered")

	messaging.RegisterRoutes(router, messagingHandler, authMiddleware)
	log.Println("   ✅ Messaging routes registered")

	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 10. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")

	// Tear down messaging resources
	log.Println("   - Draining message retry queue...")
	messenger.ClearQueue()
	log.Println("   - Closing realtime subscriptions...")
	channelManager.UnsubscribeAll()

	// Graceful server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// logDeliveryEvents drains the messenger event stream
func logDeliveryEvents(messenger *messaging.Messenger) {
	for event := range messenger.Events() {
		switch event.Type {
		case messaging.DeliveryRetrySucceeded:
			log.Printf("📨 Message %s confirmed as %s", event.TempID, event.Message.ID)
		case messaging.DeliveryFailed:
			log.Printf("❌ Message %s failed permanently: %v", event.TempID, event.Err)
		}
	}
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		log.Printf("← %s %s [%d] %v", r.Method, r.RequestURI, wrapped.statusCode, duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id UUID PRIMARY KEY,
			display_name VARCHAR(100) NOT NULL,
			date_of_birth DATE,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			tags TEXT[] DEFAULT '{}',
			college VARCHAR(255),
			course VARCHAR(255),
			gender VARCHAR(20),
			last_seen TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS swipes (
			user_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			target_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			liked BOOLEAN NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, target_id)
		)`,

		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			sender_id UUID NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			text TEXT NOT NULL,
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_profiles_last_seen ON profiles(last_seen DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_swipes_user ON swipes(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at DESC)`,
	}

	for i, migration := range migrations {
		log.Printf("   - Running migration %d/%d...", i+1, len(migrations))
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
