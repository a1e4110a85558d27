package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-booking/internal/auth"
	"ms-booking/internal/booking"
	"ms-booking/internal/booking/booking_api"
	bookingdb "ms-booking/internal/booking/db"
	"ms-booking/internal/cache"
	"ms-booking/internal/config"
	"ms-booking/internal/kafka"
	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/notify"
	"ms-booking/internal/scanner"
)

func verifyConnections(ctx context.Context, cfg *config.Config, log *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", "Redis connection successful")

	return bunDB, redisClient
}

// runPeriodicScan drives the overdue sweep on a fixed interval until ctx is
// cancelled. On-demand sweeps go through the HTTP trigger instead.
func runPeriodicScan(ctx context.Context, sc *scanner.Scanner, interval time.Duration, log *logger.Logger) {
	systemActor := models.Identity{UserID: "system", Role: models.RoleSuperAdmin}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			result, err := sc.Run(ctx, time.Now(), systemActor)
			if err != nil {
				log.Error("SCANNER", fmt.Sprintf("Periodic scan failed: %v", err))
				continue
			}
			if result.Count > 0 {
				log.Info("SCANNER", result.Message)
			}
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	_ = godotenv.Load()

	log := logger.NewLogger()
	defer log.Close()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bunDB, redisClient := verifyConnections(ctx, cfg, log)
	defer bunDB.Close()
	defer redisClient.Close()

	if err := bookingdb.Migrate(ctx, bunDB); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}

	if cfg.Kafka.Enabled {
		topics := []string{
			cfg.Kafka.Topics.BookingCreated,
			cfg.Kafka.Topics.BookingCheckedIn,
			cfg.Kafka.Topics.BookingCheckedOut,
			cfg.Kafka.Topics.BookingExtended,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, topics); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Failed to ensure topics exist: %v", err))
		}
	}

	bus := notify.NewBus()
	store := &bookingdb.DB{Bun: bunDB}
	invalidator := cache.NewInvalidator(redisClient, log)
	producer := kafka.NewProducer(cfg.Kafka)
	defer producer.Close()

	bookingService := booking.NewBookingService(store, bus, invalidator, producer, log)
	expiryScanner := scanner.NewScanner(store, bus, log)

	handler := booking_api.NewHandler(bookingService, expiryScanner, log)
	streamHandler := booking_api.NewStreamHandler(bus, log, cfg.Stream.HeartbeatInterval)

	if cfg.Scanner.Enabled {
		go runPeriodicScan(ctx, expiryScanner, cfg.Scanner.Interval, log)
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware())

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", handler.CreateBooking)
			r.Get("/{bookingID}", handler.GetBooking)
			r.Get("/{bookingID}/pass", handler.GetBookingPass)
			r.Post("/{bookingID}/checkin", handler.CheckIn)
			r.Post("/{bookingID}/checkout", handler.CheckOut)
			r.Post("/{bookingID}/extend", handler.ExtendStay)
			r.Post("/{bookingID}/vip", handler.SetVIP)
		})

		r.Post("/scan/expired", handler.RunExpiryScan)
		r.Get("/notifications/stream", streamHandler.HandleNotifications)
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		// No WriteTimeout: it would sever long-lived notification streams.
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("Booking service listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("HTTP error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = server.Shutdown(ctxShutdown)
	log.Info("SERVER", "Booking service shutdown complete")
}
