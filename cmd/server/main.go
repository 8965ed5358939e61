// Package main запускает сервер панели потоковых данных.
// Сервис реализует:
// - генерацию потока наблюдений с кольцевым буфером
// - фоновую агрегацию по периодам с отбрасыванием устаревших ответов
// - отрисовку графиков (линия, столбцы, точки, тепловая карта) в PNG
// - HTTP API и WebSocket поток событий
// - зеркалирование буфера в Redis
// - экспорт метрик в Prometheus
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"stream-dashboard/internal/cache"
	"stream-dashboard/internal/dashboard"
	"stream-dashboard/internal/handlers"
	"stream-dashboard/internal/perf"
	"stream-dashboard/internal/stream"
)

// Config содержит конфигурацию сервиса
type Config struct {
	ServerAddr      string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisRetries    int
	WorkerCount     int
	QueueSize       int
	BufferSize      int
	SeedCount       int
	TickInterval    time.Duration
	FrameInterval   time.Duration
	ChartWidth      int
	ChartHeight     int
	PixelRatio      float64
	Offscreen       bool
	FiltersFile     string
	GCPollInterval  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func main() {
	if err := newRootCmd(run).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd создает корневую команду; флаги переопределяют переменные окружения
func newRootCmd(runFn func(Config) error) *cobra.Command {
	cfg := loadConfig()

	cmd := &cobra.Command{
		Use:   "stream-dashboard [flags]",
		Short: "Real-time stream dashboard server",
		Long: `stream-dashboard generates a stream of observations, aggregates it in
background workers and serves rendered charts, summaries and a websocket event feed.

Every flag has an environment variable counterpart (SERVER_ADDR, REDIS_ADDR, ...).
Flags take precedence over the environment.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFn(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.ServerAddr, "addr", cfg.ServerAddr, "HTTP listen address")
	flags.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address")
	flags.StringVar(&cfg.RedisPassword, "redis-password", cfg.RedisPassword, "Redis password")
	flags.IntVar(&cfg.RedisDB, "redis-db", cfg.RedisDB, "Redis database")
	flags.IntVar(&cfg.RedisRetries, "redis-retries", cfg.RedisRetries, "Redis connection attempts (0 = run without cache)")
	flags.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "Aggregation worker count")
	flags.IntVar(&cfg.QueueSize, "queue", cfg.QueueSize, "Aggregation queue size")
	flags.IntVar(&cfg.BufferSize, "buffer", cfg.BufferSize, "Observation buffer capacity")
	flags.IntVar(&cfg.SeedCount, "seed", cfg.SeedCount, "Observations generated at startup")
	flags.DurationVar(&cfg.TickInterval, "tick", cfg.TickInterval, "Interval between generated observations")
	flags.DurationVar(&cfg.FrameInterval, "frame", cfg.FrameInterval, "Chart frame interval")
	flags.IntVar(&cfg.ChartWidth, "chart-width", cfg.ChartWidth, "Chart width in CSS pixels")
	flags.IntVar(&cfg.ChartHeight, "chart-height", cfg.ChartHeight, "Chart height in CSS pixels")
	flags.Float64Var(&cfg.PixelRatio, "pixel-ratio", cfg.PixelRatio, "Device pixel ratio of chart surfaces")
	flags.BoolVar(&cfg.Offscreen, "offscreen", cfg.Offscreen, "Render charts in dedicated workers when supported")
	flags.StringVar(&cfg.FiltersFile, "filters", cfg.FiltersFile, "JSON filter file watched for changes")
	flags.DurationVar(&cfg.GCPollInterval, "gc-poll", cfg.GCPollInterval, "GC pause polling interval")

	return cmd
}

// loadConfig загружает конфигурацию из переменных окружения
func loadConfig() Config {
	return Config{
		ServerAddr:      getEnv("SERVER_ADDR", ":8080"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		RedisRetries:    getEnvInt("REDIS_RETRIES", 5),
		WorkerCount:     getEnvInt("WORKER_COUNT", max(1, runtime.NumCPU()/2)),
		QueueSize:       getEnvInt("QUEUE_SIZE", 16),
		BufferSize:      getEnvInt("BUFFER_SIZE", 10000),
		SeedCount:       getEnvInt("SEED_COUNT", dashboard.DefaultSeedCount),
		TickInterval:    getEnvDuration("TICK_INTERVAL", stream.DefaultTickInterval),
		FrameInterval:   getEnvDuration("FRAME_INTERVAL", dashboard.DefaultFrameInterval),
		ChartWidth:      getEnvInt("CHART_WIDTH", dashboard.DefaultChartWidth),
		ChartHeight:     getEnvInt("CHART_HEIGHT", dashboard.DefaultChartHeight),
		PixelRatio:      getEnvFloat("DEVICE_PIXEL_RATIO", 1),
		Offscreen:       getEnvBool("USE_OFFSCREEN", true),
		FiltersFile:     getEnv("FILTERS_FILE", ""),
		GCPollInterval:  getEnvDuration("GC_POLL_INTERVAL", perf.DefaultGCPollInterval),
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

func run(cfg Config) error {
	log.Println("Starting Stream Dashboard...")
	log.Printf("Go version: %s", runtime.Version())
	log.Printf("NumCPU: %d", runtime.NumCPU())

	redisCache := connectRedis(cfg)
	if redisCache != nil {
		defer redisCache.Close()
	}

	dash, err := dashboard.New(dashboardConfig(cfg, redisCache))
	if err != nil {
		return fmt.Errorf("failed to create dashboard: %w", err)
	}
	defer dash.Close()

	// Создаем обработчики и настраиваем маршруты
	handler := handlers.NewHandler(dash, redisCache)
	router := mux.NewRouter()
	handler.Register(router)

	// Prometheus метрики
	router.Handle("/prometheus", promhttp.Handler())

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(handlers.LoggingMiddleware)
	router.Use(handlers.MetricsMiddleware)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dash.Run(gctx) })
	g.Go(func() error {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		log.Printf("Endpoints:")
		log.Printf("  GET  /api/data                  - Initial dataset")
		log.Printf("  GET  /api/observations          - Latest observations")
		log.Printf("  GET  /api/summary               - Aggregated series")
		log.Printf("  GET  /api/filters, PUT          - Filter configuration")
		log.Printf("  POST /api/stream/toggle, clear  - Stream control")
		log.Printf("  POST /api/charts/{kind}/...     - Pan, zoom and reset")
		log.Printf("  GET  /charts/{kind}.png         - Rendered chart")
		log.Printf("  GET  /ws                        - Event feed")
		log.Printf("  GET  /health, /stats            - Service status")
		log.Printf("  GET  /prometheus                - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Ожидаем сигнал завершения или ошибку соседней горутины
		<-gctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		return nil
	})

	err = g.Wait()
	log.Println("Server stopped")
	return err
}

// connectRedis пробует подключиться к Redis с повторами; nil означает работу без кэша
func connectRedis(cfg Config) *cache.RedisCache {
	var lastErr error
	for i := 0; i < cfg.RedisRetries; i++ {
		redisCache, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.RedisAddr)
			return redisCache
		}
		lastErr = err
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		if i < cfg.RedisRetries-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if lastErr != nil {
		log.Printf("Warning: Failed to connect to Redis, running without cache: %v", lastErr)
	}
	return nil
}

// dashboardConfig собирает конфигурацию панели. Сохраненные в Redis фильтры
// используются, если файл фильтров не задан.
func dashboardConfig(cfg Config, redisCache *cache.RedisCache) dashboard.Config {
	dcfg := dashboard.DefaultConfig()
	dcfg.BufferSize = cfg.BufferSize
	dcfg.SeedCount = cfg.SeedCount
	dcfg.WorkerCount = cfg.WorkerCount
	dcfg.QueueSize = cfg.QueueSize
	dcfg.TickInterval = cfg.TickInterval
	dcfg.FrameInterval = cfg.FrameInterval
	dcfg.ChartWidth = cfg.ChartWidth
	dcfg.ChartHeight = cfg.ChartHeight
	dcfg.DevicePixelRatio = cfg.PixelRatio
	dcfg.UseOffscreen = cfg.Offscreen
	dcfg.FiltersFile = cfg.FiltersFile
	dcfg.GCObserver = perf.NewGCObserver(perf.WithPollInterval(cfg.GCPollInterval))

	// Store задается только при наличии кэша, иначе интерфейс не будет nil
	if redisCache != nil {
		dcfg.Store = redisCache
		if cfg.FiltersFile == "" {
			filters, err := redisCache.LoadFilters()
			switch {
			case err == nil && filters.Validate() == nil:
				log.Printf("Loaded filters from Redis: period %s", filters.Period)
				dcfg.Filters = &filters
			case err != nil && !errors.Is(err, cache.ErrNotFound):
				log.Printf("Failed to load filters from Redis: %v", err)
			}
		}
	}
	return dcfg
}

// getEnv получает переменную окружения с значением по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает целочисленную переменную окружения
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
		log.Printf("Invalid integer %s=%q, using %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvFloat получает вещественную переменную окружения
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseFloat(value, 64); err == nil {
			return result
		}
		log.Printf("Invalid number %s=%q, using %g", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvBool получает логическую переменную окружения
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
		log.Printf("Invalid boolean %s=%q, using %v", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения с длительностью
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
		log.Printf("Invalid duration %s=%q, using %s", key, value, defaultValue)
	}
	return defaultValue
}
