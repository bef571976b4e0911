package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	httpHandler "github.com/Muchai14/code-collab-hub/internal/handler/http"
	wsHandler "github.com/Muchai14/code-collab-hub/internal/handler/websocket"
	"github.com/Muchai14/code-collab-hub/internal/hub"
	"github.com/Muchai14/code-collab-hub/internal/infra/persistence/gormstore"
	"github.com/Muchai14/code-collab-hub/internal/infra/persistence/memory"
	"github.com/Muchai14/code-collab-hub/internal/infra/persistence/redisstore"
	"github.com/Muchai14/code-collab-hub/internal/infra/setup"
	"github.com/Muchai14/code-collab-hub/internal/middleware"
	"github.com/Muchai14/code-collab-hub/internal/repository"
	"github.com/Muchai14/code-collab-hub/internal/service"
	"github.com/Muchai14/code-collab-hub/internal/tasks"
	"github.com/Muchai14/code-collab-hub/internal/worker"
)

// Store backends selectable via STORE_BACKEND.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMySQL  = "mysql"
)

// Config holds everything read from the environment at startup.
type Config struct {
	ServerPort        string
	LogLevel          string
	AppEnv            string
	CORSAllowedOrigin string

	StoreBackend string
	KeyPrefix    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	RateLimitMax    int
	RateLimitWindow time.Duration

	RoomTTL       time.Duration
	SweepInterval string
}

// LoadConfig reads configuration from a .env file (if present) and the
// environment, applying defaults and validating what it can.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // env vars alone are fine

	cfg := &Config{
		ServerPort:        os.Getenv("SERVER_PORT"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		AppEnv:            os.Getenv("APP_ENV"),
		CORSAllowedOrigin: os.Getenv("CORS_ALLOWED_ORIGIN"),
		StoreBackend:      os.Getenv("STORE_BACKEND"),
		KeyPrefix:         os.Getenv("REDIS_KEY_PREFIX"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		DBUser:            os.Getenv("DB_USER"),
		DBPassword:        os.Getenv("DB_PASSWORD"),
		DBHost:            os.Getenv("DB_HOST"),
		DBPort:            os.Getenv("DB_PORT"),
		DBName:            os.Getenv("DB_NAME"),
		RateLimitMax:      100,
		RateLimitWindow:   time.Second,
		RoomTTL:           24 * time.Hour,
		SweepInterval:     "@every 10m",
	}

	cfg.RedisDB, _ = strconv.Atoi(os.Getenv("REDIS_DB"))

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreMemory
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cch:"
	}
	if ttl := os.Getenv("ROOM_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid ROOM_TTL %q: %w", ttl, err)
		}
		cfg.RoomTTL = d
	}
	if max := os.Getenv("RATE_LIMIT_MAX"); max != "" {
		n, err := strconv.Atoi(max)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_MAX %q", max)
		}
		cfg.RateLimitMax = n
	}
	if window := os.Getenv("RATE_LIMIT_WINDOW"); window != "" {
		d, err := time.ParseDuration(window)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW %q", window)
		}
		cfg.RateLimitWindow = d
	}

	switch cfg.StoreBackend {
	case StoreMemory, StoreRedis, StoreMySQL:
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend == StoreRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("STORE_BACKEND=redis requires REDIS_ADDR")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// App wires the whole server process together.
type App struct {
	Config      *Config
	Log         *logrus.Logger
	DB          *gorm.DB
	RedisClient *redis.Client
	Store       repository.RoomStore
	Hub         *hub.Hub
	HTTPServer  *http.Server

	asynqClient   *asynq.Client
	workerServer  *worker.Server
	scheduler     *asynq.Scheduler
	redisClientOpt asynq.RedisClientOpt
}

// NewApp builds every component from configuration. Nothing ambient: the
// store, hub and clients are constructed once here and passed down.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded")

	app := &App{Config: cfg, Log: log}

	// Redis is required by the redis store, the rate limiter, the relay
	// bridge and the sweeper; all are skipped when it is not configured.
	if cfg.RedisAddr != "" {
		rdb, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		app.RedisClient = rdb
		log.Info("Redis client initialized")
	}

	switch cfg.StoreBackend {
	case StoreMySQL:
		db, err := setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("failed to init database: %w", err)
		}
		app.DB = db
		store := gormstore.NewRoomStore(db)
		if err := store.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		app.Store = store
		log.Info("MySQL room store initialized")
	case StoreRedis:
		app.Store = redisstore.NewRoomStore(app.RedisClient, cfg.KeyPrefix)
		log.Info("Redis room store initialized")
	default:
		app.Store = memory.NewRoomStore()
		log.Info("In-memory room store initialized")
	}

	roomService := service.NewRoomService(app.Store)
	app.Hub = hub.NewHub(roomService, app.RedisClient, cfg.KeyPrefix)
	roomHandler := httpHandler.NewRoomHandler(roomService)
	relayHandler := wsHandler.NewHandler(app.Hub)

	if app.RedisClient != nil {
		app.redisClientOpt = asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		app.asynqClient = asynq.NewClient(app.redisClientOpt)
		app.workerServer = worker.NewServer(app.redisClientOpt, app.Store, log)
		log.Info("Worker server initialized")
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	router.Use(middleware.CORS(cfg.CORSAllowedOrigin))
	if app.RedisClient != nil {
		router.Use(middleware.RateLimit(app.RedisClient, cfg.RateLimitMax, cfg.RateLimitWindow))
	}

	api := router.Group("/api")
	rooms := api.Group("/rooms")
	{
		rooms.POST("", roomHandler.CreateRoom)
		rooms.POST("/:roomId/join", roomHandler.JoinRoom)
		rooms.GET("/:roomId", roomHandler.GetRoom)
		rooms.DELETE("/:roomId/participants/:userId", roomHandler.LeaveRoom)
		rooms.PUT("/:roomId/code", roomHandler.UpdateCode)
		rooms.PUT("/:roomId/language", roomHandler.UpdateLanguage)
	}
	router.GET("/ws", relayHandler.HandleConnection)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	log.Info("Router setup complete")

	app.HTTPServer = &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}
	return app, nil
}

// Start launches the hub, worker, scheduler and HTTP listener.
func (a *App) Start() {
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	if a.workerServer != nil {
		go a.workerServer.Start()
		a.registerPeriodicTasks()
	}

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()
}

func (a *App) registerPeriodicTasks() {
	a.scheduler = asynq.NewScheduler(a.redisClientOpt, &asynq.SchedulerOpts{})

	payload, err := tasks.NewRoomSweepTask(a.Config.RoomTTL)
	if err != nil {
		a.Log.Errorf("Failed to build room sweep payload: %v", err)
		return
	}
	task := asynq.NewTask(tasks.TypeRoomSweep, payload)
	entryID, err := a.scheduler.Register(a.Config.SweepInterval, task, asynq.Queue("low"))
	if err != nil {
		a.Log.Errorf("Could not register room sweep task: %v", err)
	} else {
		a.Log.Infof("Room sweep registered with schedule '%s' (EntryID: %s)", a.Config.SweepInterval, entryID)
	}

	go func() {
		if err := a.scheduler.Run(); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
			a.Log.Errorf("Asynq scheduler failed: %v", err)
		}
	}()
}

// Shutdown stops everything in dependency order.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application")

	if a.Hub != nil {
		a.Hub.StopAllSubscriptions()
	}
	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.workerServer != nil {
		a.workerServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down")
	}

	if a.asynqClient != nil {
		if err := a.asynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing redis connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete")
}

// requestLogger logs one line per HTTP request with latency and status.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}

		entry := log.WithFields(logrus.Fields{
			"status_code": status,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})
		if errMsg := c.Errors.ByType(gin.ErrorTypePrivate).String(); errMsg != "" {
			entry.Error(errMsg)
		} else if status >= 500 {
			entry.Error("Server error")
		} else if status >= 400 {
			entry.Warn("Client error")
		} else {
			entry.Info("Request handled")
		}
	}
}
