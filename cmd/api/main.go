package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	pgRepo "insightfeed/internal/infra/adapter/persistence/postgres"
	"insightfeed/internal/infra/db"
	"insightfeed/internal/infra/embedding"
	"insightfeed/internal/infra/fetcher"
	"insightfeed/internal/infra/frames"
	"insightfeed/internal/infra/insight"
	"insightfeed/internal/infra/listening"
	"insightfeed/internal/infra/media"
	"insightfeed/internal/infra/objectstore"
	"insightfeed/internal/infra/scraper"
	"insightfeed/internal/infra/transcript"
	"insightfeed/internal/observability/tracing"
	"insightfeed/pkg/config"
	"insightfeed/pkg/ratelimit"
	"insightfeed/pkg/security/csp"

	sourcesUC "insightfeed/internal/usecase/sources"

	hhttp "insightfeed/internal/handler/http"
	hauth "insightfeed/internal/handler/http/auth"
	"insightfeed/internal/handler/http/middleware"
	"insightfeed/internal/handler/http/process"
	"insightfeed/internal/handler/http/queue"
	"insightfeed/internal/handler/http/reprocess"
	"insightfeed/internal/handler/http/requestid"
	hsrc "insightfeed/internal/handler/http/source"
	"insightfeed/internal/handler/http/upload"
	"insightfeed/internal/usecase/discovery"
	"insightfeed/internal/usecase/orchestrator"
	authservice "insightfeed/internal/service/auth"
)

func main() {
	logger := initLogger()
	validateAdminCredentials(logger)
	validateViewerCredentials(logger)
	validateJWTSecret(logger)
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	version := getVersion()
	serverComponents := setupServer(logger, database, version)

	runServer(logger, serverComponents, version)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// validateAdminCredentials validates the admin credentials at startup.
// This prevents the server from starting with empty or weak admin credentials.
func validateAdminCredentials(logger *slog.Logger) {
	if err := hauth.ValidateAdminCredentials(); err != nil {
		logger.Error("admin credentials validation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// validateViewerCredentials validates the viewer credentials at startup.
// Unlike admin validation, this implements graceful degradation:
// if viewer credentials are misconfigured, the viewer role is disabled
// but the application continues to run in admin-only mode.
func validateViewerCredentials(logger *slog.Logger) {
	_ = hauth.ValidateViewerCredentials(logger)
}

// validateJWTSecret validates the JWT_SECRET environment variable for security requirements.
func validateJWTSecret(logger *slog.Logger) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.Error("JWT_SECRET must be set")
		os.Exit(1)
	}
	if len(secret) < 32 {
		logger.Error("JWT_SECRET must be at least 32 characters (256 bits)")
		os.Exit(1)
	}
	weakSecrets := []string{"secret", "password", "test", "admin", "default"}
	for _, weak := range weakSecrets {
		if secret == weak || secret == weak+"123" {
			logger.Error("JWT_SECRET must not be a common weak value", slog.String("weak_value", weak))
			os.Exit(1)
		}
	}
}

// initDatabase opens the database connection and runs migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// ServerComponents holds components needed for server operation and cleanup.
type ServerComponents struct {
	Handler     http.Handler
	IPStore     *ratelimit.InMemoryRateLimitStore
	UserStore   *ratelimit.InMemoryRateLimitStore
	IPWindow    time.Duration
	UserWindow  time.Duration
	AuthLimiter *middleware.RateLimiter
}

// pipelineComponents wires every collaborator the orchestrator
// needs, built from environment configuration like the rate-limit and
// CORS components below.
type pipelineComponents struct {
	orchestrator  *orchestrator.Orchestrator
	longTerm      *objectstore.Store
	permanent     *objectstore.Store
	feedPuller    *discovery.FeedPuller
	historyPuller *discovery.ListeningHistoryPuller
}

func buildPipeline(database *sql.DB, logger *slog.Logger) *pipelineComponents {
	ctx := context.Background()

	contentItems := pgRepo.NewContentItemRepo(database)
	privateContentItems := pgRepo.NewPrivateContentItemRepo(database)
	associations := pgRepo.NewAssociationRepo(database)
	sessions := pgRepo.NewSessionRepo(database)
	queueRepo := pgRepo.NewQueueRepo(database)
	contentSources := pgRepo.NewContentSourceRepo(database)
	knownChannels := pgRepo.NewKnownChannelRepo(database)
	persister := pgRepo.NewPersister(database)

	longTerm, err := objectstore.New(ctx, objectstore.Config{
		Bucket:    config.GetEnvString("MEDIA_BUCKET_EXPIRING", "insightfeed-media"),
		Prefix:    config.GetEnvString("MEDIA_BUCKET_EXPIRING_PREFIX", ""),
		Region:    config.GetEnvString("AWS_REGION", "us-east-1"),
		Endpoint:  config.GetEnvString("S3_ENDPOINT", ""),
		AccessKey: config.GetEnvString("AWS_ACCESS_KEY_ID", ""),
		SecretKey: config.GetEnvString("AWS_SECRET_ACCESS_KEY", ""),
	})
	if err != nil {
		logger.Error("failed to configure expiring media store", slog.Any("error", err))
		os.Exit(1)
	}

	permanent, err := objectstore.New(ctx, objectstore.Config{
		Bucket:    config.GetEnvString("MEDIA_BUCKET_PERMANENT", "insightfeed-media-permanent"),
		Prefix:    config.GetEnvString("MEDIA_BUCKET_PERMANENT_PREFIX", ""),
		Region:    config.GetEnvString("AWS_REGION", "us-east-1"),
		Endpoint:  config.GetEnvString("S3_ENDPOINT", ""),
		AccessKey: config.GetEnvString("AWS_ACCESS_KEY_ID", ""),
		SecretKey: config.GetEnvString("AWS_SECRET_ACCESS_KEY", ""),
	})
	if err != nil {
		logger.Error("failed to configure permanent media store", slog.Any("error", err))
		os.Exit(1)
	}

	httpFetcher := fetcher.NewReadabilityFetcher(fetcher.DefaultConfig())
	browserFetcher := fetcher.NewBrowserFetcher(fetcher.DefaultBrowserConfig(), sessions)
	twoTier := fetcher.NewTwoTierFetcher(httpFetcher, browserFetcher)

	mediaExtractor := media.New(longTerm, permanent)

	anthropicKey := config.GetEnvString("ANTHROPIC_API_KEY", "")
	openaiKey := config.GetEnvString("OPENAI_API_KEY", "")
	var generators []insight.Generator
	if anthropicKey != "" {
		generators = append(generators, insight.NewClaudeGenerator(anthropicKey))
	}
	if openaiKey != "" {
		generators = append(generators, insight.NewOpenAIGenerator(openaiKey))
	}
	insightGenerator := insight.NewFallbackGenerator(generators...)

	embedder := embedding.NewOpenAIEmbedder(openaiKey)

	transcriptAcquirer := transcript.NewAcquirer(
		transcript.NewPlatformNativeStrategy(),
		transcript.NewASRStrategy(openaiKey),
		transcript.NewAlignmentStrategy(openaiKey),
	)

	var frameSampler *frames.Sampler
	if config.GetEnvBool("FRAME_SAMPLING_ENABLED", true) {
		frameSampler = frames.New(frames.DefaultConfig(), longTerm)
	}

	orch := orchestrator.New(orchestrator.Deps{
		Fetcher:             twoTier,
		MediaExtractor:      mediaExtractor,
		TranscriptAcquirer:  transcriptAcquirer,
		FrameSampler:        frameSampler,
		InsightGenerator:    insightGenerator,
		Embedder:            embedder,
		Persister:           persister,
		ContentItems:        contentItems,
		Associations:        associations,
		PrivateContentItems: privateContentItems,
		MediaStore:          longTerm,
	})

	httpClient := &http.Client{Timeout: 20 * time.Second}
	rssFetcher := scraper.NewRSSFetcher(httpClient)
	htmlDiscoverers := []discovery.HTMLDiscoverer{
		scraper.NewWebflowScraper(httpClient),
		scraper.NewNextJSScraper(httpClient),
		scraper.NewRemixScraper(httpClient),
	}
	feedPuller := discovery.NewFeedPuller(contentSources, queueRepo, rssFetcher, htmlDiscoverers, discovery.DefaultFeedPullerConfig(), logger)

	var historyPuller *discovery.ListeningHistoryPuller
	if oracle := buildHistoryOracle(logger); oracle != nil {
		richer := discovery.NewKnownChannelRicherSource(knownChannels)
		historyPuller = discovery.NewListeningHistoryPuller(contentSources, queueRepo, oracle, richer, logger)
	}

	return &pipelineComponents{
		orchestrator:  orch,
		longTerm:      longTerm,
		permanent:     permanent,
		feedPuller:    feedPuller,
		historyPuller: historyPuller,
	}
}

// buildHistoryOracle returns nil when no listening-history backend is
// configured, in which case the podcast-history puller is simply not
// registered; /podcasts/check still exists but has nothing to run
// against until LISTENING_HISTORY_API_URL is set.
func buildHistoryOracle(logger *slog.Logger) discovery.HistoryOracle {
	baseURL := config.GetEnvString("LISTENING_HISTORY_API_URL", "")
	email := config.GetEnvString("LISTENING_HISTORY_EMAIL", "")
	password := config.GetEnvString("LISTENING_HISTORY_PASSWORD", "")
	if baseURL == "" || email == "" || password == "" {
		logger.Warn("no listening-history oracle configured, podcast history discovery disabled")
		return nil
	}
	return listening.NewClient(listening.DefaultConfig(baseURL, email, password))
}

// setupServer configures and returns the HTTP handler with all routes and middleware.
func setupServer(logger *slog.Logger, database *sql.DB, version string) *ServerComponents {
	srcSvc := sourcesUC.Service{Repo: pgRepo.NewContentSourceRepo(database)}
	pipeline := buildPipeline(database, logger)

	rateLimitConfig, err := config.LoadRateLimitConfig()
	if err != nil {
		logger.Error("failed to load rate limit configuration", slog.Any("error", err))
		os.Exit(1)
	}

	proxyConfig, err := middleware.LoadTrustedProxyConfig()
	if err != nil {
		logger.Error("failed to load trusted proxy configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var ipExtractor middleware.IPExtractor
	if proxyConfig.Enabled {
		ipExtractor = middleware.NewTrustedProxyExtractor(*proxyConfig)
		logger.Info("rate limiting: trusted proxy mode enabled",
			slog.Int("trusted_proxies_count", len(proxyConfig.AllowedCIDRs)))
	} else {
		ipExtractor = &middleware.RemoteAddrExtractor{}
		logger.Info("rate limiting: using RemoteAddr (secure mode, proxy headers ignored)")
	}

	var ipRateLimiter *middleware.IPRateLimiter
	var userRateLimiter *middleware.UserRateLimiter
	var ipStore *ratelimit.InMemoryRateLimitStore
	var userStore *ratelimit.InMemoryRateLimitStore

	if rateLimitConfig.Enabled {
		ipStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})
		userStore = ratelimit.NewInMemoryRateLimitStore(ratelimit.InMemoryStoreConfig{
			MaxKeys: rateLimitConfig.MaxActiveKeys,
		})

		algorithm := ratelimit.NewSlidingWindowAlgorithm(&ratelimit.SystemClock{})
		metrics := ratelimit.NewPrometheusMetrics()

		ipCircuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})
		userCircuitBreaker := ratelimit.NewCircuitBreaker(ratelimit.CircuitBreakerConfig{
			FailureThreshold: rateLimitConfig.CircuitBreakerFailureThreshold,
			RecoveryTimeout:  rateLimitConfig.CircuitBreakerResetTimeout,
		})

		ipDegradationMgr := middleware.NewDegradationManager(middleware.DegradationConfig{
			AutoAdjust:        true,
			CooldownPeriod:    1 * time.Minute,
			RelaxedMultiplier: 2,
			MinimalMultiplier: 10,
			Clock:             &ratelimit.SystemClock{},
			Metrics:           metrics,
			LimiterType:       "ip",
		})
		userDegradationMgr := middleware.NewDegradationManager(middleware.DegradationConfig{
			AutoAdjust:        true,
			CooldownPeriod:    1 * time.Minute,
			RelaxedMultiplier: 2,
			MinimalMultiplier: 10,
			Clock:             &ratelimit.SystemClock{},
			Metrics:           metrics,
			LimiterType:       "user",
		})
		_ = ipDegradationMgr
		_ = userDegradationMgr

		ipRateLimiter = middleware.NewIPRateLimiter(
			middleware.IPRateLimiterConfig{
				Limit:   rateLimitConfig.DefaultIPLimit,
				Window:  rateLimitConfig.DefaultIPWindow,
				Enabled: true,
			},
			ipExtractor,
			ipStore,
			algorithm,
			metrics,
			ipCircuitBreaker,
		)

		tierLimits := make(map[ratelimit.UserTier]middleware.TierLimit)
		for _, tierCfg := range rateLimitConfig.TierLimits {
			tierLimits[tierCfg.Tier] = middleware.TierLimit{
				Limit:  tierCfg.Limit,
				Window: tierCfg.Window,
			}
		}

		userExtractor := middleware.NewJWTUserExtractor("user", nil)

		userRateLimiter = middleware.NewUserRateLimiter(middleware.UserRateLimiterConfig{
			Store:               userStore,
			Algorithm:           algorithm,
			Metrics:             metrics,
			CircuitBreaker:      userCircuitBreaker,
			UserExtractor:       userExtractor,
			TierLimits:          tierLimits,
			DefaultLimit:        rateLimitConfig.DefaultUserLimit,
			DefaultWindow:       rateLimitConfig.DefaultUserWindow,
			SkipUnauthenticated: true,
			Clock:               &ratelimit.SystemClock{},
		})

		logger.Info("rate limiting initialized",
			slog.Bool("enabled", true),
			slog.Int("ip_limit", rateLimitConfig.DefaultIPLimit),
			slog.Duration("ip_window", rateLimitConfig.DefaultIPWindow),
			slog.Int("user_limit", rateLimitConfig.DefaultUserLimit),
			slog.Duration("user_window", rateLimitConfig.DefaultUserWindow),
			slog.Int("max_keys", rateLimitConfig.MaxActiveKeys),
		)
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	rootMux, authLimiter := setupRoutes(database, version, srcSvc, pipeline, ipExtractor, ipRateLimiter, userRateLimiter, logger)
	handler := applyMiddleware(logger, rootMux, ipRateLimiter)

	return &ServerComponents{
		Handler:     handler,
		IPStore:     ipStore,
		UserStore:   userStore,
		IPWindow:    rateLimitConfig.DefaultIPWindow,
		UserWindow:  rateLimitConfig.DefaultUserWindow,
		AuthLimiter: authLimiter,
	}
}

// setupRoutes registers all HTTP routes (public and protected).
func setupRoutes(
	database *sql.DB,
	version string,
	srcSvc sourcesUC.Service,
	pipeline *pipelineComponents,
	ipExtractor middleware.IPExtractor,
	ipRateLimiter *middleware.IPRateLimiter,
	userRateLimiter *middleware.UserRateLimiter,
	logger *slog.Logger,
) (*http.ServeMux, *middleware.RateLimiter) {
	authRateLimiter := middleware.NewRateLimiter(5, 1*time.Minute, ipExtractor)
	discoverRateLimiter := middleware.NewRateLimiter(20, 1*time.Minute, ipExtractor)

	weakPasswords := []string{"password", "123456", "admin", "test", "secret"}
	authProvider := hauth.NewMultiUserAuthProvider(12, weakPasswords)
	publicEndpoints := []string{"/auth/token", "/health", "/ready", "/live", "/metrics"}
	authService := authservice.NewAuthService(authProvider, publicEndpoints)

	publicMux := http.NewServeMux()
	publicMux.Handle("/auth/token", authRateLimiter.Middleware(hauth.TokenHandler(authService)))
	publicMux.Handle("/health", &hhttp.HealthHandler{DB: database, Version: version, Sessions: pgRepo.NewSessionRepo(database)})
	publicMux.Handle("/ready", &hhttp.ReadyHandler{DB: database})
	publicMux.Handle("/live", &hhttp.LiveHandler{})
	publicMux.Handle("/metrics", hhttp.MetricsHandler())

	discoverer := discovery.NewAutoDiscoverer(&http.Client{Timeout: 15 * time.Second}, scraper.NewRSSFetcher(&http.Client{Timeout: 15 * time.Second}), logger)

	contentItems := pgRepo.NewContentItemRepo(database)
	privateContentItems := pgRepo.NewPrivateContentItemRepo(database)
	queueRepo := pgRepo.NewQueueRepo(database)

	busCapacity := config.GetEnvInt("PROGRESS_BUS_CAPACITY", 64)

	privateMux := http.NewServeMux()
	hsrc.Register(privateMux, srcSvc, discoverer, discoverRateLimiter)

	privateMux.Handle("/process", process.Handler{Orchestrator: pipeline.orchestrator, BusCapacity: busCapacity})
	privateMux.Handle("/reprocess", reprocess.Handler{Orchestrator: pipeline.orchestrator, BusCapacity: busCapacity})
	privateMux.Handle("/reprocess/info", reprocess.InfoHandler{ContentItems: contentItems, PrivateContentItems: privateContentItems})
	privateMux.Handle("/reprocess/list", reprocess.ListHandler{
		ContentItems:        contentItems,
		PrivateContentItems: privateContentItems,
		UserOrOrg: func(r *http.Request, _ bool) string {
			return hauth.UserFromContext(r.Context())
		},
		DefaultLimit: 20,
		MaxLimit:     100,
	})
	privateMux.Handle("/upload-media", upload.Handler{Permanent: pipeline.permanent})

	privateMux.Handle("/podcasts/discovered", queue.DiscoveredHandler{Queue: queueRepo, ContentType: "podcast_episode"})
	privateMux.Handle("/posts/discovered", queue.DiscoveredHandler{Queue: queueRepo, ContentType: "article"})
	if pipeline.feedPuller != nil {
		privateMux.Handle("/posts/check", queue.CheckHandler{Puller: pipeline.feedPuller})
	}
	if pipeline.historyPuller != nil {
		privateMux.Handle("/podcasts/check", queue.CheckHandler{Puller: pipeline.historyPuller})
	}

	protected := hauth.Authz(privateMux)

	if userRateLimiter != nil {
		protected = userRateLimiter.Middleware()(protected)
	}

	rootMux := http.NewServeMux()
	rootMux.Handle("/auth/token", publicMux)
	rootMux.Handle("/health", publicMux)
	rootMux.Handle("/ready", publicMux)
	rootMux.Handle("/live", publicMux)
	rootMux.Handle("/metrics", publicMux)
	rootMux.Handle("/", protected)

	return rootMux, authRateLimiter
}

// applyMiddleware wraps the handler with middleware chain.
// Middleware order: CORS → Request ID → IP Rate Limit → Recovery → Logging → Body Limit → CSP → Metrics
func applyMiddleware(logger *slog.Logger, handler http.Handler, ipRateLimiter *middleware.IPRateLimiter) http.Handler {
	corsConfig, err := middleware.LoadCORSConfig()
	if err != nil {
		logger.Error("failed to load CORS configuration", slog.Any("error", err))
		os.Exit(1)
	}
	corsConfig.Logger = &middleware.SlogAdapter{Logger: logger}

	logger.Info("CORS enabled",
		slog.Int("allowed_origins_count", len(corsConfig.Validator.GetAllowedOrigins())),
		slog.Any("allowed_origins", corsConfig.Validator.GetAllowedOrigins()),
		slog.Any("allowed_methods", corsConfig.AllowedMethods),
		slog.Any("allowed_headers", corsConfig.AllowedHeaders),
		slog.Int("max_age", corsConfig.MaxAge))

	cspConfig, err := config.LoadCSPConfig()
	if err != nil {
		logger.Error("failed to load CSP configuration", slog.Any("error", err))
		os.Exit(1)
	}

	var cspMiddleware func(http.Handler) http.Handler
	if cspConfig.Enabled {
		cspMW := middleware.NewCSPMiddleware(middleware.CSPMiddlewareConfig{
			Enabled:       true,
			DefaultPolicy: csp.StrictPolicy(),
			ReportOnly:    cspConfig.ReportOnly,
		})
		cspMiddleware = cspMW.Middleware()
		logger.Info("CSP enabled", slog.Bool("report_only", cspConfig.ReportOnly))
	} else {
		cspMiddleware = func(next http.Handler) http.Handler { return next }
		logger.Warn("CSP is disabled")
	}

	middlewareChain := handler
	middlewareChain = hhttp.MetricsMiddleware(middlewareChain)
	middlewareChain = cspMiddleware(middlewareChain)
	middlewareChain = hhttp.LimitRequestBody(500 << 20)(middlewareChain) // raised for /upload-media
	middlewareChain = hhttp.Logging(logger)(middlewareChain)
	middlewareChain = hhttp.Recover(logger)(middlewareChain)

	if ipRateLimiter != nil {
		middlewareChain = ipRateLimiter.Middleware()(middlewareChain)
	}

	middlewareChain = tracing.Middleware(middlewareChain)
	middlewareChain = requestid.Middleware(middlewareChain)
	middlewareChain = middleware.CORS(*corsConfig)(middlewareChain)

	return middlewareChain
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, components *ServerComponents, version string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cleanupCfg := hhttp.LoadCleanupConfigFromEnv()

	if components.IPStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.IPStore, cleanupCfg.Interval, components.IPWindow, "ip")
		logger.Info("IP rate limit cleanup started",
			slog.Duration("interval", cleanupCfg.Interval),
			slog.Duration("window", components.IPWindow))
	}

	if components.UserStore != nil {
		go hhttp.StartRateLimitCleanup(ctx, components.UserStore, cleanupCfg.Interval, components.UserWindow, "user")
		logger.Info("user rate limit cleanup started",
			slog.Duration("interval", cleanupCfg.Interval),
			slog.Duration("window", components.UserWindow))
	}

	if components.AuthLimiter != nil {
		go hhttp.StartRateLimitCleanupLegacy(ctx, components.AuthLimiter, cleanupCfg.Interval, "auth")
		logger.Info("auth rate limit cleanup started (legacy)",
			slog.Duration("interval", cleanupCfg.Interval))
	}

	go hhttp.StartSLOUpdater(ctx, 1*time.Minute)
	logger.Info("SLO updater started", slog.Duration("interval", 1*time.Minute))

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", ":8080"),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()
	logger.Debug("background cleanup goroutines cancelled")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
