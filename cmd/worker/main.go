package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	pgRepo "insightfeed/internal/infra/adapter/persistence/postgres"
	"insightfeed/internal/infra/db"
	"insightfeed/internal/infra/listening"
	"insightfeed/internal/infra/objectstore"
	"insightfeed/internal/infra/scraper"
	workerPkg "insightfeed/internal/infra/worker"
	"insightfeed/internal/usecase/cleanup"
	"insightfeed/internal/usecase/discovery"
	"insightfeed/pkg/config"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM content_items LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("job_timeout", workerConfig.CrawlTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	startMetricsServer(ctx, logger)

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	jobs := buildJobs(database, logger)
	startCronWorker(logger, jobs, workerConfig, workerMetrics, healthServer)
}

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

func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// cronJob is one named, independently failure-isolated unit the
// scheduler runs on every tick; a failing job never stops the others.
type cronJob struct {
	name string
	run  func(ctx context.Context) error
}

// buildJobs wires the discovery pullers and the cleanup sweep against
// the same repositories and object store the API process uses, but
// without any of the ingestion pipeline's fetch/LLM/transcript
// collaborators: this process only discovers and expires, it never
// runs the orchestrator.
func buildJobs(database *sql.DB, logger *slog.Logger) []cronJob {
	contentItems := pgRepo.NewContentItemRepo(database)
	privateContentItems := pgRepo.NewPrivateContentItemRepo(database)
	queueRepo := pgRepo.NewQueueRepo(database)
	contentSources := pgRepo.NewContentSourceRepo(database)
	knownChannels := pgRepo.NewKnownChannelRepo(database)

	ctx := context.Background()
	expiringStore, err := objectstore.New(ctx, objectstore.Config{
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

	httpClient := createHTTPClient()
	rssFetcher := scraper.NewRSSFetcher(httpClient)
	htmlDiscoverers := []discovery.HTMLDiscoverer{
		scraper.NewWebflowScraper(httpClient),
		scraper.NewNextJSScraper(httpClient),
		scraper.NewRemixScraper(httpClient),
	}
	feedPuller := discovery.NewFeedPuller(contentSources, queueRepo, rssFetcher, htmlDiscoverers, discovery.DefaultFeedPullerConfig(), logger)

	jobs := []cronJob{
		{name: "feed_pull", run: feedPuller.Run},
	}

	if oracle := buildHistoryOracle(logger); oracle != nil {
		richer := discovery.NewKnownChannelRicherSource(knownChannels)
		historyPuller := discovery.NewListeningHistoryPuller(contentSources, queueRepo, oracle, richer, logger)
		jobs = append(jobs, cronJob{name: "listening_history_pull", run: historyPuller.Run})
	}

	retentionDays := config.GetEnvInt("MEDIA_RETENTION_DAYS", 30)
	cleanupCfg := cleanup.DefaultConfig(expiringStore.Bucket())
	cleanupCfg.Retention = time.Duration(retentionDays) * 24 * time.Hour
	cleanupWorker := cleanup.New(contentItems, privateContentItems, expiringStore, cleanupCfg, logger)
	jobs = append(jobs, cronJob{name: "media_cleanup", run: cleanupWorker.Run})

	return jobs
}

// buildHistoryOracle returns nil when no listening-history backend is
// configured, in which case the podcast-history puller is simply not
// scheduled.
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

func createHTTPClient() *http.Client {
	return &http.Client{Timeout: 20 * time.Second}
}

// startCronWorker schedules every job on the worker's single cron
// expression, running several independent sweeps per tick.
func startCronWorker(logger *slog.Logger, jobs []cronJob, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runJobs(logger, jobs, cfg, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	healthServer.SetReady(true)
	logger.Info("worker marked as ready")
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone), slog.Int("jobs", len(jobs)))
	select {}
}

// runJobs runs every registered job in sequence, isolating failures
// so that one source of trouble (an unreachable feed, a stalled
// delete) never blocks the others on the same tick.
func runJobs(logger *slog.Logger, jobs []cronJob, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) {
	for _, job := range jobs {
		startTime := time.Now()
		metrics.RecordJobRun("started")
		logger.Info("job started", slog.String("job", job.name))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.CrawlTimeout)
		err := job.run(ctx)
		cancel()

		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		if err != nil {
			logger.Error("job failed", slog.String("job", job.name), slog.Any("error", err))
			metrics.RecordJobRun("failure")
			continue
		}

		metrics.RecordJobRun("success")
		metrics.RecordLastSuccess()
		logger.Info("job completed", slog.String("job", job.name), slog.Duration("duration", time.Since(startTime)))
	}
}
