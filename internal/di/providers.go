package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"Momentum/internal/broadcast"
	"Momentum/internal/detector"
	drepo "Momentum/internal/domain/repository"
	"Momentum/internal/handler/api"
	internalrepo "Momentum/internal/repository"
	"Momentum/internal/service/binance"
	"Momentum/internal/service/marketdata"
	"Momentum/internal/usecase"
	pkgcache "Momentum/pkg/cache"
	pkgch "Momentum/pkg/clickhouse"
	"Momentum/pkg/config"
	pkgkafka "Momentum/pkg/kafka"
	applogger "Momentum/pkg/logger"
	"Momentum/pkg/metrics"
	pkgpg "Momentum/pkg/postgres"
	pkgqueue "Momentum/pkg/queue"
	"Momentum/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	lc := &applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if lc.Level == "" {
		lc.Level = "info"
	}
	if lc.Output == "" {
		lc.Output = "stdout"
	}
	return applogger.New(lc)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvidePostgresClient creates the PostgreSQL client and applies the schema.
func ProvidePostgresClient(cfg *config.Config) (*pkgpg.Client, error) {
	client, err := pkgpg.NewClient(
		pkgpg.WithHost(cfg.Postgres.Host),
		pkgpg.WithPort(cfg.Postgres.Port),
		pkgpg.WithDatabase(cfg.Postgres.Database),
		pkgpg.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		pkgpg.WithSSLMode(cfg.Postgres.SSLMode),
		pkgpg.WithMaxConns(cfg.Postgres.MaxConns),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.PostgresSchema); err != nil {
		client.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return client, nil
}

// ProvideCache creates the read cache. With Redis configured the cache is
// layered (in-process L1 over Redis L2), otherwise in-process only.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}
	redisCache, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("momentum"),
	)
	if err != nil {
		return nil, err
	}
	return pkgcache.NewLayeredCache(redisCache), nil
}

// ProvideLogAggregator attaches the aggregated log collector when Redis is
// available. Repeated warn/error lines are deduplicated and shipped to a
// Redis queue in batches instead of flooding the console.
func ProvideLogAggregator(cfg *config.Config, log *applogger.Logger, cache pkgcache.Service) *pkgqueue.RedisQueue {
	var rc *pkgcache.RedisCache
	switch c := cache.(type) {
	case *pkgcache.RedisCache:
		rc = c
	case *pkgcache.LayeredCache:
		rc = c.Redis()
	default:
		return nil
	}
	q := pkgqueue.NewRedisPublisher(log, rc.Client(), pkgqueue.WithKeyPrefix("momentum:queue"))
	log.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "logs",
		Publisher:      q,
	})
	return q
}

// ProvideClickHouseClient creates the candle archive client, or nil when the
// archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.CandleSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCandleArchive creates the ClickHouse candle archive.
func ProvideCandleArchive(chClient *pkgch.Client, cfg *config.Config) drepo.CandleArchive {
	if chClient == nil {
		return nil
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), cfg.ClickHouse.Table)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when publishing is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher creates the Kafka signal event publisher.
func ProvideEventPublisher(producer *pkgkafka.Producer, cfg *config.Config) drepo.EventPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMarketFeed creates the Binance market feed.
func ProvideMarketFeed(cfg *config.Config, log *applogger.Logger, m drepo.Metrics) drepo.MarketFeed {
	opts := []binance.Option{binance.WithMetrics(m)}
	if cfg.Binance.WebSocketURL != "" {
		opts = append(opts, binance.WithWebSocketURL(cfg.Binance.WebSocketURL))
	}
	if cfg.Binance.RESTURL != "" {
		opts = append(opts, binance.WithRESTURL(cfg.Binance.RESTURL))
	}
	if cfg.Binance.KlineInterval != "" {
		opts = append(opts, binance.WithKlineInterval(cfg.Binance.KlineInterval))
	}
	if cfg.Binance.ReconnectDelay > 0 {
		opts = append(opts, binance.WithReconnectDelay(cfg.Binance.ReconnectDelay))
	}
	return binance.New(log, opts...)
}

// ProvideMarketRouter creates the market data router.
func ProvideMarketRouter(feed drepo.MarketFeed, archive drepo.CandleArchive, m drepo.Metrics, log *applogger.Logger) *marketdata.Router {
	return marketdata.NewRouter(feed, archive, m, log)
}

// ProvideHub creates the broadcast hub.
func ProvideHub(log *applogger.Logger) *broadcast.Hub {
	return broadcast.NewHub(log)
}

// ProvideScoutStore creates the scout repository.
func ProvideScoutStore(pg *pkgpg.Client, cache pkgcache.Service) drepo.ScoutStore {
	return internalrepo.NewScoutRepository(pg.Pool(), cache)
}

// ProvideSignalStore creates the signal repository.
func ProvideSignalStore(pg *pkgpg.Client, cache pkgcache.Service) drepo.SignalStore {
	return internalrepo.NewSignalRepository(pg.Pool(), cache)
}

// ProvideDetector creates the strategy evaluator.
func ProvideDetector() *detector.Detector {
	return detector.New()
}

// ProvideSignalWriter creates the signal write path.
func ProvideSignalWriter(
	signals drepo.SignalStore,
	scouts drepo.ScoutStore,
	hub *broadcast.Hub,
	publisher drepo.EventPublisher,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.SignalWriter {
	return usecase.NewSignalWriter(signals, scouts, hub, publisher, m, log)
}

// ProvideMonitor creates the scout monitor.
func ProvideMonitor(
	market *marketdata.Router,
	det *detector.Detector,
	scouts drepo.ScoutStore,
	writer *usecase.SignalWriter,
	m drepo.Metrics,
	log *applogger.Logger,
) *usecase.Monitor {
	return usecase.NewMonitor(market, det, scouts, writer, m, log)
}

// ProvideDetectUseCase creates the on-demand detection use case.
func ProvideDetectUseCase(
	market *marketdata.Router,
	det *detector.Detector,
	writer *usecase.SignalWriter,
	log *applogger.Logger,
) *usecase.DetectUseCase {
	return usecase.NewDetectUseCase(market, det, writer, log)
}

// ProvideAPIRouter composes the HTTP surface.
func ProvideAPIRouter(
	log *applogger.Logger,
	scouts drepo.ScoutStore,
	signals drepo.SignalStore,
	monitor *usecase.Monitor,
	detect *usecase.DetectUseCase,
	hub *broadcast.Hub,
	feed drepo.MarketFeed,
	archive drepo.CandleArchive,
	pg *pkgpg.Client,
	chClient *pkgch.Client,
) *api.Router {
	deps := map[string]api.Pinger{"postgres": pg}
	if chClient != nil {
		deps["clickhouse"] = chClient
	}
	var candles *api.CandlesHandler
	if archive != nil {
		candles = api.NewCandlesHandler(log, archive)
	}
	return api.NewRouter(
		api.NewScoutsHandler(log, scouts, monitor),
		api.NewSignalsHandler(log, signals, detect, hub),
		candles,
		api.NewHealthHandler(feed, deps),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	market *marketdata.Router,
	monitor *usecase.Monitor,
	scouts drepo.ScoutStore,
	handler *api.Router,
	pg *pkgpg.Client,
	chClient *pkgch.Client,
	publisher drepo.EventPublisher,
	logQueue *pkgqueue.RedisQueue,
) *server.App {
	return server.New(cfg, log, market, monitor, scouts, handler, pg, chClient, publisher, logQueue)
}
