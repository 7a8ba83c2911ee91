package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/davicafu/hexacourses/internal/config"
	courseApp "github.com/davicafu/hexacourses/internal/course/application"
	courseDomain "github.com/davicafu/hexacourses/internal/course/domain"
	courseEvents "github.com/davicafu/hexacourses/internal/course/infra/inbound/events"
	courseHttp "github.com/davicafu/hexacourses/internal/course/infra/inbound/http"
	courseAnalytics "github.com/davicafu/hexacourses/internal/course/infra/outbound/analytics/clickhouse"
	courseMongo "github.com/davicafu/hexacourses/internal/course/infra/outbound/db/mongodb"
	coursePostgres "github.com/davicafu/hexacourses/internal/course/infra/outbound/db/postgres"
	courseSQLite "github.com/davicafu/hexacourses/internal/course/infra/outbound/db/sqlite"
	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	infraEvents "github.com/davicafu/hexacourses/internal/shared/infra/events"
	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
	sharedCache "github.com/davicafu/hexacourses/internal/shared/infra/platform/cache"
	sharedMongo "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/mongodb"
	sharedPostgres "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/postgres"
	sharedSQLite "github.com/davicafu/hexacourses/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/hexacourses/internal/shared/infra/platform/lock"
	"github.com/davicafu/hexacourses/internal/shared/infra/relayer"
	"github.com/davicafu/hexacourses/pkg/logger"
)

const relayerLockKey = "hexacourses:outbox-relayer"

// cacheStore es lo que necesitan los servicios (cache-aside) y el consumidor (dedup).
type cacheStore interface {
	sharedCache.Cache
	sharedCache.Deduper
}

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()
	logger.Init(cfg.LogLevel) // inicializa zap
	log := logger.Logger()
	defer log.Sync() // flush buffers al salir

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------------- DB ----------------
	uow, outboxRepo, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	// ---------------- Cache ----------------
	var cache cacheStore
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	redisUp := rdb.Ping(ctx).Err() == nil
	if redisUp {
		cache = sharedCache.NewRedisCache(rdb, "hexacourses:")
		log.Info("✅ Redis conectado, cache habilitado")
	} else {
		log.Warn("⚠️ Redis no disponible, cache en memoria")
		mem := sharedCache.NewInMemoryCache(cfg.CacheTTL, 3*cfg.CacheTTL)
		defer mem.Stop()
		cache = mem
	}

	// --------------- Servicios --------------
	courseService := courseApp.NewCourseService(uow, cache, log)
	participantService := courseApp.NewParticipantService(uow, cache, log)

	// ---------------- Events ---------------
	sink, closeSink := openSink(ctx, cfg, log)
	defer closeSink()
	consumer := courseEvents.NewCourseConsumer(cache, sink, log)

	var publisher sharedBus.EventPublisher
	switch cfg.BusDriver {
	case config.BusKafka, config.BusRedpanda:
		if cfg.BusDriver == config.BusKafka {
			log.Info("🚀 Usando Kafka como bus de eventos")
			writer := infraEvents.NewKafkaWriter(cfg.KafkaBrokers)
			defer writer.Close()
			publisher = infraEvents.NewKafkaPublisher(writer, log)
		} else {
			log.Info("🚀 Usando Redpanda (franz-go) como bus de eventos")
			rp, err := infraEvents.NewRedpandaPublisher(cfg.KafkaBrokers, log)
			if err != nil {
				log.Fatal("failed to create redpanda publisher", zap.Error(err))
			}
			defer rp.Close()
			publisher = rp
		}
		publisher = infraEvents.NewBreakerPublisher(publisher, infraEvents.BreakerSettings{}, log)

		reader := infraEvents.NewKafkaReader(cfg.KafkaBrokers, cfg.ConsumerGroup, courseDomain.Topics())
		adapter := infraEvents.NewConsumerAdapter(reader, consumer, log)
		adapter.Start(ctx)
		defer adapter.Close()

	default:
		log.Info("⚡️ Usando bus de eventos en memoria (canales de Go)")
		bus := infraEvents.NewInMemoryEventBus()
		courseEvents.BackgroundConsumerChan(ctx, bus.Subscribe(64, courseDomain.Topics()...), consumer)
		publisher = bus
	}

	// ------------ Outbox Worker ------------
	var opts []relayer.Option
	if cfg.OutboxLockTTL > 0 {
		if redisUp {
			opts = append(opts, relayer.WithLocker(lock.NewRedisLease(rdb, relayerLockKey, cfg.OutboxLockTTL)))
		} else {
			log.Warn("OUTBOX_LOCK_TTL ignorado: Redis no disponible")
		}
	}
	worker := relayer.NewOutboxWorker(outboxRepo, publisher, cfg.OutboxPeriod, cfg.OutboxLimit, log, opts...)
	go worker.Start(ctx)

	// ---------------- HTTP ----------------
	handler := courseHttp.NewCourseHandler(courseService, participantService, log)
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           courseHttp.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("🚀 Server running", zap.String("url", "http://localhost:"+cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("🛑 Apagando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incompleto", zap.Error(err))
	}
	if err := worker.Shutdown(shutdownCtx); err != nil {
		log.Warn("Outbox worker shutdown incompleto", zap.Error(err))
	}
}

// openStore abre el almacenamiento elegido y devuelve la unidad de trabajo y
// el lado de lectura de la outbox que usa el relayer.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (courseDomain.UnitOfWork, sharedDomain.OutboxRepository, func(), error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := sharedPostgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := coursePostgres.InitPostgres(ctx, db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info("🐘 Usando PostgreSQL")
		return coursePostgres.NewTxManager(db), sharedPostgres.NewOutboxRepoPostgres(db), closeDB(db, log), nil

	case config.StoreMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn("failed to disconnect MongoDB", zap.Error(err))
			}
		}
		store, err := courseMongo.NewMongoStore(ctx, client, cfg.MongoDB)
		if err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, nil, err
		}
		log.Info("🍃 Usando MongoDB", zap.String("db", cfg.MongoDB))
		return store, sharedMongo.NewOutboxRepoMongoDB(client, cfg.MongoDB), closeFn, nil

	default:
		db, err := sharedSQLite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := courseSQLite.InitSQLite(db); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info("🗄️ Usando SQLite", zap.String("path", cfg.SQLitePath))
		return courseSQLite.NewTxManager(db), sharedSQLite.NewOutboxRepoSQLite(db), closeDB(db, log), nil
	}
}

func closeDB(db *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

// openSink usa ClickHouse si está configurado y el log en otro caso.
func openSink(ctx context.Context, cfg *config.Config, log *zap.Logger) (courseEvents.EventSink, func()) {
	if cfg.ClickHouseAddr == "" {
		return courseEvents.NewLogSink(log), func() {}
	}

	eventLog, err := courseAnalytics.NewCourseEventLog(ctx, cfg.ClickHouseAddr, cfg.ClickHouseDB)
	if err != nil {
		log.Warn("⚠️ ClickHouse no disponible, eventos al log", zap.Error(err))
		return courseEvents.NewLogSink(log), func() {}
	}
	log.Info("📊 Archivando eventos en ClickHouse", zap.String("addr", cfg.ClickHouseAddr))
	return eventLog, func() { eventLog.Close() }
}
