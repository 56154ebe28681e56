package marketdigest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/digest"
	"github.com/magabrotheeeer/market-digest/internal/lib/bedrock"
	"github.com/magabrotheeeer/market-digest/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/market-digest/internal/lib/ses"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/lib/smtp"
	"github.com/magabrotheeeer/market-digest/internal/marketdata"
	"github.com/magabrotheeeer/market-digest/internal/metrics"
	"github.com/magabrotheeeer/market-digest/internal/migrations"
	"github.com/magabrotheeeer/market-digest/internal/models"
	"github.com/magabrotheeeer/market-digest/internal/services/delivery"
	"github.com/magabrotheeeer/market-digest/internal/services/scheduler"
	subservice "github.com/magabrotheeeer/market-digest/internal/services/subscription"
	"github.com/magabrotheeeer/market-digest/internal/services/welcome"
	"github.com/magabrotheeeer/market-digest/internal/storage"
	"github.com/magabrotheeeer/market-digest/internal/storage/filestore"
	"github.com/magabrotheeeer/market-digest/internal/storage/postgres"
	"github.com/magabrotheeeer/market-digest/internal/storage/redisstore"
)

const (
	shutdownTimeout = 15 * time.Second
	dbReadyAttempts = 10
	dbReadyDelay    = time.Second
)

// App держит собранные компоненты сервиса.
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	server    *http.Server
	scheduler *scheduler.Scheduler

	localQueue   *welcome.LocalQueue
	amqpCh       *amqp.Channel
	welcome      *welcome.Sender
	cancelWorker context.CancelFunc

	closers []func() error
}

// New собирает приложение по конфигурации. При ошибке уже открытые
// соединения закрываются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (app *App, err error) {
	const op = "app.New"
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	transport, err := a.newTransport(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	engine := delivery.New(transport, delivery.Options{
		MessageTimeout: cfg.MessageTimeout,
		Pacer:          delivery.NewPacer(cfg.SendInterval),
		TestMode:       cfg.TestMode,
		TestRecipient:  cfg.TestRecipient,
		Metrics:        collector,
	}, logger)
	if cfg.TestMode {
		logger.Warn("test mode enabled", sl.Email(cfg.TestRecipient))
	}

	renderer, err := digest.NewRenderer(cfg.FromName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.welcome = welcome.NewSender(renderer, engine, logger)

	queue, err := a.newWelcomeQueue(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	subscriptionService := subservice.New(store, queue, collector, logger)

	source, err := newSnapshotSource(cfg.MarketData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	narrator, err := a.newNarrator(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	trigger, err := a.newTrigger()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.scheduler = scheduler.New(trigger, subscriptionService, source, narrator, renderer, engine, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, cfg.HTTPServer, subscriptionService, a.scheduler, metrics.Handler(registry))

	a.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return a, nil
}

func (a *App) openStore(ctx context.Context) (storage.SubscriberStore, error) {
	switch a.cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := postgres.New(a.cfg.StorageConnectionString)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		if err := migrations.Run(db.DB, a.cfg.MigrationsPath); err != nil {
			return nil, err
		}
		if err := postgres.WaitReady(ctx, db, dbReadyAttempts, dbReadyDelay); err != nil {
			return nil, err
		}
		a.logger.Info("subscriber store ready", slog.String("driver", config.StoragePostgres))
		return db, nil
	case config.StorageRedis:
		rdb, err := redisstore.InitServer(ctx, a.cfg.RedisConnection, a.cfg.RedisKey)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.logger.Info("subscriber store ready", slog.String("driver", config.StorageRedis))
		return rdb, nil
	default:
		fs, err := filestore.New(a.cfg.FilePath)
		if err != nil {
			return nil, err
		}
		a.logger.Info("subscriber store ready",
			slog.String("driver", config.StorageFile),
			slog.String("path", a.cfg.FilePath),
		)
		return fs, nil
	}
}

func (a *App) newTransport(ctx context.Context) (delivery.Transport, error) {
	switch a.cfg.Mail.Provider {
	case config.MailSMTP:
		return smtp.NewSender(smtp.NewTransport(a.cfg.Mail, a.logger), a.cfg.From, a.cfg.FromName, a.logger), nil
	case config.MailSES:
		return ses.NewFromConfig(ctx, a.cfg.Mail, a.logger)
	default:
		a.logger.Warn("mail provider is log, messages are not sent")
		return delivery.NewLogTransport(a.logger), nil
	}
}

// newWelcomeQueue выбирает RabbitMQ, если он настроен, иначе очередь в памяти.
func (a *App) newWelcomeQueue(ctx context.Context) (subservice.WelcomeQueue, error) {
	if a.cfg.RabbitMQURL == "" {
		a.localQueue = welcome.NewLocalQueue(a.cfg.WelcomeBuffer, a.welcome, a.logger)
		return a.localQueue, nil
	}

	conn, err := rabbitmq.Connect(ctx, a.cfg.RabbitMQURL, a.cfg.RabbitMQMaxRetries, a.cfg.RabbitMQRetryDelay)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, conn.Close)

	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NewsletterExchange, rabbitmq.NewsletterQueues())
	if err != nil {
		return nil, err
	}
	a.amqpCh = ch
	a.closers = append([]func() error{ch.Close}, a.closers...)
	a.logger.Info("welcome jobs go through rabbitmq", slog.String("queue", rabbitmq.WelcomeQueue))
	return welcome.NewAMQPQueue(ch), nil
}

func (a *App) newNarrator(ctx context.Context) (digest.Narrator, error) {
	if a.cfg.BedrockModelID == "" {
		a.logger.Info("narrator disabled, digests go out without commentary")
		return nil, nil
	}
	return bedrock.NewFromConfig(ctx, a.cfg.Narrator, a.logger)
}

func (a *App) newTrigger() (scheduler.Trigger, error) {
	if a.cfg.Schedule.Disabled {
		a.logger.Info("daily schedule disabled, digest runs only on demand")
		return scheduler.ManualTrigger{}, nil
	}
	trigger, err := scheduler.NewCronTrigger(a.cfg.Cron, a.cfg.Location())
	if err != nil {
		return nil, err
	}
	a.logger.Info("daily schedule configured",
		slog.String("cron", a.cfg.Cron),
		slog.String("timezone", a.cfg.Timezone),
		slog.Time("next_run", trigger.Next(time.Now())),
	)
	return trigger, nil
}

// errSourceNotConfigured возвращается прогоном, если адрес рыночных данных не задан.
var errSourceNotConfigured = errors.New("market data url is not configured")

type missingSource struct{}

func (missingSource) Snapshot(context.Context) (*models.Snapshot, error) {
	return nil, errSourceNotConfigured
}

func newSnapshotSource(cfg config.MarketData) (digest.SnapshotSource, error) {
	if cfg.MarketDataURL == "" {
		return missingSource{}, nil
	}
	return marketdata.NewSource(cfg.MarketDataURL, cfg.MarketDataTimeout)
}

// Run запускает воркер приветствий, планировщик и HTTP-сервер и
// останавливает их при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	workerDone := a.startWelcomeWorker(ctx)

	if err := a.scheduler.Start(ctx); err != nil {
		a.stopWelcomeWorker(workerDone)
		a.close()
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case runErr = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		runErr = a.server.Shutdown(timeoutCtx)
	}

	a.scheduler.Stop()
	a.stopWelcomeWorker(workerDone)
	a.close()
	return runErr
}

// stopWelcomeWorker останавливает потребителя RabbitMQ, закрывает очередь
// в памяти и ждёт воркер.
func (a *App) stopWelcomeWorker(done <-chan struct{}) {
	a.cancelWorker()
	if a.localQueue != nil {
		a.localQueue.Close()
	}
	<-done
}

// RunOnce выполняет одну рассылку без HTTP-сервера и планировщика.
func (a *App) RunOnce(ctx context.Context) scheduler.Report {
	defer a.close()
	return a.scheduler.RunOnce(ctx, time.Now())
}

// startWelcomeWorker запускает обработку приветствий. Очередь в памяти
// дорабатывает буфер после остановки, поэтому отмена ctx до неё не доходит.
func (a *App) startWelcomeWorker(ctx context.Context) <-chan struct{} {
	ctx, a.cancelWorker = context.WithCancel(ctx)
	done := make(chan struct{})
	switch {
	case a.localQueue != nil:
		go func() {
			defer close(done)
			a.localQueue.Run(context.WithoutCancel(ctx))
		}()
	case a.amqpCh != nil:
		go func() {
			defer close(done)
			if err := welcome.Consume(ctx, a.amqpCh, a.welcome, a.logger); err != nil {
				a.logger.Error("welcome consumer stopped", sl.Err(err))
			}
		}()
	default:
		close(done)
	}
	return done
}

func (a *App) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("failed to close resource", sl.Err(err))
		}
	}
	a.closers = nil
}
