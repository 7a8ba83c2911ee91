package relayer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	sharedDomain "github.com/davicafu/hexacourses/internal/shared/domain"
	sharedBus "github.com/davicafu/hexacourses/internal/shared/infra/platform/bus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// saveTimeout acota SaveAll tras publicar; se ejecuta aunque el ctx del tick
// se haya cancelado para no republicar lo ya confirmado por el broker.
const saveTimeout = 5 * time.Second

// DefaultInterval se usa cuando el intervalo configurado no es positivo.
const DefaultInterval = 5 * time.Second

// Locker es un lease opcional que impide que dos instancias publiquen a la vez.
type Locker interface {
	// TryLock devuelve false sin error si otra instancia tiene el lease.
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// BatchResult resume un ciclo de publicación.
type BatchResult struct {
	Fetched   int
	Published int
	Failed    int
	Skipped   bool // otra instancia tenía el lease
}

// Worker procesa eventos pendientes de la tabla outbox de forma genérica.
// La entrega es at-least-once: se publica antes de marcar como enviado.
type Worker struct {
	repo      sharedDomain.OutboxRepository
	publisher sharedBus.EventPublisher
	locker    Locker
	tracer    trace.Tracer
	interval  time.Duration
	batchSize int
	log       *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*Worker)

// WithLocker activa la exclusión entre instancias mediante un lease.
func WithLocker(l Locker) Option {
	return func(w *Worker) { w.locker = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(w *Worker) { w.tracer = t }
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
	opts ...Option,
) *Worker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	w := &Worker{
		repo:      repo,
		publisher: publisher,
		tracer:    otel.Tracer("github.com/davicafu/hexacourses/relayer"),
		interval:  interval,
		batchSize: batchSize,
		log:       log,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start inicia el bucle de polling del worker. Bloquea hasta que ctx se
// cancela o se llama a Stop. Shutdown espera a que el bucle termine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	defer w.wg.Done()

	select {
	case <-w.stop:
		return
	default:
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 Outbox worker iniciado",
		zap.Duration("interval", w.interval),
		zap.Int("batch_size", w.batchSize))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Outbox worker detenido.")
			return
		case <-w.stop:
			w.log.Info("🛑 Outbox worker detenido.")
			return
		case <-ticker.C:
			select {
			case <-w.stop:
				w.log.Info("🛑 Outbox worker detenido.")
				return
			default:
			}
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	w.log.Debug("🔄 Ejecutando polling de outbox")
	if _, err := w.ProcessBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		w.log.Warn("⚠️ Ciclo de outbox con errores", zap.Error(err))
	}
}

// Stop señala al bucle que termine; no espera al ciclo en curso.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
}

// Shutdown detiene el bucle y espera a que termine, ciclo en curso incluido.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.Stop()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("outbox worker shutdown: %w", ctx.Err())
	}
}

// ProcessBatch publica en orden de creación hasta batchSize registros. Se
// detiene en el primer fallo y persiste como enviados sólo los publicados.
func (w *Worker) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var res BatchResult

	if w.locker != nil {
		ok, err := w.locker.TryLock(ctx)
		if err != nil {
			return res, fmt.Errorf("acquire outbox lease: %w", err)
		}
		if !ok {
			w.log.Debug("Lease de outbox en manos de otra instancia")
			res.Skipped = true
			return res, nil
		}
		defer func() {
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
			defer cancel()
			if err := w.locker.Unlock(unlockCtx); err != nil {
				w.log.Warn("⚠️ No se pudo liberar el lease de outbox", zap.Error(err))
			}
		}()
	}

	ctx, span := w.tracer.Start(ctx, "outbox.process_batch")
	defer span.End()

	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch pending outbox")
		return res, fmt.Errorf("fetch pending outbox: %w", err)
	}
	res.Fetched = len(events)
	if len(events) == 0 {
		return res, nil
	}
	w.log.Info(fmt.Sprintf("📬 %d eventos encontrados para procesar", len(events)))

	sent := make([]sharedDomain.OutboxEvent, 0, len(events))
	var publishErr error
	for _, evt := range events {
		if err := w.publish(ctx, evt); err != nil {
			// Ningún registro posterior se publica antes que uno fallido.
			w.log.Warn("⚠️ No se pudo publicar evento",
				zap.String("event_id", evt.ID.String()),
				zap.String("topic", evt.Topic),
				zap.Error(err))
			res.Failed++
			publishErr = err
			break
		}
		evt.Sent = true
		sent = append(sent, evt)
	}
	res.Published = len(sent)
	span.SetAttributes(
		attribute.Int("outbox.fetched", res.Fetched),
		attribute.Int("outbox.published", res.Published),
	)

	if len(sent) > 0 {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := w.repo.SaveAll(saveCtx, sent); err != nil {
			span.RecordError(err)
			return res, fmt.Errorf("mark %d outbox events sent: %w", len(sent), err)
		}
		w.log.Info("✅ Eventos publicados y marcados", zap.Int("count", len(sent)))
	}

	if publishErr != nil {
		span.SetStatus(codes.Error, "publish")
		return res, fmt.Errorf("publish outbox event: %w", publishErr)
	}
	return res, nil
}

func (w *Worker) publish(ctx context.Context, evt sharedDomain.OutboxEvent) error {
	ctx, span := w.tracer.Start(ctx, "outbox.publish", trace.WithAttributes(
		attribute.String("messaging.destination.name", evt.Topic),
		attribute.String("outbox.event_id", evt.ID.String()),
	))
	defer span.End()

	err := w.publisher.Publish(ctx, sharedBus.Message{
		ID:      evt.ID.String(),
		Topic:   evt.Topic,
		Key:     evt.AggregateID,
		Payload: evt.Payload,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
