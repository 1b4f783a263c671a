package audit

/*
Файл emitter.go реализует best-effort журнал событий жизненного цикла.

Ключевые особенности архитектуры:
- Non-blocking Logging: события уходят из Hot Path через неблокирующий канал,
  задержки записи в БД не влияют на время ответа движка.
- Batching: накопление событий в памяти и пакетная вставка в PostgreSQL
  по таймеру или при достижении лимита пачки.
- Drain Pattern & Graceful Shutdown: при остановке канал закрывается, воркер
  вычитывает остатки и делает финальный flush — без потерь при перезагрузке.
- Асимметрия отказов: сбой записи аудита логируется локально и никогда
  не откатывает бизнес-операцию, которая его породила.
*/

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const batchSize = 100

// StorageInterface определяет, куда физически сохраняются события
type StorageInterface interface {
	// WriteBatch сохраняет пачку событий за один раз
	WriteBatch(ctx context.Context, events []Event) error
}

// RelayPublisher транслирует событие live-подписчикам (SSE-релей UI).
// Реализация — relay.Publisher поверх Redis Pub/Sub.
type RelayPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

type Auditor interface {
	Emit(agentID, kind, title string, costUsd float64, details map[string]interface{})
}

type Emitter struct {
	ch     chan Event
	repo   StorageInterface
	relay  RelayPublisher // может быть nil, тогда live-трансляции нет
	logger *zap.Logger
	wg     sync.WaitGroup

	flushInterval time.Duration
	bufferFill    prometheus.Gauge // опционально, заполненность буфера

	// Защита от Emit после остановки
	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт)
}

type Option func(*Emitter)

// WithRelay подключает live-трансляцию событий.
func WithRelay(r RelayPublisher) Option {
	return func(e *Emitter) { e.relay = r }
}

// WithBufferGauge подключает метрику заполненности буфера.
func WithBufferGauge(g prometheus.Gauge) Option {
	return func(e *Emitter) { e.bufferFill = g }
}

func NewEmitter(repo StorageInterface, logger *zap.Logger, bufferSize int, flushInterval time.Duration, opts ...Option) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	e := &Emitter{
		ch:            make(chan Event, bufferSize),
		repo:          repo,
		logger:        logger.With(zap.String("mod", "audit")),
		flushInterval: flushInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Emitter) Start() {
	e.wg.Add(1)
	go e.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (e *Emitter) Stop() {
	atomic.StoreInt32(&e.isClosed, 1)

	// Крошечная пауза, чтобы текущие Emit успели проскочить
	time.Sleep(10 * time.Millisecond)

	e.logger.Info("stopping auditor: closing channel and flushing buffer...")
	close(e.ch)
	e.wg.Wait()
	e.logger.Info("auditor stopped gracefully")
}

// Emit ставит событие в очередь. Никогда не возвращает ошибку и не блокирует
// вызывающего: при переполнении буфера событие сбрасывается в лог (Load Shedding).
func (e *Emitter) Emit(agentID, kind, title string, costUsd float64, details map[string]interface{}) {
	event := Event{
		ID:        uuid.New().String(),
		AgentID:   agentID,
		Kind:      kind,
		Title:     title,
		CostUsd:   costUsd,
		Details:   details,
		Timestamp: time.Now(),
	}

	if atomic.LoadInt32(&e.isClosed) == 1 {
		e.logger.Warn("audit event dropped: auditor is stopping", zap.String("kind", kind))
		return
	}

	select {
	case e.ch <- event:
		if e.bufferFill != nil {
			e.bufferFill.Set(float64(len(e.ch)))
		}
	default:
		// Канал переполнен (Backpressure) — не теряем данные молча
		e.logger.Error("audit_buffer_overflow",
			zap.String("agent_id", event.AgentID),
			zap.String("kind", event.Kind),
		)
	}
}

func (e *Emitter) worker() {
	defer e.wg.Done()

	batch := make([]Event, 0, batchSize)
	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Background: основной контекст на момент финального flush уже закрыт
		err := retry.New(
			retry.Attempts(3),
			retry.Delay(100*time.Millisecond),
		).Do(func() error {
			return e.repo.WriteBatch(context.Background(), batch)
		})
		if err != nil {
			e.logger.Error("audit flush failed", zap.Error(err), zap.Int("dropped", len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case event, ok := <-e.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали остатки, финальный сброс и выход
				flush()
				e.logger.Info("audit worker finished")
				return
			}
			e.broadcast(event)
			batch = append(batch, event)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// broadcast шлет событие в live-канал. Сбой релея — не повод задерживать пачку.
func (e *Emitter) broadcast(event Event) {
	if e.relay == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := e.relay.Publish(context.Background(), payload); err != nil {
		e.logger.Warn("live relay publish failed", zap.Error(err))
	}
}
