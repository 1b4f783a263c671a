package relay

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"github.com/zexoverz/dominion-sub001/internal/infra"
	"go.uber.org/zap"
)

// Publisher транслирует события жизненного цикла в Redis Pub/Sub.
// Отсюда их забирает SSE-релей дашборда (вне этого сервиса).
// Публикация защищена Circuit Breaker: лежащий Redis не должен
// замедлять воркер аудита повторными таймаутами.
type Publisher struct {
	rdb    *redis.Client
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

func NewPublisher(rdb *redis.Client, logger *zap.Logger) *Publisher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "lifecycle-relay",
		Interval: 10 * time.Second,
		Timeout:  30 * time.Second, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Publisher{
		rdb:    rdb,
		cb:     cb,
		logger: logger.Named("relay"),
	}
}

// Publish отправляет сериализованное событие в канал live-обновлений.
func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		pubCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return nil, p.rdb.Publish(pubCtx, infra.RedisChanLifecycleEvents, payload).Err()
	})
	return err
}
