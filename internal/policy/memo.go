package policy

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zexoverz/dominion-sub001/internal/domain"
	"github.com/zexoverz/dominion-sub001/internal/infra"
	"go.uber.org/zap"
)

// Repository описывает требования кэша к хранилищу политик
type Repository interface {
	ListQuotas(ctx context.Context) (map[string]domain.DailyQuota, error)
	GetAutoApprovalPolicy(ctx context.Context) (*domain.AutoApprovalPolicy, error)
}

// MemoProvider реализует Provider поверх потокобезопасного снапшота в памяти.
// Долговременное хранение правил живет в PostgreSQL, но в рантайме движок
// обращается только к RAM. Горячая перезагрузка: консоль после каждого
// изменения политик шлет сигнал в Redis, по которому снапшот перечитывается.
type MemoProvider struct {
	mu     sync.RWMutex
	quotas map[string]domain.DailyQuota
	auto   *domain.AutoApprovalPolicy

	repo   Repository // Используется только для Refresh()
	rdb    *redis.Client
	logger *zap.Logger
}

func NewMemoProvider(repo Repository, rdb *redis.Client, logger *zap.Logger) *MemoProvider {
	return &MemoProvider{
		quotas: make(map[string]domain.DailyQuota),
		repo:   repo,
		rdb:    rdb,
		logger: logger.Named("policy"),
	}
}

func (m *MemoProvider) DailyQuota(_ context.Context, agentID string) (*domain.DailyQuota, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quotas[agentID]
	if !ok {
		// Нет квоты — нет права действовать (Default Deny)
		return nil, nil
	}
	return &q, nil
}

func (m *MemoProvider) AutoApproval(_ context.Context) (*domain.AutoApprovalPolicy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.auto, nil
}

// Refresh выполняет «холодную загрузку» всего набора политик из PostgreSQL
// в память (при старте и по сигналу обновления).
func (m *MemoProvider) Refresh(ctx context.Context) error {
	quotas, err := m.repo.ListQuotas(ctx)
	if err != nil {
		return err
	}
	auto, err := m.repo.GetAutoApprovalPolicy(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.quotas = quotas
	m.auto = auto
	m.mu.Unlock()

	m.logger.Info("policy snapshot refreshed", zap.Int("quotas", len(quotas)))
	return nil
}

// StartListener — «живучая» подписка на сигнал обновления политик.
// Обрабатывает переподключения и перечитывает снапшот при каждом реконнекте,
// чтобы не пропустить сигналы, отправленные во время обрыва.
func (m *MemoProvider) StartListener(ctx context.Context) {
	for {
		pubsub := m.rdb.Subscribe(ctx, infra.RedisChanPolicyUpdate)

		if _, err := pubsub.Receive(ctx); err != nil {
			m.logger.Error("failed to subscribe", zap.String("chan", infra.RedisChanPolicyUpdate), zap.Error(err))
			pubsub.Close()
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Синхронизация при каждом успешном коннекте
		if err := m.Refresh(ctx); err != nil {
			m.logger.Error("policy sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				if err := m.Refresh(ctx); err != nil {
					m.logger.Error("policy refresh failed", zap.Error(err))
				}
			}
		}

		pubsub.Close()
		time.Sleep(1 * time.Second)
	}
}
