package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zexoverz/dominion-sub001/internal/audit"
	"github.com/zexoverz/dominion-sub001/internal/engine"
	"github.com/zexoverz/dominion-sub001/internal/infra"
	"github.com/zexoverz/dominion-sub001/internal/infra/auth"
	"github.com/zexoverz/dominion-sub001/internal/policy"
	"github.com/zexoverz/dominion-sub001/internal/relay"
	"github.com/zexoverz/dominion-sub001/internal/repository/postgres"
	"github.com/zexoverz/dominion-sub001/internal/server"
	"github.com/zexoverz/dominion-sub001/internal/server/handler"
	"github.com/zexoverz/dominion-sub001/internal/server/service"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин.
	// SIGTERM через cancel() останавливает слушателей
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инициализация ресурсов
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if cfg.Database.URL == "" {
		logger.Fatal("database.url (или DATABASE_URL) обязателен")
	}
	repo, err := postgres.NewRepo(appCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	defer repo.Close()

	// Отдельное соединение для аудита: его запись не конкурирует
	// с бизнес-транзакциями за пул
	auditStorage := postgres.NewAuditRepo(cfg.Database.URL)
	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	if err := auditStorage.Ping(pingCtx); err != nil {
		logger.Fatal("audit storage unreachable", zap.Error(err))
	}
	pingCancel()

	// 3. Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := fmt.Sprintf(":%d", cfg.Server.MetricsPort)
		logger.Info("metrics exporter started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics exporter stopped", zap.Error(err))
		}
	}()

	// 4. Журнал аудита: батчер + live-трансляция через Redis
	relayPub := relay.NewPublisher(rdb, logger)
	auditor := audit.NewEmitter(
		auditStorage,
		logger,
		cfg.Engine.AuditBufferSize,
		cfg.Engine.AuditFlushInterval,
		audit.WithRelay(relayPub),
		audit.WithBufferGauge(metrics.AuditBufferFill),
	)
	auditor.Start()

	// 5. Политики: снапшот в памяти + горячая перезагрузка по сигналу
	policies := policy.NewMemoProvider(repo, rdb, logger)
	if err := policies.Refresh(appCtx); err != nil {
		logger.Fatal("initial policy snapshot failed", zap.Error(err))
	}
	go policies.StartListener(appCtx)

	// 6. Ядро движка жизненного цикла
	eng := engine.New(repo, policies, auditor, metrics, logger)
	eng.PendingLimit = cfg.Engine.PendingListLimit

	// 7. Операторский периметр: RS256 ключи
	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("invalid RSA public key", zap.Error(err))
	}
	privKey, err := auth.ParseRSAPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		logger.Fatal("invalid RSA private key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	// 8. Сервисы и обработчики (Dependency Injection)
	authService := service.NewAuthService(repo, privKey, cfg.Auth.TokenTTL)
	policyService := service.NewPolicyService(repo, rdb, logger)

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewServer(
			cfg,
			logger,
			validator,
			handler.NewAuthHandler(authService),
			handler.NewProposalHandler(eng),
			handler.NewPolicyHandler(policyService),
			handler.NewDashboardHandler(repo),
			handler.NewAuditHandler(auditStorage),
		),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("lifecycle engine started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("lifecycle engine stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Останавливаем фоновые слушатели, затем дожимаем буфер аудита
	cancel()
	auditor.Stop()
	logger.Info("lifecycle engine exited properly")
}
