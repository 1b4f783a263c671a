package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/zexoverz/dominion-sub001/internal/infra"
	"github.com/zexoverz/dominion-sub001/internal/infra/auth"
	"github.com/zexoverz/dominion-sub001/internal/server/handler"
	"go.uber.org/zap"
)

type Server struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Проверка RS256-токенов операторского периметра
	authValidator auth.TokenValidator

	// Лимитер подачи предложений (на агента)
	submitLimiter *AgentRateLimiter

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler      // /auth/token
	proposalHandler *handler.ProposalHandler  // /v1/proposals + /v1/agents/{id}/stats
	policyHandler   *handler.PolicyHandler    // /v1/policy (квоты, автоодобрение)
	dashHandler     *handler.DashboardHandler // /v1/dashboard
	auditHandler    *handler.AuditHandler     // /v1/audit
}

// NewServer собирает HTTP-поверхность движка со всеми зависимостями
func NewServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	proposalH *handler.ProposalHandler,
	policyH *handler.PolicyHandler,
	dashH *handler.DashboardHandler,
	auditH *handler.AuditHandler,
) *Server {
	s := &Server{
		router:          chi.NewRouter(),
		logger:          logger.Named("http"),
		cfg:             cfg,
		authValidator:   validator,
		submitLimiter:   NewAgentRateLimiter(cfg.Engine.SubmitRatePerSec, cfg.Engine.SubmitBurst),
		authHandler:     authH,
		proposalHandler: proposalH,
		policyHandler:   policyH,
		dashHandler:     dashH,
		auditHandler:    auditH,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ ---
	r.Group(func(r chi.Router) {
		// Логин оператора доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		// Точка подачи предложений агентами. Бурсты режет лимитер,
		// бизнес-лимиты (квоты/капы) — внутри движка.
		r.With(s.submitLimiter.Middleware).Post("/v1/proposals", s.proposalHandler.Submit)
	})

	// --- 3. ОПЕРАТОРСКИЙ ПЕРИМЕТР (требует RS256 токен) ---
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Очередь ревью и решения по предложениям
		r.Route("/v1/proposals", func(r chi.Router) {
			r.Get("/pending", s.proposalHandler.ListPending) // Очередь ручного ревью
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.proposalHandler.Get)
				r.Post("/approve", s.proposalHandler.Approve) // Та же материализация, что и авто-путь
				r.Post("/reject", s.proposalHandler.Reject)
			})
		})

		// Результат материализации
		r.Get("/v1/missions/{id}", s.proposalHandler.GetMission)

		// Статистика по агентам
		r.Get("/v1/agents/{id}/stats", s.proposalHandler.AgentStats)

		// Управление политиками (квоты + автоодобрение)
		r.Route("/v1/policy", func(r chi.Router) {
			r.Get("/quotas", s.policyHandler.ListQuotas)
			r.Route("/quotas/{agentId}", func(r chi.Router) {
				r.Get("/", s.policyHandler.GetQuota)
				r.Put("/", s.policyHandler.UpsertQuota)
				r.Delete("/", s.policyHandler.DeleteQuota)
			})
			r.Get("/auto-approval", s.policyHandler.GetAutoApproval)
			r.Put("/auto-approval", s.policyHandler.UpdateAutoApproval)
		})

		// Дашборд и журнал аудита (Observability)
		r.Get("/v1/dashboard/stats", s.dashHandler.GetStats)
		r.Get("/v1/audit", s.auditHandler.GetLogs)
	})
}

// ServeHTTP позволяет использовать Server как стандартный http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
