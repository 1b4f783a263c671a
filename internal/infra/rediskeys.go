package infra

// RedisNamespace — базовый префикс для изоляции данных проекта в Redis
const RedisNamespace = "dominion"

// Каналы Pub/Sub (события)
const (
	// RedisChanLifecycleEvents — канал трансляции событий жизненного цикла
	// (подачи, автоодобрения, ручные решения). Его вычитывает SSE-релей UI.
	RedisChanLifecycleEvents = RedisNamespace + ":events:lifecycle"

	// RedisChanPolicyUpdate — широковещательный сигнал "политики изменились".
	// Подписанные инстансы движка перечитывают квоты и правила автоодобрения.
	RedisChanPolicyUpdate = RedisNamespace + ":policy:update"
)
