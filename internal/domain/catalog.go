package domain

// StepKind — тип операции, которую агент может запросить в составе предложения.
type StepKind string

const (
	StepCrawl          StepKind = "crawl"           // Сбор данных из внешних источников
	StepAnalyze        StepKind = "analyze"         // Аналитическая обработка собранного
	StepSummarize      StepKind = "summarize"       // Сжатие результатов
	StepGenerateReport StepKind = "generate_report" // Подготовка отчета для дашборда
	StepNotify         StepKind = "notify"          // Нотификация операторов
	StepPublish        StepKind = "publish"         // Публикация во внешние системы
	StepDeploy         StepKind = "deploy"          // Выкладка артефактов (самый рисковый)
)

// CatalogEntry — статические параметры одного вида операции.
// Каталог не мутируется в рантайме: стоимость предложения всегда
// детерминированно выводится из него, клиентские цифры игнорируются.
type CatalogEntry struct {
	BaseCostUsd float64 `json:"base_cost_usd"`
	RiskLevel   int     `json:"risk_level"` // 1 (безопасно) .. 5 (критично)
	CapPerDay   int     `json:"cap_per_day"`
}

// StepCatalog — таблица "вид операции -> цена/риск/дневной потолок".
var StepCatalog = map[StepKind]CatalogEntry{
	StepCrawl:          {BaseCostUsd: 0.25, RiskLevel: 1, CapPerDay: 100},
	StepAnalyze:        {BaseCostUsd: 0.35, RiskLevel: 2, CapPerDay: 80},
	StepSummarize:      {BaseCostUsd: 0.20, RiskLevel: 1, CapPerDay: 80},
	StepGenerateReport: {BaseCostUsd: 0.60, RiskLevel: 2, CapPerDay: 40},
	StepNotify:         {BaseCostUsd: 0.05, RiskLevel: 1, CapPerDay: 200},
	StepPublish:        {BaseCostUsd: 0.40, RiskLevel: 3, CapPerDay: 20},
	StepDeploy:         {BaseCostUsd: 2.50, RiskLevel: 5, CapPerDay: 5},
}

// CatalogLookup возвращает запись каталога для вида операции.
// ok == false означает, что агент прислал неизвестный kind.
func CatalogLookup(kind StepKind) (CatalogEntry, bool) {
	e, ok := StepCatalog[kind]
	return e, ok
}
