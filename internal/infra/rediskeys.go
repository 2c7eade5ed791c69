package infra

const (
	// RedisNamespace Базовый префикс для изоляции данных проекта в Redis
	RedisNamespace = "indicator"
)

// Каналы Pub/Sub (события)
const (
	// RedisChanDataSourceChanges — изменения записей и ambient filter источников
	RedisChanDataSourceChanges = RedisNamespace + ":datasources:changes"
	// RedisChanWidgetSettings — сигнал перечитать настройки виджета
	RedisChanWidgetSettings = RedisNamespace + ":widgets:settings"
)
