package datasource

/*
Пакет datasource — абстракция над источниками данных хоста.
Виджет знает только контракт: Resolve -> Handle -> Query/Subscribe.
Фильтрация (ambient filter) целиком на стороне источника.
*/

import (
	"context"

	"github.com/xela07ax/statindicator/internal/domain"
)

// Source — бэкенд, умеющий выполнить запрос записей по полю
type Source interface {
	ID() string
	Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResult, error)
}

// Handle — разрешенный источник, общий для всех виджетов с тем же ID
type Handle interface {
	Source
	// Subscribe вызывает fn на каждое изменение записей или фильтра.
	// Возвращаемая функция отписки идемпотентна.
	Subscribe(fn func(domain.ChangeEvent)) (unsubscribe func())
}

// Provider разрешает идентификатор в Handle или возвращает domain.ErrDataSourceNotFound
type Provider interface {
	Resolve(ctx context.Context, id string) (Handle, error)
}

// Filterable — источник, у которого хост может поменять ambient filter
type Filterable interface {
	SetFilter(filter map[string]any)
	Filter() map[string]any
}
