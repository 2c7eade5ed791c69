package datasource

import (
	"context"
	"sync"

	"github.com/xela07ax/statindicator/internal/domain"
)

// MemorySource — источник поверх набора записей в памяти.
// Используется командой compute и в тестах.
type MemorySource struct {
	id      string
	mu      sync.RWMutex
	records []domain.Record
	filter  map[string]any
}

func NewMemorySource(id string, records []domain.Record) *MemorySource {
	return &MemorySource{id: id, records: records}
}

func (s *MemorySource) ID() string { return s.id }

func (s *MemorySource) Query(ctx context.Context, req domain.QueryRequest) (domain.QueryResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.QueryResult{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Record, 0, len(s.records))
	for _, rec := range s.records {
		if !matchFilter(rec, s.filter) {
			continue
		}
		// Отдаем только запрошенное поле, как и SQL-источник
		out = append(out, domain.Record{req.Field: rec[req.Field]})
	}
	return domain.QueryResult{Records: out}, nil
}

// SetRecords заменяет набор записей. Уведомление подписчиков — забота вызывающего (Registry.Dispatch).
func (s *MemorySource) SetRecords(records []domain.Record) {
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
}

func (s *MemorySource) SetFilter(filter map[string]any) {
	s.mu.Lock()
	s.filter = copyFilter(filter)
	s.mu.Unlock()
}

func (s *MemorySource) Filter() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyFilter(s.filter)
}
