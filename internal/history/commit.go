package history

import (
	"github.com/google/uuid"
	"github.com/xela07ax/statindicator/internal/indicator"
)

// FromCommit превращает принятый refresh в запись истории
func FromCommit(ev indicator.CommitEvent) Record {
	return Record{
		ID:           uuid.New().String(),
		WidgetID:     ev.WidgetID,
		DataSourceID: ev.DataSourceID,
		Field:        ev.Config.StatisticField,
		Statistic:    string(ev.Config.StatisticType),
		Reason:       ev.Reason,
		Status:       string(ev.State.Status),
		PrimaryRaw:   ev.State.PrimaryRaw,
		PrimaryValue: ev.State.PrimaryValue,
		Secondary:    ev.State.SecondaryValue,
		Error:        ev.State.Error,
		DurationMs:   ev.Duration.Milliseconds(),
	}
}

// Hook — CommitFunc для менеджера виджетов
func (r *Recorder) Hook(ev indicator.CommitEvent) {
	r.Log(FromCommit(ev))
}
