package domain

import "time"

// WidgetSettings — то, что редактирует панель настроек и хранит ConfigStore.
type WidgetSettings struct {
	ID             string          `json:"id"`
	UseDataSources []DataSourceRef `json:"useDataSources"` // 0 или 1 элемент
	Config         RawConfig       `json:"config"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// DataSource возвращает выбранный источник или пустую ссылку.
func (s WidgetSettings) DataSource() DataSourceRef {
	if len(s.UseDataSources) == 0 {
		return DataSourceRef{}
	}
	return s.UseDataSources[0]
}

// WidgetView — снимок для API: настройки после дефолтов плюс текущее состояние
type WidgetView struct {
	ID           string       `json:"id"`
	DataSourceID string       `json:"dataSourceId,omitempty"`
	Config       Config       `json:"config"`
	Display      DisplayState `json:"display"`
}
