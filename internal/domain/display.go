package domain

// DisplayStatus — состояние конечного автомата виджета
type DisplayStatus string

const (
	StatusIdle    DisplayStatus = "IDLE"    // Нет поля или источника
	StatusLoading DisplayStatus = "LOADING" // Запрос в полете
	StatusDisplay DisplayStatus = "DISPLAY"
	StatusError   DisplayStatus = "ERROR"
)

// DisplayState пересчитывается на каждый refresh и целиком принадлежит виджету.
// Error и числовое PrimaryValue взаимоисключающие.
type DisplayState struct {
	Status         DisplayStatus `json:"status"`
	PrimaryRaw     *float64      `json:"primaryRaw"`     // Агрегат до делителя
	PrimaryValue   *float64      `json:"primaryValue"`   // raw / divisor
	PrimaryText    string        `json:"primaryText"`    // prefix + formatted + suffix
	SecondaryValue *float64      `json:"secondaryValue"` // Проценты
	SecondaryText  string        `json:"secondaryText"`
	IsLoading      bool          `json:"isLoading"`
	Error          string        `json:"error,omitempty"`
}

// IdleState — неактивная конфигурация, коллабораторы не вызываются.
func IdleState() DisplayState {
	return DisplayState{Status: StatusIdle}
}

// ErrorState — ошибка показывается внутри виджета, значения сбрасываются.
func ErrorState(msg string) DisplayState {
	return DisplayState{Status: StatusError, Error: msg}
}

// Loading сохраняет предыдущие значения, пока новый запрос не вернулся.
func (s DisplayState) Loading() DisplayState {
	s.Status = StatusLoading
	s.IsLoading = true
	return s
}
