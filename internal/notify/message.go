package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xela07ax/statindicator/internal/domain"
)

// MessageType — тип сообщения в шине
type MessageType string

const (
	TypeChange   MessageType = "change"   // Изменились записи или фильтр источника
	TypeSettings MessageType = "settings" // Изменились настройки виджета
)

// Message — разобранное сообщение шины
type Message struct {
	Type     MessageType
	Change   domain.ChangeEvent
	WidgetID string
}

var ErrInvalidMessage = errors.New("notify: invalid message")

type wireMessage struct {
	Type         MessageType       `json:"type"`
	DataSourceID string            `json:"dataSourceId,omitempty"`
	Kind         domain.ChangeKind `json:"kind,omitempty"`
	Filter       json.RawMessage   `json:"filter,omitempty"`
	WidgetID     string            `json:"widgetId,omitempty"`
}

func EncodeChange(ev domain.ChangeEvent) ([]byte, error) {
	msg := wireMessage{Type: TypeChange, DataSourceID: ev.DataSourceID, Kind: ev.Kind}
	// Пустой фильтр уходит как {}, чтобы сброс не превратился в "фильтр не передан"
	if ev.Filter != nil {
		f, err := json.Marshal(ev.Filter)
		if err != nil {
			return nil, err
		}
		msg.Filter = f
	}
	return json.Marshal(msg)
}

func EncodeSettings(widgetID string) ([]byte, error) {
	return json.Marshal(wireMessage{Type: TypeSettings, WidgetID: widgetID})
}

// ParseMessage разбирает JSON-сообщение. Для событий изменений принимается
// и компактная форма "dataSourceId:KIND" (как сигналы "id:status" в соседних сервисах).
func ParseMessage(payload []byte) (Message, error) {
	if !gjson.ValidBytes(payload) {
		return parseCompact(string(payload))
	}

	doc := gjson.ParseBytes(payload)
	if !doc.IsObject() {
		return parseCompact(string(payload))
	}

	switch MessageType(doc.Get("type").String()) {
	case TypeSettings:
		id := doc.Get("widgetId").String()
		if id == "" {
			return Message{}, fmt.Errorf("%w: settings without widgetId", ErrInvalidMessage)
		}
		return Message{Type: TypeSettings, WidgetID: id}, nil

	case TypeChange, "":
		ev := domain.ChangeEvent{
			DataSourceID: doc.Get("dataSourceId").String(),
			Kind:         parseKind(doc.Get("kind").String()),
		}
		if ev.DataSourceID == "" {
			return Message{}, fmt.Errorf("%w: change without dataSourceId", ErrInvalidMessage)
		}
		if f := doc.Get("filter"); f.IsObject() {
			ev.Filter = make(map[string]any)
			f.ForEach(func(k, v gjson.Result) bool {
				ev.Filter[k.String()] = v.Value()
				return true
			})
		}
		return Message{Type: TypeChange, Change: ev}, nil

	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrInvalidMessage, doc.Get("type").String())
	}
}

func parseCompact(payload string) (Message, error) {
	parts := strings.Split(strings.TrimSpace(payload), ":")
	if len(parts) != 2 || parts[0] == "" {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidMessage, payload)
	}
	return Message{
		Type:   TypeChange,
		Change: domain.ChangeEvent{DataSourceID: parts[0], Kind: parseKind(parts[1])},
	}, nil
}

// parseKind: все, что не FILTER, считаем изменением записей
func parseKind(s string) domain.ChangeKind {
	if strings.EqualFold(s, string(domain.ChangeFilter)) {
		return domain.ChangeFilter
	}
	return domain.ChangeRecords
}
