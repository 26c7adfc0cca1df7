package bus

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/joripage/ftx-gateway/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Publisher is the host-facing event sink the gateway publishes into.
type Publisher interface {
	OnTick(tick *model.Tick)
	OnOrder(order *model.Order)
	OnTrade(trade *model.Trade)
	OnAccount(account *model.Account)
	OnPosition(position *model.Position)
	OnContract(contract *model.Contract)
	OnLog(msg string)
}

type Kind string

const (
	KindTick     Kind = "tick"
	KindOrder    Kind = "order"
	KindTrade    Kind = "trade"
	KindAccount  Kind = "account"
	KindPosition Kind = "position"
	KindContract Kind = "contract"
	KindLog      Kind = "log"
)

var Kinds = []Kind{KindTick, KindOrder, KindTrade, KindAccount, KindPosition, KindContract, KindLog}

// Event is the envelope written to remote buses.
type Event struct {
	Kind      Kind      `json:"kind"`
	Gateway   string    `json:"gateway"`
	Timestamp time.Time `json:"timestamp"`
	Key       string    `json:"-"`
	Data      any       `json:"data"`
}

func NewEvent(kind Kind, gateway, key string, data any) *Event {
	return &Event{
		Kind:      kind,
		Gateway:   gateway,
		Timestamp: time.Now(),
		Key:       key,
		Data:      data,
	}
}

func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Subject is the topic, subject or channel an event kind is routed to.
func Subject(prefix string, kind Kind) string {
	if prefix == "" {
		return string(kind)
	}
	return prefix + "." + string(kind)
}

// RawEvent is an envelope read back from a bus with its data left encoded.
type RawEvent struct {
	Kind      Kind                `json:"kind"`
	Gateway   string              `json:"gateway"`
	Timestamp time.Time           `json:"timestamp"`
	Data      jsoniter.RawMessage `json:"data"`
}

func DecodeEvent(payload []byte) (*RawEvent, error) {
	ev := &RawEvent{}
	if err := json.Unmarshal(payload, ev); err != nil {
		return nil, err
	}
	return ev, nil
}
