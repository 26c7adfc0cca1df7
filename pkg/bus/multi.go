package bus

import "github.com/joripage/ftx-gateway/pkg/model"

// Multi fans every event out to each publisher in order.
type Multi []Publisher

func (m Multi) OnTick(tick *model.Tick) {
	for _, p := range m {
		p.OnTick(tick)
	}
}

func (m Multi) OnOrder(order *model.Order) {
	for _, p := range m {
		p.OnOrder(order)
	}
}

func (m Multi) OnTrade(trade *model.Trade) {
	for _, p := range m {
		p.OnTrade(trade)
	}
}

func (m Multi) OnAccount(account *model.Account) {
	for _, p := range m {
		p.OnAccount(account)
	}
}

func (m Multi) OnPosition(position *model.Position) {
	for _, p := range m {
		p.OnPosition(position)
	}
}

func (m Multi) OnContract(contract *model.Contract) {
	for _, p := range m {
		p.OnContract(contract)
	}
}

func (m Multi) OnLog(msg string) {
	for _, p := range m {
		p.OnLog(msg)
	}
}
