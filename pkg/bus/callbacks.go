package bus

import "github.com/joripage/ftx-gateway/pkg/model"

// Callbacks delivers events in process. Nil handlers drop their events, so
// the zero value is a discarding publisher.
type Callbacks struct {
	Tick     func(*model.Tick)
	Order    func(*model.Order)
	Trade    func(*model.Trade)
	Account  func(*model.Account)
	Position func(*model.Position)
	Contract func(*model.Contract)
	Log      func(string)
}

func (c *Callbacks) OnTick(tick *model.Tick) {
	if c.Tick != nil {
		c.Tick(tick)
	}
}

func (c *Callbacks) OnOrder(order *model.Order) {
	if c.Order != nil {
		c.Order(order)
	}
}

func (c *Callbacks) OnTrade(trade *model.Trade) {
	if c.Trade != nil {
		c.Trade(trade)
	}
}

func (c *Callbacks) OnAccount(account *model.Account) {
	if c.Account != nil {
		c.Account(account)
	}
}

func (c *Callbacks) OnPosition(position *model.Position) {
	if c.Position != nil {
		c.Position(position)
	}
}

func (c *Callbacks) OnContract(contract *model.Contract) {
	if c.Contract != nil {
		c.Contract(contract)
	}
}

func (c *Callbacks) OnLog(msg string) {
	if c.Log != nil {
		c.Log(msg)
	}
}
