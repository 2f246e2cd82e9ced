package models

import "time"

// AccountInfo is the broker account snapshot used for position sizing.
type AccountInfo struct {
	Balance  float64 `json:"balance"`
	Equity   float64 `json:"equity"`
	Margin   float64 `json:"margin"`
	Currency string  `json:"currency"`
}

// SymbolInfo describes a tradable symbol's pricing and lot constraints.
type SymbolInfo struct {
	Symbol  string  `json:"symbol"`
	Close   float64 `json:"close"`
	Point   float64 `json:"point"`
	MinLot  float64 `json:"min_lot"`
	MaxLot  float64 `json:"max_lot"`
	LotStep float64 `json:"lot_step"`
}

// OrderSide is the direction of an order.
type OrderSide string

const (
	OrderBuy  OrderSide = "BUY"
	OrderSell OrderSide = "SELL"
)

// OrderRequest is a trade execution request sent to the broker gateway.
type OrderRequest struct {
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"order_type"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	Comment    string    `json:"comment,omitempty"`
}

// TradeResult is the broker's acknowledgement of a placed order.
type TradeResult struct {
	Ticket     int64     `json:"ticket"`
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"order_type"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	OpenedAt   time.Time `json:"opened_at"`
	SignalID   string    `json:"signal_id,omitempty"`
}
