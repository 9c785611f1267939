package msg

// LifecycleEventMsg is the JSON form of a drop-copy event on TopicLifecycle.
// Quantities and prices are decimal strings.
type LifecycleEventMsg struct {
	EventID      string `json:"event_id"`
	Kind         string `json:"kind"` // "order_sent", "order_filled", "cancel_requested", ...
	Session      string `json:"session"`
	ClOrdID      string `json:"cl_ord_id"`
	OrderID      string `json:"order_id,omitempty"`
	Symbol       string `json:"symbol,omitempty"`
	Side         string `json:"side,omitempty"`
	Qty          string `json:"qty,omitempty"`
	Price        string `json:"price,omitempty"`
	Text         string `json:"text,omitempty"`
	TsUnixMillis int64  `json:"ts_unix_millis"`
}
