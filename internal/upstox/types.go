package upstox

// Wire types for the Upstox v2 market-quote and option-chain endpoints.

type chainResponse struct {
	Status string     `json:"status"`
	Data   []ChainRow `json:"data"`
}

// ChainRow is one strike of a full option chain.
type ChainRow struct {
	Expiry              string    `json:"expiry"`
	PCR                 float64   `json:"pcr"`
	StrikePrice         float64   `json:"strike_price"`
	UnderlyingKey       string    `json:"underlying_key"`
	UnderlyingSpotPrice float64   `json:"underlying_spot_price"`
	CallOptions         OptionLeg `json:"call_options"`
	PutOptions          OptionLeg `json:"put_options"`
}

// OptionLeg is one side (call or put) of a chain row.
type OptionLeg struct {
	InstrumentKey string     `json:"instrument_key"`
	MarketData    MarketData `json:"market_data"`
}

// MarketData carries the quote fields of a chain leg.
type MarketData struct {
	LTP        float64 `json:"ltp"`
	ClosePrice float64 `json:"close_price"`
	Volume     int64   `json:"volume"`
	OI         float64 `json:"oi"`
	BidPrice   float64 `json:"bid_price"`
	BidQty     int64   `json:"bid_qty"`
	AskPrice   float64 `json:"ask_price"`
	AskQty     int64   `json:"ask_qty"`
}

type quoteResponse struct {
	Status string           `json:"status"`
	Data   map[string]Quote `json:"data"`
}

// Quote is a full market quote for one instrument. InstrumentToken is the
// normalized key upstream echoes back; cache entries are stored under it,
// not under the request key.
type Quote struct {
	InstrumentToken string  `json:"instrument_token"`
	LastPrice       float64 `json:"last_price"`
	Volume          int64   `json:"volume"`
	OpenInterest    float64 `json:"open_interest"`
	OHLC            OHLC    `json:"ohlc"`
}

// OHLC is the daily candle attached to a full quote.
type OHLC struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// EffectivePrice returns the last traded price, falling back to the daily
// close when the live field reads zero (pre-open or illiquid contracts).
func (q Quote) EffectivePrice() float64 {
	if q.LastPrice != 0 {
		return q.LastPrice
	}
	return q.OHLC.Close
}
