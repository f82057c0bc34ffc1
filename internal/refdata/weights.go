package refdata

// indexWeights is the free-float weight of each constituent in the Nifty 50,
// in percent. Rebalanced quarterly by the exchange; refreshed here by hand.
// Names not present carry zero weight and sort last in snapshots.
var indexWeights = map[string]float64{
	"HDFCBANK":   13.27,
	"ICICIBANK":  8.62,
	"RELIANCE":   8.17,
	"INFY":       5.13,
	"BHARTIARTL": 4.34,
	"LT":         3.93,
	"ITC":        3.77,
	"TCS":        3.65,
	"AXISBANK":   3.18,
	"SBIN":       3.09,
	"M&M":        2.82,
	"KOTAKBANK":  2.76,
	"HINDUNILVR": 2.09,
	"BAJFINANCE": 2.02,
	"ZOMATO":     1.71,
	"SUNPHARMA":  1.70,
	"MARUTI":     1.67,
	"HCLTECH":    1.61,
	"NTPC":       1.53,
	"ULTRACEMCO": 1.37,
	"TITAN":      1.29,
	"TATAMOTORS": 1.27,
	"POWERGRID":  1.23,
	"ASIANPAINT": 1.18,
	"BAJAJFINSV": 1.13,
	"TRENT":      1.10,
	"ADANIPORTS": 1.07,
	"BEL":        1.05,
	"ONGC":       0.99,
	"COALINDIA":  0.93,
	"TATASTEEL":  0.93,
	"HINDALCO":   0.89,
	"NESTLEIND":  0.85,
	"GRASIM":     0.84,
	"JSWSTEEL":   0.81,
	"SBILIFE":    0.76,
	"TECHM":      0.76,
	"BAJAJ-AUTO": 0.74,
	"EICHERMOT":  0.70,
	"HDFCLIFE":   0.68,
	"SHRIRAMFIN": 0.67,
	"CIPLA":      0.65,
	"TATACONSUM": 0.60,
	"DRREDDY":    0.58,
	"APOLLOHOSP": 0.57,
	"WIPRO":      0.55,
	"ADANIENT":   0.54,
	"HEROMOTOCO": 0.49,
	"INDUSINDBK": 0.45,
	"BRITANNIA":  0.44,
}
