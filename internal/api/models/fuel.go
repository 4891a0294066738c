package models

// FuelPrice is the current price for one fuel type.
type FuelPrice struct {
	Fuel     string  `json:"fuel"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`

	// Unit is "liter" for liquid fuels and "m3" for CNG.
	Unit string `json:"unit"`
}

// FuelPrices lists current prices for every supported fuel.
type FuelPrices struct {
	Items []FuelPrice `json:"items"`
	Time  Timestamp   `json:"time"`
}
