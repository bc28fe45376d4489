package rapidapi

// SearchProduct is one product in a RapidAPI search response.
// Field names follow the proxy's snake_case payload.
type SearchProduct struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Brand       string  `json:"brand"`
	Colorway    string  `json:"colorway"`
	RetailPrice float64 `json:"retail_price"`
	Market      *Market `json:"market,omitempty"`
	Image       *Image  `json:"image,omitempty"`
	URLKey      string  `json:"urlKey"`
}

// Market holds marketplace pricing; either field may be absent.
type Market struct {
	LastSale  float64 `json:"last_sale,omitempty"`
	LowestAsk float64 `json:"lowest_ask,omitempty"`
}

// Image holds product imagery variants.
type Image struct {
	Small string `json:"small,omitempty"`
}

// SearchData is the payload of a search response.
type SearchData struct {
	Products []SearchProduct `json:"products"`
}

// SearchResponse is the wire envelope of a search response.
type SearchResponse struct {
	Data SearchData `json:"data"`
}
