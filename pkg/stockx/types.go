package stockx

// CatalogProduct is a single product in a catalog search response.
type CatalogProduct struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Brand       string  `json:"brand"`
	Colorway    string  `json:"colorway"`
	RetailPrice float64 `json:"retailPrice"`
	Market      Market  `json:"market"`
	Media       Media   `json:"media"`
	URLKey      string  `json:"urlKey"`
	Traits      []Trait `json:"traits,omitempty"`
}

// Market holds current marketplace pricing for a product.
type Market struct {
	LowestAsk float64 `json:"lowestAsk"`
	LastSale  float64 `json:"lastSale"`
}

// Media holds product imagery.
type Media struct {
	ImageURL string `json:"imageUrl,omitempty"`
}

// Trait is a named product attribute (e.g. "Style", "Retail Price").
type Trait struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Pagination carries catalog search paging state.
type Pagination struct {
	HasNext bool   `json:"hasNext"`
	Cursor  string `json:"cursor,omitempty"`
}

// SearchData is the payload of a catalog search response.
type SearchData struct {
	Products   []CatalogProduct `json:"products"`
	Pagination Pagination       `json:"pagination"`
}

// SearchResponse is the wire envelope of a catalog search response.
type SearchResponse struct {
	Data SearchData `json:"data"`
}
