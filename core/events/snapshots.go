package events

const (
	// KindCartData identifies a cart contents snapshot.
	KindCartData Kind = "CART_DATA"
	// KindMenuData identifies a menu snapshot.
	KindMenuData Kind = "MENU_DATA"
	// KindSearchResults identifies a search results snapshot.
	KindSearchResults Kind = "SEARCH_RESULTS"
	// KindOrderData identifies an order status snapshot.
	KindOrderData Kind = "ORDER_DATA"
)

// CartItem is a single cart line.
type CartItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// CartData is a point-in-time snapshot of the cart. A fresh snapshot
// replaces any previously rendered one.
type CartData struct {
	Base
	Items    []CartItem
	Total    float64
	Currency string
}

// NewCartData creates a cart snapshot event.
func NewCartData(items []CartItem, total float64, currency string) CartData {
	return CartData{Base: NewBase(KindCartData), Items: items, Total: total, Currency: currency}
}

// MenuItem is a single orderable menu entry.
type MenuItem struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Category    string  `json:"category,omitempty"`
}

// MenuData is a snapshot of the restaurant menu.
type MenuData struct {
	Base
	Categories []string
	Items      []MenuItem
}

// NewMenuData creates a menu snapshot event.
func NewMenuData(categories []string, items []MenuItem) MenuData {
	return MenuData{Base: NewBase(KindMenuData), Categories: categories, Items: items}
}

// SearchResults is a snapshot of menu search results for a query.
type SearchResults struct {
	Base
	Query string
	Items []MenuItem
}

// NewSearchResults creates a search results snapshot event.
func NewSearchResults(query string, items []MenuItem) SearchResults {
	return SearchResults{Base: NewBase(KindSearchResults), Query: query, Items: items}
}

// Order describes the state of a placed order.
type Order struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Items  []CartItem `json:"items,omitempty"`
	Total  float64    `json:"total"`
}

// OrderData is a snapshot of the current order.
type OrderData struct {
	Base
	Order Order
}

// NewOrderData creates an order snapshot event.
func NewOrderData(order Order) OrderData {
	return OrderData{Base: NewBase(KindOrderData), Order: order}
}
