package domain

import (
	"encoding/xml"
	"time"

	"github.com/shopspring/decimal"
)

// OrderDocument is the hierarchical export form of an order. Element order
// follows the JSON form: id, user_id, items, total, status, created_at.
type OrderDocument struct {
	XMLName   xml.Name            `xml:"order"`
	ID        int64               `xml:"id"`
	UserID    int64               `xml:"user_id"`
	Items     []OrderItemDocument `xml:"items>item"`
	Total     decimal.Decimal     `xml:"total"`
	Status    OrderStatus         `xml:"status"`
	CreatedAt time.Time           `xml:"created_at"`
}

type OrderItemDocument struct {
	ProductID   int64           `xml:"product_id"`
	ProductName string          `xml:"product_name"`
	Quantity    int64           `xml:"quantity"`
	UnitPrice   decimal.Decimal `xml:"unit_price"`
	TotalPrice  decimal.Decimal `xml:"total_price"`
}

// Document builds the export form of o.
func (o Order) Document() OrderDocument {
	items := make([]OrderItemDocument, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDocument{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return OrderDocument{
		ID:        o.ID,
		UserID:    o.UserID,
		Items:     items,
		Total:     o.Total,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
}

// Encode marshals the document with an XML declaration header.
func (d OrderDocument) Encode() ([]byte, error) {
	b, err := xml.Marshal(d)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
