package models

import (
	"time"

	"github.com/Renal37/marketdesk/internal/gateway"
	"github.com/Renal37/marketdesk/internal/utils"
)

// Кодек между документами шлюза и моделями. Единственное место, где
// принимаются легаси-имена полей старого писателя оформления заказа
// (orderStatus, pricePerUnit); везде дальше схема каноническая.

func OrderFromRecord(r gateway.Record) Order {
	fields := r.Fields

	status := stringField(fields, "status")
	if status == "" {
		status = stringField(fields, "orderStatus")
	}

	order := Order{
		ID:            r.ID,
		Status:        OrderStatus(status),
		DispatchPhoto: stringField(fields, "dispatchPhoto"),
		DispatchNote:  stringField(fields, "dispatchNote"),
		DispatchedBy:  stringField(fields, "dispatchedBy"),
		ConfirmedAt:   timeField(fields, "confirmedAt"),
		DispatchedAt:  timeField(fields, "dispatchedAt"),
		DeliveredAt:   timeField(fields, "deliveredAt"),
		CancelledAt:   timeField(fields, "cancelledAt"),
	}

	if createdAt := timeField(fields, "createdAt"); createdAt != nil {
		order.CreatedAt = *createdAt
	} else {
		order.CreatedAt = utils.NewRFC3339Date(r.CreatedAt)
	}

	if buyer := mapField(fields, "buyer"); buyer != nil {
		order.Buyer = Buyer{
			ID:      stringField(buyer, "id"),
			Name:    stringField(buyer, "name"),
			Address: stringField(buyer, "address"),
		}
	}

	for _, raw := range sliceField(fields, "items") {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		price, ok := floatField(item, "price")
		if !ok {
			price, _ = floatField(item, "pricePerUnit")
		}

		lineItem := LineItem{
			ProductID:    stringField(item, "productId"),
			SellerID:     stringField(item, "sellerId"),
			ProductName:  stringField(item, "productName"),
			ProductImage: stringField(item, "productImage"),
			UnitPrice:    price,
			Quantity:     intField(item, "quantity"),
		}

		if variation := mapField(item, "variation"); variation != nil {
			lineItem.Variation = &Variation{
				Label: stringField(variation, "label"),
				Value: stringField(variation, "value"),
			}
		}

		order.Items = append(order.Items, lineItem)
	}

	return order
}

// Fields возвращает полный документ заказа. Используется писателем
// оформления заказа и тестами; движок жизненного цикла пишет только
// частичные обновления.
func (o Order) Fields() map[string]any {
	items := make([]any, 0, len(o.Items))
	for _, item := range o.Items {
		encoded := map[string]any{
			"productId":   item.ProductID,
			"sellerId":    item.SellerID,
			"productName": item.ProductName,
			"price":       item.UnitPrice,
			"quantity":    item.Quantity,
		}
		if item.ProductImage != "" {
			encoded["productImage"] = item.ProductImage
		}
		if item.Variation != nil {
			encoded["variation"] = map[string]any{
				"label": item.Variation.Label,
				"value": item.Variation.Value,
			}
		}
		items = append(items, encoded)
	}

	fields := map[string]any{
		"status": string(o.Status),
		"buyer": map[string]any{
			"id":      o.Buyer.ID,
			"name":    o.Buyer.Name,
			"address": o.Buyer.Address,
		},
		"items":     items,
		"createdAt": o.CreatedAt.Format(time.RFC3339),
	}

	if o.DispatchPhoto != "" {
		fields["dispatchPhoto"] = o.DispatchPhoto
	}
	if o.DispatchNote != "" {
		fields["dispatchNote"] = o.DispatchNote
	}
	if o.DispatchedBy != "" {
		fields["dispatchedBy"] = o.DispatchedBy
	}

	putTime(fields, "confirmedAt", o.ConfirmedAt)
	putTime(fields, "dispatchedAt", o.DispatchedAt)
	putTime(fields, "deliveredAt", o.DeliveredAt)
	putTime(fields, "cancelledAt", o.CancelledAt)

	return fields
}

func ProductFromRecord(r gateway.Record) Product {
	fields := r.Fields

	price, ok := floatField(fields, "price")
	if !ok {
		price, _ = floatField(fields, "pricePerUnit")
	}

	product := Product{
		ID:       r.ID,
		SellerID: stringField(fields, "sellerId"),
		Name:     stringField(fields, "name"),
		Price:    price,
		Stock:    intField(fields, "stock"),
	}

	for _, raw := range sliceField(fields, "images") {
		if image, ok := raw.(string); ok {
			product.Images = append(product.Images, image)
		}
	}

	return product
}

func (p Product) Fields() map[string]any {
	fields := map[string]any{
		"sellerId": p.SellerID,
		"name":     p.Name,
		"price":    p.Price,
		"stock":    p.Stock,
	}
	if len(p.Images) > 0 {
		images := make([]any, 0, len(p.Images))
		for _, image := range p.Images {
			images = append(images, image)
		}
		fields["images"] = images
	}
	return fields
}

func NotificationFromRecord(r gateway.Record) Notification {
	fields := r.Fields

	notification := Notification{
		ID:      r.ID,
		UserID:  stringField(fields, "userId"),
		OrderID: stringField(fields, "orderId"),
		Type:    NotificationType(stringField(fields, "type")),
		Title:   stringField(fields, "title"),
		Message: stringField(fields, "message"),
		Read:    boolField(fields, "read"),
	}

	if createdAt := timeField(fields, "createdAt"); createdAt != nil {
		notification.CreatedAt = *createdAt
	} else {
		notification.CreatedAt = utils.NewRFC3339Date(r.CreatedAt)
	}

	return notification
}

func (n Notification) Fields() map[string]any {
	fields := map[string]any{
		"userId":  n.UserID,
		"type":    string(n.Type),
		"title":   n.Title,
		"message": n.Message,
		"read":    n.Read,
	}
	if n.OrderID != "" {
		fields["orderId"] = n.OrderID
	}
	return fields
}

func UserFromRecord(r gateway.Record) User {
	return User{
		ID:    r.ID,
		Login: stringField(r.Fields, "login"),
		Name:  stringField(r.Fields, "name"),
		Hash:  stringField(r.Fields, "hash"),
	}
}

func (u User) Fields() map[string]any {
	return map[string]any{
		"login": u.Login,
		"name":  u.Name,
		"hash":  u.Hash,
	}
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}

func boolField(fields map[string]any, key string) bool {
	value, _ := fields[key].(bool)
	return value
}

func mapField(fields map[string]any, key string) map[string]any {
	value, _ := fields[key].(map[string]any)
	return value
}

func sliceField(fields map[string]any, key string) []any {
	value, _ := fields[key].([]any)
	return value
}

func floatField(fields map[string]any, key string) (float64, bool) {
	switch value := fields[key].(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	}
	return 0, false
}

func intField(fields map[string]any, key string) int {
	value, ok := floatField(fields, key)
	if !ok {
		return 0
	}
	return int(value)
}

func timeField(fields map[string]any, key string) *utils.RFC3339Date {
	switch value := fields[key].(type) {
	case string:
		parsed, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return nil
		}
		date := utils.NewRFC3339Date(parsed)
		return &date
	case time.Time:
		date := utils.NewRFC3339Date(value)
		return &date
	}
	return nil
}

func putTime(fields map[string]any, key string, date *utils.RFC3339Date) {
	if date != nil {
		fields[key] = date.Format(time.RFC3339)
	}
}
