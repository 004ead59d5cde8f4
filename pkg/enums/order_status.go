package enums

// OrderStatus tracks a materialized gift order through the payment collaborator.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFailed    OrderStatus = "failed"
)

func (o OrderStatus) IsValid() bool {
	switch o {
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusFailed:
		return true
	default:
		return false
	}
}
