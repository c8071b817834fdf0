package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus defines possible order statuses
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "NEW"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS" // Picking started
	OrderStatusCompleted  OrderStatus = "COMPLETED"   // Every item fully collected
	OrderStatusOnHold     OrderStatus = "ON_HOLD"     // Picked with shortfalls
)

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusNew, OrderStatusInProgress, OrderStatusCompleted, OrderStatusOnHold:
		return true
	}
	return false
}

// OrderItemStatus defines the picking state of one order line
type OrderItemStatus string

const (
	OrderItemStatusPending    OrderItemStatus = "PENDING"
	OrderItemStatusInProgress OrderItemStatus = "IN_PROGRESS"
	OrderItemStatusCompleted  OrderItemStatus = "COMPLETED"
	OrderItemStatusOutOfStock OrderItemStatus = "OUT_OF_STOCK" // Partial or zero fulfillment
)

// Order is a customer request picked from the warehouse
type Order struct {
	ID              string      `gorm:"primaryKey;type:uuid" json:"id"`
	OrderNumber     string      `gorm:"uniqueIndex;not null" json:"orderNumber"`
	Status          OrderStatus `gorm:"type:varchar(20);default:'NEW';index" json:"status"`
	InvoiceNumber   string      `gorm:"index" json:"invoiceNumber,omitempty"`
	CustomerName    string      `gorm:"index" json:"customerName"`
	CustomerContact string      `json:"customerContact,omitempty"`
	Notes           string      `gorm:"type:text" json:"notes,omitempty"`

	// Follow-up task requests raised while picking, e.g. "verify slot 12,05,00,00"
	Tasks datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"tasks"`

	// Derived: round(100 * sum(collected) / sum(required)), recomputed when picking finishes
	Progress int `gorm:"default:0" json:"progress"`

	AssignedTo *string `gorm:"type:uuid;index" json:"assignedTo,omitempty"`

	StartedAt   *time.Time     `json:"startedAt,omitempty"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Items        []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	AssignedUser *User       `gorm:"foreignKey:AssignedTo" json:"assignedUser,omitempty"`
}

// TableName specifies the table name for Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate generates the ID and order number before creating
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber(time.Now())
	}
	if o.Status == "" {
		o.Status = OrderStatusNew
	}
	if o.Tasks == nil {
		o.Tasks = datatypes.JSONSlice[string]{}
	}
	return nil
}

// GenerateOrderNumber creates an order number like ORD20250615-1A2B3C
func GenerateOrderNumber(now time.Time) string {
	suffix := uuid.New().String()[:6]
	return fmt.Sprintf("ORD%s-%s", now.Format("20060102"), suffix)
}

// Clone returns a deep copy of the order and its items
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	c.Tasks = append(datatypes.JSONSlice[string]{}, o.Tasks...)
	if o.AssignedTo != nil {
		v := *o.AssignedTo
		c.AssignedTo = &v
	}
	c.AssignedUser = nil
	return &c
}

// OrderItem is one line of an order
type OrderItem struct {
	ID                string          `gorm:"primaryKey;type:uuid" json:"id"`
	OrderID           string          `gorm:"type:uuid;not null;index" json:"orderId"`
	Position          int             `gorm:"not null;default:0" json:"position"` // Picking sequence
	SKU               string          `gorm:"index;not null" json:"sku"`
	Name              string          `json:"name"`
	Quantity          int             `gorm:"not null" json:"quantity"`
	QuantityCollected int             `gorm:"default:0" json:"quantityCollected"`
	AvailableQuantity int             `gorm:"default:0" json:"availableQuantity"`
	Location          string          `json:"location"` // Format: 12,05,00,00
	Status            OrderItemStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	ImageURL          string          `json:"imageUrl,omitempty"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName specifies the table name for OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Status == "" {
		i.Status = OrderItemStatusPending
	}
	return nil
}

// MaxCollectable is the most that can be collected for this line
func (i OrderItem) MaxCollectable() int {
	max := i.Quantity
	if i.AvailableQuantity < max {
		max = i.AvailableQuantity
	}
	if max < 0 {
		return 0
	}
	return max
}
