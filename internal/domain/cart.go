package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the per-user shopping cart. TotalPrice is derived from the current
// product prices and is recomputed after every mutation.
type Cart struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID     string             `bson:"user_id" json:"userId"`
	Items      []CartItem         `bson:"items" json:"items"`
	TotalPrice float64            `bson:"total_price" json:"totalPrice"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MaxItemQuantity caps the quantity of a single cart line.
const MaxItemQuantity = 99

type CartItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`

	// Product is only resolved when the cart is read, never persisted.
	Product *ProductSummary `bson:"-" json:"product,omitempty"`
}

// NewCart returns an empty cart for userID.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Items:  []CartItem{},
	}
}

// FindItem returns the index of the line holding productID, or -1.
func (c *Cart) FindItem(productID primitive.ObjectID) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Clear drops every line and zeroes the total.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.TotalPrice = 0
}
