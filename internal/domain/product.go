package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Price       float64            `bson:"price" json:"price"`
	Image       string             `bson:"image" json:"image"`
	Category    string             `bson:"category" json:"category"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ProductSummary is the product view embedded in cart lines.
type ProductSummary struct {
	ID    primitive.ObjectID `json:"id"`
	Title string             `json:"title"`
	Price float64            `json:"price"`
	Image string             `json:"image"`
}

func (p *Product) Summary() *ProductSummary {
	return &ProductSummary{
		ID:    p.ID,
		Title: p.Title,
		Price: p.Price,
		Image: p.Image,
	}
}

// ProductPatch holds the fields of a partial product update; nil means unchanged.
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *float64
	Image       *string
	Category    *string
}

// Apply copies the set fields of patch onto p.
func (p *Product) Apply(patch ProductPatch) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
}
