package domain

import (
	"time"
)

type Product struct {
	ID          string    `gorm:"type:uuid;primaryKey"            dynamodbav:"id"                    json:"id"`
	Name        string    `gorm:"not null"                        dynamodbav:"name"                  json:"name"`
	Description *string   `gorm:"type:text"                       dynamodbav:"description,omitempty" json:"description"`
	Price       float64   `gorm:"type:double precision;not null"  dynamodbav:"price"                 json:"price"`
	Quantity    int       `gorm:"not null;default:0"              dynamodbav:"quantity"              json:"quantity"`
	Image       *string   `gorm:"type:text"                       dynamodbav:"image,omitempty"       json:"image"`
	UserID      *string   `gorm:"index"                           dynamodbav:"user_id,omitempty"     json:"userId"`
	CreatedAt   time.Time `gorm:"index"                           dynamodbav:"created_at"            json:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updated_at"                json:"updatedAt"`
}

// InventoryValue is price × quantity. It is never stored.
func (p Product) InventoryValue() float64 {
	return p.Price * float64(p.Quantity)
}

// ProductPatch is a validated partial update. Nil pointers and unset
// optionals leave the column untouched.
type ProductPatch struct {
	Name        *string
	Description Optional[string]
	Price       *float64
	Quantity    *int
	Image       Optional[string]
	UpdatedAt   time.Time
}

// Apply copies every present field of the patch onto p.
func (p *Product) Apply(patch ProductPatch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description.Set {
		p.Description = patch.Description.Ptr()
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.Image.Set {
		p.Image = patch.Image.Ptr()
	}
	if !patch.UpdatedAt.IsZero() {
		p.UpdatedAt = patch.UpdatedAt
	}
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}
