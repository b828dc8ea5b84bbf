package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	msgNameAndPriceRequired = "Name and price are required"
	msgNameEmpty            = "Name must not be empty"
	msgInvalidPrice         = "Price must be a non-negative number"
	msgInvalidQuantity      = "Quantity must be a non-negative integer"
)

// ImageFile is an uploaded image staged on local disk, waiting to be
// forwarded to the media store.
type ImageFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
}

// ProductFields are the client-writable product attributes. Image is a URL
// supplied directly; File is an uploaded image and wins over Image.
type ProductFields struct {
	Name        Optional[string]  `json:"name"`
	Description Optional[string]  `json:"description"`
	Price       Optional[Numeric] `json:"price"`
	Quantity    Optional[Numeric] `json:"quantity"`
	Image       Optional[string]  `json:"image"`
	File        *ImageFile        `json:"-"`
}

type CreateProductInput struct {
	ProductFields
	// UserID is the authenticated caller, empty for anonymous writes.
	UserID string `json:"-"`
}

type UpdateProductInput struct {
	ProductFields
}

// Validate checks a create request and returns the product to persist,
// without id, owner or timestamps.
func (in CreateProductInput) Validate() (*Product, error) {
	if !in.Name.HasValue() || strings.TrimSpace(in.Name.Value) == "" || !in.Price.HasValue() {
		return nil, NewValidationError(msgNameAndPriceRequired)
	}

	price, err := ParsePrice(in.Price.Value)
	if err != nil {
		return nil, err
	}

	quantity := 0
	if in.Quantity.Set {
		if in.Quantity.Null {
			return nil, NewValidationError(msgInvalidQuantity)
		}
		if quantity, err = ParseQuantity(in.Quantity.Value); err != nil {
			return nil, err
		}
	}

	return &Product{
		Name:        strings.TrimSpace(in.Name.Value),
		Description: nonEmpty(in.Description),
		Price:       price,
		Quantity:    quantity,
		Image:       nonEmpty(in.Image),
	}, nil
}

// Validate checks an update request. Only fields present in the request end
// up in the patch.
func (in UpdateProductInput) Validate(now time.Time) (ProductPatch, error) {
	patch := ProductPatch{UpdatedAt: now}

	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		if in.Name.Null || name == "" {
			return ProductPatch{}, NewValidationError(msgNameEmpty)
		}
		patch.Name = &name
	}

	patch.Description = in.Description

	if in.Price.Set {
		if in.Price.Null {
			return ProductPatch{}, NewValidationError(msgInvalidPrice)
		}
		price, err := ParsePrice(in.Price.Value)
		if err != nil {
			return ProductPatch{}, err
		}
		patch.Price = &price
	}

	if in.Quantity.Set {
		if in.Quantity.Null {
			return ProductPatch{}, NewValidationError(msgInvalidQuantity)
		}
		quantity, err := ParseQuantity(in.Quantity.Value)
		if err != nil {
			return ProductPatch{}, err
		}
		patch.Quantity = &quantity
	}

	patch.Image = in.Image

	return patch, nil
}

// ParsePrice accepts any finite, non-negative decimal.
func ParsePrice(n Numeric) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, NewValidationError(msgInvalidPrice)
	}
	return v, nil
}

// ParseQuantity accepts non-negative whole numbers, including forms like
// "7.0" or 1e2 that some clients produce.
func ParseQuantity(n Numeric) (int, error) {
	s := strings.TrimSpace(string(n))
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return 0, NewValidationError(msgInvalidQuantity)
		}
		return v, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return 0, NewValidationError(msgInvalidQuantity)
	}
	return int(v), nil
}

func nonEmpty(o Optional[string]) *string {
	if !o.HasValue() || o.Value == "" {
		return nil
	}
	v := o.Value
	return &v
}
