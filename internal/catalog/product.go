// Package catalog models products the way the storefront tracks them:
// a product is either standalone (variants) or a couple pack (coupleA +
// coupleB, two halves stocked independently). Stock lives per variant
// color, per size label.
package catalog

import (
	"errors"
	"time"

	"github.com/stitchkart/checkout/internal/money"
)

var (
	ErrProductNotFound = errors.New("catalog: product not found")
	ErrVariantNotFound = errors.New("catalog: variant not found")
)

// ListKind names which variant list of a product a stock coordinate
// belongs to. Values double as the list_kind column.
type ListKind string

const (
	ListVariants ListKind = "variants"
	ListCoupleA  ListKind = "couple_a"
	ListCoupleB  ListKind = "couple_b"
)

// SizesStock maps a size label ("S", "M", ...) to units on hand.
// A missing label reads as zero; callers never see negative stock.
type SizesStock map[string]int

func (s SizesStock) Get(size string) int {
	if s == nil {
		return 0
	}
	return s[size]
}

type Variant struct {
	ColorName  string
	ColorHex   string
	FrontImage string
	BackImage  string
	SizesStock SizesStock
}

type Product struct {
	ID           string
	Name         string
	PriceCents   money.Cents
	IsCouplePack bool
	Variants     []Variant
	CoupleA      []Variant
	CoupleB      []Variant
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// List returns the variant slice for kind. Standalone products only use
// ListVariants; couple packs only the couple lists.
func (p *Product) List(kind ListKind) []Variant {
	switch kind {
	case ListCoupleA:
		return p.CoupleA
	case ListCoupleB:
		return p.CoupleB
	default:
		return p.Variants
	}
}

// FindVariant locates a variant by color within the given list, or nil.
func (p *Product) FindVariant(kind ListKind, colorName string) *Variant {
	vs := p.List(kind)
	for i := range vs {
		if vs[i].ColorName == colorName {
			return &vs[i]
		}
	}
	return nil
}
