package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/stitchkart/checkout/internal/catalog"
	"github.com/stitchkart/checkout/internal/redisx"
)

type ProductLoader interface {
	GetProduct(ctx context.Context, productID string) (*catalog.Product, error)
}

// StockHandler serves the live stock view the storefront polls while a
// cart is open. Read-through cached; the ledger invalidates the key on
// every applied decrement.
type StockHandler struct {
	Catalog ProductLoader
	Redis   *redis.Client
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Get("/products/{id}/stock", h.productStock)
}

type variantStockResp struct {
	ColorName  string         `json:"color_name"`
	ColorHex   string         `json:"color_hex"`
	SizesStock map[string]int `json:"sizes_stock"`
}

type productStockResp struct {
	ProductID    string             `json:"product_id"`
	IsCouplePack bool               `json:"is_couple_pack"`
	Variants     []variantStockResp `json:"variants,omitempty"`
	CoupleA      []variantStockResp `json:"couple_a,omitempty"`
	CoupleB      []variantStockResp `json:"couple_b,omitempty"`
}

func (h *StockHandler) productStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyProductStock, productID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	p, err := h.Catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	} else if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		return
	}

	resp := productStockResp{
		ProductID:    p.ID,
		IsCouplePack: p.IsCouplePack,
		Variants:     toVariantStock(p.Variants),
		CoupleA:      toVariantStock(p.CoupleA),
		CoupleB:      toVariantStock(p.CoupleB),
	}
	body, _ := json.Marshal(resp)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLProductStock).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func toVariantStock(vs []catalog.Variant) []variantStockResp {
	out := make([]variantStockResp, 0, len(vs))
	for _, v := range vs {
		out = append(out, variantStockResp{
			ColorName:  v.ColorName,
			ColorHex:   v.ColorHex,
			SizesStock: v.SizesStock,
		})
	}
	return out
}
