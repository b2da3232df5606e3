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
	"go.uber.org/zap"

	"github.com/stitchkart/checkout/internal/checkout"
	"github.com/stitchkart/checkout/internal/money"
	"github.com/stitchkart/checkout/internal/orders"
	"github.com/stitchkart/checkout/internal/redisx"
	"github.com/stitchkart/checkout/internal/stock"
)

type OrdersHandler struct {
	Service *checkout.Service
	Redis   *redis.Client
	Log     *zap.Logger
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders/cod", h.createCODOrder)
	r.Post("/orders/razorpay/verify", h.createVerifiedOrder)
	r.Get("/orders/my-orders", h.myOrders)
	r.Get("/orders/{id}", h.getOrder)

	r.Get("/admin/orders", h.allOrdersSplit)
	r.Put("/admin/orders/{id}/deliver", h.markDelivered)
	r.Put("/admin/orders/{id}/pay", h.markPaid)
	r.Get("/admin/stats", h.stats)
}

/* ---------- request / response shapes ---------- */

type lineItemReq struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitCents int64  `json:"unit_cents"`
	Qty       int    `json:"qty"`

	// Standalone selection.
	SelectedColor string `json:"selected_color,omitempty"`
	SelectedSize  string `json:"selected_size,omitempty"`

	// Couple-pack selection; presence of either A or B color marks the
	// item as a couple pack. Resolved here once, never re-inspected.
	SelectedColorA string `json:"selected_color_a,omitempty"`
	SelectedSizeA  string `json:"selected_size_a,omitempty"`
	SelectedColorB string `json:"selected_color_b,omitempty"`
	SelectedSizeB  string `json:"selected_size_b,omitempty"`
}

func (it lineItemReq) toDomain() (orders.LineItem, error) {
	qty, err := money.NewQuantity(it.Qty)
	if err != nil {
		return orders.LineItem{}, err
	}
	unit, err := money.NewCents(it.UnitCents)
	if err != nil {
		return orders.LineItem{}, err
	}
	item := orders.LineItem{
		ProductID: it.ProductID,
		Name:      it.Name,
		UnitCents: unit,
		Qty:       qty,
	}
	if it.SelectedColorA != "" || it.SelectedColorB != "" {
		item.Kind = orders.KindCouplePack
		item.ColorA, item.SizeA = it.SelectedColorA, it.SelectedSizeA
		item.ColorB, item.SizeB = it.SelectedColorB, it.SelectedSizeB
	} else {
		item.Kind = orders.KindStandalone
		item.Color, item.Size = it.SelectedColor, it.SelectedSize
	}
	return item, nil
}

type addressReq struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a addressReq) toDomain() orders.Address {
	return orders.Address(a)
}

type createOrderReq struct {
	Items           []lineItemReq `json:"items"`
	ShippingAddress addressReq    `json:"shipping_address"`
	ItemsCents      int64         `json:"items_cents"`
	ShippingCents   int64         `json:"shipping_cents"`
	TaxCents        int64         `json:"tax_cents"`
	TotalCents      int64         `json:"total_cents"`

	// Gateway fields, verify endpoint only.
	RazorpayOrderID   string `json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `json:"razorpay_payment_id,omitempty"`
	RazorpaySignature string `json:"razorpay_signature,omitempty"`
}

func (req createOrderReq) pricing() (orders.Pricing, error) {
	items, err := money.NewCents(req.ItemsCents)
	if err != nil {
		return orders.Pricing{}, err
	}
	shipping, err := money.NewCents(req.ShippingCents)
	if err != nil {
		return orders.Pricing{}, err
	}
	tax, err := money.NewCents(req.TaxCents)
	if err != nil {
		return orders.Pricing{}, err
	}
	total, err := money.NewCents(req.TotalCents)
	if err != nil {
		return orders.Pricing{}, err
	}
	return orders.Pricing{ItemsCents: items, ShippingCents: shipping, TaxCents: tax, TotalCents: total}, nil
}

func (req createOrderReq) lineItems() ([]orders.LineItem, error) {
	out := make([]orders.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		item, err := it.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

type stockIssueResp struct {
	ProductID string `json:"product_id"`
	List      string `json:"list"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
	Outcome   string `json:"outcome"`
}

type orderResp struct {
	ID              string            `json:"id"`
	BuyerID         string            `json:"buyer_id"`
	Items           []lineItemReq     `json:"items"`
	ShippingAddress addressReq        `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	ItemsCents      int64             `json:"items_cents"`
	ShippingCents   int64             `json:"shipping_cents"`
	TaxCents        int64             `json:"tax_cents"`
	TotalCents      int64             `json:"total_cents"`
	IsPaid          bool              `json:"is_paid"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	IsDelivered     bool              `json:"is_delivered"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty"`
	PaymentResult   map[string]string `json:"payment_result,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toOrderResp(o *orders.Order) orderResp {
	resp := orderResp{
		ID:              o.ID,
		BuyerID:         o.BuyerID,
		ShippingAddress: addressReq(o.ShippingAddress),
		PaymentMethod:   string(o.PaymentMethod),
		ItemsCents:      o.Pricing.ItemsCents.Int64(),
		ShippingCents:   o.Pricing.ShippingCents.Int64(),
		TaxCents:        o.Pricing.TaxCents.Int64(),
		TotalCents:      o.Pricing.TotalCents.Int64(),
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		CreatedAt:       o.CreatedAt,
	}
	for _, it := range o.Items {
		li := lineItemReq{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitCents: it.UnitCents.Int64(),
			Qty:       it.Qty.Int(),
		}
		if it.Kind == orders.KindCouplePack {
			li.SelectedColorA, li.SelectedSizeA = it.ColorA, it.SizeA
			li.SelectedColorB, li.SelectedSizeB = it.ColorB, it.SizeB
		} else {
			li.SelectedColor, li.SelectedSize = it.Color, it.Size
		}
		resp.Items = append(resp.Items, li)
	}
	if pr := o.PaymentResult; pr != nil {
		resp.PaymentResult = map[string]string{
			"razorpay_order_id":   pr.GatewayOrderID,
			"razorpay_payment_id": pr.GatewayPaymentID,
			"status":              pr.Status,
		}
	}
	return resp
}

func toStockIssues(rs []stock.Result) []stockIssueResp {
	out := make([]stockIssueResp, 0, len(rs))
	for _, r := range rs {
		out = append(out, stockIssueResp{
			ProductID: r.ProductID,
			List:      string(r.Selector.List),
			Color:     r.Selector.Color,
			Size:      r.Selector.Size,
			Qty:       r.Selector.Qty,
			Outcome:   string(r.Outcome),
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *OrdersHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrInvalidOrder), errors.Is(err, money.ErrInvalidQuantity), errors.Is(err, money.ErrNegativeAmount):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, checkout.ErrPaymentInvalid):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
	case errors.Is(err, orders.ErrInvalidTransition):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "only COD orders can be marked paid manually"})
	case errors.Is(err, orders.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	default:
		h.log().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
	}
}

/* ---------- checkout ---------- */

func (h *OrdersHandler) createCODOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := requireUser(w, r)
	if buyerID == "" {
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := req.lineItems()
	if err != nil {
		h.writeError(w, err)
		return
	}
	pricing, err := req.pricing()
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.Service.CreateCODOrder(ctx, buyerID, items, req.ShippingAddress.toDomain(), pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":        toOrderResp(res.Order),
		"stock_issues": toStockIssues(res.StockIssues),
	})
}

func (h *OrdersHandler) createVerifiedOrder(w http.ResponseWriter, r *http.Request) {
	buyerID := requireUser(w, r)
	if buyerID == "" {
		return
	}
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	items, err := req.lineItems()
	if err != nil {
		h.writeError(w, err)
		return
	}
	pricing, err := req.pricing()
	if err != nil {
		h.writeError(w, err)
		return
	}
	res, err := h.Service.CreateVerifiedOrder(ctx, buyerID,
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature,
		items, req.ShippingAddress.toDomain(), pricing)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":        toOrderResp(res.Order),
		"stock_issues": toStockIssues(res.StockIssues),
	})
}

/* ---------- reads ---------- */

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	if requireUser(w, r) == "" {
		return
	}
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Cache fast path; the DB stays the source of truth.
	key := fmt.Sprintf(redisx.KeyOrderView, orderID)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	o, err := h.Service.GetOrder(ctx, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	body, _ := json.Marshal(toOrderResp(o))
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLOrderView).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *OrdersHandler) myOrders(w http.ResponseWriter, r *http.Request) {
	buyerID := requireUser(w, r)
	if buyerID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Service.ListOrdersForBuyer(ctx, buyerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": toOrderResps(os)})
}

/* ---------- admin ---------- */

func (h *OrdersHandler) allOrdersSplit(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	razorpay, cod, err := h.Service.ListAllOrdersSplitByMethod(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	all := make([]orderResp, 0, len(razorpay)+len(cod))
	all = append(all, toOrderResps(razorpay)...)
	all = append(all, toOrderResps(cod)...)
	writeJSON(w, http.StatusOK, map[string]any{
		"razorpay_orders": toOrderResps(razorpay),
		"cod_orders":      toOrderResps(cod),
		"all_orders":      all,
	})
}

func (h *OrdersHandler) markDelivered(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	h.transition(w, r, h.Service.MarkDelivered)
}

func (h *OrdersHandler) markPaid(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	h.transition(w, r, h.Service.MarkPaid)
}

func (h *OrdersHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (*orders.Order, error)) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := fn(ctx, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	// The cached view is stale after a transition.
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderView, orderID)).Err()
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": toOrderResp(o)})
}

func (h *OrdersHandler) stats(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.Service.ComputeStats(ctx)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats": map[string]any{
			"total_orders":       st.TotalOrders,
			"delivered_orders":   st.DeliveredOrders,
			"pending_deliveries": st.PendingDeliveries,
			"total_revenue":      st.RevenueCents.Int64(),
			"total_products":     st.TotalProducts,
		},
	})
}

func toOrderResps(os []*orders.Order) []orderResp {
	out := make([]orderResp, 0, len(os))
	for _, o := range os {
		out = append(out, toOrderResp(o))
	}
	return out
}

func (h *OrdersHandler) log() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}
