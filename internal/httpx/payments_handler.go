package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stitchkart/checkout/internal/checkout"
)

// PaymentsHandler exposes the storefront-facing payment helpers: the
// publishable key id and a bare signature check (no order side effects).
type PaymentsHandler struct {
	Verifier checkout.SignatureVerifier
	KeyID    string
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Get("/payments/config", h.config)
	r.Post("/payments/verify", h.verify)
}

func (h *PaymentsHandler) config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"key_id":     h.KeyID,
		"configured": h.KeyID != "",
	})
}

type verifyReq struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (h *PaymentsHandler) verify(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	valid := h.Verifier != nil && h.Verifier.Verify(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	writeJSON(w, http.StatusOK, map[string]bool{"valid": valid})
}
