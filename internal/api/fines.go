package api

import "net/http"

// PayFine handles POST /api/fines/pay. Fine payment is not offered.
func PayFine(w http.ResponseWriter, r *http.Request) {
	jsonError(w, http.StatusNotImplemented, "fine payment is not implemented")
}
