package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// LoansHandler handles circulation endpoints.
type LoansHandler struct {
	DB *sql.DB
}

type issueRequest struct {
	ItemID    int64  `json:"item_id"`
	Borrower  string `json:"borrower"`
	IssueDate string `json:"issue_date"`
	DueDate   string `json:"due_date"`
}

type returnRequest struct {
	ItemID     int64  `json:"item_id"`
	UserID     int64  `json:"user_id"`
	ReturnDate string `json:"return_date"`
}

type loanResponse struct {
	Loan         *model.Loan `json:"loan"`
	Confirmation string      `json:"confirmation"`
}

// Issue handles POST /api/loans. The borrower is an e-mail address or a
// first name. The issue date defaults to today and the due date to
// model.DefaultLoanPeriod after it.
func (h *LoansHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	issued, err := parseDate(req.IssueDate, today())
	if err != nil {
		jsonError(w, http.StatusBadRequest, "issue_date must be YYYY-MM-DD")
		return
	}
	due, err := parseDate(req.DueDate, issued.Add(model.DefaultLoanPeriod))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}

	loan, err := store.IssueItem(r.Context(), h.DB, req.ItemID, req.Borrower, issued, due)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item issued", "loan_id", loan.ID, "item_id", loan.ItemID, "user_id", loan.UserID)
	jsonResponse(w, http.StatusCreated, loanResponse{Loan: loan, Confirmation: loan.Confirmation()})
}

// Return handles POST /api/loans/return. The return date defaults to today.
func (h *LoansHandler) Return(w http.ResponseWriter, r *http.Request) {
	var req returnRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	returned, err := parseDate(req.ReturnDate, today())
	if err != nil {
		jsonError(w, http.StatusBadRequest, "return_date must be YYYY-MM-DD")
		return
	}

	loan, err := store.ReturnItem(r.Context(), h.DB, req.ItemID, req.UserID, returned)
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item returned", "loan_id", loan.ID, "item_id", loan.ItemID, "user_id", loan.UserID)
	jsonResponse(w, http.StatusOK, loanResponse{Loan: loan, Confirmation: loan.Confirmation()})
}

// ItemHistory handles GET /api/items/{id}/loans.
func (h *LoansHandler) ItemHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	h.list(w, r, id, 0)
}

// Mine handles GET /api/me/loans. With ?open=true only open loans are listed.
func (h *LoansHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	h.list(w, r, 0, claims.UserID)
}

func (h *LoansHandler) list(w http.ResponseWriter, r *http.Request, itemID, userID int64) {
	openOnly, _ := strconv.ParseBool(r.URL.Query().Get("open"))

	loans, err := store.ListLoans(r.Context(), h.DB, itemID, userID, openOnly)
	if err != nil {
		storeError(w, err)
		return
	}
	if loans == nil {
		loans = []model.Loan{}
	}
	jsonResponse(w, http.StatusOK, loans)
}
