package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/knjiznica/internal/imaging"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// ItemsHandler handles catalog endpoints.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	Name         string `json:"name"`
	Author       string `json:"author"`
	SerialNumber string `json:"serial_number"`
	Type         string `json:"type"`
	AddedDate    string `json:"added_date"`
}

type itemDetail struct {
	model.Item
	AuthorName string `json:"author_name"`
	Available  bool   `json:"available"`
}

// List handles GET /api/items. With ?issued=true only items on loan are listed.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	issuedOnly := r.URL.Query().Get("issued") == "true"

	items, err := store.ListItems(r.Context(), h.DB, issuedOnly)
	if err != nil {
		storeError(w, err)
		return
	}
	if items == nil {
		items = []model.ItemView{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Search handles GET /api/items/search?q=.
func (h *ItemsHandler) Search(w http.ResponseWriter, r *http.Request) {
	items, err := store.SearchItems(r.Context(), h.DB, r.URL.Query().Get("q"))
	if err != nil {
		storeError(w, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if item == nil || item.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	available, err := store.IsAvailable(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, itemDetail{
		Item:       *item,
		AuthorName: store.GetAuthorName(r.Context(), h.DB, item.AuthorID),
		Available:  available,
	})
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	added, err := parseDate(req.AddedDate, today())
	if err != nil {
		jsonError(w, http.StatusBadRequest, "added_date must be YYYY-MM-DD")
		return
	}

	item, err := store.AddItem(r.Context(), h.DB, model.NewItem{
		Name:         req.Name,
		AuthorName:   req.Author,
		SerialNumber: req.SerialNumber,
		Type:         model.ItemType(req.Type),
		AddedDate:    added,
	})
	if err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item added", "item_id", item.ID, "name", item.Name, "type", item.Type)
	jsonResponse(w, http.StatusCreated, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item deleted", "item_id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// UploadCover handles PUT /api/items/{id}/cover. The body is a multipart
// form with the image in the "cover" field.
func (h *ItemsHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<10)
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("cover")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "cover file required")
		return
	}
	defer file.Close()

	cover, err := imaging.ProcessCover(file)
	if errors.Is(err, imaging.ErrUnsupportedFormat) {
		jsonError(w, http.StatusBadRequest, "cover must be JPEG, PNG or WebP")
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.SetItemCover(r.Context(), h.DB, id, cover.Data, cover.MIME); err != nil {
		storeError(w, err)
		return
	}

	slog.Info("item cover uploaded", "item_id", id, "bytes", len(cover.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "cover uploaded"})
}

// GetCover handles GET /api/items/{id}/cover.
func (h *ItemsHandler) GetCover(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetItemCover(r.Context(), h.DB, id)
	if err != nil {
		storeError(w, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no cover")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
