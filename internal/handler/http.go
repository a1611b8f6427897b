package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/poonnyworld/pbz-bots/internal/domain"
	"github.com/poonnyworld/pbz-bots/internal/handler/mw"
)

// Economy is the part of the engine the admin API needs.
type Economy interface {
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	AdjustBalance(ctx context.Context, accountID string, target int64) (int64, error)
	ListItems(ctx context.Context) ([]domain.Item, error)
	CreateItem(ctx context.Context, item *domain.Item) error
	UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (*domain.Item, error)
	ListRedemptions(ctx context.Context, limit int) ([]domain.Redemption, error)
}

type Credentials struct {
	Username     string
	PasswordHash []byte
}

type Handler struct {
	service Economy
	auth    *mw.Auth
	admin   Credentials
	log     zerolog.Logger
}

func NewHandler(service Economy, auth *mw.Auth, admin Credentials, log zerolog.Logger) *Handler {
	return &Handler{service: service, auth: auth, admin: admin, log: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw.RequestLogger(h.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Post("/api/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.auth.JWTAuthMiddleware)
		r.Get("/api/users", h.listUsers)
		r.Put("/api/users/{id}/points", h.setPoints)
		r.Get("/api/items", h.listItems)
		r.Post("/api/items", h.createItem)
		r.Put("/api/items/{id}", h.updateItem)
		r.Get("/api/redemptions", h.listRedemptions)
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	if len(h.admin.PasswordHash) == 0 || req.Username != h.admin.Username ||
		bcrypt.CompareHashAndPassword(h.admin.PasswordHash, []byte(req.Password)) != nil {
		h.log.Warn().Str("username", req.Username).Msg("admin login rejected")
		http.Error(w, `{"errors":"invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	token, err := h.auth.GenerateJWT(req.Username)
	if err != nil {
		http.Error(w, `{"errors":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, loginResponse{Token: token})
}

type userResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Points        int64      `json:"points"`
	LastDaily     *time.Time `json:"lastDaily,omitempty"`
	FlipCount     int        `json:"flipCount"`
	LastFlipReset *time.Time `json:"lastFlipReset,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	res := make([]userResponse, 0, len(accounts))
	for _, a := range accounts {
		u := userResponse{
			ID:            a.ID,
			Username:      a.DisplayName,
			Points:        a.Balance,
			FlipCount:     a.WagerCountToday,
			LastFlipReset: optionalTime(a.WagerWindowStart),
			CreatedAt:     a.CreatedAt,
		}
		if a.HasClaimedDaily() {
			last := a.LastDailyClaim
			u.LastDaily = &last
		}
		res = append(res, u)
	}
	writeJSON(w, res)
}

type pointsRequest struct {
	Points *int64 `json:"points"`
}

func (h *Handler) setPoints(w http.ResponseWriter, r *http.Request) {
	var req pointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Points == nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	id := chi.URLParam(r, "id")
	balance, err := h.service.AdjustBalance(r.Context(), id, *req.Points)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Str("admin", mw.AdminFromContext(r.Context())).Str("account_id", id).Int64("points", balance).Msg("points set")
	writeJSON(w, map[string]interface{}{"id": id, "points": balance})
}

type itemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Stock       *int   `json:"stock"`
	IsActive    *bool  `json:"isActive"`
}

type itemResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Cost        int64  `json:"cost"`
	Stock       int    `json:"stock"`
	IsActive    bool   `json:"isActive"`
}

func toItemResponse(it domain.Item) itemResponse {
	return itemResponse{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Cost:        it.Cost,
		Stock:       it.Stock,
		IsActive:    it.IsActive,
	}
}

// itemPatchRequest edits only the fields present in the body.
type itemPatchRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Cost        *int64  `json:"cost"`
	Stock       *int    `json:"stock"`
	IsActive    *bool   `json:"isActive"`
}

// toItem applies defaults: new items are unlimited and active.
func (req itemRequest) toItem() *domain.Item {
	it := &domain.Item{
		Name:        req.Name,
		Description: req.Description,
		Cost:        req.Cost,
		Stock:       domain.UnlimitedStock,
		IsActive:    true,
	}
	if req.Stock != nil {
		it.Stock = *req.Stock
	}
	if req.IsActive != nil {
		it.IsActive = *req.IsActive
	}
	return it
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	res := make([]itemResponse, 0, len(items))
	for _, it := range items {
		res = append(res, toItemResponse(it))
	}
	writeJSON(w, res)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	it := req.toItem()
	if err := h.service.CreateItem(r.Context(), it); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Str("admin", mw.AdminFromContext(r.Context())).Int64("item_id", it.ID).Msg("item added")
	writeJSONStatus(w, http.StatusCreated, toItemResponse(*it))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, `{"errors":"invalid item id"}`, http.StatusBadRequest)
		return
	}
	var req itemPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad request"}`, http.StatusBadRequest)
		return
	}
	it, err := h.service.UpdateItem(r.Context(), id, domain.ItemPatch(req))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info().Str("admin", mw.AdminFromContext(r.Context())).Int64("item_id", id).Msg("item edited")
	writeJSON(w, toItemResponse(*it))
}

type redemptionResponse struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ItemID    int64     `json:"itemId"`
	Cost      int64     `json:"cost"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h *Handler) listRedemptions(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"errors":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = n
	}
	reds, err := h.service.ListRedemptions(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	res := make([]redemptionResponse, 0, len(reds))
	for _, red := range reds {
		res = append(res, redemptionResponse{
			ID:        red.ID,
			UserID:    red.AccountID,
			ItemID:    red.ItemID,
			Cost:      red.Cost,
			CreatedAt: red.CreatedAt,
		})
	}
	writeJSON(w, res)
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindPolicyViolation:
		return http.StatusConflict
	case domain.KindCooldown:
		return http.StatusTooManyRequests
	case domain.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("admin request failed")
		msg = "internal error"
	}
	writeJSONStatus(w, status, map[string]string{"errors": msg})
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
