package handlers

import (
	"context"
	"net/http"

	"github.com/ns-gamming/ns-tracker-sub000/internal/api/middleware"
	"github.com/ns-gamming/ns-tracker-sub000/internal/domain"
	"github.com/ns-gamming/ns-tracker-sub000/internal/finance"
	"github.com/ns-gamming/ns-tracker-sub000/internal/realtime"
	"github.com/ns-gamming/ns-tracker-sub000/internal/store"
)

// Resource serves list/get/create/update/delete for one owned table.
// Request bodies are decoded over the stored row on update, so omitted
// fields keep their values.
type Resource[T any] struct {
	svc *finance.Service
	// table names the realtime channel and the activity entity type.
	table  string
	entity string
	repo   func() store.Owned[T]
	// keys returns pointers to the id and user_id fields of v.
	keys    func(v *T) (id, userID *string)
	prepare func(ctx context.Context, v *T) error
}

func (h *Resource[T]) assign(v *T, id, owner string) {
	idp, userp := h.keys(v)
	*idp = id
	*userp = owner
}

// List handles GET /api/{table}
func (h *Resource[T]) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.repo().List(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err, "Failed to list "+h.table)
		return
	}
	if rows == nil {
		rows = []T{}
	}
	middleware.WriteJSON(w, http.StatusOK, rows)
}

// Get handles GET /api/{table}/{id}
func (h *Resource[T]) Get(w http.ResponseWriter, r *http.Request) {
	v, err := h.repo().Get(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to get "+h.entity)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, v)
}

// Create handles POST /api/{table}
func (h *Resource[T]) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := userID(r)

	var v T
	if !decodeJSON(w, r, &v) {
		return
	}
	h.assign(&v, "", owner)
	if err := h.prepare(ctx, &v); err != nil {
		writeServiceError(w, r, err, "Failed to create "+h.entity)
		return
	}
	if err := h.repo().Create(ctx, &v); err != nil {
		writeServiceError(w, r, err, "Failed to create "+h.entity)
		return
	}

	id, _ := h.keys(&v)
	h.svc.Track(ctx, owner, h.entity+".created", h.entity, *id, nil, requestInfo(r))
	h.svc.Publish(owner, h.table, realtime.ActionInsert, v)
	middleware.WriteJSON(w, http.StatusCreated, v)
}

// Update handles PUT /api/{table}/{id}
func (h *Resource[T]) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := userID(r)
	id := r.PathValue("id")

	cur, err := h.repo().Get(ctx, owner, id)
	if err != nil {
		writeServiceError(w, r, err, "Failed to update "+h.entity)
		return
	}
	v := *cur
	if !decodeJSON(w, r, &v) {
		return
	}
	h.assign(&v, id, owner)
	if err := h.prepare(ctx, &v); err != nil {
		writeServiceError(w, r, err, "Failed to update "+h.entity)
		return
	}
	if err := h.repo().Update(ctx, &v); err != nil {
		writeServiceError(w, r, err, "Failed to update "+h.entity)
		return
	}

	h.svc.Track(ctx, owner, h.entity+".updated", h.entity, id, nil, requestInfo(r))
	h.svc.Publish(owner, h.table, realtime.ActionUpdate, v)
	middleware.WriteJSON(w, http.StatusOK, v)
}

// Delete handles DELETE /api/{table}/{id}
func (h *Resource[T]) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := userID(r)
	id := r.PathValue("id")

	if err := h.repo().Delete(ctx, owner, id); err != nil {
		writeServiceError(w, r, err, "Failed to delete "+h.entity)
		return
	}
	h.svc.Track(ctx, owner, h.entity+".deleted", h.entity, id, nil, requestInfo(r))
	h.svc.Publish(owner, h.table, realtime.ActionDelete, map[string]string{"id": id})
	w.WriteHeader(http.StatusNoContent)
}

// Resources bundles the plain CRUD tables.
type Resources struct {
	Accounts      *Resource[domain.Account]
	Categories    *Resource[domain.Category]
	Budgets       *Resource[domain.Budget]
	Bills         *Resource[domain.Bill]
	FamilyMembers *Resource[domain.FamilyMember]
	Stocks        *Resource[domain.StockHolding]
	Crypto        *Resource[domain.CryptoHolding]
	Metals        *Resource[domain.MetalHolding]
}

// NewResources wires every CRUD table to svc's store and validation.
func NewResources(svc *finance.Service) *Resources {
	repo := svc.Store()
	return &Resources{
		Accounts: &Resource[domain.Account]{
			svc: svc, table: "accounts", entity: "account",
			repo:    repo.Accounts,
			keys:    func(v *domain.Account) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareAccount,
		},
		Categories: &Resource[domain.Category]{
			svc: svc, table: "categories", entity: "category",
			repo:    repo.Categories,
			keys:    func(v *domain.Category) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareCategory,
		},
		Budgets: &Resource[domain.Budget]{
			svc: svc, table: "budgets", entity: "budget",
			repo:    repo.Budgets,
			keys:    func(v *domain.Budget) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareBudget,
		},
		Bills: &Resource[domain.Bill]{
			svc: svc, table: "bills", entity: "bill",
			repo:    func() store.Owned[domain.Bill] { return repo.Bills() },
			keys:    func(v *domain.Bill) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareBill,
		},
		FamilyMembers: &Resource[domain.FamilyMember]{
			svc: svc, table: "family_members", entity: "family_member",
			repo:    repo.FamilyMembers,
			keys:    func(v *domain.FamilyMember) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareFamilyMember,
		},
		Stocks: &Resource[domain.StockHolding]{
			svc: svc, table: "stocks", entity: "stock",
			repo:    func() store.Owned[domain.StockHolding] { return repo.Holdings().Stocks() },
			keys:    func(v *domain.StockHolding) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareStock,
		},
		Crypto: &Resource[domain.CryptoHolding]{
			svc: svc, table: "crypto", entity: "crypto",
			repo:    func() store.Owned[domain.CryptoHolding] { return repo.Holdings().Crypto() },
			keys:    func(v *domain.CryptoHolding) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareCrypto,
		},
		Metals: &Resource[domain.MetalHolding]{
			svc: svc, table: "precious_metals", entity: "precious_metal",
			repo:    func() store.Owned[domain.MetalHolding] { return repo.Holdings().Metals() },
			keys:    func(v *domain.MetalHolding) (*string, *string) { return &v.ID, &v.UserID },
			prepare: svc.PrepareMetal,
		},
	}
}
