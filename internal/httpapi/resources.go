package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"assetdesk.org/internal/audit"
	"assetdesk.org/internal/inventory"
)

// entityService is the uniform CRUD surface every inventory service exposes.
type entityService[T, In, P any] interface {
	List(ctx context.Context, page inventory.Page) ([]T, error)
	Get(ctx context.Context, id int64) (T, error)
	Create(ctx context.Context, in In) (T, error)
	Update(ctx context.Context, id int64, p P) (T, error)
	Delete(ctx context.Context, id int64) error
}

// resource serves list/get/create/update/delete for one entity. name is the
// singular label used in audit events and delete messages.
type resource[T, In, P any] struct {
	name string
	svc  entityService[T, In, P]
}

func (rs resource[T, In, P]) routes(r chi.Router) {
	r.Get("/", rs.list)
	r.Post("/", rs.create)
	r.Get("/{id}", rs.get)
	r.Put("/{id}", rs.update)
	r.Delete("/{id}", rs.delete)
}

func (rs resource[T, In, P]) list(w http.ResponseWriter, r *http.Request) {
	listPage(w, r, rs.svc.List)
}

func (rs resource[T, In, P]) get(w http.ResponseWriter, r *http.Request) {
	getByID(rs.svc.Get)(w, r)
}

func (rs resource[T, In, P]) create(w http.ResponseWriter, r *http.Request) {
	createFrom(rs.name, rs.svc.Create)(w, r)
}

func (rs resource[T, In, P]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	var p P
	if err := decodeJSON(w, r, &p); err != nil {
		writeDecodeError(w, r, err)
		return
	}
	item, err := rs.svc.Update(r.Context(), id, p)
	_ = audit.Record(r.Context(), rs.name, "update", id, err)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (rs resource[T, In, P]) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	err = rs.svc.Delete(r.Context(), id)
	_ = audit.Record(r.Context(), rs.name, "delete", id, err)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s %d deleted", rs.name, id),
	})
}

func getByID[T any](get func(context.Context, int64) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		item, err := get(r.Context(), id)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}

// createFrom decodes In, creates the entity and answers 201.
func createFrom[T, In any](name string, create func(context.Context, In) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := decodeJSON(w, r, &in); err != nil {
			writeDecodeError(w, r, err)
			return
		}
		item, err := create(r.Context(), in)
		_ = audit.Record(r.Context(), name, "create", entityID(item), err)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func listPage[T any](w http.ResponseWriter, r *http.Request, list func(context.Context, inventory.Page) ([]T, error)) {
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	items, err := list(r.Context(), page)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// listByID serves the /{scope}/{id} list variants such as /assets/category/3.
func listByID[T any](list func(context.Context, int64, inventory.Page) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		listPage(w, r, func(ctx context.Context, page inventory.Page) ([]T, error) {
			return list(ctx, id, page)
		})
	}
}

func entityID(v any) int64 {
	switch e := v.(type) {
	case inventory.Department:
		return e.ID
	case inventory.User:
		return e.ID
	case inventory.AssetCategory:
		return e.ID
	case inventory.Location:
		return e.ID
	case inventory.Asset:
		return e.ID
	case inventory.AssetHistory:
		return e.ID
	case inventory.Report:
		return e.ID
	}
	return 0
}
