package handler

import (
	"net/http"
	"strconv"

	"github.com/sahityapandiri3/omnishop/internal/api/response"
	"github.com/sahityapandiri3/omnishop/internal/catalog"
	"github.com/sahityapandiri3/omnishop/internal/store"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// NewListProductsHandler handles GET /api/v1/products.
func NewListProductsHandler(cat catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.ProductFilter{
			Category: r.URL.Query().Get("category"),
			Page:     queryInt(r, "page", 1),
			Limit:    queryInt(r, "limit", defaultPageLimit),
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Limit < 1 || filter.Limit > maxPageLimit {
			filter.Limit = defaultPageLimit
		}

		products, total, err := cat.ListProducts(r.Context(), filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		response.Collection(w, products, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

// NewGetProductHandler handles GET /api/v1/products/{productID}.
func NewGetProductHandler(cat catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, ok := pathUUID(w, r, "productID")
		if !ok {
			return
		}

		product, err := cat.GetProduct(r.Context(), productID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		response.JSON(w, product)
	}
}

func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
