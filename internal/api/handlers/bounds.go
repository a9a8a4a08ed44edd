package handlers

import (
	"dropoff-route-service/internal/api/dto"
	"dropoff-route-service/internal/ports"
	"dropoff-route-service/internal/services"
	"net/http"
	"sort"
)

// BoundHandler exposes the best known bound per instance.
type BoundHandler struct {
	Store ports.BoundStore
}

func (h *BoundHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowOnly(w, r, http.MethodGet) {
		return
	}

	bounds, err := h.Store.List(r.Context())
	if err != nil {
		internalError(w, r, err, "list bounds failed")
		return
	}
	sort.Slice(bounds, func(i, j int) bool { return bounds[i].Instance < bounds[j].Instance })

	total, optimal := services.SummarizeBounds(bounds)
	res := dto.ListBoundsResponse{
		Total:   total,
		Optimal: optimal,
		Bounds:  make([]dto.BoundResponse, 0, len(bounds)),
	}
	for _, b := range bounds {
		res.Bounds = append(res.Bounds, dto.BoundResponse{
			Instance:  b.Instance,
			Cost:      b.Cost,
			Optimal:   b.Optimal,
			UpdatedAt: b.UpdatedAt,
			RunID:     b.RunID,
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
