package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/optiroute/optiroute/internal/api/models"
	"github.com/optiroute/optiroute/internal/api/response"
	"github.com/optiroute/optiroute/internal/evaluate"
)

// FuelPriceHandler handles fuel price endpoints.
type FuelPriceHandler struct {
	prices *evaluate.PriceService
	logger zerolog.Logger
}

// NewFuelPriceHandler creates a new FuelPriceHandler.
func NewFuelPriceHandler(prices *evaluate.PriceService, logger zerolog.Logger) *FuelPriceHandler {
	return &FuelPriceHandler{
		prices: prices,
		logger: logger,
	}
}

// ListPrices handles GET /v1/fuel/prices - current per-liter fuel prices.
func (h *FuelPriceHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	prices, err := h.prices.Prices(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load fuel prices")
		response.ServiceUnavailable(w, r, "fuel prices unavailable")
		return
	}

	items := make([]models.FuelPrice, 0, len(prices))
	for fuel, price := range prices {
		items = append(items, models.FuelPrice{
			Fuel:     string(fuel),
			Price:    price,
			Currency: "BRL",
			Unit:     fuel.Unit(),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Fuel < items[j].Fuel })

	response.JSON(w, r, http.StatusOK, models.FuelPrices{
		Items: items,
		Time:  models.Timestamp(time.Now()),
	})
}
