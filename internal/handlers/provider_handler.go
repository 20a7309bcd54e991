package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/genero/internal/models"
	"github.com/ternarybob/genero/internal/services/providers"
)

// ProviderHandler handles HTTP requests for provider observability
type ProviderHandler struct {
	registry *providers.Registry
	usage    *providers.Tracker
	checker  *providers.Checker
	logger   arbor.ILogger
}

// NewProviderHandler creates a new ProviderHandler
func NewProviderHandler(registry *providers.Registry, usage *providers.Tracker, checker *providers.Checker, logger arbor.ILogger) *ProviderHandler {
	return &ProviderHandler{
		registry: registry,
		usage:    usage,
		checker:  checker,
		logger:   logger,
	}
}

// ListProvidersHandler handles GET /api/providers
func (h *ProviderHandler) ListProvidersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	entries := h.registry.List()
	statuses := make([]models.ProviderStatus, 0, len(entries))
	for _, entry := range entries {
		usage, _ := h.usage.Usage(entry.Descriptor.Name)
		statuses = append(statuses, models.ProviderStatus{
			Name:           entry.Descriptor.Name,
			Type:           entry.Descriptor.Type,
			Available:      entry.Descriptor.Available,
			Priority:       entry.Descriptor.Priority,
			CostPerRequest: entry.Descriptor.CostPerRequest,
			Usage:          usage,
		})
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(statuses),
		"providers": statuses,
	})
}

// GetUsageHandler handles GET /api/usage
func (h *ProviderHandler) GetUsageHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	stats := h.usage.Stats()

	totalCost := 0.0
	for _, rec := range stats {
		totalCost += rec.TotalCostAccrued
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_cost": totalCost,
		"providers":  stats,
	})
}

// CheckProviderHandler handles POST /api/providers/{name}/check
func (h *ProviderHandler) CheckProviderHandler(w http.ResponseWriter, r *http.Request, providerName string) {
	available, err := h.checker.CheckProvider(r.Context(), providerName)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"provider":  providerName,
		"available": available,
	})
}
