package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/onnwee/minimonday/backend/internal/circuitbreaker"
	"github.com/onnwee/minimonday/backend/internal/facade"
)

// Health returns a simple JSON payload to indicate the API is alive.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ReadinessResponse describes whether the spreadsheet backend is reachable
// as far as the breakers know.
type ReadinessResponse struct {
	Status       string   `json:"status"`
	Strategy     string   `json:"strategy"`
	OpenBreakers []string `json:"openBreakers,omitempty"`
}

// Ready reports 503 while any breaker is open so load balancers can shed
// traffic. It never calls the backend itself.
func Ready(f facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := f.Stats()
		resp := ReadinessResponse{Status: "ready", Strategy: stats.Strategy}
		for _, b := range stats.Breakers {
			if b.State == circuitbreaker.StateOpen.String() {
				resp.OpenBreakers = append(resp.OpenBreakers, b.Name)
			}
		}
		status := http.StatusOK
		if len(resp.OpenBreakers) > 0 {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
