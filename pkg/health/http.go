package health

import (
	"encoding/json"
	"net/http"

	"github.com/lewisedginton/chat_relay/pkg/logger"
)

// HealthResponse is the JSON body of the health endpoints.
type HealthResponse struct {
	Status  Status                 `json:"status"`
	Checks  map[string]CheckStatus `json:"checks,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// CheckStatus represents the status of an individual check in the HTTP response.
type CheckStatus struct {
	Status   string `json:"status"` // "ok" | "error"
	Optional bool   `json:"optional,omitempty"`
	Error    string `json:"error,omitempty"`
	Latency  string `json:"latency,omitempty"`
}

// LivenessHandler answers 200 while the process is alive and 503 when it should be restarted.
func (h *HealthChecker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckLiveness(r.Context())
		h.writeHealthResponse(w, status, err)
	}
}

// ReadinessHandler answers 200 when the service can relay requests, 503 otherwise.
func (h *HealthChecker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.CheckReadiness(r.Context())
		h.writeHealthResponse(w, status, err)
	}
}

func (h *HealthChecker) writeHealthResponse(w http.ResponseWriter, status *HealthStatus, err error) {
	response := HealthResponse{
		Status: status.Status,
		Checks: make(map[string]CheckStatus, len(status.Checks)),
	}
	if err != nil {
		response.Message = err.Error()
	}

	for _, result := range status.Checks {
		cs := CheckStatus{Status: "ok", Optional: result.Optional, Latency: result.Latency.String()}
		if !result.Healthy {
			cs.Status = "error"
			cs.Error = result.Error
		}
		response.Checks[result.Name] = cs
	}

	body, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		h.logger.Error("Failed to encode health response", logger.ErrorField(marshalErr))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_, _ = w.Write(body)
}
