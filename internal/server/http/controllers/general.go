package controllers

import (
	"net/http"

	"github.com/rzbill/smq/internal/runtime"
)

// GeneralController handles endpoints that are not specific to the queue,
// like the hello probe and health checks.
type GeneralController struct {
	rt *runtime.Runtime
}

// NewGeneralController creates a new general controller.
func NewGeneralController(rt *runtime.Runtime) *GeneralController {
	return &GeneralController{rt: rt}
}

// RegisterRoutes registers general routes with the given mux.
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/hello", c.handleHello)
	mux.HandleFunc("/v1/healthz", c.handleHealth)
}

// handleHello is a plain liveness probe.
// GET /hello
func (c *GeneralController) handleHello(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	writeData(w, "Hello World")
}

// handleHealth returns the health of the storage engine.
//
// Returns 200 OK with {"data": {"status": "ok"}} if healthy, 503 Service
// Unavailable otherwise.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeData(w, map[string]string{"status": "ok"})
}
