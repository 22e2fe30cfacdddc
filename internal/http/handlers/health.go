// Package handlers provides HTTP handler implementations for the public API.
//
// This file implements the operational endpoints: liveness (§6, configurable
// path via HEALTH_PATH), readiness (NEW, SPEC_FULL.md §6), and the in-process
// metrics snapshot (§6: GET /metrics returns the atomic-counter snapshot as
// JSON, distinct from the ambient Prometheus text endpoint mounted
// separately by the router).
package handlers

import "github.com/gin-gonic/gin"

// GetHealthz handles liveness checks.
//
// @ID GetHealthz
// @Summary Liveness probe
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Router /healthz [get]
func GetHealthz(c *gin.Context) {
	ok(c, 200, gin.H{"status": "ok"})
}

// GetReadyz handles readiness checks: ready once the app has finished
// startup (DB pinged if configured, workers launched).
//
// @ID GetReadyz
// @Summary Readiness probe
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /readyz [get]
func (a *App) GetReadyz(c *gin.Context) {
	if a.Ready != nil && !a.Ready() {
		c.JSON(503, gin.H{"status": "starting"})
		return
	}
	ok(c, 200, gin.H{"status": "ready"})
}

// GetMetricsSnapshot handles GET /metrics: a point-in-time JSON snapshot of
// the process-wide atomic counters (§4.N), not the Prometheus exposition
// format (mounted separately, see router.go).
//
// @ID GetMetricsSnapshot
// @Summary Point-in-time counters snapshot
// @Tags ops
// @Produce json
// @Success 200 {object} metrics.Snapshot
// @Router /metrics [get]
func (a *App) GetMetricsSnapshot(c *gin.Context) {
	ok(c, 200, a.Metrics.Snapshot())
}
