// Package api serves the heartbeat over HTTP: GET /cron, /healthz, /readyz
// and /metrics.
package api
