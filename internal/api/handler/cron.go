package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/edvin/cronbeat/internal/api/response"
	"github.com/edvin/cronbeat/internal/heartbeat"
)

// Runner runs a heartbeat. *heartbeat.Writer satisfies it.
type Runner interface {
	Run() heartbeat.Outcome
	Ready() error
}

type Cron struct {
	runner Runner
}

func NewCron(runner Runner) *Cron {
	return &Cron{runner: runner}
}

// Run handles GET /cron. Nothing in the request reaches the writer; the base
// path is fixed when the server starts.
func (h *Cron) Run(w http.ResponseWriter, r *http.Request) {
	out := h.runner.Run()

	zerolog.Ctx(r.Context()).Debug().
		Str("run_id", out.RunID).
		Str("result", string(out.Result)).
		Msg("heartbeat triggered over http")

	status := http.StatusOK
	if out.Result != heartbeat.ResultSuccess {
		status = http.StatusInternalServerError
	}
	w.Header().Set("X-Run-ID", out.RunID)
	response.WriteText(w, status, out.Message)
}

// Ready handles GET /readyz.
func (h *Cron) Ready(w http.ResponseWriter, _ *http.Request) {
	if err := h.runner.Ready(); err != nil {
		response.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
