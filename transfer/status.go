package transfer

import (
	"encoding/json"
	"net/http"
	"time"

	"deal-transfer/transfer/domain"
	"deal-transfer/transfer/infra"
)

// StatsSource é o que o endpoint de status lê das estatísticas.
// infra.MemoryStatsStore implementa.
type StatsSource interface {
	Total() infra.Counters
	ByState() map[domain.PassState]int64
	LastAt() time.Time
}

type lastRunView struct {
	State      domain.PassState       `json:"state"`
	DateKey    string                 `json:"date_key,omitempty"`
	Requested  int                    `json:"requested"`
	Fetched    int                    `json:"fetched"`
	TodayTotal int                    `json:"today_total"`
	StartedAt  time.Time              `json:"started_at"`
	Outcomes   []domain.UpdateOutcome `json:"outcomes,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

type statusView struct {
	LastRun    *lastRunView               `json:"last_run"`
	LastPassAt *time.Time                 `json:"last_pass_at,omitempty"`
	Totals     *infra.Counters            `json:"totals,omitempty"`
	ByState    map[domain.PassState]int64 `json:"by_state,omitempty"`
}

// StatusHandler expõe GET /healthz e GET /status.
func StatusHandler(s *Scheduler, stats StatsSource) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		var view statusView

		if rep, err := s.LastRun(); rep != nil {
			view.LastRun = &lastRunView{
				State:      rep.State,
				DateKey:    rep.DateKey,
				Requested:  rep.Requested,
				Fetched:    rep.Fetched,
				TodayTotal: rep.TodayTotal,
				StartedAt:  rep.StartedAt,
				Outcomes:   rep.Outcomes,
			}
			if err != nil {
				view.LastRun.Error = err.Error()
			}
		}
		if stats != nil {
			tot := stats.Total()
			view.Totals = &tot
			view.ByState = stats.ByState()
			if at := stats.LastAt(); !at.IsZero() {
				view.LastPassAt = &at
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	})

	return mux
}
