package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// Servidor local que imita os dois métodos do REST do Bitrix24 usados pelo
// dealtransfer. Aponte CRM_WEBHOOK_URL para http://localhost:8081/rest/1/dev/.
func main() {
	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	stage := "UC_UX6XY1"
	if v := os.Getenv("FAKE_SOURCE_STAGE"); v != "" {
		stage = v
	}
	n := 10
	if v, err := strconv.Atoi(os.Getenv("FAKE_DEALS")); err == nil && v >= 0 {
		n = v
	}

	crm := newFakeCRM(stage, n)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /rest/{user}/{token}/crm.deal.list.json", crm.list)
	mux.HandleFunc("POST /rest/{user}/{token}/crm.deal.update.json", crm.update)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("fake crm listening on %s with %d deals in %s", addr, n, stage)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

type fakeCRM struct {
	mu     sync.Mutex
	stages map[int]string
}

func newFakeCRM(stage string, n int) *fakeCRM {
	c := &fakeCRM{stages: make(map[int]string, n)}
	for i := 1; i <= n; i++ {
		c.stages[i] = stage
	}
	return c
}

func (c *fakeCRM) list(w http.ResponseWriter, r *http.Request) {
	stage := r.URL.Query().Get("filter[STAGE_ID]")

	c.mu.Lock()
	ids := make([]int, 0, len(c.stages))
	for id, st := range c.stages {
		if stage == "" || st == stage {
			ids = append(ids, id)
		}
	}
	c.mu.Unlock()
	sort.Ints(ids)

	// Bitrix pagina de 50 em 50.
	if len(ids) > 50 {
		ids = ids[:50]
	}
	result := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, map[string]string{"ID": strconv.Itoa(id)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "total": len(ids)})
}

func (c *fakeCRM) update(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := strconv.Atoi(q.Get("id"))
	stage := q.Get("fields[STAGE_ID]")

	c.mu.Lock()
	_, ok := c.stages[id]
	if ok && err == nil && stage != "" {
		c.stages[id] = stage
	}
	c.mu.Unlock()

	if err != nil || !ok || stage == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":             "NOT_FOUND",
			"error_description": fmt.Sprintf("deal %q not found", q.Get("id")),
		})
		return
	}
	log.Printf("fake crm: deal %d -> %s", id, stage)
	writeJSON(w, http.StatusOK, map[string]any{"result": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
