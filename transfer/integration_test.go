package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"deal-transfer/transfer/application"
	"deal-transfer/transfer/domain"
	"deal-transfer/transfer/infra"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// crmStub guarda deals por estágio e conta as chamadas recebidas.
type crmStub struct {
	mu      sync.Mutex
	stages  map[string]string
	order   []string
	calls   int
	updates []string
}

func (c *crmStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++

	q := r.URL.Query()
	switch {
	case strings.HasSuffix(r.URL.Path, "/crm.deal.list.json"):
		var out []string
		for _, id := range c.order {
			if c.stages[id] == q.Get("filter[STAGE_ID]") {
				out = append(out, fmt.Sprintf(`{"ID":%q}`, id))
			}
		}
		_, _ = io.WriteString(w, `{"result":[`+strings.Join(out, ",")+`]}`)
	case strings.HasSuffix(r.URL.Path, "/crm.deal.update.json"):
		id := q.Get("id")
		c.stages[id] = q.Get("fields[STAGE_ID]")
		c.updates = append(c.updates, id)
		_, _ = io.WriteString(w, `{"result":true}`)
	default:
		http.NotFound(w, r)
	}
}

func newStub(n int) *crmStub {
	c := &crmStub{stages: map[string]string{}}
	for i := 1; i <= n; i++ {
		id := fmt.Sprint(i)
		c.stages[id] = "SRC"
		c.order = append(c.order, id)
	}
	return c
}

type harness struct {
	sched       *Scheduler
	stub        *crmStub
	counterPath string
	logPath     string
}

func newHarness(t *testing.T, deals int, hour int) *harness {
	t.Helper()
	dir := t.TempDir()
	stub := newStub(deals)
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	clock := func() time.Time { return time.Date(2024, 5, 17, hour, 0, 0, 0, time.UTC) }
	logPath := filepath.Join(dir, "deal-transfer.log")
	sink, err := infra.OpenLogSink(logPath, infra.WithSinkConsole(&bytes.Buffer{}), infra.WithSinkClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	counterPath := filepath.Join(dir, "daily-counter.json")
	wf := application.Workflow{
		Settings: application.Settings{
			SourceStageID: "SRC",
			TargetStageID: "DST",
			BatchSize:     3,
			DailyLimit:    30,
			StartHour:     12,
			Location:      time.UTC,
		},
		CRM:     infra.NewBitrixClient(srv.URL+"/rest/1/tok", sink, infra.WithRequestRate(0)),
		Counter: infra.NewFileCounterStore(counterPath),
		Log:     sink,
		Now:     clock,
	}
	return &harness{
		sched: &Scheduler{
			Pass:     wf,
			Guard:    application.GuardService{Pool: infra.NewChanPool(1)},
			Log:      sink,
			Interval: 10 * time.Minute,
		},
		stub:        stub,
		counterPath: counterPath,
		logPath:     logPath,
	}
}

func (h *harness) counter(t *testing.T) map[string]int {
	t.Helper()
	raw, err := os.ReadFile(h.counterPath)
	if err != nil {
		t.Fatalf("read counter: %v", err)
	}
	var c map[string]int
	if err := json.Unmarshal(raw, &c); err != nil {
		t.Fatalf("decode counter: %v", err)
	}
	return c
}

func TestEndToEnd_FreshDayMovesOneBatch(t *testing.T) {
	h := newHarness(t, 5, 13)

	rep, err := h.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.State != domain.PassCompleted || rep.Fetched != 3 {
		t.Fatalf("unexpected report %+v", rep)
	}
	if got := strings.Join(h.stub.updates, ","); got != "1,2,3" {
		t.Fatalf("expected deals 1,2,3 updated, got %s", got)
	}
	if c := h.counter(t); len(c) != 1 || c["2024-05-17"] != 3 {
		t.Fatalf("expected {2024-05-17: 3}, got %v", c)
	}

	logRaw, _ := os.ReadFile(h.logPath)
	for _, want := range []string{
		"[2024-05-17T13:00:00Z] new day: counter reset",
		"deal 1 moved to stage DST",
		"transferred 3 deals, total today: 3",
	} {
		if !strings.Contains(string(logRaw), want) {
			t.Fatalf("expected log to contain %q, got:\n%s", want, logRaw)
		}
	}

	// segundo passe pega os dois que sobraram.
	rep, err = h.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.Fetched != 2 || h.counter(t)["2024-05-17"] != 5 {
		t.Fatalf("expected second pass to move 2 (total 5), got %+v / %v", rep, h.counter(t))
	}

	// terceiro passe não acha nada e não mexe no arquivo.
	before, _ := os.ReadFile(h.counterPath)
	rep, _ = h.sched.RunOnce(context.Background())
	after, _ := os.ReadFile(h.counterPath)
	if rep.State != domain.PassNothingFound || !bytes.Equal(before, after) {
		t.Fatalf("expected nothing_found with unchanged counter, got %s", rep.State)
	}
}

func TestEndToEnd_BeforeStartHourTouchesNothing(t *testing.T) {
	h := newHarness(t, 5, 9)

	rep, err := h.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.State != domain.PassWaited || h.stub.calls != 0 {
		t.Fatalf("expected waited without CRM calls, got %s calls=%d", rep.State, h.stub.calls)
	}
	if _, err := os.Stat(h.counterPath); !os.IsNotExist(err) {
		t.Fatalf("expected no counter file, got %v", err)
	}
}

func TestEndToEnd_LimitReachedTouchesNothing(t *testing.T) {
	h := newHarness(t, 5, 14)
	if err := os.WriteFile(h.counterPath, []byte(`{"2024-05-17": 30}`), 0o644); err != nil {
		t.Fatal(err)
	}

	rep, err := h.sched.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rep.State != domain.PassLimitReached || h.stub.calls != 0 {
		t.Fatalf("expected limit_reached without CRM calls, got %s calls=%d", rep.State, h.stub.calls)
	}
	raw, _ := os.ReadFile(h.counterPath)
	if string(raw) != `{"2024-05-17": 30}` {
		t.Fatalf("expected counter file untouched, got %s", raw)
	}
}

func TestEndToEnd_CorruptCounterAbortsPass(t *testing.T) {
	h := newHarness(t, 5, 14)
	if err := os.WriteFile(h.counterPath, []byte(`[1,2`), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := h.sched.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected storage error")
	}
	if h.stub.calls != 0 {
		t.Fatalf("expected no CRM calls after read error, got %d", h.stub.calls)
	}
	logRaw, _ := os.ReadFile(h.logPath)
	if !strings.Contains(string(logRaw), "pass aborted: load counter: counter storage read") {
		t.Fatalf("expected abort line, got:\n%s", logRaw)
	}
}

func TestEndToEnd_RedisCounterAddsToConcurrentWrites(t *testing.T) {
	stub := newStub(5)
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	clock := func() time.Time { return time.Date(2024, 5, 17, 13, 0, 0, 0, time.UTC) }
	sink, err := infra.OpenLogSink(filepath.Join(t.TempDir(), "deal-transfer.log"),
		infra.WithSinkConsole(&bytes.Buffer{}), infra.WithSinkClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = sink.Close() })

	mr.HSet("dealtransfer:daily", "2024-05-16", "30", "2024-05-17", "5")

	// outra instância soma 4 entre o Load e a gravação deste passe
	crm := &bumpingCRM{CRM: infra.NewBitrixClient(srv.URL+"/rest/1/tok", sink, infra.WithRequestRate(0)), bump: func() {
		_, _ = mr.HIncrBy("dealtransfer:daily", "2024-05-17", 4)
	}}

	wf := application.Workflow{
		Settings: application.Settings{
			SourceStageID: "SRC",
			TargetStageID: "DST",
			BatchSize:     3,
			DailyLimit:    30,
			StartHour:     12,
			Location:      time.UTC,
		},
		CRM:     crm,
		Counter: infra.NewRedisCounterStore(rdb),
		Log:     sink,
		Now:     clock,
	}

	rep, err := wf.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.TodayTotal != 12 {
		t.Fatalf("expected total 12, got %d", rep.TodayTotal)
	}
	if got := mr.HGet("dealtransfer:daily", "2024-05-17"); got != "12" {
		t.Fatalf("expected stored 12, got %q", got)
	}
	if got := mr.HGet("dealtransfer:daily", "2024-05-16"); got != "30" {
		t.Fatalf("expected other day kept, got %q", got)
	}
}

// bumpingCRM chama bump antes de cada listagem.
type bumpingCRM struct {
	domain.CRM
	bump func()
}

func (c *bumpingCRM) ListDeals(ctx context.Context, stageID string, limit int) domain.FetchResult {
	c.bump()
	return c.CRM.ListDeals(ctx, stageID, limit)
}
