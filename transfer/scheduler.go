package transfer

import (
	"context"
	"errors"
	"sync"
	"time"

	"deal-transfer/transfer/application"
	"deal-transfer/transfer/domain"
)

// ErrPassRunning é devolvido por RunOnce quando outro passe ainda está em andamento.
var ErrPassRunning = errors.New("previous pass still running")

// Pass é o que o scheduler dispara. application.Workflow implementa.
type Pass interface {
	Run(ctx context.Context) (application.Report, error)
}

// Scheduler dispara um Pass a cada Interval, alinhado ao relógio de parede.
type Scheduler struct {
	Pass  Pass
	Guard application.GuardService
	Stats domain.StatsStore
	Log   domain.Sink

	Interval time.Duration
	Location *time.Location
	// PassTimeout limita cada passe. Se 0, usa Interval.
	PassTimeout time.Duration
	// RunOnStart dispara um passe logo na subida, sem esperar o alinhamento.
	RunOnStart bool

	Now func() time.Time

	// after permite acelerar o relógio em testes.
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	last    *application.Report
	lastErr error
}

// LastRun devolve o último report (nil se nenhum passe rodou) e o erro dele.
func (s *Scheduler) LastRun() (*application.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, s.lastErr
	}
	rep := *s.last
	return &rep, s.lastErr
}

// Run bloqueia até ctx encerrar, disparando passes no ritmo configurado.
// Passes em andamento recebem o cancelamento e Run espera eles terminarem.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Pass == nil {
		return errors.New("scheduler: Pass is required")
	}
	if s.Interval <= 0 {
		return errors.New("scheduler: Interval must be > 0")
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	fire := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.fire(ctx)
		}()
	}

	if s.RunOnStart {
		fire()
	}

	for {
		now := s.now()
		wait := nextFire(now, s.Interval, s.location()).Sub(now)

		select {
		case <-ctx.Done():
			return nil
		case <-s.wait(wait):
			fire()
		}
	}
}

// RunOnce executa um passe protegido pela trava, de forma síncrona.
func (s *Scheduler) RunOnce(ctx context.Context) (application.Report, error) {
	release, ok := s.Guard.Acquire(ctx)
	if !ok {
		return application.Report{State: domain.PassSkipped}, ErrPassRunning
	}
	defer release()
	return s.run(ctx)
}

func (s *Scheduler) fire(ctx context.Context) {
	s.logf("scheduled run (every %s)", s.Interval)

	release, ok := s.Guard.Acquire(ctx)
	if !ok {
		s.logf("previous pass still running, skipping")
		s.record(ctx, domain.PassEvent{State: domain.PassSkipped, At: s.now()})
		return
	}
	defer release()

	_, _ = s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) (application.Report, error) {
	timeout := s.PassTimeout
	if timeout <= 0 {
		timeout = s.Interval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	rep, err := s.Pass.Run(ctx)
	if err != nil {
		s.logf("pass aborted: %v", err)
		if rep.State == "" {
			rep.State = domain.PassAborted
		}
	}
	if rep.StartedAt.IsZero() {
		rep.StartedAt = s.now()
	}

	s.mu.Lock()
	s.last = &rep
	s.lastErr = err
	s.mu.Unlock()

	s.record(context.WithoutCancel(ctx), rep.Event())
	return rep, err
}

func (s *Scheduler) record(ctx context.Context, ev domain.PassEvent) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Record(ctx, ev); err != nil {
		s.logf("stats: %v", err)
	}
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Writef(format, args...)
	}
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.Local
}

func (s *Scheduler) wait(d time.Duration) <-chan time.Time {
	if s.after != nil {
		return s.after(d)
	}
	return time.After(d)
}

// nextFire devolve o próximo instante estritamente depois de now que é
// múltiplo de interval contado a partir da meia-noite local
// (mesma ideia de "*/10 * * * *" no cron).
func nextFire(now time.Time, interval time.Duration, loc *time.Location) time.Time {
	local := now.In(loc)
	if interval <= 0 || interval > 24*time.Hour {
		return now.Add(interval)
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	elapsed := local.Sub(midnight)
	next := midnight.Add((elapsed/interval + 1) * interval)

	// o dia não é múltiplo do intervalo: recomeça na meia-noite seguinte.
	tomorrow := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	if next.After(tomorrow) {
		next = tomorrow
	}
	return next
}
