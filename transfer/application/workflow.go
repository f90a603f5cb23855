package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deal-transfer/transfer/domain"
)

// Settings são os parâmetros de negócio de um passe.
type Settings struct {
	SourceStageID string
	TargetStageID string
	BatchSize     int
	DailyLimit    int
	StartHour     int
	Location      *time.Location
}

// Report descreve o que um passe fez.
type Report struct {
	State      domain.PassState
	DateKey    string
	Requested  int
	Fetched    int
	TodayTotal int
	Outcomes   []domain.UpdateOutcome
	StartedAt  time.Time
}

// Event converte o report em um evento de estatística.
func (r Report) Event() domain.PassEvent {
	ev := domain.PassEvent{State: r.State, At: r.StartedAt}
	for _, o := range r.Outcomes {
		switch o.Status {
		case domain.UpdateMoved:
			ev.Moved++
		case domain.UpdateRejected:
			ev.Rejected++
		default:
			ev.Failed++
		}
	}
	return ev
}

// Workflow concentra a regra de um passe de transferência, sem saber nada
// sobre HTTP ou sobre onde o contador mora.
type Workflow struct {
	Settings Settings
	CRM      domain.CRM
	Counter  domain.CounterStore
	Log      domain.Sink
	// Now permite fixar o relógio em testes. Se nil, usa time.Now.
	Now func() time.Time
}

func (w Workflow) now() time.Time {
	var t time.Time
	if w.Now != nil {
		t = w.Now()
	} else {
		t = time.Now()
	}
	if w.Settings.Location != nil {
		t = t.In(w.Settings.Location)
	}
	return t
}

// Run executa um passe.
//
// Falhas do CRM nunca chegam aqui (viram resultados). Erros de leitura/escrita
// do contador interrompem o passe e são devolvidos junto com o report parcial.
func (w Workflow) Run(ctx context.Context) (Report, error) {
	if w.CRM == nil || w.Counter == nil || w.Log == nil {
		return Report{}, errors.New("workflow: CRM, Counter and Log are required")
	}

	now := w.now()
	s := w.Settings
	rep := Report{StartedAt: now}

	if now.Hour() < s.StartHour {
		w.Log.Writef("it is earlier than %d:00, waiting for the start window", s.StartHour)
		rep.State = domain.PassWaited
		return rep, nil
	}

	counter, err := w.Counter.Load(ctx)
	if err != nil {
		rep.State = domain.PassAborted
		return rep, fmt.Errorf("load counter: %w", err)
	}
	if counter == nil {
		counter = domain.Counter{}
	}

	rep.DateKey = domain.DateKey(now, s.Location)
	today, ok := counter[rep.DateKey]
	if !ok {
		counter[rep.DateKey] = 0
		w.Log.Write("new day: counter reset")
	}
	rep.TodayTotal = today

	if today >= s.DailyLimit {
		w.Log.Writef("daily limit of %d deals reached", s.DailyLimit)
		rep.State = domain.PassLimitReached
		return rep, nil
	}

	rep.Requested = min(s.BatchSize, s.DailyLimit-today)

	fetched := w.CRM.ListDeals(ctx, s.SourceStageID, rep.Requested)
	deals := fetched.Deals
	if len(deals) > rep.Requested {
		deals = deals[:rep.Requested]
	}
	if len(deals) == 0 {
		w.Log.Write("no deals to transfer")
		rep.State = domain.PassNothingFound
		return rep, nil
	}
	rep.Fetched = len(deals)

	// Conta a tentativa, não o sucesso: uma recusa do CRM também consome cota.
	for _, d := range deals {
		out := w.CRM.UpdateDealStage(ctx, d.ID, s.TargetStageID)
		rep.Outcomes = append(rep.Outcomes, out)
		counter[rep.DateKey]++
	}
	rep.TodayTotal = counter[rep.DateKey]

	if inc, ok := w.Counter.(domain.CounterIncrementer); ok {
		total, err := inc.Incr(ctx, rep.DateKey, rep.Fetched)
		if err != nil {
			rep.State = domain.PassAborted
			return rep, fmt.Errorf("increment counter: %w", err)
		}
		rep.TodayTotal = total
	} else if err := w.Counter.Save(ctx, counter); err != nil {
		rep.State = domain.PassAborted
		return rep, fmt.Errorf("save counter: %w", err)
	}

	w.Log.Writef("transferred %d deals, total today: %d", rep.Fetched, rep.TodayTotal)
	rep.State = domain.PassCompleted
	return rep, nil
}
