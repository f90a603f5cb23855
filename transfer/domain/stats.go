package domain

import (
	"context"
	"time"
)

// PassState é o estado terminal de um passe.
type PassState string

const (
	PassWaited       PassState = "waited"
	PassLimitReached PassState = "limit_reached"
	PassNothingFound PassState = "nothing_found"
	PassCompleted    PassState = "completed"
	// PassAborted: erro de armazenamento interrompeu o passe.
	PassAborted PassState = "aborted"
	// PassSkipped: o disparo foi descartado porque outro passe ainda rodava.
	PassSkipped PassState = "skipped"
)

// PassEvent resume um passe para estatística.
type PassEvent struct {
	State    PassState
	Moved    int
	Rejected int
	Failed   int

	At time.Time
}

// StatsStore é a estratégia de persistência para estatísticas dos passes.
//
// Implementações podem armazenar em Redis, memória, etc.
// O scheduler trata erro como best-effort (não derruba o loop).
type StatsStore interface {
	Record(ctx context.Context, ev PassEvent) error
}
