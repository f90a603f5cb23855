package domain

import "context"

// UpdateStatus é o resultado de uma tentativa de mover um deal.
type UpdateStatus string

const (
	// UpdateMoved: o CRM respondeu com "result" verdadeiro.
	UpdateMoved UpdateStatus = "moved"
	// UpdateRejected: a chamada HTTP funcionou mas o CRM recusou (sem "result").
	UpdateRejected UpdateStatus = "rejected"
	// UpdateFailed: erro de transporte, status não-2xx ou corpo ilegível.
	UpdateFailed UpdateStatus = "failed"
)

// UpdateOutcome é o resultado explícito de UpdateDealStage.
//
// O cliente nunca propaga erro: quem chama decide pelo Status.
type UpdateOutcome struct {
	DealID DealID       `json:"deal_id"`
	Status UpdateStatus `json:"status"`
	Detail string       `json:"detail,omitempty"`
}

// FetchResult é o resultado de ListDeals. Err != nil significa que a busca
// falhou e foi absorvida (Deals vem vazio).
type FetchResult struct {
	Deals []Deal
	Err   error
}

// CRM representa as duas operações que o passe usa do CRM externo.
type CRM interface {
	ListDeals(ctx context.Context, stageID string, limit int) FetchResult
	UpdateDealStage(ctx context.Context, id DealID, stageID string) UpdateOutcome
}
