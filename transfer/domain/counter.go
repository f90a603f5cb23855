package domain

import (
	"context"
	"errors"
	"time"
)

// DateLayout é o formato das chaves do contador diário.
const DateLayout = "2006-01-02"

var (
	// ErrStorageRead indica que o contador existe mas não pôde ser lido/decodificado.
	ErrStorageRead = errors.New("counter storage read")
	// ErrStorageWrite indica falha ao persistir o contador.
	ErrStorageWrite = errors.New("counter storage write")
)

// Counter mapeia a data (YYYY-MM-DD) para a quantidade de deals transferidos no dia.
type Counter map[string]int

// DateKey devolve a chave do dia de t no fuso loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(DateLayout)
}

// Clone devolve uma cópia rasa (o suficiente para map[string]int).
func (c Counter) Clone() Counter {
	out := make(Counter, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// CounterStore é a estratégia de persistência do contador diário.
//
// Load em um armazenamento inexistente devolve um Counter vazio, não erro.
// Save substitui o conteúdo inteiro (não faz append).
type CounterStore interface {
	Load(ctx context.Context) (Counter, error)
	Save(ctx context.Context, c Counter) error
}

// CounterIncrementer é implementado por stores que sabem somar ao dia de forma
// atômica (ex: Redis HINCRBY). Com ele o passe não regrava o mapa inteiro, e
// duas instâncias não sobrescrevem a contagem uma da outra.
type CounterIncrementer interface {
	Incr(ctx context.Context, dateKey string, n int) (int, error)
}
