// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - FileCounterStore / RedisCounterStore: persistência do contador diário
//   - LogSink: log de eventos em arquivo + stdout
//   - BitrixClient: cliente HTTP do CRM, com ritmo controlado por golang.org/x/time/rate
//   - ChanPool: semáforo simples usado como trava de passe
package infra
