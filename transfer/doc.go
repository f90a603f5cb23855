// Package transfer fornece os adapters de execução da transferência de deals.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem HTTP, Redis ou arquivos)
//   - application: casos de uso (um passe do workflow, trava de passe)
//   - infra: implementações concretas (cliente Bitrix, contador em JSON/Redis, log)
//   - transfer (este pacote): gatilho por relógio + endpoint HTTP de status
//
// Fluxo de cada disparo:
//
//  1. O Scheduler acorda no próximo múltiplo do intervalo (ex: :00, :10, :20...)
//  2. Tenta pegar a vaga de execução; se outro passe ainda roda, descarta o disparo
//  3. Executa Workflow.Run com timeout próprio
//  4. Registra o resultado nas estatísticas e guarda o último Report
//
// Variáveis de ambiente do binário (cmd/dealtransfer) controlam o comportamento,
// como BATCH_SIZE, DAILY_LIMIT, START_HOUR e POLL_INTERVAL.
package transfer
