// Package domain define contratos e tipos de domínio para a transferência de deals.
//
// Este pacote não depende de net/http, Redis nem do sistema de arquivos.
// A intenção é permitir testes de unidade puros e desacoplar a regra do passe
// (janela de horário, cota diária, lote) dos detalhes de infraestrutura.
package domain
