// Package application contém os casos de uso da transferência de deals.
//
// Ele depende apenas do pacote domain e não conhece HTTP, Redis nem arquivos.
// Ex.: Workflow.Run(ctx) executa um passe e retorna um Report;
// GuardService.Acquire evita dois passes ao mesmo tempo.
package application
