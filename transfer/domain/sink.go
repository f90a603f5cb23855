package domain

// Sink recebe as linhas do log de eventos.
//
// Implementações não devolvem erro: o log é best-effort para quem chama.
type Sink interface {
	Write(message string)
	Writef(format string, args ...any)
}
