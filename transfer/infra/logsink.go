package infra

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogSink grava linhas "[<timestamp RFC3339>] <mensagem>" em um arquivo
// (somente append) e espelha cada linha em stdout.
//
// Erros de escrita no arquivo não sobem para quem chama: são contados e
// reportados via log padrão (stderr).
type LogSink struct {
	mu       sync.Mutex
	file     io.WriteCloser
	console  io.Writer
	loc      *time.Location
	now      func() time.Time
	failures atomic.Int64
}

type LogSinkOption func(*LogSink)

// WithSinkConsole troca o destino espelhado (padrão: os.Stdout). nil desliga o espelho.
func WithSinkConsole(w io.Writer) LogSinkOption {
	return func(s *LogSink) { s.console = w }
}

func WithSinkLocation(loc *time.Location) LogSinkOption {
	return func(s *LogSink) { s.loc = loc }
}

func WithSinkClock(now func() time.Time) LogSinkOption {
	return func(s *LogSink) { s.now = now }
}

// OpenLogSink abre (ou cria) o arquivo de log em modo append.
func OpenLogSink(path string, opts ...LogSinkOption) (*LogSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logsink: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logsink: open log file: %w", err)
	}
	return NewLogSink(f, opts...), nil
}

// NewLogSink cria um sink sobre um destino já aberto.
func NewLogSink(w io.WriteCloser, opts ...LogSinkOption) *LogSink {
	s := &LogSink{
		file:    w,
		console: os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write implementa domain.Sink.
func (s *LogSink) Write(message string) {
	if s == nil {
		return
	}
	ts := s.now()
	if s.loc != nil {
		ts = ts.In(s.loc)
	}
	line := fmt.Sprintf("[%s] %s\n", ts.Format(time.RFC3339), strings.TrimRight(message, "\n"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil {
		if _, err := io.WriteString(s.file, line); err != nil {
			s.failures.Add(1)
			log.Printf("logsink: append failed: %v", err)
		}
	}
	if s.console != nil {
		_, _ = io.WriteString(s.console, line)
	}
}

// Writef implementa domain.Sink.
func (s *LogSink) Writef(format string, args ...any) {
	s.Write(fmt.Sprintf(format, args...))
}

// Failures devolve quantas linhas não puderam ser gravadas no arquivo.
func (s *LogSink) Failures() int64 { return s.failures.Load() }

// Close libera o arquivo.
func (s *LogSink) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
