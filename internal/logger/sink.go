package logger

import "log"

// Sink receives human-readable lines. Emit is best-effort: implementations
// swallow their own failures so a broken sink never stalls trading.
type Sink interface {
	Emit(line string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(line string)

func (f SinkFunc) Emit(line string) { f(line) }

// StdSink writes lines through the standard logger, which adds the timestamp.
type StdSink struct {
	Prefix string
}

func (s StdSink) Emit(line string) {
	log.Print(s.Prefix + line)
}

// Multi fans a line out to every sink in order.
type Multi []Sink

func (m Multi) Emit(line string) {
	for _, s := range m {
		if s != nil {
			s.Emit(line)
		}
	}
}
