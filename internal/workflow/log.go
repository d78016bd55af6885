package workflow

import (
	"io"
	"log"
	"sync"

	sp "github.com/scipipe/scipipe"
)

// scipipe logs through package-level loggers and only the first InitLog call
// takes effect. They are installed once and write to whatever the executor
// running the current stage points scipipeOut at.
var (
	scipipeOut     = &switchWriter{}
	scipipeLogOnce sync.Once
)

func installScipipeLog() {
	scipipeLogOnce.Do(func() {
		sp.InitLog(io.Discard, scipipeOut, scipipeOut, scipipeOut, scipipeOut, scipipeOut)
		sp.Trace = log.New(io.Discard, "TRACE   ", log.Ldate|log.Ltime)
		sp.Debug = log.New(scipipeOut, "DEBUG   ", log.Ldate|log.Ltime)
		sp.Info = log.New(scipipeOut, "INFO    ", log.Ldate|log.Ltime)
		sp.Audit = log.New(scipipeOut, "AUDIT   ", log.Ldate|log.Ltime)
		sp.Warning = log.New(scipipeOut, "WARNING ", log.Ldate|log.Ltime)
		sp.Error = log.New(scipipeOut, "ERROR   ", log.Ldate|log.Ltime)
	})
}

// switchWriter forwards writes to a replaceable target, discarding them
// while none is set.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return len(p), nil
	}
	return s.w.Write(p)
}
