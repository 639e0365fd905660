package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	traceMu  sync.Mutex
	traceLog *log.Logger
)

// TraceSection is one titled block of a trace entry.
type TraceSection struct {
	Title string
	Body  string
}

// SetTraceWriter routes decision traces to w. A nil writer disables them.
func SetTraceWriter(w io.Writer) {
	traceMu.Lock()
	defer traceMu.Unlock()
	if w == nil {
		traceLog = nil
		return
	}
	traceLog = log.New(w, "", log.LstdFlags)
}

func TraceEnabled() bool {
	traceMu.Lock()
	defer traceMu.Unlock()
	return traceLog != nil
}

// Trace writes a multi-line entry tagged with kind and subject, e.g.
// [TRACE][analysis][BTCUSDT 5Min].
func Trace(kind, subject string, sections []TraceSection) {
	traceMu.Lock()
	l := traceLog
	traceMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[TRACE]")
	for _, tag := range []string{kind, subject} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}
