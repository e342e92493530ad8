/*
 * dt550ctl - Wrapper for logrus.
 *
 * Copyright 2026, dt550ctl contributors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package logging wraps logrus the way util/logger wraps slog: one
// formatted line per entry, a mutex-guarded writer, and an optional
// mirrored copy to stderr for interactive debug sessions.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// lineFormatter renders a logrus.Entry as "time level message" with no
// quoting or key=value noise, matching the teacher's plain text line.
type lineFormatter struct{}

func (lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(e.Time.Format("2006/01/02 15:04:05"))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(e.Level.String()))
	b.WriteString(": ")
	b.WriteString(e.Message)
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// mirrorWriter duplicates every write to both the primary log file and
// stderr, guarded by a single mutex, the way the teacher's LogHandler
// optionally mirrors debug output to os.Stderr.
type mirrorWriter struct {
	mu      sync.Mutex
	out     io.Writer
	mirror  bool
}

func (w *mirrorWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.out.Write(p)
	if w.mirror {
		os.Stderr.Write(p)
	}
	return n, err
}

// Logger implements dectape.Logger on top of a logrus.Logger.
type Logger struct {
	entry  *logrus.Logger
	writer *mirrorWriter
}

// New builds a Logger writing to out, at the given level name (any
// name logrus.ParseLevel accepts, such as "debug", "info", "warn" or
// "error"; an unrecognised name defaults to info).
func New(out io.Writer, level string) *Logger {
	w := &mirrorWriter{out: out}
	l := logrus.New()
	l.SetFormatter(lineFormatter{})
	l.SetOutput(w)
	if lv, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lv)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return &Logger{entry: l, writer: w}
}

// SetMirrorStderr toggles whether every write is also copied to
// os.Stderr, for interactive debug sessions.
func (lg *Logger) SetMirrorStderr(mirror bool) {
	lg.writer.mu.Lock()
	defer lg.writer.mu.Unlock()
	lg.writer.mirror = mirror
}

// Logf implements dectape.Logger: one formatted line tagged with the
// originating unit.
func (lg *Logger) Logf(unit int, format string, args ...interface{}) {
	lg.entry.Infof(fmt.Sprintf("[unit %d] %s", unit, format), args...)
}

// Debugf logs at debug level, unprefixed by a unit number, for
// controller-wide tracing (config load, command-line dispatch).
func (lg *Logger) Debugf(format string, args ...interface{}) {
	lg.entry.Debugf(format, args...)
}

// Errorf logs at error level.
func (lg *Logger) Errorf(format string, args ...interface{}) {
	lg.entry.Errorf(format, args...)
}
