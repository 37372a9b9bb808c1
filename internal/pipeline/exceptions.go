package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ExceptionRecord is one contained failure: the error, its formatted stack
// frames, and the step it happened in.
type ExceptionRecord struct {
	Step  string
	Err   error
	Stack string
	When  time.Time
}

// ExceptionLog accumulates contained failures across one run, in occurrence
// order. It is persisted at end of run and then cleared so the next run
// starts clean.
type ExceptionLog struct {
	records []ExceptionRecord
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Record appends a failure. When the error does not already carry a stack
// (workers wrapping with pkg/errors do), one is captured here.
func (l *ExceptionLog) Record(step string, err error, when time.Time) {
	traced := err
	if _, ok := traced.(stackTracer); !ok {
		traced = errors.WithStack(err)
	}
	l.records = append(l.records, ExceptionRecord{
		Step:  step,
		Err:   err,
		Stack: formatStack(traced),
		When:  when,
	})
}

// Records returns a copy of the accumulated failures.
func (l *ExceptionLog) Records() []ExceptionRecord {
	out := make([]ExceptionRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *ExceptionLog) Len() int { return len(l.records) }

// Reset clears the in-memory list.
func (l *ExceptionLog) Reset() { l.records = nil }

// SaveTo appends every record to the file at path, one block per failure:
// the error text, the stack frames, then a blank line. The file lives in the
// run's working directory; when that directory was never created the run
// failed before setup and nothing is written.
func (l *ExceptionLog) SaveTo(path string) error {
	if len(l.records) == 0 {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open exception log: %w", err)
	}
	defer f.Close()
	var sb strings.Builder
	for _, rec := range l.records {
		fmt.Fprintf(&sb, "%s step=%s error=%v\n", rec.When.UTC().Format(time.RFC3339), rec.Step, rec.Err)
		if rec.Stack != "" {
			sb.WriteString(rec.Stack)
			if !strings.HasSuffix(rec.Stack, "\n") {
				sb.WriteByte('\n')
			}
		}
		sb.WriteByte('\n')
	}
	if _, err := f.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write exception log: %w", err)
	}
	return nil
}

func formatStack(err error) string {
	st, ok := err.(stackTracer)
	if !ok {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%+v", st.StackTrace()))
}
