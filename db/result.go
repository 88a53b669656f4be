package db

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/nickyhof/KivDB/kql"
)

type Result interface {
	Type() kql.OperationType
	// Elapsed covers only the storage work of the statement.
	Elapsed() time.Duration
	Render(w io.Writer)
	Display()
}

type SetResult struct {
	Key           string
	Created       bool
	ExecutionTime time.Duration
}

type DeleteResult struct {
	Key           string
	ExecutionTime time.Duration
}

// GetResult holds the looked-up value; Value is nil when the key is absent.
type GetResult struct {
	Key           string
	Value         *string
	ExecutionTime time.Duration
}

func (result SetResult) Type() kql.OperationType    { return kql.SetOperationType }
func (result DeleteResult) Type() kql.OperationType { return kql.DeleteOperationType }
func (result GetResult) Type() kql.OperationType    { return kql.GetOperationType }

func (result SetResult) Elapsed() time.Duration    { return result.ExecutionTime }
func (result DeleteResult) Elapsed() time.Duration { return result.ExecutionTime }
func (result GetResult) Elapsed() time.Duration    { return result.ExecutionTime }

// formatDuration formats a duration in human-readable form
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return "<1µs"
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < 10*time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		mins := int(d / time.Minute)
		secs := int((d % time.Minute) / time.Second)
		if secs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, secs)
	}
}

func (result SetResult) Render(w io.Writer) {
	action := "updated"
	if result.Created {
		action = "created"
	}
	fmt.Fprintf(w, "OK, 1 key %s (%s)\n", action, formatDuration(result.ExecutionTime))
}

func (result DeleteResult) Render(w io.Writer) {
	fmt.Fprintf(w, "OK (%s)\n", formatDuration(result.ExecutionTime))
}

func (result GetResult) Render(w io.Writer) {
	if result.Value == nil {
		fmt.Fprintf(w, "(nil) (%s)\n", formatDuration(result.ExecutionTime))
		return
	}
	fmt.Fprintf(w, "%s (%s)\n", strconv.Quote(*result.Value), formatDuration(result.ExecutionTime))
}

func (result SetResult) Display()    { result.Render(os.Stdout) }
func (result DeleteResult) Display() { result.Render(os.Stdout) }
func (result GetResult) Display()    { result.Render(os.Stdout) }
