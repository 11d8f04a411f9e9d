package msg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Output is where all messages go
var Output io.Writer = color.Output

func report(label, format string, a ...any) {
	fmt.Fprint(Output, label)
	fmt.Fprint(Output, ": ")
	fmt.Fprintf(Output, format, a...)
	fmt.Fprint(Output, "\n")
}

func Error(format string, a ...any) {
	report(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	report(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	report(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	report(color.HiGreenString("info"), format, a...)
}

// Field prints an aligned `name -> value` line
func Field(name string, value any) {
	fmt.Fprintf(Output, "%-6s -> %v\n", name, value)
}

// Item prints a `> ` list entry
func Item(format string, a ...any) {
	fmt.Fprint(Output, color.HiBlackString("> "))
	fmt.Fprintf(Output, format, a...)
	fmt.Fprint(Output, "\n")
}

// Diff prints a diff as produced by builder.Diff, colored by line prefix
func Diff(w io.Writer, diff string) {
	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+ "):
			fmt.Fprint(w, color.GreenString("%s", line))
		case strings.HasPrefix(line, "- "):
			fmt.Fprint(w, color.RedString("%s", line))
		default:
			fmt.Fprint(w, line)
		}
	}
}

// IndentWriter prefixes every line written through it with Indent
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	var buf bytes.Buffer
	for _, c := range p {
		if !w.didIndent {
			buf.WriteString(w.Indent)
			w.didIndent = true
		}
		buf.WriteByte(c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
