package gen

import (
	"fmt"
	"strings"
)

// varWidth is the column Makefile variable names are padded to
const varWidth = 10

func write(sb *strings.Builder, s ...string) {
	for _, str := range s {
		sb.WriteString(str)
	}
}

func writeln(sb *strings.Builder, s ...string) {
	write(sb, s...)
	sb.WriteByte('\n')
}

// assign returns the `NAME       = ` prefix of a variable assignment
func assign(name string) string {
	return fmt.Sprintf("%-*s = ", varWidth, name)
}

// writeVar writes a whole `NAME = value` line
func writeVar(sb *strings.Builder, name string, value ...string) {
	write(sb, assign(name))
	writeln(sb, value...)
}
