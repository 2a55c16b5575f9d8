package sandbox

import (
	"os/exec"
	"strings"
)

// SeatbeltAvailable reports whether the macOS sandbox-exec binary is on
// PATH. On darwin it effectively always is.
func SeatbeltAvailable() bool {
	_, err := exec.LookPath("sandbox-exec")
	return err == nil
}

// SeatbeltArgv wraps argv in a sandbox-exec invocation with a profile that
// denies network and restricts writes to the given roots.
func SeatbeltArgv(argv []string, writableRoots []string) []string {
	wrapped := []string{"sandbox-exec", "-p", SeatbeltProfile(writableRoots)}
	return append(wrapped, argv...)
}

// SeatbeltProfile renders the sandbox-exec policy text. Reads are allowed
// everywhere so commands can load libraries and inspect the tree; writes
// are confined to the writable roots.
func SeatbeltProfile(writableRoots []string) string {
	roots := CleanRoots(writableRoots)
	var builder strings.Builder
	builder.WriteString("(version 1)\n")
	builder.WriteString("(deny default)\n")
	builder.WriteString("(allow process*)\n")
	builder.WriteString("(deny network*)\n")
	builder.WriteString("(allow file-read*)\n")
	if len(roots) == 0 {
		return builder.String()
	}
	builder.WriteString("(allow file-write*")
	for _, root := range roots {
		builder.WriteString(` (subpath "` + root + `")`)
	}
	builder.WriteString(")\n")
	return builder.String()
}
