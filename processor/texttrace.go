package processor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// A TraceError reports a malformed trace line.
type TraceError struct {
	File   string
	Line   int
	Token  string
	Reason string
}

func (e *TraceError) Error() string {
	return fmt.Sprintf("%s:%d: %s %q", e.File, e.Line, e.Reason, e.Token)
}

// TextTrace is a trace read from text. Each line holds
//
//	<cpu> <op> <address>
//
// where op is R, W, N, READ, WRITE or NOP, in any case. The address is
// decimal or 0x-prefixed hex and may be omitted for NOPs. Anything after a
// '#' is a comment.
type TextTrace struct {
	*MemoryTrace
}

// LoadTextTrace reads a trace file.
func LoadTextTrace(path string) (*TextTrace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}
	defer f.Close()

	return ParseTextTrace(f, path)
}

// ParseTextTrace reads a trace. The name is only used in error messages.
func ParseTextTrace(r io.Reader, name string) (*TextTrace, error) {
	var lines []parsedLine

	numCPUs := 0
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		l, ok, err := parseLine(scanner.Text(), name, lineNo)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		lines = append(lines, l)
		numCPUs = max(numCPUs, l.cpu+1)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read trace %s: %w", name, err)
	}

	t := &TextTrace{MemoryTrace: NewMemoryTrace(numCPUs)}
	for _, l := range lines {
		t.Add(l.cpu, l.entry)
	}

	return t, nil
}

type parsedLine struct {
	cpu   int
	entry TraceEntry
}

func parseLine(text, name string, lineNo int) (parsedLine, bool, error) {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return parsedLine{}, false, nil
	}

	fail := func(token, reason string) (parsedLine, bool, error) {
		return parsedLine{}, false, &TraceError{
			File:   name,
			Line:   lineNo,
			Token:  token,
			Reason: reason,
		}
	}

	if len(fields) < 2 || len(fields) > 3 {
		return fail(strings.TrimSpace(text), "expecting <cpu> <op> <address>")
	}

	cpu, err := strconv.Atoi(fields[0])
	if err != nil || cpu < 0 {
		return fail(fields[0], "bad processor index")
	}

	if cpu >= MaxCPUs {
		return fail(fields[0], "processor index out of range")
	}

	op, ok := parseOp(fields[1])
	if !ok {
		return fail(fields[1], "unknown operation")
	}

	l := parsedLine{cpu: cpu, entry: TraceEntry{Op: op}}

	if len(fields) == 2 {
		if op != OpNop {
			return fail(fields[1], "missing address for")
		}

		return l, true, nil
	}

	addr, err := parseAddress(fields[2])
	if err != nil {
		return fail(fields[2], "bad address")
	}

	l.entry.Addr = addr

	return l, true, nil
}

func parseOp(token string) (Op, bool) {
	switch strings.ToUpper(token) {
	case "R", "READ":
		return OpRead, true
	case "W", "WRITE":
		return OpWrite, true
	case "N", "NOP":
		return OpNop, true
	default:
		return OpNop, false
	}
}

func parseAddress(token string) (uint64, error) {
	lower := strings.ToLower(token)
	if strings.HasPrefix(lower, "0x") {
		return strconv.ParseUint(lower[2:], 16, 64)
	}

	return strconv.ParseUint(token, 10, 64)
}
