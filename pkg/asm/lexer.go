package asm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// rawLine is one non-blank source line split into its label, mnemonic,
// and operand fields; StartLexing emits these for StartParsing to turn
// into Instruction values.
type rawLine struct {
	Lineno     int
	MaybeLabel *string
	Mnemonic   string
	Operands   []string
	Err        error
}

// StartLexing starts the line scanner in a background goroutine and
// returns a sequence of rawLine, mirroring StartAssembler's
// channel-streaming shape one layer down.
func StartLexing(r io.Reader) <-chan rawLine {
	out := make(chan rawLine)
	go LexerAsync(r, out)
	return out
}

// LexerAsync scans r line by line, stripping comments and blank lines,
// splitting an optional "label:" prefix, and tokenizing the remainder
// into a mnemonic and its comma/space-separated operands.
func LexerAsync(r io.Reader, out chan<- rawLine) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	lineno := 0
	var pendingLabel *string // a "label:" line with no instruction on it yet
	for scanner.Scan() {
		lineno++
		text := stripComment(scanner.Text())
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		label := pendingLabel
		pendingLabel = nil
		if idx := strings.Index(text, ":"); idx >= 0 {
			name := strings.TrimSpace(text[:idx])
			if name == "" || strings.ContainsAny(name, " \t") {
				out <- rawLine{Lineno: lineno, Err: fmt.Errorf("asm: malformed label on line %d", lineno)}
				return
			}
			if label != nil {
				out <- rawLine{Lineno: lineno, Err: fmt.Errorf("asm: label '%s' on line %d has no instruction before the next label", *label, lineno)}
				return
			}
			label = &name
			text = strings.TrimSpace(text[idx+1:])
			if text == "" {
				pendingLabel = label
				continue
			}
		}

		fields := tokenizeOperands(text)
		out <- rawLine{
			Lineno:     lineno,
			MaybeLabel: label,
			Mnemonic:   strings.ToLower(fields[0]),
			Operands:   fields[1:],
		}
	}
	if err := scanner.Err(); err != nil {
		out <- rawLine{Lineno: lineno, Err: fmt.Errorf("asm: scanning input: %w", err)}
		return
	}
	if pendingLabel != nil {
		out <- rawLine{Lineno: lineno, Err: fmt.Errorf("asm: label '%s' has no instruction", *pendingLabel)}
	}
}

// stripComment removes a trailing "#" or "//" comment.
func stripComment(line string) string {
	if idx := strings.Index(line, "#"); idx >= 0 {
		line = line[:idx]
	}
	if idx := strings.Index(line, "//"); idx >= 0 {
		line = line[:idx]
	}
	return line
}

// tokenizeOperands splits "mnemonic op1, op2, op3" into
// ["mnemonic", "op1", "op2", "op3"].
func tokenizeOperands(text string) []string {
	parts := strings.Fields(text)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		for _, piece := range strings.Split(p, ",") {
			piece = strings.TrimSpace(piece)
			if piece != "" {
				out = append(out, piece)
			}
		}
	}
	return out
}
