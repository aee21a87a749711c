// Package asmtest extracts assembler test cases from Markdown documents.
//
// A test case starts at a heading "Test: name". Its fences are:
//
//	asm            the root source, main.asm
//	asm lib.inc    another file the root can include
//	options        key=value lines: device, max-errors, range-check, inout-hint
//	cseg [start]   expected program memory bytes in hex
//	dseg, eseg     expected data and EEPROM bytes
//	errors         expected error diagnostics, one per line
//	warnings       expected warning diagnostics, one per line
package asmtest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MainFile is the name the root source is stored under.
const MainFile = "main.asm"

// FenceType is the first word of a fence's info string.
type FenceType string

const (
	FenceSource   FenceType = "asm"
	FenceOptions  FenceType = "options"
	FenceCode     FenceType = "cseg"
	FenceData     FenceType = "dseg"
	FenceEEPROM   FenceType = "eseg"
	FenceErrors   FenceType = "errors"
	FenceWarnings FenceType = "warnings"
)

// Assertion is one expectation about the assembler's result.
type Assertion struct {
	Type    FenceType
	Arg     string // Rest of the info string, e.g. the start address of a segment
	Content string
	Line    int
}

// TestCase is one test extracted from a Markdown document.
type TestCase struct {
	Name       string
	Line       int
	Files      map[string]string // Sources by file name, MainFile included
	Options    map[string]string
	Assertions []Assertion
}

// Main returns the root source.
func (tc *TestCase) Main() string {
	return tc.Files[MainFile]
}

// Option returns an option value or def when it is not set.
func (tc *TestCase) Option(key, def string) string {
	if v, ok := tc.Options[key]; ok {
		return v
	}
	return def
}

// BoolOption is Option for true/false values.
func (tc *TestCase) BoolOption(key string, def bool) (bool, error) {
	v, ok := tc.Options[key]
	if !ok {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("test '%s': option %s: %w", tc.Name, key, err)
	}
	return b, nil
}

// IntOption is Option for integers.
func (tc *TestCase) IntOption(key string, def int) (int, error) {
	v, ok := tc.Options[key]
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("test '%s': option %s: %w", tc.Name, key, err)
	}
	return n, nil
}

// Assertion returns the first assertion of the given type.
func (tc *TestCase) Assertion(t FenceType) (Assertion, bool) {
	for _, a := range tc.Assertions {
		if a.Type == t {
			return a, true
		}
	}
	return Assertion{}, false
}

// ExtractTestCases parses a Markdown document and returns its test cases in
// document order.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var current *TestCase

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := node.(type) {
		case *ast.Heading:
			heading := extractText(n, source)
			name, ok := strings.CutPrefix(heading, "Test: ")
			if !ok {
				return ast.WalkContinue, nil
			}
			if current != nil {
				if err := validate(current); err != nil {
					return ast.WalkStop, err
				}
				cases = append(cases, *current)
			}
			current = &TestCase{
				Name:    strings.TrimSpace(name),
				Line:    lineNumber(n, source),
				Files:   map[string]string{},
				Options: map[string]string{},
			}

		case *ast.FencedCodeBlock:
			fence, arg := splitInfo(n, source)
			line := lineNumber(n, source)
			if current == nil {
				if fence != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence found outside of test case", line, fence)
				}
				return ast.WalkContinue, nil
			}
			content := codeBlockContent(n, source)
			if err := current.add(fence, arg, content, line); err != nil {
				return ast.WalkStop, fmt.Errorf("line %d: %w", line, err)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown AST: %w", err)
	}

	if current != nil {
		if err := validate(current); err != nil {
			return nil, err
		}
		cases = append(cases, *current)
	}
	return cases, nil
}

func (tc *TestCase) add(fence FenceType, arg, content string, line int) error {
	switch fence {
	case "":
		return nil

	case FenceSource:
		name := arg
		if name == "" {
			name = MainFile
		}
		if _, dup := tc.Files[name]; dup {
			return fmt.Errorf("multiple sources for %s in test '%s'", name, tc.Name)
		}
		tc.Files[name] = content

	case FenceOptions:
		for _, l := range strings.Split(content, "\n") {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			k, v, ok := strings.Cut(l, "=")
			if !ok {
				return fmt.Errorf("option %q in test '%s' is not key=value", l, tc.Name)
			}
			tc.Options[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}

	case FenceCode, FenceData, FenceEEPROM, FenceErrors, FenceWarnings:
		if _, dup := tc.Assertion(fence); dup {
			return fmt.Errorf("multiple %s fences in test '%s'", fence, tc.Name)
		}
		tc.Assertions = append(tc.Assertions, Assertion{
			Type:    fence,
			Arg:     arg,
			Content: strings.TrimRight(content, "\n"),
			Line:    line,
		})

	default:
		return fmt.Errorf("unknown fence language '%s' in test '%s'", fence, tc.Name)
	}
	return nil
}

// validate ensures a test case has a root source and something to check.
func validate(tc *TestCase) error {
	if _, ok := tc.Files[MainFile]; !ok {
		return fmt.Errorf("test '%s' has no asm fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test '%s' has no assertion fences", tc.Name)
	}
	return nil
}

// splitInfo returns the first word of the info string and the rest.
// Language only returns the first word.
func splitInfo(n *ast.FencedCodeBlock, source []byte) (FenceType, string) {
	if n.Info == nil {
		return "", ""
	}
	info := strings.TrimSpace(string(n.Info.Segment.Value(source)))
	first, rest, _ := strings.Cut(info, " ")
	return FenceType(first), strings.TrimSpace(rest)
}

func extractText(node ast.Node, source []byte) string {
	var buf bytes.Buffer
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func codeBlockContent(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(source))
	}
	return buf.String()
}

func lineNumber(n ast.Node, source []byte) int {
	start := 0
	switch {
	case n.Lines().Len() > 0:
		start = n.Lines().At(0).Start
	case n.HasChildren():
		if t, ok := n.FirstChild().(*ast.Text); ok {
			start = t.Segment.Start
		}
	}
	return 1 + bytes.Count(source[:min(start, len(source))], []byte("\n"))
}

// ParseHex reads whitespace separated hex bytes. Pairs may also be written
// without spaces, so "0c94 3400" and "0C 94 34 00" are the same.
func ParseHex(s string) ([]byte, error) {
	digits := strings.Join(strings.Fields(s), "")
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("invalid hex bytes: %w", err)
	}
	return b, nil
}

// FormatHex writes bytes the way expectations are written: upper case pairs,
// sixteen per line.
func FormatHex(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		switch {
		case i == 0:
		case i%16 == 0:
			sb.WriteByte('\n')
		default:
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}

// Lines splits expected diagnostics, dropping blank lines and surrounding space.
func Lines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
