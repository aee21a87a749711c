package compiler_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/Urethramancer/avr/arch/avr"
	"github.com/Urethramancer/avr/asmtest"
	"github.com/Urethramancer/avr/compiler"
	"github.com/Urethramancer/avr/diag"
	"github.com/Urethramancer/avr/objcode"
	"github.com/Urethramancer/avr/output"
	"github.com/Urethramancer/avr/resource"
	"github.com/nalgeon/be"
)

func TestMarkdown(t *testing.T) {
	testFiles, err := filepath.Glob("testdata/*.md")
	be.Err(t, err, nil)
	be.True(t, len(testFiles) > 0)

	for _, testFile := range testFiles {
		t.Run(strings.TrimSuffix(filepath.Base(testFile), ".md"), func(t *testing.T) {
			content, err := os.ReadFile(testFile)
			be.Err(t, err, nil)
			cases, err := asmtest.ExtractTestCases(string(content))
			be.Err(t, err, nil)
			for _, tc := range cases {
				t.Run(tc.Name, func(t *testing.T) {
					runCase(t, tc)
				})
			}
		})
	}
}

func settings(t *testing.T, tc asmtest.TestCase) compiler.Settings {
	s := compiler.DefaultSettings()
	var err error
	s.MaxErrors, err = tc.IntOption("max-errors", s.MaxErrors)
	be.Err(t, err, nil)
	s.FailOnAddressOutOfRange, err = tc.BoolOption("range-check", s.FailOnAddressOutOfRange)
	be.Err(t, err, nil)
	s.WarnIfInOutCanBeUsed, err = tc.BoolOption("inout-hint", s.WarnIfInOutCanBeUsed)
	be.Err(t, err, nil)
	return s
}

func runCase(t *testing.T, tc asmtest.TestCase) {
	dev, err := avr.Lookup(tc.Option("device", avr.Default().Name()))
	be.Err(t, err, nil)

	fsys := fstest.MapFS{}
	for name, src := range tc.Files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	f := resource.NewFS(fsys)
	c := compiler.New(dev).NewCompilation(compiler.NewUnit(f.Open(asmtest.MainFile)), objcode.NewWriter(), settings(t, tc), f)
	ok, err := c.Compile()
	be.Err(t, err, nil)

	memory := output.Memory{}
	if ok {
		_, err := c.Finish(memory)
		be.Err(t, err, nil)
	}

	var errs, warnings []string
	for _, d := range c.Diagnostics() {
		switch d.Severity {
		case diag.SeverityError:
			errs = append(errs, d.String())
		case diag.SeverityWarning:
			warnings = append(warnings, d.String())
		}
	}

	if a, found := tc.Assertion(asmtest.FenceErrors); found {
		be.Equal(t, errs, asmtest.Lines(a.Content))
	} else {
		be.Equal(t, errs, []string(nil))
	}
	if a, found := tc.Assertion(asmtest.FenceWarnings); found {
		be.Equal(t, warnings, asmtest.Lines(a.Content))
	}

	segments := map[asmtest.FenceType]objcode.Segment{
		asmtest.FenceCode:   objcode.Code,
		asmtest.FenceData:   objcode.Data,
		asmtest.FenceEEPROM: objcode.EEPROM,
	}
	for fence, seg := range segments {
		a, found := tc.Assertion(fence)
		if !found {
			continue
		}
		want, err := asmtest.ParseHex(a.Content)
		be.Err(t, err, nil)
		img := memory[seg]
		be.Equal(t, asmtest.FormatHex(img.Data), asmtest.FormatHex(want))
		if a.Arg != "" {
			start, err := strconv.ParseInt(a.Arg, 0, 32)
			be.Err(t, err, nil)
			be.Equal(t, img.Start, int32(start))
		}
	}
}
