package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/binlayout"
	"github.com/wippyai/binlayout/schema"
)

func main() {
	var (
		dataFile   = flag.String("file", "", "Path to the binary file to inspect")
		schemaText = flag.String("schema", "", "Layout schema text")
		schemaFile = flag.String("schema-file", "", "Path to a layout schema file")
		offset     = flag.Int("offset", 0, "Byte offset to decode at")
		repeat     = flag.Bool("repeat", false, "Decode instances until the buffer is exhausted")
		interactiv = flag.Bool("i", false, "Interactive mode with TUI")
		debugLog   = flag.Bool("debug", false, "Enable debug logging to stderr")
	)
	flag.Parse()

	if *debugLog {
		cfg := zap.NewDevelopmentConfig()
		logger, err := cfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()
		binlayout.SetLogger(logger)
	}

	if *dataFile == "" || (*schemaText == "" && *schemaFile == "") {
		fmt.Fprintln(os.Stderr, "Usage: layoutview -file <data.bin> -schema <text> [-offset n] [-repeat]")
		fmt.Fprintln(os.Stderr, "       layoutview -file <data.bin> -schema-file <layout.schema> -i")
		os.Exit(1)
	}

	src := *schemaText
	if *schemaFile != "" {
		b, err := os.ReadFile(*schemaFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		src = string(b)
	}

	if *interactiv {
		if err := runInteractive(*dataFile, src); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*dataFile, src, *offset, *repeat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dataFile, schemaSrc string, offset int, repeat bool) error {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	layout, err := schema.Compile(schemaSrc)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	styled := term.IsTerminal(int(os.Stdout.Fd()))

	fmt.Printf("File: %s (%d bytes)\n", dataFile, len(data))
	span := "variable"
	if layout.Span() >= 0 {
		span = fmt.Sprintf("%d bytes", layout.Span())
	}
	fmt.Printf("Layout span: %s\n\n", span)

	pos := offset
	for instance := 0; ; instance++ {
		n, err := layout.GetSpan(data, pos)
		if err != nil {
			return fmt.Errorf("span at %d: %w", pos, err)
		}
		v, err := layout.Decode(data, pos)
		if err != nil {
			return fmt.Errorf("decode at %d: %w", pos, err)
		}

		fmt.Printf("@%06x (%d bytes)\n", pos, n)
		printValue(os.Stdout, v, 1, styled)
		pos += n

		if !repeat || pos >= len(data) {
			break
		}
		fmt.Println()
	}
	return nil
}

var (
	fieldStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))
)

func printValue(w *os.File, v any, depth int, styled bool) {
	indent := strings.Repeat("  ", depth)
	switch t := v.(type) {
	case *binlayout.Record:
		for _, k := range t.Keys() {
			fv, _ := t.Get(k)
			switch fv.(type) {
			case *binlayout.Record, []any:
				fmt.Fprintf(w, "%s%s:\n", indent, styleField(k, styled))
				printValue(w, fv, depth+1, styled)
			default:
				fmt.Fprintf(w, "%s%s: %s\n", indent, styleField(k, styled), styleValue(fv, styled))
			}
		}
	case []any:
		for i, item := range t {
			switch item.(type) {
			case *binlayout.Record, []any:
				fmt.Fprintf(w, "%s[%d]:\n", indent, i)
				printValue(w, item, depth+1, styled)
			default:
				fmt.Fprintf(w, "%s[%d]: %s\n", indent, i, styleValue(item, styled))
			}
		}
	default:
		fmt.Fprintf(w, "%s%s\n", indent, styleValue(v, styled))
	}
}

func styleField(name string, styled bool) string {
	if styled {
		return fieldStyle.Render(name)
	}
	return name
}

func styleValue(v any, styled bool) string {
	var s string
	switch t := v.(type) {
	case []byte:
		s = fmt.Sprintf("% x", t)
	case string:
		s = fmt.Sprintf("%q", t)
	case uint64:
		s = fmt.Sprintf("%d (0x%x)", t, t)
	default:
		s = fmt.Sprintf("%v", t)
	}
	if styled {
		return valueStyle.Render(s)
	}
	return s
}
