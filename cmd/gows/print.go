package main

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	json "github.com/bytedance/sonic"
	"github.com/fatih/color"
)

// printer renders connection events with colorized formatting.
type printer struct {
	w      io.Writer
	pretty bool
}

func newPrinter(w io.Writer, pretty bool) *printer {
	return &printer{w: w, pretty: pretty}
}

// Connecting prints the target before the handshake starts.
func (p *printer) Connecting(url string) {
	_, _ = color.New(color.FgHiBlack).Fprintf(p.w, "%s connecting to %s\n", stamp(), url)
}

// Connected prints the Opened status.
func (p *printer) Connected() {
	_, _ = color.New(color.FgHiGreen, color.Bold).Fprintf(p.w, "%s 🔗 Opened\n", stamp())
}

// Closed prints the Closed status.
func (p *printer) Closed() {
	_, _ = color.New(color.FgHiRed, color.Bold).Fprintf(p.w, "%s ❌ Closed\n", stamp())
}

// Message prints one inbound payload, as text when it is valid UTF-8 and as
// hex otherwise.
func (p *printer) Message(payload []byte) {
	label := color.New(color.FgCyan).Sprint("📨 <=")

	if !utf8.Valid(payload) {
		fmt.Fprintf(p.w, "%s %s [binary, %d bytes] % x\n", stamp(), label, len(payload), payload)

		return
	}

	fmt.Fprintf(p.w, "%s %s %s\n", stamp(), label, p.body(payload))
}

// body indents JSON payloads when pretty printing is on.
func (p *printer) body(payload []byte) string {
	if !p.pretty {
		return string(payload)
	}

	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return string(payload)
	}

	indented, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(payload)
	}

	return "\n" + string(indented)
}

func stamp() string {
	return time.Now().Format("15:04:05")
}
