package shell

// Pane is the persistent terminal surface the session driver types into and
// reads from. Implementations must retain scrollback so that output produced
// between polls is still visible on the next Capture.
type Pane interface {
	// Send delivers text to the pane. With pressEnter true the text is sent
	// literally followed by a newline; with pressEnter false the text is
	// interpreted as a key name (e.g. "C-c") and sent without a newline.
	Send(text string, pressEnter bool) error

	// Capture returns the full scrollback plus visible buffer as text, one
	// line per row with trailing whitespace removed.
	Capture() (string, error)

	// Clear wipes the visible screen and the scrollback history so the next
	// Capture starts from an empty buffer.
	Clear() error

	// Close tears down the pane and the process tree behind it. Idempotent.
	Close() error
}
