package shell

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Marker is the out-of-band sentinel printed by the shell prompt after every
// command. The token is generated per session so that program output is
// unlikely to collide with it. This is a probabilistic guard against buggy
// output, not a cryptographic one: a program that deliberately prints the
// token can confuse the driver.
type Marker struct {
	token string
	re    *regexp.Regexp
}

// Occurrence is one parsed marker instance found in captured pane text.
// Start and End are byte offsets of the whole marker block within the
// captured text. Occurrences are recomputed on every poll, never persisted.
type Occurrence struct {
	Start             int
	End               int
	PID               int
	ExitCode          int
	Username          string
	Hostname          string
	WorkingDir        string
	PyInterpreterPath string
}

// NewMarker creates a marker with a fresh high-entropy token.
func NewMarker() *Marker {
	return newMarkerWithToken(uuid.NewString())
}

func newMarkerWithToken(token string) *Marker {
	m := &Marker{token: token}
	m.re = regexp.MustCompile(
		"(?s)" + regexp.QuoteMeta(m.Begin()) + "(.*?)" + regexp.QuoteMeta(m.End()),
	)
	return m
}

// Begin returns the opening delimiter line of the marker block.
func (m *Marker) Begin() string {
	return "###DROVER-" + m.token + "###"
}

// End returns the closing delimiter line of the marker block.
func (m *Marker) End() string {
	return "###DROVER-" + m.token + "-END###"
}

// PromptCommand renders the shell statement that installs the marker as the
// prompt. PROMPT_COMMAND re-exports PS1 on every prompt so that $? and
// $(pwd) are expanded after each command, not once at session start. PS2 is
// emptied so multi-line commands do not inject continuation prompts into the
// captured output.
func (m *Marker) PromptCommand() string {
	payload := `{` +
		`\"pid\": \"$!\", ` +
		`\"exit_code\": \"$?\", ` +
		`\"username\": \"\u\", ` +
		`\"hostname\": \"\h\", ` +
		`\"working_dir\": \"$(pwd)\", ` +
		`\"py_interpreter_path\": \"$(which python3 2>/dev/null || which python 2>/dev/null || echo)\"` +
		`}`
	ps1 := `\n` + m.Begin() + `\n` + payload + `\n` + m.End() + `\n`
	return fmt.Sprintf(`export PROMPT_COMMAND='export PS1="%s"'; export PS2=""`, ps1)
}

// EndsWithMarker reports whether the captured text, ignoring trailing
// whitespace, terminates with the closing delimiter. This covers the case
// where the prompt printed but earlier markers scrolled out of the history
// buffer, so the occurrence count never increased.
func (m *Marker) EndsWithMarker(text string) bool {
	return strings.HasSuffix(strings.TrimRight(text, " \t\r\n"), m.End())
}

// FindAll scans captured pane text for well-formed marker blocks, in order.
// Blocks whose payload does not parse as JSON (typically because the head of
// the block was evicted by the history limit) are skipped rather than
// reported as errors.
func (m *Marker) FindAll(text string) []Occurrence {
	matches := m.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	occurrences := make([]Occurrence, 0, len(matches))
	for _, match := range matches {
		occ, ok := m.parse(text, match)
		if !ok {
			continue
		}
		occurrences = append(occurrences, occ)
	}
	return occurrences
}

// parse extracts the metadata payload of a single regex match. The exit code
// and pid arrive as decimal strings; values that fail to parse degrade to -1
// instead of invalidating the whole occurrence.
func (m *Marker) parse(text string, match []int) (Occurrence, bool) {
	payload := strings.TrimSpace(text[match[2]:match[3]])

	var fields map[string]string
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return Occurrence{}, false
	}

	occ := Occurrence{
		Start:             match[0],
		End:               match[1],
		PID:               parseIntField(fields["pid"]),
		ExitCode:          parseIntField(fields["exit_code"]),
		Username:          fields["username"],
		Hostname:          fields["hostname"],
		WorkingDir:        fields["working_dir"],
		PyInterpreterPath: fields["py_interpreter_path"],
	}
	return occ, true
}

func parseIntField(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// Some shells render $? through arithmetic expansion as a float-ish
	// string; salvage the integer part before giving up.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return -1
}
