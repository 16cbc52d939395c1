// Package config loads the launcher configuration: the settings file with
// its compiled-in defaults, and the configuration script whose output names
// the machine script, job name and spawn command.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Data is the parsed configuration. Every directive is last-write-wins.
type Data struct {
	MachineScript string
	JobName       string
	SpawnCommand  string
	HistoryDB     string
}

// NewData returns configuration populated with defaults from settings.
func NewData(s *Settings) *Data {
	return &Data{
		MachineScript: s.MachineScript,
		JobName:       "",
		SpawnCommand:  "/usr/bin/ssh",
		HistoryDB:     s.HistoryDB,
	}
}

// ParseError is a fatal problem in the configuration script output.
type ParseError struct {
	Progname string
	Line     int
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %d: %s", e.Progname, e.Line, e.Msg)
}

// ParseScript reads directives from the configuration text. Lines are
// whitespace-trimmed; blank lines and '#' comments are skipped. Each
// directive is "<name> <value>"; the value runs verbatim to end of line.
func ParseScript(progname string, r io.Reader, data *Data) error {
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || text[0] == '#' {
			continue
		}

		name := text
		value := ""
		if i := strings.IndexFunc(text, isSpace); i >= 0 {
			name = text[:i]
			value = strings.TrimLeftFunc(text[i+1:], isSpace)
		}

		switch name {
		case "machinescript":
			if value == "" {
				return &ParseError{progname, line, "machinescript directive requires a path"}
			}
			data.MachineScript = value
		case "jobname":
			if value == "" {
				return &ParseError{progname, line, "jobname directive requires a name"}
			}
			data.JobName = value
		case "spawncommand", "spawncmd", "spawn":
			if value == "" {
				return &ParseError{progname, line, "spawncommand directive requires a path"}
			}
			data.SpawnCommand = value
		case "historydb":
			if value == "" {
				return &ParseError{progname, line, "historydb directive requires a path"}
			}
			data.HistoryDB = value
		default:
			return &ParseError{progname, line, fmt.Sprintf("Unknown directive %q", name)}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read configuration: %w", err)
	}
	return nil
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }

// RunScript executes script with the shell and parses its standard output.
func RunScript(progname, script string, settings *Settings) (*Data, error) {
	cmd := exec.Command("/bin/sh", "-c", script)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe configuration script: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("Unable to open configuration script %q: %w", script, err)
	}

	data := NewData(settings)
	perr := ParseScript(progname, out, data)
	if werr := cmd.Wait(); werr != nil && perr == nil {
		return nil, fmt.Errorf("configuration script %q: %w", script, werr)
	}
	if perr != nil {
		return nil, perr
	}
	return data, nil
}
