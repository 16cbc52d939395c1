// Package template expands per-instance placeholders in path and argument
// templates: %j is the job name, %p the instance index, %% a literal percent.
package template

import (
	"strconv"

	"github.com/RPI-HPC/runover/internal/accum"
)

type state int

const (
	stateChar state = iota
	statePct
)

// Rewrite expands s for one instance. An unrecognized escape drops both the
// percent and the escape byte; a trailing percent produces no output.
func Rewrite(s, jobName string, proc uint) string {
	var out accum.Accum
	st := stateChar
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch st {
		case stateChar:
			if c == '%' {
				st = statePct
			} else {
				out.AppendByte(c)
			}
		case statePct:
			switch c {
			case '%':
				out.AppendByte('%')
			case 'j':
				out.AppendString(jobName)
			case 'p':
				out.AppendString(strconv.FormatUint(uint64(proc), 10))
			}
			st = stateChar
		}
	}
	return out.Finalize()
}
