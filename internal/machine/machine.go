// Package machine holds the pool of remote hosts a job runs on. Every host
// is always a member of the all list and of exactly one of ready or running.
package machine

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/RPI-HPC/runover/internal/queue"
)

// Host is one usable machine. Pid is meaningful only while the host sits in
// the running list.
type Host struct {
	Name string
	Pid  int

	allLinks   queue.Links[Host]
	readyLinks queue.Links[Host]
	runLinks   queue.Links[Host]
}

// Pool owns all hosts and the three membership queues.
type Pool struct {
	Count   int
	All     queue.List[Host]
	Ready   queue.List[Host]
	Running queue.List[Host]
}

// NewPool returns an empty pool with initialized queues.
func NewPool() *Pool {
	return &Pool{
		All:     queue.New(func(h *Host) *queue.Links[Host] { return &h.allLinks }),
		Ready:   queue.New(func(h *Host) *queue.Links[Host] { return &h.readyLinks }),
		Running: queue.New(func(h *Host) *queue.Links[Host] { return &h.runLinks }),
	}
}

// Add appends a host to both all and ready.
func (p *Pool) Add(name string) *Host {
	h := &Host{Name: name}
	p.All.AddTail(h)
	p.Ready.AddTail(h)
	p.Count++
	return h
}

// Hosts returns the names of all hosts in insertion order.
func (p *Pool) Hosts() []string {
	var names []string
	for h := p.All.Head(); h != nil; h = p.All.Next(h) {
		names = append(names, h.Name)
	}
	return names
}

// ParseMachines reads one host name per line. Blank lines and lines whose
// first non-blank byte is '#' are skipped; surrounding whitespace is trimmed.
func ParseMachines(r io.Reader) (*Pool, error) {
	p := NewPool()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		p.Add(line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read machine list: %w", err)
	}
	return p, nil
}
