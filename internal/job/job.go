// Package job drives one launcher run: it takes ready hosts from the pool,
// spawns one instance of the user program per index through the configured
// spawn command, and reaps instances back onto the ready queue until the
// whole job has drained.
package job

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/hashicorp/go-hclog"

	"github.com/RPI-HPC/runover/internal/config"
	"github.com/RPI-HPC/runover/internal/history"
	"github.com/RPI-HPC/runover/internal/machine"
)

// Data carries the per-instance stdio path templates (empty means absent)
// and the user program argv.
type Data struct {
	InTemplate  string
	OutTemplate string
	ErrTemplate string
	Argv        []string
}

type exitEvent struct {
	pid    int
	status int
}

// Driver owns the spawn/reap loop for one run. The pool's queues are only
// ever touched from the goroutine that calls Run; child waits and signal
// deliveries reach it through channels.
type Driver struct {
	Progname string
	Pool     *machine.Pool
	Config   *config.Data
	Job      *Data
	Logger   log.Logger
	History  *history.Store
	RunID    string

	spawnWords []string
	exits      chan exitEvent
	sigs       chan os.Signal

	sawInt  bool
	sawQuit bool
}

// Run launches np instances and blocks until every one has been reaped.
func (d *Driver) Run(np int) error {
	if d.Pool.Count == 0 {
		return fmt.Errorf("machine pool is empty, nothing to run on")
	}
	if np <= 0 {
		return fmt.Errorf("instance count %d is not positive", np)
	}
	if d.Logger == nil {
		d.Logger = log.NewNullLogger()
	}

	words, err := config.SplitWords(d.Config.SpawnCommand)
	if err != nil {
		return fmt.Errorf("spawn command %q: %w", d.Config.SpawnCommand, err)
	}
	if len(words) == 0 {
		return fmt.Errorf("spawn command %q is empty", d.Config.SpawnCommand)
	}
	d.spawnWords = words

	d.exits = make(chan exitEvent, d.Pool.Count)
	d.sigs = make(chan os.Signal, 2)
	signal.Notify(d.sigs, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(d.sigs)

	if err := d.History.BeginRun(d.RunID, d.Config.JobName, d.Config.SpawnCommand, np); err != nil {
		d.Logger.Warn("history unavailable", "error", err)
	}

	for proc := 0; proc < np; proc++ {
		h := d.acquireReady()
		if err := d.spawn(h, proc); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", d.Progname, err)
			d.Pool.Ready.AddTail(h)
			continue
		}
		d.Pool.Running.AddTail(h)
	}

	for !d.Pool.Running.Empty() {
		d.reap()
	}

	if err := d.History.FinishRun(d.RunID); err != nil {
		d.Logger.Warn("history unavailable", "error", err)
	}
	return nil
}

// acquireReady returns a ready host, reaping until one frees up.
func (d *Driver) acquireReady() *machine.Host {
	for {
		if h := d.Pool.Ready.TakeHead(); h != nil {
			return h
		}
		d.reap()
	}
}
