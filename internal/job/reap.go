package job

import (
	"fmt"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sys/unix"
)

// reap blocks for one event: a child exit moves its host from running back
// to ready; a latched signal is forwarded to every running instance.
func (d *Driver) reap() {
	select {
	case ev := <-d.exits:
		h := d.Pool.Running.Head()
		for h != nil && h.Pid != ev.pid {
			h = d.Pool.Running.Next(h)
		}
		if h == nil {
			// No host recorded this pid; discard the event.
			d.Logger.Warn("reaped unknown pid", "pid", ev.pid)
			return
		}
		d.Pool.Running.Remove(h)
		d.Pool.Ready.AddTail(h)
		d.Logger.Debug("instance exited", "host", h.Name, "pid", ev.pid, "status", ev.status)
		if err := d.History.FinishInstance(d.RunID, ev.pid, ev.status); err != nil {
			d.Logger.Warn("history unavailable", "error", err)
		}

	case sig := <-d.sigs:
		switch sig {
		case syscall.SIGINT:
			d.sawInt = true
		case syscall.SIGQUIT:
			d.sawQuit = true
		}
		d.forwardSignal()
	}
}

// forwardSignal checks the latches in order, sends the latched signal to
// every instance currently running, and clears the latch so a later signal
// is observable again.
func (d *Driver) forwardSignal() {
	var sig syscall.Signal
	switch {
	case d.sawInt:
		sig = syscall.SIGINT
		d.sawInt = false
	case d.sawQuit:
		sig = syscall.SIGQUIT
		d.sawQuit = false
	default:
		return
	}

	d.Logger.Info("caught signal, forwarding to running instances", "signal", sig.String())
	var errs *multierror.Error
	for h := d.Pool.Running.Head(); h != nil; h = d.Pool.Running.Next(h) {
		if err := unix.Kill(h.Pid, sig); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("signal %s on %s (pid %d): %w", sig, h.Name, h.Pid, err))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		d.Logger.Warn("signal forwarding incomplete", "error", err)
	}
}
