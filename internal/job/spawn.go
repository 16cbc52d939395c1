package job

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/RPI-HPC/runover/internal/argv"
	"github.com/RPI-HPC/runover/internal/machine"
	"github.com/RPI-HPC/runover/internal/template"
)

// spawn starts instance proc on host h. On success h.Pid records the child
// and a wait adapter delivers the eventual exit on d.exits. On failure the
// instance is consumed and the caller returns h to the ready queue.
func (d *Driver) spawn(h *machine.Host, proc int) error {
	var b argv.Builder
	for _, w := range d.spawnWords {
		b.AddString(w)
	}
	b.AddString(h.Name)
	for _, arg := range d.Job.Argv {
		b.AddString(template.Rewrite(arg, d.Config.JobName, uint(proc)))
	}
	args, _ := b.Finalize()

	cmd := exec.Command(args[0], args[1:]...)
	// The child runs in its own session so terminal job-control signals
	// only reach it when the reaper forwards them. Exec resets the
	// parent's latch-only handlers to default disposition.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	// Redirection files are dup'd onto fd 0/1/2 in the child before exec;
	// the parent's copies are released once the child is running.
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	if t := d.Job.InTemplate; t != "" {
		path := template.Rewrite(t, d.Config.JobName, uint(proc))
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("Error opening %q: %w", path, err)
		}
		files = append(files, f)
		cmd.Stdin = f
	}
	if t := d.Job.OutTemplate; t != "" {
		path := template.Rewrite(t, d.Config.JobName, uint(proc))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("Error opening %q: %w", path, err)
		}
		files = append(files, f)
		cmd.Stdout = f
	}
	if t := d.Job.ErrTemplate; t != "" {
		path := template.Rewrite(t, d.Config.JobName, uint(proc))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("Error opening %q: %w", path, err)
		}
		files = append(files, f)
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("Error spawning %q on %s: %w", args[0], h.Name, err)
	}
	h.Pid = cmd.Process.Pid
	d.Logger.Debug("spawned instance", "proc", proc, "host", h.Name, "pid", h.Pid)

	if err := d.History.BeginInstance(d.RunID, proc, h.Name, h.Pid); err != nil {
		d.Logger.Warn("history unavailable", "error", err)
	}

	go func(c *exec.Cmd, pid int) {
		status := 0
		if err := c.Wait(); err != nil {
			if ee, ok := err.(*exec.ExitError); ok {
				status = ee.ExitCode()
			} else {
				status = -1
			}
		}
		d.exits <- exitEvent{pid: pid, status: status}
	}(cmd, h.Pid)

	return nil
}
