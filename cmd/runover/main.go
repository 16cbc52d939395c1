package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/google/uuid"
	log "github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/RPI-HPC/runover/internal/config"
	"github.com/RPI-HPC/runover/internal/history"
	"github.com/RPI-HPC/runover/internal/job"
	"github.com/RPI-HPC/runover/internal/machine"
)

func main() {
	root := &cobra.Command{
		Use:   "runover [options] -- PROG ARGS...",
		Short: "runover — spawn a job over several machines",
		// Options are MPI-style single-dash words (-np, -machinefile);
		// they are parsed by hand below. Without an explicit Args validator
		// cobra would reject a bare token such as the -np value as an
		// unknown subcommand.
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		SilenceUsage:       true,
		SilenceErrors:      true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return launch(args)
		},
	}
	root.AddCommand(historyCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func progname() string {
	return filepath.Base(os.Args[0])
}

func usage(w *os.File) {
	fmt.Fprintf(w, "Usage: %s [options] -- PROG ARGS...\n\n", progname())
	fmt.Fprintf(w, "  -np NP           Run job NP times.\n")
	fmt.Fprintf(w, "  -machinefile MF  Use machines in MF.\n")
	fmt.Fprintf(w, "  -stdin INTEMP    Path template for input file.\n")
	fmt.Fprintf(w, "  -stdout OUTTEMP  Path template for output file.\n")
	fmt.Fprintf(w, "  -stderr ERRTEMP  Path template for error file.\n")
}

// options is the result of parsing the command line.
type options struct {
	np          int // -1 means default to the pool size
	machineFile string
	jobData     job.Data
	help        bool
}

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

// parseArgs runs the option state machine: single-dash options until "--"
// or the first token not starting with '-', then the user argv.
func parseArgs(args []string) (*options, error) {
	opts := &options{np: -1}

	const (
		sOpt = iota
		sNP
		sMachine
		sStdin
		sStdout
		sStderr
		sParam
		sDone
	)
	state := sOpt

	for i := 0; i < len(args) && state != sDone; i++ {
		arg := args[i]
		switch state {
		case sOpt:
			switch arg {
			case "-np":
				state = sNP
			case "-machinefile":
				state = sMachine
			case "-stdin":
				state = sStdin
			case "-stdout":
				state = sStdout
			case "-stderr":
				state = sStderr
			case "-help", "-h", "-?":
				opts.help = true
				return opts, nil
			case "--":
				state = sParam
			default:
				if len(arg) > 0 && arg[0] == '-' {
					return nil, &usageError{fmt.Sprintf("Unknown option %q", arg)}
				}
				opts.jobData.Argv = args[i:]
				state = sDone
			}
		case sNP:
			n, err := strconv.Atoi(arg)
			if err != nil || n <= 0 {
				return nil, &usageError{`"-np" requires a positive integer`}
			}
			opts.np = n
			state = sOpt
		case sMachine:
			opts.machineFile = arg
			state = sOpt
		case sStdin:
			opts.jobData.InTemplate = arg
			state = sOpt
		case sStdout:
			opts.jobData.OutTemplate = arg
			state = sOpt
		case sStderr:
			opts.jobData.ErrTemplate = arg
			state = sOpt
		case sParam:
			opts.jobData.Argv = args[i:]
			state = sDone
		}
	}

	switch state {
	case sDone:
		return opts, nil
	case sOpt, sParam:
		return nil, &usageError{"Missing program to run."}
	case sNP:
		return nil, &usageError{`"-np" requires processor count`}
	case sMachine:
		return nil, &usageError{`"-machinefile" requires the machine file`}
	case sStdin:
		return nil, &usageError{`"-stdin" requires a file template`}
	case sStdout:
		return nil, &usageError{`"-stdout" requires a file template`}
	default:
		return nil, &usageError{`"-stderr" requires a file template`}
	}
}

func launch(args []string) error {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname(), err)
		usage(os.Stderr)
		return err
	}
	if opts.help {
		usage(os.Stdout)
		return nil
	}

	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname(), err)
		return err
	}

	cfg, err := config.RunScript(progname(), settings.ConfigScript, settings)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname(), err)
		return err
	}

	pool, err := loadMachines(opts.machineFile, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname(), err)
		return err
	}

	np := opts.np
	if np < 0 {
		np = pool.Count
	}

	logger := log.New(&log.LoggerOptions{
		Name:  "runover",
		Level: log.LevelFromString(os.Getenv("RUNOVER_LOG_LEVEL")),
	})

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			// Bookkeeping must not stop the job.
			logger.Warn("history disabled", "error", err)
			store = nil
		}
		defer store.Close()
	}

	driver := &job.Driver{
		Progname: progname(),
		Pool:     pool,
		Config:   cfg,
		Job:      &opts.jobData,
		Logger:   logger,
		History:  store,
		RunID:    uuid.NewString(),
	}
	if err := driver.Run(np); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", progname(), err)
		return err
	}
	return nil
}

// loadMachines reads the machine list from the -machinefile path, or from
// the configured machine script's output.
func loadMachines(machineFile string, cfg *config.Data) (*machine.Pool, error) {
	if machineFile != "" {
		f, err := os.Open(machineFile)
		if err != nil {
			return nil, fmt.Errorf("Unable to open machine file %q: %w", machineFile, err)
		}
		defer f.Close()
		return machine.ParseMachines(f)
	}

	cmd := exec.Command("/bin/sh", "-c", cfg.MachineScript)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe machine script: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("Unable to open machine script %q: %w", cfg.MachineScript, err)
	}
	pool, perr := machine.ParseMachines(out)
	if werr := cmd.Wait(); werr != nil && perr == nil {
		return nil, fmt.Errorf("machine script %q: %w", cfg.MachineScript, werr)
	}
	return pool, perr
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history [RUN-ID]",
		Short: "Show recorded runs, or one run's instances",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory()
			if err != nil {
				return err
			}
			if store == nil {
				fmt.Println("history is not configured")
				return nil
			}
			defer store.Close()

			if len(args) == 1 {
				return printInstances(store, args[0])
			}
			return printRuns(store)
		},
	}
}

// openHistory resolves the history database the same way a launch would:
// settings first, then the config script's historydb directive.
func openHistory() (*history.Store, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, err
	}
	path := settings.HistoryDB
	if cfg, err := config.RunScript(progname(), settings.ConfigScript, settings); err == nil && cfg.HistoryDB != "" {
		path = cfg.HistoryDB
	}
	if path == "" {
		return nil, nil
	}
	return history.Open(path)
}

func printRuns(store *history.Store) error {
	runs, err := store.ListRuns(20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tJOB\tNP\tSTARTED\tFINISHED")
	for _, r := range runs {
		finished := "-"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.ID, r.JobName, r.NumProcs, r.StartedAt.Format("2006-01-02 15:04:05"), finished)
	}
	return w.Flush()
}

func printInstances(store *history.Store, runID string) error {
	insts, err := store.ListInstances(runID)
	if err != nil {
		return err
	}
	if len(insts) == 0 {
		fmt.Println("no instances")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROC\tHOST\tPID\tEXIT")
	for _, in := range insts {
		exit := "-"
		if in.ExitCode != nil {
			exit = strconv.Itoa(*in.ExitCode)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", in.Proc, in.Host, in.Pid, exit)
	}
	return w.Flush()
}
