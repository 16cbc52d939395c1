// Package history records job runs and their instances in a local SQLite
// database. The store is optional: a nil *Store accepts every call and does
// nothing, so the driver never has to guard its bookkeeping.
package history

import (
	"database/sql"
	"embed"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at dsn.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var applied int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", f).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", f, err)
		}
		if applied > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", f, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", f); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", f, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", f, err)
		}
	}
	return nil
}

// Run is one invocation of the launcher.
type Run struct {
	ID           string
	JobName      string
	SpawnCommand string
	NumProcs     int
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// Instance is one spawned process within a run.
type Instance struct {
	RunID      string
	Proc       int
	Host       string
	Pid        int
	ExitCode   *int
	StartedAt  time.Time
	FinishedAt *time.Time
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(id, jobName, spawnCommand string, numProcs int) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT INTO runs (id, job_name, spawn_command, num_procs) VALUES (?, ?, ?, ?)",
		id, jobName, spawnCommand, numProcs)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun stamps the run's completion time.
func (s *Store) FinishRun(id string) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec("UPDATE runs SET finished_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// BeginInstance records one spawned instance.
func (s *Store) BeginInstance(runID string, proc int, host string, pid int) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		"INSERT INTO instances (run_id, proc, host, pid) VALUES (?, ?, ?, ?)",
		runID, proc, host, pid)
	if err != nil {
		return fmt.Errorf("begin instance: %w", err)
	}
	return nil
}

// FinishInstance records an instance's exit. The instance is matched by pid
// since a host can run several instances over one run.
func (s *Store) FinishInstance(runID string, pid, exitCode int) error {
	if s == nil {
		return nil
	}
	_, err := s.db.Exec(
		`UPDATE instances SET exit_code = ?, finished_at = CURRENT_TIMESTAMP
		 WHERE run_id = ? AND pid = ? AND finished_at IS NULL`,
		exitCode, runID, pid)
	if err != nil {
		return fmt.Errorf("finish instance: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT id, job_name, spawn_command, num_procs, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r := &Run{}
		if err := rows.Scan(&r.ID, &r.JobName, &r.SpawnCommand, &r.NumProcs, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListInstances returns a run's instances in spawn order.
func (s *Store) ListInstances(runID string) ([]*Instance, error) {
	if s == nil {
		return nil, nil
	}
	rows, err := s.db.Query(
		`SELECT run_id, proc, host, pid, exit_code, started_at, finished_at
		 FROM instances WHERE run_id = ? ORDER BY proc`, runID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()
	var insts []*Instance
	for rows.Next() {
		in := &Instance{}
		if err := rows.Scan(&in.RunID, &in.Proc, &in.Host, &in.Pid, &in.ExitCode, &in.StartedAt, &in.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		insts = append(insts, in)
	}
	return insts, rows.Err()
}
