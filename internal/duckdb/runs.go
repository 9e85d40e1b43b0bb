package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-dedup/internal/dedup"
)

// RunStats is one row of the runs table.
type RunStats struct {
	ID                string
	Source            FileFingerprint
	StartedAt         time.Time
	HeaderLines       int64
	UniqueReads       int64
	WrongUMIs         int64
	DuplicatesRemoved int64
}

// ChromCount is the number of unique reads kept on one chromosome.
type ChromCount struct {
	Chrom       string
	UniqueReads int64
}

// WriteRun stores the counters of a finished run under a new run ID,
// which it returns. Per-chromosome counts are batch-inserted using the
// Appender API and flushed before the runs row is written, so a failed
// run leaves no row behind.
func (s *Store) WriteRun(src FileFingerprint, startedAt time.Time, c *dedup.Counters) (string, error) {
	id := uuid.NewString()

	if err := s.appendChromCounts(id, c); err != nil {
		s.deleteChromCounts(id)
		return "", err
	}

	if _, err := s.db.Exec(`INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, src.Path, src.Size, src.ModTime, startedAt,
		int64(c.HeaderLines), int64(c.UniqueReads), int64(c.WrongUMIs), int64(c.DuplicatesRemoved),
	); err != nil {
		s.deleteChromCounts(id)
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

func (s *Store) appendChromCounts(id string, c *dedup.Counters) error {
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "chrom_counts")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, chrom := range c.Chromosomes() {
		if err := appender.AppendRow(id, chrom, int64(c.PerChrom[chrom])); err != nil {
			return fmt.Errorf("append chrom count: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return fmt.Errorf("flush chrom counts: %w", err)
	}
	return nil
}

// deleteChromCounts is best effort; the table may be the reason for the failure.
func (s *Store) deleteChromCounts(id string) {
	_, _ = s.db.Exec(`DELETE FROM chrom_counts WHERE run_id = ?`, id)
}

// ListRuns returns all recorded runs, oldest first.
func (s *Store) ListRuns() ([]RunStats, error) {
	rows, err := s.db.Query(`SELECT
		run_id, source, source_size, source_mtime, started_at,
		header_lines, unique_reads, wrong_umis, duplicates_removed
		FROM runs
		ORDER BY started_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunStats
	for rows.Next() {
		var r RunStats
		if err := rows.Scan(
			&r.ID, &r.Source.Path, &r.Source.Size, &r.Source.ModTime, &r.StartedAt,
			&r.HeaderLines, &r.UniqueReads, &r.WrongUMIs, &r.DuplicatesRemoved,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ChromCounts returns the per-chromosome counts of a run, sorted by
// chromosome name.
func (s *Store) ChromCounts(runID string) ([]ChromCount, error) {
	rows, err := s.db.Query(`SELECT chrom, unique_reads
		FROM chrom_counts
		WHERE run_id=?
		ORDER BY chrom`, runID)
	if err != nil {
		return nil, fmt.Errorf("query chrom counts: %w", err)
	}
	defer rows.Close()

	var counts []ChromCount
	for rows.Next() {
		var cc ChromCount
		if err := rows.Scan(&cc.Chrom, &cc.UniqueReads); err != nil {
			return nil, fmt.Errorf("scan chrom count: %w", err)
		}
		counts = append(counts, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chrom counts: %w", err)
	}
	return counts, nil
}

// ClearRuns removes all recorded runs.
func (s *Store) ClearRuns() error {
	if _, err := s.db.Exec("DELETE FROM chrom_counts"); err != nil {
		return err
	}
	_, err := s.db.Exec("DELETE FROM runs")
	return err
}
