package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-dedup/internal/dedup"
	"github.com/inodb/vibe-dedup/internal/duckdb"
	"github.com/inodb/vibe-dedup/internal/report"
	"github.com/inodb/vibe-dedup/internal/sam"
	"github.com/inodb/vibe-dedup/internal/umi"
)

// dedupOptions holds the resolved settings of one dedup run.
type dedupOptions struct {
	inputPath   string
	outputPath  string
	umiPath     string
	reportPath  string
	chromCounts string
	statsDB     string
	strictSort  bool
	umiField    int
	workers     int
}

func newDedupCmd() *cobra.Command {
	var opts dedupOptions

	cmd := &cobra.Command{
		Use:   "dedup",
		Short: "Remove PCR duplicates from a sorted SAM file",
		Long: `Remove PCR duplicates from a coordinate-sorted, single-end SAM file.

Header lines are copied unchanged. Reads whose UMI (the last colon-delimited
token of the read name, unless --umi-field is set) is not in the UMI list are
dropped. Of the reads sharing UMI, chromosome, strand and 5' start position,
only the first is kept.`,
		Example: `  vibe-dedup dedup -u STL96.txt -i sorted_input.sam -o deduped.sam
  vibe-dedup dedup -u STL96.txt -i sorted.sam.gz -o deduped.sam -r report.txt
  samtools view -h sorted.bam | vibe-dedup dedup -u STL96.txt -i - -o - --strict-sort
  vibe-dedup dedup -u STL96.txt -i sorted.sam -o out.sam --workers 8 --stats-db runs.duckdb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.umiPath == "" {
				return usageError{fmt.Errorf("--umis is required")}
			}
			if err := bindFlags(cmd, "stats-db", "strict-sort", "umi-field", "workers"); err != nil {
				return err
			}
			s, err := loadSettings()
			if err != nil {
				return err
			}
			opts.strictSort = s.strictSort
			opts.umiField = s.umiField
			opts.workers = s.workers
			opts.statsDB = s.statsDB

			logger, err := newLogger(s.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runDedup(cmd.Context(), opts, cmd.OutOrStdout(), logger)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.inputPath, "input", "i", "-", "Sorted SAM file, plain or gzipped ('-' for stdin)")
	f.StringVarP(&opts.outputPath, "output", "o", "-", "Deduplicated SAM output ('-' for stdout)")
	f.StringVarP(&opts.umiPath, "umis", "u", "", "File of known UMIs, one per line (required)")
	f.StringVarP(&opts.reportPath, "report", "r", "", "Write a run report to this file")
	f.StringVar(&opts.chromCounts, "chrom-counts", "", "Write per-chromosome unique read counts as TSV")
	f.String("stats-db", "", "Record run statistics in this DuckDB database")
	f.Bool("strict-sort", false, "Abort if a chromosome reappears after its block ended")
	f.Int("umi-field", umi.LastField, "0-based colon-delimited read name token holding the UMI (-1: last)")
	f.Int("workers", 1, "Chromosome blocks processed in parallel (0: one per CPU)")

	return cmd
}

func runDedup(ctx context.Context, opts dedupOptions, stdout io.Writer, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()

	whitelist, err := umi.LoadWhitelist(opts.umiPath)
	if err != nil {
		return err
	}
	if whitelist.Len() == 0 {
		logger.Warn("umi list is empty, every read will be dropped", zap.String("path", opts.umiPath))
	}

	parser, err := sam.NewParser(opts.inputPath)
	if err != nil {
		return err
	}
	defer parser.Close()

	out := stdout
	var outFile *os.File
	if opts.outputPath != "-" {
		outFile, err = os.Create(opts.outputPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer outFile.Close()
		out = outFile
	}

	p := dedup.NewProcessor(whitelist)
	p.SetStrictSort(opts.strictSort)
	p.SetUMIField(opts.umiField)
	p.SetLogger(logger)

	logger.Info("deduplicating",
		zap.String("input", opts.inputPath),
		zap.String("output", opts.outputPath),
		zap.Int("umis", whitelist.Len()),
		zap.Bool("strict_sort", opts.strictSort),
		zap.Int("workers", opts.workers))

	var counters *dedup.Counters
	writer := sam.NewWriter(out)
	if opts.workers == 1 {
		counters, err = p.Run(ctx, parser, writer)
	} else {
		counters, err = p.RunParallel(ctx, parser, writer, opts.workers)
	}
	if err != nil {
		return err
	}
	if outFile != nil {
		if err := outFile.Close(); err != nil {
			return fmt.Errorf("close output file: %w", err)
		}
	}

	logger.Info("done",
		zap.Int("header_lines", counters.HeaderLines),
		zap.Int("unique_reads", counters.UniqueReads),
		zap.Int("wrong_umis", counters.WrongUMIs),
		zap.Int("duplicates_removed", counters.DuplicatesRemoved),
		zap.Int("chromosomes", len(counters.PerChrom)),
		zap.Duration("elapsed", time.Since(started)))

	if opts.reportPath != "" {
		if err := writeReportFile(opts.reportPath, func(w *report.Writer) error {
			return w.WriteReport(report.Summary{Source: opts.inputPath, Counters: counters})
		}); err != nil {
			return err
		}
	}
	if opts.chromCounts != "" {
		if err := writeReportFile(opts.chromCounts, func(w *report.Writer) error {
			return w.WriteChromTSV(counters)
		}); err != nil {
			return err
		}
	}

	if opts.statsDB != "" {
		if err := recordRun(opts.statsDB, opts.inputPath, started, counters, logger); err != nil {
			return err
		}
	}

	return nil
}

func writeReportFile(path string, write func(*report.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	w := report.NewWriter(f)
	if err := write(w); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return f.Close()
}

func recordRun(dbPath, inputPath string, started time.Time, counters *dedup.Counters, logger *zap.Logger) error {
	fp, err := duckdb.StatFile(inputPath)
	if err != nil {
		return fmt.Errorf("stat input: %w", err)
	}

	store, err := duckdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.WriteRun(fp, started, counters)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	logger.Info("recorded run statistics", zap.String("run_id", id), zap.String("db", dbPath))
	return nil
}
