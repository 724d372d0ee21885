package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"watermark_remover/watermark"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch DIR",
	Short: "Remove watermarks from every PDF file in a directory",
	Long: `Remove watermarks from every PDF file in a directory.

Each input produces a <name>_no_watermark.pdf, either next to its input or
under --output-dir. Files whose output already exists are skipped unless
--overwrite is set. --parallel processes several files at once.

Examples:
  watermark-remover batch ./scans
  watermark-remover batch ./scans --recursive --parallel 4
  watermark-remover batch ./scans --output-dir ./clean --overwrite`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output-dir", "d", "", "directory for the cleaned files")
	batchCmd.Flags().BoolP("recursive", "r", false, "descend into subdirectories")
	batchCmd.Flags().IntP("parallel", "p", 1, "number of files processed in parallel")
	batchCmd.Flags().Bool("overwrite", false, "replace output files that already exist")
	batchCmd.Flags().Bool("backup", false, "copy each input to <input>.bak before processing")
}

// batchOptions collects the per-run settings of a batch invocation.
type batchOptions struct {
	outputDir string
	suffix    string
	parallel  int
	overwrite bool
	backup    bool
}

// batchOutcome is the summary bucket a processed file lands in.
type batchOutcome int

const (
	batchSucceeded batchOutcome = iota
	batchNoWatermark
	batchSkipped
	batchFailed
)

// batchSummary counts per-file outcomes of a batch run.
type batchSummary struct {
	Total       int
	Succeeded   int
	NoWatermark int
	Skipped     int
	Failed      int
	Elapsed     time.Duration
}

// runBatch handles directory processing.
func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	opts := batchOptions{suffix: cfg.OutputSuffix}
	opts.outputDir, _ = cmd.Flags().GetString("output-dir")
	recursive, _ := cmd.Flags().GetBool("recursive")
	opts.parallel, _ = cmd.Flags().GetInt("parallel")
	opts.overwrite, _ = cmd.Flags().GetBool("overwrite")
	opts.backup, _ = cmd.Flags().GetBool("backup")

	if opts.parallel < 1 {
		return fmt.Errorf("invalid parallel count: %d (must be at least 1)", opts.parallel)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("batch directory not found: %s", dir)
	}
	if opts.outputDir != "" {
		if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	files, err := findPDFFiles(dir, recursive)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}
	files = filterOwnOutputs(files, opts.suffix)
	if len(files) == 0 {
		return fmt.Errorf("no PDF files found in %s", dir)
	}
	log.WithFields(logrus.Fields{
		"files":    len(files),
		"parallel": opts.parallel,
	}).Info("batch started")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum := processBatch(ctx, watermark.New(cfg, log), files, opts)
	printSummary(cmd.OutOrStdout(), sum)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d file(s) failed", sum.Failed)
	}
	return nil
}

// processBatch runs the files through a bounded worker pool and accumulates
// the outcome counts. Cancellation stops new files from being scheduled;
// files already running finish their own shutdown.
func processBatch(ctx context.Context, remover *watermark.Remover, files []string, opts batchOptions) batchSummary {
	var (
		mu  sync.Mutex
		sum = batchSummary{Total: len(files)}
		wg  sync.WaitGroup
		sem = make(chan struct{}, opts.parallel)
	)
	start := time.Now()

scheduling:
	for _, file := range files {
		select {
		case <-ctx.Done():
			break scheduling
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(file string) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := processBatchFile(ctx, remover, file, opts)

			mu.Lock()
			switch outcome {
			case batchSucceeded:
				sum.Succeeded++
			case batchNoWatermark:
				sum.NoWatermark++
			case batchSkipped:
				sum.Skipped++
			case batchFailed:
				sum.Failed++
			}
			mu.Unlock()
		}(file)
	}

	wg.Wait()
	sum.Elapsed = time.Since(start)
	return sum
}

// processBatchFile runs one file and reports which summary bucket it lands in.
func processBatchFile(ctx context.Context, remover *watermark.Remover, file string, opts batchOptions) batchOutcome {
	output := outputPathFor(file, opts.outputDir, opts.suffix)
	if !opts.overwrite && fileExists(output) {
		log.WithField("output", output).Warn("output file exists, skipping")
		return batchSkipped
	}
	if opts.backup {
		if _, err := createBackup(file, opts.overwrite); err != nil {
			log.WithError(err).WithField("input", file).Error("backup failed")
			return batchFailed
		}
	}

	res, err := remover.RemoveFile(ctx, file, output, nil)
	if err != nil {
		log.WithError(err).WithField("input", file).Error("processing failed")
		return batchFailed
	}
	if !res.Matched {
		log.WithField("input", file).Info("no watermark found")
		return batchNoWatermark
	}
	return batchSucceeded
}

// findPDFFiles lists the PDF files in dir, sorted by path. With recursive it
// walks the whole tree, otherwise only the directory itself.
func findPDFFiles(dir string, recursive bool) ([]string, error) {
	var files []string

	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isPDF(d.Name()) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if !entry.IsDir() && isPDF(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}

// filterOwnOutputs drops files already carrying the output suffix, so a
// rerun over the same directory does not feed earlier results back in.
func filterOwnOutputs(files []string, suffix string) []string {
	if suffix == "" {
		return files
	}
	kept := files[:0]
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if strings.HasSuffix(stem, suffix) {
			continue
		}
		kept = append(kept, f)
	}
	return kept
}

func isPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// printSummary renders the closing batch report.
func printSummary(w io.Writer, sum batchSummary) {
	line := strings.Repeat("=", 50)
	fmt.Fprintln(w, "\n"+line)
	fmt.Fprintln(w, "Processing Summary")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Total files:      %d\n", sum.Total)
	fmt.Fprintf(w, "Successful:       %d\n", sum.Succeeded)
	fmt.Fprintf(w, "No watermark:     %d\n", sum.NoWatermark)
	fmt.Fprintf(w, "Skipped:          %d\n", sum.Skipped)
	fmt.Fprintf(w, "Failed:           %d\n", sum.Failed)
	fmt.Fprintf(w, "Total time:       %.2fs\n", sum.Elapsed.Seconds())
	if sum.Total > 0 {
		fmt.Fprintf(w, "Average time:     %.2fs per file\n", sum.Elapsed.Seconds()/float64(sum.Total))
	}
	fmt.Fprintln(w, line)
}
