package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"watermark_remover/watermark"
)

// removeCmd represents the remove command.
var removeCmd = &cobra.Command{
	Use:   "remove INPUT",
	Short: "Remove the watermark from a single PDF file",
	Long: `Remove the watermark from a single PDF file.

The cleaned document is written next to the input as <name>_no_watermark.pdf
unless --output names a different path. The input file itself is never
modified; pass --backup to keep an extra .bak copy of it anyway.

Examples:
  watermark-remover remove document.pdf
  watermark-remover remove document.pdf -o clean.pdf
  watermark-remover remove document.pdf --backup --overwrite`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)

	removeCmd.Flags().StringP("output", "o", "", "output file path")
	removeCmd.Flags().Bool("overwrite", false, "replace the output file if it already exists")
	removeCmd.Flags().Bool("backup", false, "copy the input to <input>.bak before processing")
}

// runRemove handles single file processing.
func runRemove(cmd *cobra.Command, args []string) error {
	input := args[0]
	output, _ := cmd.Flags().GetString("output")
	overwrite, _ := cmd.Flags().GetBool("overwrite")
	backup, _ := cmd.Flags().GetBool("backup")

	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("input file not found: %s", input)
	}
	if output == "" {
		output = outputPathFor(input, "", cfg.OutputSuffix)
	}
	if !overwrite && fileExists(output) {
		return fmt.Errorf("output file already exists: %s (use --overwrite)", output)
	}
	if backup {
		backupPath, err := createBackup(input, overwrite)
		if err != nil {
			return err
		}
		if backupPath != "" {
			log.WithField("backup", backupPath).Info("created backup")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Processing: %s\n", input)
	start := time.Now()

	remover := watermark.New(cfg, log)
	res, err := remover.RemoveFile(ctx, input, output, terminalProgress(filepath.Base(input)))
	fmt.Println()
	if err != nil {
		return err
	}

	if res.Matched {
		fmt.Printf("Removed %s watermark: %s -> %s\n", res.Strategy, input, output)
		fmt.Printf("Pages modified: %d, occurrences removed: %d, bytes removed: %d\n",
			res.PagesModified, res.Occurrences, res.BytesRemoved)
	} else {
		fmt.Printf("No watermark found: %s (clean copy written to %s)\n", input, output)
	}
	fmt.Printf("Processing time: %.2fs\n", time.Since(start).Seconds())
	return nil
}

// terminalProgress renders removal progress as a single rewriting line.
func terminalProgress(name string) watermark.ProgressFunc {
	return func(status string, progress float64) {
		fmt.Printf("\r%s: %s %.0f%%", name, status, progress*100)
	}
}

// outputPathFor derives the output path for input: the filename stem plus
// suffix plus the original extension. An empty dir keeps the file next to
// its input.
func outputPathFor(input, dir, suffix string) string {
	base := filepath.Base(input)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext) + suffix + ext
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name)
}

// createBackup copies input to <input>.bak and returns the backup path. An
// existing backup is kept as is unless overwrite is set, reported as an
// empty path.
func createBackup(input string, overwrite bool) (string, error) {
	backupPath := input + ".bak"
	if fileExists(backupPath) && !overwrite {
		return "", nil
	}

	src, err := os.Open(input)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", input, err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("create backup %s: %w", backupPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return "", fmt.Errorf("write backup %s: %w", backupPath, err)
	}
	return backupPath, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
