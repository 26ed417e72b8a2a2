// =============================================================================
// Contract Installment Validator - File Manager Utility
// =============================================================================
//
// This module provides the file handling shared by the ingest runner and the
// file-based sinks:
//   - Input archival (moving the ingested file once the run succeeded)
//   - Output file naming with placeholders
//   - Rejection log blocks appended per flushed batch
//   - The end-of-run summary file
//
// ARCHIVAL STRATEGY:
//   - The input file is moved to input_archive only when the whole source was
//     read; an aborted run leaves it in place for a retry
//   - Rename is tried first, with copy-and-delete as the cross-device fallback
//   - Optional date-based subdirectories: input_archive/2024/01/15/file.csv
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const separator = "================================================================================\n"

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations around a run.
type FileManager struct {
	// OutputDir receives logs, reports and summaries.
	OutputDir string

	// InputArchiveDir is the directory for archived input files.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	UseTimestampSubdirs bool
}

// NewFileManager creates a FileManager for the given directories.
func NewFileManager(outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
	}
}

// EnsureDirectories creates the output and archive directories.
func (fm *FileManager) EnsureDirectories() error {
	for _, dir := range []string{fm.OutputDir, fm.InputArchiveDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory and returns
// its new path.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath, time.Now())

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

func (fm *FileManager) getArchivePath(archiveDir, filePath string, now time.Time) string {
	fileName := filepath.Base(filePath)
	if !fm.UseTimestampSubdirs {
		return filepath.Join(archiveDir, fileName)
	}
	return filepath.Join(
		archiveDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()),
		fileName,
	)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName expands the placeholders in format and makes sure
// the result ends in extension.
//
// PLACEHOLDERS:
//
//	{uuid}      - A random UUID
//	{timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//	{date}      - Current date (YYYYMMDD)
//	{time}      - Current time (HHMMSS)
//	{<key>}     - Any key of params, e.g. {original}, {run}, {batch}
//
// EXAMPLE:
//
//	format:    "{original}_{run}_batch{batch}"
//	extension: ".xlsx"
//	params:    {"original": "carteira", "run": "3f2a", "batch": "2"}
//	output:    "carteira_3f2a_batch2.xlsx"
func GenerateOutputFileName(format, extension string, params map[string]string) string {
	now := time.Now()

	values := map[string]string{
		"uuid":      uuid.New().String(),
		"timestamp": now.Format("20060102_150405"),
		"date":      now.Format("20060102"),
		"time":      now.Format("150405"),
	}
	for key, value := range params {
		values[key] = value
	}

	// One pass over format: substituted values are never expanded again.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, 2*len(keys))
	for _, key := range keys {
		pairs = append(pairs, "{"+key+"}", values[key])
	}
	result := strings.NewReplacer(pairs...).Replace(format)

	if extension != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(extension)) {
		result += extension
	}
	return result
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// =============================================================================
// REJECTION LOG
// =============================================================================

// RejectionLogEntry is one rejected record as written to the rejection log.
type RejectionLogEntry struct {
	Reason      string
	ContractID  string
	Installment string
	TaxpayerID  string
	ClientName  string
}

// RejectionLogHeader identifies the batch a block of entries belongs to.
type RejectionLogHeader struct {
	RunID    string
	Source   string
	Batch    int
	Recorded time.Time
}

// AppendRejectionLog appends one block of entries to the log at path,
// creating the file on first use. Nothing is written for an empty block.
func AppendRejectionLog(path string, header RejectionLogHeader, entries []RejectionLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open rejection log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Contract Installment Validator - Rejection Log\n"+
		"Run:              %s\n"+
		"Source:           %s\n"+
		"Batch:            %d\n"+
		"Recorded:         %s\n"+
		"Total Rejections: %d\n"+
		separator+"\n",
		header.RunID,
		header.Source,
		header.Batch,
		header.Recorded.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Rejection #%d\n"+
			"  Reason:         %s\n"+
			"  Contract:       %s\n"+
			"  Installment:    %s\n"+
			"  Taxpayer ID:    %s\n",
			i+1,
			entry.Reason,
			entry.ContractID,
			entry.Installment,
			entry.TaxpayerID)
		if entry.ClientName != "" {
			fmt.Fprintf(writer, "  Client:         %s\n", entry.ClientName)
		}
		writer.WriteString("\n")
	}

	writer.WriteString(separator + "\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush rejection log: %w", err)
	}
	return nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary contains summary information about one run.
type ProcessingSummary struct {
	RunID         string
	InputFile     string
	ArchivePath   string
	StartTime     time.Time
	EndTime       time.Time
	Processed     int
	Accepted      int
	Rejected      int
	Flushes       int
	FailedFlushes int
	Dropped       int
	Rejections    map[string]int
	ErrorMessage  string
}

// WriteSummaryLog writes a processing summary to outputDir and returns the
// file path.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	summaryFileName := fmt.Sprintf("processing_summary_%s.txt", summary.RunID)
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	status := "completed"
	if summary.ErrorMessage != "" {
		status = "aborted"
	}

	fmt.Fprintf(writer, "Contract Installment Validator - Processing Summary\n"+
		separator+"\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Input:          %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Status:         %s\n\n"+
		"Statistics:\n"+
		"  Processed:      %d\n"+
		"  Accepted:       %d\n"+
		"  Rejected:       %d\n"+
		"  Flushes:        %d\n"+
		"  Failed Flushes: %d\n"+
		"  Dropped:        %d\n\n",
		summary.RunID,
		summary.InputFile,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime).String(),
		status,
		summary.Processed,
		summary.Accepted,
		summary.Rejected,
		summary.Flushes,
		summary.FailedFlushes,
		summary.Dropped)

	if len(summary.Rejections) > 0 {
		writer.WriteString("Rejections by Reason:\n")
		reasons := make([]string, 0, len(summary.Rejections))
		for reason := range summary.Rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			fmt.Fprintf(writer, "  %-22s %d\n", reason+":", summary.Rejections[reason])
		}
		writer.WriteString("\n")
	}

	if summary.ArchivePath != "" {
		fmt.Fprintf(writer, "Archived To: %s\n\n", summary.ArchivePath)
	}
	if summary.ErrorMessage != "" {
		fmt.Fprintf(writer, "Error: %s\n\n", summary.ErrorMessage)
	}

	writer.WriteString(separator + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
