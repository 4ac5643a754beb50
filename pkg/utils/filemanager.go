// =============================================================================
// Pedidos Manager - File Manager Utility
// =============================================================================
//
// This module provides file management utilities for the batch run:
//   - Input discovery (CSV and XLSX exports)
//   - File archival (moving processed exports, copying workbooks)
//   - Output file naming
//   - Error and summary log generation
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful processing
//   - Output workbooks are copied to output_archive for long-term storage
//   - Failed files remain in their original location
//   - An archived file never overwrites an earlier one with the same name
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultInputPatterns are the exports picked up from the input directory.
var DefaultInputPatterns = []string{"*.csv", "*.xlsx"}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for a processing run.
type FileManager struct {
	// InputDir is the directory where exports are placed.
	InputDir string

	// OutputDir is the directory where workbooks and logs are placed.
	OutputDir string

	// InputArchiveDir is the directory for archived exports.
	InputArchiveDir string

	// OutputArchiveDir is the directory for archived workbooks.
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/03/05/orders_export.csv
	UseTimestampSubdirs bool

	// Now is the clock used for archive subdirectories and log names.
	Now func() time.Time
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		Now:              time.Now,
	}
}

func (fm *FileManager) now() time.Time {
	if fm.Now == nil {
		return time.Now()
	}
	return fm.Now()
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles scans the input directory for files matching any of
// the patterns. With no patterns, DefaultInputPatterns is used.
//
// RETURNS:
//   - The matching file paths, sorted by name and without duplicates.
//   - An error if a pattern is malformed.
//
// Spreadsheet lock files ("~$orders.xlsx") and directories are skipped.
func (fm *FileManager) DiscoverInputFiles(patterns ...string) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultInputPatterns
	}

	var result []string
	for _, pattern := range patterns {
		files, err := filepath.Glob(filepath.Join(fm.InputDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan input directory: %w", err)
		}

		for _, file := range files {
			if strings.HasPrefix(filepath.Base(file), "~$") {
				continue
			}
			info, err := os.Stat(file)
			if err != nil || info.IsDir() {
				continue
			}
			result = append(result, file)
		}
	}

	slices.Sort(result)
	return slices.Compact(result), nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath, err := fm.prepareArchivePath(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// If rename fails (e.g., cross-device), try copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies an output file to the archive directory.
// Output files are copied, not moved, so they remain in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	archivePath, err := fm.prepareArchivePath(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// prepareArchivePath creates the archive directory and returns a free path
// for the file inside it.
func (fm *FileManager) prepareArchivePath(archiveDir, filePath string) (string, error) {
	archivePath := fm.getArchivePath(archiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if FileExists(archivePath) {
		ext := filepath.Ext(archivePath)
		base := strings.TrimSuffix(archivePath, ext)
		archivePath = fmt.Sprintf("%s_%s%s", base, uuid.New().String()[:8], ext)
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	if fm.UseTimestampSubdirs {
		now := fm.now()
		subDir := filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
		return filepath.Join(subDir, fileName)
	}

	return filepath.Join(archiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName builds the workbook file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Timestamp of now (YYYYMMDD_HHMMSS)
//               {date}      - Date of now (DD-MM-YYYY) unless params sets it
//               {time}      - Time of now (HHMMSS)
//   - params: Placeholder values that override the defaults.
//   - now: The processing time.
//
// EXAMPLE:
//   format: "Archivo_Completo_{date}.xlsx"
//   params: {"date": "05-03-2024"}
//   output: "Archivo_Completo_05-03-2024.xlsx"
func GenerateOutputFileName(format string, params map[string]string, now time.Time) string {
	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("02-01-2006"),
		"{time}":      now.Format("150405"),
	}

	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if !strings.HasSuffix(strings.ToLower(result), ".xlsx") {
		result += ".xlsx"
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string
	RowNumber    int
	FieldName    string
	FieldValue   string
	OrderID      string
}

// WriteErrorLog writes error entries to a log file in outputDir.
//
// RETURNS:
//   - The path to the error log file, or "" when there is nothing to write.
//   - An error if writing fails.
func (fm *FileManager) WriteErrorLog(entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	now := fm.now()
	logPath := filepath.Join(fm.OutputDir, fmt.Sprintf("error_log_%s.txt", now.Format("20060102_150405")))

	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Pedidos Manager - Error Log\n"+
		"Generated: %s\n"+
		"Total Entries: %d\n"+
		"================================================================================\n\n",
		now.Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Entry #%d\n"+
			"  Timestamp:  %s\n"+
			"  File:       %s\n"+
			"  Type:       %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.FileName,
			entry.ErrorType,
			entry.ErrorMessage)

		if entry.RowNumber > 0 {
			fmt.Fprintf(writer, "  Row Number: %d\n", entry.RowNumber)
		}
		if entry.OrderID != "" {
			fmt.Fprintf(writer, "  Order:      %s\n", entry.OrderID)
		}
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:      %s\n", entry.FieldValue)
		}

		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// CategoryCount is one line of the order statistics.
type CategoryCount struct {
	Label string
	Count int
}

// ProcessingSummary contains summary information about a processing run.
type ProcessingSummary struct {
	RunID           string
	StartTime       time.Time
	EndTime         time.Time
	OutputFile      string
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalLines      int
	TotalOrders     int
	Warnings        int
	Categories      []CategoryCount
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully read file.
type ProcessedFileInfo struct {
	InputFile   string
	ArchivePath string
	Lines       int
}

// FailedFileInfo contains information about a file left out of the batch.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteCategories writes the order statistics, one category per line,
// followed by the total.
func WriteCategories(w io.Writer, categories []CategoryCount, total int) error {
	width := len("TOTAL")
	for _, c := range categories {
		width = max(width, len(c.Label))
	}

	for _, c := range categories {
		if _, err := fmt.Fprintf(w, "  %-*s %6d\n", width+1, c.Label+":", c.Count); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "  %-*s %6d\n", width+1, "TOTAL:", total)
	return err
}

// WriteSummaryLog writes a processing summary to a file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func (fm *FileManager) WriteSummaryLog(summary ProcessingSummary) (string, error) {
	stamp := summary.EndTime
	if stamp.IsZero() {
		stamp = fm.now()
	}
	summaryPath := filepath.Join(fm.OutputDir,
		fmt.Sprintf("processing_summary_%s.txt", stamp.Format("20060102_150405")))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Pedidos Manager - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Workbook:       %s\n\n"+
		"Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Total Lines:    %d\n"+
		"  Total Orders:   %d\n"+
		"  Warnings:       %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String(),
		summary.OutputFile,
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalLines,
		summary.TotalOrders,
		summary.Warnings)

	writer.WriteString("Orders by Category:\n")
	writer.WriteString("--------------------------------------------------------------------------------\n")
	if err := WriteCategories(writer, summary.Categories, summary.TotalOrders); err != nil {
		return "", fmt.Errorf("failed to write summary file: %w", err)
	}
	writer.WriteString("\n")

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Processed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:        %s\n", pf.InputFile)
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived To:  %s\n", pf.ArchivePath)
			}
			fmt.Fprintf(writer, "  Lines:        %d\n\n", pf.Lines)
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
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
