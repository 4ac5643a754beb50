// =============================================================================
// Pedidos Manager - Batch Pipeline
// =============================================================================
//
// This module orchestrates one processing run over a batch of order exports,
// from ingestion to the daily workbook.
//
// PROCESSING PIPELINE:
//   1. Discover the exports (or take the files given)
//   2. Parse every export (CSV or XLSX)
//   3. Check that every export carries the required columns
//   4. Apply the normalization rules to each record
//   5. Concatenate and sort (order id asc, shipping name desc)
//   6. Collect value warnings
//   7. Classify every line
//   8. Consolidate one status per order
//   9. Count orders per category
//  10. Build the generic and carrier projections
//  11. Write the workbook, logs and archives
//
// CONCURRENCY:
//   Exports are parsed concurrently and classification is split across
//   goroutines; both are bounded by max_concurrency. The result does not
//   depend on scheduling.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pedidosmanager/pedidos/internal/classifier"
	"github.com/pedidosmanager/pedidos/internal/config"
	"github.com/pedidosmanager/pedidos/internal/consolidator"
	"github.com/pedidosmanager/pedidos/internal/csvparser"
	"github.com/pedidosmanager/pedidos/internal/logging"
	"github.com/pedidosmanager/pedidos/internal/projection"
	"github.com/pedidosmanager/pedidos/internal/types"
	"github.com/pedidosmanager/pedidos/internal/validation"
	"github.com/pedidosmanager/pedidos/internal/xlsxparser"
	"github.com/pedidosmanager/pedidos/internal/xlsxwriter"
	"github.com/pedidosmanager/pedidos/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// ErrNoInput is returned when a run has no exports to process.
var ErrNoInput = errors.New("no input files found")

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a processing run.
type Result struct {
	// RunID identifies the run in logs and the summary file.
	RunID string

	// OutputFile is the path to the generated workbook.
	// This is empty on a dry run.
	OutputFile string

	// SummaryFile and ErrorLog are the paths of the written logs, if any.
	SummaryFile string
	ErrorLog    string

	// RepresentativeDate is the DD-MM-YYYY date of the batch.
	RepresentativeDate string

	// Generic and Carrier are the two projections written to the workbook.
	Generic projection.Table
	Carrier projection.Table

	// Counts holds the distinct orders per status.
	Counts consolidator.CategoryCounts

	// Validation contains the value warnings found in the batch.
	Validation *validation.ValidationResult

	// Files lists every input file with its outcome.
	Files []FileResult

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// FileResult is the outcome of reading one export.
type FileResult struct {
	Path        string
	Lines       int
	ArchivePath string

	// Error is set when the file could not be read and was left out.
	Error error
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	FilesRead       int
	FilesFailed     int
	LinesProcessed  int
	OrdersProcessed int
	Warnings        int
	ProcessingTime  time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Options adjusts a run without touching the configuration.
type Options struct {
	// DryRun classifies and reports without writing or moving any file.
	DryRun bool

	// Now is the processing clock. Default: time.Now
	Now func() time.Time
}

// Converter runs the batch pipeline.
type Converter struct {
	config      *config.MainConfig
	logger      logging.Logger
	classifier  *classifier.Classifier
	transformer *Transformer
	validator   *validation.Validator
	writer      *xlsxwriter.Writer
	files       *utils.FileManager
	tieBreak    consolidator.TieBreak
	options     Options
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a Converter from the configuration.
//
// RETURNS:
//   - A new Converter instance.
//   - An error if the tie-break or normalization rules are invalid.
func New(cfg *config.MainConfig, logger logging.Logger, opts Options) (*Converter, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	tb, err := consolidator.ParseTieBreak(cfg.TieBreak)
	if err != nil {
		return nil, err
	}

	transformer := NewTransformer(cfg.Normalization)
	if err := transformer.Validate(); err != nil {
		return nil, fmt.Errorf("invalid normalization rules: %w", err)
	}

	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.OutputArchiveDir)
	files.Now = opts.Now

	return &Converter{
		config:      cfg,
		logger:      logger,
		classifier:  classifier.New(cfg.MaxConcurrency),
		transformer: transformer,
		validator:   validation.NewValidator(),
		writer:      xlsxwriter.NewWriter(xlsxwriter.DefaultOptions()),
		files:       files,
		tieBreak:    tb,
		options:     opts,
	}, nil
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run processes the given exports, or every export in the input directory
// when files is empty.
func (c *Converter) Run(ctx context.Context, files []string) (*Result, error) {
	startTime := c.options.Now()
	result := &Result{RunID: uuid.New().String()}

	lines, err := c.prepare(ctx, files, result)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 7-9: CLASSIFY, CONSOLIDATE, COUNT
	// =========================================================================

	if err := c.classifier.ClassifyAll(ctx, lines); err != nil {
		return nil, fmt.Errorf("classification failed: %w", err)
	}

	consolidated := consolidator.Consolidate(lines, c.tieBreak)
	result.Counts = consolidator.Count(consolidated)

	// =========================================================================
	// STEP 10: PROJECTIONS
	// =========================================================================

	result.Generic = projection.Generic(consolidated)
	result.Carrier = projection.Carrier(consolidated, c.config.Carrier)
	result.RepresentativeDate = projection.RepresentativeDate(consolidated, c.options.Now)

	result.Stats.LinesProcessed = len(consolidated)
	result.Stats.OrdersProcessed = result.Counts.Total
	result.Stats.Warnings = result.Validation.WarningCount

	for _, category := range CategoryReport(result.Counts) {
		c.logger.Info("%-16s %d", category.Label+":", category.Count)
	}
	c.logger.Info("%-16s %d", "TOTAL:", result.Counts.Total)

	// =========================================================================
	// STEP 11: OUTPUT
	// =========================================================================

	if c.options.DryRun {
		c.logger.Info("Dry run: no files written")
		result.Stats.ProcessingTime = c.options.Now().Sub(startTime)
		return result, nil
	}

	if err := c.writeOutputs(result, startTime); err != nil {
		return nil, err
	}

	result.Stats.ProcessingTime = c.options.Now().Sub(startTime)
	return result, nil
}

// Validate runs the ingestion steps only. Nothing is classified or
// written.
func (c *Converter) Validate(ctx context.Context, files []string) (*Result, error) {
	startTime := c.options.Now()
	result := &Result{RunID: uuid.New().String()}

	lines, err := c.prepare(ctx, files, result)
	if err != nil {
		return nil, err
	}

	result.Stats.LinesProcessed = len(lines)
	result.Stats.Warnings = result.Validation.WarningCount
	result.Stats.ProcessingTime = c.options.Now().Sub(startTime)
	return result, nil
}

// prepare runs steps 1 to 6 and returns the sorted, normalized batch.
func (c *Converter) prepare(ctx context.Context, files []string, result *Result) ([]types.OrderLine, error) {
	// =========================================================================
	// STEP 1: DISCOVER INPUT
	// =========================================================================

	if len(files) == 0 {
		discovered, err := c.files.DiscoverInputFiles()
		if err != nil {
			return nil, err
		}
		files = discovered
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, c.config.InputDir)
	}
	c.logger.Info("Run %s: processing %d file(s)", result.RunID, len(files))

	// =========================================================================
	// STEP 2-3: PARSE AND CHECK SCHEMA
	// =========================================================================

	tables, err := c.readAll(ctx, files, result)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: every file failed to parse", ErrNoInput)
	}

	if err := validation.CheckTables(tables); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 4-5: NORMALIZE AND CONCATENATE
	// =========================================================================

	lines, err := c.ingest(tables)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Ingested %d line(s)", len(lines))

	// =========================================================================
	// STEP 6: VALUE WARNINGS
	// =========================================================================

	result.Validation = c.validator.ValidateLines(lines)
	for _, finding := range result.Validation.Errors {
		c.logger.Debug("%s", finding.Error())
	}
	if result.Validation.WarningCount > 0 {
		c.logger.Warn("%d value warning(s) in batch", result.Validation.WarningCount)
	}

	return lines, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// readAll parses every file, preserving the input order. Unreadable files
// abort the run unless continue_on_error is set.
func (c *Converter) readAll(ctx context.Context, files []string, result *Result) ([]*types.SourceTable, error) {
	parsed := make([]*types.SourceTable, len(files))
	failures := make([]error, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.config.MaxConcurrency, 1))

	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			table, err := c.readFile(path)
			if err != nil {
				if !c.config.ContinueOnError {
					return fmt.Errorf("%s: %w", path, err)
				}
				failures[i] = err
				return nil
			}
			parsed[i] = table
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var tables []*types.SourceTable
	for i, path := range files {
		fr := FileResult{Path: path, Error: failures[i]}
		if failures[i] != nil {
			c.logger.Error("Skipping %s: %v", path, failures[i])
			result.Stats.FilesFailed++
		} else {
			fr.Lines = len(parsed[i].Records)
			tables = append(tables, parsed[i])
			result.Stats.FilesRead++
			c.logger.Debug("Parsed %d row(s) from %s, financial statuses %q", fr.Lines, path,
				parsed[i].UniqueValues(types.ColFinancialStatus))
		}
		result.Files = append(result.Files, fr)
	}

	return tables, nil
}

// readFile picks the parser by file extension.
func (c *Converter) readFile(path string) (*types.SourceTable, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return csvparser.Parse(path, c.config.CSVSettings)
	case ".xlsx", ".xlsm":
		return xlsxparser.Parse(path)
	default:
		return nil, fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
}

// ingest normalizes the records and turns them into one sorted batch.
func (c *Converter) ingest(tables []*types.SourceTable) ([]types.OrderLine, error) {
	var lines []types.OrderLine

	for _, table := range tables {
		for i := range table.Records {
			if err := c.transformer.TransformRecord(table.Records[i].Fields); err != nil {
				return nil, fmt.Errorf("%s row %d: %w", table.SourceFile, table.Records[i].RowNumber, err)
			}
		}
		lines = append(lines, table.Lines()...)
	}

	consolidator.SortForIngestion(lines)
	for i := range lines {
		lines[i].NormalizedID = classifier.NormalizeNationalID(lines[i].NationalID)
	}

	return lines, nil
}

// writeOutputs writes the workbook and the logs, then archives.
// Archival failures are logged and do not fail the run.
func (c *Converter) writeOutputs(result *Result, startTime time.Time) error {
	if err := c.config.EnsureDirectories(); err != nil {
		return err
	}

	name := utils.GenerateOutputFileName(c.config.OutputNameFormat,
		map[string]string{"date": result.RepresentativeDate}, startTime)
	outputPath := c.config.OutputPath(name)

	if err := c.writer.WriteFile(outputPath, result.Generic, result.Carrier); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	result.OutputFile = outputPath
	c.logger.Info("Wrote workbook to: %s", outputPath)

	if archived, err := c.files.ArchiveOutputFile(outputPath); err != nil {
		c.logger.Warn("Failed to archive workbook: %v", err)
	} else {
		c.logger.Debug("Archived workbook to: %s", archived)
	}

	if c.config.ArchiveInputs {
		for i := range result.Files {
			fr := &result.Files[i]
			if fr.Error != nil {
				continue
			}
			archived, err := c.files.ArchiveInputFile(fr.Path)
			if err != nil {
				c.logger.Warn("Failed to archive %s: %v", fr.Path, err)
				continue
			}
			fr.ArchivePath = archived
		}
	}

	errorLog, err := c.files.WriteErrorLog(errorLogEntries(result, startTime))
	if err != nil {
		c.logger.Warn("Failed to write error log: %v", err)
	}
	result.ErrorLog = errorLog

	summaryPath, err := c.files.WriteSummaryLog(summaryOf(result, startTime, c.options.Now()))
	if err != nil {
		c.logger.Warn("Failed to write summary: %v", err)
	}
	result.SummaryFile = summaryPath

	return nil
}

// =============================================================================
// REPORTING
// =============================================================================

// categoryLabels is the order and wording of the statistics report.
var categoryLabels = []struct {
	status types.Status
	label  string
}{
	{types.StatusCABA, "CABA"},
	{types.StatusCABAPriority, "CABA Prioritario"},
	{types.StatusPriority, "Prioritario"},
	{types.StatusTierraDelFuego, "Tierra del Fuego"},
	{types.StatusPendingPayment, "Falta Pagar"},
	{types.StatusExpired, "Vencido"},
	{types.StatusRefunded, "Reembolsado"},
	{types.StatusReviewNotes, "Notas"},
	{types.StatusReviewID, "Revisar DNI"},
	{types.StatusUnclassified, "Sin Clasificar"},
}

// CategoryReport lists the distinct orders per status in report order.
func CategoryReport(counts consolidator.CategoryCounts) []utils.CategoryCount {
	report := make([]utils.CategoryCount, 0, len(categoryLabels))
	for _, c := range categoryLabels {
		report = append(report, utils.CategoryCount{Label: c.label, Count: counts.Get(c.status)})
	}
	return report
}

func summaryOf(result *Result, start, end time.Time) utils.ProcessingSummary {
	summary := utils.ProcessingSummary{
		RunID:           result.RunID,
		StartTime:       start,
		EndTime:         end,
		OutputFile:      result.OutputFile,
		TotalFiles:      len(result.Files),
		SuccessfulFiles: result.Stats.FilesRead,
		FailedFiles:     result.Stats.FilesFailed,
		TotalLines:      result.Stats.LinesProcessed,
		TotalOrders:     result.Counts.Total,
		Warnings:        result.Stats.Warnings,
		Categories:      CategoryReport(result.Counts),
	}

	for _, fr := range result.Files {
		if fr.Error != nil {
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    fr.Path,
				ErrorMessage: fr.Error.Error(),
			})
			continue
		}
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:   fr.Path,
			ArchivePath: fr.ArchivePath,
			Lines:       fr.Lines,
		})
	}

	return summary
}

func errorLogEntries(result *Result, now time.Time) []utils.ErrorLogEntry {
	var entries []utils.ErrorLogEntry

	for _, fr := range result.Files {
		if fr.Error != nil {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     fr.Path,
				ErrorType:    "unreadable_file",
				ErrorMessage: fr.Error.Error(),
			})
		}
	}

	if result.Validation != nil {
		for _, f := range result.Validation.Errors {
			entries = append(entries, utils.ErrorLogEntry{
				Timestamp:    now,
				FileName:     f.SourceFile,
				ErrorType:    f.Rule,
				ErrorMessage: f.Message,
				RowNumber:    f.RowNumber,
				FieldName:    f.Field,
				FieldValue:   f.Value,
				OrderID:      f.OrderID,
			})
		}
	}

	return entries
}
