package converter

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pedidosmanager/pedidos/internal/config"
	"github.com/pedidosmanager/pedidos/internal/consolidator"
	"github.com/pedidosmanager/pedidos/internal/logging"
	"github.com/pedidosmanager/pedidos/internal/projection"
	"github.com/pedidosmanager/pedidos/internal/types"
	"github.com/pedidosmanager/pedidos/internal/validation"
	"github.com/pedidosmanager/pedidos/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func fixedClock() time.Time {
	return time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.InputDir = filepath.Join(root, "input")
	cfg.OutputDir = filepath.Join(root, "output")
	cfg.InputArchiveDir = filepath.Join(root, "input_archive")
	cfg.OutputArchiveDir = filepath.Join(root, "output_archive")
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0755))
	return cfg
}

// orderRow returns a paid CABA line with the given overrides.
func orderRow(overrides map[string]string) map[string]string {
	row := map[string]string{
		types.ColCreatedAt:       "2024-03-05 14:22:10 -0300",
		types.ColName:            "#1001",
		types.ColShippingName:    "Juan Perez",
		types.ColItemQuantity:    "1",
		types.ColItemName:        "Remera",
		types.ColTotal:           "15000",
		types.ColProvince:        "Ciudad Autónoma de Buenos Aires",
		types.ColStreet:          "Av. Corrientes 1234",
		types.ColCity:            "CABA",
		types.ColZip:             "C1420",
		types.ColPhone:           "1155554444",
		types.ColEmail:           "juan@example.com",
		types.ColSKU:             "REM-01",
		types.ColFinancialStatus: "paid",
		types.ColShippingMethod:  "Envío estándar",
		types.ColShippingCompany: "30123456",
	}
	for k, v := range overrides {
		row[k] = v
	}
	return row
}

func writeExport(t *testing.T, dir, name string, headers []string, rows ...map[string]string) string {
	t.Helper()
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(headers))
	for _, row := range rows {
		record := make([]string, len(headers))
		for i, h := range headers {
			record[i] = row[h]
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return path
}

func newTestConverter(t *testing.T, cfg *config.MainConfig, dryRun bool) *Converter {
	t.Helper()
	c, err := New(cfg, logging.Nop(), Options{DryRun: dryRun, Now: fixedClock})
	require.NoError(t, err)
	return c
}

// =============================================================================
// PIPELINE TESTS
// =============================================================================

func TestRunSingleCABAOrder(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.InputDir, "orders_export.csv", types.RequiredColumns,
		orderRow(nil),
		orderRow(map[string]string{types.ColItemName: "Gorra", types.ColSKU: "GOR-01"}),
	)

	result, err := newTestConverter(t, cfg, true).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.Get(types.StatusCABA))
	assert.Equal(t, 1, result.Counts.Total)
	assert.Equal(t, []string{"CABA", "CABA"}, result.Generic.Column(projection.ColStatus))
	assert.Equal(t, "05-03-2024", result.RepresentativeDate)
	assert.Equal(t, 2, result.Stats.LinesProcessed)
	assert.Equal(t, 1, result.Stats.OrdersProcessed)
	assert.Empty(t, result.OutputFile)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRunMixedBatch(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.InputDir, "a.csv", types.RequiredColumns,
		orderRow(map[string]string{types.ColName: "#1002", types.ColFinancialStatus: "pending"}),
		orderRow(nil),
	)
	writeExport(t, cfg.InputDir, "b.csv", types.RequiredColumns,
		orderRow(map[string]string{types.ColName: "#1003", types.ColZip: "5000", types.ColShippingCompany: "abc"}),
		orderRow(map[string]string{types.ColName: "#1004", types.ColZip: "5000", types.ColNotes: "tocar timbre"}),
		orderRow(map[string]string{types.ColName: "#1005", types.ColFinancialStatus: "refunded"}),
		orderRow(map[string]string{types.ColName: "#1006", types.ColFinancialStatus: "expired"}),
	)

	result, err := newTestConverter(t, cfg, true).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 6, result.Counts.Total)
	assert.Equal(t, 1, result.Counts.Get(types.StatusCABA))
	assert.Equal(t, 1, result.Counts.Get(types.StatusPendingPayment))
	assert.Equal(t, 1, result.Counts.Get(types.StatusReviewID))
	assert.Equal(t, 1, result.Counts.Get(types.StatusReviewNotes))
	assert.Equal(t, 1, result.Counts.Get(types.StatusRefunded))
	assert.Equal(t, 1, result.Counts.Get(types.StatusExpired))

	// Lines come out sorted by order id across files.
	assert.Equal(t,
		[]string{"#1001", "#1002", "#1003", "#1004", "#1005", "#1006"},
		result.Generic.Column(types.ColName))

	assert.Equal(t, 2, result.Stats.FilesRead)
	require.Len(t, result.Files, 2)
	assert.Equal(t, 2, result.Files[0].Lines)
	assert.Equal(t, 4, result.Files[1].Lines)
}

func TestRunConsolidatesByTieBreak(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.InputDir, "orders.csv", types.RequiredColumns,
		orderRow(map[string]string{types.ColShippingName: "", types.ColFinancialStatus: "", types.ColCreatedAt: ""}),
		orderRow(map[string]string{types.ColNotes: "regalo"}),
	)

	result, err := newTestConverter(t, cfg, true).Run(context.Background(), nil)
	require.NoError(t, err)

	// The line with the shipping name sorts first and decides the order.
	assert.Equal(t,
		[]string{string(types.StatusReviewNotes), string(types.StatusReviewNotes)},
		result.Generic.Column(projection.ColStatus))
	assert.Equal(t, 1, result.Counts.Get(types.StatusReviewNotes))
	assert.Equal(t, 1, result.Counts.Total)
}

func TestRunWritesOutputs(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveInputs = true
	input := writeExport(t, cfg.InputDir, "orders_export.csv", types.RequiredColumns,
		orderRow(nil),
		orderRow(map[string]string{types.ColName: "#1002", types.ColCreatedAt: "ayer"}),
	)

	result, err := newTestConverter(t, cfg, false).Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cfg.OutputDir, "Archivo_Completo_05-03-2024.xlsx"), result.OutputFile)
	assert.FileExists(t, result.OutputFile)
	assert.FileExists(t, filepath.Join(cfg.OutputArchiveDir, "Archivo_Completo_05-03-2024.xlsx"))
	assert.FileExists(t, result.SummaryFile)
	assert.FileExists(t, result.ErrorLog)

	// The input was moved to the archive.
	assert.NoFileExists(t, input)
	require.Len(t, result.Files, 1)
	assert.Equal(t, filepath.Join(cfg.InputArchiveDir, "orders_export.csv"), result.Files[0].ArchivePath)

	f, err := excelize.OpenFile(result.OutputFile)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{projection.GenericSheet, projection.CarrierSheet}, f.GetSheetList())
	rows, err := f.GetRows(projection.GenericSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	assert.Equal(t, 1, result.Validation.ByRule[validation.RuleCreatedAt])
}

func TestRunExplicitFiles(t *testing.T) {
	cfg := testConfig(t)
	other := t.TempDir()
	path := writeExport(t, other, "elsewhere.csv", types.RequiredColumns, orderRow(nil))
	writeExport(t, cfg.InputDir, "ignored.csv", types.RequiredColumns,
		orderRow(map[string]string{types.ColName: "#2000"}))

	result, err := newTestConverter(t, cfg, true).Run(context.Background(), []string{path})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Counts.Total)
	assert.Equal(t, []string{"#1001"}, result.Generic.Column(types.ColName))
}

func TestValidateReportsWarnings(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.InputDir, "orders.csv", types.RequiredColumns,
		orderRow(nil),
		orderRow(map[string]string{types.ColName: "#1002", types.ColShippingCompany: ""}),
		orderRow(map[string]string{types.ColName: "1003", types.ColFinancialStatus: "voided"}),
	)

	result, err := newTestConverter(t, cfg, false).Validate(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.LinesProcessed)
	assert.Equal(t, 3, result.Stats.Warnings)
	assert.Equal(t, 1, result.Validation.ByRule[validation.RuleMissingNationalID])
	assert.Equal(t, 1, result.Validation.ByRule[validation.RuleOrderIDFormat])
	assert.Equal(t, 1, result.Validation.ByRule[validation.RuleFinancialStatus])
	assert.Empty(t, result.Generic.Rows)
	assert.NoDirExists(t, cfg.OutputDir)
}

// =============================================================================
// ERROR HANDLING TESTS
// =============================================================================

func TestRunNoInput(t *testing.T) {
	cfg := testConfig(t)

	_, err := newTestConverter(t, cfg, true).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestRunMissingColumnsIsFatal(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.InputDir, "short.csv", []string{types.ColName, types.ColFinancialStatus},
		orderRow(nil))

	_, err := newTestConverter(t, cfg, false).Run(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrMissingColumns)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestRunUnreadableFile(t *testing.T) {
	cfg := testConfig(t)
	good := writeExport(t, cfg.InputDir, "good.csv", types.RequiredColumns, orderRow(nil))
	missing := filepath.Join(cfg.InputDir, "missing.csv")

	_, err := newTestConverter(t, cfg, true).Run(context.Background(), []string{good, missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")

	cfg.ContinueOnError = true
	core, logs := observer.New(zapcore.DebugLevel)
	c, err := New(cfg, logging.FromZap(zap.New(core)), Options{DryRun: true, Now: fixedClock})
	require.NoError(t, err)

	result, err := c.Run(context.Background(), []string{good, missing})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Stats.FilesRead)
	assert.Equal(t, 1, result.Stats.FilesFailed)
	assert.Error(t, result.Files[1].Error)
	assert.Equal(t, 1, result.Counts.Total)
	assert.Equal(t, 1, logs.FilterMessageSnippet("Skipping").Len())
}

func TestRunUnsupportedExtension(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(cfg.InputDir, "orders.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	_, err := newTestConverter(t, cfg, true).Run(context.Background(), []string{path})
	assert.ErrorContains(t, err, "unsupported file type")
}

func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	writeExport(t, cfg.InputDir, "orders.csv", types.RequiredColumns, orderRow(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestConverter(t, cfg, true).Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.TieBreak = "random"
	_, err := New(cfg, nil, Options{})
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Normalization = []config.TransformationRule{
		{Field: "Notes", Actions: []config.TransformationAction{{Type: "explode"}}},
	}
	_, err = New(cfg, nil, Options{})
	assert.ErrorContains(t, err, "invalid normalization rules")
}

// =============================================================================
// REPORTING TESTS
// =============================================================================

func TestCategoryReport(t *testing.T) {
	counts := consolidator.CategoryCounts{
		ByStatus: map[types.Status]int{
			types.StatusCABA:           3,
			types.StatusPendingPayment: 2,
			types.StatusUnclassified:   1,
		},
		Total: 6,
	}

	report := CategoryReport(counts)
	require.Len(t, report, 10)
	assert.Equal(t, utils.CategoryCount{Label: "CABA", Count: 3}, report[0])
	assert.Contains(t, report, utils.CategoryCount{Label: "Falta Pagar", Count: 2})
	assert.Contains(t, report, utils.CategoryCount{Label: "Sin Clasificar", Count: 1})
	assert.Contains(t, report, utils.CategoryCount{Label: "Revisar DNI", Count: 0})
}
