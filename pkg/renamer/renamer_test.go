package renamer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/logging"
	"github.com/kcaldas/pdfgenie/pkg/tokens"
)

func newTestService(gen ai.Gen, extract ExtractFunc, options Options) *Service {
	prompt := ai.Prompt{Name: "rename", Text: "{{.content}}"}
	return NewService(
		config.NewConfigManager(),
		gen,
		fileops.NewFileOpsManager(),
		extract,
		prompt,
		options,
		logging.NewDisabledLogger(),
	)
}

func writeFile(t *testing.T, dir, name string, modTime time.Time) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 test"), 0o644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func staticExtract(text string) ExtractFunc {
	return func(path string) (string, error) { return text, nil }
}

func extractByName(texts map[string]string) ExtractFunc {
	return func(path string) (string, error) {
		return texts[filepath.Base(path)], nil
	}
}

func TestService_RenamesFromSuggestion(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "a.pdf", now)
	writeFile(t, dir, "notes.txt", now)

	gen := ai.NewMockGen()
	gen.SetResponses("Acme_Invoice_4521")

	service := newTestService(gen, staticExtract("Invoice #4521 from Acme Corp"), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "a.pdf", outcomes[0].Source)
	assert.Equal(t, "Acme_Invoice_4521.pdf", outcomes[0].Target)
	assert.True(t, outcomes[0].Renamed)
	assert.NoError(t, outcomes[0].Err)

	assert.FileExists(t, filepath.Join(dir, "Acme_Invoice_4521.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "a.pdf"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	assert.Equal(t, 1, gen.CallCount())
	assert.Equal(t, "Invoice #4521 from Acme Corp", gen.LastArgValue("content"))
}

func TestService_ProcessesNewestFirst(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "old.pdf", now.Add(-2*time.Hour))
	writeFile(t, dir, "mid.pdf", now.Add(-time.Hour))
	writeFile(t, dir, "new.pdf", now)

	gen := ai.NewMockGen()
	gen.SetResponses("First_Processed", "Second_Processed", "Third_Processed")

	service := newTestService(gen, staticExtract("some text"), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 3)
	assert.Equal(t, "new.pdf", outcomes[0].Source)
	assert.Equal(t, "mid.pdf", outcomes[1].Source)
	assert.Equal(t, "old.pdf", outcomes[2].Source)
	assert.Equal(t, "First_Processed.pdf", outcomes[0].Target)
	assert.Equal(t, "Second_Processed.pdf", outcomes[1].Target)
	assert.Equal(t, "Third_Processed.pdf", outcomes[2].Target)
}

func TestService_CollisionGetsSuffix(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "Acme_Invoice_4521.pdf", now.Add(-time.Hour))
	writeFile(t, dir, "scan.pdf", now)

	gen := ai.NewMockGen()
	gen.SetResponses("Acme_Invoice_4521", "Acme_Invoice_4521")

	service := newTestService(gen, staticExtract("Invoice #4521 from Acme Corp"), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	// scan.pdf is newer, so it runs first and collides with the existing
	// invoice.
	assert.Equal(t, "scan.pdf", outcomes[0].Source)
	assert.Equal(t, "Acme_Invoice_4521_01.pdf", outcomes[0].Target)
	assert.True(t, outcomes[0].Renamed)

	// The existing invoice already carries its generated name.
	assert.Equal(t, "Acme_Invoice_4521.pdf", outcomes[1].Source)
	assert.Equal(t, "Acme_Invoice_4521.pdf", outcomes[1].Target)
	assert.False(t, outcomes[1].Renamed)
	assert.NoError(t, outcomes[1].Err)

	assert.FileExists(t, filepath.Join(dir, "Acme_Invoice_4521.pdf"))
	assert.FileExists(t, filepath.Join(dir, "Acme_Invoice_4521_01.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "scan.pdf"))
}

func TestService_FallbackNameWhenSuggestionUnusable(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "junk.pdf", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("!!! ???")

	service := newTestService(gen, staticExtract("unintelligible scan"), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Regexp(t, `^empty_file_\d{14}\.pdf$`, outcomes[0].Target)
	assert.True(t, outcomes[0].Renamed)
	assert.FileExists(t, filepath.Join(dir, outcomes[0].Target))
}

func TestService_StripsSurroundingFences(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "statement.pdf", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("```\nBank_Statement_Jan\n```")

	service := newTestService(gen, staticExtract("statement text"), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "Bank_Statement_Jan.pdf", outcomes[0].Target)
}

func TestService_PlaceholderForWhitespaceContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.pdf", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("Scanned_Blank_Page")

	service := newTestService(gen, staticExtract("   \n\t "), Options{})
	_, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, tokens.EmptyContentPlaceholder, gen.LastArgValue("content"))
}

func TestService_PlaceholderAfterExtractionError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "corrupt.pdf", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("Recovered_Name")

	failing := func(path string) (string, error) {
		return "", errors.New("malformed xref table")
	}

	service := newTestService(gen, failing, Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.Equal(t, "Recovered_Name.pdf", outcomes[0].Target)
	assert.Equal(t, tokens.EmptyContentPlaceholder, gen.LastArgValue("content"))
}

func TestService_GenerationFailureDoesNotAbortBatch(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	writeFile(t, dir, "first.pdf", now)
	writeFile(t, dir, "second.pdf", now.Add(-time.Hour))

	gen := ai.NewMockGen()
	gen.SetErrors(errors.New("backend unavailable"), nil)
	gen.SetResponses("unused", "Second_Doc")

	service := newTestService(gen, staticExtract("text"), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].Failed())
	assert.ErrorContains(t, outcomes[0].Err, "generating filename")
	assert.FileExists(t, filepath.Join(dir, "first.pdf"))

	assert.NoError(t, outcomes[1].Err)
	assert.Equal(t, "Second_Doc.pdf", outcomes[1].Target)
	assert.FileExists(t, filepath.Join(dir, "Second_Doc.pdf"))
}

func TestService_DryRunLeavesFilesAlone(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.pdf", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("Quarterly_Report_2024")

	service := newTestService(gen, staticExtract("quarterly report"), Options{DryRun: true})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Renamed)
	assert.True(t, outcomes[0].DryRun)
	assert.Equal(t, "Quarterly_Report_2024.pdf", outcomes[0].Target)

	assert.FileExists(t, filepath.Join(dir, "report.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "Quarterly_Report_2024.pdf"))
}

func TestService_ContentFitsTokenBudget(t *testing.T) {
	t.Setenv("PDFGENIE_CONTENT_TOKEN_LIMIT", "12")

	dir := t.TempDir()
	writeFile(t, dir, "long.pdf", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("Long_Doc")

	service := newTestService(gen, staticExtract(strings.Repeat("invoice details ", 200)), Options{})
	_, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	sent := gen.LastArgValue("content")
	assert.NotEmpty(t, sent)
	assert.LessOrEqual(t, tokens.CountTokens(sent), 12)
}

func TestService_UppercaseExtensionIsProcessed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "SCAN001.PDF", time.Now())

	gen := ai.NewMockGen()
	gen.SetResponses("Lease_Agreement")

	service := newTestService(gen, extractByName(map[string]string{"SCAN001.PDF": "lease agreement"}), Options{})
	outcomes, err := service.RenameDirectory(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, outcomes, 1)
	assert.Equal(t, "Lease_Agreement.pdf", outcomes[0].Target)
	assert.FileExists(t, filepath.Join(dir, "Lease_Agreement.pdf"))
}

func TestService_ErrorListingDirectory(t *testing.T) {
	gen := ai.NewMockGen()
	service := newTestService(gen, staticExtract(""), Options{})

	outcomes, err := service.RenameDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Nil(t, outcomes)
	assert.Equal(t, 0, gen.CallCount())
}
