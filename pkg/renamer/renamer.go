// Package renamer drives the rename pipeline: list a directory newest first,
// extract each PDF's leading text, fit it to the token budget, ask the
// configured model for a name, then sanitize, deduplicate, and rename.
package renamer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kcaldas/pdfgenie/pkg/ai"
	"github.com/kcaldas/pdfgenie/pkg/config"
	"github.com/kcaldas/pdfgenie/pkg/fileops"
	"github.com/kcaldas/pdfgenie/pkg/logging"
	"github.com/kcaldas/pdfgenie/pkg/naming"
	"github.com/kcaldas/pdfgenie/pkg/tokens"
)

// Extension is the file extension handled by the pipeline, without the dot.
const Extension = "pdf"

// contentAttr is the template slot the naming prompt fills with document text.
const contentAttr = "content"

// ExtractFunc produces the text a document is named from. The production
// implementation is extract.FirstPageText.
type ExtractFunc func(path string) (string, error)

// Options tune a single run.
type Options struct {
	// DryRun computes target names without touching the filesystem.
	DryRun bool
	// Debug is forwarded to the generation backend, which dumps rendered
	// prompts when set.
	Debug bool
}

// Outcome records how the pipeline handled one file.
type Outcome struct {
	// Source is the file's name when the run started.
	Source string
	// Target is the final name chosen for the file, extension included.
	// Empty when the run failed before a name was settled.
	Target string
	// Renamed reports whether the file was renamed, or would have been
	// under dry-run.
	Renamed bool
	// DryRun marks outcomes computed without performing the rename.
	DryRun bool
	// Err is the failure for this file, nil on success or skip.
	Err error
}

// Failed reports whether the file could not be processed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Service executes the rename pipeline over a directory.
type Service struct {
	config  config.Manager
	gen     ai.Gen
	files   fileops.Manager
	extract ExtractFunc
	prompt  ai.Prompt
	options Options
	logger  logging.Logger
}

// NewService creates the pipeline with explicit collaborators.
func NewService(
	configMgr config.Manager,
	gen ai.Gen,
	files fileops.Manager,
	extract ExtractFunc,
	prompt ai.Prompt,
	options Options,
	logger logging.Logger,
) *Service {
	return &Service{
		config:  configMgr,
		gen:     gen,
		files:   files,
		extract: extract,
		prompt:  prompt,
		options: options,
		logger:  logger,
	}
}

// RenameDirectory processes every PDF in dir, newest first, and returns one
// Outcome per file in processing order. A failure of a single file is
// recorded in its Outcome and the batch continues; the returned error is
// reserved for conditions that prevent the run itself, such as an unreadable
// directory.
func (s *Service) RenameDirectory(ctx context.Context, dir string) ([]Outcome, error) {
	names, err := s.files.ListFilesByModTime(dir)
	if err != nil {
		return nil, fmt.Errorf("listing directory %s: %w", dir, err)
	}

	budget := s.config.GetPipelineConfig().ContentTokenLimit

	var outcomes []Outcome
	for _, name := range names {
		if !strings.EqualFold(filepath.Ext(name), "."+Extension) {
			continue
		}

		outcome := s.processFile(ctx, dir, name, budget)
		switch {
		case outcome.Err != nil:
			s.logger.Error("file failed", "file", name, "error", outcome.Err)
		case outcome.Renamed:
			s.logger.Info("file renamed", "file", name, "target", outcome.Target, "dry_run", outcome.DryRun)
		default:
			s.logger.Info("name unchanged", "file", name)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// processFile runs one file through extract, budget, generate, sanitize,
// deduplicate, and rename.
func (s *Service) processFile(ctx context.Context, dir, name string, budget int) Outcome {
	outcome := Outcome{Source: name, DryRun: s.options.DryRun}
	path := filepath.Join(dir, name)

	s.logger.Info("reading file", "file", path)

	content, err := s.extract(path)
	if err != nil {
		// An unreadable document is still named, from the placeholder.
		s.logger.Warn("text extraction failed", "file", name, "error", err)
		content = ""
	}
	content = tokens.FitToBudget(tokens.NormalizeContent(content), budget)

	suggestion, err := s.gen.GenerateContent(ctx, s.prompt, s.options.Debug, contentAttr, content)
	if err != nil {
		outcome.Err = fmt.Errorf("generating filename: %w", err)
		return outcome
	}

	base := naming.Sanitize(ai.RemoveSurroundingMarkdown(suggestion))

	// Re-list so renames earlier in the batch count as collisions. The
	// file's own name is excluded: keeping an already-correct name is a
	// skip, not a collision.
	entries, err := s.files.ListFilesByModTime(dir)
	if err != nil {
		outcome.Err = fmt.Errorf("listing directory %s: %w", dir, err)
		return outcome
	}
	existing := naming.ExistingSet(entries, Extension)
	delete(existing, name)

	outcome.Target = naming.Deduplicate(base, existing, Extension) + "." + Extension
	if outcome.Target == name {
		return outcome
	}

	if s.options.DryRun {
		outcome.Renamed = true
		return outcome
	}

	if err := s.files.Rename(path, filepath.Join(dir, outcome.Target)); err != nil {
		outcome.Err = fmt.Errorf("renaming %s: %w", name, err)
		return outcome
	}
	outcome.Renamed = true
	return outcome
}
