package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sotesting/sotesting-api/internal/repository"
)

// Mode selects which case file of a question is packaged.
type Mode string

const (
	// ModeFeedback runs the demo cases shown to teams while they work.
	ModeFeedback Mode = "feedback"
	// ModeScoring runs the hidden cases used for official grades.
	ModeScoring Mode = "scoring"
)

const (
	feedbackCaseFile = "demo_cases.py"
	scoringCaseFile  = "test_cases.py"
	// SubmissionSlot is the archive entry holding the team's code.
	SubmissionSlot = "submission.py"
)

// CaseFile returns the name of the case file for the mode, both on disk and in the archive.
func (m Mode) CaseFile() string {
	if m == ModeScoring {
		return scoringCaseFile
	}
	return feedbackCaseFile
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeFeedback || m == ModeScoring
}

// archiveEpoch pins entry timestamps so identical inputs give identical bytes.
var archiveEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ArchiveConfig locates the files packaged into each judge archive.
type ArchiveConfig struct {
	UtilitiesDir string
	QuestionsDir string
}

// ArchiveBuilder assembles the zip archive a judge run executes.
type ArchiveBuilder interface {
	Build(ctx context.Context, teamName string, question int, mode Mode) ([]byte, error)
}

type archiveBuilder struct {
	cfg         ArchiveConfig
	submissions repository.SubmissionFileRepository
	tracer      trace.Tracer
	logger      zerolog.Logger
}

type archiveEntry struct {
	name     string
	contents []byte
}

// NewArchiveBuilder constructs an archive builder.
func NewArchiveBuilder(cfg ArchiveConfig, submissions repository.SubmissionFileRepository, logger zerolog.Logger) ArchiveBuilder {
	return &archiveBuilder{
		cfg:         cfg,
		submissions: submissions,
		tracer:      otel.Tracer("github.com/sotesting/sotesting-api/internal/service/archive_builder"),
		logger:      logger.With().Str("component", "archive_builder").Logger(),
	}
}

// Build packages every grading utility under its own name, the question's case
// file for the mode and the team's latest submission as submission.py. All
// sources are read before any entry is written, so a missing input never
// yields a partial archive.
func (b *archiveBuilder) Build(ctx context.Context, teamName string, question int, mode Mode) ([]byte, error) {
	ctx, span := b.tracer.Start(ctx, "archive.build", trace.WithAttributes(
		attribute.String("archive.team", teamName),
		attribute.Int("archive.question", question),
		attribute.String("archive.mode", string(mode)),
	))
	defer span.End()

	entries, err := b.collect(ctx, teamName, question, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "collect_failed")
		return nil, err
	}

	archive, err := writeArchive(entries)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "zip_failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("archive.entries", len(entries)),
		attribute.Int("archive.bytes", len(archive)),
	)
	b.logger.Debug().
		Str("team", teamName).
		Int("question", question).
		Str("mode", string(mode)).
		Int("entries", len(entries)).
		Msg("archive built")

	return archive, nil
}

func (b *archiveBuilder) collect(ctx context.Context, teamName string, question int, mode Mode) ([]archiveEntry, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown archive mode %q", mode)
	}
	if question <= 0 {
		return nil, fmt.Errorf("%w: question %d", ErrResourceNotFound, question)
	}

	entries, err := b.utilities()
	if err != nil {
		return nil, err
	}

	casePath := filepath.Join(b.cfg.QuestionsDir, "q"+strconv.Itoa(question), mode.CaseFile())
	cases, err := os.ReadFile(casePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s for question %d", ErrResourceNotFound, mode.CaseFile(), question)
		}
		return nil, fmt.Errorf("read case file: %w", err)
	}

	submission, err := b.submissions.Read(ctx, teamName, question)
	if err != nil {
		if errors.Is(err, repository.ErrSubmissionFileNotFound) || errors.Is(err, repository.ErrInvalidTeamName) {
			return nil, fmt.Errorf("%w: submission of team %s for question %d", ErrResourceNotFound, teamName, question)
		}
		return nil, err
	}

	entries = append(entries,
		archiveEntry{name: mode.CaseFile(), contents: cases},
		archiveEntry{name: SubmissionSlot, contents: submission},
	)
	return entries, nil
}

// utilities loads every regular file of the utilities directory in name order.
func (b *archiveBuilder) utilities() ([]archiveEntry, error) {
	dirEntries, err := os.ReadDir(b.cfg.UtilitiesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: utilities directory %s", ErrResourceNotFound, b.cfg.UtilitiesDir)
		}
		return nil, fmt.Errorf("list utilities: %w", err)
	}

	entries := make([]archiveEntry, 0, len(dirEntries)+2)
	for _, dirEntry := range dirEntries {
		if !dirEntry.Type().IsRegular() {
			continue
		}
		name := dirEntry.Name()
		if name == SubmissionSlot || name == feedbackCaseFile || name == scoringCaseFile {
			return nil, fmt.Errorf("utility %s collides with a reserved archive entry", name)
		}
		contents, err := os.ReadFile(filepath.Join(b.cfg.UtilitiesDir, name))
		if err != nil {
			return nil, fmt.Errorf("read utility %s: %w", name, err)
		}
		entries = append(entries, archiveEntry{name: name, contents: contents})
	}
	return entries, nil
}

func writeArchive(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, entry := range entries {
		header := &zip.FileHeader{
			Name:     entry.name,
			Method:   zip.Deflate,
			Modified: archiveEpoch,
		}
		header.SetMode(0o644)
		w, err := writer.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("add %s to archive: %w", entry.name, err)
		}
		if _, err := w.Write(entry.contents); err != nil {
			return nil, fmt.Errorf("write %s to archive: %w", entry.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
