package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearwater-labs/quarry-cli/internal/chunking"
	"github.com/clearwater-labs/quarry-cli/internal/core/domain"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driven"
	"github.com/clearwater-labs/quarry-cli/internal/core/ports/driving"
	"github.com/clearwater-labs/quarry-cli/internal/enrich"
	"github.com/clearwater-labs/quarry-cli/internal/logger"
)

var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the full ingestion pipeline: chunk, enrich, index,
// persist. Documents are processed one at a time; a failing document is
// recorded in the report and never aborts the batch.
type IngestService struct {
	source   driven.DocumentSource
	chunker  *chunking.Chunker
	enricher *enrich.Enricher
	indexer  *Indexer
	passages driven.PassageStore
	minWords int
}

// NewIngestService wires the ingestion pipeline.
func NewIngestService(
	source driven.DocumentSource,
	chunker *chunking.Chunker,
	enricher *enrich.Enricher,
	indexer *Indexer,
	passages driven.PassageStore,
	minWords int,
) *IngestService {
	return &IngestService{
		source:   source,
		chunker:  chunker,
		enricher: enricher,
		indexer:  indexer,
		passages: passages,
		minWords: minWords,
	}
}

// IngestAll processes every document the source yields and returns a
// report of the batch. Cancellation is honoured between documents; the
// partial report covers whatever completed before the cancel.
func (s *IngestService) IngestAll(ctx context.Context) (*domain.IngestReport, error) {
	report := newReport()
	defer finishReport(report)

	docs, err := s.source.Documents(ctx)
	if err != nil {
		return report, fmt.Errorf("list documents: %w", err)
	}
	logger.Section("Ingesting %d documents", len(docs))
	logger.Debug("Batch %s", report.BatchID)

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := s.ingestOne(ctx, &docs[i], report); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			logger.Warn("Skipping %s: %v", docs[i].Name, err)
			report.Skipped = append(report.Skipped, domain.SkippedDocument{
				DocumentID: docs[i].ID,
				Name:       docs[i].Name,
				Reason:     err.Error(),
			})
		}
	}
	return report, nil
}

// IngestDocument processes a single document and returns its report.
func (s *IngestService) IngestDocument(ctx context.Context, doc *domain.RawDocument) (*domain.IngestReport, error) {
	report := newReport()
	defer finishReport(report)

	if err := s.ingestOne(ctx, doc, report); err != nil {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Skipped = append(report.Skipped, domain.SkippedDocument{
			DocumentID: doc.ID,
			Name:       doc.Name,
			Reason:     err.Error(),
		})
	}
	return report, nil
}

// RemoveDocument drops a document's passages from the store and both
// indexes. Re-ingesting a changed document starts with this.
func (s *IngestService) RemoveDocument(ctx context.Context, docID string) error {
	existing, err := s.passages.PassagesByDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load passages for %s: %w", docID, err)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := s.indexer.Remove(ctx, existing); err != nil {
		return err
	}
	if err := s.passages.DeleteByDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete passages for %s: %w", docID, err)
	}
	return nil
}

func (s *IngestService) ingestOne(ctx context.Context, doc *domain.RawDocument, report *domain.IngestReport) error {
	if wc := doc.WordCount(); wc < s.minWords {
		return fmt.Errorf("document has %d words, below the minimum of %d", wc, s.minWords)
	}

	// Replace rather than merge: a re-ingested document's old passages
	// must not linger in either index.
	if err := s.RemoveDocument(ctx, doc.ID); err != nil {
		return err
	}

	passages, chunkStats, err := s.chunker.Chunk(ctx, doc)
	if err != nil {
		return fmt.Errorf("chunk: %w", err)
	}
	report.RefinementFallbacks += chunkStats.RefinementFallbacks

	for i := range passages {
		if err := s.enricher.Enrich(ctx, &passages[i]); err != nil {
			return fmt.Errorf("enrich %s: %w", passages[i].ID, err)
		}
	}

	indexStats, err := s.indexer.Index(ctx, passages)
	if err != nil {
		// Indexing already happened partially; drop what landed so the
		// document is either fully present or fully absent.
		if removeErr := s.indexer.Remove(ctx, passages); removeErr != nil {
			logger.Warn("Rollback of %s left partial index entries: %v", doc.ID, removeErr)
		}
		return fmt.Errorf("index: %w", err)
	}
	report.VectorUnindexed = append(report.VectorUnindexed, indexStats.VectorUnindexed...)

	if err := s.passages.SavePassages(ctx, passages); err != nil {
		if removeErr := s.indexer.Remove(ctx, passages); removeErr != nil {
			logger.Warn("Rollback of %s left partial index entries: %v", doc.ID, removeErr)
		}
		return fmt.Errorf("save passages: %w", err)
	}

	report.DocumentsProcessed++
	tally(report, passages)
	logger.Info("Ingested %s: %d passages", doc.Name, len(passages))
	return nil
}

func newReport() *domain.IngestReport {
	return &domain.IngestReport{
		BatchID:              uuid.NewString(),
		StartedAt:            time.Now(),
		LanguageDistribution: make(map[string]int),
		CategoryDistribution: make(map[string]int),
	}
}

func finishReport(report *domain.IngestReport) {
	report.FinishedAt = time.Now()
	if report.PassagesCreated > 0 {
		report.WordCountMean /= float64(report.PassagesCreated)
	}
}

// tally folds a document's passages into the batch statistics. The mean
// accumulates as a sum here and is divided once in finishReport.
func tally(report *domain.IngestReport, passages []domain.Passage) {
	for i := range passages {
		p := &passages[i]
		report.PassagesCreated++

		wc := p.Metadata.WordCount
		if report.WordCountMin == 0 || wc < report.WordCountMin {
			report.WordCountMin = wc
		}
		if wc > report.WordCountMax {
			report.WordCountMax = wc
		}
		report.WordCountMean += float64(wc)

		lang := p.Metadata.Language
		if lang == "" {
			lang = enrich.LanguageUnknown
		}
		report.LanguageDistribution[lang]++

		category := "unknown"
		if p.Metadata.Category != nil {
			category = *p.Metadata.Category
		}
		report.CategoryDistribution[category]++

		if len(p.QualityFlags) > 0 {
			report.FlaggedPassages = append(report.FlaggedPassages, p.ID)
		}
	}
}
