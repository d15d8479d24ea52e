package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	appErrors "github.com/noah-isme/trs-ewc-import/pkg/errors"
	"github.com/noah-isme/trs-ewc-import/pkg/logger"
	"github.com/noah-isme/trs-ewc-import/pkg/storage"
)

// ArchiveTimestampLayout renders ddMMyyyyHHmm.
const ArchiveTimestampLayout = "020120061504"

type fileImporter interface {
	Import(ctx context.Context, r io.Reader, fileName string) (*models.ImportResult, error)
}

type importFileMetrics interface {
	ObserveImportFile(fileType models.ImportFileType, result string, duration time.Duration)
}

type noopFileMetrics struct{}

func (noopFileMetrics) ObserveImportFile(models.ImportFileType, string, time.Duration) {}

// EwcImportFileConfig locates the pickup and archive areas.
type EwcImportFileConfig struct {
	PickupContainer  string
	PickupPrefix     string
	ArchiveContainer string
	ArchivePrefix    string
}

// EwcImportFileService lists pending EWC Wales files, dispatches them to the
// matching importer and archives them afterwards.
type EwcImportFileService struct {
	files     storage.FileStore
	induction fileImporter
	qts       fileImporter
	metrics   importFileMetrics
	logger    *zap.Logger
	cfg       EwcImportFileConfig
	now       func() time.Time
}

// NewEwcImportFileService constructs the orchestrator.
func NewEwcImportFileService(files storage.FileStore, induction, qts fileImporter, metrics *MetricsService, logger *zap.Logger, cfg EwcImportFileConfig) *EwcImportFileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PickupPrefix == "" {
		cfg.PickupPrefix = "pickup/"
	}
	if cfg.ArchiveContainer == "" {
		cfg.ArchiveContainer = "archived-integration-transactions"
	}
	if cfg.ArchivePrefix == "" {
		cfg.ArchivePrefix = "ewc/processed/"
	}
	svc := &EwcImportFileService{
		files:     files,
		induction: induction,
		qts:       qts,
		metrics:   noopFileMetrics{},
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	if metrics != nil {
		svc.metrics = metrics
	}
	return svc
}

// ListPendingFiles returns the keys of every file waiting in the pickup prefix.
func (s *EwcImportFileService) ListPendingFiles(ctx context.Context) ([]string, error) {
	objects, err := s.files.List(ctx, s.cfg.PickupContainer, s.cfg.PickupPrefix)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to list pickup files")
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// TryGetImportFileType classifies a file by its case-insensitive IND or QTS name prefix.
func (s *EwcImportFileService) TryGetImportFileType(fileName string) (models.ImportFileType, bool) {
	name := strings.ToUpper(path.Base(fileName))
	switch {
	case strings.HasPrefix(name, "IND"):
		return models.ImportFileTypeInduction, true
	case strings.HasPrefix(name, "QTS"):
		return models.ImportFileTypeQualification, true
	default:
		return 0, false
	}
}

// Download opens a pickup file for reading.
func (s *EwcImportFileService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.files.Open(ctx, s.cfg.PickupContainer, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to download pickup file")
	}
	return rc, nil
}

// ArchiveKey names the archived copy of a pickup file.
func (s *EwcImportFileService) ArchiveKey(key string, at time.Time) string {
	return s.cfg.ArchivePrefix + at.UTC().Format(ArchiveTimestampLayout) + "-" + path.Base(key)
}

// Archive copies the file into the archive container and removes the original.
// The copy and the delete are not atomic; a failure in between leaves both.
func (s *EwcImportFileService) Archive(ctx context.Context, key string) (string, error) {
	archiveKey := s.ArchiveKey(key, s.now())
	if err := s.files.Copy(ctx, s.cfg.PickupContainer, key, s.cfg.ArchiveContainer, archiveKey); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to archive pickup file")
	}
	if err := s.files.Delete(ctx, s.cfg.PickupContainer, key); err != nil {
		return archiveKey, appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, "failed to delete archived pickup file")
	}
	return archiveKey, nil
}

// ProcessPendingFiles imports every recognised pickup file in key order. A
// file is archived once its importer has run, whatever its rows contained.
// Unrecognised files and files whose import aborted stay in the pickup area.
func (s *EwcImportFileService) ProcessPendingFiles(ctx context.Context) (*models.ImportRunSummary, error) {
	summary := &models.ImportRunSummary{RunID: uuid.NewString(), StartedAt: s.now(), Files: make([]models.ImportFileOutcome, 0)}
	log := logger.ForJob(s.logger, "ewc-wales-import", summary.RunID)

	keys, err := s.ListPendingFiles(ctx)
	if err != nil {
		return summary, err
	}
	log.Info("pickup files listed", zap.Int("count", len(keys)))

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			summary.FinishedAt = s.now()
			return summary, err
		}
		summary.Files = append(summary.Files, s.processFile(ctx, key, log))
	}

	summary.FinishedAt = s.now()
	return summary, nil
}

func (s *EwcImportFileService) processFile(ctx context.Context, key string, log *zap.Logger) models.ImportFileOutcome {
	outcome := models.ImportFileOutcome{Key: key}
	fileName := path.Base(key)
	fileLog := log.With(zap.String("file", fileName))

	fileType, ok := s.TryGetImportFileType(fileName)
	if !ok {
		fileLog.Error("unrecognised import file, leaving in pickup")
		s.metrics.ObserveImportFile(0, FileResultUnrecognised, 0)
		outcome.Skipped = true
		outcome.Error = appErrors.ErrUnrecognisedImportFile.Message
		return outcome
	}
	outcome.FileType = fileType.String()

	start := time.Now()
	result, err := s.importFile(ctx, key, fileName, fileType)
	if err != nil {
		fileLog.Error("import file failed", zap.String("file_type", fileType.String()), zap.Error(err))
		s.metrics.ObserveImportFile(fileType, FileResultFailed, time.Since(start))
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Result = result
	s.metrics.ObserveImportFile(fileType, FileResultProcessed, time.Since(start))

	archiveKey, err := s.Archive(ctx, key)
	outcome.ArchiveKey = archiveKey
	if err != nil {
		fileLog.Error("archive file failed", zap.Error(err))
		outcome.Error = err.Error()
		return outcome
	}
	fileLog.Info("file processed",
		zap.String("file_type", fileType.String()),
		zap.Int64("integration_transaction_id", result.IntegrationTransactionID),
		zap.String("archive_key", archiveKey),
	)
	return outcome
}

func (s *EwcImportFileService) importFile(ctx context.Context, key, fileName string, fileType models.ImportFileType) (*models.ImportResult, error) {
	importer := s.induction
	if fileType == models.ImportFileTypeQualification {
		importer = s.qts
	}
	if importer == nil {
		return nil, fmt.Errorf("no importer configured for %s files", fileType)
	}

	rc, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	return importer.Import(ctx, rc, fileName)
}
