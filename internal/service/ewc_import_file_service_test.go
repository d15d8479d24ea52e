package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/trs-ewc-import/internal/models"
	"github.com/noah-isme/trs-ewc-import/pkg/storage"
)

type importerStub struct {
	calls  []string
	result *models.ImportResult
	err    error
}

func (s *importerStub) Import(ctx context.Context, r io.Reader, fileName string) (*models.ImportResult, error) {
	s.calls = append(s.calls, fileName)
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

var fileServiceConfig = EwcImportFileConfig{
	PickupContainer:  "ewc-wales",
	PickupPrefix:     "pickup/",
	ArchiveContainer: "archived-integration-transactions",
	ArchivePrefix:    "ewc/processed/",
}

func newLocalFiles(t *testing.T) (*storage.LocalStorage, string) {
	t.Helper()
	dir := t.TempDir()
	files, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	return files, dir
}

func putFile(t *testing.T, files *storage.LocalStorage, key, content string) {
	t.Helper()
	require.NoError(t, files.Put(context.Background(), fileServiceConfig.PickupContainer, key, strings.NewReader(content)))
}

func TestTryGetImportFileType(t *testing.T) {
	svc := NewEwcImportFileService(nil, nil, nil, nil, nil, fileServiceConfig)

	cases := []struct {
		name     string
		expected models.ImportFileType
		ok       bool
	}{
		{"IND_2024.csv", models.ImportFileTypeInduction, true},
		{"pickup/ind-june.csv", models.ImportFileTypeInduction, true},
		{"QTS_2024.csv", models.ImportFileTypeQualification, true},
		{"pickup/qts.csv", models.ImportFileTypeQualification, true},
		{"UNKNOWN_2024.csv", 0, false},
		{"pickup/notes-IND.csv", 0, false},
	}
	for _, tc := range cases {
		fileType, ok := svc.TryGetImportFileType(tc.name)
		assert.Equal(t, tc.ok, ok, tc.name)
		assert.Equal(t, tc.expected, fileType, tc.name)
	}
}

func TestArchiveKeyUsesTimestampAndBaseName(t *testing.T) {
	svc := NewEwcImportFileService(nil, nil, nil, nil, nil, fileServiceConfig)
	at := time.Date(2024, 6, 3, 8, 5, 0, 0, time.UTC)
	assert.Equal(t, "ewc/processed/030620240805-IND_2024.csv", svc.ArchiveKey("pickup/IND_2024.csv", at))
}

func TestProcessPendingFilesImportsAndArchivesInductionFile(t *testing.T) {
	files, dir := newLocalFiles(t)
	putFile(t, files, "pickup/IND_2024.csv", inductionHeader+"1234567,Ada,Lovelace,01/01/1990,01/09/2021,01/09/2022,,Cardiff High,W123,Pass\n")

	store := newImportStoreStub()
	store.addPerson(models.Person{PersonID: "p-1", Trn: "1234567", FirstName: "Ada", LastName: "Lovelace", DateOfBirth: date(1990, 1, 1)})
	induction := NewInductionImportService(store.beginner(), nil, nil)
	induction.now = fixedClock(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC))

	svc := NewEwcImportFileService(files, induction, &importerStub{}, nil, nil, fileServiceConfig)
	svc.now = fixedClock(time.Date(2024, 6, 3, 8, 5, 0, 0, time.UTC))

	summary, err := svc.ProcessPendingFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)

	outcome := summary.Files[0]
	assert.Equal(t, "pickup/IND_2024.csv", outcome.Key)
	assert.Equal(t, "Induction", outcome.FileType)
	assert.Empty(t, outcome.Error)
	assert.Equal(t, "ewc/processed/030620240805-IND_2024.csv", outcome.ArchiveKey)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 1, outcome.Result.TotalCount)
	assert.Equal(t, 1, outcome.Result.SuccessCount)
	assert.Equal(t, 0, outcome.Result.FailureCount)

	assert.Equal(t, "IND_2024.csv", store.header.FileName)
	_, statErr := os.Stat(filepath.Join(dir, "ewc-wales", "pickup", "IND_2024.csv"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "archived-integration-transactions", "ewc", "processed", "030620240805-IND_2024.csv"))
	assert.NoError(t, statErr)
}

func TestProcessPendingFilesLeavesUnrecognisedFile(t *testing.T) {
	files, dir := newLocalFiles(t)
	putFile(t, files, "pickup/UNKNOWN_2024.csv", "a,b\n1,2\n")

	core, logs := observer.New(zapcore.InfoLevel)
	induction := &importerStub{}
	qts := &importerStub{}
	svc := NewEwcImportFileService(files, induction, qts, nil, zap.New(core), fileServiceConfig)

	summary, err := svc.ProcessPendingFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Files, 1)
	assert.True(t, summary.Files[0].Skipped)
	assert.Empty(t, summary.Files[0].ArchiveKey)
	assert.Empty(t, induction.calls)
	assert.Empty(t, qts.calls)

	_, statErr := os.Stat(filepath.Join(dir, "ewc-wales", "pickup", "UNKNOWN_2024.csv"))
	assert.NoError(t, statErr)

	errorsLogged := logs.FilterLevelExact(zapcore.ErrorLevel).FilterMessage("unrecognised import file, leaving in pickup")
	require.Equal(t, 1, errorsLogged.Len())
	assert.Equal(t, "UNKNOWN_2024.csv", errorsLogged.All()[0].ContextMap()["file"])
}

func TestProcessPendingFilesDispatchesByTypeAndKeepsFailedFiles(t *testing.T) {
	files, dir := newLocalFiles(t)
	putFile(t, files, "pickup/IND_a.csv", "x\n")
	putFile(t, files, "pickup/QTS_b.csv", "y\n")

	induction := &importerStub{err: errors.New("database unavailable")}
	qts := &importerStub{result: &models.ImportResult{IntegrationTransactionID: 9, TotalCount: 1, SuccessCount: 1}}
	svc := NewEwcImportFileService(files, induction, qts, nil, nil, fileServiceConfig)

	summary, err := svc.ProcessPendingFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Files, 2)

	assert.Equal(t, []string{"IND_a.csv"}, induction.calls)
	assert.Equal(t, []string{"QTS_b.csv"}, qts.calls)
	assert.Contains(t, summary.Files[0].Error, "database unavailable")
	assert.Empty(t, summary.Files[0].ArchiveKey)
	assert.NotEmpty(t, summary.Files[1].ArchiveKey)

	_, statErr := os.Stat(filepath.Join(dir, "ewc-wales", "pickup", "IND_a.csv"))
	assert.NoError(t, statErr)
	_, statErr = os.Stat(filepath.Join(dir, "ewc-wales", "pickup", "QTS_b.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessPendingFilesStopsWhenCancelled(t *testing.T) {
	files, _ := newLocalFiles(t)
	putFile(t, files, "pickup/IND_a.csv", "x\n")

	induction := &importerStub{}
	svc := NewEwcImportFileService(files, induction, nil, nil, nil, fileServiceConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ProcessPendingFiles(ctx)
	require.Error(t, err)
	assert.Empty(t, induction.calls)
}

func TestListPendingFilesIgnoresOtherPrefixes(t *testing.T) {
	files, _ := newLocalFiles(t)
	putFile(t, files, "pickup/IND_a.csv", "x\n")
	putFile(t, files, "elsewhere/QTS_b.csv", "y\n")

	svc := NewEwcImportFileService(files, nil, nil, nil, nil, fileServiceConfig)
	keys, err := svc.ListPendingFiles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"pickup/IND_a.csv"}, keys)
}
