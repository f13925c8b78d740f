package lifecycle

import (
	"errors"
	"testing"

	"fleetd/internal/auditlog"
	"fleetd/pkg/apperrors"
	"fleetd/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type MockAssetLocker struct {
	mock.Mock
}

func (m *MockAssetLocker) LockAsset(tx *goqu.TxDatabase, assetID int) (*models.FlatAssetRecord, error) {
	args := m.Called(tx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FlatAssetRecord), args.Error(1)
}

type MockAssetWriter struct {
	mock.Mock
}

func (m *MockAssetWriter) UpdateStatus(tx *goqu.TxDatabase, assetID int, status models.LifecycleState) error {
	args := m.Called(tx, assetID, status)
	return args.Error(0)
}

type MockCustodyCloser struct {
	mock.Mock
}

func (m *MockCustodyCloser) CloseActiveRecords(tx *goqu.TxDatabase, assetID int) (int, error) {
	args := m.Called(tx, assetID)
	return args.Int(0), args.Error(1)
}

type MockAuditWriter struct {
	mock.Mock
}

func (m *MockAuditWriter) Append(tx *goqu.TxDatabase, entry auditlog.Entry) (int, error) {
	args := m.Called(tx, entry)
	return args.Int(0), args.Error(1)
}

func newTestService(locker *MockAssetLocker, assets *MockAssetWriter, custody *MockCustodyCloser, audit *MockAuditWriter) *LifecycleService {
	return NewService(fakeTxRunner{}, locker, assets, custody, audit, zap.NewNop())
}

func assetRow(status models.LifecycleState) *models.FlatAssetRecord {
	return &models.FlatAssetRecord{
		ID:     42,
		Type:   string(models.TypePhone),
		Status: string(status),
	}
}

func TestMoveToWarehouseClosesCustodyAndRecordsEvent(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateActive), nil).Once()
	custody.On("CloseActiveRecords", mock.Anything, 42).Return(1, nil).Once()
	assets.On("UpdateStatus", mock.Anything, 42, models.StateWarehouse).Return(nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Action == models.ActionWarehouseIn &&
			entry.Before["status"] == string(models.StateActive) &&
			entry.After["status"] == string(models.StateWarehouse) &&
			entry.Reason != nil && *entry.Reason == "annual storage"
	})).Return(1, nil).Once()

	err := service.MoveToWarehouse(42, "annual storage", 1)

	assert.NoError(t, err)
	custody.AssertExpectations(t)
	assets.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestMoveToWarehouseDefaultsReason(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateActive), nil).Once()
	custody.On("CloseActiveRecords", mock.Anything, 42).Return(0, nil).Once()
	assets.On("UpdateStatus", mock.Anything, 42, models.StateWarehouse).Return(nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Reason != nil && *entry.Reason == "moved to warehouse"
	})).Return(1, nil).Once()

	err := service.MoveToWarehouse(42, "", 1)

	assert.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestMoveToWarehouseRejectsRetiredAsset(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateRetired), nil).Once()

	err := service.MoveToWarehouse(42, "", 1)

	var stateErr *apperrors.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
	assets.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestMoveToWarehouseRejectsWarehousedAsset(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateWarehouse), nil).Once()

	err := service.MoveToWarehouse(42, "", 1)

	var stateErr *apperrors.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestRetireFromWarehouse(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateWarehouse), nil).Once()
	custody.On("CloseActiveRecords", mock.Anything, 42).Return(0, nil).Once()
	assets.On("UpdateStatus", mock.Anything, 42, models.StateRetired).Return(nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Action == models.ActionRetire && entry.Reason == nil
	})).Return(1, nil).Once()

	err := service.Retire(42, "", 1)

	assert.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestRetireIsTerminal(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateRetired), nil).Once()

	err := service.Retire(42, "", 1)

	var stateErr *apperrors.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
	custody.AssertNotCalled(t, "CloseActiveRecords", mock.Anything, mock.Anything)
}

func TestRetireDeletedAssetNotFound(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	row := assetRow(models.StateActive)
	deletedAt := row.CreatedAt
	row.DeletedAt = &deletedAt

	locker.On("LockAsset", mock.Anything, 42).Return(row, nil).Once()

	err := service.Retire(42, "", 1)

	var notFoundErr *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestMoveToWarehouseFailsWhenAuditAppendFails(t *testing.T) {
	locker := new(MockAssetLocker)
	assets := new(MockAssetWriter)
	custody := new(MockCustodyCloser)
	audit := new(MockAuditWriter)
	service := newTestService(locker, assets, custody, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.StateActive), nil).Once()
	custody.On("CloseActiveRecords", mock.Anything, 42).Return(1, nil).Once()
	assets.On("UpdateStatus", mock.Anything, 42, models.StateWarehouse).Return(nil).Once()
	audit.On("Append", mock.Anything, mock.Anything).Return(0, errors.New("audit store down")).Once()

	err := service.MoveToWarehouse(42, "", 1)

	assert.Error(t, err)
}
