package custody

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

type MockCustodyStore struct {
	mock.Mock
}

func (m *MockCustodyStore) GetActiveRecordsTx(tx *goqu.TxDatabase, assetID int) ([]models.CustodyRecord, error) {
	args := m.Called(tx, assetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CustodyRecord), args.Error(1)
}

func (m *MockCustodyStore) CloseActiveRecords(tx *goqu.TxDatabase, assetID int) (int, error) {
	args := m.Called(tx, assetID)
	return args.Int(0), args.Error(1)
}

func (m *MockCustodyStore) CloseActiveRecordForPerson(tx *goqu.TxDatabase, assetID, personID int) (int, error) {
	args := m.Called(tx, assetID, personID)
	return args.Int(0), args.Error(1)
}

func (m *MockCustodyStore) InsertRecord(tx *goqu.TxDatabase, assetID int, holder models.Holder) (int, error) {
	args := m.Called(tx, assetID, holder)
	return args.Int(0), args.Error(1)
}

func (m *MockCustodyStore) PersonExists(tx *goqu.TxDatabase, personID int) (bool, error) {
	args := m.Called(tx, personID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustodyStore) LocationExists(tx *goqu.TxDatabase, locationID int) (bool, error) {
	args := m.Called(tx, locationID)
	return args.Bool(0), args.Error(1)
}

type MockAssetWriter struct {
	mock.Mock
}

func (m *MockAssetWriter) UpdateStatus(tx *goqu.TxDatabase, assetID int, status models.LifecycleState) error {
	args := m.Called(tx, assetID, status)
	return args.Error(0)
}

type MockAuditWriter struct {
	mock.Mock
}

func (m *MockAuditWriter) Append(tx *goqu.TxDatabase, entry auditlog.Entry) (int, error) {
	args := m.Called(tx, entry)
	return args.Int(0), args.Error(1)
}

func newTestService(locker *MockAssetLocker, store *MockCustodyStore, assets *MockAssetWriter, audit *MockAuditWriter) *CustodyService {
	return NewService(fakeTxRunner{}, locker, store, assets, audit, zap.NewNop())
}

func assetRow(assetType models.AssetType, status models.LifecycleState) *models.FlatAssetRecord {
	return &models.FlatAssetRecord{
		ID:     42,
		Type:   string(assetType),
		Status: string(status),
	}
}

func intPtr(v int) *int { return &v }

func TestAssignClosesPreviousCustodyForSingleHolderTypes(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	holder := models.Holder{PersonID: intPtr(7), LocationID: 3}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeComputer, models.StateActive), nil).Once()
	store.On("PersonExists", mock.Anything, 7).Return(true, nil).Once()
	store.On("LocationExists", mock.Anything, 3).Return(true, nil).Once()
	store.On("CloseActiveRecords", mock.Anything, 42).Return(1, nil).Once()
	store.On("InsertRecord", mock.Anything, 42, holder).Return(101, nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Action == models.ActionAssign && entry.AssetID == 42
	})).Return(1, nil).Once()

	err := service.Assign(42, holder, 1)

	assert.NoError(t, err)
	store.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAssignRadioKeepsExistingCustodyOpen(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	holder := models.Holder{PersonID: intPtr(8), LocationID: 3}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeRadio, models.StateActive), nil).Once()
	store.On("PersonExists", mock.Anything, 8).Return(true, nil).Once()
	store.On("LocationExists", mock.Anything, 3).Return(true, nil).Once()
	store.On("InsertRecord", mock.Anything, 42, holder).Return(102, nil).Once()
	audit.On("Append", mock.Anything, mock.Anything).Return(1, nil).Once()

	err := service.Assign(42, holder, 1)

	assert.NoError(t, err)
	store.AssertNotCalled(t, "CloseActiveRecords", mock.Anything, mock.Anything)
	store.AssertExpectations(t)
}

func TestAssignPrinterToPersonFails(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypePrinter, models.StateActive), nil).Once()

	err := service.Assign(42, models.Holder{PersonID: intPtr(7), LocationID: 3}, 1)

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
	store.AssertNotCalled(t, "InsertRecord", mock.Anything, mock.Anything, mock.Anything)
}

func TestAssignPrinterToLocationSucceeds(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	holder := models.Holder{LocationID: 3}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypePrinter, models.StateActive), nil).Once()
	store.On("LocationExists", mock.Anything, 3).Return(true, nil).Once()
	store.On("CloseActiveRecords", mock.Anything, 42).Return(0, nil).Once()
	store.On("InsertRecord", mock.Anything, 42, holder).Return(103, nil).Once()
	audit.On("Append", mock.Anything, mock.Anything).Return(1, nil).Once()

	err := service.Assign(42, holder, 1)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}

func TestAssignRetiredAssetFails(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeComputer, models.StateRetired), nil).Once()

	err := service.Assign(42, models.Holder{PersonID: intPtr(7), LocationID: 3}, 1)

	var stateErr *apperrors.InvalidStateError
	assert.ErrorAs(t, err, &stateErr)
	store.AssertNotCalled(t, "InsertRecord", mock.Anything, mock.Anything, mock.Anything)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestAssignWarehousedAssetReturnsItToService(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	holder := models.Holder{PersonID: intPtr(7), LocationID: 3}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeTablet, models.StateWarehouse), nil).Once()
	store.On("PersonExists", mock.Anything, 7).Return(true, nil).Once()
	store.On("LocationExists", mock.Anything, 3).Return(true, nil).Once()
	store.On("CloseActiveRecords", mock.Anything, 42).Return(0, nil).Once()
	store.On("InsertRecord", mock.Anything, 42, holder).Return(104, nil).Once()
	assets.On("UpdateStatus", mock.Anything, 42, models.StateActive).Return(nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Action == models.ActionAssign &&
			entry.Before["status"] == string(models.StateWarehouse) &&
			entry.After["status"] == string(models.StateActive)
	})).Return(1, nil).Once()

	err := service.Assign(42, holder, 1)

	assert.NoError(t, err)
	assets.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAssignUnknownPersonFails(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeComputer, models.StateActive), nil).Once()
	store.On("PersonExists", mock.Anything, 99).Return(false, nil).Once()

	err := service.Assign(42, models.Holder{PersonID: intPtr(99), LocationID: 3}, 1)

	var notFoundErr *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
}

func TestAssignFailsWhenAuditAppendFails(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	holder := models.Holder{PersonID: intPtr(7), LocationID: 3}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeComputer, models.StateActive), nil).Once()
	store.On("PersonExists", mock.Anything, 7).Return(true, nil).Once()
	store.On("LocationExists", mock.Anything, 3).Return(true, nil).Once()
	store.On("CloseActiveRecords", mock.Anything, 42).Return(1, nil).Once()
	store.On("InsertRecord", mock.Anything, 42, holder).Return(105, nil).Once()
	audit.On("Append", mock.Anything, mock.Anything).Return(0, errors.New("audit store down")).Once()

	err := service.Assign(42, holder, 1)

	assert.Error(t, err)
}

func TestUnassignWithoutActiveCustodyFails(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeComputer, models.StateActive), nil).Once()
	store.On("GetActiveRecordsTx", mock.Anything, 42).Return([]models.CustodyRecord{}, nil).Once()

	err := service.Unassign(42, nil, 1)

	var notFoundErr *apperrors.NotFoundError
	assert.ErrorAs(t, err, &notFoundErr)
	audit.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestUnassignRadioWithSeveralHoldersNeedsPerson(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	active := []models.CustodyRecord{
		{ID: 1, AssetID: 42, PersonID: intPtr(7), LocationID: 3, Active: true},
		{ID: 2, AssetID: 42, PersonID: intPtr(8), LocationID: 3, Active: true},
	}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeRadio, models.StateActive), nil).Once()
	store.On("GetActiveRecordsTx", mock.Anything, 42).Return(active, nil).Once()

	err := service.Unassign(42, nil, 1)

	var validationErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestUnassignRadioClosesNamedHolderOnly(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	active := []models.CustodyRecord{
		{ID: 1, AssetID: 42, PersonID: intPtr(7), LocationID: 3, Active: true},
		{ID: 2, AssetID: 42, PersonID: intPtr(8), LocationID: 4, Active: true},
	}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypeRadio, models.StateActive), nil).Once()
	store.On("GetActiveRecordsTx", mock.Anything, 42).Return(active, nil).Once()
	store.On("CloseActiveRecordForPerson", mock.Anything, 42, 8).Return(1, nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Action == models.ActionReturn &&
			entry.PersonID != nil && *entry.PersonID == 8 &&
			entry.LocationID != nil && *entry.LocationID == 4
	})).Return(1, nil).Once()

	err := service.Unassign(42, intPtr(8), 1)

	assert.NoError(t, err)
	store.AssertNotCalled(t, "CloseActiveRecords", mock.Anything, mock.Anything)
	audit.AssertExpectations(t)
}

func TestUnassignClosesSingleActiveRecord(t *testing.T) {
	locker := new(MockAssetLocker)
	store := new(MockCustodyStore)
	assets := new(MockAssetWriter)
	audit := new(MockAuditWriter)
	service := newTestService(locker, store, assets, audit)

	active := []models.CustodyRecord{
		{ID: 1, AssetID: 42, PersonID: intPtr(7), LocationID: 3, Active: true},
	}

	locker.On("LockAsset", mock.Anything, 42).Return(assetRow(models.TypePhone, models.StateActive), nil).Once()
	store.On("GetActiveRecordsTx", mock.Anything, 42).Return(active, nil).Once()
	store.On("CloseActiveRecords", mock.Anything, 42).Return(1, nil).Once()
	audit.On("Append", mock.Anything, mock.MatchedBy(func(entry auditlog.Entry) bool {
		return entry.Action == models.ActionReturn
	})).Return(1, nil).Once()

	err := service.Unassign(42, nil, 1)

	assert.NoError(t, err)
	store.AssertExpectations(t)
}
