package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/scolarite-api/internal/dto"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
)

// memoryDataset mimics DatasetRepository: updates work on a copy that is only
// kept when fn succeeds.
type memoryDataset struct {
	mu      sync.Mutex
	payload []byte
	saves   int
}

func newMemoryDataset(t *testing.T, ds *models.Dataset) *memoryDataset {
	t.Helper()
	m := &memoryDataset{}
	if ds != nil {
		raw, err := repository.EncodeDataset(ds)
		require.NoError(t, err)
		m.payload = raw
	}
	return m
}

func (m *memoryDataset) View(ctx context.Context, fn func(*models.Dataset) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, err := repository.DecodeDataset(m.payload)
	if err != nil {
		return err
	}
	return fn(ds)
}

func (m *memoryDataset) Update(ctx context.Context, fn func(*models.Dataset) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, err := repository.DecodeDataset(m.payload)
	if err != nil {
		return err
	}
	if err := fn(ds); err != nil {
		return err
	}
	raw, err := repository.EncodeDataset(ds)
	if err != nil {
		return err
	}
	m.payload = raw
	m.saves++
	return nil
}

func (m *memoryDataset) snapshot(t *testing.T) *models.Dataset {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, err := repository.DecodeDataset(m.payload)
	require.NoError(t, err)
	return ds
}

type metricsStub struct {
	registrations []models.Group
	payments      []int64
	imported      int
	skipped       int
	sent          int
	failed        int
	mu            sync.Mutex
}

func (m *metricsStub) RecordRegistration(g models.Group) { m.registrations = append(m.registrations, g) }
func (m *metricsStub) RecordPayment(amount int64)       { m.payments = append(m.payments, amount) }
func (m *metricsStub) RecordImport(imported, skipped int) {
	m.imported += imported
	m.skipped += skipped
}
func (m *metricsStub) RecordNotification(delivered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if delivered {
		m.sent++
	} else {
		m.failed++
	}
}

var authorized = models.Actor{Name: "secretariat", Authorized: true}

func fee(v int64) *int64 { return &v }

func koffiRequest() dto.RegisterStudentRequest {
	return dto.RegisterStudentRequest{
		Surname:       "Koffi",
		GivenNames:    "jean",
		ClassLabel:    "cm2",
		Sex:           "M",
		BirthDate:     "2014-03-02",
		GuardianName:  "Koffi Paul",
		GuardianPhone: "07 00-11 22 33",
		RegisteredBy:  "Mme Aka",
		TuitionFee:    fee(50000),
	}
}

func seededStudent(id, surname, class string, tuition int64, payments ...int64) models.Student {
	st := models.Student{
		ID:            id,
		Surname:       surname,
		GivenNames:    "Test",
		ClassLabel:    class,
		Sex:           "F",
		BirthDate:     "2012-01-01",
		GuardianPhone: "0102030405",
		EnrolledAt:    time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC),
		TuitionFee:    tuition,
		Grades:        []models.Grade{},
		Payments:      []models.Payment{},
	}
	for i, amount := range payments {
		st.Payments = append(st.Payments, models.Payment{
			Date:   time.Date(2024, 10, i+1, 9, 0, 0, 0, time.UTC),
			Amount: amount,
			Mode:   "especes",
		})
	}
	return st
}
