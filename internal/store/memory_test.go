package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketshield/citation-intake/internal/domain"
)

func TestMemoryStoreGetByIDMissing(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryStorePublishesChanges(t *testing.T) {
	s := NewMemoryStore()
	var changes []Change
	cancel, err := s.Subscribe(context.Background(), func(ctx context.Context, batch []Change) {
		changes = append(changes, batch...)
	}, nil)
	require.NoError(t, err)
	defer cancel()

	kase := &domain.Case{CaseID: "c1", CaseStatus: domain.StatusExtracted}
	require.NoError(t, s.Create(context.Background(), kase))
	require.NoError(t, s.SetFields(context.Background(), "c1", map[string]any{
		"firstName": "Ann",
	}))
	require.NoError(t, s.UpdateStatus(context.Background(), "c1",
		map[string]any{"caseStatus": domain.StatusCaseApproved},
		domain.StatusHistoryEntry{Status: domain.StatusCaseApproved}))

	require.Len(t, changes, 3)
	assert.Equal(t, ChangeAdded, changes[0].Type)
	assert.Equal(t, ChangeModified, changes[1].Type)
	assert.Equal(t, "Ann", changes[1].Case.FirstName)
	assert.Equal(t, ChangeModified, changes[2].Type)
	assert.Equal(t, domain.StatusCaseApproved, changes[2].Case.CaseStatus)
	require.Len(t, changes[2].Case.StatusHistory, 1, "status and history land in one change")
	assert.Equal(t, domain.StatusCaseApproved, changes[2].Case.StatusHistory[0].Status)
}

func TestMemoryStoreUnsubscribeStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	var count int
	cancel, err := s.Subscribe(context.Background(), func(ctx context.Context, batch []Change) {
		count += len(batch)
	}, nil)
	require.NoError(t, err)

	require.NoError(t, s.Create(context.Background(), &domain.Case{CaseID: "c1"}))
	cancel()
	require.NoError(t, s.SetFields(context.Background(), "c1", map[string]any{"firstName": "x"}))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, s.SubscriberCount())
}

func TestMemoryStoreFailNotifiesSubscribers(t *testing.T) {
	s := NewMemoryStore()
	var got error
	_, err := s.Subscribe(context.Background(), func(context.Context, []Change) {}, func(e error) {
		got = e
	})
	require.NoError(t, err)

	s.Fail(errors.New("boom"))
	require.Error(t, got)
	assert.Equal(t, "boom", got.Error())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Create(context.Background(), &domain.Case{CaseID: "c1", FirstName: "Ann"}))

	first, err := s.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	first.FirstName = "changed"

	second, err := s.GetByID(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", second.FirstName)
}
