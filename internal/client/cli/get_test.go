package cli

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/studysync/internal/client/persist"
	"github.com/iudanet/studysync/internal/client/storage"
	"github.com/iudanet/studysync/internal/models"
)

func TestCli_runGet(t *testing.T) {
	mockIO, out := testIO()
	mockSvc := &ServiceMock{
		LoadFunc: func(ctx context.Context, entityID string) (*models.VersionedRecord, persist.Source, error) {
			return &models.VersionedRecord{
				ID:             entityID,
				SyncStatus:     models.SyncStatusSynced,
				Payload:        []byte(`{"title":"notes"}`),
				LocalVersion:   2,
				ServerVersion:  2,
				LastModifiedAt: time.Now(),
			}, persist.SourceRemote, nil
		},
	}
	c := New(mockIO, mockSvc)

	err := c.Run(context.Background(), "get", []string{"entity-1"})
	require.NoError(t, err)

	calls := mockSvc.LoadCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "entity-1", calls[0].EntityID)

	assert.Contains(t, out.String(), "entity-1")
	assert.Contains(t, out.String(), string(persist.SourceRemote))
	assert.Contains(t, out.String(), `{"title":"notes"}`)
}

func TestCli_runGet_NotFound(t *testing.T) {
	mockIO, _ := testIO()
	mockSvc := &ServiceMock{
		LoadFunc: func(ctx context.Context, entityID string) (*models.VersionedRecord, persist.Source, error) {
			return nil, persist.SourceLocal, storage.ErrRecordNotFound
		},
	}
	c := New(mockIO, mockSvc)

	err := c.Run(context.Background(), "get", []string{"missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entity not found")
}

func TestCli_runGet_MissingID(t *testing.T) {
	mockIO, _ := testIO()
	c := New(mockIO, &ServiceMock{})

	err := c.Run(context.Background(), "get", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing entity ID")
}
