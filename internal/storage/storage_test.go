package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trunk-processor/internal/apperror"
	"trunk-processor/internal/intake"
	"trunk-processor/internal/logger"
)

type fakeBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failKeys map[string]int // key -> number of attempts that fail
	attempts map[string]int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{
		objects:  make(map[string][]byte),
		failKeys: make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (f *fakeBlobStore) put(_ context.Context, _, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[key]++
	if f.attempts[key] <= f.failKeys[key] {
		return errors.New("put failed")
	}
	f.objects[key] = data
	return nil
}

func testUpload() *intake.Upload {
	return &intake.Upload{
		JSON:  intake.Artifact{Name: "call.json", Data: []byte(`{}`)},
		Audio: intake.Artifact{Name: "call.m4a", Data: []byte("audio")},
	}
}

func newTestUploader(store *fakeBlobStore) *Uploader {
	policy := DefaultRetryPolicy()
	policy.Timer = newFakeTimer()
	return NewWithPut("recordings", policy, store.put, logger.New())
}

func TestUploadPairStoresBothArtifacts(t *testing.T) {
	store := newFakeBlobStore()
	u := newTestUploader(store)

	err := u.UploadPair(context.Background(), "p25/2024/05/01", testUpload())
	require.NoError(t, err)

	assert.Equal(t, []byte(`{}`), store.objects["p25/2024/05/01/call.json"])
	assert.Equal(t, []byte("audio"), store.objects["p25/2024/05/01/call.m4a"])
}

func TestUploadPairRetriesTransientFailures(t *testing.T) {
	store := newFakeBlobStore()
	store.failKeys["p25/2024/05/01/call.m4a"] = 2
	u := newTestUploader(store)

	err := u.UploadPair(context.Background(), "p25/2024/05/01", testUpload())
	require.NoError(t, err)

	assert.Equal(t, 3, store.attempts["p25/2024/05/01/call.m4a"])
	assert.Contains(t, store.objects, "p25/2024/05/01/call.m4a")
}

func TestUploadPairFailsAfterBudget(t *testing.T) {
	store := newFakeBlobStore()
	store.failKeys["p25/2024/05/01/call.m4a"] = 3
	u := newTestUploader(store)

	err := u.UploadPair(context.Background(), "p25/2024/05/01", testUpload())
	require.Error(t, err)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.KindObjectStorageUpload, appErr.Kind)
	assert.Equal(t, 3, store.attempts["p25/2024/05/01/call.m4a"])

	// no compensating delete: the successful artifact stays
	assert.Contains(t, store.objects, "p25/2024/05/01/call.json")
}
