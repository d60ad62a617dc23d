package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeKeyStore 記憶體版 DynamicKeyStore
type fakeKeyStore struct {
	key     string
	version int64
}

func (s *fakeKeyStore) Load(ctx context.Context) (string, int64, error) {
	return s.key, s.version, nil
}

func (s *fakeKeyStore) Save(ctx context.Context, key string) (int64, error) {
	s.key = key
	s.version++
	return s.version, nil
}

func TestRotateIncrementsVersion(t *testing.T) {
	svc := NewDynamicKeyServiceWithStore(testTrace(t), zap.NewNop(), &fakeKeyStore{})

	first, err := svc.Rotate(context.Background(), "key-one")
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Version)

	second, err := svc.Rotate(context.Background(), "key-two")
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Version)

	key, version := svc.Current()
	assert.Equal(t, "key-two", key)
	assert.Equal(t, int64(2), version)
}

func TestRotateGeneratesKeyWhenEmpty(t *testing.T) {
	svc := NewDynamicKeyServiceWithStore(testTrace(t), zap.NewNop(), nil)

	rotated, err := svc.Rotate(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, rotated.Key, 32)
	assert.Equal(t, int64(1), rotated.Version)
}

func TestLoadFromStoreRestoresState(t *testing.T) {
	store := &fakeKeyStore{key: "persisted", version: 7}
	svc := NewDynamicKeyServiceWithStore(testTrace(t), zap.NewNop(), store)

	require.NoError(t, svc.LoadFromStore(context.Background()))
	key, version := svc.Current()
	assert.Equal(t, "persisted", key)
	assert.Equal(t, int64(7), version)
}

func TestCurrentEmptyBeforeFirstRotation(t *testing.T) {
	svc := NewDynamicKeyServiceWithStore(testTrace(t), zap.NewNop(), nil)
	key, version := svc.Current()
	assert.Empty(t, key)
	assert.Equal(t, int64(0), version)
}
