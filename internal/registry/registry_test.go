package registry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campusguessr/scoreserver/internal/domain"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ResolveInstance(ctx context.Context, name string) (int64, error) {
	args := m.Called(ctx, name)
	id, _ := args.Get(0).(int64)
	return id, args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetInstanceID(ctx context.Context, name string) (int64, bool, error) {
	args := m.Called(ctx, name)
	id, _ := args.Get(0).(int64)
	ok, _ := args.Get(1).(bool)
	return id, ok, args.Error(2)
}

func (m *mockCache) SetInstanceID(ctx context.Context, name string, id int64) error {
	args := m.Called(ctx, name, id)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_CacheHitSkipsStore(t *testing.T) {
	store := new(mockStore)
	cache := new(mockCache)
	reg := New(store, cache, testLogger())

	cache.On("GetInstanceID", mock.Anything, "public").Return(int64(7), true, nil).Once()

	id, err := reg.Resolve(context.Background(), "public")
	require.NoError(t, err)
	require.Equal(t, int64(7), id)

	store.AssertNotCalled(t, "ResolveInstance", mock.Anything, mock.Anything)
	cache.AssertExpectations(t)
}

func TestResolve_CacheMissFallsThroughAndPopulates(t *testing.T) {
	store := new(mockStore)
	cache := new(mockCache)
	reg := New(store, cache, testLogger())

	cache.On("GetInstanceID", mock.Anything, "classic").Return(int64(0), false, nil).Once()
	store.On("ResolveInstance", mock.Anything, "classic").Return(int64(3), nil).Once()
	cache.On("SetInstanceID", mock.Anything, "classic", int64(3)).Return(nil).Once()

	id, err := reg.Resolve(context.Background(), "classic")
	require.NoError(t, err)
	require.Equal(t, int64(3), id)

	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestResolve_CacheErrorFallsThrough(t *testing.T) {
	store := new(mockStore)
	cache := new(mockCache)
	reg := New(store, cache, testLogger())

	cache.On("GetInstanceID", mock.Anything, "public").Return(int64(0), false, errors.New("redis down")).Once()
	store.On("ResolveInstance", mock.Anything, "public").Return(int64(7), nil).Once()
	cache.On("SetInstanceID", mock.Anything, "public", int64(7)).Return(errors.New("redis down")).Once()

	id, err := reg.Resolve(context.Background(), "public")
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

func TestResolve_NotFoundPropagates(t *testing.T) {
	store := new(mockStore)
	cache := new(mockCache)
	reg := New(store, cache, testLogger())

	cache.On("GetInstanceID", mock.Anything, "ghost").Return(int64(0), false, nil).Once()
	store.On("ResolveInstance", mock.Anything, "ghost").Return(int64(0), domain.ErrInstanceNotFound).Once()

	_, err := reg.Resolve(context.Background(), "ghost")
	require.ErrorIs(t, err, domain.ErrInstanceNotFound)
	cache.AssertNotCalled(t, "SetInstanceID", mock.Anything, mock.Anything, mock.Anything)
}

func TestResolve_NilCache(t *testing.T) {
	store := new(mockStore)
	reg := New(store, nil, testLogger())

	store.On("ResolveInstance", mock.Anything, "public").Return(int64(7), nil).Once()

	id, err := reg.Resolve(context.Background(), "public")
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

func TestWarm(t *testing.T) {
	store := new(mockStore)
	cache := new(mockCache)
	reg := New(store, cache, testLogger())

	cache.On("SetInstanceID", mock.Anything, "public", int64(1)).Return(nil).Once()
	cache.On("SetInstanceID", mock.Anything, "classic", int64(2)).Return(nil).Once()

	reg.Warm(context.Background(), []domain.GameInstance{
		{ID: 1, Name: "public", IsActive: true},
		{ID: 2, Name: "classic", IsActive: true},
	})

	cache.AssertExpectations(t)
}
