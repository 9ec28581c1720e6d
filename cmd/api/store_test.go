package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/follower-tracker/internal/adapter/memory"
	"github.com/user/follower-tracker/pkg/config"
)

func TestNewStoreSelection(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	tests := []struct {
		name        string
		cfg         config.Config
		wantBackend string
		wantLock    bool
	}{
		{name: "file", cfg: config.Config{StoreBackend: config.BackendFile, DBPath: t.TempDir() + "/db.json"}, wantBackend: config.BackendFile},
		{name: "memory", cfg: config.Config{StoreBackend: config.BackendMemory}, wantBackend: config.BackendMemory},
		{name: "none", cfg: config.Config{StoreBackend: config.BackendNone}, wantBackend: config.BackendNone},
		{name: "postgres without url", cfg: config.Config{StoreBackend: config.BackendPostgres}, wantBackend: config.BackendNone},
		{name: "redis without addr", cfg: config.Config{StoreBackend: config.BackendRedis}, wantBackend: config.BackendNone},
		{name: "redis", cfg: config.Config{StoreBackend: config.BackendRedis, RedisAddr: mr.Addr(), RedisPrefix: "test"}, wantBackend: config.BackendRedis, wantLock: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.HistoryCap, tt.cfg.EventsCap = 500, 100
			b := newStore(ctx, &tt.cfg, zap.NewNop())
			defer b.close()

			assert.Equal(t, tt.wantBackend, b.backend)
			assert.Equal(t, tt.wantLock, b.lock != nil)
			require.NotNil(t, b.repo)
			if tt.wantBackend == config.BackendNone {
				assert.IsType(t, memory.NullStore{}, b.repo)
			}
		})
	}
}

func TestLockTTL(t *testing.T) {
	assert.Equal(t, 40*time.Second, lockTTL(20*time.Second))
	assert.Equal(t, time.Minute, lockTTL(0))
}
