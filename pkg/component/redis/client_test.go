package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisopts "github.com/kart-io/docseek/pkg/options/redis"
)

func TestNewRequiresOptions(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "options")
}

func TestNewWithContextPingFailure(t *testing.T) {
	opts := redisopts.NewOptions()
	// 端口 1 无服务监听，连接立即被拒绝
	opts.Port = 1
	opts.MaxRetries = 0
	opts.DialTimeout = 200 * time.Millisecond

	_, err := NewWithContext(context.Background(), opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping")
}
