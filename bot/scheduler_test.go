package bot

import (
	"sync/atomic"
	"testing"
	"time"

	"livechat-bot/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsJobs(t *testing.T) {
	b := &Bot{log: zerolog.Nop()}
	var runs atomic.Int32
	b.AddJob(Job{Name: "count", Spec: "@every 1s", Run: func() { runs.Add(1) }})

	require.NoError(t, b.startScheduler())
	assert.Eventually(t, func() bool { return runs.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	b.stopScheduler()
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	b := &Bot{log: zerolog.Nop()}
	b.AddJob(Job{Name: "broken", Spec: "not a spec", Run: func() {}})
	assert.Error(t, b.startScheduler())
}

func TestNewBotRequiresToken(t *testing.T) {
	_, err := NewBot(models.BotConfig{}, zerolog.Nop())
	assert.Error(t, err)

	b, err := NewBot(models.BotConfig{Token: "abc"}, zerolog.Nop())
	require.NoError(t, err)
	assert.NotNil(t, b.Session)
}
