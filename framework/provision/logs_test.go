package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octopod/octopod/framework/helpers"
	"github.com/octopod/octopod/servicedef"
)

func TestStreamLogs(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		tp.backend.SetLogs("img", "starting", "listening on :8080\r")
		tp.backend.EndLogStreams(true)
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		ch, err := tp.p.StreamLogs(tp.ctx, s)
		require.NoError(t, err)
		lines, closed := helpers.CollectUntilClosed(ch, time.Second)
		assert.True(t, closed)
		assert.Equal(t, []LogLine{
			{Source: "api", Text: "starting"},
			{Source: "api", Text: "listening on :8080"},
		}, lines)
	})
}

func TestStreamLogsClosesWhenContextIsCancelled(t *testing.T) {
	withProvisioner(t, func(tp provisionerTestParams) {
		tp.backend.SetLogs("img", "one")
		n := tp.createNetwork(t)
		s, err := tp.p.CreateService(tp.ctx, servicedef.NewService("api", "img"), n, tp.ledger)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(tp.ctx)
		ch, err := tp.p.StreamLogs(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, LogLine{Source: "api", Text: "one"}, helpers.RequireValue(t, ch, time.Second))
		helpers.RequireNoMoreValues(t, ch, 50*time.Millisecond)

		cancel()
		_, closed := helpers.CollectUntilClosed(ch, time.Second)
		assert.True(t, closed)
	})
}

func TestMergeLogsKeepsPerSourceOrder(t *testing.T) {
	a := make(chan LogLine)
	b := make(chan LogLine)
	merged := MergeLogs(context.Background(), a, b)
	go func() {
		for _, text := range []string{"a1", "a2", "a3"} {
			a <- LogLine{Source: "a", Text: text}
		}
		close(a)
	}()
	go func() {
		for _, text := range []string{"b1", "b2"} {
			b <- LogLine{Source: "b", Text: text}
		}
		close(b)
	}()

	lines, closed := helpers.CollectUntilClosed(merged, time.Second)
	require.True(t, closed)
	bySource := map[string][]string{}
	for _, line := range lines {
		bySource[line.Source] = append(bySource[line.Source], line.Text)
	}
	assert.Equal(t, map[string][]string{"a": {"a1", "a2", "a3"}, "b": {"b1", "b2"}}, bySource)
}

func TestMergeLogsWithNoSourcesIsClosed(t *testing.T) {
	_, closed := helpers.CollectUntilClosed(MergeLogs(context.Background()), time.Second)
	assert.True(t, closed)
}
