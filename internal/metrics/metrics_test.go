package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/engine/events"
	"github.com/nathoo/duelcore/ruleset"
	"github.com/nathoo/duelcore/types"
)

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe(events.Notice{Kind: events.NoticeStep, Status: "continue", CommandType: "END_TURN"})
	r.Observe(events.Notice{Kind: events.NoticeStep, Status: "idle", CommandType: "DRAW_CARD"})
	r.Observe(events.Notice{Kind: events.NoticeStep, Status: "idle", CommandType: "DRAW_CARD"})
	r.Observe(events.Notice{Kind: events.NoticeRejected, CommandType: "ATTACK"})
	r.Observe(events.Notice{Kind: events.NoticeVetoed, CommandType: "PLAY_SPELL"})
	r.Observe(events.Notice{Kind: events.NoticeIntentUnresolved, Detail: "FLY"})
	r.Observe(events.Notice{Kind: events.NoticeReplayLoaded})
	r.Observe(events.Notice{Kind: "unknown"})

	require.Equal(t, 1.0, testutil.ToFloat64(r.Steps.WithLabelValues("continue")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.Steps.WithLabelValues("idle")))
	require.Equal(t, 2.0, testutil.ToFloat64(r.Commands.WithLabelValues("DRAW_CARD")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.Rejected.WithLabelValues("ATTACK")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.Vetoed.WithLabelValues("PLAY_SPELL")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.Unresolved.WithLabelValues("FLY")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.Replays))
}

func TestAttach_CountsEngineSteps(t *testing.T) {
	e := engine.New(1)
	require.NoError(t, ruleset.Install(e))
	require.NoError(t, e.Initialize(ruleset.NewMatch(
		ruleset.HeroSpec{ID: "alice", HP: 10},
		ruleset.HeroSpec{ID: "bob", HP: 10},
	)))

	r := NewRecorder()
	r.Attach(e.Notifier())

	require.NoError(t, e.EnqueueEntry(types.CommandEntry{Type: "END_TURN", Payload: map[string]any{"player": "bob"}}))
	require.NoError(t, e.EnqueueEntry(types.CommandEntry{Type: "END_TURN", Payload: map[string]any{"player": "alice"}}))
	_, err := e.RunUntilIdle(0)
	require.NoError(t, err)

	require.Equal(t, 1.0, testutil.ToFloat64(r.Rejected.WithLabelValues("END_TURN")))
	require.Equal(t, 1.0, testutil.ToFloat64(r.Commands.WithLabelValues("DRAW_CARD")))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.Replays.Inc()

	srv := httptest.NewServer(r.Server("").Handler)
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "duelcore_replay_loaded_total 1")
}
