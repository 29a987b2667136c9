package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newMachine() *StateMachine {
	return NewStateMachine("test-session", nil)
}

// driveTo 沿合法路径走到目标状态
func driveTo(t *testing.T, sm *StateMachine, target State, outcome *slot.SpinOutcome) {
	t.Helper()
	path := []State{StateSpinRequested, StateSpinning, StateStoppingReels, StateEvaluating}
	switch target {
	case StatePaying:
		path = append(path, StatePaying)
	case StateFeatureIntro:
		path = append(path, StateFeatureIntro)
	case StateFeaturePlay:
		path = append(path, StateFeatureIntro, StateFeaturePlay)
	case StateFeatureOutro:
		path = append(path, StateFeatureIntro, StateFeaturePlay, StateFeatureOutro)
	case StateIdle:
		return
	}
	for _, s := range path {
		var o *slot.SpinOutcome
		if s == StateStoppingReels {
			o = outcome
		}
		require.True(t, sm.Transition(s, o), "走到 %s 失败", s)
		if s == target {
			return
		}
	}
}

func withFeature(win int64) *slot.SpinOutcome {
	return &slot.SpinOutcome{
		SpinID:         "spin",
		TotalWin:       win,
		FeatureTrigger: &slot.FeatureTrigger{Type: slot.FeatureFreeSpins},
	}
}

func TestStateMachine_InitialState(t *testing.T) {
	sm := newMachine()
	assert.Equal(t, StateIdle, sm.State())
	assert.True(t, sm.CanAcceptInput())
	assert.False(t, sm.IsSpinning())
	assert.False(t, sm.IsFeatureActive())
	assert.Nil(t, sm.Outcome())
	assert.Empty(t, sm.History())
	assert.NoError(t, sm.Err())
	assert.Equal(t, []State{StateSpinRequested}, sm.GetAllowedNextStates())
}

// TestStateMachine_Legality 对所有 (状态, 目标) 组合：仅合法转换改变状态
func TestStateMachine_Legality(t *testing.T) {
	for _, from := range AllStates {
		for _, to := range AllStates {
			sm := newMachine()
			driveTo(t, sm, from, withFeature(10))
			require.Equal(t, from, sm.State())
			historyLen := len(sm.History())
			outcomeBefore := sm.Outcome()

			ok := sm.Transition(to, nil)
			if IsValidTransition(from, to) {
				assert.True(t, ok, "%s -> %s 应合法", from, to)
				assert.Equal(t, to, sm.State())
				assert.Len(t, sm.History(), historyLen+1)
				assert.NoError(t, sm.Err())
			} else {
				assert.False(t, ok, "%s -> %s 应非法", from, to)
				assert.Equal(t, from, sm.State())
				assert.Len(t, sm.History(), historyLen)
				assert.Same(t, outcomeBefore, sm.Outcome())
				assert.True(t, apperrors.Is(sm.Err(), apperrors.ErrIllegalTransition))
				assert.NotEmpty(t, sm.Snapshot().Error)
			}
		}
	}
}

func TestStateMachine_EvaluateFromIdleFails(t *testing.T) {
	sm := newMachine()
	assert.False(t, sm.Evaluate())
	assert.Equal(t, StateIdle, sm.State())
	assert.Error(t, sm.Err())
}

func TestStateMachine_DerivedQueries(t *testing.T) {
	cases := []struct {
		state    State
		input    bool
		spinning bool
		feature  bool
	}{
		{StateIdle, true, false, false},
		{StateSpinRequested, false, true, false},
		{StateSpinning, false, true, false},
		{StateStoppingReels, false, true, false},
		{StateEvaluating, false, true, false},
		{StatePaying, false, false, false},
		{StateFeatureIntro, false, false, true},
		{StateFeaturePlay, false, false, true},
		{StateFeatureOutro, false, false, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			sm := newMachine()
			driveTo(t, sm, tc.state, withFeature(5))
			assert.Equal(t, tc.input, sm.CanAcceptInput())
			assert.Equal(t, tc.spinning, sm.IsSpinning())
			assert.Equal(t, tc.feature, sm.IsFeatureActive())
		})
	}
}

// TestStateMachine_FeaturePath 有功能触发必须经过 FEATURE_INTRO
func TestStateMachine_FeaturePath(t *testing.T) {
	sm := newMachine()
	outcome := withFeature(120)
	driveTo(t, sm, StateEvaluating, outcome)

	next, ok := sm.Advance()
	require.True(t, ok)
	assert.Equal(t, StateFeatureIntro, next)

	next, ok = sm.Advance()
	require.True(t, ok)
	assert.Equal(t, StateFeaturePlay, next)
	assert.True(t, sm.Outcome().FeatureTrigger.IsActive)
	assert.False(t, outcome.FeatureTrigger.IsActive, "调用方持有的结果不被修改")

	next, _ = sm.Advance()
	assert.Equal(t, StateFeatureOutro, next)
	next, _ = sm.Advance()
	assert.Equal(t, StatePaying, next)
	next, _ = sm.Advance()
	assert.Equal(t, StateIdle, next)
}

// TestStateMachine_HistoryEvents 每条记录带上触发它的事件
func TestStateMachine_HistoryEvents(t *testing.T) {
	sm := newMachine()
	require.True(t, sm.RequestSpin())
	require.True(t, sm.StartSpinning())
	require.True(t, sm.StopReels(withFeature(50)))
	require.True(t, sm.Evaluate())
	require.NoError(t, sm.RunToIdle())

	var events []string
	var states []State
	for _, r := range sm.History() {
		events = append(events, r.Event)
		states = append(states, r.To)
	}
	assert.Equal(t, []State{
		StateSpinRequested, StateSpinning, StateStoppingReels, StateEvaluating,
		StateFeatureIntro, StateFeaturePlay, StateFeatureOutro, StatePaying, StateIdle,
	}, states)
	assert.Equal(t, []string{
		EventRequestSpin, EventStartSpinning, EventStopReels, EventEvaluate,
		EventAdvance, EventAdvance, EventAdvance, EventAdvance, EventAdvance,
	}, events)

	require.True(t, sm.RequestSpin())
	require.True(t, sm.Cancel())
	require.True(t, sm.Transition(StateSpinRequested, nil))
	h := sm.History()
	assert.Equal(t, EventCancel, h[len(h)-2].Event)
	assert.Equal(t, EventTransition, h[len(h)-1].Event)
}

// TestStateMachine_DirectSkipOfFeatureWarns 直接跳过功能路径合法但会告警
func TestStateMachine_DirectSkipOfFeatureWarns(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	sm := NewStateMachine("warn-session", zap.New(core))
	driveTo(t, sm, StateEvaluating, withFeature(10))

	assert.True(t, sm.Transition(StatePaying, nil))
	entries := logs.FilterMessage("转换偏离结果驱动路径").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(StateFeatureIntro), entries[0].ContextMap()["expected"])

	// 按结果推进不告警
	logs.TakeAll()
	sm.Reset()
	driveTo(t, sm, StateEvaluating, withFeature(10))
	require.NoError(t, sm.RunToIdle())
	assert.Zero(t, logs.FilterMessage("转换偏离结果驱动路径").Len())
}

func TestStateMachine_NoFeatureGoesToPaying(t *testing.T) {
	sm := newMachine()
	driveTo(t, sm, StateEvaluating, &slot.SpinOutcome{SpinID: "x", TotalWin: 0})
	next, ok := sm.Advance()
	require.True(t, ok)
	assert.Equal(t, StatePaying, next)
}

func TestStateMachine_FeatureWithoutWinSkipsPaying(t *testing.T) {
	sm := newMachine()
	driveTo(t, sm, StateEvaluating, withFeature(0))
	require.NoError(t, sm.RunToIdle())

	var states []State
	for _, r := range sm.History() {
		states = append(states, r.To)
	}
	assert.NotContains(t, states, StatePaying)
	assert.Equal(t, StateFeatureOutro, states[len(states)-2])
}

func TestStateMachine_AdvanceBeforeEvaluationFails(t *testing.T) {
	sm := newMachine()
	require.True(t, sm.RequestSpin())
	_, ok := sm.Advance()
	assert.False(t, ok)
	assert.Equal(t, StateSpinRequested, sm.State())
	assert.Error(t, sm.RunToIdle())
}

func TestStateMachine_Cancel(t *testing.T) {
	sm := newMachine()
	assert.False(t, sm.Cancel(), "IDLE 不能撤销")

	require.True(t, sm.RequestSpin())
	assert.True(t, sm.Cancel())
	assert.Equal(t, StateIdle, sm.State())

	driveTo(t, sm, StatePaying, &slot.SpinOutcome{TotalWin: 1})
	assert.False(t, sm.Cancel(), "派彩中不能撤销")
	assert.Equal(t, StatePaying, sm.State())
}

func TestStateMachine_Reset(t *testing.T) {
	sm := newMachine()
	driveTo(t, sm, StateFeaturePlay, withFeature(1))
	sm.Transition(StateIdle, nil)
	require.Error(t, sm.Err())

	sm.Reset()
	snap := sm.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Nil(t, snap.Outcome)
	assert.Empty(t, snap.TransitionHistory)
	assert.Empty(t, snap.Error)
}

func TestStateMachine_ResetNotifiesIdle(t *testing.T) {
	sm := newMachine()
	var got []Notification
	sm.Register(func(n Notification) { got = append(got, n) })

	sm.Reset()
	assert.Empty(t, got, "已在待机时不通知")

	require.True(t, sm.RequestSpin())
	require.True(t, sm.StartSpinning())
	sm.Reset()
	require.Len(t, got, 3)
	assert.Equal(t, StateIdle, got[2].State)
	assert.Equal(t, StateSpinning, got[2].Transition.From)
	assert.Equal(t, EventReset, got[2].Transition.Event)
	assert.Greater(t, got[2].Transition.Seq, got[1].Transition.Seq)
}

func TestStateMachine_ListenersInOrder(t *testing.T) {
	sm := newMachine()
	var calls []string
	sm.Register(func(n Notification) { calls = append(calls, "a:"+string(n.State)) })
	sm.Register(func(n Notification) { panic("boom") })
	sm.Register(func(n Notification) { calls = append(calls, "c:"+string(n.State)) })

	require.True(t, sm.RequestSpin())
	assert.Equal(t, []string{"a:SPIN_REQUESTED", "c:SPIN_REQUESTED"}, calls)
	assert.Equal(t, StateSpinRequested, sm.State(), "监听器 panic 不影响状态")
}

func TestStateMachine_NotificationCarriesOutcome(t *testing.T) {
	sm := newMachine()
	var got []Notification
	sm.Register(func(n Notification) { got = append(got, n) })

	outcome := &slot.SpinOutcome{SpinID: "abc", TotalWin: 3}
	driveTo(t, sm, StateStoppingReels, outcome)
	require.Len(t, got, 3)
	assert.Nil(t, got[0].Outcome)
	assert.Same(t, outcome, got[2].Outcome)
	assert.Equal(t, "test-session", got[2].SessionID)
	for i, n := range got {
		assert.Equal(t, uint64(i+1), n.Transition.Seq)
	}
}

func TestStateMachine_Unregister(t *testing.T) {
	sm := newMachine()
	count := 0
	unregister := sm.Register(func(Notification) { count++ })
	require.True(t, sm.RequestSpin())
	unregister()
	unregister()
	require.True(t, sm.Cancel())
	assert.Equal(t, 1, count)
}

func TestStateMachine_HistoryLimit(t *testing.T) {
	sm := NewStateMachine("s", nil, WithHistoryLimit(4))
	for i := 0; i < 5; i++ {
		require.True(t, sm.RequestSpin())
		require.True(t, sm.Cancel())
	}
	history := sm.History()
	require.Len(t, history, 4)
	assert.Equal(t, uint64(10), history[3].Seq)
}

func TestStateMachine_ConcurrentReads(t *testing.T) {
	sm := newMachine()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = sm.Snapshot()
				_ = sm.IsSpinning()
			}
		}()
	}
	for i := 0; i < 50; i++ {
		sm.RequestSpin()
		sm.Cancel()
	}
	wg.Wait()
	assert.Equal(t, StateIdle, sm.State())
}
