package game

import (
	"sync"
	"time"

	apperrors "github.com/wfunc/spin-engine/internal/errors"
	"github.com/wfunc/spin-engine/internal/game/slot"
	"go.uber.org/zap"
)

// State 老虎机展示状态
type State string

const (
	StateIdle          State = "IDLE"           // 待机，每轮的起点和终点
	StateSpinRequested State = "SPIN_REQUESTED" // 已请求旋转，等待校验
	StateSpinning      State = "SPINNING"       // 转动中
	StateStoppingReels State = "STOPPING_REELS" // 停轮，结果已提交
	StateEvaluating    State = "EVALUATING"     // 评估结果
	StatePaying        State = "PAYING"         // 派彩展示
	StateFeatureIntro  State = "FEATURE_INTRO"  // 特殊功能开场
	StateFeaturePlay   State = "FEATURE_PLAY"   // 特殊功能进行中
	StateFeatureOutro  State = "FEATURE_OUTRO"  // 特殊功能结束
)

// validTransitions 合法转换表
var validTransitions = map[State][]State{
	StateIdle:          {StateSpinRequested},
	StateSpinRequested: {StateSpinning, StateIdle},
	StateSpinning:      {StateStoppingReels},
	StateStoppingReels: {StateEvaluating},
	StateEvaluating:    {StatePaying, StateFeatureIntro},
	StatePaying:        {StateIdle},
	StateFeatureIntro:  {StateFeaturePlay},
	StateFeaturePlay:   {StateFeatureOutro},
	StateFeatureOutro:  {StatePaying, StateIdle},
}

// AllStates 全部状态，按一轮旋转的顺序
var AllStates = []State{
	StateIdle, StateSpinRequested, StateSpinning, StateStoppingReels, StateEvaluating,
	StatePaying, StateFeatureIntro, StateFeaturePlay, StateFeatureOutro,
}

// GetAllowedNextStates 返回某状态的合法后继
func GetAllowedNextStates(from State) []State {
	next := validTransitions[from]
	out := make([]State, len(next))
	copy(out, next)
	return out
}

// IsValidTransition 检查转换是否在表内
func IsValidTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// 触发转换的事件
const (
	EventTransition    = "transition"
	EventRequestSpin   = "request_spin"
	EventCancel        = "cancel"
	EventStartSpinning = "start_spinning"
	EventStopReels     = "stop_reels"
	EventEvaluate      = "evaluate"
	EventAdvance       = "advance"
	EventReset         = "reset"
)

// TransitionRecord 转换记录
type TransitionRecord struct {
	Seq   uint64    `json:"seq"`
	From  State     `json:"from"`
	To    State     `json:"to"`
	Event string    `json:"event"`
	At    time.Time `json:"at"`
}

// Snapshot 状态机上下文快照
type Snapshot struct {
	SessionID         string             `json:"session_id"`
	State             State              `json:"state"`
	Outcome           *slot.SpinOutcome  `json:"outcome,omitempty"`
	TransitionHistory []TransitionRecord `json:"transition_history"`
	Error             string             `json:"error,omitempty"`
}

// Notification 推送给展示端的 (状态, 结果)。
// 展示端只依据这两个值渲染，Seq 用于丢弃乱序或重复的通知。
type Notification struct {
	SessionID  string            `json:"session_id"`
	State      State             `json:"state"`
	Outcome    *slot.SpinOutcome `json:"outcome,omitempty"`
	Transition TransitionRecord  `json:"transition"`
}

// Listener 状态变更监听器
type Listener func(Notification)

type listenerEntry struct {
	id uint64
	fn Listener
}

// DefaultHistoryLimit 默认保留的转换记录条数
const DefaultHistoryLimit = 256

// StateMachine 单个会话的老虎机状态机，由结果驱动
type StateMachine struct {
	mu        sync.RWMutex
	sessionID string
	state     State
	outcome   *slot.SpinOutcome
	history   []TransitionRecord
	lastErr   *apperrors.AppError
	seq       uint64

	listeners    []listenerEntry
	nextListener uint64

	historyLimit int
	logger       *zap.Logger
}

// StateMachineOption 状态机选项
type StateMachineOption func(*StateMachine)

// WithHistoryLimit 设置保留的转换记录条数，<=0 表示不限制
func WithHistoryLimit(n int) StateMachineOption {
	return func(sm *StateMachine) { sm.historyLimit = n }
}

// NewStateMachine 创建状态机，初始为 IDLE
func NewStateMachine(sessionID string, logger *zap.Logger, opts ...StateMachineOption) *StateMachine {
	if logger == nil {
		logger = zap.NewNop()
	}
	sm := &StateMachine{
		sessionID:    sessionID,
		state:        StateIdle,
		historyLimit: DefaultHistoryLimit,
		logger:       logger.With(zap.String("session_id", sessionID)),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Transition 尝试转换到 to，outcome 非空时替换上下文中的结果。
// 非法转换不改变状态，只记录错误并返回 false。
// 只校验转换表：评估之后的路径应通过 Advance/RunToIdle 由结果决定，
// 直接调用时目标与结果不一致会记 Warn。
func (sm *StateMachine) Transition(to State, outcome *slot.SpinOutcome) bool {
	return sm.transition(to, outcome, EventTransition)
}

func (sm *StateMachine) transition(to State, outcome *slot.SpinOutcome, event string) bool {
	sm.mu.Lock()
	from := sm.state
	if !IsValidTransition(from, to) {
		sm.lastErr = apperrors.Newf(apperrors.ErrIllegalTransition, "%s -> %s, 允许: %v", from, to, validTransitions[from])
		sm.mu.Unlock()
		sm.logger.Error("非法状态转换",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.Any("allowed", validTransitions[from]))
		return false
	}

	if outcome != nil {
		sm.outcome = outcome
	}
	if expected, ok := nextByOutcome(from, sm.outcome); ok && expected != to {
		sm.logger.Warn("转换偏离结果驱动路径",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("expected", string(expected)),
			zap.String("event", event))
	}
	if to == StateFeaturePlay {
		sm.outcome = activateFeature(sm.outcome)
	}

	sm.seq++
	record := TransitionRecord{Seq: sm.seq, From: from, To: to, Event: event, At: time.Now()}
	sm.history = append(sm.history, record)
	if sm.historyLimit > 0 && len(sm.history) > sm.historyLimit {
		sm.history = append([]TransitionRecord(nil), sm.history[len(sm.history)-sm.historyLimit:]...)
	}
	sm.state = to
	sm.lastErr = nil

	n := Notification{SessionID: sm.sessionID, State: to, Outcome: sm.outcome, Transition: record}
	listeners := make([]listenerEntry, len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	sm.logger.Debug("状态转换", zap.String("from", string(from)), zap.String("to", string(to)), zap.String("event", event))
	sm.notify(listeners, n)
	return true
}

// activateFeature 进入功能播放时标记功能已激活，复制一份避免改动已返回给调用方的结果
func activateFeature(o *slot.SpinOutcome) *slot.SpinOutcome {
	if o == nil || o.FeatureTrigger == nil || o.FeatureTrigger.IsActive {
		return o
	}
	cp := *o
	trigger := *o.FeatureTrigger
	trigger.IsActive = true
	cp.FeatureTrigger = &trigger
	return &cp
}

// notify 按注册顺序同步通知，单个监听器 panic 不影响其他监听器
func (sm *StateMachine) notify(listeners []listenerEntry, n Notification) {
	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					sm.logger.Error("状态监听器异常",
						zap.Uint64("listener", l.id),
						zap.String("state", string(n.State)),
						zap.Any("panic", r))
				}
			}()
			l.fn(n)
		}()
	}
}

// Register 注册监听器，返回注销函数
func (sm *StateMachine) Register(fn Listener) (unregister func()) {
	sm.mu.Lock()
	sm.nextListener++
	id := sm.nextListener
	sm.listeners = append(sm.listeners, listenerEntry{id: id, fn: fn})
	sm.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			for i, l := range sm.listeners {
				if l.id == id {
					sm.listeners = append(sm.listeners[:i:i], sm.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// RequestSpin IDLE -> SPIN_REQUESTED
func (sm *StateMachine) RequestSpin() bool {
	return sm.transition(StateSpinRequested, nil, EventRequestSpin)
}

// Cancel 校验失败时撤销请求，只允许在生成结果之前
func (sm *StateMachine) Cancel() bool {
	sm.mu.Lock()
	if sm.state != StateSpinRequested {
		from := sm.state
		sm.lastErr = apperrors.Newf(apperrors.ErrIllegalTransition, "状态 %s 不能撤销", from)
		sm.mu.Unlock()
		sm.logger.Error("非法撤销", zap.String("state", string(from)))
		return false
	}
	sm.mu.Unlock()
	return sm.transition(StateIdle, nil, EventCancel)
}

// StartSpinning SPIN_REQUESTED -> SPINNING
func (sm *StateMachine) StartSpinning() bool {
	return sm.transition(StateSpinning, nil, EventStartSpinning)
}

// StopReels SPINNING -> STOPPING_REELS，携带已提交的结果
func (sm *StateMachine) StopReels(outcome *slot.SpinOutcome) bool {
	return sm.transition(StateStoppingReels, outcome, EventStopReels)
}

// Evaluate STOPPING_REELS -> EVALUATING
func (sm *StateMachine) Evaluate() bool {
	return sm.transition(StateEvaluating, nil, EventEvaluate)
}

// nextByOutcome 由结果决定的下一个状态
func nextByOutcome(state State, outcome *slot.SpinOutcome) (State, bool) {
	switch state {
	case StateEvaluating:
		if outcome != nil && outcome.FeatureTrigger != nil {
			return StateFeatureIntro, true
		}
		return StatePaying, true
	case StateFeatureIntro:
		return StateFeaturePlay, true
	case StateFeaturePlay:
		return StateFeatureOutro, true
	case StateFeatureOutro:
		if outcome != nil && outcome.TotalWin > 0 {
			return StatePaying, true
		}
		return StateIdle, true
	case StatePaying:
		return StateIdle, true
	}
	return "", false
}

// Advance 按结果推进一步，只在评估之后的状态有效
func (sm *StateMachine) Advance() (State, bool) {
	sm.mu.RLock()
	state, outcome := sm.state, sm.outcome
	sm.mu.RUnlock()

	next, ok := nextByOutcome(state, outcome)
	if !ok {
		sm.mu.Lock()
		sm.lastErr = apperrors.Newf(apperrors.ErrIllegalTransition, "状态 %s 不能自动推进", state)
		sm.mu.Unlock()
		sm.logger.Error("非法状态推进", zap.String("state", string(state)))
		return state, false
	}
	if !sm.transition(next, nil, EventAdvance) {
		return sm.State(), false
	}
	return next, true
}

// RunToIdle 从评估开始推进直到回到 IDLE
func (sm *StateMachine) RunToIdle() error {
	for i := 0; i < len(AllStates); i++ {
		if sm.State() == StateIdle {
			return nil
		}
		if _, ok := sm.Advance(); !ok {
			return sm.Err()
		}
	}
	if sm.State() != StateIdle {
		return apperrors.Newf(apperrors.ErrIllegalTransition, "未能回到 %s", StateIdle)
	}
	return nil
}

// Reset 无条件回到 IDLE 并清空上下文，用于错误恢复
func (sm *StateMachine) Reset() {
	sm.mu.Lock()
	from := sm.state
	sm.state = StateIdle
	sm.outcome = nil
	sm.history = nil
	sm.lastErr = nil
	if from == StateIdle {
		sm.mu.Unlock()
		return
	}
	// 重置不计入历史，但要让展示端回到待机
	sm.seq++
	n := Notification{
		SessionID:  sm.sessionID,
		State:      StateIdle,
		Transition: TransitionRecord{Seq: sm.seq, From: from, To: StateIdle, Event: EventReset, At: time.Now()},
	}
	listeners := make([]listenerEntry, len(sm.listeners))
	copy(listeners, sm.listeners)
	sm.mu.Unlock()

	sm.logger.Warn("状态机重置", zap.String("from", string(from)))
	sm.notify(listeners, n)
}

// State 当前状态
func (sm *StateMachine) State() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.state
}

// Outcome 当前结果
func (sm *StateMachine) Outcome() *slot.SpinOutcome {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.outcome
}

// Err 最近一次失败的转换错误
func (sm *StateMachine) Err() error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if sm.lastErr == nil {
		return nil
	}
	return sm.lastErr
}

// History 转换记录副本
func (sm *StateMachine) History() []TransitionRecord {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	out := make([]TransitionRecord, len(sm.history))
	copy(out, sm.history)
	return out
}

// Snapshot 上下文快照
func (sm *StateMachine) Snapshot() Snapshot {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	snap := Snapshot{
		SessionID:         sm.sessionID,
		State:             sm.state,
		Outcome:           sm.outcome,
		TransitionHistory: make([]TransitionRecord, len(sm.history)),
	}
	copy(snap.TransitionHistory, sm.history)
	if sm.lastErr != nil {
		snap.Error = sm.lastErr.Error()
	}
	return snap
}

// GetAllowedNextStates 当前状态的合法后继
func (sm *StateMachine) GetAllowedNextStates() []State {
	return GetAllowedNextStates(sm.State())
}

// CanAcceptInput 仅 IDLE 时可接受输入
func (sm *StateMachine) CanAcceptInput() bool {
	return sm.State() == StateIdle
}

// IsSpinning 是否处于旋转阶段
func (sm *StateMachine) IsSpinning() bool {
	switch sm.State() {
	case StateSpinRequested, StateSpinning, StateStoppingReels, StateEvaluating:
		return true
	}
	return false
}

// IsFeatureActive 是否处于特殊功能阶段
func (sm *StateMachine) IsFeatureActive() bool {
	switch sm.State() {
	case StateFeatureIntro, StateFeaturePlay, StateFeatureOutro:
		return true
	}
	return false
}
