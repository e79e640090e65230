package resolver

// State 单篇论文摘要解析的状态
type State int

const (
	NeedsAbstract State = iota
	TryNative
	TryFallback
	Resolved
	Exhausted
)

func (s State) String() string {
	switch s {
	case NeedsAbstract:
		return "needs_abstract"
	case TryNative:
		return "try_native"
	case TryFallback:
		return "try_fallback"
	case Resolved:
		return "resolved"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

func (s State) Terminal() bool { return s == Resolved || s == Exhausted }

// Event 驱动状态转移的事件
type Event int

const (
	EvHasNative   Event = iota // 该来源有 native 元数据 API
	EvNoNative                 // 没有 native API
	EvFound                    // 拿到了摘要
	EvMiss                     // native 失败或没有摘要
	EvNoMatch                  // 一次搜索没有匹配，预算未耗尽
	EvTransient                // 可重试错误，预算未耗尽
	EvBudgetSpent              // 兜底预算耗尽
	EvFatal                    // 不可重试错误或整篇超时
)

// Transition 纯函数：当前状态 + 事件 -> 下一个状态。未定义的组合保持原状态
func Transition(s State, ev Event) State {
	switch s {
	case NeedsAbstract:
		switch ev {
		case EvHasNative:
			return TryNative
		case EvNoNative:
			return TryFallback
		case EvFatal:
			return Exhausted
		}
	case TryNative:
		switch ev {
		case EvFound:
			return Resolved
		case EvMiss:
			return TryFallback
		case EvFatal:
			return Exhausted
		}
	case TryFallback:
		switch ev {
		case EvFound:
			return Resolved
		case EvNoMatch, EvTransient:
			return TryFallback
		case EvBudgetSpent, EvFatal:
			return Exhausted
		}
	}
	return s
}
