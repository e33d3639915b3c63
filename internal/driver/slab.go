package driver

// state is the lifecycle of one in-flight operation, keyed in the slab by
// the same uint64 used as the SQE's user_data.
type state int

const (
	// stateSubmitted: the SQE has been handed to the kernel, no CQE yet.
	stateSubmitted state = iota
	// stateCompleted: a single-shot terminal CQE has arrived and is sitting
	// in entry.ch; an entry never stays in this state once read. Multishot
	// entries never enter it: their slot is dropped when the terminal CQE
	// is delivered.
	stateCompleted
	// stateCompletionList: a multishot operation has delivered at least one
	// non-terminal CQE; more are still expected.
	stateCompletionList
	// stateIgnored: the handle was dropped or cancelled before the kernel's
	// terminal CQE arrived. Further CQEs for this user_data are routed to
	// the payload's ignore hook (buffer recycle, fd close) instead of any
	// waiting goroutine, because there isn't one anymore.
	stateIgnored
)

// multishotBuffer bounds how many un-consumed items a multishot stream can
// have queued before the reaper would block delivering another. It equals
// the default submission queue depth; a consumer lagging by more than that
// stalls the single reaper goroutine.
const multishotBuffer = 256

// opEntry is one slab slot: the channel(s) a waiting goroutine reads from,
// plus enough bookkeeping to route CQEs that arrive after nobody is
// listening anymore.
type opEntry struct {
	state state

	ch    chan Result // single-shot terminal result, buffered(1)
	multi chan Result // multishot stream, buffered(multishotBuffer); nil for single-shot ops

	ignoreHook func(Result)
}

func newSingleShotEntry() *opEntry {
	return &opEntry{state: stateSubmitted, ch: make(chan Result, 1)}
}

func newMultiShotEntry() *opEntry {
	return &opEntry{state: stateSubmitted, multi: make(chan Result, multishotBuffer)}
}
