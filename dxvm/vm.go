package dxvm

import (
	"context"

	"github.com/dnxscript/dxvm/configs"
	"github.com/dnxscript/dxvm/dxb"
	"github.com/dnxscript/dxvm/logs"
	"github.com/dnxscript/dxvm/value"
)

const (
	defaultOperandStackSize = 64
	defaultMaxCallDepth     = 256
)

// ChanceFunc decides whether a single choice_add/choice_add_truthy
// option survives its chance roll (§4.5). The default is
// DefaultChanceFunc; WithChanceFunc overrides it.
type ChanceFunc func(chance float64) bool

// WeightedChanceFunc picks an index among choose_select's accumulated
// weights (§4.5). The default is DefaultWeightedChanceFunc, which
// implements the spec's literal (intentionally biased, see §9 Open
// Question 3) formula; WithWeightedChanceFunc overrides it.
type WeightedChanceFunc func(weights []float64) int

type choiceOption struct {
	Address int32
	Text    string
}

type chooseOption struct {
	Weight  float64
	Pointer int32
}

// VM is the stack-based Diannex interpreter. It is constructed once
// over an immutable *dxb.Binary and a host FunctionHandler, then driven
// scene by scene via RunScene/Update/Resume/ChooseChoice. It is not
// internally synchronized — §5 forbids reentrant calls, so none of its
// methods take a lock, matching taivm.VM's single-threaded design.
type VM struct {
	binary  *dxb.Binary
	handler FunctionHandler

	chanceFunc         ChanceFunc
	weightedChanceFunc WeightedChanceFunc
	strictMode         bool
	maxCallDepth       int

	logger  logs.Logger
	newSpan logs.NewSpan
	ctx     context.Context
	span    logs.Span

	ip           int32
	stack        []value.Value
	saveRegister value.Value
	locals       LocalStore
	callStack    []CallFrame

	globals map[string]value.Value
	flags   map[string]value.Value

	choices       []choiceOption
	chooseOptions []chooseOption

	definitionsCache map[string]string
	staticCache      map[string]bool // symbol -> "safe to resolve" verdict, see definitions.go

	inChoice      bool
	selectChoice  bool
	runningText   bool
	paused        bool
	sceneComplete bool

	currentScene string
	hasScene     bool
	currentText  string
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithChanceFunc overrides choice_add's chance_callback (§4.5).
func WithChanceFunc(f ChanceFunc) Option {
	return func(v *VM) { v.chanceFunc = f }
}

// WithWeightedChanceFunc overrides choose_select's weighted_chance_callback
// (§4.5).
func WithWeightedChanceFunc(f WeightedChanceFunc) Option {
	return func(v *VM) { v.weightedChanceFunc = f }
}

// WithStrictMode turns opcode type-mismatches into TypeMismatchError
// from Update instead of the spec's default silent no-op (§9).
func WithStrictMode(strict bool) Option {
	return func(v *VM) { v.strictMode = strict }
}

// WithMaxCallDepth caps the call stack; exceeding it raises a StateError
// from call rather than growing without bound.
func WithMaxCallDepth(n int) Option {
	return func(v *VM) {
		if n > 0 {
			v.maxCallDepth = n
		}
	}
}

// WithLogger attaches structured execution tracing. When set, the VM
// logs scene entry, text_run pauses, external-function dispatch, and
// definition-resolution failures at slog.LevelDebug, each RunScene
// tagged with one span id via logs.NewSpanFunc (see DESIGN.md's `logs`
// section). Scene completion, choice pauses and state errors are not
// logged.
func WithLogger(logger logs.Logger) Option {
	return func(v *VM) {
		v.logger = logger
		v.newSpan = logs.NewSpanFunc(logger)
	}
}

// WithOptions applies a configs.VMOptions loaded from an optional CUE
// tuning file (configs.LoadVMOptions) — additive, non-mandatory tuning
// per SPEC_FULL.md §4.8/ambient configuration.
func WithOptions(o configs.VMOptions) Option {
	return func(v *VM) {
		if o.StrictMode {
			v.strictMode = true
		}
		if o.OperandStackSize > 0 {
			v.stack = make([]value.Value, 0, o.OperandStackSize)
		}
		if o.MaxCallDepth > 0 {
			v.maxCallDepth = o.MaxCallDepth
		}
	}
}

// New constructs a VM over binary, dispatching call_external through
// handler. No scene runs until RunScene is called.
func New(binary *dxb.Binary, handler FunctionHandler, opts ...Option) *VM {
	v := &VM{
		binary:           binary,
		handler:          handler,
		chanceFunc:       DefaultChanceFunc,
		weightedChanceFunc: DefaultWeightedChanceFunc,
		maxCallDepth:     defaultMaxCallDepth,
		ip:               -1,
		stack:            make([]value.Value, 0, defaultOperandStackSize),
		locals:           newLocalStore(),
		globals:          make(map[string]value.Value),
		flags:            make(map[string]value.Value),
		definitionsCache: make(map[string]string),
		staticCache:      make(map[string]bool),
		ctx:              context.Background(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.resolveDefinitions()
	return v
}

func (v *VM) push(val value.Value) {
	v.stack = append(v.stack, val)
}

func (v *VM) pop() value.Value {
	n := len(v.stack)
	if n == 0 {
		return value.NewUndefined()
	}
	top := v.stack[n-1]
	v.stack = v.stack[:n-1]
	return top
}

func (v *VM) depth() int {
	return len(v.stack)
}

func (v *VM) debugf(msg string, args ...any) {
	if v.logger == nil {
		return
	}
	v.logger.DebugContext(v.ctx, msg, args...)
}
