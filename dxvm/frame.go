package dxvm

import "github.com/dnxscript/dxvm/value"

// CallFrame is the saved (ip, stack, locals) triple §3 and §4.4 describe,
// pushed by call and popped by ret/exit.
type CallFrame struct {
	ReturnIP    int32
	SavedStack  []value.Value
	SavedLocals LocalStore
}
