package dxvm

import (
	"fmt"

	"github.com/dnxscript/dxvm/dxb"
	"github.com/dnxscript/dxvm/value"
)

// getLocal and setLocal resolve the flag-name overlay Design Notes §9
// describes: a local slot bound to a flag name by a flag initializer is
// backed by VM.flags (shared, named, global) rather than by the frame's
// own slots array. Routing the aliasing decision through the VM instead
// of giving LocalStore a back-pointer avoids the cyclic-ownership
// problem the spec calls out, at the cost of these two small functions
// taking the VM explicitly — the spec's own suggested alternative.
func (v *VM) getLocal(i int) value.Value {
	if name := v.locals.FlagNameAt(i); name != "" {
		if val, ok := v.flags[name]; ok {
			return val
		}
		return value.NewUndefined()
	}
	return v.locals.Get(i)
}

func (v *VM) setLocal(i int, val value.Value) {
	if name := v.locals.FlagNameAt(i); name != "" {
		v.flags[name] = val
		return
	}
	v.locals.Set(i, val)
}

// runSubProgram executes ip in place (sharing the current stack and
// locals) until the VM pauses, then clears the pause state so the
// caller's own control flow can continue. It is used by flag
// initializers (§4.4 step 4) and by the definition interpolation
// reentry (§4.7) — both contracts the spec requires to "run to pause".
// Only ip and the pause/scene-complete flags are restored: an exit that
// ends the sub-program leaves the local store replaced by an empty one.
func (v *VM) runSubProgram(ip int32) error {
	savedIP := v.ip
	v.ip = ip
	for !v.paused {
		if err := v.step(); err != nil {
			v.ip = savedIP
			return err
		}
	}
	v.paused = false
	v.sceneComplete = false
	v.ip = savedIP
	return nil
}

// runFlagInitializers executes table's (value-init, name-init) pairs in
// declaration order (§4.4 step 4, §9 Open Question 4's resolved loop
// bound: for i := 1; i+1 < len(indices); i += 2, safe because Decode
// enforces an odd-length InstructionIndices).
func (v *VM) runFlagInitializers(table dxb.SymbolTable) error {
	flagIndex := 0
	// The exit ending each sub-program replaces v.locals; keep the
	// frame's own store so every pair's binding survives into the body.
	locals := v.locals
	var rangeErr error
	table.FlagInitPairs(func(valueIP, nameIP int32) bool {
		if err := v.runSubProgram(valueIP); err != nil {
			rangeErr = err
			return false
		}
		val := v.pop()

		if err := v.runSubProgram(nameIP); err != nil {
			rangeErr = err
			return false
		}
		nameVal := v.pop()
		v.locals = locals

		if name, ok := nameVal.Str(); ok {
			if _, exists := v.flags[name]; !exists {
				v.flags[name] = val
			}
			v.locals.BindFlag(flagIndex, name)
			flagIndex++
		}
		locals = v.locals
		return true
	})
	return rangeErr
}

// call implements §4.4's call id, argc.
func (v *VM) call(funcIndex int32, argc int32) error {
	if funcIndex < 0 || int(funcIndex) >= len(v.binary.Functions) {
		return notFound("function", fmt.Sprintf("#%d", funcIndex))
	}
	if len(v.callStack) >= v.maxCallDepth {
		return stateErr("call", "max call depth exceeded")
	}
	fn := v.binary.Functions[funcIndex]

	n := int(argc)
	if n > len(v.stack) {
		n = len(v.stack)
	}
	// §4.4 step 1: "first popped is a[0]".
	args := make([]value.Value, n)
	for i := 0; i < n; i++ {
		args[i] = v.pop()
	}

	frame := CallFrame{
		ReturnIP:    v.ip,
		SavedStack:  v.stack,
		SavedLocals: v.locals,
	}
	// §4.4 step 3 resets the call stack to empty for the duration of the
	// flag-initializer pass — an exit inside an initializer sub-program
	// must see an empty call stack (so it pauses the scene rather than
	// popping a frame), not the frame just set aside here. temp holds
	// what call_stack becomes again in step 5, once initializers finish.
	temp := append(v.callStack, frame)
	v.callStack = nil
	v.stack = make([]value.Value, 0, defaultOperandStackSize)
	v.locals = newLocalStore()

	if err := v.runFlagInitializers(fn); err != nil {
		v.callStack = temp
		return err
	}

	v.callStack = temp
	v.ip = fn.Entry()
	for i, a := range args {
		v.setLocal(i, a)
	}
	return nil
}

// callExternal implements §4.3's call_external i, argc.
func (v *VM) callExternal(nameIndex int32, argc int32) error {
	if nameIndex < 0 || int(nameIndex) >= len(v.binary.StringTable) {
		return notFound("external function name", fmt.Sprintf("#%d", nameIndex))
	}
	name := v.binary.StringTable[nameIndex]

	n := int(argc)
	if n > len(v.stack) {
		n = len(v.stack)
	}
	args := make([]value.Value, n)
	for i := 0; i < n; i++ {
		args[i] = v.pop()
	}

	v.debugf("call_external", "name", name, "argc", n)
	result, err := v.handler.Invoke(name, args)
	if err != nil {
		return fmt.Errorf("dxvm: external function %q: %w", name, err)
	}
	v.push(result)
	return nil
}

// ret implements §4.3's ret.
func (v *VM) ret() error {
	retVal := v.pop()
	n := len(v.callStack)
	if n == 0 {
		return stateErr("ret", "call stack is empty")
	}
	frame := v.callStack[n-1]
	v.callStack = v.callStack[:n-1]
	v.ip = frame.ReturnIP
	v.stack = frame.SavedStack
	v.locals = frame.SavedLocals
	v.push(retVal)
	return nil
}

// exit implements §4.3's exit.
func (v *VM) exit() {
	v.locals = newLocalStore()
	n := len(v.callStack)
	if n == 0 {
		v.ip = -1
		v.paused = true
		v.sceneComplete = true
		return
	}
	frame := v.callStack[n-1]
	v.callStack = v.callStack[:n-1]
	v.ip = frame.ReturnIP
	v.stack = frame.SavedStack
	v.locals = frame.SavedLocals
	v.push(value.NewUndefined())
}
