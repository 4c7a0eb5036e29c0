package dxvm

import (
	"fmt"

	"github.com/dnxscript/dxvm/value"
)

// Update implements §4.8's update(): a no-op if paused, otherwise
// decode and execute exactly one instruction. The host is expected to
// call this repeatedly (typically once per frame) until paused becomes
// true again.
func (v *VM) Update() error {
	if v.paused {
		return nil
	}
	return v.step()
}

// step decodes and executes the instruction at v.ip. It is shared by
// Update, runSubProgram (flag initializers, definition interpolation),
// and is the sole place instruction semantics live — grounded on
// taivm.VM.Run's single fetch-decode-execute loop, split into its own
// method here so flag-initializer and definition reentry can drive it
// without going through the host-facing pause contract.
func (v *VM) step() error {
	d, ok := v.fetch(v.ip)
	if !ok {
		return fmt.Errorf("dxvm: instruction pointer %d out of range", v.ip)
	}
	v.ip = d.NextIP

	switch d.Op {
	case OpNop:
		// no-op
	case OpFreeLocal:
		v.locals.Free(int(d.OperandA))

	case OpSave:
		if n := len(v.stack); n > 0 {
			v.saveRegister = v.stack[n-1]
		}
	case OpLoad:
		v.push(v.saveRegister)

	case OpPushUndefined:
		v.push(value.NewUndefined())
	case OpPushInt:
		v.push(value.NewInt(d.OperandA))
	case OpPushDouble:
		v.push(value.NewDouble(d.OperandF))
	case OpPushString:
		v.push(value.NewString(v.tableString(v.binary.TranslationTable, d.OperandA)))
	case OpPushBinaryString:
		v.push(value.NewString(v.tableString(v.binary.StringTable, d.OperandA)))
	case OpPushInterpString:
		v.pushInterpolated(v.binary.TranslationTable, d.OperandA, d.OperandB)
	case OpPushBinaryInterpString:
		v.pushInterpolated(v.binary.StringTable, d.OperandA, d.OperandB)

	case OpMakeArray:
		n := int(d.OperandA)
		if n > len(v.stack) {
			n = len(v.stack)
		}
		elems := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			elems[i] = v.pop()
		}
		v.push(value.NewArray(elems))

	case OpPushArrayIndex:
		idxVal := v.pop()
		arrVal := v.pop()
		idx, okIdx := idxVal.Int()
		arr, okArr := arrVal.Array()
		if !okIdx || !okArr || idx < 0 || int(idx) >= len(arr) {
			return v.typeMismatch("push_array_index", "array and in-range int", "mismatched types or out-of-range index")
		}
		v.push(arr[idx])

	case OpSetArrayIndex:
		val := v.pop()
		idxVal := v.pop()
		arrVal := v.pop()
		idx, okIdx := idxVal.Int()
		arr, okArr := arrVal.Array()
		if !okIdx || !okArr || idx < 0 || int(idx) >= len(arr) {
			return v.typeMismatch("set_array_index", "array and in-range int", "mismatched types or out-of-range index")
		}
		arr[idx] = val
		v.push(value.NewArray(arr))

	case OpSetVarGlobal:
		name := v.tableString(v.binary.StringTable, d.OperandA)
		v.globals[name] = v.pop()
	case OpPushVarGlobal:
		name := v.tableString(v.binary.StringTable, d.OperandA)
		v.push(v.globals[name])
	case OpSetVarLocal:
		v.setLocal(int(d.OperandA), v.pop())
	case OpPushVarLocal:
		v.push(v.getLocal(int(d.OperandA)))

	case OpPop:
		v.pop()
	case OpDup:
		if n := len(v.stack); n > 0 {
			v.push(v.stack[n-1])
		}
	case OpDup2:
		if n := len(v.stack); n >= 2 {
			v.push(v.stack[n-2])
			v.push(v.stack[n-1])
		}

	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPower:
		return v.execArith(d.Op)
	case OpNeg:
		return v.execNeg()
	case OpInvert:
		v.push(value.Invert(v.pop()))

	case OpBitLShift, OpBitRShift, OpBitAnd, OpBitOr, OpBitXor:
		return v.execBitwise(d.Op)
	case OpBitNeg:
		return v.execBitwise(OpBitNeg)

	case OpCmpEq, OpCmpGt, OpCmpLt, OpCmpGte, OpCmpLte, OpCmpNeq:
		return v.execCompare(d.Op)

	case OpJump:
		v.ip = d.NextIP + d.OperandA
	case OpJumpTruthy:
		if v.pop().IsTruthy() {
			v.ip = d.NextIP + d.OperandA
		}
	case OpJumpFalsey:
		if !v.pop().IsTruthy() {
			v.ip = d.NextIP + d.OperandA
		}

	case OpExit:
		v.exit()
	case OpRet:
		return v.ret()
	case OpCall:
		return v.call(d.OperandA, d.OperandB)
	case OpCallExternal:
		return v.callExternal(d.OperandA, d.OperandB)

	case OpChoiceBegin:
		return v.choiceBegin()
	case OpChoiceAdd:
		return v.choiceAdd(d.OperandA, d.NextIP)
	case OpChoiceAddTruthy:
		return v.choiceAddTruthy(d.OperandA, d.NextIP)
	case OpChoiceSelect:
		return v.choiceSelect()
	case OpChooseAdd:
		v.chooseAdd(d.OperandA, d.NextIP)
	case OpChooseAddTruthy:
		v.chooseAddTruthy(d.OperandA, d.NextIP)
	case OpChooseSelect:
		return v.chooseSelect()

	case OpTextRun:
		val := v.pop()
		if text, ok := val.Str(); ok {
			v.currentText = text
			v.runningText = true
			v.paused = true
			v.debugf("text_run", "text", text)
		}

	default:
		return fmt.Errorf("dxvm: unknown opcode 0x%02x at ip %d", byte(d.Op), v.ip)
	}
	return nil
}

func (v *VM) tableString(table []string, idx int32) string {
	if idx < 0 || int(idx) >= len(table) {
		return ""
	}
	return table[idx]
}

func (v *VM) pushInterpolated(table []string, strIdx, k int32) {
	raw := v.tableString(table, strIdx)
	n := int(k)
	if n > len(v.stack) {
		n = len(v.stack)
	}
	values := make([]value.Value, n)
	for i := 0; i < n; i++ {
		values[i] = v.pop()
	}
	v.push(value.NewString(interpolate(raw, values)))
}

func (v *VM) typeMismatch(op, want, got string) error {
	if v.strictMode {
		return &TypeMismatchError{Op: op, Want: want, Got: got}
	}
	return nil
}

// execArith implements the add/sub/mul/div/mod/power family. §4.2 is
// unambiguous that these no-op unless both operands are numeric (Int or
// Double) — a Str operand, including add on two Str values, is not
// special-cased into concatenation.
func (v *VM) execArith(op OpCode) error {
	b := v.pop()
	a := v.pop()
	var arithOp value.ArithOp
	switch op {
	case OpAdd:
		arithOp = value.OpAdd
	case OpSub:
		arithOp = value.OpSub
	case OpMul:
		arithOp = value.OpMul
	case OpDiv:
		arithOp = value.OpDiv
	case OpMod:
		arithOp = value.OpMod
	case OpPower:
		arithOp = value.OpPower
	}
	result, ok := value.BinaryArith(arithOp, a, b)
	if !ok {
		return v.typeMismatch(op.String(), "two numeric operands", fmt.Sprintf("%s and %s", a.Kind(), b.Kind()))
	}
	v.push(result)
	return nil
}

func (v *VM) execNeg() error {
	a := v.pop()
	result, ok := value.Neg(a)
	if !ok {
		return v.typeMismatch("neg", "numeric operand", a.Kind().String())
	}
	v.push(result)
	return nil
}

func (v *VM) execBitwise(op OpCode) error {
	var bitOp value.BitOp
	switch op {
	case OpBitLShift:
		bitOp = value.BitLShift
	case OpBitRShift:
		bitOp = value.BitRShift
	case OpBitAnd:
		bitOp = value.BitAnd
	case OpBitOr:
		bitOp = value.BitOr
	case OpBitXor:
		bitOp = value.BitXor
	case OpBitNeg:
		bitOp = value.BitNot
	}
	if op == OpBitNeg {
		a := v.pop()
		result, ok := value.Bitwise(bitOp, a, value.Value{})
		if !ok {
			return v.typeMismatch("bit_neg", "int operand", a.Kind().String())
		}
		v.push(result)
		return nil
	}
	b := v.pop()
	a := v.pop()
	result, ok := value.Bitwise(bitOp, a, b)
	if !ok {
		return v.typeMismatch(op.String(), "two int operands", fmt.Sprintf("%s and %s", a.Kind(), b.Kind()))
	}
	v.push(result)
	return nil
}

func (v *VM) execCompare(op OpCode) error {
	var cmpOp value.CompareOp
	switch op {
	case OpCmpEq:
		cmpOp = value.CmpEq
	case OpCmpNeq:
		cmpOp = value.CmpNeq
	case OpCmpGt:
		cmpOp = value.CmpGt
	case OpCmpLt:
		cmpOp = value.CmpLt
	case OpCmpGte:
		cmpOp = value.CmpGte
	case OpCmpLte:
		cmpOp = value.CmpLte
	}
	b := v.pop()
	a := v.pop()
	result, ok := value.Compare(cmpOp, a, b)
	if !ok {
		return v.typeMismatch(op.String(), "two comparable operands", fmt.Sprintf("%s and %s", a.Kind(), b.Kind()))
	}
	v.push(result)
	return nil
}
