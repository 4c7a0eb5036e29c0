package dxvm

// OpCode is a single DXB instruction byte. Values are fixed by the wire
// format (§6) — an external compiler produces them, so they cannot be
// renumbered.
type OpCode byte

const (
	OpNop      OpCode = 0x00
	OpFreeLocal OpCode = 0x0A
	OpSave     OpCode = 0x0B
	OpLoad     OpCode = 0x0C

	OpPushUndefined         OpCode = 0x0F
	OpPushInt               OpCode = 0x10
	OpPushDouble            OpCode = 0x11
	OpPushString            OpCode = 0x12
	OpPushInterpString      OpCode = 0x13
	OpPushBinaryString      OpCode = 0x14
	OpPushBinaryInterpString OpCode = 0x15
	OpMakeArray             OpCode = 0x16
	OpPushArrayIndex        OpCode = 0x17
	OpSetArrayIndex         OpCode = 0x18
	OpSetVarGlobal          OpCode = 0x19
	OpSetVarLocal           OpCode = 0x1A
	OpPushVarGlobal         OpCode = 0x1B
	OpPushVarLocal          OpCode = 0x1C

	OpPop  OpCode = 0x1D
	OpDup  OpCode = 0x1E
	OpDup2 OpCode = 0x1F

	OpAdd    OpCode = 0x20
	OpSub    OpCode = 0x21
	OpMul    OpCode = 0x22
	OpDiv    OpCode = 0x23
	OpMod    OpCode = 0x24
	OpNeg    OpCode = 0x25
	OpInvert OpCode = 0x26

	OpBitLShift OpCode = 0x27
	OpBitRShift OpCode = 0x28
	OpBitAnd    OpCode = 0x29
	OpBitOr     OpCode = 0x2A
	OpBitXor    OpCode = 0x2B
	OpBitNeg    OpCode = 0x2C
	OpPower     OpCode = 0x2D

	OpCmpEq  OpCode = 0x30
	OpCmpGt  OpCode = 0x31
	OpCmpLt  OpCode = 0x32
	OpCmpGte OpCode = 0x33
	OpCmpLte OpCode = 0x34
	OpCmpNeq OpCode = 0x35

	OpJump       OpCode = 0x40
	OpJumpTruthy OpCode = 0x41
	OpJumpFalsey OpCode = 0x42
	OpExit       OpCode = 0x43
	OpRet        OpCode = 0x44
	OpCall       OpCode = 0x45
	OpCallExternal OpCode = 0x46

	OpChoiceBegin      OpCode = 0x47
	OpChoiceAdd        OpCode = 0x48
	OpChoiceAddTruthy  OpCode = 0x49
	OpChoiceSelect     OpCode = 0x4A
	OpChooseAdd        OpCode = 0x4B
	OpChooseAddTruthy  OpCode = 0x4C
	OpChooseSelect     OpCode = 0x4D
	OpTextRun          OpCode = 0x4E
)

// operandShape classifies how many bytes of operand follow an opcode,
// mirroring go-flux's bytecode/opcode.go table-driven decode approach
// (a lookup table survives opcode-set growth better than a giant switch
// duplicated between the decoder and a disassembler).
type operandShape int

const (
	shapeNone operandShape = iota
	shapeI32
	shapeF64
	shapeI32I32
)

var shapes = map[OpCode]operandShape{
	OpNop: shapeNone, OpSave: shapeNone, OpLoad: shapeNone,
	OpPushUndefined: shapeNone,
	OpPop: shapeNone, OpDup: shapeNone, OpDup2: shapeNone,
	OpPushArrayIndex: shapeNone, OpSetArrayIndex: shapeNone,
	OpExit: shapeNone, OpRet: shapeNone,
	OpChoiceBegin: shapeNone, OpChoiceSelect: shapeNone,
	OpChooseSelect: shapeNone, OpTextRun: shapeNone,
	OpAdd: shapeNone, OpSub: shapeNone, OpMul: shapeNone, OpDiv: shapeNone, OpMod: shapeNone,
	OpNeg: shapeNone, OpInvert: shapeNone,
	OpBitLShift: shapeNone, OpBitRShift: shapeNone, OpBitAnd: shapeNone, OpBitOr: shapeNone,
	OpBitXor: shapeNone, OpBitNeg: shapeNone, OpPower: shapeNone,
	OpCmpEq: shapeNone, OpCmpGt: shapeNone, OpCmpLt: shapeNone,
	OpCmpGte: shapeNone, OpCmpLte: shapeNone, OpCmpNeq: shapeNone,

	OpFreeLocal: shapeI32, OpPushInt: shapeI32, OpPushString: shapeI32,
	OpPushBinaryString: shapeI32, OpMakeArray: shapeI32,
	OpSetVarGlobal: shapeI32, OpSetVarLocal: shapeI32,
	OpPushVarGlobal: shapeI32, OpPushVarLocal: shapeI32,
	OpJump: shapeI32, OpJumpTruthy: shapeI32, OpJumpFalsey: shapeI32,
	OpChoiceAdd: shapeI32, OpChoiceAddTruthy: shapeI32,
	OpChooseAdd: shapeI32, OpChooseAddTruthy: shapeI32,

	OpPushDouble: shapeF64,

	OpPushInterpString: shapeI32I32, OpPushBinaryInterpString: shapeI32I32,
	OpCall: shapeI32I32, OpCallExternal: shapeI32I32,
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return "unknown"
}

var opNames = map[OpCode]string{
	OpNop: "nop", OpFreeLocal: "free_local", OpSave: "save", OpLoad: "load",
	OpPushUndefined: "push_undefined", OpPushInt: "push_int", OpPushDouble: "push_double",
	OpPushString: "push_string", OpPushInterpString: "push_interpolated_string",
	OpPushBinaryString: "push_binary_string", OpPushBinaryInterpString: "push_binary_interpolated_string",
	OpMakeArray: "make_array", OpPushArrayIndex: "push_array_index", OpSetArrayIndex: "set_array_index",
	OpSetVarGlobal: "set_var_global", OpSetVarLocal: "set_var_local",
	OpPushVarGlobal: "push_var_global", OpPushVarLocal: "push_var_local",
	OpPop: "pop", OpDup: "dup", OpDup2: "dup2",
	OpAdd: "add", OpSub: "sub", OpMul: "mul", OpDiv: "div", OpMod: "mod",
	OpNeg: "neg", OpInvert: "invert",
	OpBitLShift: "bit_ls", OpBitRShift: "bit_rs", OpBitAnd: "bit_and", OpBitOr: "bit_or",
	OpBitXor: "bit_xor", OpBitNeg: "bit_neg", OpPower: "power",
	OpCmpEq: "cmp_eq", OpCmpGt: "cmp_gt", OpCmpLt: "cmp_lt",
	OpCmpGte: "cmp_gte", OpCmpLte: "cmp_lte", OpCmpNeq: "cmp_neq",
	OpJump: "jump", OpJumpTruthy: "jump_truthy", OpJumpFalsey: "jump_falsey",
	OpExit: "exit", OpRet: "ret", OpCall: "call", OpCallExternal: "call_external",
	OpChoiceBegin: "choice_begin", OpChoiceAdd: "choice_add", OpChoiceAddTruthy: "choice_add_truthy",
	OpChoiceSelect: "choice_select", OpChooseAdd: "choose_add", OpChooseAddTruthy: "choose_add_truthy",
	OpChooseSelect: "choose_select", OpTextRun: "text_run",
}
