package dxvm

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/dnxscript/dxvm/dxb"
	"github.com/dnxscript/dxvm/value"
)

// asm hand-assembles a bytecode blob the way taivm/vm_test.go hand-builds
// *Function values directly rather than round-tripping through a real
// DXB file — there is no compiler in this corpus to produce one.
type asm struct {
	buf []byte
}

func (a *asm) pos() int32 { return int32(len(a.buf)) }

func (a *asm) op(code OpCode) { a.buf = append(a.buf, byte(code)) }

func (a *asm) i32(n int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(n))
	a.buf = append(a.buf, b[:]...)
}

func (a *asm) f64(f float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(f))
	a.buf = append(a.buf, b[:]...)
}

func (a *asm) pushInt(n int32)          { a.op(OpPushInt); a.i32(n) }
func (a *asm) pushDouble(f float64)     { a.op(OpPushDouble); a.f64(f) }
func (a *asm) pushString(i int32)       { a.op(OpPushString); a.i32(i) }
func (a *asm) pushBinaryString(i int32) { a.op(OpPushBinaryString); a.i32(i) }
func (a *asm) pushBinaryInterp(i, k int32) {
	a.op(OpPushBinaryInterpString)
	a.i32(i)
	a.i32(k)
}
func (a *asm) pop()            { a.op(OpPop) }
func (a *asm) dup()            { a.op(OpDup) }
func (a *asm) textRun()        { a.op(OpTextRun) }
func (a *asm) exit()           { a.op(OpExit) }
func (a *asm) ret()            { a.op(OpRet) }
func (a *asm) choiceBegin()    { a.op(OpChoiceBegin) }
func (a *asm) choiceSelect()   { a.op(OpChoiceSelect) }
func (a *asm) chooseSelect()   { a.op(OpChooseSelect) }
func (a *asm) callExternal(nameIdx, argc int32) {
	a.op(OpCallExternal)
	a.i32(nameIdx)
	a.i32(argc)
}
func (a *asm) call(funcIdx, argc int32) {
	a.op(OpCall)
	a.i32(funcIdx)
	a.i32(argc)
}

// choiceAddPatch/chooseAddPatch write a placeholder offset and return the
// byte position to patch once the jump target is known.
func (a *asm) choiceAddPatch() int {
	a.op(OpChoiceAdd)
	p := len(a.buf)
	a.i32(0)
	return p
}

func (a *asm) chooseAddPatch() int {
	a.op(OpChooseAdd)
	p := len(a.buf)
	a.i32(0)
	return p
}

// patchJump fills in the i32 at p (the start of the 4-byte operand) with
// the relative offset from the end of that operand to target.
func (a *asm) patchJump(p int, target int32) {
	off := target - int32(p+4)
	binary.LittleEndian.PutUint32(a.buf[p:p+4], uint32(off))
}

type stubHandler struct {
	fns map[string]func(args []value.Value) (value.Value, error)
}

func (s *stubHandler) Invoke(name string, args []value.Value) (value.Value, error) {
	fn, ok := s.fns[name]
	if !ok {
		return value.Value{}, notFound("external function", name)
	}
	return fn(args)
}

func binaryWithScene(code []byte, strings, translations []string) *dxb.Binary {
	return &dxb.Binary{
		StringTable:      strings,
		TranslationTable: translations,
		Instructions:     code,
		Scenes:           []dxb.SymbolTable{{Symbol: 0, InstructionIndices: []int32{0}}},
	}
}

func TestScenario1SimpleText(t *testing.T) {
	var a asm
	a.pushString(0)
	a.textRun()
	a.exit()

	bin := binaryWithScene(a.buf, []string{"intro"}, []string{"Welcome to the test introduction scene!"})
	vm := New(bin, &stubHandler{})

	if err := vm.RunScene("intro"); err != nil {
		t.Fatal(err)
	}
	for !vm.Paused() {
		if err := vm.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if !vm.RunningText() {
		t.Fatal("expected running_text")
	}
	if vm.CurrentText() != "Welcome to the test introduction scene!" {
		t.Fatalf("got %q", vm.CurrentText())
	}
}

func TestScenario2SequentialText(t *testing.T) {
	var a asm
	a.pushString(0)
	a.textRun()
	a.pushString(1)
	a.textRun()
	a.pushString(2)
	a.textRun()
	a.exit()

	bin := binaryWithScene(a.buf, []string{"intro"}, []string{"Line 1", "Line 2", "Line 3"})
	vm := New(bin, &stubHandler{})

	if err := vm.RunScene("intro"); err != nil {
		t.Fatal(err)
	}
	want := []string{"Line 1", "Line 2", "Line 3"}
	for _, line := range want {
		for !vm.Paused() {
			if err := vm.Update(); err != nil {
				t.Fatal(err)
			}
		}
		if vm.CurrentText() != line {
			t.Fatalf("got %q, want %q", vm.CurrentText(), line)
		}
		vm.Resume()
	}
}

func TestScenario3Choice(t *testing.T) {
	var a asm
	a.pushString(0) // "Line 1"
	a.textRun()
	a.choiceBegin()
	a.pushString(1) // "Yes"
	a.pushDouble(1.0)
	patchA := a.choiceAddPatch()
	a.pushString(2) // "No"
	a.pushDouble(1.0)
	patchB := a.choiceAddPatch()
	a.choiceSelect()
	labelA := a.pos()
	a.pushString(1)
	a.textRun()
	a.exit()
	labelB := a.pos()
	a.pushString(2)
	a.textRun()
	a.exit()
	a.patchJump(patchA, labelA)
	a.patchJump(patchB, labelB)

	bin := binaryWithScene(a.buf, []string{"scene"}, []string{"Line 1", "Yes", "No"})
	vm := New(bin, &stubHandler{}, WithChanceFunc(func(float64) bool { return true }))

	if err := vm.RunScene("scene"); err != nil {
		t.Fatal(err)
	}
	for !vm.Paused() {
		if err := vm.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if vm.CurrentText() != "Line 1" {
		t.Fatalf("got %q", vm.CurrentText())
	}
	vm.Resume()

	for !vm.Paused() {
		if err := vm.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if !vm.SelectChoice() {
		t.Fatal("expected select_choice")
	}
	choices := vm.Choices()
	if len(choices) != 2 || choices[0] != "Yes" || choices[1] != "No" {
		t.Fatalf("got %v", choices)
	}

	if err := vm.ChooseChoice(1); err != nil {
		t.Fatal(err)
	}
	for !vm.Paused() {
		if err := vm.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if vm.CurrentText() != "No" {
		t.Fatalf("got %q", vm.CurrentText())
	}
}

func TestScenario4WeightedChoose(t *testing.T) {
	// choose_add pops weight off the stack, so push weight first.
	var a asm
	a.pushDouble(1.0)
	p1 := a.chooseAddPatch()
	a.pushDouble(1.0)
	p2 := a.chooseAddPatch()
	a.chooseSelect()
	a.exit() // unreachable if both options jump elsewhere; kept for safety
	labelFirst := a.pos()
	a.pushString(0)
	a.textRun()
	a.exit()
	labelSecond := a.pos()
	a.pushString(1)
	a.textRun()
	a.exit()
	a.patchJump(p1, labelFirst)
	a.patchJump(p2, labelSecond)

	bin := binaryWithScene(a.buf, []string{"scene"}, []string{"First", "Second"})

	run := func(selector WeightedChanceFunc) string {
		vm := New(bin, &stubHandler{}, WithWeightedChanceFunc(selector))
		if err := vm.RunScene("scene"); err != nil {
			t.Fatal(err)
		}
		for !vm.Paused() {
			if err := vm.Update(); err != nil {
				t.Fatal(err)
			}
		}
		return vm.CurrentText()
	}

	if got := run(func([]float64) int { return 0 }); got != "First" {
		t.Fatalf("got %q", got)
	}
	if got := run(func([]float64) int { return 1 }); got != "Second" {
		t.Fatalf("got %q", got)
	}
}

func TestScenario5ExternalCallAndInterpolation(t *testing.T) {
	var a asm
	a.callExternal(1, 0) // external function named string_table[1] == "getPlayerName"
	a.pushBinaryInterp(0, 1)
	a.textRun()
	a.exit()

	bin := binaryWithScene(a.buf, []string{"Hello, ${0}", "getPlayerName"}, nil)
	handler := &stubHandler{fns: map[string]func([]value.Value) (value.Value, error){
		"getPlayerName": func(args []value.Value) (value.Value, error) {
			return value.NewString("world"), nil
		},
	}}
	vm := New(bin, handler)
	if err := vm.RunScene("Hello, ${0}"); err != nil {
		t.Fatal(err)
	}
	for !vm.Paused() {
		if err := vm.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if vm.CurrentText() != "Hello, world" {
		t.Fatalf("got %q", vm.CurrentText())
	}
}

func TestScenario6Definitions(t *testing.T) {
	bin := &dxb.Binary{
		TranslationLoaded: true,
		StringTable:       []string{"info.name", "world"},
		Definitions: []dxb.Definition{
			{Symbol: 0, Reference: (1 << 31) | 1, InstructionIndex: -1},
		},
	}
	vm := New(bin, &stubHandler{})
	got, err := vm.GetDefinition("info.name")
	if err != nil {
		t.Fatal(err)
	}
	if got != "world" {
		t.Fatalf("got %q", got)
	}
}

func TestInvariantPauseImpliesNoSubstates(t *testing.T) {
	var a asm
	a.pushInt(1)
	a.pushInt(2)
	a.exit()
	bin := binaryWithScene(a.buf, []string{"s"}, nil)
	vm := New(bin, &stubHandler{})
	if err := vm.RunScene("s"); err != nil {
		t.Fatal(err)
	}

	// Before the exit executes, paused is false and none of its
	// substates are set.
	if vm.Paused() || vm.RunningText() || vm.SelectChoice() || vm.SceneCompleted() {
		t.Fatal("pause-substate set before any instruction ran")
	}
	if err := vm.Update(); err != nil {
		t.Fatal(err)
	}
	if vm.Paused() || vm.RunningText() || vm.SelectChoice() || vm.SceneCompleted() {
		t.Fatal("pause-substate set after a non-pausing instruction")
	}

	for !vm.Paused() {
		if err := vm.Update(); err != nil {
			t.Fatal(err)
		}
	}
	if !vm.SceneCompleted() {
		t.Fatal("exit with empty call stack must set scene_completed")
	}
	if vm.RunningText() || vm.SelectChoice() {
		t.Fatal("scene_completed must not coincide with running_text or select_choice")
	}
}

func TestInvariantPushDupPopRoundTrip(t *testing.T) {
	var a asm
	a.pushInt(42)
	a.dup()
	a.pop()
	a.exit()
	bin := binaryWithScene(a.buf, []string{"s"}, nil)
	vm := New(bin, &stubHandler{})
	if err := vm.RunScene("s"); err != nil {
		t.Fatal(err)
	}
	// Step through push/dup/pop manually (stop before exit) to inspect the stack.
	for i := 0; i < 3; i++ {
		if err := vm.step(); err != nil {
			t.Fatal(err)
		}
	}
	if len(vm.stack) != 1 {
		t.Fatalf("expected 1 value left on stack, got %d", len(vm.stack))
	}
	top, _ := vm.stack[0].Int()
	if top != 42 {
		t.Fatalf("got %d", top)
	}
}

func TestInvariantCallReturnStackDepth(t *testing.T) {
	var callee asm
	callee.pushInt(99)
	callee.ret()

	var main asm
	main.pushInt(1)
	main.pushInt(2)
	main.call(0, 2)
	main.exit()

	bin := &dxb.Binary{
		StringTable:  []string{"main"},
		Instructions: append(main.buf, callee.buf...),
		Scenes:       []dxb.SymbolTable{{Symbol: 0, InstructionIndices: []int32{0}}},
		Functions:    []dxb.SymbolTable{{Symbol: 0, InstructionIndices: []int32{int32(len(main.buf))}}},
	}
	vm := New(bin, &stubHandler{})
	if err := vm.RunScene("main"); err != nil {
		t.Fatal(err)
	}
	// push 1, push 2 -> depth 2
	if err := vm.step(); err != nil {
		t.Fatal(err)
	}
	if err := vm.step(); err != nil {
		t.Fatal(err)
	}
	preCallDepth := vm.depth()
	if err := vm.step(); err != nil { // call
		t.Fatal(err)
	}
	if err := vm.step(); err != nil { // push_int 99 inside callee
		t.Fatal(err)
	}
	if err := vm.step(); err != nil { // ret
		t.Fatal(err)
	}
	if vm.depth() != preCallDepth-2+1 {
		t.Fatalf("got depth %d, want %d", vm.depth(), preCallDepth-2+1)
	}
	top, _ := vm.stack[len(vm.stack)-1].Int()
	if top != 99 {
		t.Fatalf("got %d", top)
	}
}

func TestChoiceSelectWithoutChoiceIsStateError(t *testing.T) {
	var a asm
	a.choiceSelect()
	a.exit()
	bin := binaryWithScene(a.buf, []string{"s"}, nil)
	vm := New(bin, &stubHandler{})
	if err := vm.RunScene("s"); err != nil {
		t.Fatal(err)
	}
	err := vm.Update()
	if _, ok := err.(*StateError); !ok {
		t.Fatalf("got %v", err)
	}
}

func TestSymbolIndicesAreValidatedAgainstStringTable(t *testing.T) {
	bin := &dxb.Binary{
		StringTable: []string{"only"},
		Scenes:      []dxb.SymbolTable{{Symbol: 5, InstructionIndices: []int32{0}}},
	}
	if err := bin.Validate(); err == nil {
		t.Fatal("expected out-of-range symbol to fail validation")
	}
}
