package dxb

import "fmt"

// SymbolTable is the shape shared by scene and function metadata
// entries: a name (Symbol, an index into StringTable) plus an
// odd-length list of instruction offsets — InstructionIndices[0] is the
// entry point, and the remaining entries form (value-init, name-init)
// pairs run once at call time to populate flags.
type SymbolTable struct {
	Symbol             uint32
	InstructionIndices []int32
}

// Entry is the scene/function's own entry point, InstructionIndices[0].
func (s SymbolTable) Entry() int32 {
	return s.InstructionIndices[0]
}

// FlagInitPairs iterates the (value-init, name-init) sub-program index
// pairs following the entry point. The odd-length invariant on
// InstructionIndices (enforced by Decode) guarantees every pair is
// complete.
func (s SymbolTable) FlagInitPairs(yield func(valueIP, nameIP int32) bool) {
	for i := 1; i+1 < len(s.InstructionIndices); i += 2 {
		if !yield(s.InstructionIndices[i], s.InstructionIndices[i+1]) {
			return
		}
	}
}

// Definition is a named, optionally-interpolated string resolved on
// demand by dxvm and cached.
type Definition struct {
	Symbol           uint32
	Reference        uint32
	InstructionIndex int32
}

// HasInterpolation reports whether this definition runs a sub-program to
// produce interpolation values before its string is substituted.
func (d Definition) HasInterpolation() bool {
	return d.InstructionIndex != -1
}

// ReferencesStringTable decodes which table d.Reference points into.
//
// The distilled source formula "(ref XOR (1<<31)) == 0" is true only
// when ref == 1<<31 exactly — almost never — and was flagged as a
// probable bug (see DESIGN.md, Open Question 2). This implements the
// corrected predicate: the high bit of Reference selects StringTable,
// otherwise TranslationTable, and the low 31 bits are the index either
// way.
func (d Definition) ReferencesStringTable() bool {
	return d.Reference&(1<<31) != 0
}

// ReferenceIndex is d.Reference with the table-selector bit cleared.
func (d Definition) ReferenceIndex() uint32 {
	return d.Reference &^ (1 << 31)
}

// Binary is the immutable (except for LoadTranslationFile) result of
// decoding a DXB buffer — everything dxvm needs to run a scene.
type Binary struct {
	Version              uint8
	TranslationLoaded    bool
	StringTable          []string
	TranslationTable     []string
	Instructions         []byte
	ExternalFunctionList []uint32
	Scenes               []SymbolTable
	Functions            []SymbolTable
	Definitions          []Definition
}

// FindSceneSymbol returns the index into Scenes whose Symbol names name,
// or -1 if none does.
func (b *Binary) FindSceneSymbol(name string) int {
	return b.findSymbol(b.Scenes, name)
}

// FindFunctionSymbol returns the index into Functions whose Symbol names
// name, or -1 if none does.
func (b *Binary) FindFunctionSymbol(name string) int {
	return b.findSymbol(b.Functions, name)
}

func (b *Binary) findSymbol(tables []SymbolTable, name string) int {
	for i, t := range tables {
		if int(t.Symbol) < len(b.StringTable) && b.StringTable[t.Symbol] == name {
			return i
		}
	}
	return -1
}

// FindDefinition returns the Definition whose Symbol names name and
// true, or the zero Definition and false.
func (b *Binary) FindDefinition(name string) (Definition, bool) {
	for _, d := range b.Definitions {
		if int(d.Symbol) < len(b.StringTable) && b.StringTable[d.Symbol] == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Validate checks the cross-table invariants the spec requires of every
// decoded Binary: every scene/function/definition Symbol must land
// inside StringTable, and every scene/function's InstructionIndices must
// have odd length. A definition's Reference is not range-checked here;
// resolution reports an out-of-range reference as not found.
func (b *Binary) Validate() error {
	checkSymbol := func(kind string, i int, sym uint32) error {
		if int(sym) >= len(b.StringTable) {
			return fmt.Errorf("dxb: %s[%d] symbol %d out of range of string_table (len %d)", kind, i, sym, len(b.StringTable))
		}
		return nil
	}
	for i, s := range b.Scenes {
		if err := checkSymbol("scenes", i, s.Symbol); err != nil {
			return err
		}
		if len(s.InstructionIndices)%2 == 0 {
			return fmt.Errorf("dxb: scenes[%d] has even instruction_indices length %d", i, len(s.InstructionIndices))
		}
	}
	for i, f := range b.Functions {
		if err := checkSymbol("functions", i, f.Symbol); err != nil {
			return err
		}
		if len(f.InstructionIndices)%2 == 0 {
			return fmt.Errorf("dxb: functions[%d] has even instruction_indices length %d", i, len(f.InstructionIndices))
		}
	}
	for i, d := range b.Definitions {
		if err := checkSymbol("definitions", i, d.Symbol); err != nil {
			return err
		}
	}
	return nil
}
