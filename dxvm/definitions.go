package dxvm

import (
	"fmt"

	"github.com/dnxscript/dxvm/value"
)

// resolveDefinitions eagerly resolves every definition when the binary
// already carries (or has just been given) translation strings, per
// §4.7's "resolved once when the binary is loaded (if translation_loaded)
// or whenever a translation file is overlaid". Individual resolution
// failures (a malformed reference, a forbidden opcode in an
// interpolation sub-program) are logged rather than fatal — construction
// and translation-file loading must not abort because one definition is
// broken.
func (v *VM) resolveDefinitions() {
	if !v.binary.TranslationLoaded {
		return
	}
	for _, def := range v.binary.Definitions {
		if int(def.Symbol) >= len(v.binary.StringTable) {
			continue
		}
		name := v.binary.StringTable[def.Symbol]
		if _, err := v.resolveDefinition(name); err != nil {
			v.debugf("definition resolution failed", "name", name, "error", err)
		}
	}
}

// GetDefinition implements §4.8's get_definition(name).
func (v *VM) GetDefinition(name string) (string, error) {
	return v.resolveDefinition(name)
}

// resolveDefinition implements §4.7's four-step resolver.
func (v *VM) resolveDefinition(name string) (string, error) {
	if s, ok := v.definitionsCache[name]; ok {
		return s, nil
	}

	def, ok := v.binary.FindDefinition(name)
	if !ok {
		return "", notFound("definition", name)
	}

	var raw string
	if def.ReferencesStringTable() {
		idx := def.ReferenceIndex()
		if int(idx) >= len(v.binary.StringTable) {
			return "", notFound("definition string reference", name)
		}
		raw = v.binary.StringTable[idx]
	} else {
		idx := def.ReferenceIndex()
		if int(idx) >= len(v.binary.TranslationTable) {
			return "", notFound("definition translation reference", name)
		}
		raw = v.binary.TranslationTable[idx]
	}

	if !def.HasInterpolation() {
		v.definitionsCache[name] = raw
		return raw, nil
	}

	if err := v.checkInterpolationSafe(name, def.InstructionIndex); err != nil {
		return "", err
	}

	before := len(v.stack)
	if err := v.runSubProgram(def.InstructionIndex); err != nil {
		return "", err
	}
	k := len(v.stack) - before
	if k < 0 {
		k = 0
	}
	values := make([]value.Value, k)
	for i := 0; i < k; i++ {
		values[i] = v.pop()
	}

	result := interpolate(raw, values)
	v.definitionsCache[name] = result
	return result, nil
}

// checkInterpolationSafe implements Design Notes §9's "implementations
// may reject such bytecode eagerly": a definition's interpolation
// sub-program must terminate in exit/ret and must not contain text_run
// or a choice/choose opcode, since it runs synchronously inside
// get_definition and has no way to surface a host pause. The verdict is
// cached per symbol name — the sub-program's instruction range is
// immutable once decoded, so a per-call rescan would be wasted work.
func (v *VM) checkInterpolationSafe(name string, ip int32) error {
	if safe, ok := v.staticCache[name]; ok {
		if !safe {
			return fmt.Errorf("dxvm: definition %q: interpolation sub-program is not safe to resolve", name)
		}
		return nil
	}

	cur := ip
	for {
		d, ok := v.fetch(cur)
		if !ok {
			v.staticCache[name] = false
			return fmt.Errorf("dxvm: definition %q: interpolation sub-program runs off the end of bytecode", name)
		}
		switch d.Op {
		case OpTextRun, OpChoiceBegin, OpChoiceAdd, OpChoiceAddTruthy, OpChoiceSelect,
			OpChooseAdd, OpChooseAddTruthy, OpChooseSelect:
			v.staticCache[name] = false
			return fmt.Errorf("dxvm: definition %q: interpolation sub-program contains forbidden opcode %s", name, d.Op)
		case OpExit, OpRet:
			v.staticCache[name] = true
			return nil
		}
		cur = d.NextIP
	}
}
