package dxvm

import "math/rand/v2"

// DefaultChanceFunc implements §4.5's default chance_callback: always
// true at chance == 1 (so authors can mark an option "always available"
// without relying on float exactness elsewhere), otherwise a uniform
// roll against chance.
func DefaultChanceFunc(chance float64) bool {
	if chance == 1 {
		return true
	}
	return rand.Float64() < chance
}

// choiceBegin implements §4.5's choice_begin.
func (v *VM) choiceBegin() error {
	if v.inChoice {
		return stateErr("choice_begin", "already in a choice")
	}
	v.inChoice = true
	v.choices = v.choices[:0]
	return nil
}

// choiceAdd implements choice_add off.
func (v *VM) choiceAdd(off int32, nextIP int32) error {
	if !v.inChoice {
		return stateErr("choice_add", "not in a choice")
	}
	chanceVal := v.pop()
	textVal := v.pop()
	chance := chanceVal.AsFloat64()
	text, _ := textVal.Str()
	if v.chanceFunc(chance) {
		v.choices = append(v.choices, choiceOption{Address: nextIP + off, Text: text})
	}
	return nil
}

// choiceAddTruthy implements choice_add_truthy off.
func (v *VM) choiceAddTruthy(off int32, nextIP int32) error {
	if !v.inChoice {
		return stateErr("choice_add_truthy", "not in a choice")
	}
	chanceVal := v.pop()
	textVal := v.pop()
	condVal := v.pop()
	chance := chanceVal.AsFloat64()
	text, _ := textVal.Str()
	if condVal.IsTruthy() && v.chanceFunc(chance) {
		v.choices = append(v.choices, choiceOption{Address: nextIP + off, Text: text})
	}
	return nil
}

// choiceSelect implements choice_select.
func (v *VM) choiceSelect() error {
	if !v.inChoice {
		return stateErr("choice_select", "not in a choice")
	}
	if len(v.choices) == 0 {
		return stateErr("choice_select", "no choices accumulated")
	}
	v.selectChoice = true
	v.paused = true
	return nil
}

// ChooseChoice implements §4.8's choose_choice(i): the host's answer to
// a pause with select_choice set. It fails if i is out of range and
// otherwise jumps to the chosen option's address, synchronously resets
// the choice state machine (see SPEC_FULL.md §4.5's resolution of the
// "when exactly" open question), and clears the pause.
func (v *VM) ChooseChoice(i int) error {
	if i < 0 || i >= len(v.choices) {
		return stateErr("choose_choice", "index out of range")
	}
	target := v.choices[i].Address
	v.selectChoice = false
	v.paused = false
	v.inChoice = false
	v.choices = nil
	v.ip = target
	return nil
}
