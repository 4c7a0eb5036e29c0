package dxvm

import "math/rand/v2"

// DefaultWeightedChanceFunc implements §4.5's described default
// weighted_chance_callback exactly as specified, including the bias
// §9 Open Question 3 flags: prefix-sum the weights, draw r uniformly
// from [0, total-1), and select the largest index whose prefix sum the
// rounded draw still exceeds or matches. This is deliberately not
// "fixed" — the spec asks for it to be specified explicitly with
// regression tests, not silently corrected; WithWeightedChanceFunc lets
// a host substitute an unbiased selector.
func DefaultWeightedChanceFunc(weights []float64) int {
	n := len(weights)
	if n == 0 {
		return -1
	}
	prefix := make([]float64, n)
	total := 0.0
	for i, w := range weights {
		prefix[i] = total
		total += w
	}
	upper := total - 1
	if upper < 0 {
		upper = 0
	}
	r := rand.Float64() * upper
	rounded := float64(int64(r + 0.5))

	selected := 0
	for i := n - 1; i >= 0; i-- {
		if rounded >= prefix[i] {
			selected = i
			break
		}
	}
	return selected
}

// chooseAdd implements choose_add off.
func (v *VM) chooseAdd(off int32, nextIP int32) {
	weightVal := v.pop()
	v.chooseOptions = append(v.chooseOptions, chooseOption{
		Weight:  weightVal.AsFloat64(),
		Pointer: nextIP + off,
	})
}

// chooseAddTruthy implements choose_add_truthy off.
func (v *VM) chooseAddTruthy(off int32, nextIP int32) {
	weightVal := v.pop()
	condVal := v.pop()
	if condVal.IsTruthy() {
		v.chooseOptions = append(v.chooseOptions, chooseOption{
			Weight:  weightVal.AsFloat64(),
			Pointer: nextIP + off,
		})
	}
}

// chooseSelect implements choose_select.
func (v *VM) chooseSelect() error {
	if len(v.chooseOptions) == 0 {
		return stateErr("choose_select", "no options accumulated")
	}
	weights := make([]float64, len(v.chooseOptions))
	for i, o := range v.chooseOptions {
		weights[i] = o.Weight
	}
	s := v.weightedChanceFunc(weights)
	if s < 0 || s >= len(v.chooseOptions) {
		return stateErr("choose_select", "weighted_chance_callback returned an out-of-range index")
	}
	v.ip = v.chooseOptions[s].Pointer
	v.chooseOptions = nil
	return nil
}
