package dxvm

import (
	"context"

	"github.com/dnxscript/dxvm/logs"
	"github.com/dnxscript/dxvm/value"
)

// RunScene implements §4.8's run_scene(name): resets per-scene runtime
// state, runs the scene's flag initializers, and seeds ip at its entry.
// Calling RunScene while a prior scene is mid-execution silently
// discards its call stack and operand stack, per §5's "a scene may be
// abandoned by calling run_scene with a new name".
func (v *VM) RunScene(name string) error {
	idx := v.binary.FindSceneSymbol(name)
	if idx < 0 {
		return notFound("scene", name)
	}
	scene := v.binary.Scenes[idx]

	v.ctx, v.span = v.startSpan(name)
	v.debugf("run_scene", "scene", name)

	v.stack = v.stack[:0]
	v.saveRegister = value.NewUndefined()
	v.locals = newLocalStore()
	v.callStack = nil
	v.choices = nil
	v.chooseOptions = nil
	v.inChoice = false
	v.selectChoice = false
	v.runningText = false
	v.paused = false
	v.sceneComplete = false
	v.currentText = ""
	v.currentScene = name
	v.hasScene = true

	if err := v.runFlagInitializers(scene); err != nil {
		return err
	}
	v.ip = scene.Entry()
	return nil
}

func (v *VM) startSpan(scene string) (context.Context, logs.Span) {
	if v.newSpan == nil {
		return v.ctx, logs.Span{}
	}
	return v.newSpan(v.ctx, scene)
}

// Resume implements §4.8's resume(): clears running_text; if
// select_choice is set the host must call ChooseChoice instead, so
// Resume does nothing in that state; otherwise it clears paused so the
// next Update advances execution.
func (v *VM) Resume() {
	v.runningText = false
	if v.selectChoice {
		return
	}
	v.paused = false
}

// GetFlag implements §4.8's get_flag(name).
func (v *VM) GetFlag(name string) value.Value {
	if val, ok := v.flags[name]; ok {
		return val
	}
	return value.NewUndefined()
}

// SetFlag implements §4.8's set_flag(name, value).
func (v *VM) SetFlag(name string, val value.Value) {
	v.flags[name] = val
}

// Paused reports whether the VM is waiting on the host (running text,
// an unanswered choice, or scene completion).
func (v *VM) Paused() bool { return v.paused }

// RunningText reports whether the VM paused on a text_run.
func (v *VM) RunningText() bool { return v.runningText }

// SelectChoice reports whether the VM paused awaiting ChooseChoice.
func (v *VM) SelectChoice() bool { return v.selectChoice }

// SceneCompleted reports whether the current scene ran its outermost exit.
func (v *VM) SceneCompleted() bool { return v.sceneComplete }

// CurrentText returns the text most recently pushed by text_run.
func (v *VM) CurrentText() string { return v.currentText }

// CurrentScene returns the name passed to the most recent RunScene.
func (v *VM) CurrentScene() (string, bool) { return v.currentScene, v.hasScene }

// Choices returns the text of every option accumulated by the choice
// currently awaiting selection.
func (v *VM) Choices() []string {
	texts := make([]string, len(v.choices))
	for i, c := range v.choices {
		texts[i] = c.Text
	}
	return texts
}
