// Package configs loads optional CUE-validated tuning files for a dxvm
// VM. A host never has to touch this package — dxvm.New works with zero
// configuration — but one that wants to externalize operand-stack size,
// call-depth limits, or strict-mode without a recompile can point
// dxvm.WithOptions at VMOptions loaded here.
package configs

import (
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Loader merges one or more CUE-encoded VM tuning files into a single
// configs.VMOptions — the way a host assembles a base tuning file
// checked into the repo plus a per-environment override file kept out
// of version control. Files are combined with CUE's own unification,
// not by "whichever file defines a field first": two files may each set
// different fields of the "vm" struct freely, but if both set the
// *same* field to different values that is a unification conflict,
// surfaced as an error from Load rather than silently preferring one
// file's value over the other's.
//
// Every file, and the merged result, is validated against the closed
// VMOptionsSchema — an unknown top-level field in any file fails the
// whole load, the way a typo'd option name should.
type Loader struct {
	getValue func() (cue.Value, error)
}

// NewLoader builds a Loader over filePaths. Parsing, unification, and
// schema validation are deferred to the first call to Load.
func NewLoader(filePaths []string) Loader {
	return Loader{
		getValue: sync.OnceValues(func() (cue.Value, error) {
			ctx := cuecontext.New()
			schema := ctx.CompileString("close({" + VMOptionsSchema + "})")
			if err := schema.Err(); err != nil {
				return cue.Value{}, err
			}

			merged := ctx.CompileString("_")
			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return cue.Value{}, err
				}
				v := ctx.CompileBytes(content, cue.Filename(filePath))
				if err := v.Err(); err != nil {
					return cue.Value{}, err
				}
				merged = merged.Unify(v)
			}

			merged = schema.Unify(merged)
			if err := merged.Validate(); err != nil {
				return cue.Value{}, fmt.Errorf("configs: %w", err)
			}
			return merged, nil
		}),
	}
}

// Load decodes the unified "vm" root of this Loader's files into a
// VMOptions, applying VMOptions' zero values for anything no file
// defines. It is an error only if a file cannot be read or fails to
// parse, a field is
// rejected by VMOptionsSchema, or two files conflict on the same
// field's value — an absent "vm" root is not an error, it just means
// every field falls back to its built-in default.
func (l Loader) Load() (VMOptions, error) {
	merged, err := l.getValue()
	if err != nil {
		return VMOptions{}, err
	}

	vmVal := merged.LookupPath(cue.ParsePath("vm"))
	if !vmVal.Exists() {
		return VMOptions{}, nil
	}

	var opts VMOptions
	if err := vmVal.Decode(&opts); err != nil {
		return VMOptions{}, fmt.Errorf("configs: decode vm options: %w", err)
	}
	return opts, nil
}
