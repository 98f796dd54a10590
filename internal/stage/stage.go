package stage

import (
	"fmt"
	"sort"
	"strings"
)

// Kind identifies one named processing step.
type Kind string

const (
	KindCalibrate         Kind = "calibrate"
	KindBackgroundExtract Kind = "background-extract"
	KindPlateSolve        Kind = "platesolve"
	KindRegister          Kind = "register"
	KindStack             Kind = "stack"
	KindSharpen           Kind = "sharpen"
	KindDenoise           Kind = "denoise"
	KindColorCalibrate    Kind = "color-calibrate"
	KindStretch           Kind = "stretch"
)

// priorities fixes the execution order across both pipeline groups.
// Sharpening runs before denoising so deconvolution does not amplify a
// denoise-smoothed noise floor.
var priorities = map[Kind]int{
	KindCalibrate:         10,
	KindBackgroundExtract: 20,
	KindPlateSolve:        30,
	KindRegister:          40,
	KindStack:             50,
	KindSharpen:           60,
	KindDenoise:           70,
	KindColorCalibrate:    80,
	KindStretch:           90,
}

// Priority returns the execution priority for a kind. Unknown kinds sort last.
func Priority(kind Kind) int {
	if p, ok := priorities[kind]; ok {
		return p
	}
	return 1 << 20
}

// Known reports whether kind belongs to the closed enumeration.
func Known(kind Kind) bool {
	_, ok := priorities[kind]
	return ok
}

// Request pairs a stage kind with its parameter set. Tool distinguishes
// collaborator variants of the same kind (for example siril vs graxpert
// background extraction).
type Request struct {
	Kind   Kind
	Tool   string
	Params map[string]string
}

// Signature renders a stable identity for the request: kind, tool, and the
// parameter set in key order. Two requests with different parameters never
// share a signature.
func (r Request) Signature() string {
	var b strings.Builder
	b.WriteString(string(r.Kind))
	if r.Tool != "" {
		b.WriteByte('/')
		b.WriteString(r.Tool)
	}
	keys := make([]string, 0, len(r.Params))
	for key := range r.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%s", key, r.Params[key])
	}
	return b.String()
}

// Label renders a short human-readable name for logs and tables.
func (r Request) Label() string {
	if r.Tool == "" {
		return string(r.Kind)
	}
	return string(r.Kind) + " (" + r.Tool + ")"
}
