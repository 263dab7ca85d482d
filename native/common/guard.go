package common

import (
	"errors"
	"strings"
)

// ErrModulePaused is returned by entry points of a module an operator has
// paused.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module is paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Pauses is a fixed set of paused module names.
type Pauses map[string]bool

// NewPauses builds a Pauses set from module names, ignoring blanks.
func NewPauses(modules ...string) Pauses {
	out := make(Pauses, len(modules))
	for _, module := range modules {
		if name := strings.ToLower(strings.TrimSpace(module)); name != "" {
			out[name] = true
		}
	}
	return out
}

// IsPaused implements PauseView.
func (p Pauses) IsPaused(module string) bool {
	return p[strings.ToLower(module)]
}

// Guard fails with ErrModulePaused when p marks module as paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
