// Package sequences drives leads through drip sequences: timed, templated
// steps keyed by trigger name.
package sequences

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrDefinitionNotFound is returned when no sequence exists for a trigger.
var ErrDefinitionNotFound = errors.New("sequence definition not found")

// StepType selects how a step is delivered.
type StepType string

const (
	StepText  StepType = "text"
	StepForm  StepType = "form"
	StepAudio StepType = "audio"
	StepImage StepType = "image"
	StepVideo StepType = "video"
)

// Valid reports whether t is a known step type.
func (t StepType) Valid() bool {
	switch t {
	case StepText, StepForm, StepAudio, StepImage, StepVideo:
		return true
	}
	return false
}

// Step is one timed message of a sequence.
type Step struct {
	Type         StepType `json:"type" yaml:"type"`
	Content      string   `json:"content" yaml:"content"`
	DelayMinutes int      `json:"delayMinutes" yaml:"delayMinutes"`
}

// Delay returns the step delay from sequence start.
func (s Step) Delay() time.Duration {
	return time.Duration(s.DelayMinutes) * time.Minute
}

// Definition is the ordered step list for a trigger.
type Definition struct {
	Trigger string `json:"trigger" yaml:"trigger"`
	Steps   []Step `json:"steps" yaml:"steps"`
}

// Validate checks a definition before it is stored.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Trigger) == "" {
		return errors.New("trigger is required")
	}
	for i, step := range d.Steps {
		if !step.Type.Valid() {
			return fmt.Errorf("step %d: unknown type %q", i+1, step.Type)
		}
		if step.DelayMinutes < 0 {
			return fmt.Errorf("step %d: delayMinutes must not be negative", i+1)
		}
		if strings.TrimSpace(step.Content) == "" {
			return fmt.Errorf("step %d: content is required", i+1)
		}
	}
	return nil
}
