// Package wizard implements the linear multi-step lead-capture form.
//
// A Wizard moves through its steps one at a time. Moving forward is gated on
// the current step's required fields being non-empty after trimming; moving
// back is always allowed except from the first step. The last step is a
// confirmation step with no fields and no forward transition.
package wizard

import (
	"fmt"
	"strings"
)

// Field names used by the default steps.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldInterest = "interest"
	FieldMessage  = "message"
)

// Step is one page of the form and the fields it requires.
type Step struct {
	Title  string
	Fields []string
}

// Interest is a selectable value for the interest field.
type Interest struct {
	Value string
	Label string
}

// Interests lists the options offered on the "Space Interests" step.
var Interests = []Interest{
	{Value: "Communication", Label: "Space Communication"},
	{Value: "Exploration", Label: "Deep Space Exploration"},
	{Value: "Research", Label: "Astronomical Research"},
	{Value: "Technology", Label: "Space Technology Development"},
	{Value: "Colonization", Label: "Space Colonization"},
}

// DefaultSteps returns the steps of the Get Started form.
func DefaultSteps() []Step {
	return []Step{
		{Title: "Personal Information", Fields: []string{FieldName, FieldEmail}},
		{Title: "Space Interests", Fields: []string{FieldInterest}},
		{Title: "Additional Details", Fields: []string{FieldMessage}},
		{Title: "Confirmation"},
	}
}

// Wizard holds the current step index and the flat field-value map.
// It is not safe for concurrent use; callers serialize access.
type Wizard struct {
	steps   []Step
	current int
	fields  map[string]string
}

// New creates a wizard positioned on step 0 with empty fields.
// It panics if steps is empty or the terminal step declares fields.
func New(steps []Step) *Wizard {
	if len(steps) == 0 {
		panic("wizard: at least one step is required")
	}
	if last := steps[len(steps)-1]; len(last.Fields) > 0 {
		panic(fmt.Sprintf("wizard: terminal step %q must not declare fields", last.Title))
	}

	w := &Wizard{steps: append([]Step(nil), steps...)}
	w.Reset()
	return w
}

// Default creates a wizard over DefaultSteps.
func Default() *Wizard {
	return New(DefaultSteps())
}

// Reset returns the wizard to step 0 and clears every field.
func (w *Wizard) Reset() {
	w.current = 0
	w.fields = make(map[string]string)
	for _, s := range w.steps {
		for _, f := range s.Fields {
			w.fields[f] = ""
		}
	}
}

// Current returns the current step index.
func (w *Wizard) Current() int { return w.current }

// Last returns the index of the terminal step.
func (w *Wizard) Last() int { return len(w.steps) - 1 }

// Steps returns a copy of the configured steps.
func (w *Wizard) Steps() []Step { return append([]Step(nil), w.steps...) }

// Step returns the current step.
func (w *Wizard) Step() Step { return w.steps[w.current] }

// IsTerminal reports whether the wizard is on the confirmation step.
func (w *Wizard) IsTerminal() bool { return w.current == w.Last() }

// CanSubmit reports whether the current step is the one that submits.
func (w *Wizard) CanSubmit() bool { return w.current == w.Last()-1 }

// SetField overwrites the value of a field.
func (w *Wizard) SetField(name, value string) {
	w.fields[name] = value
}

// Field returns the raw value of a field.
func (w *Wizard) Field(name string) string {
	return w.fields[name]
}

// Fields returns a copy of the field-value map.
func (w *Wizard) Fields() map[string]string {
	out := make(map[string]string, len(w.fields))
	for k, v := range w.fields {
		out[k] = v
	}
	return out
}

// IsStepValid reports whether every field required by step is non-empty
// after trimming. Out of range steps are never valid.
func (w *Wizard) IsStepValid(step int) bool {
	if step < 0 || step >= len(w.steps) {
		return false
	}
	for _, f := range w.steps[step].Fields {
		if strings.TrimSpace(w.fields[f]) == "" {
			return false
		}
	}
	return true
}

// GoNext advances one step when the current step is valid and not terminal.
// It reports whether the step changed.
func (w *Wizard) GoNext() bool {
	if !w.IsStepValid(w.current) || w.current >= w.Last() {
		return false
	}
	w.current++
	return true
}

// GoPrevious moves back one step unless on step 0.
// It reports whether the step changed.
func (w *Wizard) GoPrevious() bool {
	if w.current <= 0 {
		return false
	}
	w.current--
	return true
}

// Submit behaves like GoNext but only from the second-to-last step.
func (w *Wizard) Submit() bool {
	if !w.CanSubmit() {
		return false
	}
	return w.GoNext()
}
