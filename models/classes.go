package models

import "github.com/pkg/errors"

// OutputClass represents one detection label.
type OutputClass struct {
	// The integer index returned by the model.
	Index int `json:"index" yaml:"index"`
	// The human-readable label.
	Name string `json:"name" yaml:"name"`
}

// OutputClassSet is the ordered list of labels a model predicts.
type OutputClassSet struct {
	Classes []OutputClass
}

// TomatoHead is the single class the tomato models are trained on.
const TomatoHead = "tomato_head"

// TomatoClasses is the class set shared by every registered model.
var TomatoClasses = OutputClassSet{
	Classes: []OutputClass{
		{Index: 0, Name: TomatoHead},
	},
}

// Len returns the number of classes in the set.
func (s OutputClassSet) Len() int {
	return len(s.Classes)
}

// Name returns the label for a class index.
//
// Arguments:
//   - idx: The class index produced by the model.
//
// Returns:
//   - The label, or an error when idx is out of range.
func (s OutputClassSet) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(s.Classes) {
		return "", errors.Errorf("class index %d out of range [0, %d)", idx, len(s.Classes))
	}
	return s.Classes[idx].Name, nil
}
