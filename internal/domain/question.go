package domain

import (
	"encoding/json"
	"fmt"
)

type QuestionType string

const (
	ShortTextType    QuestionType = "short-text"
	LongTextType     QuestionType = "long-text"
	SingleChoiceType QuestionType = "single-choice"
	MultiChoiceType  QuestionType = "multi-choice"
	NumericType      QuestionType = "numeric"
	FileUploadType   QuestionType = "file-upload"
)

// Condition makes a question visible only when another question's answer equals Value.
type Condition struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
}

// Question is one of ShortText, LongText, SingleChoice, MultiChoice,
// Numeric or FileUpload.
type Question interface {
	Base() QuestionBase
	Type() QuestionType
	check(answer any) error
}

type QuestionBase struct {
	ID        string
	Label     string
	DependsOn *Condition
}

func (b QuestionBase) Base() QuestionBase { return b }

type ShortText struct {
	QuestionBase
	Required  bool
	MaxLength *int
}

type LongText struct {
	QuestionBase
	Required  bool
	MaxLength *int
}

type SingleChoice struct {
	QuestionBase
	Options  []string
	Required bool
}

type MultiChoice struct {
	QuestionBase
	Options  []string
	Required bool
}

type Numeric struct {
	QuestionBase
	Required bool
	Min      *float64
	Max      *float64
}

type FileUpload struct {
	QuestionBase
	Required bool
}

func (ShortText) Type() QuestionType    { return ShortTextType }
func (LongText) Type() QuestionType     { return LongTextType }
func (SingleChoice) Type() QuestionType { return SingleChoiceType }
func (MultiChoice) Type() QuestionType  { return MultiChoiceType }
func (Numeric) Type() QuestionType      { return NumericType }
func (FileUpload) Type() QuestionType   { return FileUploadType }

type questionWire struct {
	ID         string          `json:"id"`
	Type       QuestionType    `json:"type"`
	Label      string          `json:"label"`
	Options    []string        `json:"options,omitempty"`
	Validation *validationWire `json:"validation,omitempty"`
	DependsOn  *Condition      `json:"dependsOn,omitempty"`
}

type validationWire struct {
	Required  bool     `json:"required,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
}

// Questions carries the tagged wire encoding of a question list.
type Questions []Question

func (qs Questions) MarshalJSON() ([]byte, error) {
	out := make([]questionWire, 0, len(qs))
	for _, q := range qs {
		w, err := toWire(q)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return json.Marshal(out)
}

func (qs *Questions) UnmarshalJSON(data []byte) error {
	var wires []questionWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return err
	}
	out := make(Questions, 0, len(wires))
	for _, w := range wires {
		q, err := fromWire(w)
		if err != nil {
			return err
		}
		out = append(out, q)
	}
	*qs = out
	return nil
}

func toWire(q Question) (questionWire, error) {
	b := q.Base()
	w := questionWire{ID: b.ID, Type: q.Type(), Label: b.Label, DependsOn: b.DependsOn}
	var v validationWire
	switch t := q.(type) {
	case ShortText:
		v = validationWire{Required: t.Required, MaxLength: t.MaxLength}
	case LongText:
		v = validationWire{Required: t.Required, MaxLength: t.MaxLength}
	case SingleChoice:
		w.Options = t.Options
		v = validationWire{Required: t.Required}
	case MultiChoice:
		w.Options = t.Options
		v = validationWire{Required: t.Required}
	case Numeric:
		v = validationWire{Required: t.Required, Min: t.Min, Max: t.Max}
	case FileUpload:
		v = validationWire{Required: t.Required}
	default:
		return w, fmt.Errorf("unsupported question %T", q)
	}
	if v != (validationWire{}) {
		w.Validation = &v
	}
	return w, nil
}

func fromWire(w questionWire) (Question, error) {
	base := QuestionBase{ID: w.ID, Label: w.Label, DependsOn: w.DependsOn}
	var v validationWire
	if w.Validation != nil {
		v = *w.Validation
	}
	switch w.Type {
	case ShortTextType:
		return ShortText{QuestionBase: base, Required: v.Required, MaxLength: v.MaxLength}, nil
	case LongTextType:
		return LongText{QuestionBase: base, Required: v.Required, MaxLength: v.MaxLength}, nil
	case SingleChoiceType:
		return SingleChoice{QuestionBase: base, Options: w.Options, Required: v.Required}, nil
	case MultiChoiceType:
		return MultiChoice{QuestionBase: base, Options: w.Options, Required: v.Required}, nil
	case NumericType:
		return Numeric{QuestionBase: base, Required: v.Required, Min: v.Min, Max: v.Max}, nil
	case FileUploadType:
		return FileUpload{QuestionBase: base, Required: v.Required}, nil
	default:
		return nil, fmt.Errorf("question %s: unknown type %q", w.ID, w.Type)
	}
}
