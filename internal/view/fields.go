package view

import (
	"bytes"
	"fmt"
	"html/template"
)

// FieldKind tags the variant of a form field.
type FieldKind int

const (
	// FieldLabel renders read-only text.
	FieldLabel FieldKind = iota
	// FieldText renders a text input.
	FieldText
	// FieldNumber renders a numeric input.
	FieldNumber
	// FieldDate renders a date input.
	FieldDate
	// FieldSelect renders a drop-down.
	FieldSelect
	// FieldHidden renders a hidden input.
	FieldHidden
	// FieldButton renders a submit button posting to its own action.
	FieldButton
)

func (k FieldKind) String() string {
	switch k {
	case FieldLabel:
		return "label"
	case FieldText:
		return "text"
	case FieldNumber:
		return "number"
	case FieldDate:
		return "date"
	case FieldSelect:
		return "select"
	case FieldHidden:
		return "hidden"
	case FieldButton:
		return "button"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// Option is one choice of a select field.
type Option struct {
	Value string
	Label string
}

// Field describes one form field. Label and Error hold message keys.
type Field struct {
	Kind     FieldKind
	Name     string
	Label    string
	Value    string
	Options  []Option
	Required bool
	Disabled bool
	Hidden   bool
	Error    string
	Class    string
	// Action is the form action of a button.
	Action string
}

type fieldView struct {
	Field
	LabelText string
	ErrorText string
	Type      string
	Options   []optionView
}

type optionView struct {
	Option
	Selected bool
}

var fieldTemplates = template.Must(template.New("fields").Parse(`
{{define "label"}}<span class="field field-label {{.Class}}">{{.Value}}</span>{{end}}
{{define "input"}}<label class="field {{.Class}}{{if .ErrorText}} has-error{{end}}">
<span class="field-title">{{.LabelText}}</span>
<input type="{{.Type}}" name="{{.Name}}" value="{{.Value}}"{{if .Required}} required{{end}}{{if .Disabled}} disabled{{end}}>
{{if .ErrorText}}<span class="field-error">{{.ErrorText}}</span>{{end}}
</label>{{end}}
{{define "hidden"}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">{{end}}
{{define "select"}}<label class="field {{.Class}}{{if .ErrorText}} has-error{{end}}">
<span class="field-title">{{.LabelText}}</span>
<select name="{{.Name}}"{{if .Required}} required{{end}}{{if .Disabled}} disabled{{end}}>
<option value=""></option>
{{range .Options}}<option value="{{.Value}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
{{end}}</select>
{{if .ErrorText}}<span class="field-error">{{.ErrorText}}</span>{{end}}
</label>{{end}}
{{define "button"}}<button type="submit" class="btn {{.Class}}" formaction="{{.Action}}"{{if .Disabled}} disabled{{end}}>{{.LabelText}}</button>{{end}}
`))

// RenderField renders a field according to its kind. Hidden-flagged fields render nothing.
func RenderField(msgs Messages, f Field) (template.HTML, error) {
	if f.Hidden {
		return "", nil
	}
	v := fieldView{Field: f}
	if f.Label != "" {
		v.LabelText = msgs.T(f.Label)
	}
	if f.Error != "" {
		v.ErrorText = msgs.T(f.Error)
	}

	var name string
	switch f.Kind {
	case FieldLabel:
		name = "label"
	case FieldText:
		name, v.Type = "input", "text"
	case FieldNumber:
		name, v.Type = "input", "number"
	case FieldDate:
		name, v.Type = "input", "date"
	case FieldHidden:
		name = "hidden"
	case FieldSelect:
		name = "select"
		v.Options = make([]optionView, len(f.Options))
		for i, opt := range f.Options {
			v.Options[i] = optionView{Option: opt, Selected: opt.Value == f.Value}
		}
	case FieldButton:
		name = "button"
	default:
		return "", fmt.Errorf("view: unknown field kind %s", f.Kind)
	}

	var buf bytes.Buffer
	if err := fieldTemplates.ExecuteTemplate(&buf, name, v); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
