package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFieldSelect(t *testing.T) {
	html, err := RenderField(nil, Field{
		Kind:     FieldSelect,
		Name:     "origin.id",
		Label:    "stockMovement.origin.label",
		Value:    "b",
		Options:  []Option{{Value: "a", Label: "Alpha"}, {Value: "b", Label: "Beta"}},
		Required: true,
		Error:    "error.requiredField.label",
	})
	require.NoError(t, err)
	out := string(html)
	assert.Contains(t, out, `<select name="origin.id" required>`)
	assert.Contains(t, out, `<option value="b" selected>Beta</option>`)
	assert.Contains(t, out, `<option value="a">Alpha</option>`)
	assert.Contains(t, out, "Origin")
	assert.Contains(t, out, "has-error")
	assert.Contains(t, out, "This field is required")
}

func TestRenderFieldKinds(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		want  string
	}{
		{"label", Field{Kind: FieldLabel, Value: "ABC", Class: "text-danger"}, `<span class="field field-label text-danger">ABC</span>`},
		{"number", Field{Kind: FieldNumber, Name: "items.0.quantityRevised", Value: "5", Disabled: true}, `<input type="number" name="items.0.quantityRevised" value="5" disabled>`},
		{"date", Field{Kind: FieldDate, Name: "dateRequested"}, `type="date"`},
		{"hidden", Field{Kind: FieldHidden, Name: "stockMovementId", Value: "sm-1"}, `<input type="hidden" name="stockMovementId" value="sm-1">`},
		{"button", Field{Kind: FieldButton, Label: "default.button.undo.label", Action: "/revert", Class: "btn-outline-danger"}, `formaction="/revert"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			html, err := RenderField(Messages{}, tc.field)
			require.NoError(t, err)
			assert.Contains(t, string(html), tc.want)
		})
	}
}

func TestRenderFieldEscapesValues(t *testing.T) {
	html, err := RenderField(nil, Field{Kind: FieldLabel, Value: `<script>alert(1)</script>`})
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
}

func TestRenderFieldHiddenFlag(t *testing.T) {
	html, err := RenderField(nil, Field{Kind: FieldButton, Hidden: true, Action: "/x"})
	require.NoError(t, err)
	assert.Empty(t, html)
}

func TestRenderFieldUnknownKind(t *testing.T) {
	_, err := RenderField(nil, Field{Kind: FieldKind(42)})
	assert.Error(t, err)
}

func TestMessagesFallback(t *testing.T) {
	msgs := Messages{
		"stockMovement.origin.label":            "Origine",
		"react.stockMovement.destination.label": "Destination (fr)",
	}
	assert.Equal(t, "Origine", msgs.T("stockMovement.origin.label"))
	assert.Equal(t, "Destination (fr)", msgs.T("stockMovement.destination.label"))
	assert.Equal(t, "Description", msgs.T("stockMovement.description.label"))
	assert.Equal(t, "unknown.key", msgs.T("unknown.key"))
	assert.Equal(t, "Description", Messages(nil).T("stockMovement.description.label"))
}
