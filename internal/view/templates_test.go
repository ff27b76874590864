package view

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockwizard/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	assert.NoError(t, err, "Templates should parse without error")
	assert.NotNil(t, engine)
}

func TestRenderLogin(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	html, err := engine.RenderString("pages/login.html", TemplateData{
		Title:       "Login",
		CSRFToken:   "tok",
		CurrentPath: "/auth/login",
		Data: map[string]any{
			"Form":   map[string]string{"Username": "alice"},
			"Next":   "/stock-movements/new",
			"Errors": map[string]string{"general": "auth.invalidCredentials.label", "Password": "error.requiredField.label"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, html, `name="csrf_token" value="tok"`)
	assert.Contains(t, html, `value="/stock-movements/new"`)
	assert.Contains(t, html, "Invalid username or password")
	assert.Contains(t, html, "This field is required")
	assert.Contains(t, html, `value="alice"`)
	assert.NotContains(t, html, `action="/auth/logout"`)
}

func TestRenderConfirmCarriesValues(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	html, err := engine.RenderString("pages/confirm.html", TemplateData{
		CSRFToken:   "tok",
		CurrentPath: "/stock-movements/sm-1/create",
		Flash:       &shared.FlashMessage{Kind: "info", Message: "heads up"},
		Data: map[string]any{
			"Title":   "message.confirmChange.label",
			"Message": "confirmChange.message",
			"Action":  "/stock-movements/sm-1/create",
			"Values":  url.Values{"forceUpdate": {"true"}, "origin.id": {"loc-1"}},
			"NoURL":   "/stock-movements/sm-1/create",
		},
	})
	require.NoError(t, err)
	assert.Contains(t, html, `name="forceUpdate" value="true"`)
	assert.Contains(t, html, `name="origin.id" value="loc-1"`)
	assert.Contains(t, html, `action="/stock-movements/sm-1/create"`)
	assert.Contains(t, html, "heads up")
	assert.Contains(t, html, `action="/auth/logout"`)
}

func TestFormatQuantity(t *testing.T) {
	assert.Equal(t, "1,234", FormatQuantity(1234))
	assert.Equal(t, "0", FormatQuantity(0))
	assert.Equal(t, "-12", FormatQuantity(-12))
}
