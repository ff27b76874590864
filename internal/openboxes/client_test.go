package openboxes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	path   string
	query  string
	cookie string
	body   map[string]any
}

type fakeBackend struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (f *fakeBackend) record(r *http.Request) {
	rc := recordedCall{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		rc.cookie = c.Value
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&rc.body)
	}
	f.mu.Lock()
	f.calls = append(f.calls, rc)
	f.mu.Unlock()
}

type countingObserver struct {
	routes []string
}

func (o *countingObserver) ObserveUpstream(method, route string, status int, _ time.Duration) {
	o.routes = append(o.routes, method+" "+route)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *fakeBackend, *countingObserver) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backend.record(r)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	obs := &countingObserver{}
	return NewClient(srv.URL+"/openboxes", time.Second, WithObserver(obs)), backend, obs
}

func TestSaveStockMovementCreatesWithDottedKeys(t *testing.T) {
	client, backend, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"sm1","identifier":"AB12","name":"AB12.Ward","lineItems":[{"id":"li1"}]}}`))
	})

	ctx := WithSession(context.Background(), "upstream-cookie")
	sm, err := client.SaveStockMovement(ctx, "", map[string]any{"origin.id": "o1", "destination.id": "d1", "forceUpdate": ""})
	require.NoError(t, err)
	require.Equal(t, "sm1", sm.ID)
	require.Equal(t, "AB12", sm.Identifier)
	require.Len(t, sm.LineItems, 1)

	require.Len(t, backend.calls, 1)
	call := backend.calls[0]
	require.Equal(t, http.MethodPost, call.method)
	require.Equal(t, "/openboxes/api/stockMovements", call.path)
	require.Equal(t, "upstream-cookie", call.cookie)
	require.Equal(t, "o1", call.body["origin.id"])
	require.Equal(t, []string{"POST /api/stockMovements"}, obs.routes)
}

func TestSaveStockMovementUpdatesByID(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"sm1"}}`))
	})
	_, err := client.SaveStockMovement(context.Background(), "sm1", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "/openboxes/api/stockMovements/sm1", backend.calls[0].path)
}

func TestStepDataDecodesEditPage(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"statusCode":"VERIFYING","editPage":{"editPageItems":[
			{"requisitionItemId":"r1","quantityRequested":10,"quantityAvailable":-2,"quantityRevised":null},
			{"requisitionItemId":"r2","quantityRequested":5,"quantityAvailable":5,"quantityRevised":3,"reasonCode":"DAMAGED","statusCode":"CHANGED"}
		]}}}`))
	})
	data, err := client.StepData(context.Background(), "sm1", 3)
	require.NoError(t, err)
	require.Equal(t, "stepNumber=3", backend.calls[0].query)
	require.Equal(t, StatusVerifying, data.StatusCode)
	require.NotNil(t, data.EditPage)
	require.Len(t, data.EditPage.EditPageItems, 2)
	require.Nil(t, data.EditPage.EditPageItems[0].QuantityRevised)
	require.Equal(t, 3, *data.EditPage.EditPageItems[1].QuantityRevised)
}

func TestRevertItemPostsRevertFlag(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"editPage":{"editPageItems":[{"requisitionItemId":"r1","quantityRequested":4}]}}}`))
	})
	page, err := client.RevertItem(context.Background(), "sm1", "r1")
	require.NoError(t, err)
	require.Len(t, page.EditPageItems, 1)

	call := backend.calls[0]
	require.Equal(t, "stepNumber=3", call.query)
	require.Equal(t, "sm1", call.body["id"])
	lines := call.body["lineItems"].([]any)
	require.Equal(t, map[string]any{"id": "r1", "revert": "true"}, lines[0])
}

func TestSavePackItemsFlattensNestedRecipient(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"packPage":{"packPageItems":[{"shipmentItemId":"s1","quantityShipped":7,"palletName":"P1"}]}}}`))
	})
	page, err := client.SavePackItems(context.Background(), "sm1", []PackPageItem{{
		ShipmentItemID:  "s1",
		QuantityShipped: 7,
		Recipient:       &Person{ID: "u1"},
	}})
	require.NoError(t, err)
	require.Equal(t, "P1", page.PackPageItems[0].PalletName)

	call := backend.calls[0]
	require.Equal(t, "5", call.body["stepNumber"])
	items := call.body["packPageItems"].([]any)
	first := items[0].(map[string]any)
	require.Equal(t, "u1", first["recipient.id"])
	_, nested := first["recipient"]
	require.False(t, nested)
}

func TestMissingPageIsMalformed(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{}}`))
	})
	ctx := context.Background()

	_, err := client.RevertItem(ctx, "sm1", "r1")
	require.ErrorIs(t, err, ErrMalformedResponse)

	_, err = client.SavePackItems(ctx, "sm1", []PackPageItem{{ShipmentItemID: "s1", QuantityShipped: 1}})
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestUpdateStatusPostsToStatusRoute(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	err := client.UpdateStatus(context.Background(), "sm1", StatusUpdate{Status: StatusPicking, CreatePicklist: "true"})
	require.NoError(t, err)
	require.Equal(t, "/openboxes/api/stockMovements/sm1/status", backend.calls[0].path)
	require.Equal(t, "PICKING", backend.calls[0].body["status"])
	require.Equal(t, "true", backend.calls[0].body["createPicklist"])
}

func TestAPIErrorCarriesStatusAndMessage(t *testing.T) {
	client, _, obs := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errorMessage":"Quantity exceeds available"}`))
	})
	err := client.ReviseItems(context.Background(), "sm1", []RevisedLineItem{{ID: "r1", QuantityRevised: 2, ReasonCode: "X"}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "Quantity exceeds available", apiErr.Message)
	require.Len(t, obs.routes, 1)
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := client.ReasonCodes(context.Background())
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoginReturnsSessionCookie(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "abc123"})
		w.WriteHeader(http.StatusOK)
	})
	cookie, err := client.Login(context.Background(), "admin", "password")
	require.NoError(t, err)
	require.Equal(t, "abc123", cookie)
	require.Equal(t, "admin", backend.calls[0].body["username"])
}

func TestLocalizationsQueriesLanguage(t *testing.T) {
	client, backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":{"react.default.button.next.label":"Next"}}`))
	})
	msgs, err := client.Localizations(context.Background(), "fr")
	require.NoError(t, err)
	require.Equal(t, "lang=fr", backend.calls[0].query)
	require.Equal(t, "Next", msgs["react.default.button.next.label"])
}

func TestFlattenKeepsArraysAndFlattensObjects(t *testing.T) {
	out, err := Flatten(map[string]any{
		"origin": map[string]any{"id": "o1", "type": map[string]any{"code": "DEPOT"}},
		"items":  []any{map[string]any{"product": map[string]any{"id": "p1"}, "quantity": 2}},
		"name":   "x",
	})
	require.NoError(t, err)
	require.Equal(t, "o1", out["origin.id"])
	require.Equal(t, "DEPOT", out["origin.type.code"])
	require.Equal(t, "x", out["name"])
	items := out["items"].([]any)
	require.Equal(t, "p1", items[0].(map[string]any)["product.id"])
}
