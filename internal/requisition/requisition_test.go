package requisition

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newLocalStore(t *testing.T) (*LocalStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocalStore(client, 0), mr
}

func intPtr(v int) *int { return &v }

func sampleRequisition() Requisition {
	return Requisition{
		OriginID:              "2",
		Version:               intPtr(3),
		LastUpdated:           "11/25/2012",
		Status:                "Created",
		DateRequested:         "11/12/2012",
		RequestedDeliveryDate: "11/13/2012",
		RequestedByID:         "23",
		RecipientProgram:      "test",
		Items: []Item{
			{ProductID: "prod1", Quantity: 300, Version: intPtr(1), Comment: "my comment1", Substitutable: true, Recipient: "peter", OrderIndex: 2},
			{ProductID: "prod2", Quantity: 400, Version: intPtr(2), Comment: "my comment2", Substitutable: false, Recipient: "tim", OrderIndex: 1},
		},
	}
}

type fakePoster struct {
	route   string
	path    string
	payload map[string]any
	reply   string
}

func (f *fakePoster) PostJSON(_ context.Context, route, path string, payload any, out any) error {
	f.route = route
	f.path = path
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &f.payload); err != nil {
		return err
	}
	return json.Unmarshal([]byte(f.reply), out)
}

const savedReply = `{"success": true, "data": {
	"id": "requisition1", "status": "CREATED", "lastUpdated": "14/Nov/2012 12:12 PM", "version": 0,
	"requisitionItems": [{"id": "item2", "orderIndex": 1, "version": 1}, {"id": "item1", "orderIndex": 2, "version": 2}]}}`

func TestPayloadExcludesServerFields(t *testing.T) {
	raw, err := json.Marshal(sampleRequisition().Payload())
	require.NoError(t, err)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(raw, &sent))

	require.Equal(t, "23", sent["requestedBy.id"])
	require.Equal(t, "2", sent["origin.id"])
	require.NotContains(t, sent, "version")
	require.NotContains(t, sent, "status")
	require.NotContains(t, sent, "lastUpdated")
	require.Equal(t, "test", sent["recipientProgram"])
	require.Equal(t, "11/13/2012", sent["requestedDeliveryDate"])

	items := sent["requisitionItems"].([]any)
	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	require.Equal(t, "prod1", first["product.id"])
	require.Equal(t, "prod2", second["product.id"])
	require.EqualValues(t, 300, first["quantity"])
	require.Equal(t, true, first["substitutable"])
	require.Equal(t, false, second["substitutable"])
	require.Equal(t, "tim", second["recipient"])
	require.Equal(t, "my comment1", first["comment"])
	require.NotContains(t, first, "version")
	require.NotContains(t, second, "version")
}

func TestSaveMergesResponseByOrderIndex(t *testing.T) {
	store, _ := newLocalStore(t)
	poster := &fakePoster{reply: savedReply}
	svc := NewService(poster, store, nil)

	saved, err := svc.Save(context.Background(), sampleRequisition())
	require.NoError(t, err)
	require.Equal(t, "/json/saveRequisition", poster.route)
	require.Equal(t, poster.route, poster.path)
	require.Equal(t, "requisition1", saved.ID)
	require.Equal(t, "CREATED", saved.Status)
	require.Equal(t, "14/Nov/2012 12:12 PM", saved.LastUpdated)
	require.Equal(t, 0, *saved.Version)
	require.Equal(t, "item1", saved.Items[0].ID)
	require.Equal(t, "item2", saved.Items[1].ID)
	require.Equal(t, 2, *saved.Items[0].Version)
	require.Equal(t, 1, *saved.Items[1].Version)

	cached, err := store.GetRequisitionFromLocal(context.Background(), "requisition1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	require.Equal(t, "item1", cached.Items[0].ID)
}

func TestSaveRejected(t *testing.T) {
	svc := NewService(&fakePoster{reply: `{"success": false, "errors": ["origin required"]}`}, nil, nil)

	_, err := svc.Save(context.Background(), sampleRequisition())
	require.ErrorIs(t, err, ErrSaveRejected)
}

func TestLocalRoundTrip(t *testing.T) {
	store, _ := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveToLocal(ctx, "test", map[string]string{"id": "1234", "name": "test"}))
	var got map[string]string
	found, err := store.GetFromLocal(ctx, "test", &got)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "1234", got["id"])
	require.Equal(t, "test", got["name"])
}

func TestSaveRequisitionToLocal(t *testing.T) {
	store, mr := newLocalStore(t)
	ctx := context.Background()

	key, err := store.SaveRequisitionToLocal(ctx, Requisition{ID: "1234", Name: "test"})
	require.NoError(t, err)
	require.Equal(t, "openboxesRequisition1234", key)

	var raw Requisition
	found, err := store.GetFromLocal(ctx, key, &raw)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "test", raw.Name)

	got, err := store.GetRequisitionFromLocal(ctx, "1234")
	require.NoError(t, err)
	require.Equal(t, "1234", got.ID)

	key, err = store.SaveRequisitionToLocal(ctx, Requisition{Name: "test"})
	require.NoError(t, err)
	require.Empty(t, key)
	require.Len(t, mr.Keys(), 1)
}

func TestHandlerLocalEndpoints(t *testing.T) {
	store, _ := newLocalStore(t)
	h := NewHandler(nil, store, NewService(&fakePoster{reply: savedReply}, store, nil))
	r := chi.NewRouter()
	r.Route("/requisitions", h.MountRoutes)

	body, err := json.Marshal(Requisition{ID: "1234", Name: "test"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requisitions/local", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"key":"openboxesRequisition1234"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requisitions/local/1234", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got Requisition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "test", got.Name)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/requisitions/local/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requisitions/local", bytes.NewReader([]byte(`{"name":"draft"}`))))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{}`, rec.Body.String())
}

func TestHandlerSave(t *testing.T) {
	store, _ := newLocalStore(t)
	h := NewHandler(nil, store, NewService(&fakePoster{reply: savedReply}, store, nil))
	r := chi.NewRouter()
	r.Route("/requisitions", h.MountRoutes)

	body, err := json.Marshal(sampleRequisition())
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requisitions/save", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var got Requisition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "requisition1", got.ID)
}
