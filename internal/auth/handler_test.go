package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/stockwizard/internal/appstate"
	"github.com/odyssey-erp/stockwizard/internal/auth"
	"github.com/odyssey-erp/stockwizard/internal/openboxes"
	"github.com/odyssey-erp/stockwizard/internal/shared"
	"github.com/odyssey-erp/stockwizard/internal/view"
	_ "github.com/odyssey-erp/stockwizard/testing"
)

type stubUpstream struct {
	password string
	cookie   string
	info     openboxes.SessionInfo
	seen     string
}

func (s *stubUpstream) Login(_ context.Context, _, password string) (string, error) {
	if password != s.password {
		return "", openboxes.ErrUnauthenticated
	}
	return s.cookie, nil
}

func (s *stubUpstream) Session(ctx context.Context) (openboxes.SessionInfo, error) {
	s.seen = openboxes.SessionFromContext(ctx)
	return s.info, nil
}

type stubRepo struct {
	created map[string]string
	deleted []string
}

func (s *stubRepo) CreateSession(_ context.Context, id, userID, _ string, _ time.Time, _, _ string) error {
	if s.created == nil {
		s.created = map[string]string{}
	}
	s.created[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(_ context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubWarmer struct {
	langs []string
}

func (s *stubWarmer) EnqueueWarmTranslations(_ context.Context, lang string) error {
	s.langs = append(s.langs, lang)
	return nil
}

type fixture struct {
	handler  *auth.Handler
	sessions *shared.SessionManager
	upstream *stubUpstream
	repo     *stubRepo
	warmer   *stubWarmer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	f := &fixture{
		sessions: sessions,
		upstream: &stubUpstream{password: "password", cookie: "JSESSION-1", info: openboxes.SessionInfo{User: openboxes.Person{ID: "user-7"}, ActiveLanguage: "fr"}},
		repo:     &stubRepo{},
		warmer:   &stubWarmer{},
	}
	service := auth.NewService(f.upstream, f.repo, f.warmer, nil)
	f.handler = auth.NewHandler(nil, service, templates, sessions, shared.NewCSRFManager("csrfsecret"), appstate.NewLanguages([]string{"en", "fr"}))
	return f
}

// serve runs req through the handler with a loaded and committed session.
func (f *fixture) serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	sess, err := f.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	require.NoError(t, f.sessions.Commit(ctx, res, req, sess))
	return res, sess
}

func (f *fixture) router() http.Handler {
	return chiRouter(f.handler)
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage(t *testing.T) {
	f := newFixture(t)

	res, sess := f.serve(t, f.router(), httptest.NewRequest(http.MethodGet, "/auth/login?next=/stock-movements/new", nil))

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "<form")
	require.Contains(t, res.Body.String(), `value="/stock-movements/new"`)
	require.NotEmpty(t, sess.Get(shared.CSRFSessionKey))
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := newFixture(t)

	res, sess := f.serve(t, f.router(), postForm("/auth/login", url.Values{"username": {"jane"}, "password": {"wrong"}}))

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "Invalid username or password")
	require.Empty(t, sess.User())
	require.Empty(t, f.warmer.langs)
}

func TestLoginRequiresFields(t *testing.T) {
	f := newFixture(t)

	res, _ := f.serve(t, f.router(), postForm("/auth/login", url.Values{"username": {""}}))

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), "This field is required")
}

func TestLoginStoresUpstreamSession(t *testing.T) {
	f := newFixture(t)

	res, sess := f.serve(t, f.router(), postForm("/auth/login", url.Values{
		"username": {"jane"},
		"password": {"password"},
		"next":     {"/stock-movements/new"},
	}))

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/stock-movements/new", res.Header().Get("Location"))
	require.Equal(t, "user-7", sess.User())
	require.Equal(t, "JSESSION-1", sess.Get(shared.UpstreamSessionKey))
	require.Equal(t, "fr", sess.Get(shared.LanguageSessionKey))
	require.Equal(t, "JSESSION-1", f.upstream.seen)
	require.Equal(t, "user-7", f.repo.created[sess.ID])
	require.Equal(t, []string{"fr"}, f.warmer.langs)
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	f := newFixture(t)

	res, _ := f.serve(t, f.router(), postForm("/auth/login", url.Values{
		"username": {"jane"},
		"password": {"password"},
		"next":     {"//evil.example/"},
	}))

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/", res.Header().Get("Location"))
}

func TestRequireLogin(t *testing.T) {
	f := newFixture(t)
	var cookie string
	protected := f.handler.RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = openboxes.SessionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	res, sess := f.serve(t, protected, httptest.NewRequest(http.MethodGet, "/stock-movements/new", nil))
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "/auth/login?next=%2Fstock-movements%2Fnew", res.Header().Get("Location"))

	sess.SetUser("user-7")
	sess.Set(shared.UpstreamSessionKey, "JSESSION-1")
	require.NoError(t, f.sessions.Commit(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess))

	req := httptest.NewRequest(http.MethodGet, "/stock-movements/new", nil)
	req.AddCookie(&http.Cookie{Name: f.sessions.CookieName(), Value: f.sessions.CookieValue(sess)})
	res, _ = f.serve(t, protected, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "JSESSION-1", cookie)
}

func TestLanguageSwitch(t *testing.T) {
	f := newFixture(t)

	res, sess := f.serve(t, f.router(), postForm("/auth/language", url.Values{"lang": {"fr"}, "next": {"/stock-movements/new"}}))
	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, "fr", sess.Get(shared.LanguageSessionKey))
	require.Equal(t, []string{"fr"}, f.warmer.langs)

	res, _ = f.serve(t, f.router(), postForm("/auth/language", url.Values{"lang": {"xx"}}))
	require.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLogoutRemovesSession(t *testing.T) {
	f := newFixture(t)

	res, sess := f.serve(t, f.router(), postForm("/auth/logout", nil))

	require.Equal(t, http.StatusSeeOther, res.Code)
	require.Equal(t, []string{sess.ID}, f.repo.deleted)
}

func chiRouter(h *auth.Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/auth", h.MountRoutes)
	return r
}
