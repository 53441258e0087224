package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orcidhub/orcidhub/internal/cachemanager"
)

func newFlashStore() *FlashStore {
	return NewFlashStore(cachemanager.NewInMemoryCacheManager[SessionKey, []Flash]("flash-test", time.Minute, 0), time.Minute)
}

func TestFlashStore_StartsSessionAndDeliversOnce(t *testing.T) {
	s := newFlashStore()

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	s.Add(w, r, SeverityWarning, "first")
	s.Add(w, r, SeverityDanger, "second")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1, "one session per request")
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 1, s.Len())

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	assert.Equal(t, []Flash{
		{Severity: SeverityWarning, Message: "first"},
		{Severity: SeverityDanger, Message: "second"},
	}, s.Take(next))
	assert.Empty(t, s.Take(next))
	assert.Equal(t, 0, s.Len())
}

func TestFlashStore_SessionsAreIsolated(t *testing.T) {
	s := newFlashStore()

	a := httptest.NewRequest(http.MethodGet, "/", nil)
	a.AddCookie(&http.Cookie{Name: SessionCookie, Value: "a"})
	b := httptest.NewRequest(http.MethodGet, "/", nil)
	b.AddCookie(&http.Cookie{Name: SessionCookie, Value: "b"})

	w := httptest.NewRecorder()
	s.Add(w, a, SeverityInfo, "for a")
	assert.Empty(t, w.Result().Cookies(), "an existing session is reused")

	assert.Empty(t, s.Take(b))
	assert.Len(t, s.Take(a), 1)
}

func TestFlashStore_NoCookie(t *testing.T) {
	s := newFlashStore()
	assert.Nil(t, s.Take(httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestFlashStore_Flush(t *testing.T) {
	s := newFlashStore()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	s.Add(httptest.NewRecorder(), r, SeveritySuccess, "done")
	require.Equal(t, 1, s.Len())

	require.NoError(t, s.Flush(r.Context()))
	assert.Equal(t, 0, s.Len())
}
