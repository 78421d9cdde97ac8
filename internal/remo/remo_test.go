package remo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	return c
}

func TestSendLight(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/1/appliances/app-1/light", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "on", r.PostForm.Get("button"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"brightness":"100","power":"on","last_button":"on"}`))
	})

	state, err := c.SendLight(context.Background(), "app-1", "")
	require.NoError(t, err)
	assert.Equal(t, LightState{Brightness: "100", Power: "on", LastButton: "on"}, *state)
}

func TestSendLight_Button(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "off", r.PostForm.Get("button"))
		_, _ = w.Write([]byte(`{"power":"off","last_button":"off"}`))
	})

	state, err := c.SendLight(context.Background(), "app-1", "off")
	require.NoError(t, err)
	assert.Equal(t, "off", state.Power)
}

func TestSendLight_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":401001,"message":"Unauthorized"}`, http.StatusUnauthorized)
	})

	_, err := c.SendLight(context.Background(), "app-1", "on")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSendLight_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "appliance not found", http.StatusNotFound)
	})

	_, err := c.SendLight(context.Background(), "missing", "on")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "appliance not found")
}

func TestSendLight_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := c.SendLight(context.Background(), "app-1", "on")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not unmarshal response")
}

func TestSendLight_EmptyAppliance(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.SendLight(context.Background(), "", "on")
	assert.Error(t, err)
}

func TestSendLight_ContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.SendLight(ctx, "app-1", "on")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAppliances(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/1/appliances", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":"a1","type":"LIGHT","nickname":"Living room"},{"id":"a2","type":"AC","nickname":"Bedroom"}]`))
	})

	got, err := c.Appliances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Appliance{
		{ID: "a1", Type: "LIGHT", Nickname: "Living room"},
		{ID: "a2", Type: "AC", Nickname: "Bedroom"},
	}, got)
}

func TestNew(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err, "empty token")

	c, err := New(Config{Token: "t"})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL.String())

	_, err = New(Config{Token: "t", BaseURL: "://bad"})
	assert.Error(t, err)
}
