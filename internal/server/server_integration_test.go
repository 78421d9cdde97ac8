package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/store"
)

type pluginSet map[string]*plugin.Plugin

func (p pluginSet) Get(name string) (*plugin.Plugin, error) {
	if pl, ok := p[name]; ok {
		return pl, nil
	}
	return nil, plugin.ErrPluginNotFound
}

func (p pluginSet) List() []*plugin.Plugin {
	var out []*plugin.Plugin
	for _, pl := range p {
		out = append(out, pl)
	}
	return out
}

func TestAPI_BindingWorkflow(t *testing.T) {
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	plugins := pluginSet{"nature-remo": {Manifest: plugin.Manifest{Name: "nature-remo", Actions: []string{"on"}}}}
	srv := New(Config{Store: s, Plugins: plugins})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	// 1. Bind the gesture to the light
	createBody := `{"label": "LEFT_WRIST_UP", "plugin_name": "nature-remo", "action_name": "on"}`
	resp, err := client.Post(ts.URL+"/api/bindings", "application/json", bytes.NewBufferString(createBody))
	if err != nil {
		t.Fatalf("POST /api/bindings error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	var created struct {
		ID string `json:"id"`
	}
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// 2. The binding is visible to the actuation path
	bound, err := s.Bindings().ListByLabel("LEFT_WRIST_UP")
	if err != nil || len(bound) != 1 || bound[0].ID != created.ID {
		t.Fatalf("ListByLabel = %v, %v", bound, err)
	}

	// 3. Plugins are listed
	resp, _ = client.Get(ts.URL + "/api/plugins")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/plugins status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// 4. A fired event shows up in the log
	if err := s.Events().Create(&store.Event{ID: "e1", SessionID: "s", Label: "LEFT_WRIST_UP", Capacity: 10, Required: 8, ModeCount: 10, FiredAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	resp, _ = client.Get(ts.URL + "/api/events?label=LEFT_WRIST_UP")
	var events struct {
		Events []struct {
			ID string `json:"id"`
		} `json:"events"`
	}
	json.NewDecoder(resp.Body).Decode(&events)
	resp.Body.Close()
	if len(events.Events) != 1 || events.Events[0].ID != "e1" {
		t.Fatalf("events = %+v", events)
	}

	// 5. Toggle detection off through the persisted setting
	resp, _ = client.Post(ts.URL+"/api/enabled", "application/json", bytes.NewBufferString(`{"enabled": false}`))
	resp.Body.Close()
	resp, _ = client.Get(ts.URL + "/api/status")
	var status struct {
		Enabled bool `json:"enabled"`
	}
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if status.Enabled {
		t.Error("status still enabled after toggle")
	}

	// 6. Delete the binding
	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/bindings/"+created.ID, nil)
	resp, _ = client.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	resp.Body.Close()
}

func TestAPI_HealthCheck(t *testing.T) {
	srv := New(Config{})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var health struct {
		Status string `json:"status"`
		Uptime string `json:"uptime"`
	}
	json.NewDecoder(resp.Body).Decode(&health)

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
}
