package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/posegate/internal/app"
	"github.com/ayusman/posegate/internal/config"
	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/server"
	"github.com/ayusman/posegate/internal/store"
	"github.com/ayusman/posegate/testdata"
)

// installRecorderPlugin writes a plugin that appends each request to
// calls.log in its directory.
func installRecorderPlugin(t *testing.T, root string) string {
	t.Helper()
	dir := filepath.Join(root, "recorder")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name": "recorder", "version": "0.1.0", "executable": "run.sh", "actions": ["on"]}`
	if err := os.WriteFile(filepath.Join(dir, plugin.ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	script := "#!/bin/sh\ncat >> \"$(dirname \"$0\")/calls.log\"\necho >> \"$(dirname \"$0\")/calls.log\"\necho '{\"success\":true}'\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "calls.log")
}

func TestE2E_GestureToPluginAction(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	tmpDir := t.TempDir()
	s, err := store.New(filepath.Join(tmpDir, "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	cfg := config.Default()
	cfg.Actuation.PluginDir = filepath.Join(tmpDir, "plugins")
	callLog := installRecorderPlugin(t, cfg.Actuation.PluginDir)

	plugins := plugin.NewManager(cfg.Actuation.PluginDir, nil)
	if err := plugins.Discover(); err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	act, err := app.NewActuator(cfg, s, plugins, nil)
	if err != nil {
		t.Fatalf("NewActuator() error = %v", err)
	}

	hub := server.NewHub(nil)
	acfg := app.FromConfig(cfg)
	acfg.Store = s
	acfg.Actuator = act
	acfg.Broadcaster = hub
	pipeline, err := app.New(acfg)
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	srv := server.New(server.Config{Store: s, Control: pipeline, Plugins: plugins, Hub: hub})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pipeline.StartDispatcher(ctx)

	t.Run("BindGesture", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/bindings", "application/json",
			strings.NewReader(`{"label": "left_wrist_up", "plugin_name": "recorder", "action_name": "on", "config": {"room": "study"}}`))
		if err != nil {
			t.Fatalf("create binding error = %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	t.Run("ReplayFires", func(t *testing.T) {
		frames, err := testdata.LoadSequence(testdata.LeftWristUp)
		if err != nil {
			t.Fatal(err)
		}
		fired := 0
		for _, f := range frames {
			ev, err := pipeline.ProcessFrame(f)
			if err != nil {
				t.Fatalf("ProcessFrame() error = %v", err)
			}
			if ev.Fired() {
				fired++
			}
		}
		if fired != 1 {
			t.Fatalf("fired = %d, want 1", fired)
		}
	})

	t.Run("WebsocketPush", func(t *testing.T) {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg struct {
			Type  string `json:"type"`
			Event struct {
				Label string `json:"label"`
				Frame uint64 `json:"frame"`
			} `json:"event"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read websocket: %v", err)
		}
		if msg.Type != "fired" || msg.Event.Label != "LEFT_WRIST_UP" || msg.Event.Frame != 10 {
			t.Errorf("unexpected message %+v", msg)
		}
	})

	t.Run("PluginInvoked", func(t *testing.T) {
		var data []byte
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			data, _ = os.ReadFile(callLog)
			if len(data) > 0 {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		var req plugin.Request
		if err := json.Unmarshal([]byte(strings.TrimSpace(string(data))), &req); err != nil {
			t.Fatalf("plugin request %q: %v", data, err)
		}
		if req.Gesture != "LEFT_WRIST_UP" || req.Action != "on" || req.EventID == "" {
			t.Errorf("unexpected request %+v", req)
		}
		if !strings.Contains(string(req.Config), "study") {
			t.Errorf("binding config not forwarded: %s", req.Config)
		}
	})

	t.Run("EventLogged", func(t *testing.T) {
		var list struct {
			Events []struct {
				Label    string `json:"label"`
				Actuated bool   `json:"actuated"`
			} `json:"events"`
			Total int `json:"total"`
		}
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			resp, err := client.Get(ts.URL + "/api/events")
			if err != nil {
				t.Fatalf("list events error = %v", err)
			}
			json.NewDecoder(resp.Body).Decode(&list)
			resp.Body.Close()
			if len(list.Events) == 1 && list.Events[0].Actuated {
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		t.Errorf("expected one actuated event, got %+v", list)
	})

	t.Run("StatusReflectsSession", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var st struct {
			Enabled bool `json:"enabled"`
			Session struct {
				Window    []string `json:"window"`
				LastFired string   `json:"last_fired"`
			} `json:"session"`
		}
		json.NewDecoder(resp.Body).Decode(&st)
		if !st.Enabled || st.Session.LastFired != "LEFT_WRIST_UP" || len(st.Session.Window) != 2 {
			t.Errorf("unexpected status %+v", st)
		}
	})
}

func TestE2E_PausedPipelineIgnoresFrames(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	acfg := app.FromConfig(config.Default())
	acfg.Store = s
	pipeline, err := app.New(acfg)
	if err != nil {
		t.Fatal(err)
	}

	srv := server.New(server.Config{Store: s, Control: pipeline})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := ts.Client().Post(ts.URL+"/api/enabled", "application/json", strings.NewReader(`{"enabled": false}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	frames, _ := testdata.LoadSequence(testdata.LeftWristUp)
	for _, f := range frames {
		ev, err := pipeline.ProcessFrame(f)
		if err != nil || ev.Fired() {
			t.Fatalf("paused pipeline evaluated a frame: %+v, %v", ev, err)
		}
	}
	if n, _ := s.Events().Count(""); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}
