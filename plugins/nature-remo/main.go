// Package main is a posegate plugin that presses a light button on a
// Nature Remo appliance. The action name is the button.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ayusman/posegate/internal/plugin"
	"github.com/ayusman/posegate/internal/remo"
)

// Config is the binding config for this plugin.
type Config struct {
	ApplianceID string `json:"appliance_id"`
	// Token falls back to REMO_TOKEN.
	Token   string `json:"token"`
	BaseURL string `json:"base_url"`
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(plugin.Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	writeResponse(handle(ctx, &req, os.Getenv))
}

// handle presses the button named by req.Action.
func handle(ctx context.Context, req *plugin.Request, getenv func(string) string) plugin.Response {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return plugin.Response{Error: fmt.Sprintf("failed to parse config: %v", err)}
		}
	}
	if cfg.ApplianceID == "" {
		return plugin.Response{Error: "appliance_id is required"}
	}
	if cfg.Token == "" {
		cfg.Token = getenv("REMO_TOKEN")
	}

	switch req.Action {
	case "on", "off", "night", "onoff":
	default:
		return plugin.Response{Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}

	client, err := remo.New(remo.Config{BaseURL: cfg.BaseURL, Token: cfg.Token})
	if err != nil {
		return plugin.Response{Error: err.Error()}
	}
	state, err := client.SendLight(ctx, cfg.ApplianceID, req.Action)
	if err != nil {
		return plugin.Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)}
	}

	data, err := json.Marshal(state)
	if err != nil {
		return plugin.Response{Error: err.Error()}
	}
	return plugin.Response{Success: true, Data: data}
}

// writeResponse writes resp to stdout.
func writeResponse(resp plugin.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
