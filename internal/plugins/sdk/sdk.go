// Package sdk provides helpers for writing folio command plugins in Go.
//
// A command plugin is declared in book.json with the hooks it handles:
//
//	"pluginsConfig": {
//		"reading-time": {
//			"command": "go run ./plugins/reading-time",
//			"hooks": ["page:before"]
//		}
//	}
//
// and implemented with Serve:
//
//	func main() {
//		err := sdk.Serve(os.Stdin, os.Stdout, sdk.Handlers{
//			PageBefore: func(req *plugins.Request) (string, error) {
//				return req.Page.Content + "\n\n---\nGenerated", nil
//			},
//		})
//		if err != nil {
//			log.Fatal(err)
//		}
//	}
package sdk

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/geocine/folio/internal/plugins"
)

// Handlers are the hooks a command plugin implements, nil entries leave the book unchanged
type Handlers struct {
	// Config returns the new configuration values, nil keeps them
	Config func(req *plugins.Request) (map[string]any, error)
	// Lifecycle handles init, finish:before and finish
	Lifecycle func(req *plugins.Request) error
	// PageBefore receives the page source and returns the new one, "" keeps it
	PageBefore func(req *plugins.Request) (string, error)
	// Page receives the page HTML and returns the new one, "" keeps it
	Page func(req *plugins.Request) (string, error)
}

// ReadRequest reads a plugin request from r
func ReadRequest(r io.Reader) (*plugins.Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return plugins.UnmarshalRequest(data)
}

// WriteResponse writes a plugin response to w
func WriteResponse(w io.Writer, resp *plugins.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write stdout: %w", err)
	}
	return nil
}

// Serve reads one request from r, dispatches it to h and writes the response to w
func Serve(r io.Reader, w io.Writer, h Handlers) error {
	req, err := ReadRequest(r)
	if err != nil {
		return err
	}

	resp := &plugins.Response{}
	switch req.Hook {
	case plugins.HookConfig:
		if h.Config != nil {
			if resp.Config, err = h.Config(req); err != nil {
				return err
			}
		}
	case plugins.HookInit, plugins.HookFinishBefore, plugins.HookFinish:
		if h.Lifecycle != nil {
			if err := h.Lifecycle(req); err != nil {
				return err
			}
		}
	case plugins.HookPageBefore, plugins.HookPage:
		handler := h.PageBefore
		if req.Hook == plugins.HookPage {
			handler = h.Page
		}
		if handler != nil && req.Page != nil {
			content, err := handler(req)
			if err != nil {
				return err
			}
			if content != "" {
				resp.Content = &content
			}
		}
	default:
		return fmt.Errorf("unknown hook %q", req.Hook)
	}

	return WriteResponse(w, resp)
}

// PluginConfig returns pluginsConfig.<name> from the request configuration
func PluginConfig(req *plugins.Request, name string) map[string]any {
	all, _ := req.Config["pluginsConfig"].(map[string]any)
	cfg, _ := all[name].(map[string]any)
	if cfg == nil {
		return map[string]any{}
	}
	return cfg
}

// ReplaceTokens replaces the %name% placeholders of content with values[name]
func ReplaceTokens(content string, values map[string]string) string {
	if len(values) == 0 {
		return content
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "%"+k+"%", v)
	}
	return strings.NewReplacer(pairs...).Replace(content)
}
