package plugins

import (
	"encoding/json"
	"fmt"
)

// ProtocolVersion is sent with every request to external command plugins
const ProtocolVersion = "1"

// Request is the JSON document written to the stdin of an external command plugin
type Request struct {
	Hook    string         `json:"hook"`
	Output  string         `json:"output"`
	Version string         `json:"version"`
	Book    map[string]any `json:"book"`
	Config  map[string]any `json:"config"`
	// Page is set for page:before and page
	Page *PageInput `json:"page,omitempty"`
}

// Response is the JSON document an external command plugin writes to stdout.
// Missing fields leave the book unchanged.
type Response struct {
	Content *string        `json:"content,omitempty"`
	Config  map[string]any `json:"config,omitempty"`
}

// UnmarshalRequest decodes a request
func UnmarshalRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("invalid plugin request: %w", err)
	}
	return &req, nil
}

// UnmarshalResponse decodes a response; empty output is an empty response
func UnmarshalResponse(data []byte) (*Response, error) {
	var resp Response
	if len(data) == 0 {
		return &resp, nil
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("invalid plugin response: %w", err)
	}
	return &resp, nil
}
