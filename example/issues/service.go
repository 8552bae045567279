// Package issues exposes an example tool backed by the issue-tracker
// provider. It demonstrates how a tool handler reads the per-connection auth
// info the transport attached, without ever seeing the raw credential.
package issues

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/viant/jsonrpc"
	"github.com/viant/mcp-protocol/schema"
	protoserver "github.com/viant/mcp-protocol/server"

	"github.com/plexora/authbridge/registry"
)

// Config holds the tracker API location the tool queries.
type Config struct {
	APIBaseURL string `json:"apiBaseURL"`
}

// ListInput selects the issues to list.
type ListInput struct {
	Project string `json:"project"`
	Limit   int    `json:"limit,omitempty"`
}

// Issue is one tracker issue in the tool output.
type Issue struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Status  string `json:"status"`
}

// ListOutput is the structured tool result.
type ListOutput struct {
	Issues []Issue `json:"issues"`
}

// Service implements the issues tool.
type Service struct {
	config     *Config
	httpClient *http.Client
}

// NewService creates the issues tool service.
func NewService(config *Config) *Service {
	return &Service{
		config:     config,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewHandler returns a protocol handler factory with the issues tool
// registered.
func NewHandler(config *Config) protoserver.NewHandler {
	service := NewService(config)
	return protoserver.WithDefaultHandler(context.Background(), func(handler *protoserver.DefaultHandler) error {
		return protoserver.RegisterTool[*ListInput, *ListOutput](
			handler.Registry,
			"issuesList",
			"List issues for a project",
			service.List,
		)
	})
}

// List fetches issues from the tracker API using the connection's tracker
// access token.
func (s *Service) List(ctx context.Context, input *ListInput) (*schema.CallToolResult, *jsonrpc.Error) {
	payload, err := registry.FromContext(ctx)
	if err != nil {
		return nil, &jsonrpc.Error{Code: schema.Unauthorized, Message: "Unauthorized: connection has no credential"}
	}
	tokenSet, ok := payload.TokenSet("tracker")
	if !ok {
		return nil, &jsonrpc.Error{Code: schema.Unauthorized, Message: "Unauthorized: credential does not cover the tracker provider"}
	}

	output, err := s.fetch(ctx, input, tokenSet.AccessToken)
	if err != nil {
		return nil, jsonrpc.NewInternalError(err.Error(), nil)
	}

	data, err := json.Marshal(output)
	if err != nil {
		return nil, jsonrpc.NewInternalError(err.Error(), nil)
	}
	structured := map[string]interface{}{}
	if err := json.Unmarshal(data, &structured); err != nil {
		return nil, jsonrpc.NewInternalError(err.Error(), nil)
	}
	return &schema.CallToolResult{
		StructuredContent: structured,
		Content: []schema.CallToolResultContentElem{
			{Text: string(data), Type: "text"},
		},
	}, nil
}

func (s *Service) fetch(ctx context.Context, input *ListInput, accessToken string) (*ListOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	endpoint := fmt.Sprintf("%s/projects/%s/issues?limit=%d", s.config.APIBaseURL, input.Project, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker api returned status %d", resp.StatusCode)
	}
	output := &ListOutput{}
	if err := json.Unmarshal(body, &output.Issues); err != nil {
		return nil, fmt.Errorf("malformed tracker response: %w", err)
	}
	return output, nil
}
