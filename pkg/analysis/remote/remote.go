// Package remote is the HTTP analysis provider: it fetches layer data
// from a running `onionscope serve` instance.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"onionscope/pkg/analysis"
	"onionscope/pkg/errors"
	"onionscope/pkg/graph"
	"onionscope/pkg/onion"
)

// DefaultTimeout bounds each request when the caller's context carries no
// deadline of its own.
const DefaultTimeout = 30 * time.Second

// Provider fetches analysis data over HTTP.
type Provider struct {
	base   string
	client *http.Client
}

// NewProvider creates a provider for the serve API at base, e.g.
// "http://localhost:7317". The trailing slash is optional.
func NewProvider(base string, client *http.Client) *Provider {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Provider{base: strings.TrimRight(base, "/"), client: client}
}

func (p *Provider) FetchLayerData(ctx context.Context, layer onion.Layer, focusID string) (onion.Payload, error) {
	if !layer.Valid() {
		return nil, errors.New(errors.ErrCodeInvalidLayer, "unknown layer %d", int(layer))
	}
	if err := errors.ValidateFocusID(focusID); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/layers/%s", p.base, layer)
	if focusID != "" {
		endpoint += "?focus=" + url.QueryEscape(focusID)
	}
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	return analysis.UnmarshalPayload(layer, body)
}

func (p *Provider) FetchModuleFiles(ctx context.Context, modulePath string) ([]graph.ModuleFile, error) {
	if err := errors.ValidateModulePath(modulePath); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/modules/files?path=%s", p.base, url.QueryEscape(modulePath))
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var files []graph.ModuleFile
	if err := json.Unmarshal(body, &files); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed file listing for %s", modulePath)
	}
	return files, nil
}

func (p *Provider) FetchFileAnnotation(ctx context.Context, filePath string) (graph.Annotation, error) {
	endpoint := fmt.Sprintf("%s/api/annotation?path=%s", p.base, url.QueryEscape(filePath))
	body, err := p.get(ctx, endpoint)
	if err != nil {
		return graph.Annotation{}, err
	}

	var ann graph.Annotation
	if err := json.Unmarshal(body, &ann); err != nil {
		return graph.Annotation{}, errors.Wrap(errors.ErrCodeInvalidFormat, err, "malformed annotation for %s", filePath)
	}
	return ann, nil
}

// apiError is the serve API's JSON error envelope.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// get performs one request and returns the response body. Transport
// failures map to NETWORK_ERROR; API failures keep the server's own code.
func (p *Provider) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "failed to read response from %s", endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Code != "" {
			return nil, errors.New(errors.Code(apiErr.Error.Code), "%s", apiErr.Error.Message)
		}
		return nil, errors.New(errors.ErrCodeFetchFailed, "%s returned status %d", endpoint, resp.StatusCode)
	}
	return body, nil
}

var _ analysis.Provider = (*Provider)(nil)
