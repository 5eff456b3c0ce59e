package syncdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const maxErrorBody = 512

var (
	errMissingEndpoint = errors.New("sync endpoint configuration required")
	// ErrInvalidRemoteConfig marks a rejected HTTPRemoteConfig.
	ErrInvalidRemoteConfig = errors.New("syncdriver: invalid remote config")
)

// HTTPRemoteConfig bundles configuration required to instantiate an HTTPRemote.
type HTTPRemoteConfig struct {
	// Endpoint receives each batch as a JSON POST and answers with an Ack.
	Endpoint   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// HTTPRemote pushes batches to a sync service over HTTP.
type HTTPRemote struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPRemote constructs a remote with validated configuration.
func NewHTTPRemote(cfg HTTPRemoteConfig) (*HTTPRemote, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRemoteConfig, errMissingEndpoint)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPRemote{endpoint: endpoint, httpClient: httpClient, logger: logger}, nil
}

func (r *HTTPRemote) Push(ctx context.Context, batch Batch) (Ack, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return Ack{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return Ack{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	response, err := r.httpClient.Do(req)
	if err != nil {
		return Ack{}, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		return Ack{}, fmt.Errorf("sync request returned status %d: %s", response.StatusCode, strings.TrimSpace(string(detail)))
	}

	var ack Ack
	if err := json.NewDecoder(response.Body).Decode(&ack); err != nil {
		return Ack{}, fmt.Errorf("decode ack: %w", err)
	}
	r.logger.Debug("sync batch pushed",
		zap.String("batch_id", batch.ID),
		zap.Int("rows", len(batch.Rows)),
		zap.Int("results", len(ack.Results)))
	return ack, nil
}
