package lambda

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bol-invoice-api/internal/config"
	"bol-invoice-api/pkg/server"
)

func TestRequestFromAPIGateway(t *testing.T) {
	event := events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/api/v1/invoices",
		Headers:               map[string]string{"Content-Type": "application/json"},
		QueryStringParameters: map[string]string{"tenantId": "tenant-1"},
		Body:                  base64.StdEncoding.EncodeToString([]byte(`{"orderId":"o-1"}`)),
		IsBase64Encoded:       true,
	}

	req, err := RequestFromAPIGateway(event)
	require.NoError(t, err)
	assert.Equal(t, `{"orderId":"o-1"}`, string(req.Body))

	httpReq, err := req.HTTPRequest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", httpReq.URL.Query().Get("tenantId"))
	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
	assert.Equal(t, int64(17), httpReq.ContentLength)

	_, err = RequestFromAPIGateway(events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true})
	assert.Error(t, err)
}

func TestResponseToAPIGateway(t *testing.T) {
	jsonResp := (&Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
		Body:       []byte(`{"ok":true}`),
	}).ToAPIGateway()
	assert.False(t, jsonResp.IsBase64Encoded)
	assert.Equal(t, `{"ok":true}`, jsonResp.Body)

	pdfResp := (&Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/pdf"},
		Body:       []byte("%PDF-1.4"),
	}).ToAPIGateway()
	assert.True(t, pdfResp.IsBase64Encoded)

	decoded, err := base64.StdEncoding.DecodeString(pdfResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(decoded))
}

func TestConnectionManagerHandle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "lambda.db"))
	t.Setenv("STORAGE_TYPE", "memory")
	t.Setenv("MARKETPLACE_ENABLED", "false")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	cfg, err := config.Load()
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cm := NewConnectionManager(cfg, server.WithLogger(logger))
	t.Cleanup(func() { _ = cm.Cleanup() })
	assert.False(t, cm.IsHealthy())

	resp, err := cm.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/api/v1/vat-rules",
		QueryStringParameters: map[string]string{
			"country":    "BE",
			"activeOnly": "true",
		},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, resp.Body)
	assert.True(t, cm.IsHealthy())

	var rules []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &rules))
	assert.NotEmpty(t, rules)

	resp, err = cm.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/api/v1/invoices"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	require.NoError(t, cm.Cleanup())
	assert.False(t, cm.IsHealthy())
}
