package lambda

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Request represents a generic HTTP request for serverless functions
type Request struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	Body        []byte            `json:"body"`
	PathParams  map[string]string `json:"path_params"`
}

// Response represents a generic HTTP response for serverless functions
type Response struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       []byte            `json:"body"`
}

// RequestFromAPIGateway converts an API Gateway proxy event, decoding base64 bodies
func RequestFromAPIGateway(event events.APIGatewayProxyRequest) (*Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode request body: %w", err)
		}
		body = decoded
	}

	query := make(map[string]string, len(event.QueryStringParameters))
	for key, value := range event.QueryStringParameters {
		query[key] = value
	}
	for key, values := range event.MultiValueQueryStringParameters {
		if len(values) > 0 {
			query[key] = values[len(values)-1]
		}
	}

	return &Request{
		Method:      event.HTTPMethod,
		Path:        event.Path,
		Headers:     event.Headers,
		QueryParams: query,
		Body:        body,
		PathParams:  event.PathParameters,
	}, nil
}

// HTTPRequest builds a net/http request carrying ctx
func (r *Request) HTTPRequest(ctx context.Context) (*http.Request, error) {
	target := r.Path
	if target == "" {
		target = "/"
	}
	if len(r.QueryParams) > 0 {
		values := url.Values{}
		for key, value := range r.QueryParams {
			values.Set(key, value)
		}
		target += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	req.ContentLength = int64(len(r.Body))
	return req, nil
}

// ToAPIGateway converts the response, base64 encoding non-text bodies
func (r *Response) ToAPIGateway() events.APIGatewayProxyResponse {
	response := events.APIGatewayProxyResponse{
		StatusCode: r.StatusCode,
		Headers:    r.Headers,
	}
	if isTextContent(r.Headers["Content-Type"]) {
		response.Body = string(r.Body)
	} else {
		response.Body = base64.StdEncoding.EncodeToString(r.Body)
		response.IsBase64Encoded = true
	}
	return response
}

// Serve runs a request through handler and captures the response
func Serve(ctx context.Context, handler http.Handler, req *Request) (*Response, error) {
	httpReq, err := req.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httpReq)

	headers := make(map[string]string, len(recorder.Header()))
	for key := range recorder.Header() {
		headers[key] = recorder.Header().Get(key)
	}

	return &Response{
		StatusCode: recorder.Code,
		Headers:    headers,
		Body:       recorder.Body.Bytes(),
	}, nil
}

func isTextContent(contentType string) bool {
	if contentType == "" {
		return true
	}
	contentType = strings.ToLower(contentType)
	return strings.HasPrefix(contentType, "text/") ||
		strings.Contains(contentType, "json") ||
		strings.Contains(contentType, "xml")
}

// ErrorResponse is returned when a request cannot be dispatched at all
func ErrorResponse(status int, message string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       fmt.Sprintf(`{"error":%q}`, message),
	}
}
