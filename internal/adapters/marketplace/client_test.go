package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testCreds = Credentials{ClientID: "client-1", ClientSecret: "secret-1"}

func newTestClient(t *testing.T, server *httptest.Server, fetches *int32) *Client {
	t.Helper()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.TokenURL = server.URL + "/token"
	cfg.PollInterval = time.Millisecond
	cfg.MaxPollAttempts = 3
	cfg.RequestsPerSecond = 0

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewClient(cfg, logger, WithTokenFetcher(func(ctx context.Context, creds Credentials) (*oauth2.Token, error) {
		n := atomic.AddInt32(fetches, 1)
		return &oauth2.Token{
			AccessToken: "token-" + string(rune('0'+n)),
			Expiry:      time.Now().Add(5 * time.Minute),
		}, nil
	}))
}

const orderJSON = `{
  "orderId": "A2K8290LP8",
  "orderPlacedDateTime": "2024-03-01T10:15:00+01:00",
  "shipmentDetails": {"countryCode": "FR", "city": "Paris", "zipCode": "75001"},
  "billingDetails": {
    "firstName": "Marie", "surname": "Dupont", "streetName": "Rue de Rivoli", "houseNumber": "12",
    "zipCode": "75001", "city": "Paris", "countryCode": "FR", "email": "marie@example.fr",
    "company": "Dupont SARL", "vatNumber": "FR12345678901"
  },
  "orderItems": [
    {"orderItemId": "1", "quantity": 3, "unitPrice": 12.10, "product": {"ean": "8712345678906", "title": "Desk lamp"}}
  ]
}`

func TestClient_GetOrder(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AcceptHeader, r.Header.Get("Accept"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/orders/A2K8290LP8":
			w.Header().Set("Content-Type", AcceptHeader)
			_, _ = io.WriteString(w, orderJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, &fetches)

	order, err := client.GetOrder(context.Background(), testCreds, "A2K8290LP8")
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, "A2K8290LP8", order.ID)
	assert.Equal(t, "A2K8290LP8", order.GetMarketplaceOrderID())
	assert.Equal(t, "FR", order.ShippingCountryCode)
	assert.Equal(t, "Marie Dupont", order.Customer.Name)
	assert.Equal(t, "Rue de Rivoli 12", order.Customer.Address)
	require.NotNil(t, order.Customer.VATNumber)
	assert.Equal(t, "FR12345678901", *order.Customer.VATNumber)
	assert.True(t, order.IsB2B)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "12.1", order.Items[0].UnitPriceInclVat.String())
	assert.Equal(t, 3, order.Items[0].Quantity)

	missing, err := client.GetOrder(context.Background(), testCreds, "unknown")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches), "token should be reused from cache")
}

func TestClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	var fetches, calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "Bearer token-2", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"processStatusId":"42","status":"SUCCESS","entityId":"INV-1"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, &fetches)

	process, err := client.GetProcessStatus(context.Background(), testCreds, "42")
	require.NoError(t, err)
	require.NotNil(t, process)
	assert.True(t, process.Succeeded())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches))
}

func TestClient_PersistentUnauthorizedIsAPIError(t *testing.T) {
	var fetches, calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"title":"Unauthorized"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, &fetches)

	_, err := client.GetOrder(context.Background(), testCreds, "A1")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestClient_UploadInvoice(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/orders/A2K8290LP8/invoices", r.URL.Path)

		assert.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("invoice")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		content, _ := io.ReadAll(file)
		assert.Equal(t, "INV-000001.pdf", header.Filename)
		assert.Equal(t, "%PDF-1.4 test", string(content))

		var metadata InvoiceMetadata
		assert.NoError(t, json.Unmarshal([]byte(r.FormValue("metadata")), &metadata))
		assert.Equal(t, "INV-000001", metadata.InvoiceNumber)
		assert.Equal(t, "36.30", metadata.TotalAmount)

		w.WriteHeader(http.StatusAccepted)
		_, _ = io.WriteString(w, `{"processStatusId":"987","status":"PENDING","eventType":"UPLOAD_INVOICE"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, &fetches)

	process, err := client.UploadInvoice(context.Background(), testCreds, InvoiceUpload{
		MarketplaceOrderID: "A2K8290LP8",
		FileName:           "INV-000001.pdf",
		PDF:                []byte("%PDF-1.4 test"),
		Metadata: InvoiceMetadata{
			InvoiceNumber: "INV-000001",
			TotalAmount:   "36.30",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "987", process.ProcessStatusID)
	assert.False(t, process.IsTerminal())
}

func TestClient_UploadInvoiceRejected(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"title":"Bad Request","detail":"invoice already exists"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server, &fetches)

	_, err := client.UploadInvoice(context.Background(), testCreds, InvoiceUpload{MarketplaceOrderID: "A1"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "invoice already exists")
}

func TestClient_WaitForProcess(t *testing.T) {
	t.Run("returns terminal status", func(t *testing.T) {
		var fetches, calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) < 2 {
				_, _ = io.WriteString(w, `{"processStatusId":"1","status":"PENDING"}`)
				return
			}
			_, _ = io.WriteString(w, `{"processStatusId":"1","status":"SUCCESS","entityId":"bol-inv-1"}`)
		}))
		defer server.Close()

		client := newTestClient(t, server, &fetches)

		process, err := client.WaitForProcess(context.Background(), testCreds, "1")
		require.NoError(t, err)
		assert.Equal(t, "bol-inv-1", process.EntityID)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var fetches, calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			_, _ = io.WriteString(w, `{"processStatusId":"1","status":"PENDING"}`)
		}))
		defer server.Close()

		client := newTestClient(t, server, &fetches)

		process, err := client.WaitForProcess(context.Background(), testCreds, "1")
		assert.ErrorIs(t, err, ErrPollAttemptsExhausted)
		require.NotNil(t, process)
		assert.Equal(t, ProcessStatusPending, process.Status)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})
}

func TestClient_ClientCredentialsExchange(t *testing.T) {
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client-1", user)
		assert.Equal(t, "secret-1", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"live-token","token_type":"Bearer","expires_in":299}`)
	})
	mux.HandleFunc("/process-status/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer live-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"processStatusId":"7","status":"FAILURE","errorMessage":"order not shipped"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	cfg.TokenURL = server.URL + "/token"
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	client := NewClient(cfg, logger, WithHTTPClient(server.Client()))

	for i := 0; i < 2; i++ {
		process, err := client.GetProcessStatus(context.Background(), testCreds, "7")
		require.NoError(t, err)
		assert.Equal(t, ProcessStatusFailure, process.Status)
		assert.Equal(t, "order not shipped", process.ErrorMessage)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestClient_TokenFailureIsAuthError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("API must not be called without a token")
	}))
	defer server.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = server.URL
	client := NewClient(cfg, nil, WithTokenFetcher(func(ctx context.Context, creds Credentials) (*oauth2.Token, error) {
		return nil, errors.New("invalid_client")
	}))

	_, err := client.GetOrder(context.Background(), testCreds, "A1")
	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Contains(t, err.Error(), "invalid_client")
}
