package marketplace

import (
	"strings"
	"time"

	"bol-invoice-api/internal/models"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// AcceptHeader selects version 10 of the retailer API
const AcceptHeader = "application/vnd.retailer.v10+json"

// Process status values reported by the retailer API
const (
	ProcessStatusPending = "PENDING"
	ProcessStatusSuccess = "SUCCESS"
	ProcessStatusFailure = "FAILURE"
	ProcessStatusTimeout = "TIMEOUT"
)

// Credentials are the OAuth client credentials of one seller account
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// ProcessStatus tracks an asynchronous operation on the retailer API
type ProcessStatus struct {
	ProcessStatusID string `json:"processStatusId"`
	EntityID        string `json:"entityId,omitempty"`
	EventType       string `json:"eventType,omitempty"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"errorMessage,omitempty"`
	CreateTimestamp string `json:"createTimestamp,omitempty"`
}

// IsTerminal reports whether the process finished, successfully or not
func (p *ProcessStatus) IsTerminal() bool {
	return p.Status == ProcessStatusSuccess || p.Status == ProcessStatusFailure || p.Status == ProcessStatusTimeout
}

// Succeeded reports whether the process completed successfully
func (p *ProcessStatus) Succeeded() bool {
	return p.Status == ProcessStatusSuccess
}

// InvoiceUpload is the document and metadata submitted for one order
type InvoiceUpload struct {
	MarketplaceOrderID string
	FileName           string
	PDF                []byte
	Metadata           InvoiceMetadata
}

// InvoiceMetadata is the JSON part sent alongside the PDF
type InvoiceMetadata struct {
	InvoiceNumber   string               `json:"invoiceNumber"`
	InvoiceDate     string               `json:"invoiceDate"`
	DueDate         string               `json:"dueDate"`
	Currency        string               `json:"currency"`
	ShipmentID      string               `json:"shipmentId,omitempty"`
	Seller          PartyPayload         `json:"seller"`
	Customer        PartyPayload         `json:"customer"`
	Lines           []InvoiceLinePayload `json:"lines"`
	SubtotalExclVat string               `json:"subtotalExclVat"`
	VatTotal        string               `json:"vatTotal"`
	TotalAmount     string               `json:"totalAmount"`
	ReverseCharge   bool                 `json:"reverseCharge"`
}

// PartyPayload describes the seller or the customer of an invoice
type PartyPayload struct {
	Name        string `json:"name"`
	Company     string `json:"company,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode"`
	VATNumber   string `json:"vatNumber,omitempty"`
}

// InvoiceLinePayload is one invoice line in the upload metadata
type InvoiceLinePayload struct {
	EAN              string `json:"ean,omitempty"`
	Description      string `json:"description"`
	Quantity         int    `json:"quantity"`
	UnitPriceExclVat string `json:"unitPriceExclVat"`
	UnitPriceInclVat string `json:"unitPriceInclVat"`
	VatRate          string `json:"vatRate"`
	VatAmount        string `json:"vatAmount"`
	LineTotalInclVat string `json:"lineTotalInclVat"`
}

// bolOrder is the order resource returned by GET /orders/{orderId}
type bolOrder struct {
	OrderID             string         `json:"orderId"`
	OrderPlacedDateTime time.Time      `json:"orderPlacedDateTime"`
	ShipmentDetails     bolAddress     `json:"shipmentDetails"`
	BillingDetails      bolAddress     `json:"billingDetails"`
	OrderItems          []bolOrderItem `json:"orderItems"`
}

type bolAddress struct {
	FirstName            string `json:"firstName"`
	Surname              string `json:"surname"`
	StreetName           string `json:"streetName"`
	HouseNumber          string `json:"houseNumber"`
	HouseNumberExtension string `json:"houseNumberExtension"`
	ZipCode              string `json:"zipCode"`
	City                 string `json:"city"`
	CountryCode          string `json:"countryCode"`
	Email                string `json:"email"`
	Company              string `json:"company"`
	VatNumber            string `json:"vatNumber"`
}

type bolOrderItem struct {
	OrderItemID string          `json:"orderItemId"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Product     struct {
		EAN   string `json:"ean"`
		Title string `json:"title"`
	} `json:"product"`
}

func (a bolAddress) street() string {
	parts := lo.Compact([]string{a.StreetName, a.HouseNumber, a.HouseNumberExtension})
	return strings.Join(parts, " ")
}

func (a bolAddress) fullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.Surname)
}

// toModel maps the retailer order onto the local order snapshot.
// The billing party is the invoice customer; items ship to the shipment country.
func (o *bolOrder) toModel(now time.Time) *models.Order {
	billing := o.BillingDetails
	if billing.CountryCode == "" {
		billing = o.ShipmentDetails
	}

	customer := models.CustomerDetails{
		Name:        billing.fullName(),
		Email:       billing.Email,
		Company:     billing.Company,
		Address:     billing.street(),
		City:        billing.City,
		PostalCode:  billing.ZipCode,
		CountryCode: strings.ToUpper(billing.CountryCode),
	}
	if customer.Name == "" {
		customer.Name = billing.Company
	}
	if vat := strings.TrimSpace(billing.VatNumber); vat != "" {
		customer.VATNumber = &vat
	}

	shippingCountry := strings.ToUpper(o.ShipmentDetails.CountryCode)
	if shippingCountry == "" {
		shippingCountry = customer.CountryCode
	}

	items := lo.Map(o.OrderItems, func(item bolOrderItem, _ int) models.OrderItem {
		return models.OrderItem{
			OrderItemID:      item.OrderItemID,
			EAN:              item.Product.EAN,
			ProductName:      item.Product.Title,
			Quantity:         item.Quantity,
			UnitPriceInclVat: item.UnitPrice,
		}
	})

	marketplaceID := o.OrderID
	return &models.Order{
		ID:                  o.OrderID,
		MarketplaceOrderID:  &marketplaceID,
		OrderPlacedAt:       o.OrderPlacedDateTime.UTC(),
		Currency:            models.DefaultCurrency,
		Customer:            customer,
		ShippingCountryCode: shippingCountry,
		IsB2B:               billing.Company != "" || customer.VATNumber != nil,
		Items:               items,
		SyncedAt:            now.UTC(),
	}
}
