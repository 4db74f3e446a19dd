package handlers

// @title Bol.com Invoice API
// @version 1.0
// @description VAT-compliant invoice generation for Bol.com marketplace sellers, with EU reverse charge and marketplace upload

// @host localhost:8081
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name invoices
// @tag.description Invoice generation, lifecycle, PDF and marketplace upload

// @tag.name vat
// @tag.description VAT rule administration and resolution

// @tag.name settings
// @tag.description Tenant invoice settings, templates and marketplace credentials

// @tag.name auth
// @tag.description Authentication operations
