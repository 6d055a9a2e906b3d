// Package checkout turns a storefront product selection into a WhatsApp
// conversation with the sales desk. No order is stored.
package checkout

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"

	product "github.com/geoinstrumentos/catalog-backend/internal/products"
	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	"github.com/geoinstrumentos/catalog-backend/pkg/enums"
	pkgerrors "github.com/geoinstrumentos/catalog-backend/pkg/errors"
)

const (
	whatsAppBase = "https://wa.me/"
	maxQuantity  = 999
	maxNoteRunes = 500
)

type catalogReader interface {
	Get(ctx context.Context, id uuid.UUID) (*product.PublicProductDTO, error)
}

// HandoffInput identifies what the visitor wants to ask about.
type HandoffInput struct {
	ProductID    uuid.UUID `json:"product_id" validate:"required"`
	Quantity     int       `json:"quantity" validate:"omitempty,gte=1,lte=999"`
	CustomerName string    `json:"customer_name" validate:"omitempty,max=120"`
	Notes        string    `json:"notes" validate:"omitempty,max=500"`
}

type HandoffOutput struct {
	WhatsAppURL string `json:"whatsapp_url"`
	Message     string `json:"message"`
}

type Service interface {
	Handoff(ctx context.Context, input HandoffInput) (*HandoffOutput, error)
}

type service struct {
	catalog  catalogReader
	number   string
	greeting string
}

func NewService(catalog catalogReader, cfg config.CheckoutConfig) (Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	return &service{
		catalog:  catalog,
		number:   digitsOnly(cfg.WhatsAppNumber),
		greeting: strings.TrimSpace(cfg.WhatsAppGreeting),
	}, nil
}

func (s *service) Handoff(ctx context.Context, input HandoffInput) (*HandoffOutput, error) {
	if s.number == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "whatsapp number not configured")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product_id is required")
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 || quantity > maxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity must be between 1 and %d", maxQuantity))
	}

	item, err := s.catalog.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	message := s.buildMessage(item, quantity, input.CustomerName, input.Notes)
	return &HandoffOutput{
		WhatsAppURL: whatsAppURL(s.number, message),
		Message:     message,
	}, nil
}

func (s *service) buildMessage(item *product.PublicProductDTO, quantity int, customer, notes string) string {
	var b strings.Builder
	if s.greeting != "" {
		b.WriteString(s.greeting)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "- Producto: %s\n", item.Name)
	fmt.Fprintf(&b, "- Modalidad: %s\n", categoryLabel(item.Category))
	fmt.Fprintf(&b, "- Cantidad: %d\n", quantity)
	if item.DisplayPrice != nil {
		fmt.Fprintf(&b, "- Precio: $%s\n", item.DisplayPrice.StringFixed(2))
	}
	if name := strings.TrimSpace(customer); name != "" {
		fmt.Fprintf(&b, "- Nombre: %s\n", name)
	}
	if note := truncate(strings.TrimSpace(notes), maxNoteRunes); note != "" {
		fmt.Fprintf(&b, "- Notas: %s\n", note)
	}
	return strings.TrimRight(b.String(), "\n")
}

func categoryLabel(category enums.ProductCategory) string {
	switch category {
	case enums.ProductCategoryForRent:
		return "Renta"
	case enums.ProductCategoryService:
		return "Servicio"
	default:
		return "Venta"
	}
}

// whatsAppURL builds a click-to-chat link. Spaces are encoded as %20 since
// wa.me does not decode '+'.
func whatsAppURL(number, message string) string {
	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return whatsAppBase + number + "?text=" + text
}

func digitsOnly(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, value)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
