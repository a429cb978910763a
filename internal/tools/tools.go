// Package tools exposes the resolution tool set over the ERP backend.
// Read-only lookups execute freely; refund and resend are critical and
// refuse to run without an approval token.
package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/supportflow/support-agent/internal/erp"
	"github.com/supportflow/support-agent/internal/workflow"
)

// Read-only tool names.
const (
	ToolOrderDetails = "get_order_details"
	ToolTrackOrder   = "track_order"
	ToolProductInfo  = "get_product_info"
	ToolCheckStock   = "check_stock"
)

// Registry implements workflow.ToolSet.
type Registry struct {
	erp    *erp.Service
	logger *zap.Logger
}

// NewRegistry creates the tool registry.
func NewRegistry(erpSvc *erp.Service, logger *zap.Logger) *Registry {
	return &Registry{erp: erpSvc, logger: logger}
}

// Specs returns the tool descriptions handed to the resolution LLM.
func (r *Registry) Specs() []workflow.ToolSpec {
	return []workflow.ToolSpec{
		{
			Name:        ToolOrderDetails,
			Description: "Look up an order: status, line items, and total.",
			Parameters: objectSchema(map[string]interface{}{
				"order_id": stringParam("The order id, e.g. ORD12345"),
			}, "order_id"),
		},
		{
			Name:        ToolTrackOrder,
			Description: "Get the carrier tracking history for an order's shipment. Use for delivery and shipping-delay questions.",
			Parameters: objectSchema(map[string]interface{}{
				"order_id": stringParam("The order id, e.g. ORD12345"),
			}, "order_id"),
		},
		{
			Name:        ToolProductInfo,
			Description: "Look up a product: name, description, price, and stock.",
			Parameters: objectSchema(map[string]interface{}{
				"product_id": stringParam("The product id, e.g. P1001"),
			}, "product_id"),
		},
		{
			Name:        ToolCheckStock,
			Description: "Check whether a product has stock available for a replacement shipment.",
			Parameters: objectSchema(map[string]interface{}{
				"product_id": stringParam("The product id, e.g. P1001"),
			}, "product_id"),
		},
		{
			Name:        workflow.ToolResend,
			Description: "Ship a replacement for a product on the order. Requires human approval. Use only when the product is in stock.",
			Parameters: objectSchema(map[string]interface{}{
				"order_id":   stringParam("The order id"),
				"product_id": stringParam("The product to resend"),
			}, "order_id", "product_id"),
		},
		{
			Name:        workflow.ToolRefund,
			Description: "Refund the full order amount. Requires human approval. Use when a replacement is not possible.",
			Parameters: objectSchema(map[string]interface{}{
				"order_id": stringParam("The order id"),
			}, "order_id"),
		},
	}
}

// IsCritical reports whether the tool commits an irreversible action.
func (r *Registry) IsCritical(name string) bool {
	return name == workflow.ToolRefund || name == workflow.ToolResend
}

// Execute runs one tool call. Critical tools require the approval token
// minted when the call was suspended for review; a missing or mismatched
// token refuses the call. Tokens are ignored for read-only tools.
func (r *Registry) Execute(ctx context.Context, call workflow.ToolCallRequest, approvalToken string) (string, error) {
	if r.IsCritical(call.Name) {
		if approvalToken == "" || approvalToken != call.ApprovalToken {
			return "", workflow.ErrApprovalRequired
		}
	}

	r.logger.Debug("Executing tool",
		zap.String("ticket_id", call.TicketID),
		zap.String("tool", call.Name),
		zap.Any("args", call.Args))

	switch call.Name {
	case ToolOrderDetails:
		orderID, err := stringArg(call.Args, "order_id")
		if err != nil {
			return "", err
		}
		out := r.erp.OrderContext(orderID)
		if out == "" {
			return "", fmt.Errorf("unknown order %s", orderID)
		}
		return out, nil

	case ToolTrackOrder:
		orderID, err := stringArg(call.Args, "order_id")
		if err != nil {
			return "", err
		}
		return r.erp.TrackOrder(orderID)

	case ToolProductInfo:
		productID, err := stringArg(call.Args, "product_id")
		if err != nil {
			return "", err
		}
		p := r.erp.GetProduct(productID)
		if p == nil {
			return "", fmt.Errorf("unknown product %s", productID)
		}
		return fmt.Sprintf("%s %s: %s ($%.2f, stock %d)",
			p.ID, p.Name, p.Description, float64(p.PriceCents)/100, p.Stock), nil

	case ToolCheckStock:
		productID, err := stringArg(call.Args, "product_id")
		if err != nil {
			return "", err
		}
		inStock, err := r.erp.InStock(productID)
		if err != nil {
			return "", err
		}
		if inStock {
			return fmt.Sprintf("Product %s is in stock.", productID), nil
		}
		return fmt.Sprintf("Product %s is out of stock.", productID), nil

	case workflow.ToolRefund:
		orderID, err := stringArg(call.Args, "order_id")
		if err != nil {
			return "", err
		}
		return r.erp.Refund(call.TicketID, orderID)

	case workflow.ToolResend:
		orderID, err := stringArg(call.Args, "order_id")
		if err != nil {
			return "", err
		}
		productID, err := stringArg(call.Args, "product_id")
		if err != nil {
			return "", err
		}
		return r.erp.Resend(call.TicketID, orderID, productID)

	default:
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("argument %q must be a non-empty string", key)
	}
	return s, nil
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func stringParam(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}
