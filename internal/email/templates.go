package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderItem represents an item in an order for email purposes
type OrderItem struct {
	Name        string
	VariantName string
	Size        string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// OrderSummary is everything the confirmation mail shows.
type OrderSummary struct {
	OrderID       string
	Items         []OrderItem
	Subtotal      decimal.Decimal
	ShippingTotal decimal.Decimal
	Tax           decimal.Decimal
	GrandTotal    decimal.Decimal
	ShipTo        []string
}

// ShortID is the order reference shown in subjects.
func ShortID(orderID string) string {
	if len(orderID) > 8 {
		return orderID[:8]
	}
	return orderID
}

// BuildOrderConfirmationBody builds the HTML body for order confirmation email
func BuildOrderConfirmationBody(o OrderSummary) string {
	var itemsHTML strings.Builder
	for _, item := range o.Items {
		name := item.Name
		if detail := variantLabel(item); detail != "" {
			name += " (" + detail + ")"
		}
		itemsHTML.WriteString(fmt.Sprintf(
			`<tr>
				<td style="padding: 12px; border-bottom: 1px solid #eee;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: center;">%d</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
				<td style="padding: 12px; border-bottom: 1px solid #eee; text-align: right;">%s</td>
			</tr>`,
			html.EscapeString(name),
			item.Quantity,
			FormatMoney(item.UnitPrice),
			FormatMoney(item.LineTotal),
		))
	}

	var shipTo strings.Builder
	for _, line := range o.ShipTo {
		if strings.TrimSpace(line) == "" {
			continue
		}
		shipTo.WriteString(html.EscapeString(line))
		shipTo.WriteString("<br>")
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<div style="background: linear-gradient(135deg, #667eea 0%%, #764ba2 100%%); padding: 30px; border-radius: 10px 10px 0 0;">
		<h1 style="color: white; margin: 0; font-size: 24px;">Thank you for your order</h1>
	</div>

	<div style="background: #fff; padding: 30px; border: 1px solid #eee; border-top: none; border-radius: 0 0 10px 10px;">
		<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
			<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
			<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
		</div>

		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background: #f8f9fa;">
					<th style="padding: 12px; text-align: left; font-weight: 600;">Item</th>
					<th style="padding: 12px; text-align: center; font-weight: 600;">Qty</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Price</th>
					<th style="padding: 12px; text-align: right; font-weight: 600;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
		</table>

		<table style="width: 100%%; padding: 20px; background: #f8f9fa; border-radius: 5px;">
			<tr><td>Subtotal</td><td style="text-align: right;">%s</td></tr>
			<tr><td>Shipping</td><td style="text-align: right;">%s</td></tr>
			<tr><td>Tax</td><td style="text-align: right;">%s</td></tr>
			<tr><td style="font-weight: bold;">Total</td><td style="text-align: right; font-size: 20px; font-weight: bold; color: #667eea;">%s</td></tr>
		</table>

		<h2 style="font-size: 16px;">Shipping to</h2>
		<p>%s</p>

		<hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">

		<p style="font-size: 12px; color: #999; margin-bottom: 0;">
			This is an automated message. If you have any questions, please contact support.
		</p>
	</div>
</body>
</html>`,
		html.EscapeString(o.OrderID),
		itemsHTML.String(),
		FormatMoney(o.Subtotal),
		FormatMoney(o.ShippingTotal),
		FormatMoney(o.Tax),
		FormatMoney(o.GrandTotal),
		shipTo.String(),
	)
}

func variantLabel(item OrderItem) string {
	parts := make([]string, 0, 2)
	if item.VariantName != "" {
		parts = append(parts, item.VariantName)
	}
	if item.Size != "" {
		parts = append(parts, item.Size)
	}
	return strings.Join(parts, " / ")
}

// FormatMoney renders an amount with two decimals and comma separators,
// e.g. 1234.5 as "1,234.50".
func FormatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	return sign + groupThousands(whole) + "." + frac
}

// groupThousands inserts comma separators into a string of digits
func groupThousands(str string) string {
	if len(str) <= 3 {
		return str
	}

	var result strings.Builder
	remainder := len(str) % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < len(str); i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < len(str) {
			result.WriteString(",")
		}
	}

	return result.String()
}
