package dispatch

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/model"
)

// ctxString returns the first non-empty trimmed string found under any of
// the given keys.
func ctxString(ctx map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := ctx[key].(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// ctxFloat returns the first numeric value found under any of the given
// keys. JSON decoding yields float64 for numbers, but string digits show up
// in practice too.
func ctxFloat(ctx map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch v := ctx[key].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			var f float64
			if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// ctxTime parses a timestamp from the context, accepting RFC 3339 strings
// and date-only strings. Returns nil when absent or unparseable.
func ctxTime(ctx map[string]any, key string) *time.Time {
	s, ok := ctx[key].(string)
	if !ok {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
			return &t
		}
	}
	return nil
}

// parseItems normalizes the raw items array from a decision context into
// purchase order line items. Entries without a SKU or a positive quantity
// are dropped; non-positive or non-finite unit prices are treated as unset.
func parseItems(raw any) []model.ProcurementItem {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}

	var items []model.ProcurementItem
	for _, entry := range list {
		record, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		sku := ctxString(record, "sku", "skuCode")
		quantity, _ := ctxFloat(record, "quantity", "qty")
		if sku == "" || quantity <= 0 {
			continue
		}

		item := model.ProcurementItem{SKU: sku, Quantity: quantity}
		if price, ok := ctxFloat(record, "unitPrice", "price"); ok && price > 0 && !math.IsInf(price, 0) && !math.IsNaN(price) {
			item.UnitPrice = &price
		}
		if desc := ctxString(record, "description"); desc != "" {
			item.Description = &desc
		}
		items = append(items, item)
	}
	return items
}

// generatePONumber builds a purchase order number from the decision id and
// a minute-resolution timestamp, e.g. DEC-1A2B3C-202608291430.
func generatePONumber(decisionID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("DEC-%s-%s",
		strings.ToUpper(decisionID.String()[:6]),
		now.UTC().Format("200601021504"))
}

// generateProductionOrderNumber builds a production order number from the
// decision id tail and the low digits of the current unix millis.
func generateProductionOrderNumber(decisionID uuid.UUID, now time.Time) string {
	id := decisionID.String()
	millis := fmt.Sprintf("%d", now.UnixMilli())
	return fmt.Sprintf("PROD-%s-%s", id[len(id)-6:], millis[len(millis)-6:])
}
