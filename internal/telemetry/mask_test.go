package telemetry

import (
	"net/http"
	"testing"
)

func TestMaskHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=1,v1=abcdef1234")
	headers.Set("Content-Type", "application/json")

	masked := MaskHeaders(headers)
	if masked["Stripe-Signature"] != "****1234" {
		t.Fatalf("expected masked signature, got %q", masked["Stripe-Signature"])
	}
	if masked["Content-Type"] != "application/json" {
		t.Fatalf("expected content type untouched, got %q", masked["Content-Type"])
	}
}

func TestMaskJSON(t *testing.T) {
	input := map[string]any{
		"id": "evt_1",
		"data": map[string]any{
			"card_number": "4242424242424242",
			"customer": map[string]any{
				"email": "a@b.co",
			},
		},
		"items": []any{map[string]any{"api_key": "key_12345678"}},
	}
	masked := MaskJSON(input).(map[string]any)
	if masked["id"] != "evt_1" {
		t.Fatalf("expected id untouched, got %v", masked["id"])
	}
	data := masked["data"].(map[string]any)
	if data["card_number"] != "****4242" {
		t.Fatalf("expected masked card, got %v", data["card_number"])
	}
	customer := data["customer"].(map[string]any)
	if customer["email"] != "****b.co" {
		t.Fatalf("expected masked email, got %v", customer["email"])
	}
	items := masked["items"].([]any)
	if items[0].(map[string]any)["api_key"] != "****5678" {
		t.Fatalf("expected masked api key, got %v", items[0])
	}
}
