package bunkerapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/seadatafocus/memp_backend/bunkerapi"
)

func postJSON(t *testing.T, handler gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/test", handler)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

// Missing required fields are rejected at binding time with a field -> rule
// map, before any model code runs.
func TestCreateOperationRejectsMissingFields(t *testing.T) {
	w := postJSON(t, bunkerapi.CreateOperationHandler(), `{"delta_quantity_mt": "10"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}

	body := decodeBody(t, w)
	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected fields map, got %v", body)
	}
	for _, field := range []string{"ShipId", "ItemTypeKey", "OperationType", "BdnNumber", "OperationDate"} {
		if fields[field] != "required" {
			t.Fatalf("fields[%s] = %v, want required", field, fields[field])
		}
	}
}

func TestCreateDosingEventRejectsEmptyEntryList(t *testing.T) {
	w := postJSON(t, bunkerapi.CreateDosingEventHandler(), `{
		"ship_id": 1,
		"additive_type_id": 1,
		"fuel_type_key": "HFO",
		"dosing_date": "2026-03-10T08:00:00",
		"treated_machinery_ids": [1],
		"bdn_entries": []
	}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}

	body := decodeBody(t, w)
	fields, ok := body["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected fields map, got %v", body)
	}
	if fields["BdnEntries"] != "min" {
		t.Fatalf("fields[BdnEntries] = %v, want min", fields["BdnEntries"])
	}
}

// Malformed JSON is still a 400, just without a field map.
func TestCreateOperationRejectsMalformedJson(t *testing.T) {
	w := postJSON(t, bunkerapi.CreateOperationHandler(), `{"ship_id": `)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	if _, hasFields := body["fields"]; hasFields {
		t.Fatalf("malformed JSON must not produce a field map: %v", body)
	}
	if body["error"] == "" {
		t.Fatal("expected an error message")
	}
}
