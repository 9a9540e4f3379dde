package models_test

import (
	"encoding/json"
	"testing"

	"github.com/seadatafocus/memp_backend/models"
)

func TestOperationTypeRejectsUnknownValue(t *testing.T) {
	var opType models.BunkerOperationType
	if err := json.Unmarshal([]byte(`"REFUEL"`), &opType); err == nil {
		t.Fatal("expected error for unknown operation type")
	}
	if err := json.Unmarshal([]byte(`7`), &opType); err == nil {
		t.Fatal("expected error for non-string operation type")
	}
	if err := json.Unmarshal([]byte(`"DEBUNKER"`), &opType); err != nil {
		t.Fatalf("valid operation type rejected: %v", err)
	}
	if opType != models.OperationTypeDebunker {
		t.Fatalf("decoded %q", opType)
	}
}

func TestCorrectionSignCodec(t *testing.T) {
	var s models.CorrectionSign
	if err := json.Unmarshal([]byte(`"±"`), &s); err == nil {
		t.Fatal("expected error for invalid sign")
	}
	if err := json.Unmarshal([]byte(`"-"`), &s); err != nil {
		t.Fatalf("valid sign rejected: %v", err)
	}
	out, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `"-"` {
		t.Fatalf("marshalled to %s", out)
	}
}

func TestOperationTypeStockSemantics(t *testing.T) {
	creating := []models.BunkerOperationType{
		models.OperationTypeBunker, models.OperationTypeInitialFill, models.OperationTypeLoTopup,
	}
	referencing := []models.BunkerOperationType{
		models.OperationTypeDebunker, models.OperationTypeCorrection, models.OperationTypeLoTransfer,
	}
	for _, opType := range creating {
		if !opType.CreatesStock() || opType.ReferencesStock() {
			t.Errorf("%s should create stock, not reference it", opType)
		}
	}
	for _, opType := range referencing {
		if opType.CreatesStock() || !opType.ReferencesStock() {
			t.Errorf("%s should reference stock, not create it", opType)
		}
	}
}
