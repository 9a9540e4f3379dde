package models

import (
	"encoding/json"
	"errors"
)

type BunkerCategory string

const (
	BunkerCategoryFuel    BunkerCategory = "FUEL"
	BunkerCategoryLubeOil BunkerCategory = "LUBE_OIL"
)

// convert enum to send response
func (t BunkerCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

// convert input to enum type
func (t *BunkerCategory) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("bunker category must be string")
	}
	switch str {
	case "FUEL":
		*t = BunkerCategoryFuel
	case "LUBE_OIL":
		*t = BunkerCategoryLubeOil
	default:
		return errors.New("invalid bunker category")
	}
	return nil
}

func (t BunkerCategory) IsValid() bool {
	return t == BunkerCategoryFuel || t == BunkerCategoryLubeOil
}

type BunkerOperationType string

const (
	OperationTypeBunker      BunkerOperationType = "BUNKER"
	OperationTypeDebunker    BunkerOperationType = "DEBUNKER"
	OperationTypeCorrection  BunkerOperationType = "CORRECTION"
	OperationTypeLoTopup     BunkerOperationType = "LO_TOPUP"
	OperationTypeLoTransfer  BunkerOperationType = "LO_TRANSFER"
	OperationTypeInitialFill BunkerOperationType = "INITIAL_FILL"
)

func (t BunkerOperationType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

func (t *BunkerOperationType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("operation type must be string")
	}
	operationTypes := map[string]BunkerOperationType{
		"BUNKER":       OperationTypeBunker,
		"DEBUNKER":     OperationTypeDebunker,
		"CORRECTION":   OperationTypeCorrection,
		"LO_TOPUP":     OperationTypeLoTopup,
		"LO_TRANSFER":  OperationTypeLoTransfer,
		"INITIAL_FILL": OperationTypeInitialFill,
	}
	var ok bool
	*t, ok = operationTypes[str]
	if !ok {
		return errors.New("invalid operation type")
	}
	return nil
}

func (t BunkerOperationType) IsValid() bool {
	switch t {
	case OperationTypeBunker, OperationTypeDebunker, OperationTypeCorrection,
		OperationTypeLoTopup, OperationTypeLoTransfer, OperationTypeInitialFill:
		return true
	}
	return false
}

// CreatesStock reports whether the operation introduces new stock under a
// fresh BDN number (as opposed to drawing on or adjusting an existing BDN).
func (t BunkerOperationType) CreatesStock() bool {
	switch t {
	case OperationTypeBunker, OperationTypeInitialFill, OperationTypeLoTopup:
		return true
	}
	return false
}

// ReferencesStock reports whether the operation must name an existing BDN.
func (t BunkerOperationType) ReferencesStock() bool {
	switch t {
	case OperationTypeDebunker, OperationTypeCorrection, OperationTypeLoTransfer:
		return true
	}
	return false
}

type CorrectionSign string

const (
	CorrectionSignPlus  CorrectionSign = "+"
	CorrectionSignMinus CorrectionSign = "-"
)

func (t CorrectionSign) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

func (t *CorrectionSign) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("correction sign must be string")
	}
	switch str {
	case "+":
		*t = CorrectionSignPlus
	case "-":
		*t = CorrectionSignMinus
	default:
		return errors.New("invalid correction sign")
	}
	return nil
}

func (t CorrectionSign) IsValid() bool {
	return t == CorrectionSignPlus || t == CorrectionSignMinus
}

type MachineryType string

const (
	MachineryTypeMainEngine MachineryType = "MAIN_ENGINE"
	MachineryTypeAuxEngine  MachineryType = "AUX_ENGINE"
	MachineryTypeBoiler     MachineryType = "BOILER"
	MachineryTypeOther      MachineryType = "OTHER"
)

func (t MachineryType) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(t))
}

func (t *MachineryType) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("machinery type must be string")
	}
	machineryTypes := map[string]MachineryType{
		"MAIN_ENGINE": MachineryTypeMainEngine,
		"AUX_ENGINE":  MachineryTypeAuxEngine,
		"BOILER":      MachineryTypeBoiler,
		"OTHER":       MachineryTypeOther,
	}
	var ok bool
	*t, ok = machineryTypes[str]
	if !ok {
		return errors.New("invalid machinery type")
	}
	return nil
}
