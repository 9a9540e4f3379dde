package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// QuantityScale is the rounding scale for all ledger quantities (MT and m3).
const QuantityScale = 3

func NewTrue() *bool {
	b := true
	return &b
}

func ProcessValidationErrors(err error) map[string]string {

	validationErrors := err.(validator.ValidationErrors)

	errorResponse := make(map[string]string)

	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}

	return errorResponse
}

func UniqueSlice[T comparable](slice []T) []T {
	inResult := make(map[T]bool)
	var result []T
	for _, elm := range slice {
		if _, ok := inResult[elm]; !ok {
			// if not exists in map, append it, otherwise do nothing
			inResult[elm] = true
			result = append(result, elm)
		}
	}
	return result
}

// safely dereference pointer of type T, nil pointer return zero value or optional default
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	var defaultValue T
	if len(defaults) > 0 {
		defaultValue = defaults[0]
	}
	if ptr == nil {
		return defaultValue
	}
	return *ptr
}

// RoundQuantity rounds a ledger quantity to the canonical 3-decimal scale.
func RoundQuantity(d decimal.Decimal) decimal.Decimal {
	return d.Round(QuantityScale)
}

// ParseLocalDate interprets a "2006-01-02T15:04:05" wall-clock string together
// with a "+07:00"-style UTC offset and returns the instant in UTC.
// Vessels report in local (often zone-less shipboard) time; the offset travels
// with the payload instead of an IANA zone name.
func ParseLocalDate(dateString string, offset string) (time.Time, error) {
	localTime, err := time.Parse("2006-01-02T15:04:05", dateString)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", dateString, err)
	}

	loc := time.UTC
	if strings.TrimSpace(offset) != "" {
		seconds, err := parseUTCOffset(offset)
		if err != nil {
			return time.Time{}, err
		}
		loc = time.FixedZone("UTC"+offset, seconds)
	}

	localInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		localTime.Hour(), localTime.Minute(), localTime.Second(), localTime.Nanosecond(),
		loc,
	)
	return localInZone.UTC(), nil
}

func parseUTCOffset(offset string) (int, error) {
	offset = strings.TrimSpace(offset)
	if len(offset) != 6 || (offset[0] != '+' && offset[0] != '-') || offset[3] != ':' {
		return 0, fmt.Errorf("invalid utc offset %q (want +HH:MM)", offset)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(offset[1:], "%02d:%02d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("invalid utc offset %q: %w", offset, err)
	}
	if hh > 14 || mm > 59 {
		return 0, fmt.Errorf("invalid utc offset %q", offset)
	}
	seconds := hh*3600 + mm*60
	if offset[0] == '-' {
		seconds = -seconds
	}
	return seconds, nil
}
