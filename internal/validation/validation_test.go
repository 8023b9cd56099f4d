package validation

import (
	"testing"
	"time"
)

func TestIsValidRegistrationNumber(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{
			name:   "typical number",
			number: "2026-CS-042",
			valid:  true,
		},
		{
			name:   "digits only",
			number: "202600142",
			valid:  true,
		},
		{
			name:   "lowercase letters",
			number: "2026-cs-042",
			valid:  false,
		},
		{
			name:   "too short",
			number: "CS-1",
			valid:  false,
		},
		{
			name:   "too long",
			number: "2026-CS-042-EXTRA-LONG",
			valid:  false,
		},
		{
			name:   "contains space",
			number: "2026 CS 042",
			valid:  false,
		},
		{
			name:   "empty string",
			number: "",
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidRegistrationNumber(tt.number)
			if got != tt.valid {
				t.Errorf("IsValidRegistrationNumber(%q) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{
			name:  "valid date",
			value: "2026-03-10",
			valid: true,
		},
		{
			name:  "wrong layout",
			value: "10.03.2026",
			valid: false,
		},
		{
			name:  "not a date",
			value: "yesterday",
			valid: false,
		},
		{
			name:  "empty string",
			value: "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseDate(tt.value)
			if ok != tt.valid {
				t.Errorf("ParseDate(%q) ok = %v, want %v", tt.value, ok, tt.valid)
			}
		})
	}
}

func TestIsValidDateRange(t *testing.T) {
	a := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	if !IsValidDateRange(a, b) {
		t.Errorf("expected valid range")
	}
	if !IsValidDateRange(a, a) {
		t.Errorf("single day range must be valid")
	}
	if IsValidDateRange(b, a) {
		t.Errorf("reversed range must be invalid")
	}
}

func TestIsValidAmount(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		valid  bool
	}{
		{
			name:   "whole rupees",
			amount: 150,
			valid:  true,
		},
		{
			name:   "with paise",
			amount: 150.50,
			valid:  true,
		},
		{
			name:   "zero",
			amount: 0,
			valid:  false,
		},
		{
			name:   "negative",
			amount: -10,
			valid:  false,
		},
		{
			name:   "fraction of paisa",
			amount: 10.505,
			valid:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidAmount(tt.amount)
			if got != tt.valid {
				t.Errorf("IsValidAmount(%v) = %v, want %v", tt.amount, got, tt.valid)
			}
		})
	}
}
