package utils

import (
	"fmt"
	"strings"
)

// ValidateName accepts full names between 2 and 50 characters inclusive.
func ValidateName(name string) bool {
	n := len(strings.TrimSpace(name))
	return n >= 2 && n <= 50
}

// ValidateAccountNumber accepts phone or bank account numbers of 5-20 characters.
func ValidateAccountNumber(account string) bool {
	n := len(strings.TrimSpace(account))
	return n >= 5 && n <= 20
}

// ValidateAccountName accepts holder names of at least 2 characters.
func ValidateAccountName(name string) bool {
	return len(strings.TrimSpace(name)) >= 2
}

// FormatCurrency renders an amount in Ethiopian birr.
func FormatCurrency(amount float64) string {
	if amount == float64(int64(amount)) {
		return fmt.Sprintf("%d ETB", int64(amount))
	}
	return fmt.Sprintf("%.2f ETB", amount)
}
