// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"strings"
	"unicode"
)

// passwordPolicy is the parsed form of the configured password complexity
// rules.
type passwordPolicy struct {
	minLength     int
	requireUpper  bool
	requireLower  bool
	requireDigit  bool
	requireSymbol bool
}

// newPasswordPolicy parses the comma-separated class list from configuration
// ("upper,lower,digit,symbol"); unknown classes are ignored.
func newPasswordPolicy(minLength int, classes string) passwordPolicy {
	p := passwordPolicy{minLength: minLength}
	for _, class := range strings.Split(classes, ",") {
		switch strings.TrimSpace(class) {
		case "upper":
			p.requireUpper = true
		case "lower":
			p.requireLower = true
		case "digit":
			p.requireDigit = true
		case "symbol":
			p.requireSymbol = true
		}
	}
	return p
}

// Validate returns a *ValidationError describing the first unmet rule, or nil
// for an acceptable password.
func (p passwordPolicy) Validate(field, password string) *ValidationError {
	if len(password) < p.minLength {
		return NewValidationError(field,
			fmt.Sprintf("la contraseña debe tener al menos %d caracteres", p.minLength))
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	switch {
	case p.requireUpper && !hasUpper:
		return NewValidationError(field, "la contraseña debe incluir al menos una letra mayúscula")
	case p.requireLower && !hasLower:
		return NewValidationError(field, "la contraseña debe incluir al menos una letra minúscula")
	case p.requireDigit && !hasDigit:
		return NewValidationError(field, "la contraseña debe incluir al menos un número")
	case p.requireSymbol && !hasSymbol:
		return NewValidationError(field, "la contraseña debe incluir al menos un símbolo")
	}

	return nil
}
