package domain

import (
	"regexp"
	"strings"
)

// IdentifierKind tags a classified login identifier.
type IdentifierKind int

const (
	IdentifierEmail IdentifierKind = iota
	IdentifierPhone
)

// LoginIdentifier is the tagged form of a raw login identifier: either an
// email address or a Senegalese phone number, decided by ClassifyIdentifier.
type LoginIdentifier struct {
	Kind  IdentifierKind
	Value string
}

var (
	emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)
	phonePattern = regexp.MustCompile(`^(\+221|00221)?7\d{8}$`)
)

// ClassifyIdentifier decides whether a raw identifier is an email or a
// Senegalese phone number. Anything matching neither pattern yields
// ErrInvalidIdentifier.
func ClassifyIdentifier(raw string) (LoginIdentifier, error) {
	raw = strings.TrimSpace(raw)
	switch {
	case emailPattern.MatchString(raw):
		return LoginIdentifier{Kind: IdentifierEmail, Value: strings.ToLower(raw)}, nil
	case phonePattern.MatchString(raw):
		return LoginIdentifier{Kind: IdentifierPhone, Value: raw}, nil
	default:
		return LoginIdentifier{}, ErrInvalidIdentifier
	}
}

// PhoneVariants returns every normalized form a Senegalese number may have
// been stored under. Historical records are inconsistent, so lookups must
// match any of: bare, +221-prefixed, 00221-prefixed and bare-digits.
func PhoneVariants(phone string) []string {
	variants := []string{phone}

	add := func(v string) {
		for _, existing := range variants {
			if existing == v {
				return
			}
		}
		variants = append(variants, v)
	}

	var bare string
	switch {
	case strings.HasPrefix(phone, "+221"):
		bare = phone[4:]
	case strings.HasPrefix(phone, "00221"):
		bare = phone[5:]
	case strings.HasPrefix(phone, "221"):
		bare = phone[3:]
	default:
		bare = phone
	}

	add(bare)
	add("+221" + bare)
	add("00221" + bare)
	return variants
}
