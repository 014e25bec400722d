package services

import (
	"strings"
	"time"
	"unicode/utf8"

	"backoffice/internal/domain"
)

// A product number is the creation time as yyMMddHHmmss, then the first
// letter of the brand, the first letter of the name and the category code.
// The time prefix never changes once assigned.
const (
	productNumLayout = "060102150405"
	productNumPrefix = len(productNumLayout)
)

// NewProductNum builds the number for a product registered at createdAt.
func NewProductNum(createdAt time.Time, brand, name, categoryCode string) (string, error) {
	suffix, err := productNumSuffix(brand, name, categoryCode)
	if err != nil {
		return "", err
	}
	return createdAt.Format(productNumLayout) + suffix, nil
}

// RegenerateProductNum keeps the time prefix of old and recomputes the rest.
func RegenerateProductNum(old, brand, name, categoryCode string) (string, error) {
	if len(old) < productNumPrefix {
		return "", domain.NewInvalidArgumentError("productNum", "shorter than the creation fragment", old)
	}
	suffix, err := productNumSuffix(brand, name, categoryCode)
	if err != nil {
		return "", err
	}
	return old[:productNumPrefix] + suffix, nil
}

func productNumSuffix(brand, name, categoryCode string) (string, error) {
	brand, name, categoryCode = strings.TrimSpace(brand), strings.TrimSpace(name), strings.TrimSpace(categoryCode)
	switch {
	case brand == "":
		return "", domain.NewInvalidArgumentError("brand", "required", brand)
	case name == "":
		return "", domain.NewInvalidArgumentError("name", "required", name)
	case categoryCode == "":
		return "", domain.NewInvalidArgumentError("category", "required", categoryCode)
	}
	b, _ := utf8.DecodeRuneInString(brand)
	n, _ := utf8.DecodeRuneInString(name)
	return string(b) + string(n) + categoryCode, nil
}
