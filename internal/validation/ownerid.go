package validation

import (
	"fmt"
	"regexp"
)

// OwnerIDPattern определяет допустимый формат идентификатора владельца.
// Латинские буквы, цифры, дефис и нижнее подчеркивание, длина 3-64 символа:
// покрывает и человекочитаемые имена, и UUID.
var OwnerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)

const (
	// MinOwnerIDLen минимальная длина идентификатора владельца
	MinOwnerIDLen = 3
	// MaxOwnerIDLen максимальная длина идентификатора владельца
	MaxOwnerIDLen = 64
)

// ValidateOwnerID проверяет, что идентификатор владельца соответствует
// требованиям формата
func ValidateOwnerID(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("owner id cannot be empty")
	}

	if len(ownerID) < MinOwnerIDLen {
		return fmt.Errorf("owner id must be at least %d characters long", MinOwnerIDLen)
	}

	if len(ownerID) > MaxOwnerIDLen {
		return fmt.Errorf("owner id must not exceed %d characters", MaxOwnerIDLen)
	}

	if !OwnerIDPattern.MatchString(ownerID) {
		return fmt.Errorf("owner id can only contain letters (a-z, A-Z), numbers (0-9), hyphens (-), and underscores (_)")
	}

	return nil
}
