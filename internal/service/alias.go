package service

import (
	"crypto/rand"
	"regexp"
	"strings"
)

const (
	// generatedCodeLength задаёт длину системного короткого кода
	generatedCodeLength = 6
	// Границы длины пользовательского алиаса
	aliasMinLength = 3
	aliasMaxLength = 20
)

// codeAlphabet содержит URL-безопасный алфавит из 64 символов
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// aliasPattern задаёт допустимые символы короткого кода и алиаса
var aliasPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// reservedAliases перечисляет алиасы, совпадающие с маршрутами сервера
var reservedAliases = map[string]struct{}{
	"api":       {},
	"admin":     {},
	"dashboard": {},
	"login":     {},
	"register":  {},
	"health":    {},
	"analytics": {},
	"ping":      {},
	"internal":  {},
}

// GenerateShortCode генерирует случайный короткий код фиксированной длины
func GenerateShortCode() (string, error) {
	bytes := make([]byte, generatedCodeLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	code := make([]byte, generatedCodeLength)
	for i, b := range bytes {
		// Алфавит содержит ровно 64 символа, поэтому маска не смещает распределение
		code[i] = codeAlphabet[b&63]
	}
	return string(code), nil
}

// ValidateAlias проверяет пользовательский алиас: длину, набор символов
// и список зарезервированных слов (без учёта регистра)
func ValidateAlias(alias string) error {
	if len(alias) < aliasMinLength || len(alias) > aliasMaxLength {
		return ErrAliasInvalid
	}
	if !aliasPattern.MatchString(alias) {
		return ErrAliasInvalid
	}
	if _, reserved := reservedAliases[strings.ToLower(alias)]; reserved {
		return ErrAliasReserved
	}
	return nil
}
