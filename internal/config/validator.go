package config

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const maxMessageRunes = 2000

func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("message_body", validateMessageBody)
	return v
}

func validateMessageBody(fl validator.FieldLevel) bool {
	body := strings.TrimSpace(fl.Field().String())
	if body == "" {
		return false
	}
	return utf8.RuneCountInString(body) <= maxMessageRunes
}
