package validator

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// 南アフリカの9州
var Provinces = []string{
	"Eastern Cape",
	"Free State",
	"Gauteng",
	"KwaZulu-Natal",
	"Limpopo",
	"Mpumalanga",
	"Northern Cape",
	"North West",
	"Western Cape",
}

var (
	postalCodeRe = regexp.MustCompile(`^\d{4}$`)
	nonDigitRe   = regexp.MustCompile(`\D`)
)

func IsProvince(s string) bool {
	s = strings.TrimSpace(s)
	for _, p := range Provinces {
		if strings.EqualFold(p, s) {
			return true
		}
	}
	return false
}

// 郵便番号は4桁
func IsPostalCode(s string) bool {
	return postalCodeRe.MatchString(strings.TrimSpace(s))
}

// 数字以外を取り除く
func DigitsOnly(s string) string {
	return nonDigitRe.ReplaceAllString(s, "")
}

// 電話番号は数字だけにして10〜15桁
func IsPhone(s string) bool {
	n := len(DigitsOnly(s))
	return n >= 10 && n <= 15
}

func IsEmail(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return false
	}
	//「名前 <a@b>」形式は不可
	return addr.Address == trimmed && strings.Contains(trimmed, ".")
}

// 文字数（バイトではなくルーン）
func Len(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// チェックボックスの値
func Checked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "on", "true", "yes":
		return true
	default:
		return false
	}
}
