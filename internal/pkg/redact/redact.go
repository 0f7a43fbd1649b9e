// redact маскирует чувствительные значения перед записью в логи.
package redact

import "strings"

// Login маскирует нормализованный логин (e-mail): первые два символа
// локальной части сохраняются, домен остаётся открытым.
func Login(s string) string {
	parts := strings.Split(s, "@")
	if len(parts) != 2 {
		return "***"
	}

	local, domain := parts[0], parts[1]
	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// Addr маскирует адрес источника: для IPv4 скрывается последний октет,
// иначе значение маскируется целиком.
func Addr(s string) string {
	if s == "" {
		return "-"
	}

	parts := strings.Split(s, ".")
	if len(parts) == 4 {
		return strings.Join(parts[:3], ".") + ".*"
	}

	return "***"
}

func Token() string    { return "[REDACTED_TOKEN]" }
func Password() string { return "[REDACTED_PASSWORD]" }
