package main

import (
	"os"
	"strings"
)

// defaultServiceID — имя сервиса, если hostname недоступен.
const defaultServiceID = "ingest-gateway"

// resolveServiceID возвращает идентификатор сервиса для topologymetrics.
// Пустой IG_SERVICE_ID означает имя владельца пода, выведенное из hostname.
func resolveServiceID(configured string) string {
	if configured != "" {
		return configured
	}
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		return defaultServiceID
	}
	return parseOwnerName(hostname)
}

// parseOwnerName отрезает от hostname пода суффиксы, добавленные контроллером:
//
//	<deployment>-<pod-template-hash>-<random5> → <deployment>
//	<statefulset>-<ordinal>                    → <statefulset>
//
// Прочие имена возвращаются как есть.
func parseOwnerName(hostname string) string {
	parts := strings.Split(hostname, "-")
	n := len(parts)

	if n >= 3 && isLowerAlnum(parts[n-1], 5, 5) && isLowerAlnum(parts[n-2], 6, 10) {
		return strings.Join(parts[:n-2], "-")
	}
	if n >= 2 && isDigits(parts[n-1]) {
		return strings.Join(parts[:n-1], "-")
	}
	return hostname
}

func isLowerAlnum(s string, minLen, maxLen int) bool {
	if len(s) < minLen || len(s) > maxLen {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
