package server

import (
	"fmt"
	"strings"
)

// Boundary validation. Each helper returns a caller-facing message, or
// "" when the parameter is valid. Invalid parameters never fault the
// protocol: tools turn these messages into records with error set.

const (
	minTimeoutMS = 1000
	maxTimeoutMS = 300000
	maxBatchURLs = 100
)

func validateURLParam(url string) string {
	if strings.TrimSpace(url) == "" {
		return "URL cannot be empty"
	}
	return ""
}

func validateTimeoutMS(timeoutMS int) string {
	if timeoutMS < minTimeoutMS || timeoutMS > maxTimeoutMS {
		return fmt.Sprintf("Timeout must be between %d and %d milliseconds", minTimeoutMS, maxTimeoutMS)
	}
	return ""
}

func validateExtractMode(mode string) string {
	switch strings.ToLower(mode) {
	case "text", "html", "both":
		return ""
	}
	return "Extract must be one of: text, html, both"
}

func validateDelay(delaySeconds float64) string {
	if delaySeconds < 0 {
		return "Delay must be non-negative"
	}
	return ""
}

func validateURLsList(urls []string) string {
	if len(urls) == 0 {
		return "URLs list cannot be empty"
	}
	if len(urls) > maxBatchURLs {
		return fmt.Sprintf("URLs list cannot have more than %d items", maxBatchURLs)
	}
	return ""
}

func validateSelectorsMap(selectors map[string]string) string {
	if selectors == nil {
		return "Selectors must be a dictionary"
	}
	return ""
}
