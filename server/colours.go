package server

import "net/http"

// ANSI colours for the DEV route log
const (
	ResetColor = "\033[0m"
	Red        = "\033[31m"
	Green      = "\033[32m"
	Yellow     = "\033[33m"
	Blue       = "\033[34m"
	Cyan       = "\033[36m"
	Gray       = "\033[90m"
)

var methodColors = map[string]string{
	http.MethodGet:     Green,
	http.MethodPost:    Blue,
	http.MethodPut:     Yellow,
	http.MethodDelete:  Red,
	http.MethodOptions: Cyan,
}
