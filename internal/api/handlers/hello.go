// hello.go — приветствие с порядковым номером запроса.
package handlers

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

// HelloHandler — обработчик GET /hi.
// Счётчик — единственное разделяемое изменяемое состояние сервера.
// После 2^32-1 переходит через 0.
type HelloHandler struct {
	seq atomic.Uint32
}

// NewHelloHandler создаёт обработчик приветствия.
func NewHelloHandler() *HelloHandler {
	return &HelloHandler{}
}

// GetHello обрабатывает GET /hi. Первый ответ — "Hello World 01".
func (h *HelloHandler) GetHello(w http.ResponseWriter, _ *http.Request) {
	n := h.seq.Add(1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Hello World %02d", n)
}
