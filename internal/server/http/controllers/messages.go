package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/rzbill/smq/internal/queue"
	messagesvc "github.com/rzbill/smq/internal/services/messages"
	logpkg "github.com/rzbill/smq/pkg/log"
)

// MessagesController handles the queue's HTTP endpoints: add, get, delete,
// purge, retry, peek, and stats.
type MessagesController struct {
	svc    *messagesvc.Service
	logger logpkg.Logger
}

// NewMessagesController creates a new messages controller.
func NewMessagesController(svc *messagesvc.Service, logger logpkg.Logger) *MessagesController {
	if logger == nil {
		logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	return &MessagesController{svc: svc, logger: logger.WithComponent("http")}
}

// RegisterRoutes registers queue routes with the given mux.
func (c *MessagesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/add", c.handleAdd)
	mux.HandleFunc("/get", c.handleGet)
	mux.HandleFunc("/delete", c.handleDelete)
	mux.HandleFunc("/purge", c.handlePurge)
	mux.HandleFunc("/retry", c.handleRetry)
	mux.HandleFunc("/peek", c.handlePeek)
	mux.HandleFunc("/stats", c.handleStats)
}

type addReq struct {
	Body string `json:"body"`
}

// handleAdd enqueues a new message and returns it.
// POST /add {"body": "..."}
func (c *MessagesController) handleAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req addReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	msg, err := c.svc.Add(r.Context(), req.Body)
	if err != nil {
		c.logger.Warn("add failed", logpkg.Err(err))
		writeDomainError(w, err)
		return
	}
	writeData(w, msg)
}

type countReq struct {
	Count int `json:"count"`
}

// handleGet leases up to count messages.
// POST /get {"count": n} (count defaults to 1)
func (c *MessagesController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	req := countReq{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	msgs, err := c.svc.Get(r.Context(), normalizeCount(req.Count))
	if err != nil {
		c.logger.Warn("get failed", logpkg.Err(err))
		writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []queue.Message{}
	}
	writeData(w, msgs)
}

type idsReq struct {
	IDs []string `json:"ids"`
}

// handleDelete acknowledges leased messages.
// POST /delete {"ids": ["..."]}
func (c *MessagesController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req idsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := c.svc.Delete(r.Context(), req.IDs); err != nil {
		c.logger.Warn("delete failed", logpkg.Err(err))
		writeDomainError(w, err)
		return
	}
	writeData(w, "Success")
}

// handlePurge clears the whole queue.
// POST /purge
func (c *MessagesController) handlePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := c.svc.Purge(r.Context()); err != nil {
		c.logger.Warn("purge failed", logpkg.Err(err))
		writeDomainError(w, err)
		return
	}
	writeData(w, "Success")
}

// handleRetry releases leased messages back to the ready tail.
// POST /retry {"ids": ["..."]}
func (c *MessagesController) handleRetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req idsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := c.svc.Retry(r.Context(), req.IDs); err != nil {
		c.logger.Warn("retry failed", logpkg.Err(err))
		writeDomainError(w, err)
		return
	}
	writeData(w, "Success")
}

type peekReq struct {
	Count  int    `json:"count"`
	Filter string `json:"filter"`
}

// handlePeek previews ready messages without leasing them. An optional
// filter expression narrows the previewed window.
// POST /peek {"count": n, "filter": "..."}
func (c *MessagesController) handlePeek(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	req := peekReq{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	msgs, err := c.svc.Peek(r.Context(), normalizeCount(req.Count), req.Filter)
	if err != nil {
		c.logger.Warn("peek failed", logpkg.Err(err))
		writeDomainError(w, err)
		return
	}
	if msgs == nil {
		msgs = []queue.Message{}
	}
	writeData(w, msgs)
}

// handleStats reports the partition sizes.
// GET /stats
func (c *MessagesController) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	st, err := c.svc.Stats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeData(w, st)
}
