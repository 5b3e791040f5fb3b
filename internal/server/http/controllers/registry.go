package controllers

import (
	"net/http"

	"github.com/rzbill/smq/internal/runtime"
	messagesvc "github.com/rzbill/smq/internal/services/messages"
	logpkg "github.com/rzbill/smq/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes.
type ControllerRegistry struct {
	general  *GeneralController
	messages *MessagesController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svc *messagesvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		messages: NewMessagesController(svc, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.messages.RegisterRoutes(mux)
}
