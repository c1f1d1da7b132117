package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/endorhq/endor/internal/services"
	"github.com/endorhq/endor/pkg/response"
)

// IntegrationHandler connects the caller's account to third-party providers.
type IntegrationHandler struct {
	credentials *services.CredentialService
}

// NewIntegrationHandler constructs an IntegrationHandler.
func NewIntegrationHandler(credentials *services.CredentialService) (*IntegrationHandler, error) {
	if credentials == nil {
		return nil, errors.New("integration handler: credential service is required")
	}
	return &IntegrationHandler{credentials: credentials}, nil
}

// connectRequest carries the authorization code. Chained providers ignore it.
type connectRequest struct {
	Code string `json:"code"`
}

// GET /api/integrations
func (h *IntegrationHandler) List(c *gin.Context) {
	credentials, err := h.credentials.List(requestContext(c), callerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	connected := make([]credentialDTO, 0, len(credentials))
	for i := range credentials {
		connected = append(connected, mapCredential(&credentials[i]))
	}
	response.Success(c, http.StatusOK, gin.H{
		"providers": h.credentials.Providers(),
		"connected": connected,
	})
}

// GET /api/integrations/:provider/authorize
func (h *IntegrationHandler) Authorize(c *gin.Context) {
	url, state, err := h.credentials.AuthorizeURL(c.Param("provider"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"url": url, "state": state})
}

// POST /api/integrations/:provider/connect
func (h *IntegrationHandler) Connect(c *gin.Context) {
	var req connectRequest
	if !bindAndValidate(c, &req) {
		return
	}

	credential, err := h.credentials.Connect(requestContext(c), callerID(c), c.Param("provider"), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, mapCredential(credential))
}

// DELETE /api/integrations/:provider
func (h *IntegrationHandler) Disconnect(c *gin.Context) {
	if err := h.credentials.Disconnect(requestContext(c), callerID(c), c.Param("provider")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"disconnected": true})
}
