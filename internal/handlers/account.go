package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/authcore/internal/services"
	apperrors "github.com/charlesng35/authcore/pkg/errors"
	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/response"
)

const defaultActivityLimit = 50

// AccountHandler serves self-service operations of the authenticated caller
// and the public code confirmations that complete them.
type AccountHandler struct {
	accounts *services.AccountService
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(accounts *services.AccountService) (*AccountHandler, error) {
	if accounts == nil {
		return nil, errors.New("account handler: account service is required")
	}
	return &AccountHandler{accounts: accounts}, nil
}

type changeEmailRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewEmail        string `json:"new_email" validate:"required,email,max=255"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password,max=128"`
}

// GET /api/account/me
func (h *AccountHandler) Me(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	user, err := h.accounts.Me(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newUserResponse(user))
}

// POST /api/account/email
func (h *AccountHandler) RequestEmailChange(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req changeEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.RequestEmailChange(requestContext(c), id, req.CurrentPassword, req.NewEmail); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"message": "a verification code has been sent to the new address"})
}

// POST /api/account/email/verify
//
// Confirming an email change revokes every session and starts a new one.
func (h *AccountHandler) VerifyEmailChange(c *gin.Context) {
	var req codeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.accounts.VerifyEmailChange(requestContext(c), clientContext(c), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, newTokenResponse(result))
}

// POST /api/account/password
func (h *AccountHandler) RequestPasswordChange(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.RequestPasswordChange(requestContext(c), id, req.CurrentPassword, req.NewPassword); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{"message": "a verification code has been sent"})
}

// POST /api/account/password/verify
func (h *AccountHandler) VerifyPasswordChange(c *gin.Context) {
	var req codeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.accounts.VerifyPasswordChange(requestContext(c), req.Code); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"password_changed": true})
}

// GET /api/account/sessions
func (h *AccountHandler) ListSessions(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	sessions, err := h.accounts.ListSessions(requestContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, sessions, &response.Meta{Total: len(sessions)})
}

// DELETE /api/account/sessions/:id
func (h *AccountHandler) RevokeSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	sessionID := strings.TrimSpace(c.Param("id"))
	if sessionID == "" {
		response.Error(c, apperrors.NewBadRequest("session id is required"))
		return
	}

	if err := h.accounts.RevokeSessionByID(requestContext(c), id, sessionID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/account/activity?limit=N
func (h *AccountHandler) Activity(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	logs, err := h.accounts.Activity(requestContext(c), id, parseIntQuery(c, "limit", defaultActivityLimit))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]activityResponse, 0, len(logs))
	for _, entry := range logs {
		item := activityResponse{
			ID:        entry.ID,
			Action:    entry.Action,
			Result:    entry.Result,
			IPAddress: entry.IPAddress,
			UserAgent: entry.UserAgent,
			CreatedAt: entry.CreatedAt,
		}
		if len(entry.Metadata) > 0 {
			if err := json.Unmarshal(entry.Metadata, &item.Metadata); err != nil {
				item.Metadata = nil
				logger.WithModule("account_handler").Warn("audit metadata unreadable",
					zap.String("audit_id", entry.ID),
					zap.Error(err),
				)
			}
		}
		items = append(items, item)
	}

	response.SuccessWithMeta(c, http.StatusOK, items, &response.Meta{Total: len(items)})
}
