package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reservo/services/dialog"
	"reservo/utils"
)

// ChatHandler exposes the conversation engine over HTTP.
type ChatHandler struct {
	Dialog dialog.Service
}

func NewChatHandler(svc dialog.Service) *ChatHandler {
	return &ChatHandler{Dialog: svc}
}

// HandleMessage processes one inbound chat message.
func (h *ChatHandler) HandleMessage(c *gin.Context) {
	var req dialog.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid chat request", err.Error())
		return
	}

	reply, err := h.Dialog.ProcessMessage(c.Request.Context(), req)
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}
	c.JSON(http.StatusOK, reply)
}

// PaymentWebhookInput is what the payment collaborator reports back.
type PaymentWebhookInput struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Success        bool   `json:"success"`
}

// HandlePaymentWebhook resolves a payment-gated reservation after the
// provider confirms or rejects the payment.
func (h *ChatHandler) HandlePaymentWebhook(c *gin.Context) {
	var input PaymentWebhookInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid webhook payload", err.Error())
		return
	}

	reply, err := h.Dialog.ConfirmPayment(c.Request.Context(), input.ConversationID, input.Success)
	if err != nil {
		utils.JSONError(c, http.StatusNotFound, "payment confirmation failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, reply)
}
