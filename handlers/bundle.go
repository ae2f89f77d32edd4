package handlers

import "github.com/gin-gonic/gin"

// HandlerBundle groups the endpoint handlers handed to route registration.
type HandlerBundle struct {
	ChatMessageHandler    gin.HandlerFunc
	PaymentWebhookHandler gin.HandlerFunc
}
