// internal/handlers/contact.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/projectstore/internal/i18n"
	"github.com/javajoker/projectstore/internal/services"
	"github.com/javajoker/projectstore/internal/utils"
)

type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// POST /contact
func (h *ContactHandler) Submit(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ContactRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// The service trims before validating.
	if _, err := h.contactService.Submit(c.Request.Context(), &req); err != nil {
		respondError(c, err, "contact_message")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyContactSent),
	})
}
