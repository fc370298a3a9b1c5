package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbaliyan/webmail"
	"github.com/rbaliyan/webmail/store"
)

// sendPayload is the send-message request body.
type sendPayload struct {
	To          string              `json:"to" binding:"required"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	Attachments []attachmentPayload `json:"attachments"`
}

type attachmentPayload struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

// readPayload optionally overrides the read flag. Absent body means
// mark as read.
type readPayload struct {
	Read *bool `json:"read"`
}

// handleList lists a mailbox. The mailbox query parameter defaults to
// Inbox.
func (a *API) handleList(c *gin.Context) {
	client := a.svc.Client(userID(c))

	list, err := client.Messages(c.Request.Context(), c.Query("mailbox"))
	if err != nil {
		writeError(c, err)
		return
	}

	emails := list.Emails
	if emails == nil {
		emails = []store.Email{}
	}
	c.JSON(http.StatusOK, gin.H{
		"mailbox": list.Mailbox,
		"emails":  emails,
	})
}

// handleGet retrieves one email with its attachments.
func (a *API) handleGet(c *gin.Context) {
	client := a.svc.Client(userID(c))

	email, err := client.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	attachments := email.Attachments
	if attachments == nil {
		attachments = []store.Attachment{}
	}
	c.JSON(http.StatusOK, gin.H{
		"email":       email,
		"attachments": attachments,
	})
}

// handleSend validates and dispatches an outbound message.
func (a *API) handleSend(c *gin.Context) {
	var payload sendPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
			"code":  codeInvalidRequest,
		})
		return
	}

	req := webmail.SendRequest{
		To:      payload.To,
		Subject: payload.Subject,
		Body:    payload.Body,
	}
	for _, att := range payload.Attachments {
		req.Attachments = append(req.Attachments, store.AttachmentData{
			Filename: att.Filename,
			FileURL:  att.URL,
			FileSize: att.Size,
			MIMEType: att.MIMEType,
		})
	}

	client := a.svc.Client(userID(c))
	email, err := client.Send(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"email_id": email.ID,
	})
}

// handleSetRead updates an email's read flag. The update is a silent
// no-op when the email is not owned by the caller.
func (a *API) handleSetRead(c *gin.Context) {
	var payload readPayload
	// Body is optional; binding errors on an empty body are fine.
	_ = c.ShouldBindJSON(&payload)

	read := true
	if payload.Read != nil {
		read = *payload.Read
	}

	client := a.svc.Client(userID(c))
	var err error
	if read {
		err = client.MarkRead(c.Request.Context(), c.Param("id"))
	} else {
		err = client.MarkUnread(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleToggleStar inverts an email's starred flag.
func (a *API) handleToggleStar(c *gin.Context) {
	client := a.svc.Client(userID(c))

	if err := client.ToggleStar(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleMailboxes lists the user's mailboxes.
func (a *API) handleMailboxes(c *gin.Context) {
	client := a.svc.Client(userID(c))

	mailboxes, err := client.Mailboxes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if mailboxes == nil {
		mailboxes = []store.Mailbox{}
	}

	c.JSON(http.StatusOK, gin.H{"mailboxes": mailboxes})
}
