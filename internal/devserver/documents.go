package devserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
)

// readFormFile returns the name, sniffed MIME type and content of the
// multipart "file" part.
func readFormFile(c *gin.Context) (string, string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return "", "", nil, fmt.Errorf("file is required: %w", err)
	}
	f, err := fh.Open()
	if err != nil {
		return "", "", nil, err
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return "", "", nil, err
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = mimetype.Detect(content).String()
	}
	return fh.Filename, mime, content, nil
}

// uploadDocument accepts one file for a paid transaction.
func (s *Server) uploadDocument(c *gin.Context) {
	userID := c.PostForm("userId")
	txID := c.PostForm("transactionId")
	if userID == "" || txID == "" {
		fail(c, http.StatusBadRequest, "userId and transactionId are required")
		return
	}
	if !canAccess(c, userID) {
		fail(c, http.StatusForbidden, "cannot upload for another user")
		return
	}

	tx, err := s.store.Transaction(txID)
	if err != nil {
		failErr(c, err)
		return
	}
	if !tx.IsPaid() {
		fail(c, http.StatusConflict, "transaction is not paid")
		return
	}

	name, mime, content, err := readFormFile(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	docType := c.PostForm("documentType")
	if docType == "" {
		docType = common.DefaultDocumentType
	}
	doc := s.store.AddDocument(models.Document{
		UserID:        userID,
		TransactionID: tx.TransactionID,
		DocumentType:  docType,
		FileName:      name,
		FileSize:      int64(len(content)),
		MimeType:      mime,
		Status:        models.DocumentStatusPending,
		UploadedAt:    s.now(),
	}, content)

	s.log.Info(c.Request.Context(), "document uploaded", "document_id", doc.ID, "transaction_id", tx.TransactionID, "file", name, "size", doc.FileSize)
	ok(c, http.StatusCreated, doc)
}

func (s *Server) documentsByUser(c *gin.Context) {
	userID := c.Param("userId")
	if !canAccess(c, userID) {
		fail(c, http.StatusForbidden, "not your documents")
		return
	}
	ok(c, http.StatusOK, s.store.DocumentsByUser(userID))
}

func (s *Server) documentsByTransaction(c *gin.Context) {
	tx, err := s.store.Transaction(c.Param("txId"))
	if err != nil {
		failErr(c, err)
		return
	}
	if !canAccess(c, tx.UserID) {
		fail(c, http.StatusForbidden, "not your transaction")
		return
	}
	docs, err := s.store.DocumentsByTransaction(tx.ID)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, docs)
}

func (s *Server) updateDocumentStatus(c *gin.Context) {
	var req struct {
		Status string `json:"documentStatus"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	status, valid := models.ParseDocumentStatus(req.Status)
	if !valid {
		fail(c, http.StatusBadRequest, fmt.Sprintf("unknown document status %q", req.Status))
		return
	}
	doc, err := s.store.UpdateDocument(c.Param("id"), func(d *models.Document) { d.Status = status })
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, doc)
}

func (s *Server) uploadSignedFile(c *gin.Context) {
	name, _, content, err := readFormFile(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := s.store.AttachSigned(c.Param("id"), name, content, s.now())
	if err != nil {
		failErr(c, err)
		return
	}
	s.log.Info(c.Request.Context(), "signed copy attached", "document_id", doc.ID, "file", name)
	ok(c, http.StatusOK, doc)
}

func (s *Server) deleteDocument(c *gin.Context) {
	doc, err := s.store.Document(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	if !canAccess(c, doc.UserID) {
		fail(c, http.StatusForbidden, "not your document")
		return
	}
	if err := s.store.DeleteDocument(doc.ID); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}
