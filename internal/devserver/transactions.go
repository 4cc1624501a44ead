package devserver

import (
	"net/http"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/gin-gonic/gin"
)

func (s *Server) createTransaction(c *gin.Context) {
	var req models.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.TransactionID == "" || req.UserID == "" {
		fail(c, http.StatusBadRequest, "transaction_id and user_id are required")
		return
	}
	if !canAccess(c, req.UserID) {
		fail(c, http.StatusForbidden, "cannot create transactions for another user")
		return
	}
	tx, err := s.store.CreateTransaction(&req, s.now())
	if err != nil {
		failErr(c, err)
		return
	}
	s.log.Info(c.Request.Context(), "transaction created", "transaction_id", tx.TransactionID, "total", tx.Pricing.TotalAmount)
	ok(c, http.StatusCreated, tx)
}

// ownedTransaction loads :id and checks the caller may see it. It writes the
// error response itself.
func (s *Server) ownedTransaction(c *gin.Context) (*models.Transaction, bool) {
	tx, err := s.store.Transaction(c.Param("id"))
	if err != nil {
		failErr(c, err)
		return nil, false
	}
	if !canAccess(c, tx.UserID) {
		fail(c, http.StatusForbidden, "not your transaction")
		return nil, false
	}
	return tx, true
}

func (s *Server) getTransaction(c *gin.Context) {
	if tx, found := s.ownedTransaction(c); found {
		ok(c, http.StatusOK, tx)
	}
}

func (s *Server) updateTransaction(c *gin.Context) {
	tx, found := s.ownedTransaction(c)
	if !found {
		return
	}
	var upd models.TransactionUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := s.store.UpdateTransaction(tx.ID, &upd, s.now())
	if err != nil {
		failErr(c, err)
		return
	}
	s.log.Info(c.Request.Context(), "transaction updated", "transaction_id", tx.TransactionID, "status", tx.Status)
	ok(c, http.StatusOK, tx)
}

func (s *Server) transactionsByUser(c *gin.Context) {
	userID := c.Param("userId")
	if !canAccess(c, userID) {
		fail(c, http.StatusForbidden, "not your transactions")
		return
	}
	ok(c, http.StatusOK, s.store.TransactionsByUser(userID))
}
