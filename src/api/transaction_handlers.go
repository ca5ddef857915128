package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/services"
)

// Routes under /api/societies/:society_id/transactions
func (s *Server) registerTransactionRoutes(r fiber.Router) {
	r.Get("/categories", s.transactionCategories)
	r.Get("/count", s.countTransactions)
	r.Get("/", s.listTransactions)
	r.Post("/", s.createTransaction)
	r.Get("/:txn_id", s.getTransaction)
}

// Routes under /api/societies/:society_id/approvals
func (s *Server) registerApprovalRoutes(r fiber.Router) {
	r.Get("/", s.listApprovals)
	r.Post("/:txn_id/approve", s.approveTransaction)
	r.Post("/:txn_id/reject", s.rejectTransaction)
}

func (s *Server) transactionCategories(c *fiber.Ctx) error {
	return Success(c, "Transaction categories", s.svc.Transaction.Categories())
}

// listTransactionsQuery reads the type, category, status, year, month, page and limit query parameters
func listTransactionsQuery(c *fiber.Ctx) (services.ListTransactionsRequest, error) {
	req := services.ListTransactionsRequest{
		Type:     models.TransactionType(c.Query("type")),
		Category: c.Query("category"),
		Status:   models.ApprovalStatus(c.Query("status")),
	}
	var err error
	for name, dst := range map[string]*int{"year": &req.Year, "month": &req.Month, "page": &req.Page, "limit": &req.Limit} {
		if *dst, err = intQuery(c, name); err != nil {
			return services.ListTransactionsRequest{}, err
		}
	}
	return req, nil
}

func (s *Server) listTransactions(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	req, err := listTransactionsQuery(c)
	if err != nil {
		return err
	}
	txns, err := s.svc.Transaction.List(c.UserContext(), actor, societyID, req)
	if err != nil {
		return err
	}
	return Success(c, "Transactions loaded", txns)
}

func (s *Server) countTransactions(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	req, err := listTransactionsQuery(c)
	if err != nil {
		return err
	}
	count, err := s.svc.Transaction.Count(c.UserContext(), actor, societyID, req)
	if err != nil {
		return err
	}
	return Success(c, "Transaction count", fiber.Map{"count": count})
}

func (s *Server) createTransaction(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var body createTransactionRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	req, err := body.toService()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
	}
	txn, err := s.svc.Transaction.Create(c.UserContext(), actor, societyID, req)
	if err != nil {
		return err
	}
	message := "Transaction recorded"
	if txn.IsPending() {
		message = "Transaction submitted for approval"
	}
	return SuccessWithCode(c, fiber.StatusCreated, message, txn)
}

func (s *Server) getTransaction(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	txnID, err := uuidParam(c, "txn_id")
	if err != nil {
		return err
	}
	txn, err := s.svc.Transaction.Get(c.UserContext(), actor, societyID, txnID)
	if err != nil {
		return err
	}
	return Success(c, "Transaction loaded", txn)
}

// GET /api/societies/:society_id/approvals lists pending transactions unless ?status= says otherwise
func (s *Server) listApprovals(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	req, err := listTransactionsQuery(c)
	if err != nil {
		return err
	}
	if req.Status == "" {
		req.Status = models.ApprovalPending
	}
	req.Type = models.TransactionOutward
	txns, err := s.svc.Transaction.List(c.UserContext(), actor, societyID, req)
	if err != nil {
		return err
	}
	return Success(c, "Approvals loaded", txns)
}

func (s *Server) approveTransaction(c *fiber.Ctx) error {
	return s.reviewTransaction(c, true)
}

func (s *Server) rejectTransaction(c *fiber.Ctx) error {
	return s.reviewTransaction(c, false)
}

func (s *Server) reviewTransaction(c *fiber.Ctx, approve bool) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	txnID, err := uuidParam(c, "txn_id")
	if err != nil {
		return err
	}
	var req reviewRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}

	review, message := s.svc.Transaction.Approve, "Transaction approved"
	if !approve {
		review, message = s.svc.Transaction.Reject, "Transaction rejected"
	}
	txn, err := review(c.UserContext(), actor, societyID, txnID, req.Comments)
	if err != nil {
		return err
	}
	return Success(c, message, txn)
}
