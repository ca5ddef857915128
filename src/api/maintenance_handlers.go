package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/services"
)

// Routes under /api/societies/:society_id/maintenance
func (s *Server) registerMaintenanceRoutes(r fiber.Router) {
	r.Get("/settings", s.getSettings)
	r.Put("/settings", s.updateSettings)

	r.Get("/discount-schemes", s.listSchemes)
	r.Post("/discount-schemes", s.createScheme)
	r.Put("/discount-schemes/:scheme_id", s.updateScheme)
	r.Delete("/discount-schemes/:scheme_id", s.deleteScheme)

	r.Post("/bills/preview", s.previewBills)
	r.Post("/bills/generate", s.generateBills)
	r.Get("/bills/missing", s.missingBills)
	r.Get("/bills", s.listBills)
	r.Get("/bills/:bill_id", s.getBill)

	r.Post("/annual-payment/preview", s.annualPaymentPreview)

	r.Post("/payments", s.recordPayment)
	r.Get("/payments", s.listPayments)
	r.Get("/receipts/:payment_id", s.getReceipt)

	r.Get("/ledger/verify", s.verifyLedgers)
	r.Get("/ledger/:flat_id", s.flatLedger)

	r.Get("/collection-dashboard", s.collectionDashboard)
	r.Post("/process-overdue", s.processOverdue)
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	settings, err := s.svc.Settings.Get(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Maintenance settings loaded", settings)
}

func (s *Server) updateSettings(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req updateSettingsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	settings, err := s.svc.Settings.Update(c.UserContext(), actor, societyID, req.toService())
	if err != nil {
		return err
	}
	return Success(c, "Maintenance settings updated", settings)
}

func (s *Server) listSchemes(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	schemes, err := s.svc.Discount.ListSchemes(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Discount schemes loaded", schemes)
}

func (s *Server) createScheme(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req schemeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	scheme, err := s.svc.Discount.CreateScheme(c.UserContext(), actor, societyID, req.toService())
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Discount scheme created", scheme)
}

func (s *Server) updateScheme(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	schemeID, err := uuidParam(c, "scheme_id")
	if err != nil {
		return err
	}
	var req schemeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	scheme, err := s.svc.Discount.UpdateScheme(c.UserContext(), actor, societyID, schemeID, req.toService())
	if err != nil {
		return err
	}
	return Success(c, "Discount scheme updated", scheme)
}

func (s *Server) deleteScheme(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	schemeID, err := uuidParam(c, "scheme_id")
	if err != nil {
		return err
	}
	if err := s.svc.Discount.DeleteScheme(c.UserContext(), actor, societyID, schemeID); err != nil {
		return err
	}
	return Success(c, "Discount scheme deleted", nil)
}

func (s *Server) previewBills(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req generateBillsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	preview, err := s.svc.Bill.Preview(c.UserContext(), actor, societyID, req.toService())
	if err != nil {
		return err
	}
	return Success(c, "Bill preview", preview)
}

func (s *Server) generateBills(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req generateBillsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := s.svc.Bill.Generate(c.UserContext(), actor, societyID, req.toService())
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Bills generated", result)
}

// GET .../bills/missing?bill_period_type=monthly&month=3&year=2026
func (s *Server) missingBills(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	month, err := intQuery(c, "month")
	if err != nil {
		return err
	}
	year, err := intQuery(c, "year")
	if err != nil {
		return err
	}
	period := models.BillPeriod{
		Type:  models.BillPeriodType(c.Query("bill_period_type", string(models.BillPeriodMonthly))),
		Month: month,
		Year:  year,
	}
	missing, err := s.svc.Bill.MissingBills(c.UserContext(), actor, societyID, period)
	if err != nil {
		return err
	}
	return Success(c, "Flats without a bill", missing)
}

// GET .../bills?status=&flat_id=&month=&year=&page=&limit=
func (s *Server) listBills(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	req := services.ListBillsRequest{Status: models.BillStatus(c.Query("status"))}
	if req.FlatID, err = uuidQuery(c, "flat_id"); err != nil {
		return err
	}
	for name, dst := range map[string]*int{"month": &req.Month, "year": &req.Year, "page": &req.Page, "limit": &req.Limit} {
		if *dst, err = intQuery(c, name); err != nil {
			return err
		}
	}
	bills, err := s.svc.Bill.ListBills(c.UserContext(), actor, societyID, req)
	if err != nil {
		return err
	}
	return Success(c, "Bills loaded", bills)
}

func (s *Server) getBill(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	billID, err := uuidParam(c, "bill_id")
	if err != nil {
		return err
	}
	bill, err := s.svc.Bill.GetBill(c.UserContext(), actor, societyID, billID)
	if err != nil {
		return err
	}
	return Success(c, "Bill loaded", bill)
}

func (s *Server) annualPaymentPreview(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req annualPreviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	preview, err := s.svc.Bill.AnnualPaymentPreview(c.UserContext(), actor, societyID, services.AnnualPreviewRequest{
		FlatID:           req.FlatID,
		Year:             req.Year,
		DiscountSchemeID: req.DiscountSchemeID,
	})
	if err != nil {
		return err
	}
	return Success(c, "Annual payment preview", preview)
}

func (s *Server) recordPayment(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req recordPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	payment, err := req.toService()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "payment_date must be YYYY-MM-DD")
	}
	result, err := s.svc.Payment.Record(c.UserContext(), actor, societyID, payment)
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Payment recorded", result)
}

// GET .../payments?flat_id=&year=&page=&limit=
func (s *Server) listPayments(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req services.ListPaymentsRequest
	if req.FlatID, err = uuidQuery(c, "flat_id"); err != nil {
		return err
	}
	for name, dst := range map[string]*int{"year": &req.Year, "page": &req.Page, "limit": &req.Limit} {
		if *dst, err = intQuery(c, name); err != nil {
			return err
		}
	}
	payments, err := s.svc.Payment.ListPayments(c.UserContext(), actor, societyID, req)
	if err != nil {
		return err
	}
	return Success(c, "Payments loaded", payments)
}

func (s *Server) getReceipt(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	paymentID, err := uuidParam(c, "payment_id")
	if err != nil {
		return err
	}
	receipt, err := s.svc.Payment.GetReceipt(c.UserContext(), actor, societyID, paymentID)
	if err != nil {
		return err
	}
	return Success(c, "Receipt loaded", receipt)
}

func (s *Server) flatLedger(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	flatID, err := uuidParam(c, "flat_id")
	if err != nil {
		return err
	}
	ledger, err := s.svc.Ledger.FlatLedger(c.UserContext(), actor, societyID, flatID)
	if err != nil {
		return err
	}
	return Success(c, "Flat ledger loaded", ledger)
}

// GET .../ledger/verify replays every flat ledger of the society
func (s *Server) verifyLedgers(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	problems, err := s.svc.Ledger.VerifySociety(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Ledger verification finished", fiber.Map{
		"consistent": len(problems) == 0,
		"problems":   problems,
	})
}

// GET .../collection-dashboard?year=&month=
func (s *Server) collectionDashboard(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	year, err := intQuery(c, "year")
	if err != nil {
		return err
	}
	month, err := intQuery(c, "month")
	if err != nil {
		return err
	}
	dash, err := s.svc.Report.CollectionDashboard(c.UserContext(), actor, societyID, year, month)
	if err != nil {
		return err
	}
	return Success(c, "Collection dashboard", dash)
}

func (s *Server) processOverdue(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	result, err := s.svc.Overdue.Process(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Overdue bills processed", result)
}
