package api

import (
	"github.com/gofiber/fiber/v2"
)

// Routes under /api/societies/:society_id/reports
func (s *Server) registerReportRoutes(r fiber.Router) {
	r.Get("/monthly-summary", s.monthlySummary)
	r.Get("/category-spending", s.categorySpending)
	r.Get("/outstanding-dues", s.outstandingDues)
	r.Get("/annual-summary", s.annualSummary)
}

// Routes under /api/societies/:society_id/notifications
func (s *Server) registerNotificationRoutes(r fiber.Router) {
	r.Get("/", s.listNotifications)
	r.Get("/unread-count", s.unreadCount)
	r.Post("/read-all", s.markAllRead)
	r.Post("/:notification_id/read", s.markRead)
}

func (s *Server) monthlySummary(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	year, err := intQuery(c, "year")
	if err != nil {
		return err
	}
	rows, err := s.svc.Report.MonthlySummary(c.UserContext(), actor, societyID, year)
	if err != nil {
		return err
	}
	return Success(c, "Monthly summary", rows)
}

func (s *Server) categorySpending(c *fiber.Ctx) error {
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
	rows, err := s.svc.Report.CategorySpending(c.UserContext(), actor, societyID, year, month)
	if err != nil {
		return err
	}
	return Success(c, "Category spending", rows)
}

func (s *Server) outstandingDues(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	dues, err := s.svc.Report.OutstandingDues(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Outstanding dues", dues)
}

func (s *Server) annualSummary(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	year, err := intQuery(c, "year")
	if err != nil {
		return err
	}
	summary, err := s.svc.Report.AnnualSummary(c.UserContext(), actor, societyID, year)
	if err != nil {
		return err
	}
	return Success(c, "Annual summary", summary)
}

func (s *Server) listNotifications(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	notifications, err := s.svc.Notification.List(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Notifications loaded", notifications)
}

func (s *Server) unreadCount(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	count, err := s.svc.Notification.UnreadCount(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Unread notifications", fiber.Map{"unread": count})
}

func (s *Server) markRead(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	notificationID, err := uuidParam(c, "notification_id")
	if err != nil {
		return err
	}
	if err := s.svc.Notification.MarkRead(c.UserContext(), actor, societyID, notificationID); err != nil {
		return err
	}
	return Success(c, "Notification marked read", nil)
}

func (s *Server) markAllRead(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	marked, err := s.svc.Notification.MarkAllRead(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Notifications marked read", fiber.Map{"marked": marked})
}
