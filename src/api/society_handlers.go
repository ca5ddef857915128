package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/livefire2015/ez-society/src/models"
	"github.com/livefire2015/ez-society/src/services"
)

func (s *Server) registerSocietyRoutes(r fiber.Router) {
	r.Get("/societies", s.listMySocieties)
	r.Post("/societies", s.createSociety)
	r.Get("/societies/:society_id", s.getSociety)
	r.Put("/societies/:society_id", s.updateSociety)
	r.Get("/societies/:society_id/dashboard", s.societyDashboard)
	r.Get("/societies/:society_id/members", s.listMembers)
	r.Post("/societies/:society_id/members", s.addMembership)
	r.Put("/societies/:society_id/members/:membership_id", s.updateMembership)
	r.Get("/societies/:society_id/flats", s.listFlats)
	r.Post("/societies/:society_id/flats", s.addFlat)
	r.Get("/societies/:society_id/flats/:flat_id/members", s.listFlatMembers)
	r.Post("/societies/:society_id/flats/:flat_id/members", s.assignFlatMember)
	r.Delete("/societies/:society_id/flats/:flat_id/members/:flat_member_id", s.removeFlatMember)
}

// POST /api/societies
func (s *Server) createSociety(c *fiber.Ctx) error {
	var req createSocietyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	society, err := s.svc.Society.CreateSociety(c.UserContext(), actorID(c), req.toService())
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Society created", society)
}

// GET /api/societies/:society_id
func (s *Server) getSociety(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	society, err := s.svc.Society.GetSociety(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Society loaded", society)
}

func (s *Server) addMembership(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req addMembershipRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	membership, err := s.svc.Society.AddMembership(c.UserContext(), actor, societyID, services.AddMembershipRequest{
		UserID: req.UserID,
		Role:   models.Role(req.Role),
	})
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Member added", membership)
}

func (s *Server) listFlats(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	flats, err := s.svc.Society.ListFlats(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Flats loaded", flats)
}

func (s *Server) addFlat(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req addFlatRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	flat, err := s.svc.Society.AddFlat(c.UserContext(), actor, societyID, services.AddFlatRequest{
		FlatNumber: req.FlatNumber,
		Floor:      req.Floor,
		Wing:       req.Wing,
		Area:       req.Area,
		FlatType:   req.FlatType,
	})
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Flat added", flat)
}

func (s *Server) assignFlatMember(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	flatID, err := uuidParam(c, "flat_id")
	if err != nil {
		return err
	}
	var req assignFlatMemberRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	member, err := s.svc.Society.AssignFlatMember(c.UserContext(), actor, societyID, services.AssignFlatMemberRequest{
		FlatID:       flatID,
		UserID:       req.UserID,
		RelationType: req.RelationType,
		IsPrimary:    req.IsPrimary,
	})
	if err != nil {
		return err
	}
	return SuccessWithCode(c, fiber.StatusCreated, "Flat member assigned", member)
}

// GET /api/societies
func (s *Server) listMySocieties(c *fiber.Ctx) error {
	societies, err := s.svc.Society.ListMySocieties(c.UserContext(), actorID(c))
	if err != nil {
		return err
	}
	return Success(c, "Societies loaded", societies)
}

// PUT /api/societies/:society_id
func (s *Server) updateSociety(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	var req updateSocietyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	society, err := s.svc.Society.UpdateSociety(c.UserContext(), actor, societyID, req.toService())
	if err != nil {
		return err
	}
	return Success(c, "Society updated", society)
}

func (s *Server) societyDashboard(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	dash, err := s.svc.Report.SocietyDashboard(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Dashboard loaded", dash)
}

func (s *Server) listMembers(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	members, err := s.svc.Society.ListMembers(c.UserContext(), actor, societyID)
	if err != nil {
		return err
	}
	return Success(c, "Members loaded", members)
}

func (s *Server) updateMembership(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	membershipID, err := uuidParam(c, "membership_id")
	if err != nil {
		return err
	}
	var req updateMembershipRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	membership, err := s.svc.Society.UpdateMembership(c.UserContext(), actor, societyID, membershipID, req.toService())
	if err != nil {
		return err
	}
	return Success(c, "Membership updated", membership)
}

func (s *Server) listFlatMembers(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	flatID, err := uuidParam(c, "flat_id")
	if err != nil {
		return err
	}
	members, err := s.svc.Society.ListFlatMembers(c.UserContext(), actor, societyID, flatID)
	if err != nil {
		return err
	}
	return Success(c, "Flat members loaded", members)
}

func (s *Server) removeFlatMember(c *fiber.Ctx) error {
	actor, societyID, err := societyScope(c)
	if err != nil {
		return err
	}
	flatID, err := uuidParam(c, "flat_id")
	if err != nil {
		return err
	}
	memberID, err := uuidParam(c, "flat_member_id")
	if err != nil {
		return err
	}
	if err := s.svc.Society.RemoveFlatMember(c.UserContext(), actor, societyID, flatID, memberID); err != nil {
		return err
	}
	return Success(c, "Flat member removed", nil)
}
