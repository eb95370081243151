package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tOgg1/chatline/internal/chat"
	"github.com/tOgg1/chatline/internal/db"
)

type sendRequest struct {
	Text  string `json:"text"`
	Image string `json:"image"`
}

func (s *Server) handleCheckAuth(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// handleUsers lists every user except the caller.
func (s *Server) handleUsers(c *fiber.Ctx) error {
	users, err := s.users.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// handleAllMessages returns every message the caller sent or received.
// ?userId= is accepted for compatibility but must name the caller.
func (s *Server) handleAllMessages(c *fiber.Ctx) error {
	caller := currentUser(c).ID
	if err := checkClaimedUser(c, caller); err != nil {
		return err
	}
	msgs, err := s.messages.List(c.UserContext(), db.MessageQuery{Involving: caller})
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

func (s *Server) handleConversation(c *fiber.Ctx) error {
	other := chat.UserID(c.Params("id"))
	if err := chat.ValidateUserID(other); err != nil {
		return err
	}
	msgs, err := s.messages.List(c.UserContext(), db.MessageQuery{
		Involving: currentUser(c).ID,
		Between:   other,
	})
	if err != nil {
		return err
	}
	return c.JSON(msgs)
}

func (s *Server) handleSend(c *fiber.Ctx) error {
	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	msg := chat.Message{
		SenderID:   currentUser(c).ID,
		ReceiverID: chat.UserID(c.Params("id")),
		Text:       req.Text,
		Image:      req.Image,
	}
	if err := s.messages.Create(c.UserContext(), &msg); err != nil {
		return err
	}
	s.log.Debug().
		Str("message_id", msg.ID).
		Str("sender_id", msg.SenderID.String()).
		Str("receiver_id", msg.ReceiverID.String()).
		Msg("message stored")
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// handleError renders every error as {"message": ...}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code, message = fe.Code, fe.Message
	case errors.Is(err, db.ErrUserNotFound):
		code, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, chat.ErrInvalidUser),
		errors.Is(err, chat.ErrInvalidUserID),
		errors.Is(err, chat.ErrInvalidEmail),
		errors.Is(err, chat.ErrInvalidMessage),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrSelfMessage):
		code, message = fiber.StatusBadRequest, err.Error()
	default:
		s.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"message": message})
}
