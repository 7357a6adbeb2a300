package handler

import (
	"fmt"
	"net/http"

	"peercart/internal/domain/model"
	"peercart/internal/middleware"
	"peercart/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /messages（買い手と出品者のやりとり）
type MessageHandler struct {
	*Base
	uc *usecase.MessageUsecase
}

func NewMessageHandler(base *Base, uc *usecase.MessageUsecase) *MessageHandler {
	return &MessageHandler{Base: base, uc: uc}
}

type inboxPage struct {
	Conversations []model.ConversationSummary
}

type conversationPage struct {
	usecase.ConversationView
	Me     int64
	Body   string
	Errors []string
}

func (h *MessageHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/messages", middleware.RequireLogin(h.sessions, h.log))
	g.GET("", h.inbox)
	g.GET("/:id", h.open)
	g.POST("", h.start, h.csrf.Guard(middleware.CSRFMessage))
	g.POST("/:id", h.send, h.csrf.Guard(middleware.CSRFMessage))
}

func (h *MessageHandler) inbox(c echo.Context) error {
	items, err := h.uc.Inbox(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return h.render(c, http.StatusOK, "messages", "Messages", inboxPage{Conversations: items})
}

func (h *MessageHandler) open(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	return h.renderConversation(c, http.StatusOK, id, "", nil)
}

func (h *MessageHandler) renderConversation(c echo.Context, status int, id int64, body string, errs []string) error {
	userID := middleware.UserID(c)
	v, err := h.uc.Open(c.Request().Context(), userID, id)
	if err != nil {
		return h.writeError(c, err)
	}
	return h.render(c, status, "conversation", v.Listing.Title, conversationPage{
		ConversationView: v,
		Me:               userID,
		Body:             body,
		Errors:           errs,
	})
}

// 出品ページから最初のメッセージを送る
func (h *MessageHandler) start(c echo.Context) error {
	listingID := formInt(c, "listing_id")
	back := fmt.Sprintf("/listings/%d", listingID)

	conv, err := h.uc.Start(c.Request().Context(), middleware.UserID(c), listingID, c.FormValue("body"))
	if err != nil {
		return h.flashOrFail(c, err, back)
	}
	return redirect(c, fmt.Sprintf("/messages/%d", conv.ID))
}

func (h *MessageHandler) send(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	body := c.FormValue("body")

	if _, err := h.uc.Send(c.Request().Context(), middleware.UserID(c), id, body); err != nil {
		if msgs, ok := validationMessages(err); ok {
			return h.renderConversation(c, http.StatusUnprocessableEntity, id, body, msgs)
		}
		return h.writeError(c, err)
	}
	return redirect(c, fmt.Sprintf("/messages/%d#latest", id))
}
