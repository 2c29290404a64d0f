package controller

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"t3chat-be/internal/dto"
	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/internal/service"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	NewChat(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	ApplyIntent(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	Stop(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
}

func NewChatController(chatService service.IChatService) IChatController {
	return &chatController{
		chatService: chatService,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("new-chat", c.NewChat)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Post(":id", c.ApplyIntent)
	h.Post(":id/stream", c.Stream)
	h.Post(":id/stop", c.Stop)
}

func (c *chatController) NewChat(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	res, err := c.chatService.NewChat(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create chat", res))
}

func (c *chatController) List(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	query := ctx.Query("q")

	res, err := c.chatService.List(ctx.Context(), userId, query)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list chats", res))
}

func (c *chatController) Show(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrNotFound
	}

	res, err := c.chatService.Show(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show chat", res))
}

func (c *chatController) ApplyIntent(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrNotFound
	}

	var req dto.ChatIntentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.chatService.ApplyIntent(ctx.Context(), userId, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success apply intent", res))
}

// Stream relays model output as server-sent events. Each chunk is one data
// event; the stream terminates with [DONE] on success or an error event.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrNotFound
	}

	var req dto.StreamChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	reqCtx := ctx.Context()
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		err := c.chatService.Stream(reqCtx, userId, id, &req, func(chunk string) error {
			encoded, err := json.Marshal(chunk)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", encoded); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", sseErrorMessage(err))
			w.Flush()
			return
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Flush()
	}))

	return nil
}

func (c *chatController) Stop(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return serverutils.ErrNotFound
	}

	res, err := c.chatService.Stop(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success stop stream", res))
}

// sseErrorMessage keeps upstream detail out of the wire; the transcript shows
// a generic failure and the client retries explicitly.
func sseErrorMessage(err error) string {
	var verr *serverutils.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, serverutils.ErrNotFound):
		return "chat not found"
	}
	return "inference stream failed"
}

func currentUserId(ctx *fiber.Ctx) uuid.UUID {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	return userId
}
