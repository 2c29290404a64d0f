package controller

import (
	"io"

	"github.com/gofiber/fiber/v2"

	"t3chat-be/internal/pkg/serverutils"
	"t3chat-be/internal/service"
)

type IAttachmentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	Get(ctx *fiber.Ctx) error
}

type attachmentController struct {
	attachmentService service.IAttachmentService
}

func NewAttachmentController(attachmentService service.IAttachmentService) IAttachmentController {
	return &attachmentController{
		attachmentService: attachmentService,
	}
}

func (c *attachmentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/attachment/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("", c.Upload)
	h.Get(":id", c.Get)
}

func (c *attachmentController) Upload(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)

	form, err := ctx.MultipartForm()
	if err != nil {
		return &serverutils.ValidationError{Fields: map[string]string{
			"files": "multipart form is required",
		}}
	}

	var uploads []service.Upload
	for _, header := range form.File["files"] {
		f, err := header.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return err
		}
		uploads = append(uploads, service.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	res, err := c.attachmentService.Upload(ctx.Context(), userId, uploads)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success upload attachments", res))
}

func (c *attachmentController) Get(ctx *fiber.Ctx) error {
	userId := currentUserId(ctx)
	id := ctx.Params("id")

	obj, err := c.attachmentService.Get(ctx.Context(), userId, id)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, obj.ContentType)
	return ctx.Send(obj.Data)
}
