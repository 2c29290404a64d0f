package controller

import (
	"os"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"t3chat-be/internal/websocket"
)

type IWsController interface {
	RegisterRoutes(r fiber.Router)
}

type wsController struct {
	hub *websocket.Hub
}

func NewWsController(hub *websocket.Hub) IWsController {
	return &wsController{hub: hub}
}

func (c *wsController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Get("ws", c.upgrade, fiberws.New(c.serve))
}

// upgrade authenticates the socket before the protocol switch. Browsers
// cannot set an Authorization header on a websocket, so the access token
// rides in the token query parameter.
func (c *wsController) upgrade(ctx *fiber.Ctx) error {
	if !fiberws.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	tokenStr := ctx.Query("token")
	if tokenStr == "" {
		auth := ctx.Get("Authorization")
		if len(auth) > 7 && auth[:7] == "Bearer " {
			tokenStr = auth[7:]
		}
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}
	sub, _ := claims["sub"].(string)
	if _, err := uuid.Parse(sub); err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	ctx.Locals("user_id", sub)
	return ctx.Next()
}

func (c *wsController) serve(conn *fiberws.Conn) {
	userIdStr, _ := conn.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		conn.Close()
		return
	}
	websocket.ServeWs(c.hub, conn, userId)
}
