package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/vehicle-api/internal/middleware"
	"github.com/yourusername/vehicle-api/internal/websocket"
)

// WSHandler подключает клиентов к ленте изменений записей
type WSHandler struct {
	feed     *websocket.VehicleFeed
	upgrader gorillaws.Upgrader
}

// NewWSHandler создает обработчик WebSocket.
// allowedOrigins синхронизирован с настройками CORS.
func NewWSHandler(feed *websocket.VehicleFeed, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &WSHandler{
		feed: feed,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Пустой Origin - не браузерный клиент (curl, мобильное приложение)
				if origin == "" {
					return true
				}
				if _, ok := allowed[origin]; ok {
					return true
				}
				log.Printf("[WSHandler] Отклонен неразрешенный origin: %s", origin)
				return false
			},
			EnableCompression: true,
		},
	}
}

// HandleConnection переводит аутентифицированный запрос в WebSocket и подписывает клиента на ленту
func (h *WSHandler) HandleConnection(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required", "error_type": "unauthenticated"})
		return
	}
	role, _ := middleware.CurrentRole(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ с ошибкой
		log.Printf("[WSHandler] Ошибка upgrade для пользователя %d: %v", userID, err)
		return
	}

	log.Printf("[WSHandler] Соединение установлено для пользователя %d", userID)
	websocket.NewClient(h.feed.Hub(), conn, userID, string(role)).StartPumps()
}
