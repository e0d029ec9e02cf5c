package httpx

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MikeMC777/enos-storefront/internal/rpc"
)

// CustomerHeader identifies the shopper. There is no authentication.
const CustomerHeader = "X-Customer-ID"

const customerKey = "customer_id"

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set("rid", rid)
		c.Writer.Header().Set("X-Request-ID", rid)
		c.Next()
	}
}

// Logger writes one access line per request.
func Logger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		rid, _ := c.Get("rid")
		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Any("rid", rid),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("dur", time.Since(start)),
		}
		if status >= http.StatusInternalServerError {
			log.Error("http", append(fields, zap.Strings("errors", c.Errors.Errors()))...)
			return
		}
		log.Info("http", fields...)
	}
}

// Customer rejects requests without a customer header and stores the id for
// CustomerID.
func Customer() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CustomerHeader)
		if id == "" {
			WriteError(c, http.StatusUnauthorized, rpc.Body{Message: "missing " + CustomerHeader + " header"})
			return
		}
		c.Set(customerKey, id)
		c.Next()
	}
}

func CustomerID(c *gin.Context) string { return c.GetString(customerKey) }

// WriteError aborts the request with an error body.
func WriteError(c *gin.Context, status int, body rpc.Body) {
	if body.Text() == "" {
		body.Message = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, body)
}

// Fail is WriteError with a plain message.
func Fail(c *gin.Context, status int, msg string) {
	WriteError(c, status, rpc.Body{Message: msg})
}
