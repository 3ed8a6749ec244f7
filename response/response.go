package response

import (
	"pulse/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Error writes err as a failed envelope. Unexpected errors are logged with
// their cause and reach the client only as a generic message.
func Error(c *gin.Context, log logrus.FieldLogger, err error) {
	e := apperr.From(err)
	if e.Kind == apperr.KindUnexpected && log != nil {
		log.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).WithError(e.Err).Error("request failed")
	}
	c.JSON(e.Status(), Envelope{Success: false, Message: e.Message})
}

// Abort is Error for middleware: the handler chain stops here.
func Abort(c *gin.Context, log logrus.FieldLogger, err error) {
	Error(c, log, err)
	c.Abort()
}
