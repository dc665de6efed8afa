package httpcontroller

import (
	"strings"

	"github.com/villedieurio/evened-web/internal/logger"
)

// echoLogAdapter adapts the structured logger to the io.Writer echo's
// logger writes to.
type echoLogAdapter struct {
	log logger.Logger
}

// Write implements io.Writer.
func (a *echoLogAdapter) Write(p []byte) (n int, err error) {
	msg := strings.TrimSpace(string(p))
	if msg != "" {
		a.log.Info(msg)
	}
	return len(p), nil
}
