package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/todo-web/internal/errors"
)

// addFlash queues a message for the next rendered page
func addFlash(c *gin.Context, message string) {
	sessions.Default(c).AddFlash(message)
}

// popFlashes returns and clears the queued messages
func popFlashes(c *gin.Context) ([]string, error) {
	session := sessions.Default(c)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}
	if err := session.Save(); err != nil {
		return nil, err
	}

	flashes := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			flashes = append(flashes, s)
		}
	}
	return flashes, nil
}

// redirect saves the session and sends a 302 to path
func redirect(c *gin.Context, path string) {
	if err := sessions.Default(c).Save(); err != nil {
		apierrors.InternalError(c, err)
		return
	}
	c.Redirect(http.StatusFound, path)
}

// RedirectTo returns a handler that redirects to path.
func RedirectTo(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		redirect(c, path)
	}
}
