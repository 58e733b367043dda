package sastoken

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/carelink-api/pkg/errors"
	"github.com/jwalitptl/carelink-api/pkg/httputil"
	"github.com/jwalitptl/carelink-api/pkg/storage"
)

type Presigner interface {
	PresignUpload(ctx context.Context, container, blob string) (*storage.UploadGrant, error)
}

// Handler hands out delegated upload URLs so browsers and devices upload
// straight to the object store.
type Handler struct {
	presigner Presigner
}

func NewHandler(presigner Presigner) *Handler {
	return &Handler{presigner: presigner}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/sas_token/:container", h.IssueUploadURL)
}

// IssueUploadURL signs an upload of the blob query parameter, or of a
// fresh random name when it is absent.
func (h *Handler) IssueUploadURL(c *gin.Context) {
	container := c.Param("container")

	blob := path.Base(strings.TrimSpace(c.Query("blob")))
	if blob == "." || blob == "/" {
		blob = uuid.NewString()
	}

	grant, err := h.presigner.PresignUpload(c.Request.Context(), container, blob)
	if err != nil {
		if goerrors.Is(err, storage.ErrContainerNotAllowed) {
			httputil.RespondWithError(c, errors.Missing(fmt.Sprintf("Unknown upload container: %s", container)))
			return
		}
		httputil.RespondWithError(c, errors.Storage("presign", err))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, grant)
}
