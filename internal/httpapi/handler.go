package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kitbuilder587/imgrelay/internal/domain"
	"github.com/kitbuilder587/imgrelay/internal/service"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	msgRateLimited = "Rate limit exceeded."
	msgInternal    = "Internal server error."
)

const (
	paramProduct  = "product"
	paramImgbbKey = "imgbb_key"
)

// порядок полей совпадает с порядком ключей в ответе
type successResponse struct {
	Status        string `json:"status"`
	Product       string `json:"product"`
	URL           string `json:"url"`
	MarkdownEmbed string `json:"markdown_embed"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type validationDetail struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type validationResponse struct {
	Detail []validationDetail `json:"detail"`
}

type imageHandler struct {
	service service.ImageService
}

func newImageHandler(svc service.ImageService) *imageHandler {
	return &imageHandler{service: svc}
}

func (h *imageHandler) GetImageURL(c *gin.Context) {
	// 422 только при отсутствии параметра, пустое значение уходит в пайплайн
	product, hasProduct := c.GetQuery(paramProduct)
	key, hasKey := c.GetQuery(paramImgbbKey)
	if !hasProduct || !hasKey {
		c.PureJSON(http.StatusUnprocessableEntity, missingParams(hasProduct, hasKey))
		return
	}

	res, err := h.service.Process(c.Request.Context(), &domain.ImageRequest{
		Query:      product,
		Credential: key,
	})
	if err != nil {
		c.PureJSON(http.StatusInternalServerError, ErrorBody(err))
		return
	}

	c.PureJSON(http.StatusOK, SuccessBody(product, res.URL))
}

// SuccessBody и ErrorBody - тела ответов, их же печатает CLI.
func SuccessBody(product, url string) any {
	return successResponse{
		Status:        statusSuccess,
		Product:       product,
		URL:           url,
		MarkdownEmbed: domain.MarkdownEmbed(product, url),
	}
}

func ErrorBody(err error) any {
	return errorResponse{
		Status:  statusError,
		Message: errorMessage(err),
	}
}

// errorMessage отдает клиенту только сообщение Kind, причины остаются в логах сервиса.
func errorMessage(err error) string {
	var perr *domain.PipelineError
	if errors.As(err, &perr) {
		return perr.Error()
	}
	return msgInternal
}

func missingParams(hasProduct, hasKey bool) validationResponse {
	var resp validationResponse
	if !hasProduct {
		resp.Detail = append(resp.Detail, fieldRequired(paramProduct))
	}
	if !hasKey {
		resp.Detail = append(resp.Detail, fieldRequired(paramImgbbKey))
	}
	return resp
}

func fieldRequired(field string) validationDetail {
	return validationDetail{
		Loc:  []string{"query", field},
		Msg:  "field required",
		Type: "value_error.missing",
	}
}
