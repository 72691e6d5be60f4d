package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fieldscout/models"
)

// FieldParser is the prompt interpreter behind /fields.
type FieldParser interface {
	Parse(ctx context.Context, prompt string) models.FieldSet
	Explain(prompt string) map[string][]string
}

// PostFields returns a handler for POST /api/v1/fields, which shows the
// fields a prompt would request and the keywords that matched.
func PostFields(parser FieldParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.FieldsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		fs := parser.Parse(c.Request.Context(), req.Prompt)
		c.JSON(http.StatusOK, models.FieldsResponse{
			Fields:   fs.Strings(),
			Keywords: parser.Explain(req.Prompt),
		})
	}
}
