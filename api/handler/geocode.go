package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fieldscout/geocode"
	"github.com/use-agent/fieldscout/models"
)

// AddressGeocoder resolves one address.
type AddressGeocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Coordinates, error)
}

// PostGeocode returns a handler for POST /api/v1/geocode.
func PostGeocode(geo AddressGeocoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.GeocodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.GeocodeResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		coords, err := geo.Geocode(c.Request.Context(), req.Address)
		if err != nil {
			se := models.AsScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.GeocodeResponse{Success: false, Error: se.ToDetail()})
			return
		}
		if coords == nil {
			c.JSON(http.StatusOK, models.GeocodeResponse{Success: true, Found: false})
			return
		}
		c.JSON(http.StatusOK, models.GeocodeResponse{
			Success:   true,
			Found:     true,
			Latitude:  coords.Lat,
			Longitude: coords.Lon,
		})
	}
}
