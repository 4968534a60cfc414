package middleware

import (
	"net/http"

	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/common"
	"github.com/Flormusi/trainfit-backend-clean-sub000/internal/repositories"

	"github.com/labstack/echo/v4"
)

// TrainerMiddleware guards trainer-only correction endpoints.
type TrainerMiddleware struct {
	userRepo repositories.UserRepository
}

func NewTrainerMiddleware(userRepo repositories.UserRepository) *TrainerMiddleware {
	return &TrainerMiddleware{userRepo: userRepo}
}

// RequireClientRelationship ensures the authenticated caller has an
// established trainer relationship with the client named by the route
// parameter. Without one the request is rejected before any ledger
// mutation can happen.
func (m *TrainerMiddleware) RequireClientRelationship(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			trainerID, ok := common.GetUserIDFromContext(ctx)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}

			clientID, err := common.ValidateUUID(c.Param(param), "client id")
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}

			related, err := m.userRepo.HasClientRelationship(ctx, trainerID, clientID)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "Error checking trainer relationship")
			}
			if !related {
				return echo.NewHTTPError(http.StatusForbidden, "No trainer relationship with this client")
			}

			return next(c)
		}
	}
}
