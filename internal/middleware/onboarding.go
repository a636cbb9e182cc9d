package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"taxledger/internal/models"
	"taxledger/internal/services"
)

type ProfileReader interface {
	Existing(ctx context.Context, userID string) (models.OrganizationProfile, error)
}

// RequireOnboarding lets a request through only once the user's organization
// profile exists and onboarding is completed. Mount after Auth.
func RequireOnboarding(profiles ProfileReader, logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "")
				return
			}
			profile, err := profiles.Existing(r.Context(), userID)
			if err != nil {
				if errors.Is(err, services.ErrProfileNotFound) {
					writeError(w, http.StatusNotFound, "organization profile not found", "organization_profile_not_found")
					return
				}
				logger.WithError(err).WithField("user_id", userID).Error("onboarding.check_failed")
				writeError(w, http.StatusInternalServerError, "unable to verify onboarding", "")
				return
			}
			if !profile.IsCompleted() {
				writeError(w, http.StatusForbidden, "onboarding is not completed", "onboarding_not_completed")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
