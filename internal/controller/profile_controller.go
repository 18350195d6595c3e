// internal/controller/profile_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/helpflow-backend/internal/middleware"
	"github.com/unclebandit/helpflow-backend/internal/service"
)

type ProfileController struct {
	ProfileService *service.ProfileService
}

// GetProfile handles GET /api/profiles/{clerkUserId}. With ?email= a missing profile is created.
func (c *ProfileController) GetProfile(w http.ResponseWriter, r *http.Request) {
	clerkUserID := chi.URLParam(r, "clerkUserId")
	if subject := middleware.SubjectFromContext(r.Context()); subject != "" && subject != clerkUserID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
		return
	}

	profile, created, err := c.ProfileService.GetOrCreateProfile(r.Context(), clerkUserID, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err, "Failed to load profile")
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, profile)
}
