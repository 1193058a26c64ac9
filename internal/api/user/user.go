package user

import (
	"net/http"

	"today-dashboard-api/internal/api/common"
	"today-dashboard-api/internal/store"

	"go.uber.org/zap"
)

// HandleGetMe returns the profile of the logged-in user.
func HandleGetMe(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := common.GetUserIDFromContext(r.Context())
		if err != nil {
			common.WriteJSONError(w, http.StatusUnauthorized, err.Error(), log)
			return
		}

		profile, ok := storer.GetProfile(userID)
		if !ok {
			common.WriteJSONError(w, http.StatusUnauthorized, "Unknown user", log)
			return
		}

		common.WriteJSON(w, http.StatusOK, profile, log)
	}
}

// HandleListUsers returns all profiles known to the dashboard.
func HandleListUsers(storer store.Storer, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.WriteJSON(w, http.StatusOK, storer.ListProfiles(), log)
	}
}
