package httpx

import (
	"encoding/json"
	"net/http"
)

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := r.auth.Register(req.Context(), payload.FullName, payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered",
		"status":  "success",
		"user":    newUserView(*user),
	})
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	session, err := r.auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "User logged in",
		"status":    "success",
		"token":     session.Token,
		"isAdmin":   session.User.IsAdmin,
		"expiresIn": int64(session.ExpiresIn.Seconds()),
		"user":      newUserView(*session.User),
	})
}

func (r *Router) handleListUsers(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	users, err := r.auth.ListUsersWithSongs(req.Context(), info.identity())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	type userWithSongs struct {
		userView
		Songs []songView `json:"songs"`
	}
	out := make([]userWithSongs, 0, len(users))
	for _, u := range users {
		out = append(out, userWithSongs{userView: newUserView(u.User), Songs: newSongViews(u.Songs)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (r *Router) handleDeleteUser(w http.ResponseWriter, req *http.Request) {
	info, _ := authInfoFromContext(req.Context())
	if err := r.auth.DeleteUser(req.Context(), info.identity(), req.PathValue("id")); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully", "status": "success"})
}
