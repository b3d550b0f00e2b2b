package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/example/meal-scheduler/internal/application/usecases"
	"github.com/example/meal-scheduler/internal/domain/meal"
	"github.com/example/meal-scheduler/internal/domain/user"
	"github.com/example/meal-scheduler/internal/internaltypes"
)

type Deps struct {
	Addr        string
	Sessions    *SessionManager
	Auth        usecases.AuthService
	Users       user.Repository
	UserService usecases.UserService
	AutoOrder   usecases.AutoOrder
	Ledger      meal.OrderLedger
	Templates   *template.Template
	Location    *time.Location
	// CORSOrigins are allowed to call /api with credentials.
	CORSOrigins []string
	Now         func() time.Time
	Log         *slog.Logger
}

type Server struct {
	Deps
}

func New(d Deps) *Server {
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Server{Deps: d}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.Log.Info("listening", "addr", s.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logging)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth(false))
		r.Get("/", s.handleHome)
		r.Post("/users", s.handleCreateUser)
		r.Post("/users/{id}/delete", s.handleDeleteUser)
		r.Post("/users/{id}/toggle", s.handleToggleUser)
		r.Post("/users/{id}/refresh", s.handleRefreshUser)
		r.Post("/auto-order", s.handleAutoOrder)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
		}))
		r.Use(s.requireAuth(true))
		r.Get("/users", s.apiListUsers)
		r.Post("/users", s.apiCreateUser)
		r.Delete("/users/{id}", s.apiDeleteUser)
	})
	return r
}

func (s *Server) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.Log.Info("http request",
			"method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"took", time.Since(start).String(), "request_id", middleware.GetReqID(r.Context()))
	})
}

type ctxKeyOperator struct{}

func operatorFromCtx(r *http.Request) string {
	if v, ok := r.Context().Value(ctxKeyOperator{}).(string); ok {
		return v
	}
	return ""
}

// requireAuth redirects browsers to /login; API callers get a JSON 401.
func (s *Server) requireAuth(api bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, name, ok := s.Sessions.Operator(r)
			if !ok {
				if api {
					writeError(w, http.StatusUnauthorized, "not signed in", nil)
					return
				}
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyOperator{}, name)))
		})
	}
}

// render executes the template into a buffer first so a template error
// still becomes a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.Templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.Log.Error("render template", "template", name, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func redirectWith(w http.ResponseWriter, r *http.Request, key, msg string) {
	http.Redirect(w, r, "/?"+url.Values{key: {msg}}.Encode(), http.StatusFound)
}

// --- session ---

type loginData struct {
	Title    string
	Error    string
	Username string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "login.html", loginData{Title: "Sign in"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	op, err := s.Auth.VerifyPassword(ctx, username, password)
	if err != nil {
		if !errors.Is(err, internaltypes.ErrUnauthorized) && !errors.Is(err, internaltypes.ErrNotFound) {
			s.Log.Error("operator login", "error", err)
		}
		s.render(w, http.StatusUnauthorized, "login.html", loginData{Title: "Sign in", Error: "Invalid username or password", Username: username})
		return
	}
	if err := s.Sessions.SetOperator(w, r, op.ID, op.Username); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

// --- UI ---

type userRow struct {
	user.User
	Today    []meal.OrderOutcome
	Tomorrow []meal.OrderOutcome
}

type homeData struct {
	Title    string
	Operator string
	Flash    string
	Error    string
	Today    time.Time
	Tomorrow time.Time
	Users    []userRow
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := meal.DateOf(s.Now(), s.Location)
	tomorrow := today.AddDate(0, 0, 1)

	users, err := s.Users.List(ctx, false)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		outs, err := s.Ledger.ListOutcomes(ctx, u.ID, today, tomorrow)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		row := userRow{User: u}
		for _, o := range outs {
			if o.OrderDate.Equal(today) {
				row.Today = append(row.Today, o)
			} else {
				row.Tomorrow = append(row.Tomorrow, o)
			}
		}
		rows = append(rows, row)
	}

	s.render(w, http.StatusOK, "users.html", homeData{
		Title:    "Accounts",
		Operator: operatorFromCtx(r),
		Flash:    r.URL.Query().Get("msg"),
		Error:    r.URL.Query().Get("err"),
		Today:    today,
		Tomorrow: tomorrow,
		Users:    rows,
	})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	u, err := s.UserService.Create(ctx, usecases.NewUserInput{
		Email:     r.FormValue("email"),
		Password:  r.FormValue("password"),
		AddressID: r.FormValue("address_id"),
	})
	if err != nil {
		redirectWith(w, r, "err", err.Error())
		return
	}
	redirectWith(w, r, "msg", "added "+u.Email)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.Users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirectWith(w, r, "err", err.Error())
		return
	}
	redirectWith(w, r, "msg", "account deleted")
}

func (s *Server) handleToggleUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := s.Users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		redirectWith(w, r, "err", err.Error())
		return
	}
	if err := s.Users.SetActive(ctx, u.ID, !u.Active); err != nil {
		redirectWith(w, r, "err", err.Error())
		return
	}
	state := "enabled"
	if u.Active {
		state = "disabled"
	}
	redirectWith(w, r, "msg", u.Email+" "+state)
}

func (s *Server) handleRefreshUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()
	u, err := s.Users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		redirectWith(w, r, "err", err.Error())
		return
	}
	slots, err := s.AutoOrder.Sync(ctx, u)
	if err != nil {
		redirectWith(w, r, "err", "refresh "+u.Email+": "+err.Error())
		return
	}
	redirectWith(w, r, "msg", u.Email+": "+strconv.Itoa(len(slots))+" slots synced")
}

// runView is a UserRun with its error flattened for JSON.
type runView struct {
	usecases.UserRun
	Error string `json:"error,omitempty"`
}

func (s *Server) handleAutoOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	runs, err := s.AutoOrder.RunAll(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "auto order failed", err)
		return
	}
	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, runView{UserRun: run, Error: run.ErrMessage()})
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

// --- JSON API ---

type userDTO struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	AddressID      string     `json:"address_id,omitempty"`
	Active         bool       `json:"active"`
	HasOwnPassword bool       `json:"has_own_password"`
	CreatedAt      time.Time  `json:"created_at"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

func toDTO(u user.User) userDTO {
	return userDTO{
		ID:             u.ID,
		Email:          u.Email,
		AddressID:      u.AddressID,
		Active:         u.Active,
		HasOwnPassword: u.PasswordEnc != "",
		CreatedAt:      u.CreatedAt,
		LastRunAt:      u.LastRunAt,
	}
}

type createUserRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	AddressID string `json:"address_id"`
}

func (s *Server) apiListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Users.List(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users", err)
		return
	}
	dtos := make([]userDTO, len(users))
	for i, u := range users {
		dtos[i] = toDTO(u)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (s *Server) apiCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	u, err := s.UserService.Create(ctx, usecases.NewUserInput(req))
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, toDTO(u))
	case errors.Is(err, usecases.ErrUserExists):
		writeError(w, http.StatusConflict, "user already exists", err)
	case meal.IsAuth(err):
		writeError(w, http.StatusBadRequest, "meican login failed", err)
	default:
		writeError(w, http.StatusBadRequest, "failed to create user", err)
	}
}

func (s *Server) apiDeleteUser(w http.ResponseWriter, r *http.Request) {
	err := s.Users.Delete(r.Context(), chi.URLParam(r, "id"))
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, internaltypes.ErrNotFound):
		writeError(w, http.StatusNotFound, "user not found", nil)
	default:
		writeError(w, http.StatusInternalServerError, "failed to delete user", err)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
