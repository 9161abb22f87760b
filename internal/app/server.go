package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/fluxpost/internal/content"
	"github.com/your-org/fluxpost/internal/fallback"
	"github.com/your-org/fluxpost/internal/logging"
	"github.com/your-org/fluxpost/internal/security"
	"github.com/your-org/fluxpost/internal/session"
	"github.com/your-org/fluxpost/internal/social"
	"github.com/your-org/fluxpost/internal/social/threads"
)

const maxBodyBytes = 1 << 20

var errBadBody = errors.New("invalid request body")

// Handler builds the service mux with request logging and the session guard.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("POST /api/ai/generate", a.handleGenerate)
	mux.HandleFunc("POST /api/ai/{provider}/generate", a.handleProviderGenerate)
	mux.HandleFunc("POST /api/ai/social-post", a.handleSocialPost)
	mux.HandleFunc("POST /api/ai/tip", a.handleTip)
	mux.HandleFunc("POST /api/ai/marketing", a.handleMarketing)

	mux.HandleFunc("POST /api/threads/create-container", a.handleThreadsCreate)
	mux.HandleFunc("POST /api/threads/publish", a.handleThreadsPublish)
	mux.HandleFunc("POST /api/threads/post", a.handleThreadsPost)
	mux.HandleFunc("POST /api/threads/profile", a.handleThreadsProfile)
	mux.HandleFunc("POST /api/threads/insights", a.handleThreadsInsights)

	mux.HandleFunc("POST /api/facebook/pages", a.handleFacebookPages)
	mux.HandleFunc("POST /api/facebook/post", a.handleFacebookPost)

	guard := session.Guard(a.Issuer, session.DefaultPublicPaths,
		session.WithRule("/api/ai/", security.ActionGenerate),
		session.WithRule("/api/threads/", security.ActionPublish),
		session.WithRule("/api/facebook/", security.ActionPublish),
	)
	return a.logRequests(guard(mux))
}

type generateBody struct {
	Prompt   string `json:"prompt"`
	Category string `json:"category,omitempty"`
	Model    string `json:"model,omitempty"`
}

// handleGenerate runs the whole chain. ?verbose=1 returns the attempt report.
func (a *App) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body generateBody
	if !a.decode(w, r, &body) {
		return
	}
	req := fallback.Request{Prompt: body.Prompt, Category: body.Category}
	if r.URL.Query().Get("verbose") != "" {
		rep, err := a.Chain.GenerateReport(r.Context(), req)
		if err != nil {
			a.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
		return
	}
	res, err := a.Chain.Generate(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleProviderGenerate calls one provider; it is what remote-mode chains target.
func (a *App) handleProviderGenerate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	p, ok := a.Registry.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{StatusCode: http.StatusNotFound, Message: fmt.Sprintf("unknown provider %q", name)})
		return
	}
	var body generateBody
	if !a.decode(w, r, &body) {
		return
	}
	// The provider checks its credential before the prompt, so a request
	// missing both reports the missing key.
	var opts []fallback.AdapterOption
	if body.Model != "" {
		opts = append(opts, fallback.UseModel(body.Model))
	}
	res, err := fallback.ProviderStrategy(p, opts...).Generate(r.Context(), fallback.Request{Prompt: body.Prompt, Category: body.Category})
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleSocialPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Topic    string `json:"topic"`
		Platform string `json:"platform"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	res, err := a.Content.SocialPost(r.Context(), body.Topic, content.Platform(body.Platform))
	a.respond(w, res, err)
}

func (a *App) handleTip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Category string `json:"category"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	res, err := a.Content.Tip(r.Context(), body.Category)
	a.respond(w, res, err)
}

func (a *App) handleMarketing(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Product string `json:"product"`
		Tone    string `json:"tone"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	res, err := a.Content.MarketingCopy(r.Context(), body.Product, content.Tone(body.Tone))
	a.respond(w, res, err)
}

type threadsBody struct {
	AccessToken string `json:"accessToken"`
	Text        string `json:"text"`
	ImageURL    string `json:"imageUrl"`
	LinkURL     string `json:"linkUrl"`
	CreationID  string `json:"creationId"`
	PostID      string `json:"postId"`
}

func (b threadsBody) post() threads.Post {
	return threads.Post{Text: b.Text, ImageURL: b.ImageURL, LinkURL: b.LinkURL}
}

type publishedBody struct {
	Success    bool   `json:"success"`
	ID         string `json:"id,omitempty"`
	CreationID string `json:"creationId,omitempty"`
	PostID     string `json:"postId,omitempty"`
	Message    string `json:"message"`
}

func (a *App) handleThreadsCreate(w http.ResponseWriter, r *http.Request) {
	var body threadsBody
	if !a.decode(w, r, &body) {
		return
	}
	id, err := a.Threads.CreateContainer(r.Context(), body.AccessToken, body.post())
	a.respond(w, publishedBody{Success: true, ID: id, Message: "Media container created successfully"}, err)
}

func (a *App) handleThreadsPublish(w http.ResponseWriter, r *http.Request) {
	var body threadsBody
	if !a.decode(w, r, &body) {
		return
	}
	id, err := a.Threads.Publish(r.Context(), body.AccessToken, body.CreationID)
	a.respond(w, publishedBody{Success: true, ID: id, Message: "Posted successfully to Threads"}, err)
}

func (a *App) handleThreadsPost(w http.ResponseWriter, r *http.Request) {
	var body threadsBody
	if !a.decode(w, r, &body) {
		return
	}
	out, err := a.Threads.Post(r.Context(), body.AccessToken, body.post())
	a.respond(w, publishedBody{Success: true, ID: out.ID, CreationID: out.CreationID, Message: "Posted successfully to Threads"}, err)
}

func (a *App) handleThreadsProfile(w http.ResponseWriter, r *http.Request) {
	var body threadsBody
	if !a.decode(w, r, &body) {
		return
	}
	profile, err := a.Threads.Profile(r.Context(), body.AccessToken)
	a.respond(w, profile, err)
}

func (a *App) handleThreadsInsights(w http.ResponseWriter, r *http.Request) {
	var body threadsBody
	if !a.decode(w, r, &body) {
		return
	}
	insights, err := a.Threads.Insights(r.Context(), body.AccessToken, body.PostID)
	a.respond(w, insights, err)
}

func (a *App) handleFacebookPages(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserAccessToken string `json:"userAccessToken"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	fb, err := a.Facebook.Load(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	pages, err := fb.Pages(r.Context(), body.UserAccessToken)
	a.respond(w, pages, err)
}

func (a *App) handleFacebookPost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PageID          string `json:"pageId"`
		PageAccessToken string `json:"pageAccessToken"`
		Message         string `json:"message"`
		ImageURL        string `json:"imageUrl"`
	}
	if !a.decode(w, r, &body) {
		return
	}
	fb, err := a.Facebook.Load(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	postID, err := fb.Post(r.Context(), body.PageID, body.PageAccessToken, body.Message, body.ImageURL)
	a.respond(w, publishedBody{Success: true, PostID: postID, Message: "Posted successfully to Facebook"}, err)
}

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// StatusCode maps any service error to the HTTP status the API reports.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, errBadBody), errors.Is(err, content.ErrInvalid):
		return http.StatusBadRequest
	default:
		return social.StatusCode(err)
	}
}

func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		a.writeError(w, fmt.Errorf("%w: %v", errBadBody, err))
		return false
	}
	return true
}

func (a *App) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("request failed", zap.Int("status_code", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{StatusCode: status, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (a *App) logRequests(next http.Handler) http.Handler {
	log := a.Logger.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			logging.Duration(started),
		)
	})
}

// Serve runs the HTTP service until ctx is done, over TLS when configured.
func (a *App) Serve(ctx context.Context) error {
	cfg := a.Config.Server
	srv := &http.Server{Addr: cfg.Addr, Handler: a.Handler(), ReadHeaderTimeout: 5 * time.Second}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return a.serve(ctx, srv, ln)
}

func (a *App) serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	cfg := a.Config.Server
	if cfg.TLS.Enabled {
		tlsCfg, err := security.ServerTLS(cfg.TLS)
		if err != nil {
			_ = ln.Close()
			return err
		}
		srv.TLSConfig = tlsCfg
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("http server started", zap.String("addr", ln.Addr().String()), zap.Bool("tls", cfg.TLS.Enabled))
		if cfg.TLS.Enabled {
			errCh <- srv.ServeTLS(ln, "", "")
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
