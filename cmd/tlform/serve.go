package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pthm/tlform"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a demo application that answers with form-render headers",
	Long: `Serve starts a small sign-up application. Submitting the form with an
empty name re-renders only the form with a 422; a name of "stay" re-renders
the page with a 200; any other name redirects. /boom answers with a 500
error page.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Address to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Listen
	if serveListen != "" {
		addr = serveListen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           newDemoRouter(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("demo listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newDemoRouter(log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(tlform.Middleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/signup", http.StatusFound)
	})
	r.Get("/signup", func(w http.ResponseWriter, r *http.Request) {
		render(w, r, demoPage("Sign up", signupForm("", "")))
	})
	r.Post("/signup", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch name := r.PostFormValue("name"); name {
		case "":
			tlform.Respond(w).Invalid().Target("#signup-area").Write()
			render(w, r, signupForm(name, "Name can't be blank"))
		case "stay":
			tlform.Respond(w).WhenSuccess().Write()
			render(w, r, demoPage("Saved", message("Saved. Edit again below."), signupForm(name, "")))
		default:
			http.Redirect(w, r, "/welcome?name="+url.QueryEscape(name), http.StatusSeeOther)
		}
	})
	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		render(w, r, demoPage("Welcome", message("Welcome, "+r.URL.Query().Get("name"))))
	})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		render(w, r, demoPage("We're sorry, but something went wrong", message("Internal error")))
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Bool("form_request", tlform.IsFormRequest(r)),
				zap.Duration("took", time.Since(start)),
			)
		})
	}
}

func render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("render failed", zap.Error(err))
	}
}

func demoPage(title string, content ...templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1>",
			templ.EscapeString(title), templ.EscapeString(title)); err != nil {
			return err
		}
		for _, c := range content {
			if err := c.Render(ctx, w); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</body></html>")
		return err
	})
}

func message(text string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p class=\"message\">%s</p>", templ.EscapeString(text))
		return err
	})
}

func signupForm(name, problem string) templ.Component {
	fields := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if problem != "" {
			if _, err := fmt.Fprintf(w, "<p class=\"error\">%s</p>", templ.EscapeString(problem)); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "<input name=\"name\" value=\"%s\"><button type=\"submit\">Sign up</button>"+
			"<script>window.signupRendered = true</script>",
			templ.EscapeString(name))
		return err
	})
	form := tlform.Form(templ.Attributes{"id": "signup", "action": "/signup", "method": "post"}, fields)
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div id="signup-area">`); err != nil {
			return err
		}
		if err := form.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</div>")
		return err
	})
}
