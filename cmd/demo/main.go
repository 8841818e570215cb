package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-auth/pkg/config"
	"github.com/tendant/simple-auth/pkg/formflow"
	"github.com/tendant/simple-auth/pkg/gateway"
	"github.com/tendant/simple-auth/pkg/gateway/inmem"
	"github.com/tendant/simple-auth/pkg/notification"
	"github.com/tendant/simple-auth/pkg/protocol"
)

type Config struct {
	Addr         string `env:"DEMO_ADDR" env-default:"localhost:4000"`
	SMTPEnabled  bool   `env:"DEMO_SMTP_ENABLED" env-default:"false"`
	WidgetConfig config.WidgetConfig
	EmailConfig  config.EmailConfig
}

type credentials struct {
	Username    string            `json:"username"`
	Password    string            `json:"password,omitempty"`
	Code        string            `json:"code,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	NewPassword string            `json:"new_password,omitempty"`
	OldPassword string            `json:"old_password,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	cfg := Config{}
	cleanenv.ReadEnv(&cfg)

	var notifier notification.Notifier = notification.NewSlogNotifier()
	if cfg.SMTPEnabled {
		emailNotifier, err := notification.NewEmailNotifier(cfg.EmailConfig.ToSMTPConfig())
		if err != nil {
			slog.Error("Failed to create email notifier", "err", err)
			os.Exit(1)
		}
		notifier = emailNotifier
	}

	provider := inmem.NewProvider(
		inmem.WithNotifier(notifier),
		inmem.WithLinkBaseURL(cfg.WidgetConfig.Origin),
	)
	provider.AddUser(inmem.UserRecord{
		Username:   "alice@example.com",
		Email:      "alice@example.com",
		Password:   "Passw0rd!",
		GivenName:  "Alice",
		FamilyName: "Garcia",
	})
	provider.AddUser(inmem.UserRecord{
		Username:           "bob@example.com",
		Email:              "bob@example.com",
		Password:           "Temp0rary!",
		RequireNewPassword: true,
		RequiredAttributes: []string{"given_name", "family_name", "email"},
	})

	gw := gateway.NewService(provider, cfg.WidgetConfig.PoolID)

	opts := []formflow.Option{
		formflow.WithEvents(formflow.Events{
			Ready:      func() { slog.Info("Form ready") },
			Connecting: func(connecting bool) { slog.Info("Connecting", "connecting", connecting) },
			Authenticated: func(profile *gateway.Profile) {
				if profile == nil {
					slog.Info("Signed out")
					return
				}
				slog.Info("Authenticated", "username", profile.Username, "email", profile.Email)
			},
			UsernameEntered: func(username string) { slog.Info("Username entered", "username", username) },
			Navigate:        func(url string) { slog.Info("Redirecting to federated provider", "url", url) },
		}),
		formflow.WithTick(func(d time.Duration) {}),
	}
	if cfg.WidgetConfig.FederatedEnabled() {
		opts = append(opts, formflow.WithFederatedConfig(cfg.WidgetConfig.ToFederatedConfig()))
	}
	controller := formflow.NewController(gw, opts...)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.PlainText(w, r, "ok")
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.Login(r.Context(), creds.Username, creds.Password)
			renderModel(w, r, controller)
		})
		r.Post("/otp", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.OtpLogin(r.Context(), creds.Username, creds.Code)
			renderModel(w, r, controller)
		})
		r.Post("/magic-link", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.MagicLinkLogin(r.Context(), creds.Username, creds.Code, creds.SessionID)
			renderModel(w, r, controller)
		})
		r.Post("/passkey", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.PasskeyLogin(r.Context(), creds.Username, creds.Code)
			renderModel(w, r, controller)
		})
		r.Post("/new-user", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.SubmitNewUser(r.Context(), creds.NewPassword, creds.Attributes)
			renderModel(w, r, controller)
		})
		r.Post("/forgot-password", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.RequestVerificationCode(r.Context(), creds.Username)
			renderModel(w, r, controller)
		})
		r.Post("/confirm-password", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.SubmitForcePasswordReset(r.Context(), creds.Username, creds.Code, creds.NewPassword)
			renderModel(w, r, controller)
		})
		r.Post("/reset-password", func(w http.ResponseWriter, r *http.Request) {
			var creds credentials
			if err := render.DecodeJSON(r.Body, &creds); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			controller.SubmitUserPasswordReset(r.Context(), creds.OldPassword, creds.NewPassword)
			renderModel(w, r, controller)
		})
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			controller.Logout(r.Context())
			renderModel(w, r, controller)
		})
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			session := gw.SessionSlot().Get()
			if session == nil {
				http.Error(w, "not authenticated", http.StatusUnauthorized)
				return
			}
			profile, err := gateway.DeriveProfile(session)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			render.JSON(w, r, profile)
		})
		r.Get("/federated", func(w http.ResponseWriter, r *http.Request) {
			if !cfg.WidgetConfig.FederatedEnabled() {
				http.Error(w, "federated sign-in not configured", http.StatusNotFound)
				return
			}
			controller.ShowForm(protocol.FormFederatedSignIn)
			authorizeURL, err := cfg.WidgetConfig.ToFederatedConfig().AuthorizeURL()
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			http.Redirect(w, r, authorizeURL, http.StatusFound)
		})
	})

	r.Get("/model", func(w http.ResponseWriter, r *http.Request) {
		renderModel(w, r, controller)
	})

	controller.Initialize(context.Background())

	slog.Info("Demo auth widget listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		slog.Error("Server failed", "err", err)
		os.Exit(1)
	}
}

func renderModel(w http.ResponseWriter, r *http.Request, controller *formflow.Controller) {
	render.JSON(w, r, controller.Model())
}
