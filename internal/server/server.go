package server

import (
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"welfareportal/internal/store"
	"welfareportal/internal/wizard"
	"welfareportal/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//go:embed templates static
var uiFS embed.FS
var decoder = form.NewDecoder()

type CognitoAPI interface {
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

// TokenVerifier turns an access token into the identity it was issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*types.Identity, error)
}

type SchemeStore interface {
	ActiveSchemes(ctx context.Context, limit uint64) ([]*types.Scheme, error)
	Scheme(ctx context.Context, id string) (*types.Scheme, error)
}

type DocumentRequirementStore interface {
	DocumentRequirements(ctx context.Context, schemeID string) ([]*types.SchemeDocument, error)
}

type ApplicationReader interface {
	Application(ctx context.Context, applicationID string) (*types.Application, error)
	ApplicationsByUser(ctx context.Context, userID string) ([]*types.Application, error)
	ApplicationsByStatus(ctx context.Context, status types.ApplicationStatus, limit uint64) ([]*types.Application, error)
}

type HistoryReader interface {
	HistoryByApplication(ctx context.Context, applicationID string) ([]*types.StatusChange, error)
}

type UserStore interface {
	UpsertFromIdentity(ctx context.Context, identity *types.Identity, phone string) error
}

type Submitter interface {
	Submit(ctx context.Context, draft *wizard.Draft, scheme *types.Scheme, user *types.Identity) (*types.Application, error)
}

type Decider interface {
	Decide(ctx context.Context, admin *types.Identity, applicationID string, decision types.ReviewDecision) (*types.Application, error)
}

type ChatAssistant interface {
	Reply(ctx context.Context, req types.ChatRequest) (*types.ChatResponse, error)
	ReplyAboutScheme(ctx context.Context, schemeID string, req types.ChatRequest) (*types.ChatResponse, error)
}

type Presigner interface {
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Cognito      CognitoAPI
	Tokens       TokenVerifier
	Schemes      SchemeStore
	Documents    DocumentRequirementStore
	Applications ApplicationReader
	History      HistoryReader
	Users        UserStore
	Drafts       *wizard.DraftStore
	Assembler    Submitter
	Reviewer     Decider
	Assistant    ChatAssistant
	Presigner    Presigner
	Health       Pinger
}

type Service struct {
	logger    *logrus.Logger
	config    *types.Config
	templates *template.Template
	cookie    *securecookie.SecureCookie

	cognito      CognitoAPI
	tokens       TokenVerifier
	schemes      SchemeStore
	documents    DocumentRequirementStore
	applications ApplicationReader
	history      HistoryReader
	users        UserStore
	drafts       *wizard.DraftStore
	assembler    Submitter
	reviewer     Decider
	assistant    ChatAssistant
	presigner    Presigner
	health       Pinger

	server *http.Server
}

func New(config *types.Config, logger *logrus.Logger, deps Deps) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}

	s := &Service{
		logger: logger,
		config: config,
		cookie: securecookie.New(hashKey, blockKey),

		cognito:      deps.Cognito,
		tokens:       deps.Tokens,
		schemes:      deps.Schemes,
		documents:    deps.Documents,
		applications: deps.Applications,
		history:      deps.History,
		users:        deps.Users,
		drafts:       deps.Drafts,
		assembler:    deps.Assembler,
		reviewer:     deps.Reviewer,
		assistant:    deps.Assistant,
		presigner:    deps.Presigner,
		health:       deps.Health,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s.templates = templates

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Service) Handler() http.Handler {
	return s.server.Handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)
	r.Use(s.Authenticate)

	r.HandleFunc("/", s.handleHome, http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.HandleFunc("/register", s.handleGetRegister, http.MethodGet)
	r.HandleFunc("/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/register/confirm", s.handleGetRegisterConfirm, http.MethodGet)
	r.HandleFunc("/register/confirm", s.handlePostRegisterConfirm, http.MethodPost)
	r.HandleFunc("/login", s.handleGetLogin, http.MethodGet)
	r.HandleFunc("/login", s.handlePostLogin, http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout, http.MethodPost)

	r.HandleFunc("/schemes", s.handleSchemes, http.MethodGet)
	r.HandleFunc("/schemes/:schemeID", s.handleSchemeDetail, http.MethodGet)

	r.HandleFunc("/eligibility", s.handleGetEligibility, http.MethodGet)
	r.HandleFunc("/eligibility/next", s.handlePostEligibilityNext, http.MethodPost)
	r.HandleFunc("/eligibility/back", s.handlePostEligibilityBack, http.MethodPost)
	r.HandleFunc("/eligibility/reset", s.handlePostEligibilityReset, http.MethodPost)

	r.HandleFunc("/api/chat", s.handleChat, http.MethodPost)
	r.HandleFunc("/api/schemes/:schemeID/chat", s.handleSchemeChat, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/schemes/:schemeID/apply", s.handleGetApply, http.MethodGet)
		r.HandleFunc("/schemes/:schemeID/apply/personal", s.handlePostApplyPersonal, http.MethodPost)
		r.HandleFunc("/schemes/:schemeID/apply/documents", s.handlePostApplyDocument, http.MethodPost)
		r.HandleFunc("/schemes/:schemeID/apply/documents/:slot/remove", s.handlePostApplyRemoveDocument, http.MethodPost)
		r.HandleFunc("/schemes/:schemeID/apply/back", s.handlePostApplyBack, http.MethodPost)
		r.HandleFunc("/schemes/:schemeID/apply/next", s.handlePostApplyNext, http.MethodPost)
		r.HandleFunc("/schemes/:schemeID/apply/cancel", s.handlePostApplyCancel, http.MethodPost)

		r.HandleFunc("/applications", s.handleApplications, http.MethodGet)
		r.HandleFunc("/applications/:applicationID", s.handleApplicationDetail, http.MethodGet)

		r.Group(func(r *flow.Mux) {
			r.Use(s.RequireAdmin)

			r.HandleFunc("/admin/applications", s.handleAdminApplications, http.MethodGet)
			r.HandleFunc("/admin/applications/:applicationID", s.handleAdminApplicationDetail, http.MethodGet)
			r.HandleFunc("/admin/applications/:applicationID/review", s.handleAdminReview, http.MethodPost)
		})
	})

	staticRoot, err := fs.Sub(uiFS, "static")
	if err != nil {
		s.logger.WithError(err).Fatal("failed to mount static assets")
	}
	r.Handle("/static/...", http.StripPrefix("/static/", http.FileServer(http.FS(staticRoot))), http.MethodGet)
}

func loadTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"derefOr": func(s *string, defaultVal string) string {
			if s == nil {
				return defaultVal
			}
			return *s
		},
		"date": func(v any) string {
			var t time.Time
			switch tv := v.(type) {
			case time.Time:
				t = tv
			case *time.Time:
				if tv != nil {
					t = *tv
				}
			}
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"kb": func(size int64) int64 {
			return (size + 1023) / 1024
		},
		"inc": func(i int) int {
			return i + 1
		},
		"schemeName": func(a *types.Application) string {
			if name, ok := a.Metadata["scheme_name"].(string); ok && name != "" {
				return name
			}
			return a.SchemeID
		},
	}

	t := template.New("").Funcs(funcMap)
	err := fs.WalkDir(uiFS, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		data, err := fs.ReadFile(uiFS, path)
		if err != nil {
			return fmt.Errorf("read template %s: %w", path, err)
		}

		if _, err := t.Parse(string(data)); err != nil {
			return fmt.Errorf("parse template %s: %w", path, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// Compile-time checks that the repositories satisfy the handler interfaces.
var (
	_ SchemeStore              = (*store.SchemeRepository)(nil)
	_ DocumentRequirementStore = (*store.SchemeDocumentRepository)(nil)
	_ ApplicationReader        = (*store.ApplicationRepository)(nil)
	_ HistoryReader            = (*store.StatusHistoryRepository)(nil)
	_ UserStore                = (*store.UserRepository)(nil)
)
