package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"welfareportal/internal"
	"welfareportal/internal/wizard"
	"welfareportal/pkg/types"

	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	citizenToken = "citizen-token"
	adminToken   = "admin-token"
)

var (
	citizen = &types.Identity{UserID: "user-1", Email: "asha@example.org", Name: "Asha Rao", Role: types.RoleCitizen}
	admin   = &types.Identity{UserID: "admin-1", Email: "officer@example.org", Name: "Review Officer", Role: types.RoleAdmin}
)

type fakeTokens map[string]*types.Identity

func (f fakeTokens) Verify(_ context.Context, token string) (*types.Identity, error) {
	identity, ok := f[token]
	if !ok {
		return nil, errors.New("token expired")
	}
	copied := *identity
	return &copied, nil
}

type fakeSchemes struct {
	schemes []*types.Scheme
	docs    map[string][]*types.SchemeDocument
	err     error
}

func (f *fakeSchemes) ActiveSchemes(_ context.Context, _ uint64) ([]*types.Scheme, error) {
	return f.schemes, f.err
}

func (f *fakeSchemes) Scheme(_ context.Context, id string) (*types.Scheme, error) {
	for _, s := range f.schemes {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, types.ErrSchemeNotFound
}

func (f *fakeSchemes) DocumentRequirements(_ context.Context, schemeID string) ([]*types.SchemeDocument, error) {
	return f.docs[schemeID], nil
}

type fakeApplications struct {
	byID    map[string]*types.Application
	history map[string][]*types.StatusChange
	status  types.ApplicationStatus
}

func (f *fakeApplications) Application(_ context.Context, id string) (*types.Application, error) {
	app, ok := f.byID[id]
	if !ok {
		return nil, types.ErrApplicationNotFound
	}
	return app, nil
}

func (f *fakeApplications) ApplicationsByUser(_ context.Context, userID string) ([]*types.Application, error) {
	out := make([]*types.Application, 0)
	for _, app := range f.byID {
		if app.UserID == userID {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplications) ApplicationsByStatus(_ context.Context, status types.ApplicationStatus, _ uint64) ([]*types.Application, error) {
	f.status = status
	out := make([]*types.Application, 0)
	for _, app := range f.byID {
		if app.Status == status {
			out = append(out, app)
		}
	}
	return out, nil
}

func (f *fakeApplications) HistoryByApplication(_ context.Context, id string) ([]*types.StatusChange, error) {
	return f.history[id], nil
}

type fakeUsers struct {
	upserts []*types.Identity
	phones  []string
}

func (f *fakeUsers) UpsertFromIdentity(_ context.Context, identity *types.Identity, phone string) error {
	f.upserts = append(f.upserts, identity)
	f.phones = append(f.phones, phone)
	return nil
}

type mockSubmitter struct{ mock.Mock }

func (m *mockSubmitter) Submit(ctx context.Context, draft *wizard.Draft, scheme *types.Scheme, user *types.Identity) (*types.Application, error) {
	args := m.Called(ctx, draft, scheme, user)
	app, _ := args.Get(0).(*types.Application)
	return app, args.Error(1)
}

type mockDecider struct{ mock.Mock }

func (m *mockDecider) Decide(ctx context.Context, reviewer *types.Identity, applicationID string, decision types.ReviewDecision) (*types.Application, error) {
	args := m.Called(ctx, reviewer, applicationID, decision)
	app, _ := args.Get(0).(*types.Application)
	return app, args.Error(1)
}

type fakeAssistant struct {
	reply    string
	err      error
	schemeID string
	request  types.ChatRequest
}

func (f *fakeAssistant) Reply(_ context.Context, req types.ChatRequest) (*types.ChatResponse, error) {
	f.request = req
	if f.err != nil {
		return nil, f.err
	}
	return &types.ChatResponse{Reply: f.reply}, nil
}

func (f *fakeAssistant) ReplyAboutScheme(ctx context.Context, schemeID string, req types.ChatRequest) (*types.ChatResponse, error) {
	f.schemeID = schemeID
	return f.Reply(ctx, req)
}

type fakePresigner struct{}

func (fakePresigner) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?signed", nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type fakeCognito struct {
	initiate      func(*cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error)
	signUp        func(*cognitoidentityprovider.SignUpInput) (*cognitoidentityprovider.SignUpOutput, error)
	confirmSignUp func(*cognitoidentityprovider.ConfirmSignUpInput) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
}

func (f *fakeCognito) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	return f.initiate(in)
}

func (f *fakeCognito) SignUp(_ context.Context, in *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	return f.signUp(in)
}

func (f *fakeCognito) ConfirmSignUp(_ context.Context, in *cognitoidentityprovider.ConfirmSignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error) {
	return f.confirmSignUp(in)
}

type harness struct {
	svc          *Service
	schemes      *fakeSchemes
	applications *fakeApplications
	users        *fakeUsers
	submitter    *mockSubmitter
	decider      *mockDecider
	assistant    *fakeAssistant
	cognito      *fakeCognito
	pinger       *fakePinger
	drafts       *wizard.DraftStore
}

func testConfig() *types.Config {
	return &types.Config{
		ServerPort:       8080,
		ReadTimeoutSec:   10,
		WriteTimeoutSec:  60,
		CognitoClientID:  "client-id",
		AdminGroupName:   "admin",
		PresignExpirySec: 900,
		CookieHashKey:    base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("h"), 32)),
		CookieBlockKey:   base64.StdEncoding.EncodeToString(bytes.Repeat([]byte("b"), 32)),
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	state := "Odisha"
	h := &harness{
		schemes: &fakeSchemes{
			schemes: []*types.Scheme{
				{ID: "pm-kisan", Title: "PM-KISAN", Category: "agriculture", Description: "Income support for small farmers", IsActive: true},
				{ID: "ayushman", Title: "Ayushman Bharat", Category: "health", Description: "Hospital cover for families", IsActive: true},
				{ID: "kalia", Title: "KALIA", Category: "agriculture", Description: "Livelihood support", State: &state, IsActive: true},
				{ID: "retired", Title: "Retired Scheme", Category: "housing", Description: "Closed", IsActive: false},
			},
			docs: map[string][]*types.SchemeDocument{
				"pm-kisan": {
					{SchemeID: "pm-kisan", Name: "Aadhaar Card", Required: true, DisplayOrder: 1},
					{SchemeID: "pm-kisan", Name: "Bank Passbook", Required: false, DisplayOrder: 2},
				},
			},
		},
		applications: &fakeApplications{
			byID:    map[string]*types.Application{},
			history: map[string][]*types.StatusChange{},
		},
		users:     &fakeUsers{},
		submitter: &mockSubmitter{},
		decider:   &mockDecider{},
		assistant: &fakeAssistant{reply: "You can apply online."},
		cognito:   &fakeCognito{},
		pinger:    &fakePinger{},
		drafts:    wizard.NewDraftStore(time.Hour),
	}

	h.start(t, h.submitter)
	return h
}

// start builds the service around assembler, so a test can swap the mocked
// Submitter for a real wizard.Assembler.
func (h *harness) start(t *testing.T, assembler Submitter) {
	t.Helper()

	logger, _ := test.NewNullLogger()

	svc, err := New(testConfig(), logger, Deps{
		Cognito:      h.cognito,
		Tokens:       fakeTokens{citizenToken: citizen, adminToken: admin},
		Schemes:      h.schemes,
		Documents:    h.schemes,
		Applications: h.applications,
		History:      h.applications,
		Users:        h.users,
		Drafts:       h.drafts,
		Assembler:    assembler,
		Reviewer:     h.decider,
		Assistant:    h.assistant,
		Presigner:    fakePresigner{},
		Health:       h.pinger,
	})
	require.NoError(t, err)

	h.svc = svc
}

func (h *harness) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.svc.Handler().ServeHTTP(rec, req)
	return rec
}

// as signs the request in with the access token cookie for token.
func (h *harness) as(t *testing.T, req *http.Request, token string) *http.Request {
	t.Helper()
	encoded, err := h.svc.cookie.Encode(internal.COOKIE_ACCESS_TOKEN_NAME, token)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: internal.COOKIE_ACCESS_TOKEN_NAME, Value: encoded})
	return req
}

func get(path string) *http.Request {
	return httptest.NewRequest(http.MethodGet, path, nil)
}

func postForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func redirectQuery(t *testing.T, rec *httptest.ResponseRecorder) (string, url.Values) {
	t.Helper()
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Path, loc.Query()
}

func cookieFrom(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
