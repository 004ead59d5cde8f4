package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/giftwell-app/giftwell-backend/internal/addressing"
	"github.com/giftwell-app/giftwell-backend/internal/catalog"
	"github.com/giftwell-app/giftwell-backend/internal/connections"
	"github.com/giftwell-app/giftwell-backend/internal/executions"
	"github.com/giftwell-app/giftwell-backend/internal/notifications"
	"github.com/giftwell-app/giftwell-backend/internal/nudges"
	"github.com/giftwell-app/giftwell-backend/internal/orders"
	"github.com/giftwell-app/giftwell-backend/internal/rules"
	"github.com/giftwell-app/giftwell-backend/internal/users"
	"github.com/giftwell-app/giftwell-backend/internal/wishlist"
	pkgAuth "github.com/giftwell-app/giftwell-backend/pkg/auth"
	"github.com/giftwell-app/giftwell-backend/pkg/auth/session"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db/models"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	return nil
}

type stubUsersService struct{}

func (stubUsersService) Register(ctx context.Context, input users.RegisterInput) (*users.SessionDTO, error) {
	panic("unimplemented")
}

func (stubUsersService) Login(ctx context.Context, input users.LoginInput) (*users.SessionDTO, error) {
	panic("unimplemented")
}

func (stubUsersService) Refresh(ctx context.Context, accessToken, refreshToken string) (*users.SessionDTO, error) {
	panic("unimplemented")
}

func (stubUsersService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubUsersService) GetProfile(ctx context.Context, userID uuid.UUID) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (stubUsersService) UpdateProfile(ctx context.Context, userID uuid.UUID, input users.UpdateProfileInput) (*users.UserDTO, error) {
	panic("unimplemented")
}

func (stubUsersService) UpdateShippingAddress(ctx context.Context, userID uuid.UUID, address types.Address) (*users.UserDTO, error) {
	panic("unimplemented")
}

type stubConnectionsService struct{}

func (stubConnectionsService) LinkByEmail(ctx context.Context, userID uuid.UUID, email string) (*connections.ConnectionDTO, error) {
	panic("unimplemented")
}

func (stubConnectionsService) List(ctx context.Context, userID uuid.UUID) ([]connections.ConnectionDTO, error) {
	return nil, nil
}

func (stubConnectionsService) AreConnected(ctx context.Context, userID, otherID uuid.UUID) (bool, error) {
	return false, nil
}

type stubRulesService struct{}

func (stubRulesService) CreateRule(ctx context.Context, input rules.CreateRuleInput) (*rules.RuleDTO, error) {
	panic("unimplemented")
}

func (stubRulesService) GetRule(ctx context.Context, userID, ruleID uuid.UUID) (*rules.RuleDTO, error) {
	panic("unimplemented")
}

func (stubRulesService) ListRules(ctx context.Context, userID uuid.UUID) ([]rules.RuleDTO, error) {
	return []rules.RuleDTO{}, nil
}

func (stubRulesService) UpdateRule(ctx context.Context, input rules.UpdateRuleInput) (*rules.RuleDTO, error) {
	panic("unimplemented")
}

func (stubRulesService) DeactivateRule(ctx context.Context, userID, ruleID uuid.UUID) error {
	return nil
}

func (stubRulesService) GetSettings(ctx context.Context, userID uuid.UUID) (*rules.SettingsDTO, error) {
	return &rules.SettingsDTO{}, nil
}

func (stubRulesService) UpdateSettings(ctx context.Context, input rules.UpdateSettingsInput) (*rules.SettingsDTO, error) {
	panic("unimplemented")
}

type stubExecutionsService struct{}

func (stubExecutionsService) ProcessEvent(ctx context.Context, eventID uuid.UUID) (*executions.ExecutionDTO, error) {
	return &executions.ExecutionDTO{EventID: eventID}, nil
}

func (stubExecutionsService) Approve(ctx context.Context, executionID, actorUserID uuid.UUID, keepProducts []uuid.UUID) (*executions.ExecutionDTO, error) {
	panic("unimplemented")
}

func (stubExecutionsService) Decline(ctx context.Context, executionID, actorUserID uuid.UUID) (*executions.ExecutionDTO, error) {
	panic("unimplemented")
}

func (stubExecutionsService) ResumeWithAddress(ctx context.Context, executionID uuid.UUID, address types.Address) error {
	panic("unimplemented")
}

func (stubExecutionsService) Fail(ctx context.Context, executionID uuid.UUID, reason string) error {
	panic("unimplemented")
}

func (stubExecutionsService) GetExecution(ctx context.Context, userID, executionID uuid.UUID) (*executions.ExecutionDTO, error) {
	panic("unimplemented")
}

func (stubExecutionsService) ListExecutions(ctx context.Context, userID uuid.UUID, cursor string, limit int) (executions.ExecutionPage, error) {
	return executions.ExecutionPage{}, nil
}

type stubAddressingService struct{}

func (stubAddressingService) IssueRequest(ctx context.Context, tx *gorm.DB, input addressing.IssueInput) (*models.AddressRequest, error) {
	panic("unimplemented")
}

func (stubAddressingService) GetForm(ctx context.Context, token string) (*addressing.FormDTO, error) {
	return &addressing.FormDTO{Token: token}, nil
}

func (stubAddressingService) Submit(ctx context.Context, token string, address types.Address) (*addressing.SubmitResult, error) {
	return &addressing.SubmitResult{Status: addressing.SubmitStatusCollected}, nil
}

func (stubAddressingService) FindCollectedAddress(ctx context.Context, executionID uuid.UUID) (*types.Address, error) {
	return nil, nil
}

func (stubAddressingService) SetApprover(approver addressing.Approver) {}

type stubOrdersService struct{}

func (stubOrdersService) Materialize(ctx context.Context, input orders.MaterializeInput) (*models.GiftOrder, error) {
	panic("unimplemented")
}

func (stubOrdersService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.GiftOrder, error) {
	panic("unimplemented")
}

func (stubOrdersService) ListOrders(ctx context.Context, userID uuid.UUID, cursor string, limit int) (orders.OrderPageDTO, error) {
	return orders.OrderPageDTO{}, nil
}

type stubNudgesService struct{}

func (stubNudgesService) Send(ctx context.Context, input nudges.SendInput) (*nudges.SendResult, error) {
	panic("unimplemented")
}

func (stubNudgesService) List(ctx context.Context, userID uuid.UUID, limit int) ([]nudges.NudgeDTO, error) {
	return nil, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) error {
	return nil
}

func (stubNotificationsService) List(ctx context.Context, userID uuid.UUID, cursor string, limit int) (notifications.PageDTO, error) {
	return notifications.PageDTO{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

type stubWishlistService struct{}

func (stubWishlistService) CreateWishlist(ctx context.Context, input wishlist.CreateWishlistInput) (*wishlist.WishlistDTO, error) {
	panic("unimplemented")
}

func (stubWishlistService) ListWishlists(ctx context.Context, ownerID uuid.UUID) ([]wishlist.WishlistDTO, error) {
	return nil, nil
}

func (stubWishlistService) GetWishlistItems(ctx context.Context, viewerID, wishlistID uuid.UUID) (wishlist.WishlistItemsDTO, error) {
	panic("unimplemented")
}

func (stubWishlistService) AddItem(ctx context.Context, ownerID, wishlistID, productID uuid.UUID) error {
	return nil
}

func (stubWishlistService) RemoveItem(ctx context.Context, ownerID, wishlistID, productID uuid.UUID) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	panic("unimplemented")
}

func (stubCatalogService) ListProducts(ctx context.Context, category string, cursor string, limit int) (catalog.ProductPageDTO, error) {
	return catalog.ProductPageDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Internal: config.InternalConfig{Token: "internal-secret"},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		nil,
		stubSessionManager{},
		nil,
		Services{
			Users:         stubUsersService{},
			Connections:   stubConnectionsService{},
			Rules:         stubRulesService{},
			Executions:    stubExecutionsService{},
			Addressing:    stubAddressingService{},
			Orders:        stubOrdersService{},
			Nudges:        stubNudgesService{},
			Notifications: stubNotificationsService{},
			Wishlists:     stubWishlistService{},
			Catalog:       stubCatalogService{},
		},
	)
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "dana@example.com",
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for rules list got %d", resp.Code)
	}
}

func TestCollectAddressFormRequiresToken(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/collect-address", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without token got %d", resp.Code)
	}
}

func TestCollectAddressFormIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/collect-address?token=abc", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for form fetch got %d", resp.Code)
	}
}

func TestInternalRouteRequiresToken(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	eventID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/internal/v1/events/"+eventID.String()+"/process", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without internal token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodPost, "/api/internal/v1/events/"+eventID.String()+"/process", nil)
	authed.Header.Set("X-Internal-Token", "internal-secret")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with internal token got %d", resp.Code)
	}
}
