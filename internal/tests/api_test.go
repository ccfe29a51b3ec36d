// internal/tests/api_test.go
package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/servicemart-backend/internal/config"
	"github.com/javajoker/servicemart-backend/internal/database"
	"github.com/javajoker/servicemart-backend/internal/database/dbtest"
	"github.com/javajoker/servicemart-backend/internal/i18n"
	"github.com/javajoker/servicemart-backend/internal/models"
	"github.com/javajoker/servicemart-backend/internal/router"
)

const (
	adminEmail    = "admin@servicemart.io"
	adminPassword = "admin123!@#"
)

// clientSeq gives every request its own client address so the shared
// rate limiters never trip during the suite.
var clientSeq uint32

type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	cfg    *config.Config
	router *gin.Engine
}

type envelope struct {
	Success bool                   `json:"success"`
	Data    json.RawMessage        `json:"data"`
	Error   map[string]interface{} `json:"error"`
	Meta    map[string]interface{} `json:"meta"`
}

func (suite *APITestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	suite.Require().NoError(i18n.Initialize("en"))
}

func (suite *APITestSuite) SetupTest() {
	suite.db = dbtest.New(suite.T())
	suite.cfg = &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			UploadDir:   suite.T().TempDir(),
			PublicURL:   "http://localhost:8080",
			CORSOrigins: []string{"http://localhost:5173"},
		},
		JWT: config.JWTConfig{
			SecretKey:       "api-test-secret",
			AccessTokenTTL:  1,
			RefreshTokenTTL: 24,
		},
		Payment:  config.PaymentConfig{Currency: "usd", PlatformFeePercent: 10},
		Email:    config.EmailConfig{FromEmail: "noreply@servicemart.test", FromName: "ServiceMart"},
		I18n:     config.I18nConfig{DefaultLocale: "en"},
		Frontend: config.FrontendConfig{BaseURL: "https://app.servicemart.test"},
		Workflow: config.WorkflowConfig{
			WriteTimeout:           5 * time.Second,
			TrialApprovalThreshold: 3,
			AssignmentStrategy:     "random",
			EmailMaxRetries:        3,
			EmailDispatchSchedule:  "@every 1m",
			EmailBatchSize:         10,
		},
	}
	suite.Require().NoError(database.SeedInitialData(suite.db, suite.cfg))

	r, err := router.Initialize(suite.db, suite.cfg, router.Dependencies{})
	suite.Require().NoError(err)
	suite.router = r
}

func (suite *APITestSuite) request(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	n := atomic.AddUint32(&clientSeq, 1)
	req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.%d.%d.%d", (n>>16)&0xff, (n>>8)&0xff, n&0xff))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) decode(w *httptest.ResponseRecorder, dest interface{}) envelope {
	var env envelope
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if dest != nil {
		suite.Require().NoError(json.Unmarshal(env.Data, dest))
	}
	return env
}

func (suite *APITestSuite) login(email, password string) string {
	w := suite.request(http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	suite.decode(w, &data)
	suite.Require().NotEmpty(data.Token)
	return data.Token
}

func (suite *APITestSuite) registerBuyer(email string) string {
	w := suite.request(http.MethodPost, "/v1/auth/register", map[string]string{
		"email":     email,
		"password":  "TestPass123!",
		"full_name": "Test Buyer",
		"user_type": "buyer",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	suite.decode(w, &data)
	return data.Token
}

func (suite *APITestSuite) createApprovedPartner(adminToken string) string {
	w := suite.request(http.MethodPost, "/v1/partners", map[string]interface{}{
		"partner_type":  "agency",
		"business_name": "Pixel Works",
		"contact_name":  "Dana Lee",
		"contact_email": "dana@pixel.test",
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Partner models.Partner `json:"partner"`
	}
	suite.decode(w, &created)

	w = suite.request(http.MethodPost, "/v1/applications", map[string]interface{}{
		"partner_id":       created.Partner.ID,
		"business_details": map[string]interface{}{"industry": "Design", "team_size": "5"},
		"experience":       "Ten years of brand work",
		"portfolio_links":  []string{"https://pixel.test/work", ""},
	}, "")
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var submitted struct {
		Application models.PartnerApplication `json:"application"`
	}
	suite.decode(w, &submitted)

	w = suite.request(http.MethodPost, "/v1/applications/"+submitted.Application.ID.String()+"/approve",
		map[string]string{"admin_notes": "strong portfolio"}, adminToken)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	return created.Partner.ID.String()
}

func (suite *APITestSuite) TestHealthAndMetrics() {
	w := suite.request(http.MethodGet, "/health", nil, "")
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "healthy")

	w = suite.request(http.MethodGet, "/metrics", nil, "")
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestUserRegistrationAndLogin() {
	token := suite.registerBuyer("buyer@example.com")
	suite.NotEmpty(token)

	w := suite.request(http.MethodPost, "/v1/auth/register", map[string]string{
		"email":     "buyer@example.com",
		"password":  "TestPass123!",
		"full_name": "Again",
		"user_type": "buyer",
	}, "")
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "buyer@example.com",
		"password": "WrongPass123!",
	}, "")
	suite.Equal(http.StatusUnauthorized, w.Code)
	env := suite.decode(w, nil)
	suite.False(env.Success)

	token = suite.login("buyer@example.com", "TestPass123!")
	w = suite.request(http.MethodGet, "/v1/auth/me", nil, token)
	suite.Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "buyer@example.com")
}

func (suite *APITestSuite) TestRegistrationValidation() {
	w := suite.request(http.MethodPost, "/v1/auth/register", map[string]string{
		"email":     "not-an-email",
		"password":  "weak",
		"full_name": "X",
		"user_type": "buyer",
	}, "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *APITestSuite) TestAdminRoutesRequireAdmin() {
	w := suite.request(http.MethodGet, "/v1/applications", nil, "")
	suite.Equal(http.StatusUnauthorized, w.Code)

	buyer := suite.registerBuyer("curious@example.com")
	w = suite.request(http.MethodGet, "/v1/applications", nil, buyer)
	suite.Equal(http.StatusForbidden, w.Code)

	admin := suite.login(adminEmail, adminPassword)
	w = suite.request(http.MethodGet, "/v1/applications", nil, admin)
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *APITestSuite) TestPartnerOnboarding() {
	admin := suite.login(adminEmail, adminPassword)
	partnerID := suite.createApprovedPartner(admin)

	w := suite.request(http.MethodGet, "/v1/partners/"+partnerID, nil, admin)
	suite.Require().Equal(http.StatusOK, w.Code)
	var data struct {
		Partner         models.Partner `json:"partner"`
		CompletedTrials int64          `json:"completed_trials"`
	}
	suite.decode(w, &data)
	suite.Equal(models.PartnerStatusApproved, data.Partner.Status)
	suite.Zero(data.CompletedTrials)

	w = suite.request(http.MethodGet, "/v1/partners/"+partnerID+"/application", nil, admin)
	suite.Require().Equal(http.StatusOK, w.Code)
	var app struct {
		Application models.PartnerApplication `json:"application"`
	}
	suite.decode(w, &app)
	suite.Equal(models.ApplicationStatusApproved, app.Application.Status)
	suite.Equal([]string{"https://pixel.test/work"}, []string(app.Application.PortfolioLinks))

	// a decided application cannot be decided again
	w = suite.request(http.MethodPost, "/v1/applications/"+app.Application.ID.String()+"/reject",
		map[string]string{"reason": "changed our minds entirely"}, admin)
	suite.Equal(http.StatusConflict, w.Code)

	w = suite.request(http.MethodPost, "/v1/applications/"+app.Application.ID.String()+"/reject",
		map[string]string{"reason": "too short"}, admin)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Contains(w.Body.String(), `"tag":"rejection_reason"`)
}

func (suite *APITestSuite) TestApplicationForUnknownPartner() {
	w := suite.request(http.MethodPost, "/v1/applications", map[string]interface{}{
		"partner_id":       "8a3f0c36-5f1e-4c55-9c39-0d6f9d1b7a10",
		"business_details": map[string]interface{}{"industry": "Design"},
	}, "")
	suite.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (suite *APITestSuite) TestOrderFlow() {
	admin := suite.login(adminEmail, adminPassword)
	partnerID := suite.createApprovedPartner(admin)

	w := suite.request(http.MethodPost, "/v1/catalog/services", map[string]interface{}{
		"title":        "Logo design",
		"description":  "A logo in three concepts",
		"category":     "Design",
		"service_type": "Project",
		"status":       "active",
		"is_free":      true,
	}, admin)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Service struct {
			ID       string `json:"id"`
			Category string `json:"category"`
		} `json:"service"`
	}
	suite.decode(w, &created)
	suite.Equal("Design", created.Service.Category)

	w = suite.request(http.MethodPost, "/v1/assignments", map[string]string{
		"partner_id": partnerID,
		"service_id": created.Service.ID,
	}, admin)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	// public listing only shows active services
	w = suite.request(http.MethodGet, "/v1/catalog/services?category=Design", nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)
	var views []map[string]interface{}
	env := suite.decode(w, &views)
	suite.Len(views, 1)
	suite.Equal(true, views[0]["has_available_partner"])
	suite.NotNil(env.Meta["pagination"])

	buyer := suite.registerBuyer("orders@example.com")
	w = suite.request(http.MethodPost, "/v1/orders", map[string]string{"service_id": created.Service.ID}, buyer)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var result struct {
		Result struct {
			Assigned bool         `json:"assigned"`
			Order    models.Order `json:"order"`
		} `json:"result"`
	}
	suite.decode(w, &result)
	suite.True(result.Result.Assigned)
	suite.Equal(models.OrderStatusAssigned, result.Result.Order.Status)
	suite.Equal(models.PaymentStatusNotRequired, result.Result.Order.PaymentStatus)

	orderPath := "/v1/orders/" + result.Result.Order.ID.String()
	w = suite.request(http.MethodGet, orderPath, nil, buyer)
	suite.Equal(http.StatusOK, w.Code)

	stranger := suite.registerBuyer("stranger@example.com")
	w = suite.request(http.MethodGet, orderPath, nil, stranger)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPost, orderPath+"/complete", nil, buyer)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPost, orderPath+"/complete", nil, admin)
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *APITestSuite) TestAnnouncementsByAudience() {
	admin := suite.login(adminEmail, adminPassword)

	for _, target := range []string{"all", "partners"} {
		w := suite.request(http.MethodPost, "/v1/announcements", map[string]interface{}{
			"title":              "Notice for " + target,
			"content":            "Scheduled maintenance",
			"target_user_groups": []string{target},
		}, admin)
		suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	}

	w := suite.request(http.MethodGet, "/v1/announcements/active", nil, "")
	suite.Require().Equal(http.StatusOK, w.Code)
	var anonymous struct {
		Announcements []models.Announcement `json:"announcements"`
	}
	suite.decode(w, &anonymous)
	suite.Require().Len(anonymous.Announcements, 1)
	suite.Equal("Notice for all", anonymous.Announcements[0].Title)

	w = suite.request(http.MethodGet, "/v1/announcements/active", nil, admin)
	var forAdmin struct {
		Announcements []models.Announcement `json:"announcements"`
	}
	suite.decode(w, &forAdmin)
	suite.Len(forAdmin.Announcements, 1)
}

func (suite *APITestSuite) TestNotificationsAndNewsletter() {
	buyer := suite.registerBuyer("reader@example.com")

	w := suite.request(http.MethodGet, "/v1/notifications/unread-count", nil, buyer)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), `"unread":0`)

	w = suite.request(http.MethodPost, "/v1/newsletter/subscribe", map[string]string{"email": "reader@example.com"}, "")
	suite.Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/newsletter/unsubscribe?email=reader%40example.com", nil, "")
	suite.Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *APITestSuite) TestAdminSettings() {
	admin := suite.login(adminEmail, adminPassword)

	w := suite.request(http.MethodPut, "/v1/admin/settings/assignment/strategy", map[string]interface{}{
		"value":     "round_robin",
		"data_type": "string",
	}, admin)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	w = suite.request(http.MethodGet, "/v1/admin/settings/assignment/strategy", nil, admin)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Contains(w.Body.String(), "round_robin")

	w = suite.request(http.MethodPut, "/v1/admin/settings/assignment/strategy", map[string]interface{}{
		"value":     "fastest",
		"data_type": "string",
	}, admin)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodGet, "/v1/admin/settings/general/missing", nil, admin)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *APITestSuite) TestUploadPresignAndDelete() {
	buyerToken := suite.registerBuyer("uploader@example.com")
	adminToken := suite.login(adminEmail, adminPassword)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("files", "portfolio.pdf")
	suite.Require().NoError(err)
	_, err = part.Write([]byte("%PDF-1.4 test document"))
	suite.Require().NoError(err)
	bad, err := writer.CreateFormFile("files", "script.exe")
	suite.Require().NoError(err)
	_, err = bad.Write([]byte("MZ"))
	suite.Require().NoError(err)
	suite.Require().NoError(writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads?category=application_documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+buyerToken)
	req.Header.Set("X-Forwarded-For", "10.250.0.1")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Files []struct {
			Key string `json:"key"`
			URL string `json:"url"`
		} `json:"files"`
		Rejected []map[string]interface{} `json:"rejected"`
	}
	suite.decode(w, &result)
	suite.Require().Len(result.Files, 1)
	suite.Len(result.Rejected, 1)
	key := result.Files[0].Key
	suite.FileExists(filepath.Join(suite.cfg.Server.UploadDir, filepath.FromSlash(key)))

	w = suite.request(http.MethodGet, "/v1/uploads/presign?key="+url.QueryEscape(key), nil, buyerToken)
	suite.Equal(http.StatusOK, w.Code)
	var presigned map[string]interface{}
	suite.decode(w, &presigned)
	suite.Equal(result.Files[0].URL, presigned["url"])

	w = suite.request(http.MethodGet, "/v1/uploads/presign?key=../secret", nil, buyerToken)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodDelete, "/v1/uploads?key="+url.QueryEscape(key), nil, buyerToken)
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodDelete, "/v1/uploads?key="+url.QueryEscape(key), nil, adminToken)
	suite.Equal(http.StatusOK, w.Code)
	_, err = os.Stat(filepath.Join(suite.cfg.Server.UploadDir, filepath.FromSlash(key)))
	suite.True(os.IsNotExist(err))
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
