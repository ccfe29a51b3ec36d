package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddlewareLabelsMatchedRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/v1/partners/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/partners/abc", nil))

	body := scrape(t)
	assert.Contains(t, body, `servicemart_http_requests_total{method="GET",route="/v1/partners/:id",status="204"}`)
	assert.NotContains(t, body, `route="/v1/partners/abc"`)
}

func TestRecordersAreExported(t *testing.T) {
	RecordApplicationReview("approved")
	RecordTrialOutcome("completed")
	RecordPartnerPromotion()
	RecordOrderAssignment("random", false)
	RecordEmailDelivery("", errors.New("smtp down"))
	RecordNotificationFanout(3, 0)

	body := scrape(t)
	assert.Contains(t, body, `servicemart_applications_reviews_total{status="approved"}`)
	assert.Contains(t, body, `servicemart_trials_outcomes_total{status="completed"}`)
	assert.Contains(t, body, "servicemart_partners_promotions_total")
	assert.Contains(t, body, `servicemart_orders_assignments_total{result="unassigned",strategy="random"}`)
	assert.Contains(t, body, `servicemart_email_deliveries_total{kind="generic",result="failed"}`)
	assert.Contains(t, body, `servicemart_notifications_created_total{result="created"}`)
}
