package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/canvastack/stencil-sub023/internal/production/repository"
	"github.com/canvastack/stencil-sub023/internal/production/service"
	"github.com/canvastack/stencil-sub023/internal/production/testutil"
	"github.com/gin-gonic/gin"
)

func testContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestServiceErrorMapping(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   float64
	}{
		{repository.ErrNotFound, 404, 40400},
		{fmt.Errorf("save progress: %w", repository.ErrConflict), 409, 40900},
		{fmt.Errorf("%w: overall progress 1.50", service.ErrValidation), 400, 40000},
		{fmt.Errorf("%w: milestone m2 requires m1", service.ErrDependencyViolation), 400, 40000},
		{fmt.Errorf("%w: no line items", service.ErrInvalidOrder), 400, 40000},
		{fmt.Errorf("boom"), 500, 50000},
	}

	for _, tc := range cases {
		c, w := testContext()
		ServiceError(c, tc.err, "操作失败")
		if w.Code != tc.wantStatus {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.wantStatus, w.Code)
		}
		body := testutil.ParseResponse(w)
		if body["code"] != tc.wantCode {
			t.Errorf("%v: expected code %v, got %v", tc.err, tc.wantCode, body["code"])
		}
	}
}

func TestErrorCodeToStatusFallback(t *testing.T) {
	c, w := testContext()
	Error(c, 99, "bad code")
	if w.Code != 500 {
		t.Fatalf("out-of-range code should fall back to 500, got %d", w.Code)
	}
}

func TestGetPagination(t *testing.T) {
	c, _ := testContext()
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=3&page_size=50", nil)
	page, pageSize := GetPagination(c)
	if page != 3 || pageSize != 50 {
		t.Fatalf("expected 3/50, got %d/%d", page, pageSize)
	}

	c2, _ := testContext()
	c2.Request = httptest.NewRequest(http.MethodGet, "/?page=-1&page_size=500", nil)
	page, pageSize = GetPagination(c2)
	if page != 1 || pageSize != 20 {
		t.Fatalf("invalid params should fall back to defaults, got %d/%d", page, pageSize)
	}
}

func TestAuthMiddlewareGuardsRoutes(t *testing.T) {
	r := testutil.SetupRouter()
	grp := testutil.AuthGroup(r, "/api/v1/production")
	grp.GET("/ping", func(c *gin.Context) {
		Success(c, gin.H{"user_id": GetUserID(c)})
	})

	w := testutil.DoRequest(r, http.MethodGet, "/api/v1/production/ping", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = testutil.DoRequest(r, http.MethodGet, "/api/v1/production/ping", nil, testutil.DefaultTestToken())
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", w.Code)
	}
	body := testutil.ParseResponse(w)
	data := body["data"].(map[string]interface{})
	if data["user_id"] != "test-user-001" {
		t.Fatalf("expected user_id from claims, got %v", data["user_id"])
	}
}
