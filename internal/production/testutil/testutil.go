package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/canvastack/stencil-sub023/internal/middleware"
	"github.com/canvastack/stencil-sub023/internal/production/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const JWTSecret = "production-test-jwt-secret-2025"

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid JWT token for testing
func GenerateTestToken(userID, name string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for a default admin test user
func DefaultTestToken() string {
	return GenerateTestToken("test-user-001", "Test Admin", []string{"admin"})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// BuildOrder builds an in-memory order with line items for service tests
func BuildOrder(id string, totalAmount float64, itemCount int, deliveryDate time.Time) *entity.Order {
	order := &entity.Order{
		ID:           id,
		Code:         "ORD-" + id,
		CustomerName: "测试客户",
		Status:       entity.OrderStatusConfirmed,
		TotalAmount:  totalAmount,
		Currency:     "IDR",
		DeliveryDate: &deliveryDate,
	}
	for i := 0; i < itemCount; i++ {
		order.Items = append(order.Items, entity.OrderItem{
			ID:        fmt.Sprintf("%s-item-%d", id, i),
			OrderID:   id,
			ItemType:  "etching",
			Name:      fmt.Sprintf("蚀刻件-%d", i),
			Quantity:  10,
			UnitPrice: totalAmount / float64(itemCount),
		})
	}
	return order
}

// BuildVendor builds an in-memory vendor with the given rating and lead time
func BuildVendor(id string, rating float64, leadTimeDays int) *entity.Vendor {
	return &entity.Vendor{
		ID:           id,
		Code:         "VND-" + id,
		Name:         "测试供应商",
		Rating:       &rating,
		LeadTimeDays: leadTimeDays,
		Status:       entity.VendorStatusActive,
	}
}
