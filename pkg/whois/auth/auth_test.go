package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielurra/whois/pkg/whois/models"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	handler.RegisterRoutes(r.Group("/api/auth"))
	return r
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestPasswordHashing(t *testing.T) {
	password := "testpassword123"

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if hash == password {
		t.Error("Hash should not equal plain password")
	}

	if !CheckPassword(password, hash) {
		t.Error("CheckPassword should return true for correct password")
	}

	if CheckPassword("wrongpassword", hash) {
		t.Error("CheckPassword should return false for incorrect password")
	}
}

func TestJWTToken(t *testing.T) {
	token, err := GenerateToken(1, "test@example.com", "Test", "User", string(models.RoleWebappAdmin))
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("Expected UserID 1, got %d", claims.UserID)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("Expected email test@example.com, got %s", claims.Email)
	}
	if claims.Role != string(models.RoleWebappAdmin) {
		t.Errorf("Expected role Webapp Admin, got %s", claims.Role)
	}
}

func TestInvalidToken(t *testing.T) {
	_, err := ValidateToken("invalid-token")
	if err == nil {
		t.Error("Expected error for invalid token")
	}
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := postJSON(router, "/api/auth/register", RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     "test@example.com",
		Password:  "password123",
	})

	if resp.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Token == "" {
		t.Error("Expected token in response")
	}
	if response.User.Role != string(models.RoleReadOnlyAdmin) {
		t.Errorf("Expected default role Read Only Admin, got %s", response.User.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	body := RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     "dup@example.com",
		Password:  "password123",
	}
	postJSON(router, "/api/auth/register", body)
	resp := postJSON(router, "/api/auth/register", body)

	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestRegisterPasswordPolicy(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "abc1"},
		{"letters only", "abcdefgh"},
		{"digits only", "12345678"},
	}

	for _, tc := range cases {
		resp := postJSON(router, "/api/auth/register", RegisterRequest{
			FirstName: "Test",
			LastName:  "User",
			Email:     "policy@example.com",
			Password:  tc.password,
		})
		if resp.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", tc.name, resp.Code)
		}
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	postJSON(router, "/api/auth/register", RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     "login@example.com",
		Password:  "password123",
	})

	resp := postJSON(router, "/api/auth/login", LoginRequest{
		Email:    "login@example.com",
		Password: "password123",
	})

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response.Token == "" {
		t.Error("Expected token in response")
	}

	// Login must stamp last_login_at
	var user models.User
	db.Where("email = ?", "login@example.com").First(&user)
	if user.LastLoginAt == nil {
		t.Error("Expected last_login_at to be set after login")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	postJSON(router, "/api/auth/register", RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     "wrong@example.com",
		Password:  "password123",
	})

	resp := postJSON(router, "/api/auth/login", LoginRequest{
		Email:    "wrong@example.com",
		Password: "notthepassword1",
	})

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := postJSON(router, "/api/auth/login", LoginRequest{
		Email:    "nobody@example.com",
		Password: "password123",
	})

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestVerify(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	resp := postJSON(router, "/api/auth/register", RegisterRequest{
		FirstName: "Test",
		LastName:  "User",
		Email:     "verify@example.com",
		Password:  "password123",
	})

	var registered AuthResponse
	json.Unmarshal(resp.Body.Bytes(), &registered)

	req, _ := http.NewRequest("GET", "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+registered.Token)
	verifyResp := httptest.NewRecorder()
	router.ServeHTTP(verifyResp, req)

	if verifyResp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", verifyResp.Code, verifyResp.Body.String())
	}

	var response struct {
		Valid bool         `json:"valid"`
		User  UserResponse `json:"user"`
	}
	json.Unmarshal(verifyResp.Body.Bytes(), &response)

	if !response.Valid {
		t.Error("Expected valid=true")
	}
	if response.User.Email != "verify@example.com" {
		t.Errorf("Expected verified user email, got %s", response.User.Email)
	}
}

func TestVerifyWithoutToken(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db)

	req, _ := http.NewRequest("GET", "/api/auth/verify", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", resp.Code)
	}
}

func TestRoleMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/topgun", RequireTopGun(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/write", RequireWrite(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	get := func(path, role string) int {
		token, _ := GenerateToken(1, "x@example.com", "X", "Y", role)
		req, _ := http.NewRequest("GET", path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := get("/topgun", string(models.RoleTopGun)); code != http.StatusOK {
		t.Errorf("Top Gun should pass the Top Gun gate, got %d", code)
	}
	if code := get("/topgun", string(models.RoleWebappAdmin)); code != http.StatusForbidden {
		t.Errorf("Webapp Admin should fail the Top Gun gate, got %d", code)
	}
	if code := get("/write", string(models.RoleWebappAdmin)); code != http.StatusOK {
		t.Errorf("Webapp Admin should pass the write gate, got %d", code)
	}
	if code := get("/write", string(models.RoleReadOnlyAdmin)); code != http.StatusForbidden {
		t.Errorf("Read Only Admin should fail the write gate, got %d", code)
	}
}
