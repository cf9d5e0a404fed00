package lookup

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func fixedInvoker(output string, err error) Invoker {
	return func(ctx context.Context, ip string) (string, error) {
		return output, err
	}
}

func setupTestRouter(db *gorm.DB, invoke Invoker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db, invoke, StaticLogos{"verizon.png", "comcast.png", "generic_logo.png"}, "generic_logo.png")
	handler.RegisterRoutes(r)
	handler.RegisterStatsRoutes(r.Group("/api/stats"))
	return r
}

func doLookup(router *gin.Engine, body interface{}) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", "/whois", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "lookup-test")
	req.Header.Set("Referer", "http://example.com/")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

// waitForRecords polls for the fire-and-forget lookup record write
func waitForRecords(db *gorm.DB, want int64) int64 {
	var count int64
	for i := 0; i < 50; i++ {
		db.Model(&models.LookupRecord{}).Count(&count)
		if count >= want {
			return count
		}
		time.Sleep(10 * time.Millisecond)
	}
	return count
}

func TestLookupMatchesLogo(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("Verizon Communications\nNetRange: x\nVerizon", nil))

	resp := doLookup(router, LookupRequest{IP: "8.8.8.8", WanPanel: "WAN1"})

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var response LookupResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Logo != "verizon.png" {
		t.Errorf("Expected verizon.png, got %s", response.Logo)
	}
	if response.Output == "" {
		t.Error("Expected raw WHOIS output in response")
	}
}

func TestLookupFallbackLogo(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("unknown org xyz", nil))

	resp := doLookup(router, LookupRequest{IP: "8.8.8.8"})

	var response LookupResponse
	json.Unmarshal(resp.Body.Bytes(), &response)

	if response.Logo != "generic_logo.png" {
		t.Errorf("Expected generic_logo.png, got %s", response.Logo)
	}
}

func TestLookupRecordsQuery(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("Verizon Communications", nil))

	resp := doLookup(router, LookupRequest{IP: "8.8.8.8", WanPanel: "WAN2"})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	if got := waitForRecords(db, 1); got != 1 {
		t.Fatalf("Expected 1 lookup record, got %d", got)
	}

	var record models.LookupRecord
	db.First(&record)

	if record.SearchedIP != "8.8.8.8" {
		t.Errorf("Expected searched IP 8.8.8.8, got %s", record.SearchedIP)
	}
	if record.MatchedLogo != "verizon.png" {
		t.Errorf("Expected matched logo verizon.png, got %s", record.MatchedLogo)
	}
	if record.WanPanel != "WAN2" {
		t.Errorf("Expected wan panel WAN2, got %s", record.WanPanel)
	}
	if record.UserAgent != "lookup-test" {
		t.Errorf("Expected visitor user agent, got %s", record.UserAgent)
	}
	if record.RequestID == "" {
		t.Error("Expected a request ID on the record")
	}
}

func TestLookupMissingIP(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("anything", nil))

	resp := doLookup(router, map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestLookupInvalidIP(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("anything", nil))

	resp := doLookup(router, LookupRequest{IP: "not-an-ip"})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestLookupUpstreamFailure(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("", ErrLookupFailed))

	resp := doLookup(router, LookupRequest{IP: "8.8.8.8"})
	if resp.Code != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", resp.Code)
	}

	// A failed lookup must not be recorded
	time.Sleep(20 * time.Millisecond)
	var count int64
	db.Model(&models.LookupRecord{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no lookup records, got %d", count)
	}
}

func TestStatsCount(t *testing.T) {
	db := setupTestDB(t)
	router := setupTestRouter(db, fixedInvoker("Verizon", nil))

	for i := 0; i < 3; i++ {
		doLookup(router, LookupRequest{IP: "8.8.8.8"})
	}
	waitForRecords(db, 3)

	req, _ := http.NewRequest("GET", "/api/stats/count", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var response map[string]int64
	json.Unmarshal(resp.Body.Bytes(), &response)
	if response["total"] != 3 {
		t.Errorf("Expected total 3, got %d", response["total"])
	}
}

func TestSystemWhoisTimeout(t *testing.T) {
	// A hung invocation must be killed by the deadline, not block forever
	slow := func(ctx context.Context, ip string) (string, error) {
		select {
		case <-ctx.Done():
			return "", ErrLookupFailed
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if _, err := slow(ctx, "8.8.8.8"); err == nil {
			t.Error("Expected timeout error")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Invocation did not respect the deadline")
	}
}

func TestStaticLogosSorted(t *testing.T) {
	logos := StaticLogos{"verizon.png", "comcast.png", "at_t.png"}
	files, err := logos.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if files[0] != "at_t.png" || files[2] != "verizon.png" {
		t.Errorf("Expected sorted listing, got %v", files)
	}
}
