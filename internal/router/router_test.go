package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/blues/ffb/internal/config"
	"github.com/blues/ffb/internal/database"
	"github.com/blues/ffb/internal/logic"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testOwner   = "0x1000000000000000000000000000000000000001"
	testWallet  = "0x2000000000000000000000000000000000000002"
	testCreator = "0x3000000000000000000000000000000000000003"
	testAlice   = "0x5000000000000000000000000000000000000005"
)

func newTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	tokenLogic := logic.NewTokenLogic(db)
	crowdsaleLogic := logic.NewCrowdsaleLogic(db, tokenLogic)
	builderLogic := logic.NewBuilderLogic(db, tokenLogic, crowdsaleLogic)
	require.NoError(t, builderLogic.Init(testOwner, testWallet, 50))

	return Setup(db, &config.Config{})
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)
	w := doRequest(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCrowdsaleLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t)

	// 启动众筹
	opening := time.Now().Add(time.Hour)
	closing := opening.Add(10 * 24 * time.Hour)
	w := doRequest(t, r, http.MethodPost, "/api/v1/crowdsales", gin.H{
		"caller":      testCreator,
		"name":        "Friends Token",
		"symbol":      "FRND",
		"decimals":    18,
		"cap":         "10000",
		"goal":        "5000",
		"openingTime": opening.Unix(),
		"closingTime": closing.Unix(),
		"rate":        10,
		"wallet":      testWallet,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			Address string `json:"address"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	address := created.Data.Address
	require.NotEmpty(t, address)

	// 详情与列表
	w = doRequest(t, r, http.MethodGet, "/api/v1/crowdsales/"+address, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/v1/crowdsales", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// 入金后在窗口外购买被拒绝
	w = doRequest(t, r, http.MethodPost, "/api/v1/accounts/deposit", gin.H{
		"address": testAlice,
		"amount":  "1000",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPost, fmt.Sprintf("/api/v1/crowdsales/%s/buy", address), gin.H{
		"caller": testAlice,
		"amount": "100",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// 余额查询
	w = doRequest(t, r, http.MethodGet, fmt.Sprintf("/api/v1/accounts/%s/balance", testAlice), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1000")
}

func TestBuilderEndpoints(t *testing.T) {
	r := newTestRouter(t)

	w := doRequest(t, r, http.MethodGet, "/api/v1/builder", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), testOwner)

	// 非所有者不能调整默认费率
	w = doRequest(t, r, http.MethodPost, "/api/v1/builder/rate", gin.H{
		"caller":       testAlice,
		"ratePerMille": 10,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/v1/builder/rate", gin.H{
		"caller":       testOwner,
		"ratePerMille": 10,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// 参数校验失败
	w = doRequest(t, r, http.MethodPost, "/api/v1/builder/donate", gin.H{
		"caller": testAlice,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTokenWithdrawalEndpoints(t *testing.T) {
	r := newTestRouter(t)
	tokenAddr := "0x8000000000000000000000000000000000000008"

	// 非所有者不能回收平台账户代币
	w := doRequest(t, r, http.MethodPost, "/api/v1/builder/token-withdrawal", gin.H{
		"caller":       testAlice,
		"tokenAddress": tokenAddr,
		"amount":       "10",
		"beneficiary":  testWallet,
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 缺少参数
	w = doRequest(t, r, http.MethodPost, "/api/v1/builder/token-withdrawal", gin.H{
		"caller": testOwner,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 目标众筹不存在
	w = doRequest(t, r, http.MethodPost,
		"/api/v1/crowdsales/0x9000000000000000000000000000000000000009/token-withdrawal", gin.H{
			"caller":       testOwner,
			"tokenAddress": tokenAddr,
			"amount":       "10",
		})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
