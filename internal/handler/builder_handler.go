package handler

import (
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/blues/ffb/internal/logic"
	"github.com/gin-gonic/gin"
)

type BuilderHandler struct {
	builderLogic *logic.BuilderLogic
}

func NewBuilderHandler(builderLogic *logic.BuilderLogic) *BuilderHandler {
	return &BuilderHandler{builderLogic: builderLogic}
}

// GetBuilder 获取平台信息
func (h *BuilderHandler) GetBuilder(c *gin.Context) {
	builder, err := h.builderLogic.GetBuilder()
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", ToBuilderResponse(builder))
}

// StartCrowdsaleRequest 启动众筹请求
type StartCrowdsaleRequest struct {
	Caller        string `json:"caller" binding:"required"`
	Name          string `json:"name" binding:"required"`
	Symbol        string `json:"symbol" binding:"required"`
	Decimals      uint8  `json:"decimals"`
	Cap           string `json:"cap" binding:"required"`
	Goal          string `json:"goal"`
	CreatorSupply string `json:"creatorSupply"`
	OpeningTime   int64  `json:"openingTime" binding:"required"`
	ClosingTime   int64  `json:"closingTime" binding:"required"`
	Rate          int64  `json:"rate" binding:"required"`
	Wallet        string `json:"wallet" binding:"required"`
	Info          string `json:"info"`
}

// StartCrowdsale 启动众筹
func (h *BuilderHandler) StartCrowdsale(c *gin.Context) {
	var req StartCrowdsaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	cap, ok := parseAmount(req.Cap)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的募集上限")
		return
	}
	goal, ok := parseAmountOrZero(req.Goal)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的目标金额")
		return
	}
	creatorSupply, ok := parseAmountOrZero(req.CreatorSupply)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的创建者份额")
		return
	}

	cs, err := h.builderLogic.StartCrowdsale(req.Caller, logic.StartCrowdsaleParams{
		Name:          req.Name,
		Symbol:        req.Symbol,
		Decimals:      req.Decimals,
		Cap:           cap,
		Goal:          goal,
		CreatorSupply: creatorSupply,
		OpeningTime:   time.Unix(req.OpeningTime, 0),
		ClosingTime:   time.Unix(req.ClosingTime, 0),
		Rate:          req.Rate,
		Wallet:        req.Wallet,
		Info:          req.Info,
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "众筹创建成功", ToCrowdsaleResponse(cs))
}

// RestartCrowdsaleRequest 重启众筹请求
type RestartCrowdsaleRequest struct {
	Caller      string `json:"caller" binding:"required"`
	Cap         string `json:"cap" binding:"required"`
	OpeningTime int64  `json:"openingTime" binding:"required"`
	ClosingTime int64  `json:"closingTime" binding:"required"`
	Rate        int64  `json:"rate" binding:"required"`
	Info        string `json:"info"`
}

// RestartCrowdsale 以新一轮重启已达标的众筹
func (h *BuilderHandler) RestartCrowdsale(c *gin.Context) {
	var req RestartCrowdsaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	cap, ok := parseAmount(req.Cap)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的募集上限")
		return
	}

	cs, err := h.builderLogic.RestartCrowdsale(req.Caller, c.Param("address"), logic.RestartCrowdsaleParams{
		Cap:         cap,
		OpeningTime: time.Unix(req.OpeningTime, 0),
		ClosingTime: time.Unix(req.ClosingTime, 0),
		Rate:        req.Rate,
		Info:        req.Info,
	})
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "众筹重启成功", ToCrowdsaleResponse(cs))
}

// CallerRequest 仅携带调用者的请求
type CallerRequest struct {
	Caller string `json:"caller" binding:"required"`
}

// CloseCrowdsale 关闭众筹
func (h *BuilderHandler) CloseCrowdsale(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.CloseCrowdsale(req.Caller, c.Param("address")); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "众筹已关闭", nil)
}

// PauseCrowdsale 暂停众筹
func (h *BuilderHandler) PauseCrowdsale(c *gin.Context) {
	h.callerAction(c, h.builderLogic.PauseCrowdsale, "众筹已暂停")
}

// UnpauseCrowdsale 恢复众筹
func (h *BuilderHandler) UnpauseCrowdsale(c *gin.Context) {
	h.callerAction(c, h.builderLogic.UnpauseCrowdsale, "众筹已恢复")
}

// BlockCrowdsale 封禁众筹
func (h *BuilderHandler) BlockCrowdsale(c *gin.Context) {
	h.callerAction(c, h.builderLogic.BlockCrowdsale, "众筹已封禁")
}

// SafeWithdrawal 紧急提款
func (h *BuilderHandler) SafeWithdrawal(c *gin.Context) {
	h.callerAction(c, h.builderLogic.SafeWithdrawalFromCrowdsale, "提款完成")
}

// SetExpiredAndWithdraw 标记过期并清扫剩余资金
func (h *BuilderHandler) SetExpiredAndWithdraw(c *gin.Context) {
	h.callerAction(c, h.builderLogic.SetExpiredAndWithdraw, "已标记过期")
}

func (h *BuilderHandler) callerAction(c *gin.Context, fn func(caller, address string) error, message string) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := fn(req.Caller, c.Param("address")); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, message, nil)
}

// SetCrowdsaleWalletRequest 更换平台钱包请求
type SetCrowdsaleWalletRequest struct {
	Caller string `json:"caller" binding:"required"`
	Wallet string `json:"wallet" binding:"required"`
}

// SetCrowdsaleWallet 更换某轮众筹的平台钱包
func (h *BuilderHandler) SetCrowdsaleWallet(c *gin.Context) {
	var req SetCrowdsaleWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.SetFriendsFingersWalletForCrowdsale(req.Caller, c.Param("address"), req.Wallet); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "平台钱包已更换", nil)
}

// SetCrowdsaleRateRequest 下调平台费率请求
type SetCrowdsaleRateRequest struct {
	Caller       string `json:"caller" binding:"required"`
	RatePerMille *int64 `json:"ratePerMille" binding:"required"`
}

// SetCrowdsaleRate 下调某轮众筹的平台费率
func (h *BuilderHandler) SetCrowdsaleRate(c *gin.Context) {
	var req SetCrowdsaleRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.SetFriendsFingersRateForCrowdsale(req.Caller, c.Param("address"), *req.RatePerMille); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "平台费率已更新", nil)
}

// UpdateInfoRequest 更新描述信息请求
type UpdateInfoRequest struct {
	Caller string `json:"caller" binding:"required"`
	Info   string `json:"info" binding:"required"`
}

// UpdateCrowdsaleInfo 更新众筹描述信息
func (h *BuilderHandler) UpdateCrowdsaleInfo(c *gin.Context) {
	var req UpdateInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.UpdateCrowdsaleInfo(req.Caller, c.Param("address"), req.Info); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "描述信息已更新", nil)
}

// EnabledAddressRequest 授权地址请求
type EnabledAddressRequest struct {
	Caller  string `json:"caller" binding:"required"`
	Address string `json:"address" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}

// ChangeEnabledAddress 授权/撤销管理地址
func (h *BuilderHandler) ChangeEnabledAddress(c *gin.Context) {
	var req EnabledAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.ChangeEnabledAddressStatus(req.Caller, req.Address, *req.Enabled); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "授权状态已更新", nil)
}

// SetDefaultRateRequest 下调默认费率请求
type SetDefaultRateRequest struct {
	Caller       string `json:"caller" binding:"required"`
	RatePerMille *int64 `json:"ratePerMille" binding:"required"`
}

// SetDefaultRate 下调默认平台费率
func (h *BuilderHandler) SetDefaultRate(c *gin.Context) {
	var req SetDefaultRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.SetDefaultFriendsFingersRate(req.Caller, *req.RatePerMille); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "默认费率已更新", nil)
}

// SetMainWalletRequest 更换平台主钱包请求
type SetMainWalletRequest struct {
	Caller string `json:"caller" binding:"required"`
	Wallet string `json:"wallet" binding:"required"`
}

// SetMainWallet 更换平台主钱包
func (h *BuilderHandler) SetMainWallet(c *gin.Context) {
	var req SetMainWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.SetMainWallet(req.Caller, req.Wallet); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "平台钱包已更换", nil)
}

// PauseBuilder 暂停平台
func (h *BuilderHandler) PauseBuilder(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.Pause(req.Caller); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "平台已暂停", nil)
}

// UnpauseBuilder 恢复平台
func (h *BuilderHandler) UnpauseBuilder(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.builderLogic.Unpause(req.Caller); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "平台已恢复", nil)
}

// DonateRequest 捐赠请求
type DonateRequest struct {
	Caller string `json:"caller" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

// Donate 直接捐赠给平台
func (h *BuilderHandler) Donate(c *gin.Context) {
	var req DonateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的捐赠金额")
		return
	}
	if err := h.builderLogic.Donate(req.Caller, amount); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "捐赠成功", nil)
}

// TokenWithdrawalRequest 平台代币回收请求
type TokenWithdrawalRequest struct {
	Caller       string `json:"caller" binding:"required"`
	TokenAddress string `json:"tokenAddress" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
	Beneficiary  string `json:"beneficiary" binding:"required"`
}

// TokenWithdrawal 回收误转入平台账户的代币
func (h *BuilderHandler) TokenWithdrawal(c *gin.Context) {
	var req TokenWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的回收金额")
		return
	}
	if err := h.builderLogic.TransferAnyERC20Token(req.Caller, req.TokenAddress, amount, req.Beneficiary); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "代币已回收", nil)
}

// SafeTokenWithdrawalRequest 众筹代币回收请求
type SafeTokenWithdrawalRequest struct {
	Caller       string `json:"caller" binding:"required"`
	TokenAddress string `json:"tokenAddress" binding:"required"`
	Amount       string `json:"amount" binding:"required"`
}

// SafeTokenWithdrawal 回收众筹账户持有的其他代币到平台钱包
func (h *BuilderHandler) SafeTokenWithdrawal(c *gin.Context) {
	var req SafeTokenWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的回收金额")
		return
	}
	if err := h.builderLogic.SafeTokenWithdrawalFromCrowdsale(req.Caller, c.Param("address"), req.TokenAddress, amount); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "代币已回收", nil)
}

// GetCrowdsales 分页获取众筹列表
func (h *BuilderHandler) GetCrowdsales(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	crowdsales, total, err := h.builderLogic.ListCrowdsales(page, pageSize)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "", GetCrowdsalesResponse{
		Crowdsales: ToCrowdsaleResponseList(crowdsales),
		Pagination: Pagination{Page: page, PageSize: pageSize, Total: total},
	})
}

// parseAmount 解析十进制大整数金额
func parseAmount(s string) (*big.Int, bool) {
	if s == "" {
		return nil, false
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// parseAmountOrZero 空串按0处理
func parseAmountOrZero(s string) (*big.Int, bool) {
	if s == "" {
		return big.NewInt(0), true
	}
	return parseAmount(s)
}
