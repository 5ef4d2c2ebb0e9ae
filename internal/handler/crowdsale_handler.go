package handler

import (
	"net/http"
	"strconv"

	"github.com/blues/ffb/internal/logic"
	"github.com/gin-gonic/gin"
)

type CrowdsaleHandler struct {
	crowdsaleLogic *logic.CrowdsaleLogic
	tokenLogic     *logic.TokenLogic
	eventLogic     *logic.EventLogic
}

func NewCrowdsaleHandler(crowdsaleLogic *logic.CrowdsaleLogic, tokenLogic *logic.TokenLogic, eventLogic *logic.EventLogic) *CrowdsaleHandler {
	return &CrowdsaleHandler{
		crowdsaleLogic: crowdsaleLogic,
		tokenLogic:     tokenLogic,
		eventLogic:     eventLogic,
	}
}

// GetCrowdsale 获取众筹详情
func (h *CrowdsaleHandler) GetCrowdsale(c *gin.Context) {
	cs, err := h.crowdsaleLogic.GetCrowdsale(c.Param("address"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}

	resp := ToCrowdsaleResponse(cs)
	if token, err := h.tokenLogic.GetToken(cs.TokenId); err == nil {
		resp.TokenAddress = token.Address
	}
	SuccessResponse(c, http.StatusOK, "", resp)
}

// GetCrowdsaleToken 获取众筹代币详情
func (h *CrowdsaleHandler) GetCrowdsaleToken(c *gin.Context) {
	cs, err := h.crowdsaleLogic.GetCrowdsale(c.Param("address"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	token, err := h.tokenLogic.GetToken(cs.TokenId)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", ToTokenResponse(token))
}

// GetDeposits 获取众筹托管存款列表
func (h *CrowdsaleHandler) GetDeposits(c *gin.Context) {
	deposits, err := h.crowdsaleLogic.GetDeposits(c.Param("address"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", ToDepositResponseList(deposits))
}

// GetEvents 获取众筹事件列表
func (h *CrowdsaleHandler) GetEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := h.eventLogic.GetEvents(c.Param("address"), c.Query("type"), limit)
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", ToEventResponseList(events))
}

// BuyTokensRequest 购买代币请求
type BuyTokensRequest struct {
	Caller      string `json:"caller" binding:"required"`
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount" binding:"required"`
}

// BuyTokens 购买代币
func (h *CrowdsaleHandler) BuyTokens(c *gin.Context) {
	var req BuyTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	amount, ok := parseAmount(req.Amount)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的贡献金额")
		return
	}

	// 受益人默认为贡献者本人
	beneficiary := req.Beneficiary
	if beneficiary == "" {
		beneficiary = req.Caller
	}

	if err := h.crowdsaleLogic.BuyTokens(req.Caller, beneficiary, c.Param("address"), amount); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "购买成功", nil)
}

// Finalize 结算众筹
func (h *CrowdsaleHandler) Finalize(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.crowdsaleLogic.Finalize(req.Caller, c.Param("address")); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "结算完成", nil)
}

// ClaimRefund 提取退款
func (h *CrowdsaleHandler) ClaimRefund(c *gin.Context) {
	var req CallerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.crowdsaleLogic.ClaimRefund(req.Caller, c.Param("address")); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "退款成功", nil)
}

// HasClosed 查询众筹是否已结束
func (h *CrowdsaleHandler) HasClosed(c *gin.Context) {
	closed, err := h.crowdsaleLogic.HasClosed(c.Param("address"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{"hasClosed": closed})
}
