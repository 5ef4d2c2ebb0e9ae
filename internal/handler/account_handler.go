package handler

import (
	"net/http"

	"github.com/blues/ffb/internal/logic"
	"github.com/gin-gonic/gin"
)

type AccountHandler struct {
	accountLogic *logic.AccountLogic
	tokenLogic   *logic.TokenLogic
}

func NewAccountHandler(accountLogic *logic.AccountLogic, tokenLogic *logic.TokenLogic) *AccountHandler {
	return &AccountHandler{
		accountLogic: accountLogic,
		tokenLogic:   tokenLogic,
	}
}

// DepositRequest 入金请求
type DepositRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  string `json:"amount" binding:"required"`
}

// Deposit 外部入金
func (h *AccountHandler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	amount, ok := parseAmount(req.Amount)
	if !ok {
		ErrorResponse(c, http.StatusBadRequest, "无效的入金金额")
		return
	}
	if err := h.accountLogic.Deposit(req.Address, amount); err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "入金成功", nil)
}

// GetBalance 查询账户余额
func (h *AccountHandler) GetBalance(c *gin.Context) {
	balance, err := h.accountLogic.Balance(c.Param("address"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"address": c.Param("address"),
		"balance": balance.String(),
	})
}

// GetToken 按地址查询代币详情
func (h *AccountHandler) GetToken(c *gin.Context) {
	token, err := h.tokenLogic.GetTokenByAddress(c.Param("address"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", ToTokenResponse(token))
}

// GetTokenBalance 查询代币持有人余额
func (h *AccountHandler) GetTokenBalance(c *gin.Context) {
	balance, err := h.tokenLogic.TokenBalance(c.Param("address"), c.Param("holder"))
	if err != nil {
		LogicErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"token":   c.Param("address"),
		"holder":  c.Param("holder"),
		"balance": balance.String(),
	})
}
