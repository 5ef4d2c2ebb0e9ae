package router

import (
	"github.com/blues/ffb/internal/config"
	"github.com/blues/ffb/internal/handler"
	"github.com/blues/ffb/internal/logic"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(db *gorm.DB, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "friendsfingers-builder",
		})
	})

	tokenLogic := logic.NewTokenLogic(db)
	crowdsaleLogic := logic.NewCrowdsaleLogic(db, tokenLogic)
	builderLogic := logic.NewBuilderLogic(db, tokenLogic, crowdsaleLogic)
	accountLogic := logic.NewAccountLogic(db)
	eventLogic := logic.NewEventLogic(db)

	// API版本组
	v1 := r.Group("/api/v1")
	{
		// 平台相关路由
		builderHandler := handler.NewBuilderHandler(builderLogic)
		builder := v1.Group("/builder")
		{
			builder.GET("", builderHandler.GetBuilder)
			builder.POST("/pause", builderHandler.PauseBuilder)
			builder.POST("/unpause", builderHandler.UnpauseBuilder)
			builder.POST("/wallet", builderHandler.SetMainWallet)
			builder.POST("/rate", builderHandler.SetDefaultRate)
			builder.POST("/enabled-addresses", builderHandler.ChangeEnabledAddress)
			builder.POST("/donate", builderHandler.Donate)
			builder.POST("/token-withdrawal", builderHandler.TokenWithdrawal)
		}

		// 众筹相关路由
		crowdsaleHandler := handler.NewCrowdsaleHandler(crowdsaleLogic, tokenLogic, eventLogic)
		crowdsales := v1.Group("/crowdsales")
		{
			crowdsales.POST("", builderHandler.StartCrowdsale)
			crowdsales.GET("", builderHandler.GetCrowdsales)
			crowdsales.GET("/:address", crowdsaleHandler.GetCrowdsale)
			crowdsales.GET("/:address/token", crowdsaleHandler.GetCrowdsaleToken)
			crowdsales.GET("/:address/deposits", crowdsaleHandler.GetDeposits)
			crowdsales.GET("/:address/events", crowdsaleHandler.GetEvents)
			crowdsales.GET("/:address/has-closed", crowdsaleHandler.HasClosed)
			crowdsales.POST("/:address/buy", crowdsaleHandler.BuyTokens)
			crowdsales.POST("/:address/finalize", crowdsaleHandler.Finalize)
			crowdsales.POST("/:address/refund", crowdsaleHandler.ClaimRefund)
			crowdsales.POST("/:address/restart", builderHandler.RestartCrowdsale)
			crowdsales.POST("/:address/close", builderHandler.CloseCrowdsale)
			crowdsales.POST("/:address/pause", builderHandler.PauseCrowdsale)
			crowdsales.POST("/:address/unpause", builderHandler.UnpauseCrowdsale)
			crowdsales.POST("/:address/block", builderHandler.BlockCrowdsale)
			crowdsales.POST("/:address/wallet", builderHandler.SetCrowdsaleWallet)
			crowdsales.POST("/:address/rate", builderHandler.SetCrowdsaleRate)
			crowdsales.POST("/:address/info", builderHandler.UpdateCrowdsaleInfo)
			crowdsales.POST("/:address/safe-withdrawal", builderHandler.SafeWithdrawal)
			crowdsales.POST("/:address/expire", builderHandler.SetExpiredAndWithdraw)
			crowdsales.POST("/:address/token-withdrawal", builderHandler.SafeTokenWithdrawal)
		}

		// 账户与代币相关路由
		accountHandler := handler.NewAccountHandler(accountLogic, tokenLogic)
		accounts := v1.Group("/accounts")
		{
			accounts.POST("/deposit", accountHandler.Deposit)
			accounts.GET("/:address/balance", accountHandler.GetBalance)
		}
		tokens := v1.Group("/tokens")
		{
			tokens.GET("/:address", accountHandler.GetToken)
			tokens.GET("/:address/balances/:holder", accountHandler.GetTokenBalance)
		}
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
